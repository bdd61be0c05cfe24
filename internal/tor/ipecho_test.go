package tor

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIPEchoLookup(t *testing.T) {
	t.Parallel()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(broken.Close)
	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>rate limited</html>")
	}))
	t.Cleanup(garbage.Close)
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, " 203.0.113.7\n")
	}))
	t.Cleanup(good.Close)

	t.Run("falls through to a working service", func(t *testing.T) {
		t.Parallel()
		e := NewIPEcho(http.DefaultClient, []string{broken.URL, garbage.URL, good.URL})
		ip, err := e.Lookup(t.Context())
		if err != nil || ip != "203.0.113.7" {
			t.Errorf("Lookup() = %q, %v", ip, err)
		}
	})

	t.Run("all services failing", func(t *testing.T) {
		t.Parallel()
		e := NewIPEcho(http.DefaultClient, []string{broken.URL, garbage.URL})
		if _, err := e.Lookup(t.Context()); !errors.Is(err, ErrNoEchoService) {
			t.Errorf("Lookup() error = %v, want ErrNoEchoService", err)
		}
	})

	t.Run("no services configured", func(t *testing.T) {
		t.Parallel()
		if _, err := NewIPEcho(http.DefaultClient, nil).Lookup(t.Context()); !errors.Is(err, ErrNoEchoService) {
			t.Errorf("Lookup() error = %v", err)
		}
	})
}

func TestCheckTor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		status  int
		want    TorCheck
		wantErr bool
	}{
		{"through tor", `{"IsTor":true,"IP":"198.51.100.9"}`, http.StatusOK, TorCheck{IsTor: true, IP: "198.51.100.9"}, false},
		{"clearnet", `{"IsTor":false,"IP":"192.0.2.1"}`, http.StatusOK, TorCheck{IP: "192.0.2.1"}, false},
		{"bad json", `not json`, http.StatusOK, TorCheck{}, true},
		{"server error", `{}`, http.StatusInternalServerError, TorCheck{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			got, err := CheckTor(t.Context(), srv.Client(), srv.URL)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckTor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("CheckTor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
