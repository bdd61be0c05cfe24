package tor

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestNewEmbeddedTor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []EmbeddedTorOption
		want time.Duration
	}{
		{"default startup timeout", nil, 3 * time.Minute},
		{"custom startup timeout", []EmbeddedTorOption{WithStartupTimeout(45 * time.Second)}, 45 * time.Second},
		{"logger option keeps timeout", []EmbeddedTorOption{WithEmbeddedLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, 3 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := NewEmbeddedTor(tt.opts...)
			if e.startupTimeout != tt.want {
				t.Errorf("startupTimeout = %v, want %v", e.startupTimeout, tt.want)
			}
		})
	}
}

func TestEmbeddedTorBeforeStart(t *testing.T) {
	t.Parallel()

	e := NewEmbeddedTor()
	if e.IsRunning() {
		t.Error("IsRunning() = true before Start")
	}
	if e.SocksAddr() != "" || e.ControlAddr() != "" {
		t.Errorf("addresses = %q, %q; want empty", e.SocksAddr(), e.ControlAddr())
	}
	if e.CookiePath() != "" {
		t.Errorf("CookiePath() = %q before Start", e.CookiePath())
	}
	if _, err := e.NewClient(time.Second); !errors.Is(err, ErrEmbeddedNotRunning) {
		t.Errorf("NewClient() error = %v, want ErrEmbeddedNotRunning", err)
	}
	if _, err := e.NewController(); !errors.Is(err, ErrEmbeddedNotRunning) {
		t.Errorf("NewController() error = %v, want ErrEmbeddedNotRunning", err)
	}
	if err := e.Stop(); err != nil {
		t.Errorf("Stop() on unstarted daemon = %v", err)
	}
}
