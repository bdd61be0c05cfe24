package antibot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"cloudflare interstitial", "Checking your browser before accessing example.org", true},
		{"captcha mixed case", "Please solve the CAPTCHA below", true},
		{"turnstile", "Verify you are human by completing the action below.", true},
		{"ddos page", "DDoS protection by Provider", true},
		{"ordinary article", "Jane Doe spoke at the annual conference on Tuesday.", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestMarker(t *testing.T) {
	t.Parallel()

	m, ok := Marker("Security Check required")
	if !ok || m != "security check" {
		t.Errorf("Marker() = %q, %v", m, ok)
	}
}

type fakeSession struct {
	frames    int
	frameErr  error
	perFrame  []int
	clickErr  error
	clickedIn []int
}

func (s *fakeSession) FrameCount(context.Context) (int, error) {
	return s.frames, s.frameErr
}

func (s *fakeSession) ClickCheckboxes(_ context.Context, i int) (int, error) {
	s.clickedIn = append(s.clickedIn, i)
	if s.clickErr != nil {
		return 0, s.clickErr
	}
	if i < len(s.perFrame) {
		return s.perFrame[i], nil
	}
	return 0, nil
}

func newTestMitigator(sleeps *[]time.Duration) *Mitigator {
	return NewMitigator(
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			return ctx.Err()
		}),
	)
}

func TestMitigate(t *testing.T) {
	t.Parallel()

	t.Run("clicks widgets in every frame", func(t *testing.T) {
		t.Parallel()
		var sleeps []time.Duration
		m := newTestMitigator(&sleeps)
		s := &fakeSession{frames: 3, perFrame: []int{0, 1, 2}}

		if got := m.Mitigate(t.Context(), s); got != 3 {
			t.Errorf("Mitigate() = %d, want 3", got)
		}
		if len(s.clickedIn) != 3 {
			t.Errorf("visited frames %v", s.clickedIn)
		}
		want := []time.Duration{10 * time.Second, 2 * time.Second, 2 * time.Second, 2 * time.Second, 5 * time.Second}
		if len(sleeps) != len(want) {
			t.Fatalf("sleeps = %v, want %v", sleeps, want)
		}
		for i := range want {
			if sleeps[i] != want[i] {
				t.Errorf("sleep %d = %v, want %v", i, sleeps[i], want[i])
			}
		}
	})

	t.Run("errors are swallowed", func(t *testing.T) {
		t.Parallel()
		var sleeps []time.Duration
		m := newTestMitigator(&sleeps)
		s := &fakeSession{frameErr: errors.New("target closed"), clickErr: errors.New("detached")}

		if got := m.Mitigate(t.Context(), s); got != 0 {
			t.Errorf("Mitigate() = %d, want 0", got)
		}
		if len(s.clickedIn) != 1 || s.clickedIn[0] != 0 {
			t.Errorf("expected top document to be tried, got %v", s.clickedIn)
		}
		if len(sleeps) != 2 {
			t.Errorf("sleeps = %v, want settle and redirect", sleeps)
		}
	})

	t.Run("canceled context stops before touching the page", func(t *testing.T) {
		t.Parallel()
		var sleeps []time.Duration
		m := newTestMitigator(&sleeps)
		s := &fakeSession{frames: 1, perFrame: []int{1}}
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		if got := m.Mitigate(ctx, s); got != 0 {
			t.Errorf("Mitigate() = %d", got)
		}
		if len(s.clickedIn) != 0 {
			t.Error("session was used after cancellation")
		}
	})
}
