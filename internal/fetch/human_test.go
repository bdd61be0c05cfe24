package fetch

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingActor struct {
	scrolls  []int
	moves    [][2]float64
	clicks   int
	clickErr error
}

func (a *recordingActor) Scroll(_ context.Context, dy int) error {
	a.scrolls = append(a.scrolls, dy)
	return nil
}

func (a *recordingActor) MoveTo(_ context.Context, x, y float64) error {
	a.moves = append(a.moves, [2]float64{x, y})
	return nil
}

func (a *recordingActor) ClickParagraph(context.Context) error {
	a.clicks++
	return a.clickErr
}

func TestNewHumanPlanRanges(t *testing.T) {
	t.Parallel()

	r := NewSeededRand(3, 4)
	clicked := 0
	for range 500 {
		p := NewHumanPlan(r)
		if n := len(p.Scrolls); n < 2 || n > 5 {
			t.Fatalf("scrolls = %d", n)
		}
		for _, s := range p.Scrolls {
			if s.Pixels < 100 || s.Pixels > 500 || s.Pause < 500*time.Millisecond || s.Pause >= 1500*time.Millisecond {
				t.Fatalf("scroll %+v out of range", s)
			}
		}
		if n := len(p.Moves); n < 2 || n > 4 {
			t.Fatalf("moves = %d", n)
		}
		for _, m := range p.Moves {
			if m.DX < -50 || m.DX > 50 || m.DY < -50 || m.DY > 50 || m.Pause < 100*time.Millisecond || m.Pause >= 300*time.Millisecond {
				t.Fatalf("move %+v out of range", m)
			}
		}
		if p.FinalPause < time.Second || p.FinalPause >= 2*time.Second {
			t.Fatalf("final pause %v", p.FinalPause)
		}
		if p.ClickParagraph {
			clicked++
		}
	}
	if clicked == 0 || clicked == 500 {
		t.Errorf("paragraph click drawn %d/500 times", clicked)
	}
}

func TestHumanPlanRun(t *testing.T) {
	t.Parallel()

	p := HumanPlan{
		Scrolls:        []Scroll{{Pixels: 120, Pause: time.Second}, {Pixels: 300, Pause: time.Second}},
		Moves:          []Move{{DX: 10, DY: -20, Pause: 100 * time.Millisecond}, {DX: -50, DY: 5, Pause: 200 * time.Millisecond}},
		ClickParagraph: true,
		FinalPause:     1500 * time.Millisecond,
	}
	a := &recordingActor{clickErr: errors.New("no paragraph")}
	var slept time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		slept += d
		return nil
	}

	if err := p.Run(t.Context(), a, 20, 10, sleep); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if len(a.scrolls) != 2 || a.scrolls[0] != 120 || a.scrolls[1] != 300 {
		t.Errorf("scrolls = %v", a.scrolls)
	}
	// pointer is clamped at the viewport origin
	want := [][2]float64{{30, 0}, {0, 5}}
	if len(a.moves) != 2 || a.moves[0] != want[0] || a.moves[1] != want[1] {
		t.Errorf("moves = %v, want %v", a.moves, want)
	}
	if a.clicks != 1 {
		t.Errorf("clicks = %d", a.clicks)
	}
	if slept != p.Duration() {
		t.Errorf("slept %v, Duration() = %v", slept, p.Duration())
	}
}

func TestHumanPlanRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	p := HumanPlan{Scrolls: []Scroll{{Pixels: 100, Pause: time.Second}, {Pixels: 100, Pause: time.Second}}}
	a := &recordingActor{}
	err := p.Run(t.Context(), a, 0, 0, func(context.Context, time.Duration) error { return context.Canceled })
	if !errors.Is(err, context.Canceled) || len(a.scrolls) != 1 {
		t.Errorf("Run() = %v after %d scrolls", err, len(a.scrolls))
	}
}

func TestAllocatorOptions(t *testing.T) {
	t.Parallel()

	base := len(allocatorOptions(browserConfig{width: 1024, height: 768}))
	full := len(allocatorOptions(browserConfig{width: 1024, height: 768, proxy: "socks5://127.0.0.1:9050", userAgent: "ua", execPath: "/usr/bin/chromium"}))
	if full != base+3 {
		t.Errorf("options with proxy, UA and path = %d, want %d", full, base+3)
	}
}

func TestStrategyNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		s    Strategy
		want string
	}{
		{NewHeadless(), NameHeadless},
		{NewAnonymizedHeadless("socks5://127.0.0.1:9050", nil), NameAnonymizedHeadless},
		{NewStealth(), NameStealth},
	}
	for _, tt := range tests {
		if tt.s.Name() != tt.want {
			t.Errorf("Name() = %q, want %q", tt.s.Name(), tt.want)
		}
	}
}
