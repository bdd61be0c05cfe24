package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// Scroll is one vertical scroll followed by a pause.
type Scroll struct {
	Pixels int
	Pause  time.Duration
}

// Move is one relative pointer move followed by a pause.
type Move struct {
	DX, DY int
	Pause  time.Duration
}

// HumanPlan is a pre-drawn sequence of reader-like interactions.
type HumanPlan struct {
	Scrolls        []Scroll
	Moves          []Move
	ClickParagraph bool
	FinalPause     time.Duration
}

// NewHumanPlan draws 2-5 scrolls of 100-500px with 0.5-1.5s pauses, 2-4
// pointer moves within ±50px with 0.1-0.3s pauses, a paragraph click 30%
// of the time and a final 1-2s pause.
func NewHumanPlan(r *Rand) HumanPlan {
	var p HumanPlan
	for range r.IntRange(2, 5) {
		p.Scrolls = append(p.Scrolls, Scroll{
			Pixels: r.IntRange(100, 500),
			Pause:  r.DurationRange(500*time.Millisecond, 1500*time.Millisecond),
		})
	}
	for range r.IntRange(2, 4) {
		p.Moves = append(p.Moves, Move{
			DX:    r.IntRange(-50, 50),
			DY:    r.IntRange(-50, 50),
			Pause: r.DurationRange(100*time.Millisecond, 300*time.Millisecond),
		})
	}
	p.ClickParagraph = r.Chance(0.3)
	p.FinalPause = r.DurationRange(time.Second, 2*time.Second)
	return p
}

// Actor performs the plan's interactions on a page.
type Actor interface {
	Scroll(ctx context.Context, dy int) error
	MoveTo(ctx context.Context, x, y float64) error
	ClickParagraph(ctx context.Context) error
}

// Run performs p starting with the pointer at (x, y). A failed paragraph
// click is ignored; any other error ends the run.
func (p HumanPlan) Run(ctx context.Context, a Actor, x, y float64, sleep func(context.Context, time.Duration) error) error {
	for _, s := range p.Scrolls {
		if err := a.Scroll(ctx, s.Pixels); err != nil {
			return fmt.Errorf("scroll: %w", err)
		}
		if err := sleep(ctx, s.Pause); err != nil {
			return err
		}
	}
	for _, m := range p.Moves {
		x, y = max(0, x+float64(m.DX)), max(0, y+float64(m.DY))
		if err := a.MoveTo(ctx, x, y); err != nil {
			return fmt.Errorf("move pointer: %w", err)
		}
		if err := sleep(ctx, m.Pause); err != nil {
			return err
		}
	}
	if p.ClickParagraph {
		_ = a.ClickParagraph(ctx) //nolint:errcheck // incidental click
	}
	return sleep(ctx, p.FinalPause)
}

// Duration is the total time the plan sleeps.
func (p HumanPlan) Duration() time.Duration {
	d := p.FinalPause
	for _, s := range p.Scrolls {
		d += s.Pause
	}
	for _, m := range p.Moves {
		d += m.Pause
	}
	return d
}

// chromeActor drives a chromedp tab.
type chromeActor struct {
	rng *Rand
}

func (chromeActor) Scroll(ctx context.Context, dy int) error {
	return chromedp.Run(ctx, scrollBy(dy))
}

func (chromeActor) MoveTo(ctx context.Context, x, y float64) error {
	return chromedp.Run(ctx, chromedp.MouseEvent(input.MouseMoved, x, y))
}

func (a chromeActor) ClickParagraph(ctx context.Context) error {
	var ps []*cdp.Node
	if err := chromedp.Run(ctx, chromedp.Nodes("p", &ps, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return err
	}
	if len(ps) == 0 {
		return nil
	}
	return chromedp.Run(ctx, chromedp.MouseClickNode(Pick(a.rng, ps)))
}
