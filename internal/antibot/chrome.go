package antibot

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// checkboxSelector matches the widgets common challenge providers render.
const checkboxSelector = `input[type="checkbox"], [role="checkbox"], .recaptcha-checkbox, .ctp-checkbox-label, #challenge-stage input`

// ChromeSession is a Session over a chromedp tab context.
type ChromeSession struct {
	frames []*cdp.Node
}

// NewChromeSession returns a session for the tab in the chromedp context
// passed to its methods.
func NewChromeSession() *ChromeSession {
	return &ChromeSession{}
}

// FrameCount lists the iframes of the current document.
func (s *ChromeSession) FrameCount(ctx context.Context) (int, error) {
	var frames []*cdp.Node
	if err := chromedp.Run(ctx,
		chromedp.Nodes("iframe", &frames, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	); err != nil {
		return 1, fmt.Errorf("list frames: %w", err)
	}
	s.frames = frames
	return len(frames) + 1, nil
}

// ClickCheckboxes clicks the checkboxes of frame i; 0 is the top document.
func (s *ChromeSession) ClickCheckboxes(ctx context.Context, i int) (int, error) {
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if i > 0 {
		if i > len(s.frames) {
			return 0, fmt.Errorf("frame %d out of range", i)
		}
		opts = append(opts, chromedp.FromNode(s.frames[i-1]))
	}

	var boxes []*cdp.Node
	if err := chromedp.Run(ctx, chromedp.Nodes(checkboxSelector, &boxes, opts...)); err != nil {
		return 0, fmt.Errorf("query checkboxes: %w", err)
	}

	clicked := 0
	for _, b := range boxes {
		if err := chromedp.Run(ctx, chromedp.MouseClickNode(b)); err != nil {
			return clicked, fmt.Errorf("click checkbox: %w", err)
		}
		clicked++
	}
	return clicked, nil
}
