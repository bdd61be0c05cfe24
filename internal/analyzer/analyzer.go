package analyzer

import (
	"time"

	"github.com/nao1215/reaper/internal/model"
)

const defaultRadius = 150

// Analyzer turns fetched pages into match records.
type Analyzer struct {
	matcher *Matcher
	radius  int
	now     func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithContextRadius sets the context window radius in characters.
func WithContextRadius(n int) Option {
	return func(a *Analyzer) {
		if n >= 0 {
			a.radius = n
		}
	}
}

// WithClock sets the timestamp source of match records.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// New creates an Analyzer for the variations of profile.
func New(profile *model.TargetProfile, opts ...Option) *Analyzer {
	a := &Analyzer{
		matcher: NewMatcher(profile.Variations()),
		radius:  defaultRadius,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze fills page.Text and, when a variation occurs in it, page.Match.
// It returns the match, or nil.
func (a *Analyzer) Analyze(page *model.Page) *model.MatchRecord {
	if page.Text == "" {
		page.Text = ExtractText(page.Raw, "")
	}
	mt, ok := a.matcher.Find(page.Text)
	if !ok {
		return nil
	}
	m, n := runeOffsets(page.Text, mt)
	rec := model.NewMatchRecord(
		page.URL,
		mt.Variation,
		ContextWindow(page.Text, m, n, a.radius),
		Sentiment(page.Text),
		a.now(),
	)
	page.Match = &rec
	return &rec
}
