package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/reaper/internal/crawler"
	"github.com/nao1215/reaper/internal/model"
)

// Matcher finds a mention of the target in a page.
type Matcher interface {
	Analyze(page *model.Page) *model.MatchRecord
}

// Recorder persists match records.
type Recorder interface {
	Append(rec model.MatchRecord) error
}

// Archiver stores raw page content.
type Archiver interface {
	Save(url string, content []byte, now time.Time) (string, error)
}

// Enqueuer accepts discovered links.
type Enqueuer interface {
	EnqueueAll(urls []string) int
}

// AnalyzeStep searches the page for the target and records a hit.
type AnalyzeStep struct {
	matcher  Matcher
	recorder Recorder
	out      io.Writer
	logger   *slog.Logger
}

// AnalyzeStepOption configures an AnalyzeStep.
type AnalyzeStepOption func(*AnalyzeStep)

// WithHitWriter sets where hits are announced. Nil silences announcements.
func WithHitWriter(w io.Writer) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		s.out = w
	}
}

// WithAnalyzeLogger sets a custom logger for the analyze step.
func WithAnalyzeLogger(logger *slog.Logger) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		s.logger = logger
	}
}

// NewAnalyzeStep creates an analyze step appending hits to recorder.
func NewAnalyzeStep(matcher Matcher, recorder Recorder, opts ...AnalyzeStepOption) *AnalyzeStep {
	s := &AnalyzeStep{
		matcher:  matcher,
		recorder: recorder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Step.
func (s *AnalyzeStep) Name() string { return "analyze" }

// Do implements Step.
func (s *AnalyzeStep) Do(_ context.Context, page *model.Page) error {
	rec := s.matcher.Analyze(page)
	if rec == nil {
		return nil
	}
	if err := s.recorder.Append(*rec); err != nil {
		return fmt.Errorf("append match: %w", err)
	}
	s.logger.Info("match found",
		"url", rec.URL,
		"variation", rec.Variation,
		"polarity", rec.Sentiment.Polarity,
	)
	if s.out != nil {
		fmt.Fprintf(s.out, "[HIT] found mention of %q on %s\n", rec.Variation, rec.URL)
	}
	return nil
}

// ArchiveStep stores the raw content of every page, matched or not.
type ArchiveStep struct {
	archiver Archiver
	logger   *slog.Logger
}

// NewArchiveStep creates an archive step.
func NewArchiveStep(archiver Archiver, logger *slog.Logger) *ArchiveStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveStep{archiver: archiver, logger: logger}
}

// Name implements Step.
func (s *ArchiveStep) Name() string { return "archive" }

// Do implements Step.
func (s *ArchiveStep) Do(_ context.Context, page *model.Page) error {
	now := page.FetchedAt
	if now.IsZero() {
		now = time.Now()
	}
	path, err := s.archiver.Save(page.URL, page.Raw, now)
	if err != nil {
		return fmt.Errorf("archive page: %w", err)
	}
	s.logger.Debug("page archived", "url", page.URL, "path", path)
	return nil
}

// LinkStep extracts links and enqueues them, same-host links first.
type LinkStep struct {
	frontier Enqueuer
	logger   *slog.Logger
}

// NewLinkStep creates a link discovery step.
func NewLinkStep(frontier Enqueuer, logger *slog.Logger) *LinkStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkStep{frontier: frontier, logger: logger}
}

// Name implements Step.
func (s *LinkStep) Name() string { return "links" }

// Do implements Step.
func (s *LinkStep) Do(_ context.Context, page *model.Page) error {
	parser, err := crawler.NewParser(page.URL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	result, err := parser.Parse(bytes.NewReader(page.Raw))
	if err != nil {
		return fmt.Errorf("parse links: %w", err)
	}
	page.Links = result.Links()
	added := s.frontier.EnqueueAll(page.Links)
	s.logger.Debug("links discovered",
		"url", page.URL,
		"same_host", len(result.SameHostLinks),
		"cross_host", len(result.CrossHostLinks),
		"enqueued", added,
	)
	return nil
}
