package report

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/nao1215/reaper/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text summaries for the terminal.
type SimpleWriter struct {
	baseWriter

	// detailLimit is the number of mentions printed in full.
	// Negative prints all of them, zero none.
	detailLimit int
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithDetailLimit prints up to n mentions with their context.
// A negative n prints every mention.
func WithDetailLimit(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.detailLimit = n
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(s *Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, s)
	if s.Total == 0 {
		sb.WriteString("  No mentions found.\n\n")
	} else {
		w.writeCounts(&sb, "TOP DOMAINS", s.TopDomains)
		w.writeCounts(&sb, "MENTIONS BY NAME VARIATION", s.Variations)
		w.writeSentiment(&sb, s)
		w.writeMentions(&sb, s)
	}
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                      SUMMARY OF FINDINGS\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Generated:      %s\n", s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Total mentions: %d\n", s.Total)
	if s.Skipped > 0 {
		fmt.Fprintf(sb, "Skipped lines:  %d (malformed)\n", s.Skipped)
	}
	sb.WriteString("\n")
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeCounts(sb *strings.Builder, title string, counts []Count) {
	section(sb, title)
	for _, c := range counts {
		fmt.Fprintf(sb, "  %s: %d mentions\n", c.Key, c.Count)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSentiment(sb *strings.Builder, s *Summary) {
	section(sb, "SENTIMENT")
	fmt.Fprintf(sb, "  Average:  %.2f (-1 negative to +1 positive)\n", s.AveragePolarity)
	fmt.Fprintf(sb, "  Positive: %d (%.1f%%)\n", s.Positive, s.Share(s.Positive))
	fmt.Fprintf(sb, "  Neutral:  %d (%.1f%%)\n", s.Neutral, s.Share(s.Neutral))
	fmt.Fprintf(sb, "  Negative: %d (%.1f%%)\n", s.Negative, s.Share(s.Negative))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeMentions(sb *strings.Builder, s *Summary) {
	mentions := s.Limited(w.detailLimit)
	if len(mentions) == 0 {
		return
	}
	section(sb, "DETAILED MENTIONS")
	for i, m := range mentions {
		fmt.Fprintf(sb, "[%d/%d] %s\n", i+1, s.Total, m.Variation)
		fmt.Fprintf(sb, "  URL:       %s\n", m.URL)
		fmt.Fprintf(sb, "  Found:     %s\n", m.Timestamp.Format("2006-01-02 15:04"))
		fmt.Fprintf(sb, "  Sentiment: %.2f (%s)\n", m.Sentiment.Polarity, Tone(m.Sentiment.Polarity))
		fmt.Fprintf(sb, "  Context:   %s\n\n", Highlight(m.Context, m.Variation, "[", "]"))
	}
}

// Highlight wraps every case-insensitive occurrence of variation in text.
func Highlight(text, variation, open, closing string) string {
	if variation == "" {
		return text
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(variation))
	return re.ReplaceAllStringFunc(text, func(m string) string {
		return open + m + closing
	})
}

// mentionRow is the flat form of a record used by CSV and XLSX exports.
func mentionRow(m model.MatchRecord) []string {
	return []string{
		m.URL,
		Domain(m.URL),
		m.Variation,
		m.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		m.Context,
		fmt.Sprintf("%.4f", m.Sentiment.Polarity),
		fmt.Sprintf("%.4f", m.Sentiment.Subjectivity),
	}
}

// mentionHeader names the columns of mentionRow.
var mentionHeader = []string{
	"url", "domain", "variation", "timestamp", "context",
	"sentiment_polarity", "sentiment_subjectivity",
}
