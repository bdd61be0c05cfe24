package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs summaries in Markdown format for sharing.
type MarkdownWriter struct {
	baseWriter

	detailLimit int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownDetailLimit lists up to n mentions; negative lists all.
func WithMarkdownDetailLimit(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.detailLimit = n
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{baseWriter: newBaseWriter(output), detailLimit: -1}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(s *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, s)
	if s.Total == 0 {
		md.Tip("No mentions found.")
		md.PlainText("")
	} else {
		w.writeSentiment(md, s)
		w.writeCounts(md, "Top Domains", "Domain", s.TopDomains)
		w.writeCounts(md, "Mentions by Name Variation", "Variation", s.Variations)
		w.writeMentions(md, s)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("Mention Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", s.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Total Mentions", strconv.Itoa(s.Total)},
			{"Skipped Lines", strconv.Itoa(s.Skipped)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSentiment(md *markdown.Markdown, s *Summary) {
	md.H2("Sentiment")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Tone", "Mentions", "Share"},
		Rows: [][]string{
			{"Positive", strconv.Itoa(s.Positive), fmt.Sprintf("%.1f%%", s.Share(s.Positive))},
			{"Neutral", strconv.Itoa(s.Neutral), fmt.Sprintf("%.1f%%", s.Share(s.Neutral))},
			{"Negative", strconv.Itoa(s.Negative), fmt.Sprintf("%.1f%%", s.Share(s.Negative))},
			{"**Average polarity**", fmt.Sprintf("**%.2f**", s.AveragePolarity), "-"},
		},
	})
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Sentiment Distribution"),
		piechart.WithShowData(true),
	)
	for _, part := range []struct {
		label string
		n     int
	}{
		{"Positive", s.Positive},
		{"Neutral", s.Neutral},
		{"Negative", s.Negative},
	} {
		if part.n > 0 {
			chart.LabelAndIntValue(part.label, uint64(part.n))
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	if s.Negative > s.Positive {
		md.Warningf("Negative mentions outnumber positive ones (%d vs %d).", s.Negative, s.Positive)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, title, column string, counts []Count) {
	md.H2(title)
	md.PlainText("")
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{"`" + c.Key + "`", strconv.Itoa(c.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{column, "Mentions"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeMentions(md *markdown.Markdown, s *Summary) {
	mentions := s.Limited(w.detailLimit)
	if len(mentions) == 0 {
		return
	}
	md.H2("Mentions")
	md.PlainText("")

	rows := make([][]string, len(mentions))
	for i, m := range mentions {
		rows[i] = []string{
			m.Timestamp.Format("2006-01-02 15:04"),
			m.Variation,
			truncateString(m.URL, 60),
			fmt.Sprintf("%.2f", m.Sentiment.Polarity),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Found", "Variation", "URL", "Polarity"},
		Rows:   rows,
	})
	md.PlainText("")

	for i, m := range mentions {
		md.Details(fmt.Sprintf("%d. %s", i+1, m.URL), Highlight(m.Context, m.Variation, "**", "**"))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [reaper](https://github.com/nao1215/reaper)*")
}
