package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/reaper/internal/model"
	"github.com/xuri/excelize/v2"
)

var testNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

// createTestRecords returns mentions across two domains and variations.
func createTestRecords() []model.MatchRecord {
	rec := func(u, v string, p float64) model.MatchRecord {
		return model.MatchRecord{
			Timestamp: testNow,
			URL:       u,
			Variation: v,
			Context:   "a note about " + v + " here",
			Sentiment: model.Sentiment{Polarity: p, Subjectivity: 0.5},
		}
	}
	return []model.MatchRecord{
		rec("https://news.example.org/a", "Jane Doe", 0.5),
		rec("https://news.example.org/b", "Jane Doe", -0.4),
		rec("https://blog.example.net/x", "Doe, Jane", 0.05),
		rec("https://news.example.org/c", "J.Doe", 0.1),
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	t.Run("aggregates counts and sentiment", func(t *testing.T) {
		t.Parallel()

		s := Summarize(createTestRecords(), 2, testNow)

		if s.Total != 4 || s.Skipped != 2 {
			t.Errorf("total=%d skipped=%d", s.Total, s.Skipped)
		}
		if len(s.TopDomains) != 2 || s.TopDomains[0] != (Count{"news.example.org", 3}) {
			t.Errorf("top domains = %+v", s.TopDomains)
		}
		wantVar := []Count{{"Jane Doe", 2}, {"Doe, Jane", 1}, {"J.Doe", 1}}
		if len(s.Variations) != len(wantVar) {
			t.Fatalf("variations = %+v", s.Variations)
		}
		for i, c := range wantVar {
			if s.Variations[i] != c {
				t.Errorf("variation %d = %+v, want %+v", i, s.Variations[i], c)
			}
		}
		if math.Abs(s.AveragePolarity-0.0625) > 1e-9 {
			t.Errorf("average polarity = %v", s.AveragePolarity)
		}
		// 0.1 is not above the positive threshold.
		if s.Positive != 1 || s.Negative != 1 || s.Neutral != 2 {
			t.Errorf("distribution = +%d ~%d -%d", s.Positive, s.Neutral, s.Negative)
		}
		if s.Share(s.Neutral) != 50 {
			t.Errorf("neutral share = %v", s.Share(s.Neutral))
		}
	})

	t.Run("empty log", func(t *testing.T) {
		t.Parallel()

		s := Summarize(nil, 0, testNow)
		if s.Total != 0 || s.AveragePolarity != 0 || s.Share(1) != 0 {
			t.Errorf("unexpected summary: %+v", s)
		}
	})

	t.Run("top domains are capped", func(t *testing.T) {
		t.Parallel()

		var recs []model.MatchRecord
		for i := range TopDomainLimit + 5 {
			recs = append(recs, model.MatchRecord{URL: "https://d" + string(rune('a'+i)) + ".org/", Variation: "x"})
		}
		if got := len(Summarize(recs, 0, testNow).TopDomains); got != TopDomainLimit {
			t.Errorf("got %d domains, want %d", got, TopDomainLimit)
		}
	})
}

func TestSummaryLimited(t *testing.T) {
	t.Parallel()

	s := Summarize(createTestRecords(), 0, testNow)
	tests := []struct {
		limit int
		want  int
	}{
		{-1, 4},
		{0, 0},
		{2, 2},
		{10, 4},
	}
	for _, tt := range tests {
		if got := len(s.Limited(tt.limit)); got != tt.want {
			t.Errorf("Limited(%d) = %d, want %d", tt.limit, got, tt.want)
		}
	}
}

func TestToneAndDomain(t *testing.T) {
	t.Parallel()

	if Tone(0.11) != "positive" || Tone(-0.11) != "negative" || Tone(0.1) != "neutral" {
		t.Error("unexpected tone classification")
	}
	if Domain("https://Sub.Example.org:8443/x") != "Sub.Example.org:8443" {
		t.Errorf("Domain = %q", Domain("https://Sub.Example.org:8443/x"))
	}
	if Domain("not a url") != "not a url" {
		t.Errorf("Domain fallback = %q", Domain("not a url"))
	}
}

func TestHighlight(t *testing.T) {
	t.Parallel()

	got := Highlight("JANE DOE met jane doe.", "Jane Doe", "[", "]")
	if got != "[JANE DOE] met [jane doe]." {
		t.Errorf("got %q", got)
	}
	if Highlight("a.b", "", "[", "]") != "a.b" {
		t.Error("empty variation should not change text")
	}
	if Highlight("J.Doe and JxDoe", "J.Doe", "[", "]") != "[J.Doe] and JxDoe" {
		t.Error("variation must be matched literally")
	}
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes summary sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(Summarize(createTestRecords(), 1, testNow))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("returned %d bytes, wrote %d", n, buf.Len())
		}
		out := buf.String()
		for _, want := range []string{
			"SUMMARY OF FINDINGS",
			"Total mentions: 4",
			"Skipped lines:  1 (malformed)",
			"news.example.org: 3 mentions",
			"Jane Doe: 2 mentions",
			"Average:  0.06",
			"Neutral:  2 (50.0%)",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(out, "DETAILED MENTIONS") {
			t.Error("details should be off by default")
		}
	})

	t.Run("writes limited details with highlight", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		_, err := NewSimpleWriter(&buf, WithDetailLimit(1)).Write(Summarize(createTestRecords(), 0, testNow))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "[1/4] Jane Doe") || strings.Contains(out, "[2/4]") {
			t.Errorf("unexpected details:\n%s", out)
		}
		if !strings.Contains(out, "a note about [Jane Doe] here") {
			t.Error("expected highlighted context")
		}
		if !strings.Contains(out, "Sentiment: 0.50 (positive)") {
			t.Error("expected sentiment line")
		}
	})

	t.Run("empty summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(Summarize(nil, 0, testNow)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No mentions found.") {
			t.Error("expected empty notice")
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(Summarize(createTestRecords(), 0, testNow)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{
			"# Mention Report",
			"## Sentiment",
			"```mermaid",
			"pie",
			"## Top Domains",
			"`news.example.org`",
			"## Mentions by Name Variation",
			"## Mentions",
			"**Jane Doe**",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected markdown to contain %q", want)
			}
		}
	})

	t.Run("detail limit zero hides mentions", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf, WithMarkdownDetailLimit(0))
		if _, err := w.Write(Summarize(createTestRecords(), 0, testNow)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "## Mentions\n") {
			t.Error("mentions section should be omitted")
		}
	})

	t.Run("empty summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(Summarize(nil, 0, testNow)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No mentions found.") || strings.Contains(buf.String(), "mermaid") {
			t.Error("empty summary should only carry a notice")
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	for _, pretty := range []bool{false, true} {
		var buf bytes.Buffer
		var opts []JSONWriterOption
		if pretty {
			opts = append(opts, WithPrettyPrint())
		}
		if _, err := NewJSONWriter(&buf, opts...).Write(Summarize(createTestRecords(), 0, testNow)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got Summary
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if got.Total != 4 || len(got.Mentions) != 4 || got.Mentions[0].Variation != "Jane Doe" {
			t.Errorf("pretty=%v: unexpected decode %+v", pretty, got)
		}
		if strings.Contains(buf.String(), "\n  ") != pretty {
			t.Errorf("pretty=%v: indentation mismatch", pretty)
		}
	}
}

func TestCSVWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := NewCSVWriter(&buf).Write(Summarize(createTestRecords(), 0, testNow))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != buf.Len() {
		t.Errorf("returned %d bytes, wrote %d", n, buf.Len())
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("got %d rows, want header + 4", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(mentionHeader, ",") {
		t.Errorf("header = %v", rows[0])
	}
	want := []string{
		"https://blog.example.net/x", "blog.example.net", "Doe, Jane",
		"2024-06-01T09:30:00Z", "a note about Doe, Jane here", "0.0500", "0.5000",
	}
	if strings.Join(rows[3], "|") != strings.Join(want, "|") {
		t.Errorf("row = %v, want %v", rows[3], want)
	}
}

func TestXLSXWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := NewXLSXWriter(&buf).Write(Summarize(createTestRecords(), 0, testNow))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != buf.Len() || n == 0 {
		t.Errorf("returned %d bytes, wrote %d", n, buf.Len())
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close() //nolint:errcheck // test

	rows, err := f.GetRows(mentionsSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 5 || rows[0][0] != "url" || rows[1][2] != "Jane Doe" {
		t.Errorf("unexpected mention rows: %v", rows)
	}

	total, err := f.GetCellValue(summarySheet, "B2")
	if err != nil || total != "4" {
		t.Errorf("total cell = %q, %v", total, err)
	}
	domain, err := f.GetCellValue(summarySheet, "A10")
	if err != nil || domain != "news.example.org" {
		t.Errorf("first domain cell = %q, %v", domain, err)
	}
}

type failingWriter struct{}

func (failingWriter) Write(*Summary) (int, error) { return 3, errors.New("boom") }

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	s := Summarize(createTestRecords(), 0, testNow)

	n, err := NewMultiWriter(NewSimpleWriter(&a), NewCSVWriter(&b)).Write(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != a.Len()+b.Len() || a.Len() == 0 || b.Len() == 0 {
		t.Errorf("n=%d a=%d b=%d", n, a.Len(), b.Len())
	}

	var c bytes.Buffer
	n, err = NewMultiWriter(failingWriter{}, NewSimpleWriter(&c)).Write(s)
	if err == nil || n != 3 || c.Len() != 0 {
		t.Errorf("expected stop on first error, got n=%d err=%v c=%d", n, err, c.Len())
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 2, "ab"},
		{"ÄÖÜäöüß", 5, "ÄÖ..."},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
