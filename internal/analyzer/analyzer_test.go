package analyzer

import (
	"strings"
	"testing"
	"time"

	"github.com/nao1215/reaper/internal/model"
)

func TestExtractText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raw         string
		contentType string
		want        string
	}{
		{
			name: "drops scripts and styles and collapses whitespace",
			raw: `<html><head><title>T</title><style>p{color:red}</style></head>
<body><h1>Hello</h1>
<script>var jane = "Jane Doe";</script>
<p>Jane   Doe
 wrote this.</p><!-- Jane Doe --><noscript>enable js</noscript></body></html>`,
			want: "Hello Jane Doe wrote this.",
		},
		{
			name: "adjacent elements do not glue words",
			raw:  `<div><span>Jane</span><span>Doe</span></div>`,
			want: "Jane Doe",
		},
		{
			name:        "decodes declared charset",
			raw:         "<p>caf\xe9 Doe</p>",
			contentType: "text/html; charset=iso-8859-1",
			want:        "café Doe",
		},
		{
			name: "meta charset is sniffed",
			raw:  "<html><head><meta charset=\"windows-1252\"></head><body>na\xefve</body></html>",
			want: "naïve",
		},
		{
			name: "empty document",
			raw:  "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractText([]byte(tt.raw), tt.contentType); got != tt.want {
				t.Errorf("ExtractText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMatcherJaneDoe(t *testing.T) {
	t.Parallel()

	p, err := model.NewTargetProfile("Jane Doe", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	vars := p.Variations()

	// each required form matches on its own, case-insensitively
	for _, tt := range []struct{ variation, text string }{
		{"Jane Doe", "an interview with JANE DOE yesterday"},
		{"Doe, Jane", "authors: doe, jane and others"},
		{"J.Doe", "posted by j.doe on the forum"},
		{"JDoe", "user jdoe replied"},
	} {
		if !containsFold(vars, tt.variation) {
			t.Fatalf("variation %q missing from %v", tt.variation, vars)
		}
		m := NewMatcher([]string{tt.variation})
		if got, ok := m.Find(tt.text); !ok || !strings.EqualFold(tt.text[got.Start:got.End], tt.variation) {
			t.Errorf("%q did not match in %q (got %+v)", tt.variation, tt.text, got)
		}
	}
}

func TestMatcherWholeWord(t *testing.T) {
	t.Parallel()

	m := NewMatcher([]string{"Jane Doe", "JDoe", "Doe, Jane"})
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"Janet Doering spoke", "", false},
		{"MaryJane Doe", "", false},
		{"contact: jdoe2000", "", false},
		{"(Jane Doe)", "Jane Doe", true},
		{"jane_doe", "", false},
		{"Doe, Jane.", "Doe, Jane", true},
	}
	for _, tt := range tests {
		got, ok := m.Find(tt.text)
		if ok != tt.ok || got.Variation != tt.want {
			t.Errorf("Find(%q) = %+v, %v; want %q, %v", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestMatcherFirstVariationWins(t *testing.T) {
	t.Parallel()

	m := NewMatcher([]string{"Jane Doe", "", "Doe"})
	got, ok := m.Find("Doe was mentioned before Jane Doe")
	if !ok || got.Variation != "Jane Doe" {
		t.Errorf("Find() = %+v, want the first variation in order", got)
	}
	if len(m.Variations()) != 2 {
		t.Errorf("empty variation was kept: %v", m.Variations())
	}
}

func TestMatcherPunctuationEdges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		variation string
		text      string
		ok        bool
	}{
		{"J. Doe", "signed J. Doe.", true},
		{"J. Doe", "signed J. Doering", false},
		{"#jane", "tagged x#jane today", true},
		{"#jane", "tagged #janet", false},
		{"C++", "written in C++17", true},
		{"C++", "ObjC++ sources", false},
	}
	for _, tt := range tests {
		_, ok := NewMatcher([]string{tt.variation}).Find(tt.text)
		if ok != tt.ok {
			t.Errorf("Find(%q) for %q = %v, want %v", tt.text, tt.variation, ok, tt.ok)
		}
	}
}

func TestMatcherUnicodeBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		variation string
		text      string
		want      string
		ok        bool
	}{
		{"accented name inside a longer word", "Chloé Dupré", "about Chloé Duprémont, the architect", "", false},
		{"accented name standing alone", "Chloé Dupré", "about Chloé Dupré, the architect", "Chloé Dupré", true},
		{"accented edge at end of text", "Dupré", "interview with DUPRÉ", "DUPRÉ", true},
		{"accented letter before the name", "Zoë", "Éloïse and Zoë", "Zoë", true},
		{"preceded by a non-ascii letter", "Noor", "ÅNoor", "", false},
		{"cyrillic continuation", "Иван", "Иванов", "", false},
		{"later standalone hit after a rejected one", "Dupré", "Duprémont met Dupré", "Dupré", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := NewMatcher([]string{tt.variation}).Find(tt.text)
			if ok != tt.ok {
				t.Fatalf("Find(%q) ok = %v, want %v (%+v)", tt.text, ok, tt.ok, got)
			}
			if ok && tt.text[got.Start:got.End] != tt.want {
				t.Errorf("matched %q, want %q", tt.text[got.Start:got.End], tt.want)
			}
		})
	}
}

func TestContextWindow(t *testing.T) {
	t.Parallel()

	text := "0123456789abcdefghij"
	tests := []struct {
		name           string
		text           string
		m, length, rad int
		want           string
	}{
		{"middle", text, 10, 2, 3, "789abcde"},
		{"clamped at start", text, 1, 2, 5, "01234567"},
		{"clamped at end", text, 18, 2, 5, "defghij"},
		{"whole text", text, 5, 1, 100, text},
		{"zero radius", text, 4, 3, 0, "456"},
		{"newlines removed", "ab\ncd\r\nef", 3, 2, 2, "bcd"},
		{"offset past end", "abc", 10, 2, 1, "c"},
		{"negative offset", "abc", -4, 1, 1, "ab"},
		{"runes not bytes", "ééééJaneéééé", 4, 4, 2, "ééJaneéé"},
		{"empty text", "", 0, 0, 150, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ContextWindow(tt.text, tt.m, tt.length, tt.rad); got != tt.want {
				t.Errorf("ContextWindow() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSentiment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		check func(model.Sentiment) bool
	}{
		{"positive", "Jane Doe gave an excellent and wonderful talk.", func(s model.Sentiment) bool { return s.Polarity > 0.5 && s.Subjectivity > 0.5 }},
		{"negative", "Jane Doe was arrested in a fraud scandal.", func(s model.Sentiment) bool { return s.Polarity < -0.5 }},
		{"negation flips", "The talk was not good.", func(s model.Sentiment) bool { return s.Polarity < 0 && s.Polarity > -0.5 }},
		{"intensifier clamps", "extremely excellent", func(s model.Sentiment) bool { return s.Polarity == 1 && s.Subjectivity == 1 }},
		{"neutral", "Jane Doe lives in the city.", func(s model.Sentiment) bool { return s == model.Sentiment{} }},
		{"empty", "", func(s model.Sentiment) bool { return s == model.Sentiment{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := Sentiment(tt.text)
			if !tt.check(s) {
				t.Errorf("Sentiment(%q) = %+v", tt.text, s)
			}
			if s.Polarity < -1 || s.Polarity > 1 || s.Subjectivity < 0 || s.Subjectivity > 1 {
				t.Errorf("Sentiment(%q) out of range: %+v", tt.text, s)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	p, err := model.NewTargetProfile("jane doe", "Acme", []string{"project falcon"})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	a := New(p, WithContextRadius(10), WithClock(func() time.Time { return now }))

	t.Run("match", func(t *testing.T) {
		t.Parallel()
		page := &model.Page{
			URL: "https://example.org/a",
			Raw: []byte("<p>Yesterday the brilliant J. Doe presented.</p><p>Later Jane Doe left.</p>"),
		}
		rec := a.Analyze(page)
		if rec == nil {
			t.Fatal("Analyze() = nil")
		}
		if page.Match != rec {
			t.Error("page.Match not set")
		}
		if rec.Variation != "Jane Doe" {
			t.Errorf("Variation = %q", rec.Variation)
		}
		if rec.Context != "ed. Later Jane Doe left." {
			t.Errorf("Context = %q", rec.Context)
		}
		if rec.URL != page.URL || !rec.Timestamp.Equal(now) || rec.Timestamp.Location() != time.UTC {
			t.Errorf("record = %+v", rec)
		}
		if rec.Sentiment.Polarity <= 0 {
			t.Errorf("sentiment over the whole page should see 'brilliant': %+v", rec.Sentiment)
		}
	})

	t.Run("keyword match", func(t *testing.T) {
		t.Parallel()
		page := &model.Page{URL: "https://example.org/b", Raw: []byte("<p>Notes on Project Falcon.</p>")}
		if rec := a.Analyze(page); rec == nil || rec.Variation != "project falcon" {
			t.Errorf("Analyze() = %+v", rec)
		}
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()
		page := &model.Page{URL: "https://example.org/c", Raw: []byte("<p>Nothing here.</p>")}
		if rec := a.Analyze(page); rec != nil || page.Match != nil {
			t.Errorf("Analyze() = %+v", rec)
		}
		if page.Text != "Nothing here." {
			t.Errorf("Text = %q", page.Text)
		}
	})
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
