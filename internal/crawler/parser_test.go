package crawler

import (
	"strings"
	"testing"
)

func TestParser(t *testing.T) {
	t.Parallel()

	t.Run("extracts title", func(t *testing.T) {
		t.Parallel()

		html := `<html><head><title> Test Page </title></head><body></body></html>`
		parser, err := NewParser("https://example.org/page")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}
		result, err := parser.Parse(strings.NewReader(html))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}
		if result.Title != "Test Page" {
			t.Errorf("expected title 'Test Page', got %q", result.Title)
		}
	})

	t.Run("orders same-host links first", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
			<a href="https://other.example/x">Other</a>
			<a href="/internal">Internal</a>
			<a href="https://www.example.org/www">WWW</a>
			<a href="http://third.example/">Third</a>
			<a href="sub/page?q=1#section">Relative</a>
		</body></html>`
		parser, err := NewParser("https://example.org/dir/page")
		if err != nil {
			t.Fatal(err)
		}
		result, err := parser.Parse(strings.NewReader(html))
		if err != nil {
			t.Fatal(err)
		}

		want := []string{
			"https://example.org/internal",
			"https://www.example.org/www",
			"https://example.org/dir/sub/page?q=1",
			"https://other.example/x",
			"http://third.example/",
		}
		got := result.Links()
		if strings.Join(got, " ") != strings.Join(want, " ") {
			t.Errorf("Links() =\n%v\nwant\n%v", got, want)
		}
		if len(result.SameHostLinks) != 3 || len(result.CrossHostLinks) != 2 {
			t.Errorf("same = %v, cross = %v", result.SameHostLinks, result.CrossHostLinks)
		}
	})

	t.Run("skips non-navigational references and duplicates", func(t *testing.T) {
		t.Parallel()

		html := `<a href="javascript:void(0)">js</a>
			<a href="MAILTO:jane@example.org">mail</a>
			<a href="tel:+123">tel</a>
			<a href="data:text/plain,hi">data</a>
			<a href="#top">top</a>
			<a href="">empty</a>
			<a>no href</a>
			<a href="ftp://files.example/">ftp</a>
			<a href="/a#one">a1</a>
			<a href="/a#two">a2</a>
			<area href="/map">`
		parser, err := NewParser("https://example.org/")
		if err != nil {
			t.Fatal(err)
		}
		result, err := parser.Parse(strings.NewReader(html))
		if err != nil {
			t.Fatal(err)
		}
		want := "https://example.org/a https://example.org/map"
		if got := strings.Join(result.Links(), " "); got != want {
			t.Errorf("Links() = %q, want %q", got, want)
		}
	})

	t.Run("honours base href", func(t *testing.T) {
		t.Parallel()

		html := `<html><head><base href="https://cdn.example.org/docs/"></head>
			<body><a href="guide.html">guide</a></body></html>`
		parser, err := NewParser("https://example.org/index.html")
		if err != nil {
			t.Fatal(err)
		}
		result, err := parser.Parse(strings.NewReader(html))
		if err != nil {
			t.Fatal(err)
		}
		if got := result.Links(); len(got) != 1 || got[0] != "https://cdn.example.org/docs/guide.html" {
			t.Errorf("Links() = %v", got)
		}
		if len(result.CrossHostLinks) != 1 {
			t.Errorf("base host link should be cross-host: %+v", result)
		}
	})

	t.Run("malformed HTML still yields links", func(t *testing.T) {
		t.Parallel()

		parser, err := NewParser("https://example.org/")
		if err != nil {
			t.Fatal(err)
		}
		result, err := parser.Parse(strings.NewReader(`<div><a href="/x">unclosed<p><a href="/y">`))
		if err != nil {
			t.Fatal(err)
		}
		if len(result.Links()) != 2 {
			t.Errorf("Links() = %v", result.Links())
		}
	})
}

func TestNewParserInvalidURL(t *testing.T) {
	t.Parallel()

	if _, err := NewParser("://bad"); err == nil {
		t.Error("expected error for invalid base URL")
	}
}

func TestSameHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want bool
	}{
		{"example.org", "example.org", true},
		{"www.example.org", "example.org", true},
		{"EXAMPLE.org", "example.ORG", true},
		{"blog.example.org", "example.org", false},
		{"example.com", "example.org", false},
	}
	for _, tt := range tests {
		if got := sameHost(tt.a, tt.b); got != tt.want {
			t.Errorf("sameHost(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
