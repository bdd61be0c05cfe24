package analyzer

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// invisible lists elements whose text a reader never sees.
const invisible = "script, style, noscript, template, svg, head"

// ExtractText returns the visible text of an HTML document with all
// whitespace runs collapsed to single spaces. contentType may be empty;
// the encoding is then sniffed from the document.
func ExtractText(raw []byte, contentType string) string {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		r = bytes.NewReader(raw)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return collapse(string(raw))
	}
	doc.Find(invisible).Remove()

	var b strings.Builder
	for _, n := range doc.Nodes {
		collectText(&b, n)
	}
	return collapse(b.String())
}

func collectText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	case html.CommentNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
