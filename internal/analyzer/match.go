package analyzer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Match is the first hit of a variation in a text.
type Match struct {
	Variation string

	// Start and End are byte offsets of the matched text.
	Start int
	End   int
}

// Matcher searches for name variations in a fixed order.
type Matcher struct {
	variations []string
	patterns   []pattern
}

// pattern is one compiled variation. Edges that are word characters must
// sit on a word boundary in the searched text.
type pattern struct {
	re         *regexp.Regexp
	boundLeft  bool
	boundRight bool
}

// NewMatcher compiles one case-insensitive whole-word pattern per
// variation. Empty variations are skipped.
func NewMatcher(variations []string) *Matcher {
	m := &Matcher{}
	for _, v := range variations {
		if strings.TrimSpace(v) == "" {
			continue
		}
		first, _ := utf8.DecodeRuneInString(v)
		last, _ := utf8.DecodeLastRuneInString(v)
		m.variations = append(m.variations, v)
		m.patterns = append(m.patterns, pattern{
			re:         regexp.MustCompile("(?i)" + regexp.QuoteMeta(v)),
			boundLeft:  isWord(first),
			boundRight: isWord(last),
		})
	}
	return m
}

// isWord reports whether r can continue a word in any script. Combining
// marks count so that decomposed accents stay inside the word.
// RE2's \b only knows ASCII, so boundaries are checked by hand.
func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// find returns the first occurrence of p in text that does not continue a
// word on either side. A punctuation edge never needs a boundary.
func (p pattern) find(text string) []int {
	for off := 0; off <= len(text); {
		loc := p.re.FindStringIndex(text[off:])
		if loc == nil {
			return nil
		}
		start, end := off+loc[0], off+loc[1]
		if p.bounded(text, start, end) {
			return []int{start, end}
		}
		// retry one rune further so overlapping candidates are not skipped
		_, size := utf8.DecodeRuneInString(text[start:])
		off = start + max(size, 1)
	}
	return nil
}

func (p pattern) bounded(text string, start, end int) bool {
	if p.boundLeft && start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWord(r) {
			return false
		}
	}
	if p.boundRight && end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isWord(r) {
			return false
		}
	}
	return true
}

// Find returns the first variation, in order, that occurs in text.
func (m *Matcher) Find(text string) (Match, bool) {
	for i, p := range m.patterns {
		if loc := p.find(text); loc != nil {
			return Match{Variation: m.variations[i], Start: loc[0], End: loc[1]}, true
		}
	}
	return Match{}, false
}

// Variations returns the searched variations in order.
func (m *Matcher) Variations() []string {
	return append([]string(nil), m.variations...)
}

// ContextWindow returns text[max(0,m-radius) : min(len, m+length+radius)]
// measured in runes, with line breaks removed. Out-of-range input is
// clamped.
func ContextWindow(text string, m, length, radius int) string {
	runes := []rune(text)
	m = min(max(m, 0), len(runes))
	radius = max(radius, 0)
	lo := max(0, m-radius)
	hi := min(len(runes), m+max(length, 0)+radius)
	w := string(runes[lo:hi])
	return strings.NewReplacer("\r", "", "\n", "").Replace(w)
}

// runeOffsets converts a byte match to rune offset and rune length.
func runeOffsets(text string, mt Match) (int, int) {
	return utf8.RuneCountInString(text[:mt.Start]), utf8.RuneCountInString(text[mt.Start:mt.End])
}
