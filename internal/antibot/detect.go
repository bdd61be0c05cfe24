package antibot

import "strings"

// markers are lowercase phrases that show up on challenge pages.
var markers = []string{
	"captcha",
	"cloudflare",
	"human verification",
	"robot",
	"automated",
	"bot check",
	"security check",
	"prove you're human",
	"ddos protection",
	"verify you are human",
	"checking your browser",
}

// Detect reports whether text looks like a bot challenge.
func Detect(text string) bool {
	_, ok := Marker(text)
	return ok
}

// Marker returns the first challenge phrase found in text.
func Marker(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return m, true
		}
	}
	return "", false
}
