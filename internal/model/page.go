package model

import "time"

// Page is a successfully fetched document on its way through the
// per-page pipeline.
type Page struct {
	// URL is the normalized frontier URL the page was fetched for.
	URL string

	// Raw is the fetched content: the response body for HTTP strategies or
	// the serialized DOM for rendering strategies.
	Raw []byte

	// Strategy names the fetch strategy that succeeded.
	Strategy string

	// Attempts is the number of fetch attempts it took.
	Attempts int

	// FetchedAt is the capture time.
	FetchedAt time.Time

	// Text is the visible text, filled in by the analyze step.
	Text string

	// Links are discovered absolute links, same-host first.
	Links []string

	// Match is set by the analyze step when a variation was found.
	Match *MatchRecord
}
