package model

import "time"

// Sentiment scores a page's text.
type Sentiment struct {
	// Polarity is in [-1, 1]; negative is unfavorable.
	Polarity float64 `json:"polarity"`

	// Subjectivity is in [0, 1]; 0 is factual, 1 is opinion.
	Subjectivity float64 `json:"subjectivity"`
}

// MatchRecord is one line of the match log: evidence that a variation of
// the target name appeared on a page. At most one record is written per page.
type MatchRecord struct {
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url"`
	Variation string    `json:"variation"`
	Context   string    `json:"context"`
	Sentiment Sentiment `json:"sentiment"`
}

// NewMatchRecord creates a record stamped with the UTC time now.
func NewMatchRecord(url, variation, context string, s Sentiment, now time.Time) MatchRecord {
	return MatchRecord{
		Timestamp: now.UTC(),
		URL:       url,
		Variation: variation,
		Context:   context,
		Sentiment: s,
	}
}
