package report

import (
	"cmp"
	"net/url"
	"slices"
	"time"

	"github.com/nao1215/reaper/internal/model"
)

const (
	// TopDomainLimit is the number of domains listed in a summary.
	TopDomainLimit = 10

	// PositiveThreshold and NegativeThreshold split mentions by polarity.
	// Anything in between is neutral.
	PositiveThreshold = 0.1
	NegativeThreshold = -0.1
)

// Count is a key with its number of mentions.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Summary aggregates match records.
type Summary struct {
	GeneratedAt time.Time `json:"generatedAt"`

	// Total is the number of mentions.
	Total int `json:"total"`

	// Skipped counts malformed log lines that were ignored.
	Skipped int `json:"skipped"`

	// TopDomains lists the domains with most mentions, most first.
	TopDomains []Count `json:"topDomains"`

	// Variations lists every matched variation, most first.
	Variations []Count `json:"variations"`

	AveragePolarity float64 `json:"averagePolarity"`
	Positive        int     `json:"positive"`
	Neutral         int     `json:"neutral"`
	Negative        int     `json:"negative"`

	// Mentions are the records in log order.
	Mentions []model.MatchRecord `json:"mentions"`
}

// Summarize builds a summary of records.
func Summarize(records []model.MatchRecord, skipped int, now time.Time) *Summary {
	s := &Summary{
		GeneratedAt: now,
		Total:       len(records),
		Skipped:     skipped,
		Mentions:    records,
	}

	domains := make(map[string]int)
	variations := make(map[string]int)
	var sum float64
	for _, r := range records {
		domains[Domain(r.URL)]++
		variations[r.Variation]++

		p := r.Sentiment.Polarity
		sum += p
		switch {
		case p > PositiveThreshold:
			s.Positive++
		case p < NegativeThreshold:
			s.Negative++
		default:
			s.Neutral++
		}
	}
	if len(records) > 0 {
		s.AveragePolarity = sum / float64(len(records))
	}

	s.TopDomains = ranked(domains)
	if len(s.TopDomains) > TopDomainLimit {
		s.TopDomains = s.TopDomains[:TopDomainLimit]
	}
	s.Variations = ranked(variations)
	return s
}

// ranked sorts counts descending, ties by key.
func ranked(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, n := range m {
		out = append(out, Count{Key: k, Count: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}

// Share returns n as a percentage of the total.
func (s *Summary) Share(n int) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(s.Total)
}

// Limited returns at most limit mentions; a negative limit returns all.
func (s *Summary) Limited(limit int) []model.MatchRecord {
	if limit < 0 || limit >= len(s.Mentions) {
		return s.Mentions
	}
	return s.Mentions[:limit]
}

// Domain returns the host of rawURL, or rawURL if it does not parse.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

// Tone classifies a polarity as positive, negative or neutral.
func Tone(polarity float64) string {
	switch {
	case polarity > PositiveThreshold:
		return "positive"
	case polarity < NegativeThreshold:
		return "negative"
	default:
		return "neutral"
	}
}
