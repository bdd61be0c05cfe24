package analyzer

import (
	"strings"
	"unicode"

	"github.com/nao1215/reaper/internal/model"
)

type lexEntry struct {
	polarity     float64
	subjectivity float64
}

// lexicon holds common English opinion words.
var lexicon = map[string]lexEntry{
	"good": {0.7, 0.6}, "great": {0.8, 0.75}, "excellent": {1, 1}, "amazing": {0.6, 0.9},
	"wonderful": {1, 1}, "best": {1, 0.3}, "better": {0.5, 0.5}, "brilliant": {0.9, 1},
	"outstanding": {0.5, 0.6}, "positive": {0.23, 0.54}, "success": {0.3, 0.3},
	"successful": {0.75, 0.95}, "respected": {0.6, 0.6}, "honest": {0.6, 0.9},
	"innovative": {0.5, 0.7}, "talented": {0.7, 0.8}, "praised": {0.5, 0.5},
	"award": {0.3, 0.3}, "won": {0.4, 0.4}, "happy": {0.8, 1}, "love": {0.5, 0.6},
	"nice": {0.6, 1}, "helpful": {0.5, 0.5}, "impressive": {1, 1}, "reliable": {0.5, 0.5},
	"leading": {0.3, 0.4}, "trusted": {0.5, 0.6}, "strong": {0.43, 0.73}, "fair": {0.7, 0.9},
	"generous": {0.6, 0.7}, "kind": {0.6, 0.9}, "exceptional": {0.67, 0.67},
	"bad": {-0.7, 0.67}, "worst": {-1, 1}, "worse": {-0.4, 0.6}, "terrible": {-1, 1},
	"awful": {-1, 1}, "poor": {-0.4, 0.6}, "negative": {-0.3, 0.4}, "fraud": {-0.8, 0.8},
	"scam": {-0.9, 0.9}, "corrupt": {-0.8, 0.8}, "corruption": {-0.7, 0.7},
	"arrested": {-0.6, 0.4}, "charged": {-0.4, 0.3}, "guilty": {-0.5, 0.6},
	"lawsuit": {-0.4, 0.3}, "scandal": {-0.7, 0.7}, "failed": {-0.5, 0.3},
	"failure": {-0.5, 0.4}, "dishonest": {-0.8, 0.9}, "criminal": {-0.7, 0.6},
	"illegal": {-0.5, 0.5}, "hate": {-0.8, 0.9}, "angry": {-0.5, 1}, "sad": {-0.5, 1},
	"wrong": {-0.5, 0.9}, "controversial": {-0.3, 0.7}, "accused": {-0.5, 0.5},
	"allegations": {-0.4, 0.5}, "misconduct": {-0.6, 0.6}, "disgraced": {-0.8, 0.8},
	"harmful": {-0.6, 0.7}, "dangerous": {-0.6, 0.9}, "weak": {-0.38, 0.63},
	"unfair": {-0.5, 0.9}, "stupid": {-0.8, 1}, "horrible": {-1, 1}, "disappointing": {-0.6, 0.7},
	"important": {0.4, 1}, "interesting": {0.5, 0.5}, "famous": {0.5, 1}, "popular": {0.6, 0.8},
	"new": {0.14, 0.45}, "old": {0.1, 0.2}, "big": {0, 0.1}, "real": {0.2, 0.3},
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "without": true, "hardly": true,
	"isn't": true, "wasn't": true, "aren't": true, "don't": true, "doesn't": true,
	"didn't": true, "won't": true, "can't": true, "cannot": true, "nor": true,
}

var intensifiers = map[string]float64{
	"very": 1.3, "extremely": 1.5, "really": 1.3, "so": 1.2, "highly": 1.4,
	"quite": 1.1, "totally": 1.4, "incredibly": 1.5, "absolutely": 1.5,
	"most": 1.3, "too": 1.2, "slightly": 0.6, "somewhat": 0.7,
}

// negationFactor scales a negated word; "not great" is mildly negative,
// not the opposite of great.
const negationFactor = -0.5

// Sentiment scores text with a small opinion lexicon. Polarity is the mean
// of the scored words after negation and intensifiers, in [-1, 1];
// subjectivity is their mean subjectivity, in [0, 1]. Text without opinion
// words scores zero on both.
func Sentiment(text string) model.Sentiment {
	words := tokenize(text)
	var pol, subj float64
	var n int
	for i, w := range words {
		e, ok := lexicon[w]
		if !ok {
			continue
		}
		p, s := e.polarity, e.subjectivity
		if i > 0 {
			if f, ok := intensifiers[words[i-1]]; ok {
				p, s = p*f, s*f
			}
		}
		for j := max(0, i-3); j < i; j++ {
			if negations[words[j]] {
				p *= negationFactor
				break
			}
		}
		pol += clamp(p, -1, 1)
		subj += clamp(s, 0, 1)
		n++
	}
	if n == 0 {
		return model.Sentiment{}
	}
	return model.Sentiment{
		Polarity:     clamp(pol/float64(n), -1, 1),
		Subjectivity: clamp(subj/float64(n), 0, 1),
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
