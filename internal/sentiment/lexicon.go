package sentiment

import (
	"math"
	"strings"
)

// Score is the sentiment tuple attached to a piece of text.
type Score struct {
	Compound   float64
	Positive   float64
	Negative   float64
	Neutral    float64
	Label      string
	Confidence float64
}

const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
)

// Classify maps a compound score to a label. Thresholds follow the
// standard VADER convention: >= +0.05 positive, <= -0.05 negative.
func Classify(compound float64) string {
	switch {
	case compound >= 0.05:
		return LabelPositive
	case compound <= -0.05:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// lexicon maps sentiment-bearing tokens to valence in [-4, 4],
// VADER-style. Crypto-specific slang included.
var lexicon = map[string]float64{
	"good": 1.9, "great": 3.1, "excellent": 2.7, "amazing": 2.8,
	"bullish": 2.4, "bull": 1.5, "moon": 2.2, "mooning": 2.6,
	"pump": 1.4, "rally": 1.8, "surge": 1.9, "soar": 2.0,
	"gain": 1.6, "gains": 1.6, "profit": 1.9, "win": 2.1,
	"breakout": 1.7, "adoption": 1.5, "growth": 1.7, "strong": 1.6,
	"up": 0.9, "rise": 1.2, "rising": 1.2, "recover": 1.3,
	"recovery": 1.3, "buy": 1.0, "accumulate": 1.1, "hodl": 1.0,
	"optimistic": 1.8, "support": 0.8, "upgrade": 1.4, "approve": 1.5,
	"approved": 1.5, "success": 2.0, "love": 2.5, "best": 2.9,

	"bad": -2.0, "terrible": -2.8, "awful": -2.7, "horrible": -2.9,
	"bearish": -2.4, "bear": -1.5, "dump": -1.9, "dumping": -2.1,
	"crash": -2.7, "crashed": -2.7, "plunge": -2.3, "plummet": -2.4,
	"loss": -1.9, "losses": -1.9, "lose": -1.8, "drop": -1.3,
	"fall": -1.3, "falling": -1.4, "down": -0.9, "decline": -1.4,
	"sell": -1.0, "selloff": -1.8, "panic": -2.3, "fear": -1.9,
	"scam": -3.0, "fraud": -3.1, "hack": -2.6, "hacked": -2.8,
	"exploit": -2.3, "lawsuit": -1.9, "ban": -2.0, "banned": -2.1,
	"liquidation": -1.8, "liquidated": -1.9, "bubble": -1.4,
	"risk": -1.0, "risky": -1.3, "weak": -1.4, "worst": -3.0,
	"warning": -1.3, "fud": -1.6, "rekt": -2.5, "collapse": -2.6,
}

// negators flip the valence of the following lexicon token.
var negators = map[string]bool{
	"not": true, "no": true, "never": true, "isnt": true, "wasnt": true,
	"dont": true, "doesnt": true, "didnt": true, "cant": true,
	"wont": true, "without": true, "neither": true,
}

// LexiconScorer scores text with a fixed keyword lexicon. Deterministic
// and dependency-free; used as the baseline for every item and as the
// fallback when no LLM backend is configured.
type LexiconScorer struct{}

func NewLexiconScorer() *LexiconScorer { return &LexiconScorer{} }

// Score computes the sentiment tuple for one text. Empty or
// whitespace-only text yields {0, neutral, low confidence} so repeated
// runs over the same rows never drift.
func (s *LexiconScorer) Score(text string) Score {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return Score{Neutral: 1, Label: LabelNeutral, Confidence: 0.25}
	}

	var sum, posSum, negSum float64
	var neuCount int
	negated := false
	for _, tok := range tokens {
		if negators[tok] {
			negated = true
			continue
		}
		v, ok := lexicon[tok]
		if !ok {
			neuCount++
			negated = false
			continue
		}
		if negated {
			v = -v * 0.74
			negated = false
		}
		sum += v
		if v > 0 {
			posSum += v
		} else {
			negSum += -v
		}
	}

	// VADER normalization: compound = sum / sqrt(sum^2 + alpha).
	compound := sum / math.Sqrt(sum*sum+15)

	total := posSum + negSum + float64(neuCount)
	var pos, neg, neu float64
	if total > 0 {
		pos = posSum / total
		neg = negSum / total
		neu = float64(neuCount) / total
	} else {
		neu = 1
	}

	confidence := clamp(0.35+0.5*math.Abs(compound), 0.25, 0.85)
	return Score{
		Compound:   round4(compound),
		Positive:   round4(pos),
		Negative:   round4(neg),
		Neutral:    round4(neu),
		Label:      Classify(compound),
		Confidence: round4(confidence),
	}
}

func tokenize(text string) []string {
	text = strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '\'':
			// drop apostrophes so "isn't" matches "isnt"
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
