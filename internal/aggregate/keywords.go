package aggregate

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	urlPattern     = regexp.MustCompile(`http\S+|www\S+|https\S+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
	hashtagPattern = regexp.MustCompile(`#\w+`)
	wordPattern    = regexp.MustCompile(`\b[a-z]{4,}\b`)
)

var stopWords = map[string]bool{
	"that": true, "this": true, "with": true, "from": true, "have": true,
	"been": true, "will": true, "your": true, "more": true, "about": true,
	"what": true, "when": true, "there": true, "their": true, "which": true,
	"they": true, "would": true, "could": true, "should": true, "just": true,
	"like": true, "than": true, "into": true, "very": true, "also": true,
	"some": true, "other": true, "only": true,
}

// ExtractKeywords returns the topN most frequent non-stop words across
// the texts. URLs, mentions, and hashtags are stripped first; only
// lowercase alphabetic words of length >= 4 count. Ties keep first-seen
// order so the result is deterministic.
func ExtractKeywords(texts []string, topN int) []string {
	combined := strings.ToLower(strings.Join(texts, " "))
	combined = urlPattern.ReplaceAllString(combined, "")
	combined = mentionPattern.ReplaceAllString(combined, "")
	combined = hashtagPattern.ReplaceAllString(combined, "")

	counts := make(map[string]int)
	order := make(map[string]int)
	for _, w := range wordPattern.FindAllString(combined, -1) {
		if stopWords[w] {
			continue
		}
		if _, seen := counts[w]; !seen {
			order[w] = len(order)
		}
		counts[w]++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return order[words[i]] < order[words[j]]
	})

	if len(words) > topN {
		words = words[:topN]
	}
	return words
}

// EngagementScore rates one social item on a 0-100 log scale from its
// weighted interaction rate: (upvotes + 2*comments + 3*shares) / views.
// Views are floored at 1.
func EngagementScore(upvotes, comments, shares, views int) float64 {
	if views < 1 {
		views = 1
	}
	rate := (float64(upvotes) + float64(comments)*2 + float64(shares)*3) / float64(views)
	if rate < 0 {
		rate = 0
	}
	score := math.Min(100, math.Log1p(rate*1000)*10)
	return round2(score)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
