package aggregate

import (
	"sort"
	"strings"
	"time"

	"market-intel/internal/domain"
	"market-intel/internal/sentiment"
)

// PlatformKey groups posts for daily aggregation: reddit posts roll up
// per subreddit, everything else per platform.
func PlatformKey(p domain.SocialPost) string {
	if p.Platform == "reddit" && p.Subreddit != nil && *p.Subreddit != "" {
		return "reddit_" + strings.ToLower(*p.Subreddit)
	}
	return strings.ToLower(p.Platform)
}

// BuildSocialSentimentDailies recomputes the per-platform daily rows
// for one calendar day from its raw posts. Posts outside the day are
// ignored. Output order is deterministic (sorted by platform key).
func BuildSocialSentimentDailies(date time.Time, posts []domain.SocialPost) []domain.SocialSentimentDaily {
	day := domain.DayOf(date)
	byPlatform := make(map[string][]domain.SocialPost)
	for _, p := range posts {
		if !domain.SameDay(p.CreatedUTC, day) {
			continue
		}
		key := PlatformKey(p)
		byPlatform[key] = append(byPlatform[key], p)
	}

	keys := make([]string, 0, len(byPlatform))
	for k := range byPlatform {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.SocialSentimentDaily, 0, len(keys))
	for _, key := range keys {
		group := byPlatform[key]

		var compounds []float64
		var positive, negative int
		var engagementSum float64
		texts := make([]string, 0, len(group))
		for _, p := range group {
			compounds = append(compounds, p.SentimentCompound)
			switch p.SentimentLabel {
			case sentiment.LabelPositive:
				positive++
			case sentiment.LabelNegative:
				negative++
			}
			texts = append(texts, p.Title+" "+p.Body)

			engagementSum += EngagementScore(p.Score, p.NumComments, p.Shares, estimatedViews(p))
		}

		source := "REDDIT"
		if !strings.HasPrefix(key, "reddit") {
			source = strings.ToUpper(key)
		}
		out = append(out, domain.SocialSentimentDaily{
			AsOfDate:         day,
			Platform:         key,
			MentionsCount:    len(group),
			SentimentScore:   mean(compounds),
			PositiveMentions: positive,
			NegativeMentions: negative,
			NeutralMentions:  len(group) - positive - negative,
			EngagementScore:  round2(engagementSum / float64(len(group))),
			TopKeywords:      strings.Join(ExtractKeywords(texts, 10), ","),
			Source:           source,
		})
	}
	return out
}

// estimatedViews stands in for view counts that no platform reports:
// twitter posts use retweets+likes+replies, everything else score*10.
func estimatedViews(p domain.SocialPost) int {
	if p.Platform == "twitter" {
		return p.Shares + p.Score + p.NumComments
	}
	return p.Score * 10
}
