package domain

import "time"

// TrackedAssets lists the crypto symbols the pipeline ingests.
var TrackedAssets = []string{"BTC", "ETH"}

// CoinGeckoID maps internal symbols to CoinGecko API identifiers.
var CoinGeckoID = map[string]string{
	"BTC": "bitcoin",
	"ETH": "ethereum",
}

// CoinGeckoIDToSymbol is the reverse mapping.
var CoinGeckoIDToSymbol map[string]string

func init() {
	CoinGeckoIDToSymbol = make(map[string]string, len(CoinGeckoID))
	for sym, id := range CoinGeckoID {
		CoinGeckoIDToSymbol[id] = sym
	}
}

// BinanceSymbol maps internal symbols to Binance perpetual contracts.
var BinanceSymbol = map[string]string{
	"BTC": "BTCUSDT",
	"ETH": "ETHUSDT",
}

// CryptoSubreddits are the subreddits polled for social sentiment.
var CryptoSubreddits = []string{"CryptoCurrency", "Bitcoin", "ethereum"}

// SearchKeywords are the terms tracked for search interest.
var SearchKeywords = []string{"bitcoin", "ethereum", "cryptocurrency"}

const (
	SessionAsia   = "ASIA"
	SessionEurope = "EUROPE"
	SessionUS     = "US"
)

// ClassifySession tags a UTC hour with its dominant trading session.
func ClassifySession(hourUTC int) string {
	switch {
	case hourUTC >= 0 && hourUTC < 8:
		return SessionAsia
	case hourUTC >= 8 && hourUTC < 16:
		return SessionEurope
	default:
		return SessionUS
	}
}

// DayOf truncates a timestamp to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateString renders a day as YYYY-MM-DD.
func DateString(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// SameDay reports whether two timestamps fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return DayOf(a).Equal(DayOf(b))
}
