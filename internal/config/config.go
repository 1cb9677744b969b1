package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DatabaseURL string
	RedisURL    string

	HTTPBind string
	HTTPPort int

	SoSoValueAPIKey    string
	NewsAPIKey         string
	TwitterBearerToken string

	OpenAIAPIKey string
	OpenAIModel  string

	TelegramBotToken string
	TelegramChatID   int64

	APIKey string

	BackupDir        string
	BackupKeepDays   int
	SyncHourUTC      int
	SnapshotWindow   int
	SentimentBatch   int
	RequestTimeoutMs int
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		SoSoValueAPIKey:    os.Getenv("SOSOVALUE_API_KEY"),
		NewsAPIKey:         os.Getenv("NEWS_API_KEY"),
		TwitterBearerToken: os.Getenv("TWITTER_BEARER_TOKEN"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.SoSoValueAPIKey == "" {
		log.Println("Warning: SOSOVALUE_API_KEY not set, etf flows stage will be skipped")
	}
	if cfg.NewsAPIKey == "" {
		log.Println("Warning: NEWS_API_KEY not set, news stage will be skipped")
	}
	if cfg.TwitterBearerToken == "" {
		log.Println("Warning: TWITTER_BEARER_TOKEN not set, twitter fetch will be skipped")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set, sentiment scoring is lexicon-only")
	}

	cfg.HTTPBind = strings.TrimSpace(os.Getenv("HTTP_BIND"))
	if cfg.HTTPBind == "" {
		cfg.HTTPBind = "0.0.0.0"
	}

	cfg.HTTPPort = 8080
	if v := strings.TrimSpace(os.Getenv("HTTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = n
		} else {
			log.Printf("Warning: invalid TELEGRAM_CHAT_ID=%q, notifications disabled", v)
		}
	}

	cfg.APIKey = strings.TrimSpace(os.Getenv("API_AUTH_KEY"))

	cfg.BackupDir = strings.TrimSpace(os.Getenv("BACKUP_DIR"))
	if cfg.BackupDir == "" {
		cfg.BackupDir = "backups"
	}

	cfg.BackupKeepDays = 30
	if v := strings.TrimSpace(os.Getenv("BACKUP_KEEP_DAYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BackupKeepDays = n
		}
	}

	cfg.SyncHourUTC = 1
	if v := strings.TrimSpace(os.Getenv("SYNC_HOUR_UTC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 23 {
			cfg.SyncHourUTC = n
		}
	}

	cfg.SnapshotWindow = 7
	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_WINDOW_DAYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SnapshotWindow = n
		}
	}

	cfg.SentimentBatch = 24
	if v := strings.TrimSpace(os.Getenv("SENTIMENT_BATCH_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SentimentBatch = n
		}
	}

	cfg.RequestTimeoutMs = 30000
	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeoutMs = n
		}
	}

	return cfg
}

// Validate checks the parts that must exist before a run can start.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if err := os.MkdirAll(c.BackupDir, 0o755); err != nil {
		return fmt.Errorf("create backup directory %s: %w", c.BackupDir, err)
	}
	return nil
}

// Display returns a sanitized view of the config for the status
// endpoint. Secrets are reported only as presence booleans.
func (c *Config) Display() map[string]any {
	return map[string]any{
		"http_bind":            c.HTTPBind,
		"http_port":            c.HTTPPort,
		"backup_dir":           c.BackupDir,
		"backup_keep_days":     c.BackupKeepDays,
		"snapshot_window_days": c.SnapshotWindow,
		"openai_model":         c.OpenAIModel,
		"database_configured":  strings.TrimSpace(c.DatabaseURL) != "",
		"redis_configured":     strings.TrimSpace(c.RedisURL) != "",
		"sosovalue_configured": strings.TrimSpace(c.SoSoValueAPIKey) != "",
		"newsapi_configured":   strings.TrimSpace(c.NewsAPIKey) != "",
		"twitter_configured":   strings.TrimSpace(c.TwitterBearerToken) != "",
		"openai_configured":    strings.TrimSpace(c.OpenAIAPIKey) != "",
		"telegram_configured":  strings.TrimSpace(c.TelegramBotToken) != "" && c.TelegramChatID != 0,
	}
}
