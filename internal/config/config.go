// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	DB        DBConfig        `mapstructure:"db"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Mailer    MailerConfig    `mapstructure:"mailer"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Ops       OpsConfig       `mapstructure:"ops"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DBConfig controls access to the relational database. An empty DSN
// selects the in-memory repository.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// AnthropicConfig configures the discovery oracle.
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int64  `mapstructure:"max_tokens"`
}

// SMTPConfig configures the outbound mail transport.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// CrawlerConfig governs target discovery and page crawling.
type CrawlerConfig struct {
	Industry        string   `mapstructure:"industry"`
	Queries         []string `mapstructure:"queries"`
	QueriesPerSweep int      `mapstructure:"queries_per_sweep"`
	URLsPerQuery    int      `mapstructure:"urls_per_query"`
	PaceSeconds     int      `mapstructure:"pace_seconds"`
	UserAgent       string   `mapstructure:"user_agent"`
	TimeoutSeconds  int      `mapstructure:"timeout_seconds"`
	OwnDomains      []string `mapstructure:"own_domains"`
}

// MailerConfig governs outbound dispatch volume and pacing.
type MailerConfig struct {
	DailyQuota  int `mapstructure:"daily_quota"`
	PaceSeconds int `mapstructure:"pace_seconds"`
}

// ScheduleConfig sets the wall-clock triggers for the two daily runs.
type ScheduleConfig struct {
	Timezone    string `mapstructure:"timezone"`
	CrawlHour   int    `mapstructure:"crawl_hour"`
	CrawlMinute int    `mapstructure:"crawl_minute"`
	SendHour    int    `mapstructure:"send_hour"`
	SendMinute  int    `mapstructure:"send_minute"`
}

// OpsConfig controls the operational HTTP server.
type OpsConfig struct {
	Port int `mapstructure:"port"`
}

// PubSubConfig holds metadata for lifecycle event publishing. An empty
// project ID disables Pub/Sub and events stay in process.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ArchiveConfig selects the snapshot store backend.
type ArchiveConfig struct {
	Provider string `mapstructure:"provider"`
	Dir      string `mapstructure:"dir"`
	Bucket   string `mapstructure:"bucket"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LEADFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("crawler.industry", "運送業")
	v.SetDefault("crawler.queries", []string{
		"運送会社 一覧 関東",
		"運送会社 一覧 関西",
		"運送会社 一覧 中部",
		"トラック運送 中小企業 東京",
		"軽貨物 運送業者 大阪",
		"物流会社 地場 九州",
	})
	v.SetDefault("crawler.queries_per_sweep", 3)
	v.SetDefault("crawler.urls_per_query", 15)
	v.SetDefault("crawler.pace_seconds", 2)
	v.SetDefault("crawler.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("crawler.timeout_seconds", 10)
	v.SetDefault("crawler.own_domains", []string{"logimarket.jp"})
	v.SetDefault("mailer.daily_quota", 300)
	v.SetDefault("mailer.pace_seconds", 3)
	v.SetDefault("schedule.timezone", "Asia/Tokyo")
	v.SetDefault("schedule.crawl_hour", 7)
	v.SetDefault("schedule.crawl_minute", 0)
	v.SetDefault("schedule.send_hour", 10)
	v.SetDefault("schedule.send_minute", 0)
	v.SetDefault("ops.port", 8080)
	v.SetDefault("archive.provider", "off")
	v.SetDefault("archive.dir", "snapshots")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Ops.Port <= 0 {
		return fmt.Errorf("ops.port must be > 0")
	}
	if len(c.Crawler.Queries) == 0 {
		return fmt.Errorf("crawler.queries must not be empty")
	}
	if c.Crawler.QueriesPerSweep <= 0 {
		return fmt.Errorf("crawler.queries_per_sweep must be > 0")
	}
	if c.Crawler.URLsPerQuery <= 0 {
		return fmt.Errorf("crawler.urls_per_query must be > 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Mailer.DailyQuota <= 0 {
		return fmt.Errorf("mailer.daily_quota must be > 0")
	}
	if c.Schedule.CrawlHour < 0 || c.Schedule.CrawlHour > 23 {
		return fmt.Errorf("schedule.crawl_hour must be between 0 and 23")
	}
	if c.Schedule.SendHour < 0 || c.Schedule.SendHour > 23 {
		return fmt.Errorf("schedule.send_hour must be between 0 and 23")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	switch c.Archive.Provider {
	case "off", "memory":
	case "local":
		if c.Archive.Dir == "" {
			return fmt.Errorf("archive.dir must be set when archive.provider is local")
		}
	case "gcs":
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket must be set when archive.provider is gcs")
		}
	default:
		return fmt.Errorf("archive.provider must be one of off, memory, local, gcs")
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return fmt.Errorf("smtp.from must be set when smtp.host is set")
	}
	if c.PubSub.ProjectID != "" && c.PubSub.Topic == "" {
		return fmt.Errorf("pubsub.topic must be set when pubsub.project_id is set")
	}
	return nil
}

// FetchTimeout returns the per-page fetch budget as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

// CrawlPace returns the delay between consecutive page fetches.
func (c Config) CrawlPace() time.Duration {
	return time.Duration(c.Crawler.PaceSeconds) * time.Second
}

// DispatchPace returns the delay between consecutive outbound sends.
func (c Config) DispatchPace() time.Duration {
	return time.Duration(c.Mailer.PaceSeconds) * time.Second
}
