// Package config loads and validates spider configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Logging   LoggingConfig    `mapstructure:"logging"`
	Spider    SpiderConfig     `mapstructure:"spider"`
	HTTP      HTTPConfig       `mapstructure:"http"`
	DB        DBConfig         `mapstructure:"db"`
	Archive   ArchiveConfig    `mapstructure:"archive"`
	PubSub    PubSubConfig     `mapstructure:"pubsub"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
	Server    ServerConfig     `mapstructure:"server"`
	Platforms []PlatformConfig `mapstructure:"platforms"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// SpiderConfig governs the fetch/normalize/persist loop.
type SpiderConfig struct {
	BatchSize       int           `mapstructure:"batch_size"`
	MaxItems        int           `mapstructure:"max_items"`
	CheckpointEvery int           `mapstructure:"checkpoint_every"`
	AllDelay        time.Duration `mapstructure:"all_delay"`
	JobType         string        `mapstructure:"job_type"`
}

// HTTPConfig configures HTTP client retry behavior.
type HTTPConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	UserAgent   string        `mapstructure:"user_agent"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ArchiveConfig selects where raw page bodies are archived.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for completion notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig points batch runs at a Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	JobName        string `mapstructure:"job_name"`
}

// ServerConfig controls the ledger API server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// PlatformConfig seeds the in-memory directory used by the memory provider.
type PlatformConfig struct {
	Slug         string        `mapstructure:"slug"`
	Name         string        `mapstructure:"name"`
	Active       bool          `mapstructure:"active"`
	MinDelay     time.Duration `mapstructure:"min_delay"`
	APIURL       string        `mapstructure:"api_url"`
	AffiliateURL string        `mapstructure:"affiliate_url"`
	Account      AccountConfig `mapstructure:"account"`
}

// AccountConfig is the affiliate account attached to a seeded platform.
type AccountConfig struct {
	AffiliateID string `mapstructure:"affiliate_id"`
	APIKey      string `mapstructure:"api_key"`
	Status      string `mapstructure:"status"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SPIDER")
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
	v.SetDefault("spider.batch_size", 100)
	v.SetDefault("spider.max_items", 5000)
	v.SetDefault("spider.checkpoint_every", 10)
	v.SetDefault("spider.all_delay", "5s")
	v.SetDefault("spider.job_type", "full_sync")
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_base", "1s")
	v.SetDefault("http.user_agent", "performer-spider/1.0")
	v.SetDefault("db.provider", "memory")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("archive.provider", "none")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("metrics.job_name", "performer_spider")
	v.SetDefault("server.port", 8080)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Spider.BatchSize <= 0 {
		return fmt.Errorf("spider.batch_size must be > 0")
	}
	if c.Spider.MaxItems <= 0 {
		return fmt.Errorf("spider.max_items must be > 0")
	}
	if c.Spider.CheckpointEvery <= 0 {
		return fmt.Errorf("spider.checkpoint_every must be > 0")
	}
	if c.Spider.AllDelay < 0 {
		return fmt.Errorf("spider.all_delay must be >= 0")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.HTTP.MaxRetries <= 0 {
		return fmt.Errorf("http.max_retries must be > 0")
	}
	switch c.DB.Provider {
	case "memory":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.provider is postgres")
		}
	default:
		return fmt.Errorf("unknown db.provider %q", c.DB.Provider)
	}
	switch c.Archive.Provider {
	case "none", "memory":
	case "local":
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir must be set when archive.provider is local")
		}
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set when archive.provider is gcs")
		}
	default:
		return fmt.Errorf("unknown archive.provider %q", c.Archive.Provider)
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic is set")
	}
	seen := make(map[string]bool, len(c.Platforms))
	for _, p := range c.Platforms {
		if p.Slug == "" {
			return fmt.Errorf("platforms[].slug is required")
		}
		if seen[p.Slug] {
			return fmt.Errorf("platform %q declared twice", p.Slug)
		}
		seen[p.Slug] = true
	}
	return nil
}
