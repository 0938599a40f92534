package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
logging:
  development: false
spider:
  batch_size: 50
  max_items: 1200
  checkpoint_every: 25
  all_delay: 2s
http:
  timeout: 10s
  max_retries: 4
  backoff_base: 250ms
db:
  provider: postgres
  dsn: postgres://spider@localhost/spider
archive:
  provider: local
  base_dir: /tmp/pages
pubsub:
  project_id: proj
  topic: spider-jobs
platforms:
  - slug: chaturbate
    name: Chaturbate
    active: true
    min_delay: 1500ms
    api_url: https://chaturbate.com/api/public/affiliates/onlinerooms/
    account:
      affiliate_id: wm123
      status: active
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Development {
		t.Fatal("expected production logging")
	}
	if cfg.Spider.BatchSize != 50 || cfg.Spider.MaxItems != 1200 || cfg.Spider.CheckpointEvery != 25 {
		t.Fatalf("expected spider overrides to apply: %+v", cfg.Spider)
	}
	if cfg.Spider.AllDelay != 2*time.Second {
		t.Fatalf("expected all_delay 2s, got %v", cfg.Spider.AllDelay)
	}
	if cfg.HTTP.Timeout != 10*time.Second || cfg.HTTP.MaxRetries != 4 || cfg.HTTP.BackoffBase != 250*time.Millisecond {
		t.Fatalf("expected http overrides to apply: %+v", cfg.HTTP)
	}
	if len(cfg.Platforms) != 1 || cfg.Platforms[0].Slug != "chaturbate" {
		t.Fatalf("expected chaturbate to be seeded: %+v", cfg.Platforms)
	}
	p := cfg.Platforms[0]
	if p.MinDelay != 1500*time.Millisecond || p.Account.AffiliateID != "wm123" || !p.Active {
		t.Fatalf("expected platform fields to decode: %+v", p)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Spider.BatchSize != 100 || cfg.Spider.MaxItems != 5000 || cfg.Spider.CheckpointEvery != 10 {
		t.Fatalf("unexpected spider defaults: %+v", cfg.Spider)
	}
	if cfg.HTTP.MaxRetries != 3 || cfg.HTTP.Timeout != 30*time.Second {
		t.Fatalf("unexpected http defaults: %+v", cfg.HTTP)
	}
	if cfg.DB.Provider != "memory" || cfg.Archive.Provider != "none" {
		t.Fatalf("unexpected provider defaults: db=%q archive=%q", cfg.DB.Provider, cfg.Archive.Provider)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SPIDER_SPIDER_MAX_ITEMS", "42")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Spider.MaxItems != 42 {
		t.Fatalf("expected env override 42, got %d", cfg.Spider.MaxItems)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() Config {
		return Config{
			Spider:  SpiderConfig{BatchSize: 100, MaxItems: 5000, CheckpointEvery: 10},
			HTTP:    HTTPConfig{Timeout: time.Second, MaxRetries: 3},
			DB:      DBConfig{Provider: "memory"},
			Archive: ArchiveConfig{Provider: "none"},
		}
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"batch size", func(c *Config) { c.Spider.BatchSize = 0 }, "spider.batch_size"},
		{"max items", func(c *Config) { c.Spider.MaxItems = -1 }, "spider.max_items"},
		{"checkpoint", func(c *Config) { c.Spider.CheckpointEvery = 0 }, "spider.checkpoint_every"},
		{"timeout", func(c *Config) { c.HTTP.Timeout = 0 }, "http.timeout"},
		{"retries", func(c *Config) { c.HTTP.MaxRetries = 0 }, "http.max_retries"},
		{"postgres dsn", func(c *Config) { c.DB.Provider = "postgres" }, "db.dsn"},
		{"db provider", func(c *Config) { c.DB.Provider = "mysql" }, "db.provider"},
		{"local dir", func(c *Config) { c.Archive.Provider = "local" }, "archive.base_dir"},
		{"gcs bucket", func(c *Config) { c.Archive.Provider = "gcs" }, "archive.gcs_bucket"},
		{"archive provider", func(c *Config) { c.Archive.Provider = "s3" }, "archive.provider"},
		{"pubsub project", func(c *Config) { c.PubSub.Topic = "t" }, "pubsub.project_id"},
		{"platform slug", func(c *Config) { c.Platforms = []PlatformConfig{{}} }, "slug"},
		{"platform dup", func(c *Config) {
			c.Platforms = []PlatformConfig{{Slug: "a"}, {Slug: "a"}}
		}, "declared twice"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() error = %v, want substring %q", err, tc.want)
			}
		})
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}
}
