// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ReplyRule overrides the built-in reply table when configured.
type ReplyRule struct {
	Any      []string `yaml:"any"`
	Response string   `yaml:"response"`
}

type StoreConfig struct {
	Driver            string        `yaml:"driver"` // mysql | postgres | sqlite
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	User              string        `yaml:"user"`
	Password          string        `yaml:"password,omitempty"`
	Catalog           string        `yaml:"database"`
	Path              string        `yaml:"path"` // sqlite only
	SSLMode           string        `yaml:"sslmode"`
	PoolSize          int           `yaml:"connection_limit"`
	AutoCreateCatalog bool          `yaml:"auto_create_database"`
	QueryTimeout      time.Duration `yaml:"query_timeout"`
	ConnMaxLifetime   time.Duration `yaml:"conn_max_lifetime"`
}

type EmailConfig struct {
	Address      string        `yaml:"address"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password,omitempty"`
	FromName     string        `yaml:"from_name"`
	IMAPHost     string        `yaml:"imap_host"`
	IMAPPort     int           `yaml:"imap_port"`
	Mailbox      string        `yaml:"mailbox"`
	MaxMessages  int           `yaml:"max_messages"`
	SMTPHost     string        `yaml:"smtp_host"`
	SMTPPort     int           `yaml:"smtp_port"`
	Timeout      time.Duration `yaml:"timeout"`
	KeyringLabel string        `yaml:"keyring_account"`
}

type BlueskyConfig struct {
	Service           string        `yaml:"service"`
	Identifier        string        `yaml:"identifier"`
	Password          string        `yaml:"password,omitempty"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

type Config struct {
	Agent struct {
		DataDir     string        `yaml:"data_dir"`
		SendReplies bool          `yaml:"send_replies"`
		Interval    time.Duration `yaml:"interval"`
		CreatedBy   string        `yaml:"created_by"`
	} `yaml:"agent"`

	Store   StoreConfig   `yaml:"store"`
	Email   EmailConfig   `yaml:"email"`
	Bluesky BlueskyConfig `yaml:"bluesky"`

	Replies struct {
		Rules []ReplyRule `yaml:"rules"`
	} `yaml:"replies"`

	Metrics struct {
		PushgatewayURL string `yaml:"pushgateway_url"`
		Job            string `yaml:"job"`
	} `yaml:"metrics"`

	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the built-in settings before any file or environment is applied.
func Default() Config {
	var cfg Config
	cfg.Agent.DataDir = "."
	cfg.Agent.Interval = time.Hour
	cfg.Agent.CreatedBy = "autonomous"

	cfg.Store.Driver = "mysql"
	cfg.Store.Catalog = "a1j7no"
	cfg.Store.PoolSize = 10
	cfg.Store.AutoCreateCatalog = true
	cfg.Store.QueryTimeout = 10 * time.Second
	cfg.Store.ConnMaxLifetime = 5 * time.Minute

	cfg.Email.IMAPPort = 993
	cfg.Email.SMTPPort = 465
	cfg.Email.Mailbox = "INBOX"
	cfg.Email.MaxMessages = 50
	cfg.Email.FromName = "Autonomous A1"
	cfg.Email.Timeout = 2 * time.Minute

	cfg.Bluesky.Service = "https://bsky.social"
	cfg.Bluesky.Timeout = 15 * time.Second
	cfg.Bluesky.RequestsPerSecond = 1
	cfg.Bluesky.Burst = 3

	cfg.Metrics.Job = "autonomous_agent"
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}

// LoadFile overlays a YAML file on top of cfg. A missing file is not an error
// unless required is set.
func LoadFile(cfg *Config, path string, required bool) error {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Load builds the effective configuration: defaults, then the YAML file, then
// .env files, then the process environment.
func Load(path string, required bool) (Config, Validation, error) {
	cfg := Default()
	if err := LoadFile(&cfg, path, required); err != nil {
		return cfg, Validation{}, err
	}
	if err := LoadDotEnv(); err != nil {
		return cfg, Validation{}, err
	}
	ApplyEnv(&cfg)

	out, res := NormalizeAndValidate(cfg)
	if !res.OK() {
		return out, res, res.Err()
	}
	return out, res, nil
}
