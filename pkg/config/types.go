package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/Uke-Messaging/uke-pallet/pkg/models"
)

// RuntimeConfig holds runtime key sets for use by other packages.
type RuntimeConfig struct {
	BackendKeys  map[string]struct{}
	FrontendKeys map[string]struct{}
	AdminKeys    map[string]struct{}
	SigningKeys  map[string]struct{}
}

// Config is the main configuration struct.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
	Ledger   models.Limits  `yaml:"ledger"`
	Events   EventsConfig   `yaml:"events"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// ServerConfig holds http, tls and storage settings.
type ServerConfig struct {
	Address    string    `yaml:"address"`
	Port       int       `yaml:"port"`
	DBPath     string    `yaml:"db_path"`
	SyncWrites *bool     `yaml:"sync_writes"`
	TLS        TLSConfig `yaml:"tls"`
	// MaxRequestBody caps the size of a request body, e.g. "1MB".
	MaxRequestBody SizeBytes `yaml:"max_request_body"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// SecurityConfig holds security related settings.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	IPWhitelist []string `yaml:"ip_whitelist"`
	APIKeys     struct {
		Backend  []string `yaml:"backend"`
		Frontend []string `yaml:"frontend"`
		Admin    []string `yaml:"admin"`
	} `yaml:"api_keys"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
	// Sink is empty for stdout or "file:<path>".
	Sink string `yaml:"sink"`
}

// EventsConfig selects where notifications are delivered.
type EventsConfig struct {
	Log     bool        `yaml:"log"`
	Metrics bool        `yaml:"metrics"`
	Kafka   KafkaConfig `yaml:"kafka"`
	Redis   RedisConfig `yaml:"redis"`
	// PublishTimeout bounds delivery of one call's events.
	PublishTimeout Duration `yaml:"publish_timeout"`
	// QueueSize is how many committed calls' events may wait for delivery.
	QueueSize int `yaml:"queue_size"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// SnapshotConfig holds configuration for the checkpoint runner.
type SnapshotConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
	Dir     string `yaml:"dir"`
	Keep    int    `yaml:"keep"`
	// MinFreeBytes skips a run when the target filesystem has less free space.
	MinFreeBytes SizeBytes `yaml:"min_free_bytes"`
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly strings like "64MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	v, err := parseSize(node.Value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s SizeBytes) Int64() int64 { return int64(s) }

func (s SizeBytes) String() string { return humanize.IBytes(uint64(s)) }

func parseSize(raw string) (SizeBytes, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		return SizeBytes(v), nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return SizeBytes(i), nil
	}
	return 0, fmt.Errorf("invalid size value: %q", raw)
}

// Duration is a wrapper around time.Duration that supports YAML parsing from strings like "100ms" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	v, err := parseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func parseDuration(raw string) (Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		return Duration(td), nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Duration(time.Duration(f * float64(time.Second))), nil
	}
	return 0, fmt.Errorf("invalid duration value: %q", raw)
}
