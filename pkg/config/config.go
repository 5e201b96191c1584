package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Uke-Messaging/uke-pallet/pkg/models"
)

const (
	defaultPort           = 8080
	defaultRateRPS        = 1000
	defaultRateBurst      = 1000
	defaultMaxRequestBody = 1 << 20
	defaultKafkaTopic     = "uke.events"
	defaultRedisChannel   = "uke:events"
	defaultPublishTimeout = 5 * time.Second
	defaultEventQueue     = 1024
	defaultSnapshotCron   = "0 3 * * *" // daily at 03:00
	defaultSnapshotKeep   = 7
	defaultSnapshotFloor  = 512 * 1024 * 1024
)

var (
	runtimeMu  sync.RWMutex
	runtimeCfg *RuntimeConfig
)

// SetRuntime sets the global runtime config.
func SetRuntime(rc *RuntimeConfig) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	runtimeCfg = rc
}

func copyKeys(pick func(*RuntimeConfig) map[string]struct{}) map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	out := make(map[string]struct{})
	if runtimeCfg == nil {
		return out
	}
	for k := range pick(runtimeCfg) {
		out[k] = struct{}{}
	}
	return out
}

// GetBackendKeys returns a copy of backend API keys.
func GetBackendKeys() map[string]struct{} {
	return copyKeys(func(rc *RuntimeConfig) map[string]struct{} { return rc.BackendKeys })
}

// GetSigningKeys returns a copy of signing keys.
func GetSigningKeys() map[string]struct{} {
	return copyKeys(func(rc *RuntimeConfig) map[string]struct{} { return rc.SigningKeys })
}

// NewRuntime builds the key sets from the security section. Backend keys
// double as signing keys.
func NewRuntime(c *Config) *RuntimeConfig {
	set := func(list []string) map[string]struct{} {
		m := make(map[string]struct{}, len(list))
		for _, k := range list {
			m[k] = struct{}{}
		}
		return m
	}
	return &RuntimeConfig{
		BackendKeys:  set(c.Security.APIKeys.Backend),
		FrontendKeys: set(c.Security.APIKeys.Frontend),
		AdminKeys:    set(c.Security.APIKeys.Admin),
		SigningKeys:  set(c.Security.APIKeys.Backend),
	}
}

// Addr returns the HTTP server address as host:port.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	port := c.Server.Port
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf("%s:%d", addr, port)
}

// SyncWrites reports whether committed calls are fsynced; on by default.
func (c *Config) SyncWrites() bool {
	return c.Server.SyncWrites == nil || *c.Server.SyncWrites
}

// LoadConfigFile reads and parses a config file.
func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyDefaults fills in every unset value. dbPath is the resolved database
// location, used to place snapshots.
func (c *Config) ApplyDefaults(dbPath string) {
	def := models.DefaultLimits()
	l := &c.Ledger
	if l.MaxUsernameLength == 0 {
		l.MaxUsernameLength = def.MaxUsernameLength
	}
	if l.MaxConvoIdLength == 0 {
		l.MaxConvoIdLength = def.MaxConvoIdLength
	}
	if l.MaxMessageAmount == 0 {
		l.MaxMessageAmount = def.MaxMessageAmount
	}
	if l.MaxActiveConversationAmount == 0 {
		l.MaxActiveConversationAmount = def.MaxActiveConversationAmount
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Server.MaxRequestBody == 0 {
		c.Server.MaxRequestBody = SizeBytes(defaultMaxRequestBody)
	}
	if c.Security.RateLimit.RPS <= 0 {
		c.Security.RateLimit.RPS = defaultRateRPS
	}
	if c.Security.RateLimit.Burst <= 0 {
		c.Security.RateLimit.Burst = defaultRateBurst
	}

	if c.Events.Kafka.Topic == "" {
		c.Events.Kafka.Topic = defaultKafkaTopic
	}
	if c.Events.Redis.Channel == "" {
		c.Events.Redis.Channel = defaultRedisChannel
	}
	if c.Events.PublishTimeout == 0 {
		c.Events.PublishTimeout = Duration(defaultPublishTimeout)
	}
	if c.Events.QueueSize <= 0 {
		c.Events.QueueSize = defaultEventQueue
	}

	if c.Snapshot.Cron == "" {
		c.Snapshot.Cron = defaultSnapshotCron
	}
	if c.Snapshot.Keep <= 0 {
		c.Snapshot.Keep = defaultSnapshotKeep
	}
	if c.Snapshot.MinFreeBytes == 0 {
		c.Snapshot.MinFreeBytes = SizeBytes(defaultSnapshotFloor)
	}
	if c.Snapshot.Dir == "" && dbPath != "" {
		c.Snapshot.Dir = filepath.Join(dbPath, "snapshots")
	}
}

// ResolveConfigPath returns the config file path, preferring flag, then env.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("UKE_CONFIG"); p != "" {
		return p
	}
	return flagPath
}
