package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
)

const envPrefix = "UKE_"

// holds parsed command-line flag values and which were set
type Flags struct {
	Addr   string
	DB     string
	Config string
	Set    map[string]bool
}

// holds the result of LoadEffectiveConfig
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string // layers that contributed, e.g. "config+env"
}

// parses command-line flags; only the listen address, database path and
// config path can be given this way
func ParseConfigFlags(args []string) (Flags, error) {
	fsFlags := flag.NewFlagSet("uke", flag.ContinueOnError)
	addrPtr := fsFlags.String("addr", ":8080", "HTTP listen address")
	dbPtr := fsFlags.String("db", "./.database", "Pebble DB path")
	cfgPtr := fsFlags.String("config", "./config.yaml", "Path to config file")
	if err := fsFlags.Parse(args); err != nil {
		return Flags{}, err
	}

	setFlags := make(map[string]bool)
	fsFlags.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, Set: setFlags}, nil
}

// loads config from file, returns config, found bool, and error
func ParseConfigFile(flags Flags) (*Config, bool, error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := LoadConfigFile(cfgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if flags.Set["config"] {
				return nil, false, fmt.Errorf("config file %s not found", cfgPath)
			}
			return &Config{}, false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

// ApplyEnv overrides cfg with every UKE_* variable that is set and reports
// whether any was.
func ApplyEnv(cfg *Config) (bool, error) {
	used := false
	get := func(name string) (string, bool) {
		v, ok := os.LookupEnv(envPrefix + name)
		v = strings.TrimSpace(v)
		if ok && v != "" {
			used = true
			return v, true
		}
		return "", false
	}

	var errs []error
	setInt := func(name string, dst *int) {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	setString := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}
	setList := func(name string, dst *[]string) {
		if v, ok := get(name); ok {
			*dst = parseList(v)
		}
	}
	setBool := func(name string, dst *bool) {
		if v, ok := get(name); ok {
			*dst = parseBool(v)
		}
	}

	if v, ok := get("ADDR"); ok {
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	}
	setInt("SERVER_PORT", &cfg.Server.Port)
	setString("DB_PATH", &cfg.Server.DBPath)
	if v, ok := get("SYNC_WRITES"); ok {
		b := parseBool(v)
		cfg.Server.SyncWrites = &b
	}
	setString("TLS_CERT", &cfg.Server.TLS.CertFile)
	setString("TLS_KEY", &cfg.Server.TLS.KeyFile)
	if v, ok := get("MAX_REQUEST_BODY"); ok {
		s, err := parseSize(v)
		if err != nil {
			errs = append(errs, err)
		}
		cfg.Server.MaxRequestBody = s
	}

	setList("CORS_ORIGINS", &cfg.Security.CORS.AllowedOrigins)
	if v, ok := get("RATE_RPS"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Security.RateLimit.RPS = f
		} else {
			errs = append(errs, fmt.Errorf("%sRATE_RPS: %w", envPrefix, err))
		}
	}
	setInt("RATE_BURST", &cfg.Security.RateLimit.Burst)
	setList("IP_WHITELIST", &cfg.Security.IPWhitelist)
	setList("API_BACKEND_KEYS", &cfg.Security.APIKeys.Backend)
	setList("API_FRONTEND_KEYS", &cfg.Security.APIKeys.Frontend)
	setList("API_ADMIN_KEYS", &cfg.Security.APIKeys.Admin)

	setString("LOG_LEVEL", &cfg.Logging.Level)
	setString("LOG_FORMAT", &cfg.Logging.Format)
	setString("LOG_SINK", &cfg.Logging.Sink)

	setInt("LEDGER_MAX_USERNAME_LENGTH", &cfg.Ledger.MaxUsernameLength)
	setInt("LEDGER_MAX_CONVO_ID_LENGTH", &cfg.Ledger.MaxConvoIdLength)
	setInt("LEDGER_MAX_MESSAGE_AMOUNT", &cfg.Ledger.MaxMessageAmount)
	setInt("LEDGER_MAX_ACTIVE_CONVERSATION_AMOUNT", &cfg.Ledger.MaxActiveConversationAmount)
	setInt("LEDGER_MAX_MESSAGE_LENGTH", &cfg.Ledger.MaxMessageLength)

	setBool("EVENTS_LOG", &cfg.Events.Log)
	setBool("EVENTS_METRICS", &cfg.Events.Metrics)
	setBool("EVENTS_KAFKA_ENABLED", &cfg.Events.Kafka.Enabled)
	setList("EVENTS_KAFKA_BROKERS", &cfg.Events.Kafka.Brokers)
	setString("EVENTS_KAFKA_TOPIC", &cfg.Events.Kafka.Topic)
	setBool("EVENTS_REDIS_ENABLED", &cfg.Events.Redis.Enabled)
	setString("EVENTS_REDIS_ADDR", &cfg.Events.Redis.Addr)
	setString("EVENTS_REDIS_PASSWORD", &cfg.Events.Redis.Password)
	setInt("EVENTS_REDIS_DB", &cfg.Events.Redis.DB)
	setString("EVENTS_REDIS_CHANNEL", &cfg.Events.Redis.Channel)
	setInt("EVENTS_QUEUE_SIZE", &cfg.Events.QueueSize)
	if v, ok := get("EVENTS_PUBLISH_TIMEOUT"); ok {
		d, err := parseDuration(v)
		if err != nil {
			errs = append(errs, err)
		}
		cfg.Events.PublishTimeout = d
	}

	setBool("SNAPSHOT_ENABLED", &cfg.Snapshot.Enabled)
	setString("SNAPSHOT_CRON", &cfg.Snapshot.Cron)
	setString("SNAPSHOT_DIR", &cfg.Snapshot.Dir)
	setInt("SNAPSHOT_KEEP", &cfg.Snapshot.Keep)
	if v, ok := get("SNAPSHOT_MIN_FREE_BYTES"); ok {
		s, err := parseSize(v)
		if err != nil {
			errs = append(errs, err)
		}
		cfg.Snapshot.MinFreeBytes = s
	}

	return used, errors.Join(errs...)
}

// LoadEffectiveConfig layers the sources: config file first, then UKE_*
// environment variables, then explicitly set flags.
func LoadEffectiveConfig(flags Flags, fileCfg *Config, fileExists bool) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult
	cfg := fileCfg
	if cfg == nil {
		cfg = &Config{}
	}

	var sources []string
	if fileExists {
		sources = append(sources, "config")
	}
	envUsed, err := ApplyEnv(cfg)
	if err != nil {
		return res, err
	}
	if envUsed {
		sources = append(sources, "env")
	}

	flagsUsed := false
	if flags.Set["addr"] {
		host, _, err := net.SplitHostPort(flags.Addr)
		if err != nil {
			return res, fmt.Errorf("invalid --addr %q: %w", flags.Addr, err)
		}
		cfg.Server.Address = host
		cfg.Server.Port = parsePortFromAddr(flags.Addr)
		flagsUsed = true
	}
	if flags.Set["db"] {
		cfg.Server.DBPath = flags.DB
		flagsUsed = true
	} else if strings.TrimSpace(cfg.Server.DBPath) == "" {
		cfg.Server.DBPath = flags.DB
	}
	if flagsUsed {
		sources = append(sources, "flags")
	}
	dbPath := cfg.Server.DBPath
	addr := cfg.Addr()
	if len(sources) == 0 {
		sources = append(sources, "defaults")
	}

	cfg.ApplyDefaults(dbPath)
	res.Config = cfg
	res.Addr = addr
	res.DBPath = dbPath
	res.Source = strings.Join(sources, "+")
	return res, nil
}

func parseList(v string) []string {
	if v == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// extracts port integer from host:port string
func parsePortFromAddr(a string) int {
	if a == "" {
		return 0
	}
	if _, p, err := net.SplitHostPort(a); err == nil {
		if pi, err := strconv.Atoi(p); err == nil {
			return pi
		}
	}
	return 0
}
