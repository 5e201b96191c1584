package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/adhocore/gronx"

	"github.com/Uke-Messaging/uke-pallet/pkg/ledger"
)

// fail fast on any value the server cannot run with
func ValidateConfig(eff EffectiveConfigResult) error {
	cfg := eff.Config
	if cfg == nil {
		return fmt.Errorf("effective config is nil")
	}
	if eff.DBPath == "" {
		return fmt.Errorf("database path is empty: set --db flag, UKE_DB_PATH env, or server.db_path in config")
	}

	// TLS cert/key presence check if one is set
	cert := cfg.Server.TLS.CertFile
	key := cfg.Server.TLS.KeyFile
	if (cert != "" && key == "") || (cert == "" && key != "") {
		return fmt.Errorf("incomplete TLS configuration: both server.tls.cert_file and server.tls.key_file must be set")
	}
	if cert != "" {
		if _, err := os.Stat(cert); err != nil {
			return fmt.Errorf("tls cert file not accessible: %w", err)
		}
		if _, err := os.Stat(key); err != nil {
			return fmt.Errorf("tls key file not accessible: %w", err)
		}
	}

	if err := ledger.ValidateLimits(cfg.Ledger); err != nil {
		return fmt.Errorf("invalid ledger config: %w", err)
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid logging.format %q: want text or json", cfg.Logging.Format)
	}
	if s := cfg.Logging.Sink; s != "" && !strings.HasPrefix(s, "file:") {
		return fmt.Errorf("invalid logging.sink %q: want empty or file:<path>", s)
	}

	if k := cfg.Events.Kafka; k.Enabled && len(k.Brokers) == 0 {
		return fmt.Errorf("events.kafka enabled but no brokers configured")
	}
	if r := cfg.Events.Redis; r.Enabled && r.Addr == "" {
		return fmt.Errorf("events.redis enabled but no addr configured")
	}

	if snap := cfg.Snapshot; snap.Enabled {
		if !gronx.IsValid(snap.Cron) {
			return fmt.Errorf("invalid snapshot.cron: not a valid cron expression")
		}
		if snap.Dir == "" {
			return fmt.Errorf("snapshot enabled but no snapshot.dir")
		}
	}
	return nil
}
