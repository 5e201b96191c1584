package banner

import (
	"fmt"
	"io"
	"strings"

	"github.com/Uke-Messaging/uke-pallet/pkg/config"
)

const banner = `
██╗   ██╗██╗  ██╗███████╗
██║   ██║██║ ██╔╝██╔════╝
██║   ██║█████╔╝ █████╗  
██║   ██║██╔═██╗ ██╔══╝  
╚██████╔╝██║  ██╗███████╗
 ╚═════╝ ╚═╝  ╚═╝╚══════╝
`

// PrintWithEff writes the startup banner and a readiness checklist for the
// effective configuration.
func PrintWithEff(w io.Writer, eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	src := eff.Source
	if src == "" {
		src = "defaults"
	}

	fmt.Fprint(w, banner)
	fmt.Fprintln(w, "== Config =====================================================")
	fmt.Fprintf(w, "Listen:   %s\n", addr)
	fmt.Fprintf(w, "DB Path:  %s\n", eff.DBPath)
	if version != "" {
		fmt.Fprintf(w, "Version:  %s\n", version)
	}
	fmt.Fprintf(w, "Config:   %s\n", src)

	cfg := eff.Config
	if cfg == nil {
		return
	}

	fmt.Fprintln(w, "\n== Production? =================================================")
	keyLine(w, "Backend API keys", len(cfg.Security.APIKeys.Backend), "required for backend services")
	keyLine(w, "Frontend API keys", len(cfg.Security.APIKeys.Frontend), "required for client access")
	keyLine(w, "Admin API keys", len(cfg.Security.APIKeys.Admin), "required for admin tooling")

	if cfg.Server.TLS.CertFile != "" {
		fmt.Fprintln(w, "- TLS: enabled")
	} else {
		fmt.Fprintln(w, "- TLS: disabled")
	}
	if cfg.SyncWrites() {
		fmt.Fprintln(w, "- Durability: sync writes")
	} else {
		fmt.Fprintln(w, "- Durability: async writes (recent calls may be lost on crash)")
	}

	l := cfg.Ledger
	fmt.Fprintf(w, "- Limits: username=%d convo_id=%d messages=%d active=%d\n",
		l.MaxUsernameLength, l.MaxConvoIdLength, l.MaxMessageAmount, l.MaxActiveConversationAmount)

	var sinks []string
	if cfg.Events.Log {
		sinks = append(sinks, "log")
	}
	if cfg.Events.Metrics {
		sinks = append(sinks, "metrics")
	}
	if cfg.Events.Kafka.Enabled {
		sinks = append(sinks, "kafka("+cfg.Events.Kafka.Topic+")")
	}
	if cfg.Events.Redis.Enabled {
		sinks = append(sinks, "redis("+cfg.Events.Redis.Channel+")")
	}
	if len(sinks) == 0 {
		fmt.Fprintln(w, "- Events: none")
	} else {
		fmt.Fprintf(w, "- Events: %s\n", strings.Join(sinks, ", "))
	}

	if cfg.Snapshot.Enabled {
		fmt.Fprintf(w, "- Snapshots: enabled (cron=%s, keep=%d)\n", cfg.Snapshot.Cron, cfg.Snapshot.Keep)
	} else {
		fmt.Fprintln(w, "- Snapshots: disabled")
	}
}

func keyLine(w io.Writer, label string, n int, why string) {
	if n > 0 {
		fmt.Fprintf(w, "- %s: OK (%d)\n", label, n)
		return
	}
	fmt.Fprintf(w, "- %s: MISSING (%s)\n", label, why)
}
