package app

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/valyala/fasthttp"

	"github.com/Uke-Messaging/uke-pallet/internal/snapshot"
	"github.com/Uke-Messaging/uke-pallet/pkg/api/auth"
	"github.com/Uke-Messaging/uke-pallet/pkg/config"
	"github.com/Uke-Messaging/uke-pallet/pkg/config/banner"
	"github.com/Uke-Messaging/uke-pallet/pkg/events"
	"github.com/Uke-Messaging/uke-pallet/pkg/ledger"
	"github.com/Uke-Messaging/uke-pallet/pkg/logger"
	"github.com/Uke-Messaging/uke-pallet/pkg/store"
)

// App groups server state and components.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	st     *store.Store
	events *events.Dispatcher
	ledger *ledger.Ledger
	gw     *auth.Gateway
	snaps  *snapshot.Manager

	srvFast *fasthttp.Server
	cancel  context.CancelFunc
	ready   atomic.Bool
	state   string
}

// New opens the store and builds every component. It does not start
// listening; call Run for that.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	cfg := eff.Config
	if cfg == nil {
		return nil, fmt.Errorf("missing effective config")
	}

	config.SetRuntime(config.NewRuntime(cfg))

	if !cfg.SyncWrites() {
		logger.LogConfigSummary("config_durability_summary", []string{
			"sync_writes: false",
			"committed calls may be lost on power failure",
		})
	}

	st, err := store.Open(eff.DBPath, store.Options{SyncWrites: cfg.SyncWrites()})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	disp := events.NewDispatcher(buildSinks(cfg.Events), cfg.Events.QueueSize, cfg.Events.PublishTimeout.Duration())
	l, err := ledger.New(st, cfg.Ledger, disp)
	if err != nil {
		_ = disp.Close()
		_ = st.Close()
		return nil, err
	}

	a := &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		st:        st,
		events:    disp,
		ledger:    l,
		gw:        auth.NewGateway(secConfig(cfg)),
		snaps:     snapshot.New(st, cfg.Snapshot),
		state:     "initialized",
	}
	logger.Info("app_initialized",
		"db_path", eff.DBPath,
		"max_request_body", humanize.IBytes(uint64(cfg.Server.MaxRequestBody.Int64())),
	)
	return a, nil
}

// Ledger exposes the running ledger.
func (a *App) Ledger() *ledger.Ledger { return a.ledger }

// Run starts the scheduler and http server and blocks until ctx is done or
// the server fails.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	ctx, a.cancel = context.WithCancel(ctx)
	a.snaps.Start(ctx)

	errCh := a.startHTTP()
	a.ready.Store(true)
	a.state = "running"
	logger.Info("server_listening", "addr", a.eff.Addr)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (a *App) printBanner() {
	ver := a.version
	if a.commit != "" && a.commit != "none" {
		ver += " (" + a.commit + ")"
	}
	if a.buildDate != "" && a.buildDate != "unknown" {
		ver += " @ " + a.buildDate
	}
	banner.PrintWithEff(os.Stdout, a.eff, ver)
}

func buildSinks(cfg config.EventsConfig) *events.Fanout {
	f := events.NewFanout()
	if cfg.Log {
		f.Add(events.LogSink{})
	}
	if cfg.Metrics {
		f.Add(events.MetricsSink{})
	}
	if cfg.Kafka.Enabled {
		f.Add(events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		logger.Info("event_sink_enabled", "sink", "kafka", "topic", cfg.Kafka.Topic)
	}
	if cfg.Redis.Enabled {
		f.Add(events.NewRedisSink(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Channel))
		logger.Info("event_sink_enabled", "sink", "redis", "channel", cfg.Redis.Channel)
	}
	return f
}

func secConfig(cfg *config.Config) auth.SecConfig {
	set := func(list []string) map[string]struct{} {
		m := make(map[string]struct{}, len(list))
		for _, k := range list {
			m[k] = struct{}{}
		}
		return m
	}
	return auth.SecConfig{
		AllowedOrigins: append([]string{}, cfg.Security.CORS.AllowedOrigins...),
		RPS:            cfg.Security.RateLimit.RPS,
		Burst:          cfg.Security.RateLimit.Burst,
		IPWhitelist:    append([]string{}, cfg.Security.IPWhitelist...),
		BackendKeys:    set(cfg.Security.APIKeys.Backend),
		FrontendKeys:   set(cfg.Security.APIKeys.Frontend),
		AdminKeys:      set(cfg.Security.APIKeys.Admin),
	}
}
