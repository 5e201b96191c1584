package app

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/Uke-Messaging/uke-pallet/internal/snapshot"
	"github.com/Uke-Messaging/uke-pallet/pkg/config"
	"github.com/Uke-Messaging/uke-pallet/pkg/ledger"
	"github.com/Uke-Messaging/uke-pallet/pkg/models"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "db")
	cfg := &config.Config{}
	cfg.Security.APIKeys.Backend = []string{"sk_test"}
	cfg.Events.Metrics = true
	eff, err := config.LoadEffectiveConfig(config.Flags{DB: dbPath, Set: map[string]bool{"db": true}}, cfg, true)
	require.NoError(t, err)
	require.NoError(t, config.ValidateConfig(eff))

	a, err := New(eff, "test", "none", "unknown")
	require.NoError(t, err)
	t.Cleanup(func() { config.SetRuntime(nil) })
	return a
}

func get(h fasthttp.RequestHandler, path string) int {
	var req fasthttp.Request
	req.SetRequestURI(path)
	var ctx fasthttp.RequestCtx
	ctx.Init(&req, &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4000}, nil)
	h(&ctx)
	return ctx.Response.StatusCode()
}

func TestNewOpensLedger(t *testing.T) {
	a := newTestApp(t)
	defer func() { require.NoError(t, a.Shutdown(context.Background())) }()

	res, err := a.Ledger().StoreMessage(context.Background(), "alice", ledger.StoreMessage{
		Message:   []byte("hi"),
		Time:      1,
		ConvoID:   []byte("c1"),
		Recipient: models.Identity("bob"),
	})
	require.NoError(t, err)
	assert.True(t, res.Started)
}

func TestReadinessFollowsLifecycle(t *testing.T) {
	a := newTestApp(t)
	h := a.Handler()

	assert.Equal(t, fasthttp.StatusOK, get(h, "/healthz"))
	assert.Equal(t, fasthttp.StatusServiceUnavailable, get(h, "/readyz"))

	a.ready.Store(true)
	assert.Equal(t, fasthttp.StatusOK, get(h, "/readyz"))

	require.NoError(t, a.Shutdown(context.Background()))
	assert.Equal(t, fasthttp.StatusServiceUnavailable, get(h, "/readyz"))
	assert.Equal(t, "stopped", a.state)
}

func TestSecConfigCopiesKeys(t *testing.T) {
	cfg := &config.Config{}
	cfg.Security.APIKeys.Frontend = []string{"pk1", "pk2"}
	cfg.Security.RateLimit.RPS = 5
	sc := secConfig(cfg)
	assert.Len(t, sc.FrontendKeys, 2)
	assert.Empty(t, sc.BackendKeys)
	assert.Equal(t, 5.0, sc.RPS)
}

func TestBuildSinksHonoursToggles(t *testing.T) {
	f := buildSinks(config.EventsConfig{Log: true, Metrics: true})
	require.NoError(t, f.Publish(context.Background(), nil))
	require.NoError(t, f.Close())
}

func TestShutdownRejectsLaterCalls(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.Shutdown(context.Background()))

	_, err := a.Ledger().StoreMessage(context.Background(), "alice", ledger.StoreMessage{
		Message:   []byte("late"),
		Time:      2,
		ConvoID:   []byte("c2"),
		Recipient: models.Identity("bob"),
	})
	require.ErrorIs(t, err, ledger.ErrClosed)
	assert.Equal(t, ledger.KindUnavailable, ledger.KindOf(err))
}

func TestWaitForReportsTimeout(t *testing.T) {
	assert.True(t, waitFor(context.Background(), func() {}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	release := make(chan struct{})
	defer close(release)
	assert.False(t, waitFor(ctx, func() { <-release }))
}

type blockingCheckpointer struct {
	entered chan struct{}
	release chan struct{}
}

func (b blockingCheckpointer) Checkpoint(string) error {
	close(b.entered)
	<-b.release
	return nil
}

func TestShutdownLeavesStoreOpenWhileSnapshotRuns(t *testing.T) {
	a := newTestApp(t)
	cp := blockingCheckpointer{entered: make(chan struct{}), release: make(chan struct{})}
	a.snaps = snapshot.New(cp, config.SnapshotConfig{Dir: t.TempDir(), Keep: 1})

	runDone := make(chan error, 1)
	go func() {
		_, err := a.snaps.RunNow(context.Background())
		runDone <- err
	}()
	<-cp.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))
	assert.True(t, a.st.Ready(), "store must stay open while a snapshot is in flight")

	err := a.Ledger().Register(context.Background(), "alice", []byte("al"))
	assert.Equal(t, ledger.KindUnavailable, ledger.KindOf(err))

	close(cp.release)
	require.NoError(t, <-runDone)
	require.NoError(t, a.st.Close())
}
