package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Uke-Messaging/uke-pallet/pkg/config"
	"github.com/Uke-Messaging/uke-pallet/pkg/store"
)

func newManager(t *testing.T, keep int) (*Manager, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	m := New(st, config.SnapshotConfig{Dir: filepath.Join(dir, "snaps"), Keep: keep})
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return m, st
}

func TestRunNowWritesReadableSnapshot(t *testing.T) {
	m, st := newManager(t, 3)
	txn := st.Begin()
	require.NoError(t, txn.Set([]byte("k"), []byte("v")))
	require.NoError(t, txn.Commit())

	path, err := m.RunNow(context.Background())
	require.NoError(t, err)

	snap, err := store.Open(path, store.Options{ReadOnly: true})
	require.NoError(t, err)
	defer snap.Close()
	v, found, err := store.GetValue(snap.Reader(), []byte("k"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), v)
}

func TestRunNowPrunesOldSnapshots(t *testing.T) {
	m, _ := newManager(t, 2)
	var paths []string
	for i := 0; i < 4; i++ {
		p, err := m.RunNow(context.Background())
		require.NoError(t, err)
		paths = append(paths, p)
	}

	list, err := m.List()
	require.NoError(t, err)
	assert.Equal(t, paths[2:], list)
	_, err = os.Stat(paths[0])
	assert.True(t, os.IsNotExist(err))
}

func TestRunNowRefusesOnLowDisk(t *testing.T) {
	m, _ := newManager(t, 2)
	m.cfg.MinFreeBytes = config.SizeBytes(1 << 30)
	m.free = func(string) (uint64, error) { return 1024, nil }

	_, err := m.RunNow(context.Background())
	assert.ErrorContains(t, err, "insufficient disk space")
	list, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRunNowRejectsConcurrentRun(t *testing.T) {
	m, _ := newManager(t, 2)
	m.running = true
	_, err := m.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
}

func TestStartDisabledIsNoop(t *testing.T) {
	m, _ := newManager(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	list, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

type gatedCheckpointer struct {
	entered chan struct{}
	release chan struct{}
}

func (g gatedCheckpointer) Checkpoint(string) error {
	close(g.entered)
	<-g.release
	return nil
}

func TestStopWaitsForRunningSnapshot(t *testing.T) {
	cp := gatedCheckpointer{entered: make(chan struct{}), release: make(chan struct{})}
	m := New(cp, config.SnapshotConfig{Dir: t.TempDir(), Keep: 1})

	runDone := make(chan error, 1)
	go func() {
		_, err := m.RunNow(context.Background())
		runDone <- err
	}()
	<-cp.entered

	stopped := make(chan struct{})
	go func() {
		m.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while a snapshot was running")
	case <-time.After(30 * time.Millisecond):
	}

	close(cp.release)
	require.NoError(t, <-runDone)
	<-stopped

	_, err := m.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}

func TestStopEndsScheduleLoop(t *testing.T) {
	m, _ := newManager(t, 1)
	m.cfg.Enabled = true
	m.cfg.Cron = "0 0 1 1 *"
	m.now = time.Now
	m.Start(context.Background())

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not end the schedule loop")
	}
}
