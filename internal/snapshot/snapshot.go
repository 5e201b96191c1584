// Package snapshot writes pebble checkpoints of the ledger on a cron
// schedule and on demand, keeping only the newest few.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/dustin/go-humanize"

	"github.com/Uke-Messaging/uke-pallet/pkg/config"
	"github.com/Uke-Messaging/uke-pallet/pkg/logger"
	"github.com/Uke-Messaging/uke-pallet/pkg/metrics"
)

const nameLayout = "20060102T150405.000000000Z"

var (
	// ErrBusy is returned when a snapshot is already being written.
	ErrBusy = errors.New("snapshot already in progress")
	// ErrStopped is returned by RunNow after Stop.
	ErrStopped = errors.New("snapshot manager stopped")
)

type checkpointer interface {
	Checkpoint(dir string) error
}

// Manager owns snapshot scheduling for one store.
type Manager struct {
	st   checkpointer
	cfg  config.SnapshotConfig
	now  func() time.Time
	free func(dir string) (uint64, error)

	mu      sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(st checkpointer, cfg config.SnapshotConfig) *Manager {
	return &Manager{st: st, cfg: cfg, now: time.Now, free: freeBytes}
}

// Start runs the schedule until ctx is done. It returns immediately when
// snapshots are disabled.
func (m *Manager) Start(ctx context.Context) {
	if !m.cfg.Enabled {
		logger.Info("snapshot_disabled")
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped || m.cancel != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	logger.Info("snapshot_enabled", "cron", m.cfg.Cron, "dir", m.cfg.Dir, "keep", m.cfg.Keep)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.scheduleLoop(ctx)
	}()
}

// Stop ends the schedule and waits for the loop and any running snapshot
// to finish. Later RunNow calls fail with ErrStopped.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) scheduleLoop(ctx context.Context) {
	for {
		next, err := gronx.NextTickAfter(m.cfg.Cron, m.now(), false)
		if err != nil {
			logger.Error("snapshot_nexttick_failed", "cron", m.cfg.Cron, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if _, err := m.RunNow(ctx); err != nil && !errors.Is(err, ErrBusy) && !errors.Is(err, ErrStopped) {
				logger.Error("snapshot_run_error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// RunNow writes one snapshot and prunes old ones. It returns the snapshot
// directory.
func (m *Manager) RunNow(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return "", ErrStopped
	}
	if m.running {
		m.mu.Unlock()
		return "", ErrBusy
	}
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		m.wg.Done()
	}()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := m.write()
	if err != nil {
		metrics.Snapshots.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.Snapshots.WithLabelValues("ok").Inc()

	removed, err := m.prune()
	if err != nil {
		logger.Warn("snapshot_prune_failed", "error", err)
	}
	logger.Info("snapshot_written", "path", path, "pruned", removed)
	return path, nil
}

func (m *Manager) write() (string, error) {
	if m.cfg.Dir == "" {
		return "", fmt.Errorf("snapshot dir not configured")
	}
	if err := os.MkdirAll(m.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	if floor := uint64(m.cfg.MinFreeBytes.Int64()); floor > 0 {
		avail, err := m.free(m.cfg.Dir)
		if err != nil {
			return "", fmt.Errorf("stat snapshot dir: %w", err)
		}
		if avail < floor {
			logger.Warn("snapshot_skipped_low_disk", "available", humanize.IBytes(avail), "required", humanize.IBytes(floor))
			return "", fmt.Errorf("insufficient disk space: %s available, %s required", humanize.IBytes(avail), humanize.IBytes(floor))
		}
	}

	path := filepath.Join(m.cfg.Dir, m.now().UTC().Format(nameLayout))
	if err := m.st.Checkpoint(path); err != nil {
		return "", fmt.Errorf("checkpoint %s: %w", path, err)
	}
	return path, nil
}

// List returns existing snapshot directories, oldest first.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(nameLayout, e.Name()); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, filepath.Join(m.cfg.Dir, n))
	}
	return out, nil
}

func (m *Manager) prune() (int, error) {
	list, err := m.List()
	if err != nil {
		return 0, err
	}
	keep := m.cfg.Keep
	if keep <= 0 || len(list) <= keep {
		return 0, nil
	}
	var errs []string
	removed := 0
	for _, p := range list[:len(list)-keep] {
		if err := os.RemoveAll(p); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		removed++
	}
	if len(errs) > 0 {
		return removed, fmt.Errorf("remove old snapshots: %s", strings.Join(errs, "; "))
	}
	return removed, nil
}
