package store

import (
	"errors"
	"fmt"
	"io"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/Uke-Messaging/uke-pallet/pkg/logger"
)

// Reader is the read surface shared by the committed database and an open
// transaction. Both *pebble.DB and *pebble.Batch satisfy it.
type Reader interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

// Options controls how the pebble database is opened.
type Options struct {
	// SyncWrites fsyncs the WAL on every committed call.
	SyncWrites bool
	// DisableWAL trades durability of the last calls for throughput.
	DisableWAL bool
	ReadOnly   bool
	// FS overrides the filesystem, mainly vfs.NewMem() in tests.
	FS vfs.FS
}

// Store owns the pebble database that holds all ledger state.
type Store struct {
	db   *pebble.DB
	path string
	opts Options
}

// Open opens or creates the pebble database at path.
func Open(path string, opts Options) (*Store, error) {
	po := &pebble.Options{
		DisableWAL: opts.DisableWAL,
		ReadOnly:   opts.ReadOnly,
	}
	if opts.FS != nil {
		po.FS = opts.FS
	}
	if opts.DisableWAL {
		logger.Warn("durability_disabled", "durability", "pebble WAL disabled")
	}
	db, err := pebble.Open(path, po)
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	logger.Info("pebble_opened", "path", path, "sync_writes", opts.SyncWrites, "read_only", opts.ReadOnly)
	return &Store{db: db, path: path, opts: opts}, nil
}

// OpenInMemory opens a store backed by an in-memory filesystem.
func OpenInMemory() (*Store, error) {
	return Open("", Options{FS: vfs.NewMem()})
}

// Close flushes memtables and closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if !s.opts.ReadOnly {
		if err := s.db.Flush(); err != nil {
			logger.Error("pebble_flush_failed", "error", err)
		}
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	return nil
}

// Ready reports whether the database is open.
func (s *Store) Ready() bool {
	return s != nil && s.db != nil
}

// Path returns the on-disk location of the database.
func (s *Store) Path() string { return s.path }

// Reader exposes the committed state for queries.
func (s *Store) Reader() Reader { return s.db }

// Begin starts a call-scoped transaction. Reads through the transaction see
// its own pending writes; nothing reaches the database until Commit.
func (s *Store) Begin() *Txn {
	return &Txn{b: s.db.NewIndexedBatch(), st: s}
}

// Checkpoint writes a consistent copy of the database into dir, which must
// not exist yet.
func (s *Store) Checkpoint(dir string) error {
	if s.db == nil {
		return fmt.Errorf("pebble not opened")
	}
	return s.db.Checkpoint(dir, pebble.WithFlushedWAL())
}

func (s *Store) writeOpts() *pebble.WriteOptions {
	if s.opts.SyncWrites && !s.opts.DisableWAL {
		return pebble.Sync
	}
	return pebble.NoSync
}

// IsNotFound returns true if err is pebble.ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, pebble.ErrNotFound)
}
