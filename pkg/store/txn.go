package store

import (
	"errors"
	"io"

	"github.com/cockroachdb/pebble"

	"github.com/Uke-Messaging/uke-pallet/pkg/logger"
)

// ErrTxnClosed is returned when a transaction is used after Commit or Discard.
var ErrTxnClosed = errors.New("transaction already closed")

// Txn buffers every write of a single call. Commit applies them in one
// pebble batch; Discard drops them. Either way the Txn is finished.
type Txn struct {
	b      *pebble.Batch
	st     *Store
	writes int
}

func (t *Txn) Get(key []byte) ([]byte, io.Closer, error) {
	if t.b == nil {
		return nil, nil, ErrTxnClosed
	}
	return t.b.Get(key)
}

func (t *Txn) NewIter(o *pebble.IterOptions) (*pebble.Iterator, error) {
	if t.b == nil {
		return nil, ErrTxnClosed
	}
	return t.b.NewIter(o)
}

// Set stages a write.
func (t *Txn) Set(key, value []byte) error {
	if t.b == nil {
		return ErrTxnClosed
	}
	if err := t.b.Set(key, value, nil); err != nil {
		return err
	}
	t.writes++
	return nil
}

// Writes returns the number of staged writes.
func (t *Txn) Writes() int { return t.writes }

// Commit applies all staged writes atomically.
func (t *Txn) Commit() error {
	if t.b == nil {
		return ErrTxnClosed
	}
	b := t.b
	t.b = nil
	defer b.Close()
	if b.Empty() {
		return nil
	}
	if err := b.Commit(t.st.writeOpts()); err != nil {
		logger.Error("pebble_commit_failed", "writes", t.writes, "error", err)
		return err
	}
	return nil
}

// Discard drops all staged writes. Safe to call after Commit.
func (t *Txn) Discard() {
	if t.b == nil {
		return
	}
	_ = t.b.Close()
	t.b = nil
}
