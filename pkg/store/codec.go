package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// GetValue returns a copy of the value at key; found is false when the key
// does not exist.
func GetValue(r Reader, key []byte) (value []byte, found bool, err error) {
	v, closer, err := r.Get(key)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer closer.Close()
	return append([]byte(nil), v...), true, nil
}

// GetJSON decodes the JSON value at key into out.
func GetJSON(r Reader, key []byte, out any) (bool, error) {
	v, found, err := GetValue(r, key)
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal(v, out); err != nil {
		return true, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stages the JSON encoding of v at key.
func (t *Txn) SetJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return t.Set(key, data)
}

// ScanPrefix calls fn for every key under prefix in key order. The slices
// passed to fn are only valid for the duration of the call.
func ScanPrefix(r Reader, prefix []byte, fn func(key, value []byte) error) error {
	iter, err := r.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: nextPrefix(prefix),
	})
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

// ListKeys returns every key under prefix; an empty prefix lists all keys.
func ListKeys(r Reader, prefix string) ([]string, error) {
	var out []string
	err := ScanPrefix(r, []byte(prefix), func(k, _ []byte) error {
		out = append(out, string(k))
		return nil
	})
	return out, err
}

func nextPrefix(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	next := make([]byte, len(prefix))
	copy(next, prefix)
	for i := len(next) - 1; i >= 0; i-- {
		if next[i] < 0xff {
			next[i]++
			return next[:i+1]
		}
	}
	return nil
}
