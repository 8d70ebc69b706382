// Package storage provides the key-value persistence used by the chain and
// the peer registry. Every backend applies a Batch atomically.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("key not found")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")
	// ErrStopIteration ends Iterate early without reporting an error.
	ErrStopIteration = errors.New("stop iteration")
)

// Store is the storage capability consumed by the node.
type Store interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	// Write applies every operation in b or none of them.
	Write(b *Batch) error
	// Iterate visits keys with the given prefix in ascending byte order. The
	// slices passed to fn are only valid for the duration of the call.
	Iterate(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// Batch collects puts and deletes for one atomic write. Later operations on
// the same key win.
type Batch struct {
	ops []batchOp
}

func NewBatch() *Batch {
	return &Batch{}
}

// Put records a write. key and value are copied.
func (b *Batch) Put(key, value []byte) {
	b.ops = append(b.ops, batchOp{key: clone(key), value: clone(value)})
}

// Delete records a removal. key is copied.
func (b *Batch) Delete(key []byte) {
	b.ops = append(b.ops, batchOp{key: clone(key), delete: true})
}

// Len is the number of recorded operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

func (b *Batch) Reset() {
	b.ops = b.ops[:0]
}

// Replay feeds the recorded operations, in order, to put and del.
func (b *Batch) Replay(put func(key, value []byte) error, del func(key []byte) error) error {
	for _, op := range b.ops {
		var err error
		if op.delete {
			err = del(op.key)
		} else {
			err = put(op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Backend names a Store implementation.
type Backend string

const (
	BackendLevelDB Backend = "leveldb"
	BackendBolt    Backend = "bolt"
	BackendMemory  Backend = "memory"
)

// UnmarshalFlag lets go-flags parse a backend name.
func (b *Backend) UnmarshalFlag(value string) error {
	switch v := Backend(strings.ToLower(value)); v {
	case BackendLevelDB, BackendBolt, BackendMemory:
		*b = v
		return nil
	default:
		return fmt.Errorf("unknown storage backend %q", value)
	}
}

// Open creates or opens a store of the given backend under dir.
func Open(backend Backend, dir string) (Store, error) {
	switch backend {
	case BackendLevelDB:
		return OpenLevelDB(filepath.Join(dir, "chain.ldb"))
	case BackendBolt:
		return OpenBolt(filepath.Join(dir, "chain.bolt"))
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
