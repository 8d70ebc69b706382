package storage

import (
	"errors"
	"time"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	storageMetrics interface {
		Observe(operation string, err error, started time.Time)
		ObserveBatch(ops int)
	}
)

// Observed decorates a Store with per-operation metrics.
type Observed struct {
	next    Store
	metrics storageMetrics
}

// NewObserved wraps next.
func NewObserved(next Store, metrics storageMetrics) (*Observed, error) {
	if next == nil {
		return nil, errors.New("store is required")
	}
	if metrics == nil {
		return nil, errors.New("metrics is required")
	}
	return &Observed{next: next, metrics: metrics}, nil
}

func (o *Observed) Get(key []byte) (v []byte, err error) {
	started := time.Now()
	defer func() { o.metrics.Observe("get", notFoundIsOK(err), started) }()
	return o.next.Get(key)
}

func (o *Observed) Has(key []byte) (ok bool, err error) {
	started := time.Now()
	defer func() { o.metrics.Observe("has", err, started) }()
	return o.next.Has(key)
}

func (o *Observed) Write(b *Batch) (err error) {
	started := time.Now()
	defer func() {
		o.metrics.Observe("write", err, started)
		if err == nil {
			o.metrics.ObserveBatch(b.Len())
		}
	}()
	return o.next.Write(b)
}

func (o *Observed) Iterate(prefix []byte, fn func(key, value []byte) error) (err error) {
	started := time.Now()
	defer func() { o.metrics.Observe("iterate", err, started) }()
	return o.next.Iterate(prefix, fn)
}

func (o *Observed) Close() error {
	return o.next.Close()
}

func notFoundIsOK(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
