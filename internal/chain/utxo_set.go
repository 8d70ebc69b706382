package chain

import (
	"errors"
	"fmt"

	"github.com/goodnatureofminers/btpc-node/internal/model"
	"github.com/goodnatureofminers/btpc-node/internal/storage"
)

// UTXOSet is the persistent unspent output set.
type UTXOSet struct {
	store storage.Store
}

func NewUTXOSet(store storage.Store) *UTXOSet {
	return &UTXOSet{store: store}
}

// Fetch returns the output at op, or storage.ErrNotFound.
func (s *UTXOSet) Fetch(op model.OutPoint) (*model.UTXO, error) {
	raw, err := s.store.Get(utxoKey(op))
	if err != nil {
		return nil, err
	}
	u := &model.UTXO{OutPoint: op}
	if err := u.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("decode utxo %s:%d: %w", op.TxID, op.Vout, err)
	}
	return u, nil
}

// FetchMany resolves every outpoint that exists. Missing ones are left out.
func (s *UTXOSet) FetchMany(ops []model.OutPoint) (map[model.OutPoint]model.UTXO, error) {
	out := make(map[model.OutPoint]model.UTXO, len(ops))
	for _, op := range ops {
		if _, ok := out[op]; ok {
			continue
		}
		u, err := s.Fetch(op)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[op] = *u
	}
	return out, nil
}

// Commit stages the removals and insertions of diff into b.
func (s *UTXOSet) Commit(b *storage.Batch, diff *Diff) error {
	for op := range diff.Spent {
		b.Delete(utxoKey(op))
	}
	for op, u := range diff.Created {
		raw, err := u.MarshalBinary()
		if err != nil {
			return fmt.Errorf("encode utxo %s:%d: %w", op.TxID, op.Vout, err)
		}
		b.Put(utxoKey(op), raw)
	}
	return nil
}

// ForEach visits every unspent output in key order.
func (s *UTXOSet) ForEach(fn func(u model.UTXO) error) error {
	return s.store.Iterate(prefixUTXO, func(k, v []byte) error {
		op, ok := outPointFromKey(k)
		if !ok {
			return fmt.Errorf("%w: utxo key of %d bytes", model.ErrMalformed, len(k))
		}
		u := model.UTXO{OutPoint: op}
		if err := u.UnmarshalBinary(v); err != nil {
			return err
		}
		return fn(u)
	})
}
