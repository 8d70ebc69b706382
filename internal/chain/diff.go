package chain

import (
	"github.com/btcsuite/btcd/txscript"

	"github.com/goodnatureofminers/btpc-node/internal/model"
)

// Diff is the in-memory UTXO change set of a transaction or block.
type Diff struct {
	// Spent holds outputs removed from the persistent set.
	Spent map[model.OutPoint]model.UTXO
	// Created holds outputs added by the diff and not spent within it.
	Created map[model.OutPoint]model.UTXO

	consumed map[model.OutPoint]struct{}
}

func NewDiff() *Diff {
	return &Diff{
		Spent:    make(map[model.OutPoint]model.UTXO),
		Created:  make(map[model.OutPoint]model.UTXO),
		consumed: make(map[model.OutPoint]struct{}),
	}
}

// IsSpent reports whether op was consumed anywhere in this diff.
func (d *Diff) IsSpent(op model.OutPoint) bool {
	_, ok := d.consumed[op]
	return ok
}

// Lookup returns an output created by this diff and still unspent.
func (d *Diff) Lookup(op model.OutPoint) (model.UTXO, bool) {
	u, ok := d.Created[op]
	return u, ok
}

// Spend consumes u. Outputs created by the same diff vanish without ever
// reaching the persistent set.
func (d *Diff) Spend(u model.UTXO) {
	d.consumed[u.OutPoint] = struct{}{}
	if _, ok := d.Created[u.OutPoint]; ok {
		delete(d.Created, u.OutPoint)
		return
	}
	d.Spent[u.OutPoint] = u
}

// Add records a new output. Provably unspendable outputs are not tracked.
func (d *Diff) Add(u model.UTXO) {
	if isUnspendable(u.Output.ScriptPubKey) {
		return
	}
	d.Created[u.OutPoint] = u
}

// AddTransaction records every output of tx confirmed at height.
func (d *Diff) AddTransaction(tx *model.Transaction, txid model.Hash, height uint32) {
	coinbase := tx.IsCoinbase()
	for vout, out := range tx.Outputs {
		d.Add(model.UTXO{
			OutPoint:   model.OutPoint{TxID: txid, Vout: uint32(vout)},
			Output:     out,
			Height:     height,
			IsCoinbase: coinbase,
		})
	}
}

// Merge folds a validated transaction diff into d. Spends apply before
// creations since a transaction cannot spend its own outputs.
func (d *Diff) Merge(tx *Diff) {
	for _, u := range tx.Spent {
		d.Spend(u)
	}
	for _, u := range tx.Created {
		d.Add(u)
	}
}

func isUnspendable(script []byte) bool {
	return len(script) > 0 && script[0] == txscript.OP_RETURN
}
