package model

import "math"

// CoinbaseVout marks the previous-output index of a coinbase input.
const CoinbaseVout = math.MaxUint32

type OutPoint struct {
	TxID Hash
	Vout uint32
}

// IsNull reports whether the outpoint is the coinbase sentinel.
func (o OutPoint) IsNull() bool {
	return o.TxID.IsZero() && o.Vout == CoinbaseVout
}

type TxInput struct {
	PreviousOutput OutPoint
	ScriptSig      []byte
	Sequence       uint32
}

type TxOutput struct {
	Value        uint64
	ScriptPubKey []byte
}

type Transaction struct {
	Version  uint32
	Inputs   []TxInput
	Outputs  []TxOutput
	LockTime uint32
	ForkID   uint8
}

// IsCoinbase reports whether the transaction mints new coins.
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].PreviousOutput.IsNull()
}
