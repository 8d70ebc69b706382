package model

// UTXO is one spendable output together with the height that created it.
type UTXO struct {
	OutPoint   OutPoint
	Output     TxOutput
	Height     uint32
	IsCoinbase bool
}
