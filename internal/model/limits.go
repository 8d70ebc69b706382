package model

const (
	// MaxBlockSize bounds the serialized size of a block.
	MaxBlockSize = 1_000_000
	// MaxTxSize bounds the serialized size of a single transaction.
	MaxTxSize = 100_000
	// MaxTxInputs and MaxTxOutputs bound the per-transaction fan-in and fan-out.
	MaxTxInputs  = 1000
	MaxTxOutputs = 1000
	// maxBlockTransactions is the decoder ceiling derived from the smallest possible transaction.
	maxBlockTransactions = MaxBlockSize / 60
)
