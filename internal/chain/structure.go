package chain

import (
	"fmt"

	"github.com/goodnatureofminers/btpc-node/internal/crypto"
	"github.com/goodnatureofminers/btpc-node/internal/model"
)

const (
	minCoinbaseScriptLen = 2
	maxCoinbaseScriptLen = 100
)

// CheckStructure validates everything about a block that needs no chain
// state beyond the network's fork id. It returns the transaction ids so
// later stages do not rehash.
func CheckStructure(block *model.Block, forkID uint8, h crypto.Hasher) ([]model.Hash, error) {
	if block.Header.Version == 0 {
		return nil, ErrBadVersion
	}
	if len(block.Transactions) == 0 {
		return nil, ErrNoTransactions
	}
	if size := block.SerializeSize(); size > model.MaxBlockSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBlockTooLarge, size)
	}

	txids := make([]model.Hash, len(block.Transactions))
	for i := range block.Transactions {
		tx := &block.Transactions[i]
		txids[i] = crypto.TxID(h, tx)

		var err error
		switch {
		case tx.ForkID != forkID:
			err = &WrongForkIDError{Got: tx.ForkID, Want: forkID}
		case i == 0:
			err = checkCoinbase(tx)
		default:
			err = checkTransaction(tx)
		}
		if err != nil {
			return nil, txError(i, txids[i], err)
		}
	}

	if root := crypto.MerkleRoot(h, txids); root != block.Header.MerkleRoot {
		return nil, ErrBadMerkleRoot
	}
	return txids, nil
}

func checkShape(tx *model.Transaction) error {
	switch {
	case len(tx.Inputs) == 0:
		return ErrNoInputs
	case len(tx.Outputs) == 0:
		return ErrNoOutputs
	case len(tx.Inputs) > model.MaxTxInputs:
		return ErrTooManyInputs
	case len(tx.Outputs) > model.MaxTxOutputs:
		return ErrTooManyOutputs
	}
	if size := tx.SerializeSize(); size > model.MaxTxSize {
		return fmt.Errorf("%w: %d bytes", ErrTxTooLarge, size)
	}
	return nil
}

func checkCoinbase(tx *model.Transaction) error {
	if len(tx.Inputs) == 0 || tx.Inputs[0].PreviousOutput.IsNull() && len(tx.Inputs) != 1 {
		return ErrInvalidCoinbaseInputs
	}
	if !tx.IsCoinbase() {
		return ErrNoCoinbase
	}
	if err := checkShape(tx); err != nil {
		return err
	}
	if n := len(tx.Inputs[0].ScriptSig); n < minCoinbaseScriptLen || n > maxCoinbaseScriptLen {
		return fmt.Errorf("%w: %d bytes", ErrBadCoinbaseLength, n)
	}
	return nil
}

func checkTransaction(tx *model.Transaction) error {
	if tx.IsCoinbase() {
		return ErrMultipleCoinbase
	}
	if err := checkShape(tx); err != nil {
		return err
	}
	seen := make(map[model.OutPoint]struct{}, len(tx.Inputs))
	for _, in := range tx.Inputs {
		if in.PreviousOutput.IsNull() {
			return ErrNullPrevout
		}
		if _, dup := seen[in.PreviousOutput]; dup {
			return ErrDuplicateInput
		}
		seen[in.PreviousOutput] = struct{}{}
	}
	return nil
}
