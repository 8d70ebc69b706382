package chain

import (
	"errors"
	"fmt"

	"github.com/goodnatureofminers/btpc-node/internal/consensus"
	"github.com/goodnatureofminers/btpc-node/internal/model"
)

var reject = consensus.NewRejection

// Structure rejections.
var (
	ErrBadVersion         = reject("bad-version", "block version must be non-zero")
	ErrNoTransactions     = reject("bad-blk-length", "block has no transactions")
	ErrBlockTooLarge      = reject("bad-blk-size", "serialized block exceeds size limit")
	ErrNoCoinbase         = reject("bad-cb-missing", "first transaction is not a coinbase")
	ErrMultipleCoinbase   = reject("bad-cb-multiple", "more than one coinbase")
	ErrBadCoinbaseLength  = reject("bad-cb-length", "coinbase script_sig length out of range")
	ErrBadMerkleRoot      = reject("bad-txnmrklroot", "merkle root mismatch")
	ErrTxTooLarge         = reject("bad-txns-oversize", "transaction exceeds size limit")
	ErrNoInputs           = reject("bad-txns-vin-empty", "transaction has no inputs")
	ErrNoOutputs          = reject("bad-txns-vout-empty", "transaction has no outputs")
	ErrTooManyInputs      = reject("bad-txns-vin-toomany", "transaction has too many inputs")
	ErrTooManyOutputs     = reject("bad-txns-vout-toomany", "transaction has too many outputs")
	ErrDuplicateInput     = reject("bad-txns-inputs-duplicate", "transaction spends the same output twice")
	ErrNullPrevout        = reject("bad-txns-prevout-null", "non-coinbase input references the null outpoint")

	ErrInvalidCoinbaseInputs = reject("bad-cb-inputs", "coinbase must have exactly one null input")
)

// Context and chain-position rejections.
var (
	ErrPreviousBlockNotFound = reject("prev-blk-not-found", "previous block not found")
	ErrNotExtendingTip       = reject("not-extending-tip", "block does not extend the active tip")
	ErrTipChanged            = reject("tip-changed", "tip changed during validation")
	ErrDuplicateBlock        = reject("duplicate", "block already known")
)

// UTXO rejections.
var (
	ErrDoubleSpend        = reject("bad-txns-double-spend", "output already spent in this block")
	ErrUnsupportedScript  = reject("unsupported-script", "locking script is not pay-to-pubkey-hash")
	ErrMalformedScriptSig = reject("bad-script-sig", "malformed unlocking script")
	ErrPubKeyMismatch     = reject("bad-pubkey-hash", "public key does not match locking script")
	ErrInvalidSignature   = reject("bad-signature", "signature verification failed")
	ErrValueOverflow      = reject("bad-txns-value-overflow", "output values overflow")
)

var (
	// ErrNotInitialized is returned before Init has loaded or written genesis.
	ErrNotInitialized = errors.New("chain is not initialized")
	// ErrGenesisMismatch means the store holds a chain for a different genesis.
	ErrGenesisMismatch = errors.New("stored chain has a different genesis block")
)

// DuplicateTransactionError rejects a txid that is repeated in the block or already confirmed.
type DuplicateTransactionError struct {
	TxID model.Hash
}

func (e *DuplicateTransactionError) Error() string {
	return fmt.Sprintf("duplicate transaction %s", e.TxID)
}

func (e *DuplicateTransactionError) RejectCode() string { return "bad-txns-duplicate" }

// UTXONotFoundError rejects an input whose previous output does not exist.
type UTXONotFoundError struct {
	OutPoint model.OutPoint
}

func (e *UTXONotFoundError) Error() string {
	return fmt.Sprintf("missing input %s:%d", e.OutPoint.TxID, e.OutPoint.Vout)
}

func (e *UTXONotFoundError) RejectCode() string { return "missing-inputs" }

// ImmatureCoinbaseError rejects spending a coinbase output too early.
type ImmatureCoinbaseError struct {
	Created, Current, Required uint32
}

func (e *ImmatureCoinbaseError) Error() string {
	return fmt.Sprintf("coinbase created at %d spent at %d, needs %d confirmations", e.Created, e.Current, e.Required)
}

func (e *ImmatureCoinbaseError) RejectCode() string { return "bad-txns-premature-spend-of-coinbase" }

// InsufficientInputValueError rejects a transaction spending more than it consumes.
type InsufficientInputValueError struct {
	Inputs, Outputs string
}

func (e *InsufficientInputValueError) Error() string {
	return fmt.Sprintf("inputs %s below outputs %s", e.Inputs, e.Outputs)
}

func (e *InsufficientInputValueError) RejectCode() string { return "bad-txns-in-belowout" }

// ExcessiveCoinbaseRewardError rejects a coinbase paying more than subsidy plus fees.
type ExcessiveCoinbaseRewardError struct {
	Claimed, Allowed string
}

func (e *ExcessiveCoinbaseRewardError) Error() string {
	return fmt.Sprintf("coinbase pays %s, allowed %s", e.Claimed, e.Allowed)
}

func (e *ExcessiveCoinbaseRewardError) RejectCode() string { return "bad-cb-amount" }

// WrongForkIDError rejects a transaction tagged for another network.
type WrongForkIDError struct {
	Got, Want uint8
}

func (e *WrongForkIDError) Error() string {
	return fmt.Sprintf("fork id %d, network expects %d", e.Got, e.Want)
}

func (e *WrongForkIDError) RejectCode() string { return "bad-txns-fork-id" }

// TxError locates a rejection inside a block.
type TxError struct {
	Index int
	TxID  model.Hash
	Err   error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("tx %d (%s): %v", e.Index, e.TxID, e.Err)
}

func (e *TxError) Unwrap() error { return e.Err }

func txError(index int, txid model.Hash, err error) error {
	return &TxError{Index: index, TxID: txid, Err: err}
}
