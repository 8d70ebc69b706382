package chain

import (
	"github.com/goodnatureofminers/btpc-node/internal/clock"
	"github.com/goodnatureofminers/btpc-node/internal/consensus"
	"github.com/goodnatureofminers/btpc-node/internal/model"
)

// ContextSnapshot is the chain state a block is validated against. It is
// copied out of storage under the read lock so validation itself touches no
// shared state.
type ContextSnapshot struct {
	// Parent is nil when the previous block is unknown.
	Parent *IndexEntry
	// AncestorTimestamps holds up to MedianTimeSpan timestamps ending at the parent.
	AncestorTimestamps []uint64
	// Window is filled for blocks at a retarget height.
	Window consensus.RetargetWindow
	// Confirmed maps txids of the block that already have a confirming block.
	Confirmed map[model.Hash]TxLocation
}

// ContextValidator checks a block against its position in the chain.
type ContextValidator struct {
	params *consensus.Params
	clock  clock.Clock
}

func NewContextValidator(params *consensus.Params, clk clock.Clock) *ContextValidator {
	return &ContextValidator{params: params, clock: clk}
}

// Validate runs the checks cheapest first: parent, timestamp, difficulty,
// duplicate transactions, proof of work.
func (v *ContextValidator) Validate(block *model.Block, hash model.Hash, txids []model.Hash, snap *ContextSnapshot) error {
	if snap.Parent == nil {
		return ErrPreviousBlockNotFound
	}
	height := snap.Parent.Height + 1

	mtp := consensus.MedianTimePast(snap.AncestorTimestamps)
	now := uint64(max(v.clock.Now().Unix(), 0))
	if err := consensus.CheckTimestamp(block.Header.Timestamp, mtp, now, v.params); err != nil {
		return err
	}

	window := snap.Window
	window.ParentBits = snap.Parent.Bits
	expected, err := consensus.ExpectedBits(height, window, v.params)
	if err != nil {
		return err
	}
	if err := consensus.CheckDifficulty(height, block.Header.Bits, expected, v.params); err != nil {
		return err
	}

	seen := make(map[model.Hash]struct{}, len(txids))
	for _, txid := range txids {
		if _, dup := seen[txid]; dup {
			return &DuplicateTransactionError{TxID: txid}
		}
		seen[txid] = struct{}{}
		if _, confirmed := snap.Confirmed[txid]; confirmed {
			return &DuplicateTransactionError{TxID: txid}
		}
	}

	return consensus.CheckProofOfWork(hash, block.Header.Bits, v.params.PowLimit())
}
