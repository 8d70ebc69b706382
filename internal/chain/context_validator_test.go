package chain

import (
	"errors"
	"testing"
	"time"

	"github.com/goodnatureofminers/btpc-node/internal/clock"
	"github.com/goodnatureofminers/btpc-node/internal/consensus"
	"github.com/goodnatureofminers/btpc-node/internal/crypto"
	"github.com/goodnatureofminers/btpc-node/internal/model"
)

func TestContextValidator_Validate(t *testing.T) {
	params, err := consensus.ParamsFor(model.Regtest)
	if err != nil {
		t.Fatal(err)
	}
	const base = 1_800_000_000
	v := NewContextValidator(params, clock.NewManual(time.Unix(base+1_000_000, 0)))
	hasher := crypto.DoubleSHA512{}

	// Eleven ancestors whose median is base+5000 while the parent itself is old.
	ancestors := []uint64{base, base + 9000, base + 8000, base + 7000, base + 6000, base + 5000, base + 4000, base + 3000, base + 2000, base + 1000, base + 10000}
	parent := &IndexEntry{Hash: model.Hash{1}, Height: 10, Timestamp: base, Bits: params.PowLimitBits}

	cb := plainCoinbase([]byte{1, 2})
	cbID := crypto.TxID(hasher, &cb)

	newBlock := func(ts uint64, bits uint32) (*model.Block, model.Hash) {
		b := structureBlock(cb)
		b.Header.PrevHash = parent.Hash
		b.Header.Timestamp = ts
		b.Header.Bits = bits
		target, err := consensus.TargetFromBits(bits)
		if err != nil {
			t.Fatal(err)
		}
		for !consensus.MeetsTarget(crypto.HeaderHash(hasher, &b.Header), target) {
			b.Header.Nonce++
		}
		return b, crypto.HeaderHash(hasher, &b.Header)
	}

	tests := []struct {
		name    string
		ts      uint64
		bits    uint32
		snap    ContextSnapshot
		wantErr string
	}{
		{
			name: "valid",
			ts:   base + 5001,
			bits: params.PowLimitBits,
			snap: ContextSnapshot{Parent: parent, AncestorTimestamps: ancestors},
		},
		{
			name:    "after parent but not after median",
			ts:      base + 5000,
			bits:    params.PowLimitBits,
			snap:    ContextSnapshot{Parent: parent, AncestorTimestamps: ancestors},
			wantErr: "invalid-timestamp",
		},
		{
			name:    "unknown parent",
			ts:      base + 5001,
			bits:    params.PowLimitBits,
			snap:    ContextSnapshot{AncestorTimestamps: ancestors},
			wantErr: "prev-blk-not-found",
		},
		{
			name:    "bits change off boundary",
			ts:      base + 5001,
			bits:    0x3f7fffff,
			snap:    ContextSnapshot{Parent: parent, AncestorTimestamps: ancestors},
			wantErr: "unexpected-difficulty-change",
		},
		{
			name: "confirmed txid",
			ts:   base + 5001,
			bits: params.PowLimitBits,
			snap: ContextSnapshot{
				Parent:             parent,
				AncestorTimestamps: ancestors,
				Confirmed:          map[model.Hash]TxLocation{cbID: {Height: 3}},
			},
			wantErr: "bad-txns-duplicate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block, hash := newBlock(tt.ts, tt.bits)
			err := v.Validate(block, hash, []model.Hash{cbID}, &tt.snap)
			if got := consensus.RejectReason(err); got != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestContextValidator_RejectsHighHash(t *testing.T) {
	params, err := consensus.ParamsFor(model.Regtest)
	if err != nil {
		t.Fatal(err)
	}
	v := NewContextValidator(params, clock.NewManual(time.Unix(2_000_000_000, 0)))
	hasher := crypto.DoubleSHA512{}
	parent := &IndexEntry{Hash: model.Hash{1}, Height: 1, Timestamp: 1_900_000_000, Bits: params.PowLimitBits}

	cb := plainCoinbase([]byte{1, 2})
	block := structureBlock(cb)
	block.Header.PrevHash = parent.Hash
	block.Header.Timestamp = parent.Timestamp + 1
	block.Header.Bits = params.PowLimitBits
	target, err := consensus.TargetFromBits(block.Header.Bits)
	if err != nil {
		t.Fatal(err)
	}
	for consensus.MeetsTarget(crypto.HeaderHash(hasher, &block.Header), target) {
		block.Header.Nonce++
	}

	err = v.Validate(block, crypto.HeaderHash(hasher, &block.Header), []model.Hash{crypto.TxID(hasher, &cb)},
		&ContextSnapshot{Parent: parent, AncestorTimestamps: []uint64{parent.Timestamp}})
	if !errors.Is(err, consensus.ErrInsufficientProofOfWork) {
		t.Fatalf("Validate() error = %v, want %v", err, consensus.ErrInsufficientProofOfWork)
	}
}
