package chain

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/btpc-node/internal/clock"
	"github.com/goodnatureofminers/btpc-node/internal/consensus"
	"github.com/goodnatureofminers/btpc-node/internal/crypto"
	"github.com/goodnatureofminers/btpc-node/internal/model"
	"github.com/goodnatureofminers/btpc-node/internal/storage"
)

var (
	keyOnce           sync.Once
	testPub, testPriv []byte
)

func testKey(t *testing.T) (pub, priv []byte) {
	t.Helper()
	keyOnce.Do(func() {
		pk, sk, err := mode3.GenerateKey(rand.Reader)
		if err != nil {
			panic(err)
		}
		testPub, testPriv = pk.Bytes(), sk.Bytes()
	})
	return testPub, testPriv
}

type harness struct {
	t       *testing.T
	chain   *Chain
	store   *storage.Memory
	params  *consensus.Params
	hasher  crypto.Hasher
	clock   *clock.Manual
	genesis *model.Block
	pub     []byte
	priv    []byte
	// coinbase txids by height
	coinbases map[uint32]model.Hash
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	params, err := consensus.ParamsFor(model.Regtest)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	metrics := NewMockchainMetrics(ctrl)
	metrics.EXPECT().ObserveProcessBlock(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	metrics.EXPECT().ObserveStage(gomock.Any(), gomock.Any()).AnyTimes()
	metrics.EXPECT().SetTip(gomock.Any()).AnyTimes()

	h := &harness{
		t:         t,
		store:     storage.NewMemory(),
		params:    params,
		hasher:    crypto.DoubleSHA512{},
		clock:     clock.NewManual(time.Unix(int64(params.GenesisTimestamp)+10_000_000, 0)),
		coinbases: make(map[uint32]model.Hash),
	}
	h.pub, h.priv = testKey(t)
	h.genesis = consensus.GenesisBlock(params, h.hasher)

	opts = append([]Option{WithClock(h.clock), WithSignatureWorkers(4)}, opts...)
	h.chain, err = New(h.store, params, crypto.Dilithium{}, metrics, zap.NewNop(), opts...)
	require.NoError(t, err)
	require.NoError(t, h.chain.Init(context.Background(), h.genesis))
	return h
}

func (h *harness) tip() IndexEntry {
	h.t.Helper()
	tip, err := h.chain.Tip()
	require.NoError(h.t, err)
	return tip
}

// coinbaseTx pays value to the harness key. The height in script_sig keeps
// coinbase txids unique.
func (h *harness) coinbaseTx(height uint32, value uint64) model.Transaction {
	script := binary.LittleEndian.AppendUint32(nil, height)
	return model.Transaction{
		Version: 1,
		Inputs: []model.TxInput{{
			PreviousOutput: model.OutPoint{Vout: model.CoinbaseVout},
			ScriptSig:      append(script, 0x00),
			Sequence:       0xffffffff,
		}},
		Outputs: []model.TxOutput{{Value: value, ScriptPubKey: crypto.PayToPubKeyHash(h.pub)}},
		ForkID:  h.params.ForkID,
	}
}

// spendTx spends prevs to the harness key, signing for forkID.
func (h *harness) spendTx(forkID uint8, prevs []model.OutPoint, values ...uint64) model.Transaction {
	h.t.Helper()
	tx := model.Transaction{Version: 1, ForkID: forkID}
	for _, op := range prevs {
		tx.Inputs = append(tx.Inputs, model.TxInput{PreviousOutput: op, Sequence: 0xffffffff})
	}
	for _, v := range values {
		tx.Outputs = append(tx.Outputs, model.TxOutput{Value: v, ScriptPubKey: crypto.PayToPubKeyHash(h.pub)})
	}
	h.sign(&tx, forkID)
	return tx
}

func (h *harness) sign(tx *model.Transaction, forkID uint8) {
	h.t.Helper()
	sighash := crypto.SigHash(h.hasher, tx, forkID)
	sig, err := crypto.Dilithium{}.Sign(h.priv, sighash[:])
	require.NoError(h.t, err)
	script := crypto.UnlockingScript(sig, h.pub)
	for i := range tx.Inputs {
		tx.Inputs[i].ScriptSig = script
	}
}

// buildBlock assembles a mined block on top of the current tip.
func (h *harness) buildBlock(coinbaseValue uint64, txs ...model.Transaction) *model.Block {
	h.t.Helper()
	tip := h.tip()
	height := tip.Height + 1
	block := &model.Block{
		Header: model.BlockHeader{
			Version:   1,
			PrevHash:  tip.Hash,
			Timestamp: tip.Timestamp + h.params.TargetSpacing,
			Bits:      tip.Bits,
		},
		Transactions: append([]model.Transaction{h.coinbaseTx(height, coinbaseValue)}, txs...),
	}
	h.seal(block)
	return block
}

// seal recomputes the merkle root and searches a nonce meeting the block's bits.
func (h *harness) seal(block *model.Block) {
	h.t.Helper()
	txids := make([]model.Hash, len(block.Transactions))
	for i := range block.Transactions {
		txids[i] = crypto.TxID(h.hasher, &block.Transactions[i])
	}
	block.Header.MerkleRoot = crypto.MerkleRoot(h.hasher, txids)

	target, err := consensus.TargetFromBits(block.Header.Bits)
	require.NoError(h.t, err)
	for block.Header.Nonce = 0; ; block.Header.Nonce++ {
		if consensus.MeetsTarget(crypto.HeaderHash(h.hasher, &block.Header), target) {
			return
		}
	}
}

func (h *harness) reward(height uint32) uint64 {
	return consensus.BlockReward(height, h.params.Reward)
}

// extendTo mines coinbase-only blocks until the tip reaches height.
func (h *harness) extendTo(height uint32) {
	h.t.Helper()
	for tip := h.tip(); tip.Height < height; tip = h.tip() {
		next := tip.Height + 1
		block := h.buildBlock(h.reward(next))
		_, err := h.chain.ProcessBlock(context.Background(), block)
		require.NoError(h.t, err, "height %d", next)
		h.coinbases[next] = crypto.TxID(h.hasher, &block.Transactions[0])
	}
}

func (h *harness) coinbaseOut(height uint32) model.OutPoint {
	txid, ok := h.coinbases[height]
	require.True(h.t, ok, "no coinbase recorded at %d", height)
	return model.OutPoint{TxID: txid, Vout: 0}
}
