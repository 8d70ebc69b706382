// Package chain validates blocks against the active chain and commits them
// to storage atomically.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/btpc-node/internal/clock"
	"github.com/goodnatureofminers/btpc-node/internal/consensus"
	"github.com/goodnatureofminers/btpc-node/internal/crypto"
	"github.com/goodnatureofminers/btpc-node/internal/model"
	"github.com/goodnatureofminers/btpc-node/internal/storage"
)

// Accepted describes a block that extended the chain.
type Accepted struct {
	Hash      model.Hash
	Height    uint32
	Timestamp uint64
	Fees      uint64
	TxCount   int
	Size      int
	TxIDs     []model.Hash
}

type Option func(*Chain)

func WithClock(c clock.Clock) Option {
	return func(ch *Chain) { ch.clock = c }
}

func WithHasher(h crypto.Hasher) Option {
	return func(ch *Chain) { ch.hasher = h }
}

func WithEventSink(s EventSink) Option {
	return func(ch *Chain) { ch.sink = s }
}

// WithSignatureWorkers bounds the goroutines verifying signatures of one block.
func WithSignatureWorkers(n int) Option {
	return func(ch *Chain) { ch.workers = n }
}

// Chain owns the active chain tip and serialises commits to it.
type Chain struct {
	store    storage.Store
	utxos    *UTXOSet
	params   *consensus.Params
	hasher   crypto.Hasher
	verifier crypto.Verifier
	clock    clock.Clock
	sink     EventSink
	metrics  chainMetrics
	logger   *zap.Logger
	workers  int

	contextValidator *ContextValidator
	utxoValidator    *UTXOValidator

	mu  sync.RWMutex
	tip *IndexEntry
}

// New constructs a Chain. Init must be called before blocks are processed.
func New(
	store storage.Store,
	params *consensus.Params,
	verifier crypto.Verifier,
	metrics chainMetrics,
	logger *zap.Logger,
	opts ...Option,
) (*Chain, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if params == nil {
		return nil, errors.New("params is required")
	}
	if verifier == nil {
		return nil, errors.New("verifier is required")
	}
	if metrics == nil {
		return nil, errors.New("metrics is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	c := &Chain{
		store:    store,
		utxos:    NewUTXOSet(store),
		params:   params,
		hasher:   crypto.DoubleSHA512{},
		verifier: verifier,
		clock:    clock.System{},
		metrics:  metrics,
		logger:   logger.Named("chain").With(zap.String("network", string(params.Network))),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.contextValidator = NewContextValidator(params, c.clock)
	c.utxoValidator = NewUTXOValidator(params, c.hasher, verifier, c.workers)
	return c, nil
}

// Init loads the stored tip, or writes genesis when the store is empty.
// Genesis is a trusted checkpoint and only its structure is checked.
func (c *Chain) Init(ctx context.Context, genesis *model.Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := crypto.HeaderHash(c.hasher, &genesis.Header)

	raw, err := c.store.Get(keyTip)
	switch {
	case err == nil:
		return c.loadTip(raw, hash)
	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("load tip: %w", err)
	}

	txids, err := CheckStructure(genesis, c.params.ForkID, c.hasher)
	if err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	target, err := consensus.TargetFromBits(genesis.Header.Bits)
	if err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	entry := &IndexEntry{
		Hash:      hash,
		Timestamp: genesis.Header.Timestamp,
		Bits:      genesis.Header.Bits,
		TxCount:   uint32(len(genesis.Transactions)),
		Size:      uint32(genesis.SerializeSize()),
		ChainWork: consensus.WorkInteger(target),
	}
	diff := NewDiff()
	for i := range genesis.Transactions {
		diff.AddTransaction(&genesis.Transactions[i], txids[i], 0)
	}

	batch := storage.NewBatch()
	if err := c.stage(batch, genesis, entry, txids, diff); err != nil {
		return err
	}
	if err := c.store.Write(batch); err != nil {
		return fmt.Errorf("write genesis: %w", err)
	}
	c.tip = entry
	c.metrics.SetTip(0)
	c.logger.Info("genesis written", zap.Stringer("hash", hash))
	return nil
}

func (c *Chain) loadTip(raw []byte, genesis model.Hash) error {
	if len(raw) != model.HashSize {
		return fmt.Errorf("%w: tip pointer is %d bytes", model.ErrMalformed, len(raw))
	}
	stored, err := c.store.Get(heightKey(0))
	if err != nil {
		return fmt.Errorf("load genesis: %w", err)
	}
	if len(stored) != model.HashSize || model.Hash(stored) != genesis {
		return ErrGenesisMismatch
	}
	entry, err := c.loadEntry(model.Hash(raw))
	if err != nil {
		return fmt.Errorf("load tip entry: %w", err)
	}
	c.tip = entry
	c.metrics.SetTip(entry.Height)
	c.logger.Info("chain tip loaded", zap.Uint32("height", entry.Height), zap.Stringer("hash", entry.Hash))
	return nil
}

type blockSnapshot struct {
	ContextSnapshot
	tip   IndexEntry
	utxos map[model.OutPoint]model.UTXO
}

// ProcessBlock validates block and, when it is valid and extends the tip,
// commits it. Rejections carry a reason code readable with
// consensus.RejectReason.
func (c *Chain) ProcessBlock(ctx context.Context, block *model.Block) (accepted *Accepted, err error) {
	started := time.Now()
	hash := crypto.HeaderHash(c.hasher, &block.Header)
	logger := c.logger.With(zap.Stringer("hash", hash))
	defer func() {
		reason := ""
		if err != nil {
			reason = consensus.RejectReason(err)
			if consensus.IsRejection(err) {
				logger.Debug("block rejected", zap.String("reason", reason), zap.Error(err))
			} else {
				logger.Error("block processing failed", zap.Error(err))
			}
		}
		c.metrics.ObserveProcessBlock(reason, len(block.Transactions), err, started)
	}()

	stage := time.Now()
	txids, err := CheckStructure(block, c.params.ForkID, c.hasher)
	c.metrics.ObserveStage("structure", stage)
	if err != nil {
		return nil, err
	}

	stage = time.Now()
	snap, err := c.snapshot(block, hash, txids)
	c.metrics.ObserveStage("snapshot", stage)
	if err != nil {
		return nil, err
	}

	stage = time.Now()
	err = c.contextValidator.Validate(block, hash, txids, &snap.ContextSnapshot)
	c.metrics.ObserveStage("context", stage)
	if err != nil {
		return nil, err
	}
	height := snap.Parent.Height + 1

	stage = time.Now()
	result, err := c.utxoValidator.Validate(ctx, block, txids, height, snap.utxos)
	c.metrics.ObserveStage("utxo", stage)
	if err != nil {
		return nil, err
	}

	target, err := consensus.TargetFromBits(block.Header.Bits)
	if err != nil {
		return nil, err
	}
	size := block.SerializeSize()
	entry := &IndexEntry{
		Hash:      hash,
		PrevHash:  block.Header.PrevHash,
		Height:    height,
		Timestamp: block.Header.Timestamp,
		Bits:      block.Header.Bits,
		TxCount:   uint32(len(block.Transactions)),
		Size:      uint32(size),
		ChainWork: saturatingAdd(snap.Parent.ChainWork, consensus.WorkInteger(target)),
	}

	stage = time.Now()
	err = c.commit(snap.tip.Hash, block, entry, txids, result.Diff)
	c.metrics.ObserveStage("commit", stage)
	if err != nil {
		return nil, err
	}

	accepted = &Accepted{
		Hash:      hash,
		Height:    height,
		Timestamp: block.Header.Timestamp,
		Fees:      result.Fees,
		TxCount:   len(block.Transactions),
		Size:      size,
		TxIDs:     txids,
	}
	c.metrics.SetTip(height)
	logger.Info("block accepted",
		zap.Uint32("height", height),
		zap.Int("txs", accepted.TxCount),
		zap.Float64("fees", btcutil.Amount(int64(min(result.Fees, math.MaxInt64))).ToBTC()),
	)
	if c.sink != nil {
		c.sink.BlockAccepted(block, accepted)
	}
	return accepted, nil
}

// snapshot copies out everything validation needs under the read lock.
func (c *Chain) snapshot(block *model.Block, hash model.Hash, txids []model.Hash) (*blockSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.tip == nil {
		return nil, ErrNotInitialized
	}
	known, err := c.store.Has(indexKey(hash))
	if err != nil {
		return nil, fmt.Errorf("check block: %w", err)
	}
	if known {
		return nil, ErrDuplicateBlock
	}

	snap := &blockSnapshot{tip: *c.tip}
	parent, err := c.loadEntry(block.Header.PrevHash)
	if errors.Is(err, storage.ErrNotFound) {
		return snap, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load parent: %w", err)
	}
	if parent.Hash != c.tip.Hash {
		return nil, ErrNotExtendingTip
	}
	snap.Parent = parent

	snap.AncestorTimestamps = make([]uint64, 0, c.params.MedianTimeSpan)
	for h := parent.Height; len(snap.AncestorTimestamps) < c.params.MedianTimeSpan; h-- {
		e, err := c.entryAtHeight(h)
		if err != nil {
			return nil, fmt.Errorf("load ancestor %d: %w", h, err)
		}
		snap.AncestorTimestamps = append(snap.AncestorTimestamps, e.Timestamp)
		if h == 0 {
			break
		}
	}

	height := parent.Height + 1
	if c.params.IsRetargetHeight(height) {
		first, err := c.entryAtHeight(height - c.params.RetargetInterval)
		if err != nil {
			return nil, fmt.Errorf("load retarget window: %w", err)
		}
		snap.Window = consensus.RetargetWindow{
			ParentBits:     parent.Bits,
			FirstTimestamp: first.Timestamp,
			LastTimestamp:  parent.Timestamp,
		}
	}

	snap.Confirmed = make(map[model.Hash]TxLocation)
	for _, txid := range txids {
		loc, err := c.txLocation(txid)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load tx index: %w", err)
		}
		snap.Confirmed[txid] = *loc
	}

	var ops []model.OutPoint
	for _, tx := range block.Transactions[1:] {
		for _, in := range tx.Inputs {
			ops = append(ops, in.PreviousOutput)
		}
	}
	if snap.utxos, err = c.utxos.FetchMany(ops); err != nil {
		return nil, fmt.Errorf("load utxos: %w", err)
	}
	return snap, nil
}

// commit writes the block in one batch if the tip is still the one the
// block was validated against.
func (c *Chain) commit(expectedTip model.Hash, block *model.Block, entry *IndexEntry, txids []model.Hash, diff *Diff) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tip == nil || c.tip.Hash != expectedTip {
		return ErrTipChanged
	}
	batch := storage.NewBatch()
	if err := c.stage(batch, block, entry, txids, diff); err != nil {
		return err
	}
	if err := c.store.Write(batch); err != nil {
		return fmt.Errorf("commit block: %w", err)
	}
	c.tip = entry
	return nil
}

func (c *Chain) stage(batch *storage.Batch, block *model.Block, entry *IndexEntry, txids []model.Hash, diff *Diff) error {
	if err := c.utxos.Commit(batch, diff); err != nil {
		return err
	}
	rawEntry, err := entry.MarshalBinary()
	if err != nil {
		return err
	}
	loc := TxLocation{BlockHash: entry.Hash, Height: entry.Height}
	rawLoc, err := loc.MarshalBinary()
	if err != nil {
		return err
	}

	batch.Put(blockKey(entry.Hash), block.Bytes())
	batch.Put(indexKey(entry.Hash), rawEntry)
	batch.Put(heightKey(entry.Height), entry.Hash[:])
	for _, txid := range txids {
		batch.Put(txIndexKey(txid), rawLoc)
	}
	batch.Put(keyTip, entry.Hash[:])
	return nil
}

// Tip returns the active chain tip.
func (c *Chain) Tip() (IndexEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tip == nil {
		return IndexEntry{}, ErrNotInitialized
	}
	return *c.tip, nil
}

func (c *Chain) Params() *consensus.Params {
	return c.params
}

// HasBlock reports whether a block with hash is stored.
func (c *Chain) HasBlock(hash model.Hash) (bool, error) {
	return c.store.Has(indexKey(hash))
}

// BlockByHash returns a stored block or storage.ErrNotFound.
func (c *Chain) BlockByHash(hash model.Hash) (*model.Block, error) {
	raw, err := c.store.Get(blockKey(hash))
	if err != nil {
		return nil, err
	}
	return model.DecodeBlock(raw)
}

// EntryByHash returns the index entry of a stored block.
func (c *Chain) EntryByHash(hash model.Hash) (*IndexEntry, error) {
	return c.loadEntry(hash)
}

// HeaderByHeight returns the header of the active-chain block at height.
func (c *Chain) HeaderByHeight(height uint32) (*model.BlockHeader, error) {
	hash, err := c.hashAtHeight(height)
	if err != nil {
		return nil, err
	}
	raw, err := c.store.Get(blockKey(hash))
	if err != nil {
		return nil, err
	}
	if len(raw) < model.HeaderSize {
		return nil, fmt.Errorf("%w: stored block is %d bytes", model.ErrMalformed, len(raw))
	}
	header, err := model.DecodeHeader(raw[:model.HeaderSize])
	if err != nil {
		return nil, err
	}
	return &header, nil
}

// FetchUTXO returns an unspent output or storage.ErrNotFound.
func (c *Chain) FetchUTXO(op model.OutPoint) (*model.UTXO, error) {
	return c.utxos.Fetch(op)
}

// TxLocation returns the block that confirmed txid or storage.ErrNotFound.
func (c *Chain) TxLocation(txid model.Hash) (*TxLocation, error) {
	return c.txLocation(txid)
}

func (c *Chain) loadEntry(hash model.Hash) (*IndexEntry, error) {
	raw, err := c.store.Get(indexKey(hash))
	if err != nil {
		return nil, err
	}
	e := &IndexEntry{}
	if err := e.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return e, nil
}

func (c *Chain) hashAtHeight(height uint32) (model.Hash, error) {
	raw, err := c.store.Get(heightKey(height))
	if err != nil {
		return model.Hash{}, err
	}
	if len(raw) != model.HashSize {
		return model.Hash{}, fmt.Errorf("%w: height entry is %d bytes", model.ErrMalformed, len(raw))
	}
	return model.Hash(raw), nil
}

func (c *Chain) entryAtHeight(height uint32) (*IndexEntry, error) {
	hash, err := c.hashAtHeight(height)
	if err != nil {
		return nil, err
	}
	return c.loadEntry(hash)
}

func (c *Chain) txLocation(txid model.Hash) (*TxLocation, error) {
	raw, err := c.store.Get(txIndexKey(txid))
	if err != nil {
		return nil, err
	}
	loc := &TxLocation{}
	if err := loc.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return loc, nil
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
