// Package exporter copies accepted blocks and peer policy events into the
// analytics store. Offering an event never blocks the caller: when the
// buffer is full the event is dropped and counted.
package exporter

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/btpc-node/internal/chain"
	"github.com/goodnatureofminers/btpc-node/internal/model"
	"github.com/goodnatureofminers/btpc-node/internal/p2p"
	"github.com/goodnatureofminers/btpc-node/pkg/batcher"
	"github.com/goodnatureofminers/btpc-node/pkg/safe"
)

type Config struct {
	FlushSize     int
	FlushInterval time.Duration
	// FlushRPS caps flushes per second per buffer. Zero disables pacing.
	FlushRPS int
}

func DefaultConfig() Config {
	return Config{
		FlushSize:     defaultFlushSize,
		FlushInterval: defaultFlushInterval,
		FlushRPS:      defaultFlushRPS,
	}
}

type acceptedBlock struct {
	block model.ExportBlock
	txs   []model.ExportTransaction
}

// Exporter implements chain.EventSink and p2p.EventSink.
type Exporter struct {
	network model.Network
	repo    Repository
	metrics Metrics
	logger  *zap.Logger

	blocks *batcher.Batcher[acceptedBlock]
	events *batcher.Batcher[model.ExportPeerEvent]
}

var (
	_ chain.EventSink = (*Exporter)(nil)
	_ p2p.EventSink   = (*Exporter)(nil)
)

func New(cfg Config, network model.Network, repo Repository, metrics Metrics, logger *zap.Logger) (*Exporter, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	if metrics == nil {
		return nil, errors.New("metrics is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.FlushSize <= 0 || cfg.FlushInterval <= 0 {
		return nil, errors.New("flush size and interval must be positive")
	}

	e := &Exporter{
		network: network,
		repo:    repo,
		metrics: metrics,
		logger:  logger.Named("exporter"),
	}
	e.blocks = batcher.New[acceptedBlock](e.logger.Named("blockBatcher"), e.flushBlocks, cfg.FlushSize, cfg.FlushInterval, cfg.FlushRPS)
	e.events = batcher.New[model.ExportPeerEvent](e.logger.Named("eventBatcher"), e.flushEvents, cfg.FlushSize, cfg.FlushInterval, cfg.FlushRPS)
	return e, nil
}

// Start begins flushing in the background. ctx is handed to the repository
// on every flush.
func (e *Exporter) Start(ctx context.Context) {
	e.blocks.Start(ctx)
	e.events.Start(ctx)
}

// Stop flushes what is buffered and waits for the flush loops to exit.
func (e *Exporter) Stop() {
	e.blocks.Stop()
	e.events.Stop()
}

// BlockAccepted queues an accepted block and its transactions.
func (e *Exporter) BlockAccepted(block *model.Block, accepted *chain.Accepted) {
	rec := e.convertBlock(block, accepted)
	if err := e.blocks.TryAdd(rec); err != nil {
		e.metrics.ObserveDropped(kindBlock)
		e.logger.Warn("block export dropped", zap.Uint32("height", accepted.Height), zap.Error(err))
		return
	}
	e.metrics.ObserveQueued(kindBlock)
}

// PeerEvent queues a peer policy event.
func (e *Exporter) PeerEvent(event p2p.PeerEvent) {
	row := model.ExportPeerEvent{
		Network: e.network,
		Time:    event.Time.UTC(),
		Addr:    event.Addr.String(),
		Kind:    string(event.Kind),
		Reason:  event.Reason,
		Points:  event.Points,
	}
	if !event.Until.IsZero() {
		until := event.Until.UTC().Truncate(time.Second)
		row.Until = &until
	}
	if err := e.events.TryAdd(row); err != nil {
		e.metrics.ObserveDropped(kindPeerEvent)
		return
	}
	e.metrics.ObserveQueued(kindPeerEvent)
}

func (e *Exporter) convertBlock(block *model.Block, accepted *chain.Accepted) acceptedBlock {
	blockTime := time.Unix(int64(min(accepted.Timestamp, math.MaxInt64)), 0).UTC()
	hash := accepted.Hash.String()

	rec := acceptedBlock{
		block: model.ExportBlock{
			Network:    e.network,
			Height:     accepted.Height,
			Hash:       hash,
			PrevHash:   block.Header.PrevHash.String(),
			Timestamp:  blockTime,
			Version:    block.Header.Version,
			MerkleRoot: block.Header.MerkleRoot.String(),
			Bits:       block.Header.Bits,
			Nonce:      block.Header.Nonce,
			Size:       clampUint32(accepted.Size),
			TxCount:    clampUint32(accepted.TxCount),
			Fees:       accepted.Fees,
		},
		txs: make([]model.ExportTransaction, 0, len(block.Transactions)),
	}

	for i := range block.Transactions {
		tx := &block.Transactions[i]
		var value uint64
		for _, out := range tx.Outputs {
			sum, err := safe.AddUint64(value, out.Value)
			if err != nil {
				sum = math.MaxUint64
			}
			value = sum
		}
		rec.txs = append(rec.txs, model.ExportTransaction{
			Network:     e.network,
			TxID:        accepted.TxIDs[i].String(),
			BlockHash:   hash,
			BlockHeight: accepted.Height,
			BlockTime:   blockTime,
			Index:       clampUint32(i),
			Size:        clampUint32(tx.SerializeSize()),
			Version:     tx.Version,
			LockTime:    tx.LockTime,
			InputCount:  clampUint32(len(tx.Inputs)),
			OutputCount: clampUint32(len(tx.Outputs)),
			OutputValue: value,
			IsCoinbase:  tx.IsCoinbase(),
		})
	}
	return rec
}

func clampUint32(n int) uint32 {
	v, err := safe.Uint32(n)
	if err != nil {
		return math.MaxUint32
	}
	return v
}

// flushBlocks writes transactions before their blocks so a block row is
// only visible once its transactions are.
func (e *Exporter) flushBlocks(ctx context.Context, recs []acceptedBlock) error {
	blocks := make([]model.ExportBlock, 0, len(recs))
	var txs []model.ExportTransaction
	for _, rec := range recs {
		blocks = append(blocks, rec.block)
		txs = append(txs, rec.txs...)
	}

	if err := e.repo.InsertTransactions(ctx, txs); err != nil {
		return err
	}
	e.metrics.ObserveFlush(kindTransaction, len(txs))

	if err := e.repo.InsertBlocks(ctx, blocks); err != nil {
		return err
	}
	e.metrics.ObserveFlush(kindBlock, len(blocks))
	return nil
}

func (e *Exporter) flushEvents(ctx context.Context, events []model.ExportPeerEvent) error {
	if err := e.repo.InsertPeerEvents(ctx, events); err != nil {
		return err
	}
	e.metrics.ObserveFlush(kindPeerEvent, len(events))
	return nil
}
