// Package importer feeds a bootstrap file of blocks through chain validation.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/btpc-node/internal/chain"
	"github.com/goodnatureofminers/btpc-node/internal/consensus"
	"github.com/goodnatureofminers/btpc-node/internal/model"
)

// RejectedError stops an import at the first block the chain refuses.
type RejectedError struct {
	Index  int
	Reason string
	Err    error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("import record %d rejected (%s): %v", e.Index, e.Reason, e.Err)
}

func (e *RejectedError) Unwrap() error { return e.Err }

// Stats summarises a finished import.
type Stats struct {
	Imported int
	Skipped  int
	Tip      uint32
}

type Option func(*Importer)

// WithBlocksPerSecond paces the import. Zero leaves it unpaced.
func WithBlocksPerSecond(n int) Option {
	return func(i *Importer) {
		if n > 0 {
			i.rl = ratelimit.New(n)
		}
	}
}

type Importer struct {
	source  BlockSource
	chain   BlockProcessor
	metrics Metrics
	logger  *zap.Logger
	rl      ratelimit.Limiter
}

func New(source BlockSource, processor BlockProcessor, metrics Metrics, logger *zap.Logger, opts ...Option) (*Importer, error) {
	if source == nil {
		return nil, errors.New("block source is required")
	}
	if processor == nil {
		return nil, errors.New("block processor is required")
	}
	if metrics == nil {
		return nil, errors.New("importer metrics is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	i := &Importer{
		source:  source,
		chain:   processor,
		metrics: metrics,
		logger:  logger.Named("importer"),
		rl:      ratelimit.NewUnlimited(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Run imports until the source is exhausted. Blocks the chain already has
// are skipped; any other rejection ends the import with a *RejectedError.
func (i *Importer) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		raw, err := i.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			i.logger.Info("import finished",
				zap.Int("imported", stats.Imported),
				zap.Int("skipped", stats.Skipped),
				zap.Uint32("tip", stats.Tip),
			)
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("read record %d: %w", index, err)
		}

		i.rl.Take()
		accepted, err := i.importOne(ctx, raw)
		switch {
		case errors.Is(err, chain.ErrDuplicateBlock):
			stats.Skipped++
		case errors.Is(err, model.ErrMalformed):
			return stats, &RejectedError{Index: index, Reason: "malformed", Err: err}
		case err != nil && consensus.IsRejection(err):
			return stats, &RejectedError{Index: index, Reason: consensus.RejectReason(err), Err: err}
		case err != nil:
			return stats, fmt.Errorf("import record %d: %w", index, err)
		default:
			stats.Imported++
			stats.Tip = accepted.Height
			if stats.Imported%1000 == 0 {
				i.logger.Info("import progress", zap.Int("imported", stats.Imported), zap.Uint32("tip", stats.Tip))
			}
		}
	}
}

func (i *Importer) importOne(ctx context.Context, raw []byte) (accepted *chain.Accepted, err error) {
	started := time.Now()
	defer func() {
		status := "success"
		switch {
		case errors.Is(err, chain.ErrDuplicateBlock):
			status = "skipped"
		case err != nil:
			status = "error"
		}
		i.metrics.ObserveBlock(status, len(raw), started)
	}()

	block, err := model.DecodeBlock(raw)
	if err != nil {
		return nil, err
	}
	return i.chain.ProcessBlock(ctx, block)
}
