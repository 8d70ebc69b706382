package importer

import (
	"context"
	"time"

	"github.com/goodnatureofminers/btpc-node/internal/chain"
	"github.com/goodnatureofminers/btpc-node/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// BlockSource yields serialized blocks in chain order and io.EOF once
	// exhausted.
	BlockSource interface {
		Next(ctx context.Context) ([]byte, error)
	}

	BlockProcessor interface {
		ProcessBlock(ctx context.Context, block *model.Block) (*chain.Accepted, error)
	}

	Metrics interface {
		ObserveBlock(status string, size int, started time.Time)
	}
)
