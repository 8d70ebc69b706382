package exporter

import (
	"context"

	"github.com/goodnatureofminers/btpc-node/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Repository interface {
		InsertBlocks(ctx context.Context, blocks []model.ExportBlock) error
		InsertTransactions(ctx context.Context, txs []model.ExportTransaction) error
		InsertPeerEvents(ctx context.Context, events []model.ExportPeerEvent) error
	}

	Metrics interface {
		ObserveQueued(kind string)
		ObserveDropped(kind string)
		ObserveFlush(kind string, rows int)
	}
)
