package chain

import (
	"time"

	"github.com/goodnatureofminers/btpc-node/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	chainMetrics interface {
		ObserveProcessBlock(reason string, txs int, err error, started time.Time)
		ObserveStage(stage string, started time.Time)
		SetTip(height uint32)
	}

	// EventSink receives every accepted block after it is committed.
	// Implementations must return without blocking.
	EventSink interface {
		BlockAccepted(block *model.Block, accepted *Accepted)
	}
)
