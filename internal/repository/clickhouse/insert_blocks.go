package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/btpc-node/internal/model"
)

const insertBlocksQuery = `
INSERT INTO node_blocks (
	network,
	height,
	hash,
	prev_hash,
	timestamp,
	version,
	merkle_root,
	bits,
	nonce,
	size,
	tx_count,
	fees
) VALUES`

// InsertBlocks stores accepted block rows.
func (r *Repository) InsertBlocks(ctx context.Context, blocks []model.ExportBlock) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_blocks", firstNetwork(blocks), err, start)
	}()

	if len(blocks) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, insertBlocksQuery)
	if err != nil {
		err = fmt.Errorf("prepare blocks batch: %w", err)
		return err
	}

	err = send(batch, len(blocks), func(i int) []any {
		b := blocks[i]
		return []any{
			string(b.Network),
			b.Height,
			b.Hash,
			b.PrevHash,
			b.Timestamp,
			b.Version,
			b.MerkleRoot,
			b.Bits,
			b.Nonce,
			b.Size,
			b.TxCount,
			b.Fees,
		}
	})
	if err != nil {
		err = fmt.Errorf("insert blocks: %w", err)
	}
	return err
}
