package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/btpc-node/internal/model"
)

const insertTransactionsQuery = `
INSERT INTO node_transactions (
	network,
	txid,
	block_hash,
	block_height,
	block_time,
	tx_index,
	size,
	version,
	locktime,
	input_count,
	output_count,
	output_value,
	is_coinbase
) VALUES`

// InsertTransactions stores confirmed transaction rows.
func (r *Repository) InsertTransactions(ctx context.Context, txs []model.ExportTransaction) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_transactions", firstNetwork(txs), err, start)
	}()

	if len(txs) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, insertTransactionsQuery)
	if err != nil {
		err = fmt.Errorf("prepare transactions batch: %w", err)
		return err
	}

	err = send(batch, len(txs), func(i int) []any {
		tx := txs[i]
		return []any{
			string(tx.Network),
			tx.TxID,
			tx.BlockHash,
			tx.BlockHeight,
			tx.BlockTime,
			tx.Index,
			tx.Size,
			tx.Version,
			tx.LockTime,
			tx.InputCount,
			tx.OutputCount,
			tx.OutputValue,
			tx.IsCoinbase,
		}
	})
	if err != nil {
		err = fmt.Errorf("insert transactions: %w", err)
	}
	return err
}
