package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/btpc-node/internal/model"
)

const insertPeerEventsQuery = `
INSERT INTO node_peer_events (
	network,
	time,
	addr,
	kind,
	reason,
	points,
	until
) VALUES`

// InsertPeerEvents stores peer policy events.
func (r *Repository) InsertPeerEvents(ctx context.Context, events []model.ExportPeerEvent) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_peer_events", firstNetwork(events), err, start)
	}()

	if len(events) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, insertPeerEventsQuery)
	if err != nil {
		err = fmt.Errorf("prepare peer events batch: %w", err)
		return err
	}

	err = send(batch, len(events), func(i int) []any {
		e := events[i]
		return []any{
			string(e.Network),
			e.Time,
			e.Addr,
			e.Kind,
			e.Reason,
			e.Points,
			e.Until,
		}
	})
	if err != nil {
		err = fmt.Errorf("insert peer events: %w", err)
	}
	return err
}
