package p2p

import (
	"encoding/json"
	"fmt"

	"github.com/goodnatureofminers/btpc-node/internal/storage"
)

var prefixBan = []byte("ban/")

// PeerStore persists ban records as JSON in the node's key-value store.
type PeerStore struct {
	store storage.Store
}

func NewPeerStore(store storage.Store) *PeerStore {
	return &PeerStore{store: store}
}

func banKey(rec BanRecord) []byte {
	return append(append([]byte(nil), prefixBan...), rec.Key.String()...)
}

func (s *PeerStore) SaveBan(rec BanRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode ban: %w", err)
	}
	batch := storage.NewBatch()
	batch.Put(banKey(rec), raw)
	return s.store.Write(batch)
}

func (s *PeerStore) LoadBans() ([]BanRecord, error) {
	var out []BanRecord
	err := s.store.Iterate(prefixBan, func(key, value []byte) error {
		var rec BanRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("decode ban %q: %w", key, err)
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
