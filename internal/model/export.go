package model

import "time"

// ExportBlock describes an accepted block stored in ClickHouse.
type ExportBlock struct {
	Network    Network
	Height     uint32
	Hash       string
	PrevHash   string
	Timestamp  time.Time
	Version    uint32
	MerkleRoot string
	Bits       uint32
	Nonce      uint32
	Size       uint32
	TxCount    uint32
	Fees       uint64
}

// ExportTransaction describes a confirmed transaction stored in ClickHouse.
type ExportTransaction struct {
	Network     Network
	TxID        string
	BlockHash   string
	BlockHeight uint32
	BlockTime   time.Time
	Index       uint32
	Size        uint32
	Version     uint32
	LockTime    uint32
	InputCount  uint32
	OutputCount uint32
	OutputValue uint64
	IsCoinbase  bool
}

// ExportPeerEvent describes a peer policy decision stored in ClickHouse.
type ExportPeerEvent struct {
	Network Network
	Time    time.Time
	Addr    string
	Kind    string
	Reason  string
	Points  uint32
	// Until is nil unless the event is a ban.
	Until *time.Time
}
