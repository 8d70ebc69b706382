package p2p

import (
	"net/netip"
	"time"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	banStore interface {
		SaveBan(rec BanRecord) error
		LoadBans() ([]BanRecord, error)
	}
	registryMetrics interface {
		ObserveAdmission(outcome string)
		ObserveMessage(command string, err error)
		ObserveOffense(offense string)
		ObserveBan(reason string)
		SetConnections(n int)
		SetActiveBans(n int)
	}
	// EventSink receives peer policy events. Implementations must not block.
	EventSink interface {
		PeerEvent(event PeerEvent)
	}
)

type EventKind string

const (
	EventAdmissionRejected EventKind = "admission_rejected"
	EventOffense           EventKind = "offense"
	EventBan               EventKind = "ban"
)

// PeerEvent describes one policy decision about a peer.
type PeerEvent struct {
	Time   time.Time
	Addr   netip.AddrPort
	Kind   EventKind
	Reason string
	// Points is set for offenses.
	Points uint32
	// Until is set for bans.
	Until time.Time
}
