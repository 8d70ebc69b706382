package exporter

import "time"

const (
	defaultFlushSize     = 500
	defaultFlushInterval = 5 * time.Second
	defaultFlushRPS      = 10

	kindBlock       = "block"
	kindTransaction = "transaction"
	kindPeerEvent   = "peer_event"
)
