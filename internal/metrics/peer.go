package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	peerAdmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btpc",
		Subsystem: "peer",
		Name:      "admissions_total",
		Help:      "Count of inbound connection admission decisions.",
	}, []string{"outcome"})

	peerMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btpc",
		Subsystem: "peer",
		Name:      "messages_total",
		Help:      "Count of peer messages checked against rate and size policy.",
	}, []string{"command", "status"})

	peerOffensesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btpc",
		Subsystem: "peer",
		Name:      "offenses_total",
		Help:      "Count of recorded peer offenses by kind.",
	}, []string{"offense"})

	peerBansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btpc",
		Subsystem: "peer",
		Name:      "bans_total",
		Help:      "Count of bans issued by reason.",
	}, []string{"reason"})

	peerConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "btpc",
		Subsystem: "peer",
		Name:      "connections",
		Help:      "Number of currently admitted connections.",
	})

	peerActiveBans = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "btpc",
		Subsystem: "peer",
		Name:      "active_bans",
		Help:      "Number of unexpired ban entries.",
	})
)

// Peer tracks metrics for peer admission and policing.
type Peer struct{}

// NewPeer constructs a Peer collector.
func NewPeer() *Peer {
	return &Peer{}
}

// ObserveAdmission records an admission decision. outcome is "accepted" or a reject reason.
func (Peer) ObserveAdmission(outcome string) {
	peerAdmissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveMessage records whether a message passed rate and size checks.
func (Peer) ObserveMessage(command string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	peerMessagesTotal.WithLabelValues(command, status).Inc()
}

func (Peer) ObserveOffense(offense string) {
	peerOffensesTotal.WithLabelValues(offense).Inc()
}

func (Peer) ObserveBan(reason string) {
	peerBansTotal.WithLabelValues(reason).Inc()
}

// SetConnections publishes the live connection count.
func (Peer) SetConnections(n int) {
	peerConnections.Set(float64(n))
}

// SetActiveBans publishes the unexpired ban count.
func (Peer) SetActiveBans(n int) {
	peerActiveBans.Set(float64(n))
}
