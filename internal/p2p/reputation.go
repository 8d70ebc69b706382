package p2p

import (
	"math"
	"net/netip"
	"slices"
	"sync"
	"time"

	"github.com/goodnatureofminers/btpc-node/internal/clock"
)

const (
	successWeight        = 0.1
	latencyWeight        = 0.2
	maxLongevityDays     = 30
	diversitySubnetLimit = 10
)

// PeerInfo is what the scorer knows about one peer address. History is
// kept per address, so a reconnect from a new source port resumes it.
type PeerInfo struct {
	Addr           netip.Addr
	FirstSeen      time.Time
	LastSeen       time.Time
	FailedAttempts uint32
	// AvgLatency is zero until the first sample.
	AvgLatency  time.Duration
	Misbehavior uint32
	SuccessRate float32
}

// ScoredPeer pairs a peer with its current score.
type ScoredPeer struct {
	PeerInfo
	Score float32
}

// Scorer ranks peers for selection and eviction. Scores are advisory and
// never feed a consensus decision.
type Scorer struct {
	clock clock.Clock

	mu    sync.RWMutex
	peers map[netip.Addr]*PeerInfo
	// subnets counts tracked IPv4 peers per /24.
	subnets map[netip.Prefix]int
}

func NewScorer(clk clock.Clock) *Scorer {
	return &Scorer{
		clock:   clk,
		peers:   make(map[netip.Addr]*PeerInfo),
		subnets: make(map[netip.Prefix]int),
	}
}

// Add starts tracking ip. Known peers keep their history.
func (s *Scorer) Add(ip netip.Addr) {
	ip, err := normalizeAddr(ip)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.peers[ip]; ok {
		return
	}
	now := s.clock.Now()
	s.peers[ip] = &PeerInfo{Addr: ip, FirstSeen: now, LastSeen: now}
	if subnet, ok := subnet24(ip); ok {
		s.subnets[subnet]++
	}
}

func (s *Scorer) Remove(ip netip.Addr) {
	ip, err := normalizeAddr(ip)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(ip)
}

func (s *Scorer) remove(ip netip.Addr) {
	if _, ok := s.peers[ip]; !ok {
		return
	}
	delete(s.peers, ip)
	if subnet, ok := subnet24(ip); ok {
		decrement(s.subnets, subnet)
	}
}

// Prune forgets peers idle for at least idle whose address has no live
// connection. It returns how many were removed.
func (s *Scorer) Prune(idle time.Duration, live func(netip.Addr) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	removed := 0
	for ip, p := range s.peers {
		if now.Sub(p.LastSeen) < idle || live(ip) {
			continue
		}
		s.remove(ip)
		removed++
	}
	return removed
}

// Len returns the number of tracked addresses.
func (s *Scorer) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// Seen marks ip as active now without changing its score.
func (s *Scorer) Seen(ip netip.Addr) {
	s.update(ip, func(p *PeerInfo) {
		p.LastSeen = s.clock.Now()
	})
}

func (s *Scorer) RecordSuccess(ip netip.Addr) {
	s.update(ip, func(p *PeerInfo) {
		p.LastSeen = s.clock.Now()
		p.SuccessRate = p.SuccessRate*(1-successWeight) + successWeight
	})
}

func (s *Scorer) RecordFailure(ip netip.Addr) {
	s.update(ip, func(p *PeerInfo) {
		p.SuccessRate *= 1 - successWeight
		p.FailedAttempts++
	})
}

// RecordLatency folds a round-trip sample into the moving average.
func (s *Scorer) RecordLatency(ip netip.Addr, latency time.Duration) {
	s.update(ip, func(p *PeerInfo) {
		if p.AvgLatency == 0 {
			p.AvgLatency = latency
			return
		}
		p.AvgLatency = time.Duration(float64(p.AvgLatency)*(1-latencyWeight) + float64(latency)*latencyWeight)
	})
}

// RecordMisbehavior adds points. The misbehavior score never decreases.
func (s *Scorer) RecordMisbehavior(ip netip.Addr, points uint32) {
	s.update(ip, func(p *PeerInfo) {
		p.Misbehavior = uint32(min(uint64(p.Misbehavior)+uint64(points), math.MaxUint32))
	})
}

func (s *Scorer) update(ip netip.Addr, fn func(p *PeerInfo)) {
	ip, err := normalizeAddr(ip)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.peers[ip]; ok {
		fn(p)
	}
}

// Info returns a copy of what is known about ip.
func (s *Scorer) Info(ip netip.Addr) (PeerInfo, bool) {
	ip, err := normalizeAddr(ip)
	if err != nil {
		return PeerInfo{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.peers[ip]
	if !ok {
		return PeerInfo{}, false
	}
	return *p, true
}

// Score returns the current score of ip, or 0 for unknown peers.
func (s *Scorer) Score(ip netip.Addr) float32 {
	ip, err := normalizeAddr(ip)
	if err != nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.peers[ip]
	if !ok {
		return 0
	}
	return s.score(p, s.clock.Now())
}

func (s *Scorer) score(p *PeerInfo, now time.Time) float32 {
	score := p.SuccessRate * 100

	days := float32(now.Sub(p.FirstSeen).Hours() / 24)
	score += max(min(days, maxLongevityDays), 0)

	switch {
	case p.AvgLatency == 0:
		score += 5
	case p.AvgLatency < 100*time.Millisecond:
		score += 20
	case p.AvgLatency < 500*time.Millisecond:
		score += 10
	}

	score -= 10 * float32(p.Misbehavior)
	if s.diverse(p.Addr) {
		score += 15
	}
	failed := float32(p.FailedAttempts)
	score -= failed * failed * 0.1

	return max(score, 0)
}

// diverse reports whether fewer than ten tracked peers share the /24 of ip.
// IPv6 peers always count as diverse.
func (s *Scorer) diverse(ip netip.Addr) bool {
	subnet, ok := subnet24(ip)
	if !ok {
		return true
	}
	return s.subnets[subnet] < diversitySubnetLimit
}

func subnet24(ip netip.Addr) (netip.Prefix, bool) {
	if !ip.Is4() {
		return netip.Prefix{}, false
	}
	p, _ := ip.Prefix(24)
	return p, true
}

// Ranked returns every peer ordered best first. Ties keep address order.
func (s *Scorer) Ranked() []ScoredPeer {
	s.mu.RLock()
	now := s.clock.Now()
	out := make([]ScoredPeer, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, ScoredPeer{PeerInfo: *p, Score: s.score(p, now)})
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b ScoredPeer) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return a.Addr.Compare(b.Addr)
		}
	})
	return out
}

// Worst picks the lowest scoring of candidates, the eviction choice.
// Candidates sharing an address share its score; ties go to the lowest
// address and port.
func (s *Scorer) Worst(candidates []netip.AddrPort) (netip.AddrPort, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock.Now()
	var (
		worst      netip.AddrPort
		worstScore float32
		found      bool
	)
	for _, addr := range candidates {
		addr = normalizeAddrPort(addr)
		var score float32
		if p, ok := s.peers[addr.Addr()]; ok {
			score = s.score(p, now)
		}
		if !found || score < worstScore || score == worstScore && addr.Compare(worst) < 0 {
			worst, worstScore, found = addr, score, true
		}
	}
	return worst, found
}
