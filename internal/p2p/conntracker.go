package p2p

import (
	"net/netip"
	"sync"
)

// ConnectionLimits caps connections per address, per subnet and in total.
// IPv6 /64 subnets share the /24 limit.
type ConnectionLimits struct {
	PerIP       int
	PerSubnet24 int
	PerSubnet16 int
	Total       int
}

func DefaultConnectionLimits() ConnectionLimits {
	return ConnectionLimits{PerIP: 3, PerSubnet24: 10, PerSubnet16: 20, Total: 125}
}

type ConnectionStats struct {
	Total     int
	UniqueIPs int
	Subnets24 int
	Subnets16 int
	Subnets64 int
}

// ConnectionTracker counts live connections by address and subnet.
type ConnectionTracker struct {
	limits ConnectionLimits

	mu       sync.Mutex
	byIP     map[netip.Addr]int
	bySubnet map[netip.Prefix]int
	total    int
}

func NewConnectionTracker(limits ConnectionLimits) *ConnectionTracker {
	return &ConnectionTracker{
		limits:   limits,
		byIP:     make(map[netip.Addr]int),
		bySubnet: make(map[netip.Prefix]int),
	}
}

type subnetLimit struct {
	prefix netip.Prefix
	limit  int
}

// subnetsOf lists the subnets an address is counted in, narrowest first.
func (t *ConnectionTracker) subnetsOf(ip netip.Addr) []subnetLimit {
	if ip.Is4() {
		p24, _ := ip.Prefix(24)
		p16, _ := ip.Prefix(16)
		return []subnetLimit{{p24, t.limits.PerSubnet24}, {p16, t.limits.PerSubnet16}}
	}
	p64, _ := ip.Prefix(64)
	return []subnetLimit{{p64, t.limits.PerSubnet24}}
}

// CanAccept reports whether one more connection from ip fits every limit.
// Limits are checked total first, then per address, then per subnet.
func (t *ConnectionTracker) CanAccept(ip netip.Addr) error {
	ip, err := normalizeAddr(ip)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canAccept(ip)
}

func (t *ConnectionTracker) canAccept(ip netip.Addr) error {
	if t.total >= t.limits.Total {
		return &TotalLimitExceededError{Current: t.total, Limit: t.limits.Total}
	}
	if n := t.byIP[ip]; n >= t.limits.PerIP {
		return &PerIPLimitExceededError{IP: ip, Current: n, Limit: t.limits.PerIP}
	}
	for _, s := range t.subnetsOf(ip) {
		if n := t.bySubnet[s.prefix]; n >= s.limit {
			return &SubnetLimitExceededError{Subnet: s.prefix, Current: n, Limit: s.limit}
		}
	}
	return nil
}

// AddConnection admits and counts a connection in one step.
func (t *ConnectionTracker) AddConnection(ip netip.Addr) error {
	ip, err := normalizeAddr(ip)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.canAccept(ip); err != nil {
		return err
	}
	t.total++
	t.byIP[ip]++
	for _, s := range t.subnetsOf(ip) {
		t.bySubnet[s.prefix]++
	}
	return nil
}

// RemoveConnection releases a connection. Unknown addresses are ignored.
func (t *ConnectionTracker) RemoveConnection(ip netip.Addr) {
	ip, err := normalizeAddr(ip)
	if err != nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.byIP[ip]; !ok {
		return
	}
	t.total = max(t.total-1, 0)
	decrement(t.byIP, ip)
	for _, s := range t.subnetsOf(ip) {
		decrement(t.bySubnet, s.prefix)
	}
}

func decrement[K comparable](m map[K]int, k K) {
	if m[k] <= 1 {
		delete(m, k)
		return
	}
	m[k]--
}

// Connections returns the live connection count of ip.
func (t *ConnectionTracker) Connections(ip netip.Addr) int {
	ip, err := normalizeAddr(ip)
	if err != nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byIP[ip]
}

func (t *ConnectionTracker) Stats() ConnectionStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := ConnectionStats{Total: t.total, UniqueIPs: len(t.byIP)}
	for p := range t.bySubnet {
		switch {
		case p.Addr().Is6():
			stats.Subnets64++
		case p.Bits() == 24:
			stats.Subnets24++
		default:
			stats.Subnets16++
		}
	}
	return stats
}

func (t *ConnectionTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.byIP)
	clear(t.bySubnet)
	t.total = 0
}

// normalizeAddr folds IPv4-mapped IPv6 addresses into IPv4 and drops zones
// so the same host always lands on the same counters.
func normalizeAddr(ip netip.Addr) (netip.Addr, error) {
	if !ip.IsValid() {
		return netip.Addr{}, ErrInvalidAddress
	}
	return ip.Unmap().WithZone(""), nil
}

func normalizeAddrPort(addr netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(addr.Addr().Unmap().WithZone(""), addr.Port())
}
