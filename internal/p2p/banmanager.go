package p2p

import (
	"errors"
	"fmt"
	"net/netip"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/btpc-node/internal/clock"
)

// Offense is a kind of peer misbehavior worth a fixed number of points.
type Offense string

const (
	OffenseInvalidBlock       Offense = "invalid_block"
	OffenseInvalidTransaction Offense = "invalid_transaction"
	OffenseProtocolViolation  Offense = "protocol_violation"
	OffenseRateLimitExceeded  Offense = "rate_limit_exceeded"
	OffenseConnectionAbuse    Offense = "connection_abuse"
)

// Points is the misbehavior weight of o. An invalid block alone reaches the
// default ban threshold.
func (o Offense) Points() uint32 {
	switch o {
	case OffenseInvalidBlock:
		return 100
	case OffenseProtocolViolation:
		return 50
	case OffenseConnectionAbuse:
		return 20
	case OffenseInvalidTransaction:
		return 10
	case OffenseRateLimitExceeded:
		return 1
	default:
		return 0
	}
}

type BanReason string

const (
	ReasonManual                 BanReason = "manual"
	ReasonAccumulatedMisbehavior BanReason = "accumulated_misbehavior"
)

const (
	recentOffenseWindow = 10
	maxEscalationShift  = 5
)

type BanConfig struct {
	Threshold       uint32
	DefaultDuration time.Duration
	MaxDuration     time.Duration
	// DecayPoints are forgiven for every full DecayPeriod without offenses.
	DecayPeriod time.Duration
	DecayPoints uint32
}

func DefaultBanConfig() BanConfig {
	return BanConfig{
		Threshold:       100,
		DefaultDuration: 24 * time.Hour,
		MaxDuration:     30 * 24 * time.Hour,
		DecayPeriod:     time.Hour,
		DecayPoints:     10,
	}
}

// BanRecord is one ban. Count is the number of bans ever issued for Key and
// survives unban and expiry.
type BanRecord struct {
	Key      netip.Prefix  `json:"key"`
	Reason   BanReason     `json:"reason"`
	BannedAt time.Time     `json:"banned_at"`
	Duration time.Duration `json:"duration"`
	Count    uint32        `json:"count"`
}

func (r BanRecord) Expires() time.Time {
	return r.BannedAt.Add(r.Duration)
}

func (r BanRecord) activeAt(now time.Time) bool {
	return now.Before(r.Expires())
}

type offense struct {
	kind   Offense
	points uint32
}

type misbehavior struct {
	score   uint32
	updated time.Time
	recent  []offense
}

type BanStats struct {
	Active      int
	Misbehaving int
}

// BanManager tracks offense points per address and bans by address or subnet.
type BanManager struct {
	cfg    BanConfig
	store  banStore
	clock  clock.Clock
	logger *zap.Logger

	mu      sync.RWMutex
	bans    map[netip.Prefix]BanRecord
	history map[netip.Prefix]uint32
	scores  map[netip.Addr]*misbehavior
}

func NewBanManager(cfg BanConfig, store banStore, clk clock.Clock, logger *zap.Logger) (*BanManager, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if clk == nil {
		return nil, errors.New("clock is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &BanManager{
		cfg:     cfg,
		store:   store,
		clock:   clk,
		logger:  logger.Named("bans"),
		bans:    make(map[netip.Prefix]BanRecord),
		history: make(map[netip.Prefix]uint32),
		scores:  make(map[netip.Addr]*misbehavior),
	}, nil
}

// Load restores persisted bans and ban counts. Expired bans only contribute
// their count.
func (m *BanManager) Load() error {
	records, err := m.store.LoadBans()
	if err != nil {
		return fmt.Errorf("load bans: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	active := 0
	for _, rec := range records {
		m.history[rec.Key] = max(m.history[rec.Key], rec.Count)
		if rec.activeAt(now) {
			m.bans[rec.Key] = rec
			active++
		}
	}
	m.logger.Info("bans loaded", zap.Int("records", len(records)), zap.Int("active", active))
	return nil
}

// banKeys lists every key that can ban ip: the address itself and its
// enclosing /24 and /16 for IPv4, or /64 for IPv6.
func banKeys(ip netip.Addr) []netip.Prefix {
	exact := netip.PrefixFrom(ip, ip.BitLen())
	if ip.Is4() {
		p24, _ := ip.Prefix(24)
		p16, _ := ip.Prefix(16)
		return []netip.Prefix{exact, p24, p16}
	}
	p64, _ := ip.Prefix(64)
	return []netip.Prefix{exact, p64}
}

// IsBanned reports whether ip or one of its subnets is under an unexpired ban.
func (m *BanManager) IsBanned(ip netip.Addr) bool {
	ip, err := normalizeAddr(ip)
	if err != nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isBanned(ip, m.clock.Now())
}

func (m *BanManager) isBanned(ip netip.Addr, now time.Time) bool {
	for _, key := range banKeys(ip) {
		if rec, ok := m.bans[key]; ok && rec.activeAt(now) {
			return true
		}
	}
	return false
}

// NormalizeBanKey masks key and checks it is an address or a supported subnet.
func NormalizeBanKey(key netip.Prefix) (netip.Prefix, error) {
	if !key.IsValid() {
		return netip.Prefix{}, ErrUnsupportedBanKey
	}
	addr := key.Addr().Unmap().WithZone("")
	bits := key.Bits()
	if key.Addr().Is4In6() {
		bits -= 96
	}
	switch {
	case bits == addr.BitLen():
	case addr.Is4() && (bits == 24 || bits == 16):
	case addr.Is6() && bits == 64:
	default:
		return netip.Prefix{}, fmt.Errorf("%w: %s", ErrUnsupportedBanKey, key)
	}
	return netip.PrefixFrom(addr, bits).Masked(), nil
}

// Ban bans key for duration, or for the default duration when it is zero.
// Repeat bans of the same key double the duration up to the configured maximum.
func (m *BanManager) Ban(key netip.Prefix, reason BanReason, duration time.Duration) (BanRecord, error) {
	key, err := NormalizeBanKey(key)
	if err != nil {
		return BanRecord{}, err
	}
	m.mu.Lock()
	rec := m.ban(key, reason, duration)
	m.mu.Unlock()

	if err := m.store.SaveBan(rec); err != nil {
		return rec, fmt.Errorf("persist ban %s: %w", key, err)
	}
	return rec, nil
}

func (m *BanManager) ban(key netip.Prefix, reason BanReason, duration time.Duration) BanRecord {
	if duration <= 0 {
		duration = m.cfg.DefaultDuration
	}
	count := m.history[key] + 1
	shift := min(count-1, maxEscalationShift)
	escalated := duration << shift
	if escalated > m.cfg.MaxDuration || escalated>>shift != duration {
		escalated = m.cfg.MaxDuration
	}

	rec := BanRecord{
		Key:      key,
		Reason:   reason,
		BannedAt: m.clock.Now(),
		Duration: escalated,
		Count:    count,
	}
	m.bans[key] = rec
	m.history[key] = count
	if key.IsSingleIP() {
		delete(m.scores, key.Addr())
	}
	m.logger.Info("banned",
		zap.Stringer("key", key),
		zap.String("reason", string(reason)),
		zap.Duration("duration", escalated),
		zap.Uint32("count", count),
	)
	return rec
}

// Unban lifts a ban. The ban count is kept so a later ban still escalates.
func (m *BanManager) Unban(key netip.Prefix) (bool, error) {
	key, err := NormalizeBanKey(key)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	rec, ok := m.bans[key]
	delete(m.bans, key)
	m.mu.Unlock()
	if !ok {
		return false, nil
	}

	rec.Duration = 0
	if err := m.store.SaveBan(rec); err != nil {
		return true, fmt.Errorf("persist unban %s: %w", key, err)
	}
	return true, nil
}

// AddOffense charges ip for an offense. When the accumulated score reaches
// the threshold the address is banned and the new ban is returned.
// Offenses by an already banned address are ignored.
func (m *BanManager) AddOffense(ip netip.Addr, o Offense) (*BanRecord, error) {
	ip, err := normalizeAddr(ip)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	now := m.clock.Now()
	if m.isBanned(ip, now) {
		m.mu.Unlock()
		return nil, nil
	}

	info, ok := m.scores[ip]
	if !ok {
		info = &misbehavior{updated: now}
		m.scores[ip] = info
	}
	m.decay(info, now)

	points := o.Points()
	info.score = uint32(min(uint64(info.score)+uint64(points), uint64(^uint32(0))))
	info.recent = append(info.recent, offense{kind: o, points: points})
	if len(info.recent) > recentOffenseWindow {
		info.recent = slices.Clone(info.recent[len(info.recent)-recentOffenseWindow:])
	}
	if info.score < m.cfg.Threshold {
		m.mu.Unlock()
		return nil, nil
	}

	reason := banReason(info.recent)
	rec := m.ban(netip.PrefixFrom(ip, ip.BitLen()), reason, 0)
	m.mu.Unlock()

	if err := m.store.SaveBan(rec); err != nil {
		return &rec, fmt.Errorf("persist ban %s: %w", rec.Key, err)
	}
	return &rec, nil
}

func (m *BanManager) decay(info *misbehavior, now time.Time) {
	if m.cfg.DecayPeriod <= 0 {
		return
	}
	periods := now.Sub(info.updated) / m.cfg.DecayPeriod
	if periods <= 0 {
		return
	}
	forgiven := uint64(periods) * uint64(m.cfg.DecayPoints)
	if forgiven >= uint64(info.score) {
		info.score = 0
	} else {
		info.score -= uint32(forgiven)
	}
	info.updated = info.updated.Add(periods * m.cfg.DecayPeriod)
}

// banReason is the most severe recent offense, unless nothing recent was
// at least a protocol violation.
func banReason(recent []offense) BanReason {
	var worst offense
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].points > worst.points {
			worst = recent[i]
		}
	}
	if worst.points < OffenseProtocolViolation.Points() {
		return ReasonAccumulatedMisbehavior
	}
	return BanReason(worst.kind)
}

// Score returns the current misbehavior points of ip.
func (m *BanManager) Score(ip netip.Addr) uint32 {
	ip, err := normalizeAddr(ip)
	if err != nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.scores[ip]
	if !ok {
		return 0
	}
	m.decay(info, m.clock.Now())
	return info.score
}

// Sweep drops expired bans and fully decayed scores. It returns the number
// of bans removed.
func (m *BanManager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	removed := 0
	for key, rec := range m.bans {
		if !rec.activeAt(now) {
			delete(m.bans, key)
			removed++
		}
	}
	for ip, info := range m.scores {
		m.decay(info, now)
		if info.score == 0 {
			delete(m.scores, ip)
		}
	}
	return removed
}

// Bans returns the unexpired bans ordered by key.
func (m *BanManager) Bans() []BanRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.clock.Now()
	out := make([]BanRecord, 0, len(m.bans))
	for _, rec := range m.bans {
		if rec.activeAt(now) {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b BanRecord) int {
		if c := a.Key.Addr().Compare(b.Key.Addr()); c != 0 {
			return c
		}
		return a.Key.Bits() - b.Key.Bits()
	})
	return out
}

func (m *BanManager) Stats() BanStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.clock.Now()
	stats := BanStats{Misbehaving: len(m.scores)}
	for _, rec := range m.bans {
		if rec.activeAt(now) {
			stats.Active++
		}
	}
	return stats
}
