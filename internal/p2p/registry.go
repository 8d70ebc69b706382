// Package p2p polices peers: connection admission, per-peer message rate
// and size limits, misbehavior scoring and bans. It carries no transport.
package p2p

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/goodnatureofminers/btpc-node/internal/clock"
)

// Config is the complete peer policy.
type Config struct {
	Connections ConnectionLimits
	RateLimit   RateLimiterConfig
	Bans        BanConfig
	// AttemptRate and AttemptBurst throttle connection attempts per address.
	AttemptRate  rate.Limit
	AttemptBurst int
	// IdleTTL is how long an unused attempt throttle, or the reputation of
	// a peer with no live connection, is kept.
	IdleTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		Connections:  DefaultConnectionLimits(),
		RateLimit:    DefaultRateLimiterConfig(),
		Bans:         DefaultBanConfig(),
		AttemptRate:  rate.Every(10 * time.Second),
		AttemptBurst: 5,
		IdleTTL:      10 * time.Minute,
	}
}

// Session is an admitted connection. Closing it twice is a no-op.
type Session struct {
	addr     netip.AddrPort
	limiter  *RateLimiter
	registry *Registry
	opened   time.Time
	closed   atomic.Bool
}

func (s *Session) Addr() netip.AddrPort { return s.addr }

// Close releases the connection slot held by s.
func (s *Session) Close() {
	s.registry.Disconnect(s)
}

type attemptThrottle struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RegistryOption func(*Registry)

func WithRegistryClock(c clock.Clock) RegistryOption {
	return func(r *Registry) { r.clock = c }
}

func WithPeerEventSink(s EventSink) RegistryOption {
	return func(r *Registry) { r.sink = s }
}

// Registry owns every piece of peer policy state. It is safe for concurrent use.
type Registry struct {
	cfg       Config
	clock     clock.Clock
	tracker   *ConnectionTracker
	scorer    *Scorer
	bans      *BanManager
	validator *MessageValidator
	metrics   registryMetrics
	sink      EventSink
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[*Session]struct{}
	attempts map[netip.Addr]*attemptThrottle
}

func NewRegistry(cfg Config, bans *BanManager, metrics registryMetrics, logger *zap.Logger, opts ...RegistryOption) (*Registry, error) {
	if bans == nil {
		return nil, errors.New("ban manager is required")
	}
	if metrics == nil {
		return nil, errors.New("metrics is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	r := &Registry{
		cfg:       cfg,
		clock:     clock.System{},
		tracker:   NewConnectionTracker(cfg.Connections),
		bans:      bans,
		validator: NewMessageValidator(),
		metrics:   metrics,
		logger:    logger.Named("p2p"),
		sessions:  make(map[*Session]struct{}),
		attempts:  make(map[netip.Addr]*attemptThrottle),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.scorer = NewScorer(r.clock)
	return r, nil
}

func (r *Registry) Scorer() *Scorer { return r.scorer }

func (r *Registry) Bans() *BanManager { return r.bans }

func (r *Registry) Tracker() *ConnectionTracker { return r.tracker }

// Admit decides whether an inbound connection from addr may proceed.
func (r *Registry) Admit(addr netip.AddrPort) (*Session, error) {
	addr = normalizeAddrPort(addr)
	ip := addr.Addr()
	if !ip.IsValid() {
		return nil, ErrInvalidAddress
	}

	if r.bans.IsBanned(ip) {
		r.rejectAdmission(addr, "banned", ErrBanned)
		return nil, ErrBanned
	}

	if !r.allowAttempt(ip) {
		err := fmt.Errorf("%w: %s", ErrConnectionAttemptsExceeded, ip)
		r.rejectAdmission(addr, "attempts_exceeded", err)
		r.penalize(addr, OffenseConnectionAbuse)
		return nil, err
	}

	if err := r.tracker.AddConnection(ip); err != nil {
		r.rejectAdmission(addr, limitOutcome(err), err)
		return nil, err
	}

	s := &Session{
		addr:     addr,
		limiter:  NewRateLimiter(r.cfg.RateLimit, r.clock),
		registry: r,
		opened:   r.clock.Now(),
	}
	r.mu.Lock()
	r.sessions[s] = struct{}{}
	n := len(r.sessions)
	r.mu.Unlock()

	r.scorer.Add(ip)
	r.scorer.RecordSuccess(ip)
	r.metrics.ObserveAdmission("accepted")
	r.metrics.SetConnections(n)
	r.logger.Debug("peer admitted", zap.Stringer("addr", addr))
	return s, nil
}

func limitOutcome(err error) string {
	var (
		total  *TotalLimitExceededError
		perIP  *PerIPLimitExceededError
		subnet *SubnetLimitExceededError
	)
	switch {
	case errors.As(err, &total):
		return "total_limit"
	case errors.As(err, &perIP):
		return "per_ip_limit"
	case errors.As(err, &subnet):
		return "subnet_limit"
	default:
		return "error"
	}
}

func (r *Registry) rejectAdmission(addr netip.AddrPort, outcome string, err error) {
	r.metrics.ObserveAdmission(outcome)
	r.scorer.RecordFailure(addr.Addr())
	r.logger.Debug("peer rejected", zap.Stringer("addr", addr), zap.String("outcome", outcome), zap.Error(err))
	r.emit(PeerEvent{Addr: addr, Kind: EventAdmissionRejected, Reason: outcome})
}

func (r *Registry) allowAttempt(ip netip.Addr) bool {
	if r.cfg.AttemptBurst <= 0 {
		return true
	}
	now := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.attempts[ip]
	if !ok {
		t = &attemptThrottle{limiter: rate.NewLimiter(r.cfg.AttemptRate, r.cfg.AttemptBurst)}
		r.attempts[ip] = t
	}
	t.lastSeen = now
	return t.limiter.AllowN(now, 1)
}

// Disconnect releases the slot of s exactly once.
func (r *Registry) Disconnect(s *Session) {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return
	}
	r.tracker.RemoveConnection(s.addr.Addr())
	r.scorer.Seen(s.addr.Addr())

	r.mu.Lock()
	delete(r.sessions, s)
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetConnections(n)
	r.logger.Debug("peer disconnected", zap.Stringer("addr", s.addr), zap.Duration("connected", r.clock.Now().Sub(s.opened)))
}

// HandleMessage checks one inbound message against the rate and size policy
// of its session. A failing message charges the peer an offense; banned
// reports whether the peer is banned afterwards and should be dropped.
func (r *Registry) HandleMessage(s *Session, command string, payload []byte) (banned bool, err error) {
	if s.closed.Load() {
		return false, ErrSessionClosed
	}
	defer func() { r.metrics.ObserveMessage(command, err) }()

	if err := s.limiter.CheckAndRecord(uint64(len(payload))); err != nil {
		return r.penalize(s.addr, OffenseRateLimitExceeded), err
	}
	if err := r.validator.Validate(command, payload); err != nil {
		return r.penalize(s.addr, OffenseProtocolViolation), err
	}
	return false, nil
}

// ReportInvalidBlock charges the peer that relayed a block failing validation.
func (r *Registry) ReportInvalidBlock(s *Session) bool {
	return r.penalize(s.addr, OffenseInvalidBlock)
}

// ReportInvalidTransaction charges the peer that relayed an invalid transaction.
func (r *Registry) ReportInvalidTransaction(s *Session) bool {
	return r.penalize(s.addr, OffenseInvalidTransaction)
}

// ReportLatency records a round-trip sample for ranking.
func (r *Registry) ReportLatency(s *Session, latency time.Duration) {
	r.scorer.RecordLatency(s.addr.Addr(), latency)
}

func (r *Registry) penalize(addr netip.AddrPort, o Offense) bool {
	points := o.Points()
	r.metrics.ObserveOffense(string(o))
	r.scorer.RecordMisbehavior(addr.Addr(), points)
	r.emit(PeerEvent{Addr: addr, Kind: EventOffense, Reason: string(o), Points: points})

	rec, err := r.bans.AddOffense(addr.Addr(), o)
	if err != nil {
		r.logger.Error("record offense", zap.Stringer("addr", addr), zap.Error(err))
	}
	if rec != nil {
		r.metrics.ObserveBan(string(rec.Reason))
		r.metrics.SetActiveBans(r.bans.Stats().Active)
		r.emit(PeerEvent{Addr: addr, Kind: EventBan, Reason: string(rec.Reason), Until: rec.Expires()})
		r.logger.Warn("peer banned",
			zap.Stringer("addr", addr),
			zap.String("reason", string(rec.Reason)),
			zap.Time("until", rec.Expires()),
		)
	}
	return r.bans.IsBanned(addr.Addr())
}

func (r *Registry) emit(e PeerEvent) {
	if r.sink == nil {
		return
	}
	e.Time = r.clock.Now()
	r.sink.PeerEvent(e)
}

// Ban bans key manually and reports it like any other ban.
func (r *Registry) Ban(key netip.Prefix, duration time.Duration) (BanRecord, error) {
	rec, err := r.bans.Ban(key, ReasonManual, duration)
	if rec.Count == 0 {
		return rec, err
	}
	r.metrics.ObserveBan(string(ReasonManual))
	r.metrics.SetActiveBans(r.bans.Stats().Active)
	r.emit(PeerEvent{Addr: netip.AddrPortFrom(rec.Key.Addr(), 0), Kind: EventBan, Reason: string(ReasonManual), Until: rec.Expires()})
	return rec, err
}

// Sessions returns the live sessions.
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Evict picks the worst scoring live session. The caller closes it.
func (r *Registry) Evict() (*Session, bool) {
	sessions := r.Sessions()
	if len(sessions) == 0 {
		return nil, false
	}
	addrs := make([]netip.AddrPort, len(sessions))
	for i, s := range sessions {
		addrs[i] = s.addr
	}
	worst, ok := r.scorer.Worst(addrs)
	if !ok {
		return nil, false
	}
	for _, s := range sessions {
		if s.addr == worst {
			return s, true
		}
	}
	return nil, false
}

// Sweep purges expired bans, idle attempt throttles and the reputation of
// peers that have been disconnected for IdleTTL.
func (r *Registry) Sweep(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	removed := r.bans.Sweep()

	now := r.clock.Now()
	idle := 0
	r.mu.Lock()
	for ip, t := range r.attempts {
		if now.Sub(t.lastSeen) >= r.cfg.IdleTTL {
			delete(r.attempts, ip)
			idle++
		}
	}
	r.mu.Unlock()

	pruned := r.scorer.Prune(r.cfg.IdleTTL, func(ip netip.Addr) bool {
		return r.tracker.Connections(ip) > 0
	})

	r.metrics.SetActiveBans(r.bans.Stats().Active)
	if removed > 0 || idle > 0 || pruned > 0 {
		r.logger.Debug("swept peer state",
			zap.Int("bans", removed),
			zap.Int("throttles", idle),
			zap.Int("peers", pruned),
		)
	}
	return nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) error {
	return clock.Every(ctx, interval, r.Sweep)
}
