// Package config loads the node's peer and export policy from TOML.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/time/rate"

	"github.com/goodnatureofminers/btpc-node/internal/p2p"
	"github.com/goodnatureofminers/btpc-node/internal/service/exporter"
)

type ConnectionPolicy struct {
	PerIP       int `toml:"per_ip"`
	PerSubnet24 int `toml:"per_subnet24"`
	PerSubnet16 int `toml:"per_subnet16"`
	Total       int `toml:"total"`
}

type RateLimitPolicy struct {
	MessagesPerWindow uint32        `toml:"messages_per_window"`
	BytesPerWindow    uint64        `toml:"bytes_per_window"`
	Window            time.Duration `toml:"window"`
}

type BanPolicy struct {
	Threshold       uint32        `toml:"threshold"`
	DefaultDuration time.Duration `toml:"default_duration"`
	MaxDuration     time.Duration `toml:"max_duration"`
	DecayPeriod     time.Duration `toml:"decay_period"`
	DecayPoints     uint32        `toml:"decay_points"`
}

// AttemptPolicy throttles connection attempts per address: one attempt per
// Interval with bursts of Burst.
type AttemptPolicy struct {
	Interval time.Duration `toml:"interval"`
	Burst    int           `toml:"burst"`
	IdleTTL  time.Duration `toml:"idle_ttl"`
}

type ExporterPolicy struct {
	FlushSize     int           `toml:"flush_size"`
	FlushInterval time.Duration `toml:"flush_interval"`
	FlushRPS      int           `toml:"flush_rps"`
}

// Policy is the tunable part of node behaviour. Consensus parameters are
// fixed per network and not configurable here.
type Policy struct {
	Connections   ConnectionPolicy `toml:"connections"`
	RateLimit     RateLimitPolicy  `toml:"rate_limit"`
	Bans          BanPolicy        `toml:"bans"`
	Attempts      AttemptPolicy    `toml:"attempts"`
	Exporter      ExporterPolicy   `toml:"exporter"`
	SweepInterval time.Duration    `toml:"sweep_interval"`
}

func Default() *Policy {
	conns := p2p.DefaultConnectionLimits()
	rl := p2p.DefaultRateLimiterConfig()
	bans := p2p.DefaultBanConfig()
	exp := exporter.DefaultConfig()
	return &Policy{
		Connections: ConnectionPolicy{
			PerIP:       conns.PerIP,
			PerSubnet24: conns.PerSubnet24,
			PerSubnet16: conns.PerSubnet16,
			Total:       conns.Total,
		},
		RateLimit: RateLimitPolicy{
			MessagesPerWindow: rl.MessagesPerWindow,
			BytesPerWindow:    rl.BytesPerWindow,
			Window:            rl.Window,
		},
		Bans: BanPolicy{
			Threshold:       bans.Threshold,
			DefaultDuration: bans.DefaultDuration,
			MaxDuration:     bans.MaxDuration,
			DecayPeriod:     bans.DecayPeriod,
			DecayPoints:     bans.DecayPoints,
		},
		Attempts: AttemptPolicy{
			Interval: 10 * time.Second,
			Burst:    5,
			IdleTTL:  10 * time.Minute,
		},
		Exporter: ExporterPolicy{
			FlushSize:     exp.FlushSize,
			FlushInterval: exp.FlushInterval,
			FlushRPS:      exp.FlushRPS,
		},
		SweepInterval: time.Minute,
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
// Unknown keys are an error so typos do not silently fall back.
func Load(path string) (*Policy, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	meta, err := toml.DecodeFile(path, p)
	if err != nil {
		return nil, fmt.Errorf("decode policy %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("policy %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

// Validate reports every out-of-range setting at once.
func (p *Policy) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	c := p.Connections
	check(c.PerIP > 0, "connections.per_ip must be positive")
	check(c.PerSubnet24 >= c.PerIP, "connections.per_subnet24 (%d) is below per_ip (%d)", c.PerSubnet24, c.PerIP)
	check(c.PerSubnet16 >= c.PerSubnet24, "connections.per_subnet16 (%d) is below per_subnet24 (%d)", c.PerSubnet16, c.PerSubnet24)
	check(c.Total >= c.PerIP, "connections.total (%d) is below per_ip (%d)", c.Total, c.PerIP)

	check(p.RateLimit.MessagesPerWindow > 0, "rate_limit.messages_per_window must be positive")
	check(p.RateLimit.BytesPerWindow > 0, "rate_limit.bytes_per_window must be positive")
	check(p.RateLimit.Window > 0, "rate_limit.window must be positive")

	b := p.Bans
	check(b.Threshold > 0, "bans.threshold must be positive")
	check(b.DefaultDuration > 0, "bans.default_duration must be positive")
	check(b.MaxDuration >= b.DefaultDuration, "bans.max_duration (%s) is below default_duration (%s)", b.MaxDuration, b.DefaultDuration)
	check(b.DecayPeriod > 0, "bans.decay_period must be positive")

	check(p.Attempts.Interval > 0, "attempts.interval must be positive")
	check(p.Attempts.Burst >= 0, "attempts.burst must not be negative")
	check(p.Attempts.IdleTTL > 0, "attempts.idle_ttl must be positive")

	check(p.Exporter.FlushSize > 0, "exporter.flush_size must be positive")
	check(p.Exporter.FlushInterval > 0, "exporter.flush_interval must be positive")
	check(p.Exporter.FlushRPS >= 0, "exporter.flush_rps must not be negative")

	check(p.SweepInterval > 0, "sweep_interval must be positive")
	return errors.Join(errs...)
}

// P2P converts the policy into registry configuration.
func (p *Policy) P2P() p2p.Config {
	return p2p.Config{
		Connections: p2p.ConnectionLimits{
			PerIP:       p.Connections.PerIP,
			PerSubnet24: p.Connections.PerSubnet24,
			PerSubnet16: p.Connections.PerSubnet16,
			Total:       p.Connections.Total,
		},
		RateLimit: p2p.RateLimiterConfig{
			MessagesPerWindow: p.RateLimit.MessagesPerWindow,
			BytesPerWindow:    p.RateLimit.BytesPerWindow,
			Window:            p.RateLimit.Window,
		},
		Bans: p2p.BanConfig{
			Threshold:       p.Bans.Threshold,
			DefaultDuration: p.Bans.DefaultDuration,
			MaxDuration:     p.Bans.MaxDuration,
			DecayPeriod:     p.Bans.DecayPeriod,
			DecayPoints:     p.Bans.DecayPoints,
		},
		AttemptRate:  rate.Every(p.Attempts.Interval),
		AttemptBurst: p.Attempts.Burst,
		IdleTTL:      p.Attempts.IdleTTL,
	}
}

func (p *Policy) ExporterConfig() exporter.Config {
	return exporter.Config{
		FlushSize:     p.Exporter.FlushSize,
		FlushInterval: p.Exporter.FlushInterval,
		FlushRPS:      p.Exporter.FlushRPS,
	}
}

// Encode writes the policy as TOML.
func (p *Policy) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(p)
}
