package consensus

import (
	"fmt"

	"github.com/goodnatureofminers/btpc-node/internal/model"
)

const (
	// CoinbaseMaturity is the confirmation depth before minted coins may be spent.
	CoinbaseMaturity = 100
	// MedianTimeSpan is the number of ancestors feeding median-time-past.
	MedianTimeSpan = 11
	// MaxFutureBlockTime bounds how far a block timestamp may run ahead of local time, in seconds.
	MaxFutureBlockTime = 2 * 60 * 60
)

// Params holds the per-network consensus constants.
type Params struct {
	Network model.Network
	ForkID  uint8

	PowLimitBits        uint32
	RetargetInterval    uint32
	TargetSpacing       uint64
	MaxAdjustmentFactor uint64
	MaxTimespanMultiple uint64

	CoinbaseMaturity   uint32
	MedianTimeSpan     int
	MaxFutureBlockTime uint64

	Reward           RewardParams
	GenesisTimestamp uint64

	powLimit DifficultyTarget
}

// ParamsFor returns the consensus parameters of a known network.
func ParamsFor(network model.Network) (*Params, error) {
	p := &Params{
		Network:             network,
		ForkID:              network.ForkID(),
		RetargetInterval:    2016,
		TargetSpacing:       600,
		MaxAdjustmentFactor: 4,
		MaxTimespanMultiple: 10,
		CoinbaseMaturity:    CoinbaseMaturity,
		MedianTimeSpan:      MedianTimeSpan,
		MaxFutureBlockTime:  MaxFutureBlockTime,
		Reward:              MainnetRewardParams(),
		GenesisTimestamp:    1735344000,
	}
	switch network {
	case model.Mainnet:
		p.PowLimitBits = 0x3e00ffff
	case model.Testnet:
		p.PowLimitBits = 0x3f0fffff
	case model.Regtest:
		p.PowLimitBits = 0x407fffff
	default:
		return nil, fmt.Errorf("unknown network %q", network)
	}
	if err := p.Init(); err != nil {
		return nil, err
	}
	return p, nil
}

// Init derives cached values and checks the parameters for consistency.
// Callers that build Params by hand must call it before use.
func (p *Params) Init() error {
	limit, err := TargetFromBits(p.PowLimitBits)
	if err != nil {
		return fmt.Errorf("pow limit: %w", err)
	}
	if p.RetargetInterval == 0 || p.TargetSpacing == 0 {
		return fmt.Errorf("retarget interval and target spacing must be positive")
	}
	if p.MaxAdjustmentFactor == 0 || p.MaxTimespanMultiple == 0 {
		return fmt.Errorf("adjustment bounds must be positive")
	}
	if p.MedianTimeSpan <= 0 {
		return fmt.Errorf("median time span must be positive")
	}
	if err := ValidateRewardParams(p.Reward); err != nil {
		return fmt.Errorf("reward params: %w", err)
	}
	p.powLimit = limit
	return nil
}

// PowLimit is the easiest target the network accepts.
func (p *Params) PowLimit() DifficultyTarget {
	return p.powLimit
}

// TargetTimespan is the expected duration of one retarget window, in seconds.
func (p *Params) TargetTimespan() uint64 {
	return uint64(p.RetargetInterval) * p.TargetSpacing
}

// IsRetargetHeight reports whether a block at height recomputes difficulty.
func (p *Params) IsRetargetHeight(height uint32) bool {
	return height > 0 && height%p.RetargetInterval == 0
}
