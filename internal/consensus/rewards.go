package consensus

import (
	"math"

	"github.com/holiman/uint256"
)

// RewardParams describes the emission schedule: a linear decay from
// InitialReward to TailEmission over DecayYears, then a constant tail.
type RewardParams struct {
	InitialReward uint64
	TailEmission  uint64
	BlocksPerYear uint32
	DecayYears    uint32
}

// MainnetRewardParams is the production emission schedule.
func MainnetRewardParams() RewardParams {
	return RewardParams{
		InitialReward: 3_237_500_000,
		TailEmission:  50_000_000,
		BlocksPerYear: 52_560,
		DecayYears:    24,
	}
}

// ValidateRewardParams checks that the schedule is usable at every u32 height.
func ValidateRewardParams(p RewardParams) error {
	switch {
	case p.InitialReward == 0:
		return ErrInvalidInitialReward
	case p.TailEmission == 0:
		return ErrInvalidTailEmission
	case p.InitialReward <= p.TailEmission:
		return ErrInvalidDecayRange
	case p.BlocksPerYear == 0:
		return ErrInvalidBlocksPerYear
	case p.DecayYears == 0:
		return ErrInvalidDecayYears
	case uint64(p.BlocksPerYear)*uint64(p.DecayYears) > math.MaxUint32:
		return ErrDecayPeriodTooLong
	}
	return nil
}

func (p RewardParams) decayBlocks() uint64 {
	return uint64(p.BlocksPerYear) * uint64(p.DecayYears)
}

// TailEmissionStartHeight is the first height paying only the tail emission.
func TailEmissionStartHeight(p RewardParams) uint64 {
	return p.decayBlocks()
}

// BlockReward returns the subsidy of the block at height.
func BlockReward(height uint32, p RewardParams) uint64 {
	if height == 0 {
		return p.InitialReward
	}
	decay := p.decayBlocks()
	if decay == 0 || uint64(height) >= decay || p.InitialReward <= p.TailEmission {
		return p.TailEmission
	}

	drop := uint256.NewInt(p.InitialReward - p.TailEmission)
	drop.Mul(drop, uint256.NewInt(uint64(height)))
	drop.Div(drop, uint256.NewInt(decay))

	reward := p.InitialReward - drop.Uint64()
	if reward < p.TailEmission {
		return p.TailEmission
	}
	return reward
}

// RewardAtYear returns the subsidy paid at the start of the given year.
func RewardAtYear(year uint32, p RewardParams) uint64 {
	if year >= p.DecayYears {
		return p.TailEmission
	}
	height := uint64(year) * uint64(p.BlocksPerYear)
	if height > math.MaxUint32 {
		return p.TailEmission
	}
	return BlockReward(uint32(height), p)
}

// TotalSupply returns the sum of every block reward from genesis through
// height inclusive. It is computed in closed form and reports
// ErrSupplyOverflow when the sum does not fit in 64 bits.
func TotalSupply(height uint32, p RewardParams) (uint64, error) {
	if err := ValidateRewardParams(p); err != nil {
		return 0, err
	}
	decay := p.decayBlocks()
	blocks := uint64(height) + 1

	decayCount := min(blocks, decay)
	tailCount := blocks - decayCount

	// sum over h in [0, decayCount) of initial - floor(drop*h/decay)
	total := new(uint256.Int)
	if _, overflow := total.MulOverflow(uint256.NewInt(decayCount), uint256.NewInt(p.InitialReward)); overflow {
		return 0, ErrSupplyOverflow
	}
	drop, err := floorSum(decayCount, decay, p.InitialReward-p.TailEmission, 0)
	if err != nil {
		return 0, err
	}
	if _, underflow := total.SubOverflow(total, drop); underflow {
		return 0, ErrSupplyOverflow
	}

	tail := new(uint256.Int)
	if _, overflow := tail.MulOverflow(uint256.NewInt(tailCount), uint256.NewInt(p.TailEmission)); overflow {
		return 0, ErrSupplyOverflow
	}
	if _, overflow := total.AddOverflow(total, tail); overflow {
		return 0, ErrSupplyOverflow
	}
	if !total.IsUint64() {
		return 0, ErrSupplyOverflow
	}
	return total.Uint64(), nil
}

// InflationRate is the annualised emission at height as a percentage of supply.
// It is informational and never used by validation.
func InflationRate(height uint32, p RewardParams) (float64, error) {
	supply, err := TotalSupply(height, p)
	if err != nil {
		return 0, err
	}
	if supply == 0 {
		return 0, nil
	}
	annual := float64(BlockReward(height, p)) * float64(p.BlocksPerYear)
	return annual / float64(supply) * 100, nil
}

// floorSum returns sum_{i=0}^{n-1} floor((a*i + b) / m) by the Euclidean-like
// reduction, in O(log m) steps.
func floorSum(n, m, a, b uint64) (*uint256.Int, error) {
	if m == 0 {
		return nil, ErrSupplyOverflow
	}
	ans := new(uint256.Int)
	N, M, A, B := uint256.NewInt(n), uint256.NewInt(m), uint256.NewInt(a), uint256.NewInt(b)
	one := uint256.NewInt(1)
	two := uint256.NewInt(2)

	for !N.IsZero() {
		if !A.Lt(M) {
			q := new(uint256.Int).Div(A, M)
			pairs := new(uint256.Int).Sub(N, one)
			if _, overflow := pairs.MulOverflow(pairs, N); overflow {
				return nil, ErrSupplyOverflow
			}
			pairs.Div(pairs, two)
			if _, overflow := pairs.MulOverflow(pairs, q); overflow {
				return nil, ErrSupplyOverflow
			}
			if _, overflow := ans.AddOverflow(ans, pairs); overflow {
				return nil, ErrSupplyOverflow
			}
			A.Mod(A, M)
		}
		if !B.Lt(M) {
			q := new(uint256.Int).Div(B, M)
			if _, overflow := q.MulOverflow(q, N); overflow {
				return nil, ErrSupplyOverflow
			}
			if _, overflow := ans.AddOverflow(ans, q); overflow {
				return nil, ErrSupplyOverflow
			}
			B.Mod(B, M)
		}

		yMax := new(uint256.Int)
		if _, overflow := yMax.MulOverflow(A, N); overflow {
			return nil, ErrSupplyOverflow
		}
		if _, overflow := yMax.AddOverflow(yMax, B); overflow {
			return nil, ErrSupplyOverflow
		}
		if yMax.Lt(M) {
			break
		}
		N = new(uint256.Int).Div(yMax, M)
		B = new(uint256.Int).Mod(yMax, M)
		M, A = A, M
	}
	return ans, nil
}
