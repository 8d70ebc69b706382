package chain

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/holiman/uint256"

	"github.com/goodnatureofminers/btpc-node/internal/consensus"
	"github.com/goodnatureofminers/btpc-node/internal/crypto"
	"github.com/goodnatureofminers/btpc-node/internal/model"
	"github.com/goodnatureofminers/btpc-node/pkg/workerpool"
)

// UTXOValidator checks that every input of a block spends an existing,
// mature, correctly unlocked output and that no value is created.
type UTXOValidator struct {
	params   *consensus.Params
	hasher   crypto.Hasher
	verifier crypto.Verifier
	workers  int
}

func NewUTXOValidator(params *consensus.Params, hasher crypto.Hasher, verifier crypto.Verifier, workers int) *UTXOValidator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &UTXOValidator{params: params, hasher: hasher, verifier: verifier, workers: workers}
}

// UTXOResult is the outcome of a successful validation.
type UTXOResult struct {
	Diff *Diff
	Fees uint64
}

type sigJob struct {
	txIndex int
	txid    model.Hash
	pub     []byte
	sig     []byte
	sighash model.Hash
}

// Validate checks block at height against the outputs in view, which must
// contain every referenced output that exists in the persistent set.
//
// Inputs are resolved and checked in block order. Signature checks are
// deferred and run in parallel over every input before the first non-signature
// failure, so the reported error is the one a sequential walk would hit first.
func (v *UTXOValidator) Validate(ctx context.Context, block *model.Block, txids []model.Hash, height uint32, view map[model.OutPoint]model.UTXO) (*UTXOResult, error) {
	coinbase, ok := block.Coinbase()
	if !ok {
		return nil, ErrNoCoinbase
	}

	diff := NewDiff()
	diff.AddTransaction(coinbase, txids[0], height)

	var (
		jobs    []sigJob
		fees    = new(uint256.Int)
		walkErr error
	)
	for i := 1; i < len(block.Transactions) && walkErr == nil; i++ {
		tx := &block.Transactions[i]
		txDiff, fee, txJobs, err := v.checkTransaction(i, tx, txids[i], height, diff, view)
		jobs = append(jobs, txJobs...)
		if err != nil {
			walkErr = txError(i, txids[i], err)
			break
		}
		fees.Add(fees, fee)
		diff.Merge(txDiff)
	}

	if len(jobs) > 0 {
		err := workerpool.Process(ctx, v.workers, jobs, func(_ context.Context, job sigJob) error {
			if !v.verifier.Verify(job.pub, job.sighash[:], job.sig) {
				return txError(job.txIndex, job.txid, ErrInvalidSignature)
			}
			return nil
		}, nil)
		if err != nil {
			return nil, err
		}
	}
	if walkErr != nil {
		return nil, walkErr
	}

	if err := v.checkCoinbaseValue(coinbase, height, fees); err != nil {
		return nil, txError(0, txids[0], err)
	}
	if !fees.IsUint64() {
		return nil, ErrValueOverflow
	}
	return &UTXOResult{Diff: diff, Fees: fees.Uint64()}, nil
}

// checkTransaction resolves the inputs of one transaction. The returned
// signature jobs cover every input that passed the cheap checks, even when an
// error is returned for a later input.
func (v *UTXOValidator) checkTransaction(
	index int,
	tx *model.Transaction,
	txid model.Hash,
	height uint32,
	block *Diff,
	view map[model.OutPoint]model.UTXO,
) (*Diff, *uint256.Int, []sigJob, error) {
	txDiff := NewDiff()
	in := new(uint256.Int)
	sighash := crypto.SigHash(v.hasher, tx, v.params.ForkID)
	jobs := make([]sigJob, 0, len(tx.Inputs))

	for _, input := range tx.Inputs {
		op := input.PreviousOutput
		if block.IsSpent(op) {
			return nil, nil, jobs, ErrDoubleSpend
		}
		prev, ok := block.Lookup(op)
		if !ok {
			if prev, ok = view[op]; !ok {
				return nil, nil, jobs, &UTXONotFoundError{OutPoint: op}
			}
		}

		if prev.IsCoinbase && (prev.Height > height || height-prev.Height < v.params.CoinbaseMaturity) {
			return nil, nil, jobs, &ImmatureCoinbaseError{
				Created:  prev.Height,
				Current:  height,
				Required: v.params.CoinbaseMaturity,
			}
		}

		sig, pub, err := crypto.CheckPayToPubKeyHash(prev.Output.ScriptPubKey, input.ScriptSig)
		if err != nil {
			return nil, nil, jobs, scriptError(err)
		}
		jobs = append(jobs, sigJob{txIndex: index, txid: txid, pub: pub, sig: sig, sighash: sighash})

		in.Add(in, uint256.NewInt(prev.Output.Value))
		txDiff.Spend(prev)
	}

	out, err := sumOutputs(tx)
	if err != nil {
		return nil, nil, jobs, err
	}
	if in.Lt(out) {
		return nil, nil, jobs, &InsufficientInputValueError{Inputs: in.Dec(), Outputs: out.Dec()}
	}
	txDiff.AddTransaction(tx, txid, height)
	return txDiff, new(uint256.Int).Sub(in, out), jobs, nil
}

func (v *UTXOValidator) checkCoinbaseValue(coinbase *model.Transaction, height uint32, fees *uint256.Int) error {
	claimed, err := sumOutputs(coinbase)
	if err != nil {
		return err
	}
	allowed := new(uint256.Int).Add(uint256.NewInt(consensus.BlockReward(height, v.params.Reward)), fees)
	if claimed.Gt(allowed) {
		return &ExcessiveCoinbaseRewardError{Claimed: claimed.Dec(), Allowed: allowed.Dec()}
	}
	return nil
}

// sumOutputs totals output values. Any total beyond 64 bits is rejected.
func sumOutputs(tx *model.Transaction) (*uint256.Int, error) {
	total := new(uint256.Int)
	for _, out := range tx.Outputs {
		total.Add(total, uint256.NewInt(out.Value))
	}
	if !total.IsUint64() {
		return nil, fmt.Errorf("%w: %s", ErrValueOverflow, total.Dec())
	}
	return total, nil
}

func scriptError(err error) error {
	switch {
	case errors.Is(err, crypto.ErrUnsupportedScript):
		return ErrUnsupportedScript
	case errors.Is(err, crypto.ErrPubKeyMismatch):
		return ErrPubKeyMismatch
	default:
		return fmt.Errorf("%w: %v", ErrMalformedScriptSig, err)
	}
}
