package consensus

import (
	"github.com/btcsuite/btcd/txscript"

	"github.com/goodnatureofminers/btpc-node/internal/crypto"
	"github.com/goodnatureofminers/btpc-node/internal/model"
)

var genesisMessage = []byte("btpc genesis: quantum-resistant proof of work")

// GenesisBlock builds the network's first block. It is a trusted checkpoint
// and is never run through proof-of-work or context validation. Its single
// output is provably unspendable.
func GenesisBlock(p *Params, h crypto.Hasher) *model.Block {
	coinbase := model.Transaction{
		Version: 1,
		Inputs: []model.TxInput{{
			PreviousOutput: model.OutPoint{Vout: model.CoinbaseVout},
			ScriptSig:      append([]byte(nil), genesisMessage...),
			Sequence:       0xffffffff,
		}},
		Outputs: []model.TxOutput{{
			Value:        p.Reward.InitialReward,
			ScriptPubKey: []byte{txscript.OP_RETURN},
		}},
		ForkID: p.ForkID,
	}
	block := &model.Block{
		Header: model.BlockHeader{
			Version:   1,
			Timestamp: p.GenesisTimestamp,
			Bits:      p.PowLimitBits,
		},
		Transactions: []model.Transaction{coinbase},
	}
	block.Header.MerkleRoot = crypto.MerkleRoot(h, []model.Hash{crypto.TxID(h, &coinbase)})
	return block
}
