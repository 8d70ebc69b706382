package model

import "fmt"

type Network string

var (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Regtest Network = "regtest"
)

// ForkID returns the replay-protection tag committed into every signed transaction.
func (n Network) ForkID() uint8 {
	switch n {
	case Testnet:
		return 1
	case Regtest:
		return 2
	default:
		return 0
	}
}

// ParseNetwork validates a network name supplied by configuration.
func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case Mainnet, Testnet, Regtest:
		return Network(s), nil
	default:
		return "", fmt.Errorf("unknown network %q", s)
	}
}

// UnmarshalFlag lets go-flags parse a Network option directly.
func (n *Network) UnmarshalFlag(value string) error {
	parsed, err := ParseNetwork(value)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
