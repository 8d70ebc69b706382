package crypto

import (
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

var ErrInvalidKey = errors.New("invalid key encoding")

type (
	// Verifier checks a detached signature over msg.
	Verifier interface {
		Verify(pub, msg, sig []byte) bool
	}
	// Signer produces detached signatures. Only wallet-side tooling and tests sign.
	Signer interface {
		Sign(priv, msg []byte) ([]byte, error)
	}
)

const (
	// PublicKeySize and SignatureSize are the ML-DSA-65 encodings carried in script_sig.
	PublicKeySize = mode3.PublicKeySize
	SignatureSize = mode3.SignatureSize
)

// Dilithium implements Signer and Verifier with ML-DSA-65 (Dilithium3).
type Dilithium struct{}

// Verify returns false for any malformed key or signature.
func (Dilithium) Verify(pub, msg, sig []byte) bool {
	if len(pub) != mode3.PublicKeySize || len(sig) != mode3.SignatureSize {
		return false
	}
	var pk mode3.PublicKey
	if err := pk.UnmarshalBinary(pub); err != nil {
		return false
	}
	return mode3.Verify(&pk, msg, sig)
}

func (Dilithium) Sign(priv, msg []byte) ([]byte, error) {
	if len(priv) != mode3.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key is %d bytes", ErrInvalidKey, len(priv))
	}
	var sk mode3.PrivateKey
	if err := sk.UnmarshalBinary(priv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(&sk, msg, sig)
	return sig, nil
}
