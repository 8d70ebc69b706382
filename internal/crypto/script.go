package crypto

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
)

const pubKeyHashSize = 20

var (
	ErrUnsupportedScript = errors.New("unsupported script template")
	ErrMalformedScript   = errors.New("malformed script")
	ErrPubKeyMismatch    = errors.New("public key does not match locking script")
	ErrBadSignature      = errors.New("signature verification failed")
)

// PayToPubKeyHash builds OP_DUP OP_HASH160 <hash160(pub)> OP_EQUALVERIFY OP_CHECKSIG.
func PayToPubKeyHash(pub []byte) []byte {
	return payToHash(btcutil.Hash160(pub))
}

func payToHash(pkh []byte) []byte {
	script := make([]byte, 0, 5+pubKeyHashSize)
	script = append(script, txscript.OP_DUP, txscript.OP_HASH160, txscript.OP_DATA_20)
	script = append(script, pkh...)
	return append(script, txscript.OP_EQUALVERIFY, txscript.OP_CHECKSIG)
}

// ExtractPubKeyHash returns the 20-byte hash locked by a pay-to-pubkey-hash script.
func ExtractPubKeyHash(script []byte) ([]byte, error) {
	if len(script) != 5+pubKeyHashSize ||
		script[0] != txscript.OP_DUP ||
		script[1] != txscript.OP_HASH160 ||
		script[2] != txscript.OP_DATA_20 ||
		script[23] != txscript.OP_EQUALVERIFY ||
		script[24] != txscript.OP_CHECKSIG {
		return nil, ErrUnsupportedScript
	}
	return script[3:23], nil
}

// UnlockingScript pushes the signature and the public key. Both exceed the
// single-byte push range, so they are always OP_PUSHDATA2 encoded.
func UnlockingScript(sig, pub []byte) []byte {
	var buf bytes.Buffer
	pushData(&buf, sig)
	pushData(&buf, pub)
	return buf.Bytes()
}

func pushData(buf *bytes.Buffer, data []byte) {
	switch {
	case len(data) <= txscript.OP_DATA_75:
		buf.WriteByte(byte(len(data)))
	case len(data) <= 0xff:
		buf.WriteByte(txscript.OP_PUSHDATA1)
		buf.WriteByte(byte(len(data)))
	default:
		buf.WriteByte(txscript.OP_PUSHDATA2)
		var size [2]byte
		binary.LittleEndian.PutUint16(size[:], uint16(len(data)))
		buf.Write(size[:])
	}
	buf.Write(data)
}

// ParseUnlockingScript splits a script_sig into its signature and public key pushes.
func ParseUnlockingScript(script []byte) (sig, pub []byte, err error) {
	var pushes [][]byte
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	for tokenizer.Next() {
		if tokenizer.Opcode() > txscript.OP_PUSHDATA4 || tokenizer.Data() == nil {
			return nil, nil, fmt.Errorf("%w: non-push opcode 0x%02x in script_sig", ErrMalformedScript, tokenizer.Opcode())
		}
		if len(pushes) == 2 {
			return nil, nil, fmt.Errorf("%w: more than two pushes", ErrMalformedScript)
		}
		pushes = append(pushes, tokenizer.Data())
	}
	if err := tokenizer.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedScript, err)
	}
	if len(pushes) != 2 {
		return nil, nil, fmt.Errorf("%w: want signature and public key", ErrMalformedScript)
	}
	return pushes[0], pushes[1], nil
}

// CheckPayToPubKeyHash runs the cheap half of pay-to-pubkey-hash validation:
// template match, push parsing and the public key hash comparison. It returns
// the pushes for the signature check.
func CheckPayToPubKeyHash(scriptPubKey, scriptSig []byte) (sig, pub []byte, err error) {
	pkh, err := ExtractPubKeyHash(scriptPubKey)
	if err != nil {
		return nil, nil, err
	}
	sig, pub, err = ParseUnlockingScript(scriptSig)
	if err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(btcutil.Hash160(pub), pkh) {
		return nil, nil, ErrPubKeyMismatch
	}
	return sig, pub, nil
}

// VerifyPayToPubKeyHash checks that scriptSig unlocks scriptPubKey for sighash.
func VerifyPayToPubKeyHash(v Verifier, scriptPubKey, scriptSig []byte, sighash []byte) error {
	sig, pub, err := CheckPayToPubKeyHash(scriptPubKey, scriptSig)
	if err != nil {
		return err
	}
	if !v.Verify(pub, sighash, sig) {
		return ErrBadSignature
	}
	return nil
}
