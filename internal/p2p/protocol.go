package p2p

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

// Message commands with a dedicated size policy.
const (
	CmdVersion     = "version"
	CmdVerack      = "verack"
	CmdPing        = "ping"
	CmdPong        = "pong"
	CmdGetAddr     = "getaddr"
	CmdMempool     = "mempool"
	CmdSendHeaders = "sendheaders"
	CmdAddr        = "addr"
	CmdInv         = "inv"
	CmdGetData     = "getdata"
	CmdNotFound    = "notfound"
	CmdHeaders     = "headers"
	CmdBlock       = "block"
	CmdTx          = "tx"
)

const (
	// MaxMessageSize caps any payload regardless of command.
	MaxMessageSize = 32 << 20

	MaxInventoryItems = 50_000
	MaxHeaders        = 2_000
	MaxAddresses      = 1_000

	// inventory vectors are a 4-byte type and a 64-byte hash
	inventoryItemSize = 4 + 64
	// headers carry a zero transaction count after each 148-byte header
	headerItemSize  = 148 + 1
	addressItemSize = 30

	maxBlockPayload   = 2 << 20
	maxTxPayload      = 100 << 10
	maxVersionPayload = 256
	maxEmptyPayload   = 32
	maxGenericPayload = 1 << 20
)

type countedLimit struct {
	maxItems uint64
	itemSize int
}

func (c countedLimit) maxSize() int {
	return wire.VarIntSerializeSize(c.maxItems) + int(c.maxItems)*c.itemSize
}

// MessageValidator checks raw payload sizes and item counts before any
// message body is decoded. It only reports a verdict.
type MessageValidator struct {
	fixed   map[string]int
	counted map[string]countedLimit
}

func NewMessageValidator() *MessageValidator {
	inv := countedLimit{maxItems: MaxInventoryItems, itemSize: inventoryItemSize}
	return &MessageValidator{
		fixed: map[string]int{
			CmdBlock:       maxBlockPayload,
			CmdTx:          maxTxPayload,
			CmdVersion:     maxVersionPayload,
			CmdVerack:      maxEmptyPayload,
			CmdPing:        maxEmptyPayload,
			CmdPong:        maxEmptyPayload,
			CmdGetAddr:     maxEmptyPayload,
			CmdMempool:     maxEmptyPayload,
			CmdSendHeaders: maxEmptyPayload,
		},
		counted: map[string]countedLimit{
			CmdInv:      inv,
			CmdGetData:  inv,
			CmdNotFound: inv,
			CmdHeaders:  {maxItems: MaxHeaders, itemSize: headerItemSize},
			CmdAddr:     {maxItems: MaxAddresses, itemSize: addressItemSize},
		},
	}
}

// MaxSize returns the payload ceiling for command.
func (v *MessageValidator) MaxSize(command string) int {
	if c, ok := v.counted[command]; ok {
		return c.maxSize()
	}
	if n, ok := v.fixed[command]; ok {
		return n
	}
	return maxGenericPayload
}

// Validate checks payload against the policy of command. For counted
// messages the declared item count is checked before the byte ceiling.
func (v *MessageValidator) Validate(command string, payload []byte) error {
	if len(payload) > MaxMessageSize {
		return &MessageTooLargeError{Command: command, Size: len(payload), Max: MaxMessageSize}
	}
	c, ok := v.counted[command]
	if !ok {
		if limit := v.MaxSize(command); len(payload) > limit {
			return &MessageTooLargeError{Command: command, Size: len(payload), Max: limit}
		}
		return nil
	}

	count, err := wire.ReadVarInt(bytes.NewReader(payload), 0)
	if err != nil {
		return fmt.Errorf("%w: %s count: %v", ErrMalformedPayload, command, err)
	}
	if count > c.maxItems {
		return &TooManyInventoryItemsError{Command: command, Count: count, Max: c.maxItems}
	}
	if limit := c.maxSize(); len(payload) > limit {
		return &MessageTooLargeError{Command: command, Size: len(payload), Max: limit}
	}
	if want := wire.VarIntSerializeSize(count) + int(count)*c.itemSize; len(payload) != want {
		return fmt.Errorf("%w: %s with %d items is %d bytes, want %d", ErrMalformedPayload, command, count, len(payload), want)
	}
	return nil
}
