package p2p

import (
	"errors"
	"fmt"
	"net/netip"
)

var (
	// ErrBanned rejects a connection from a banned address or subnet.
	ErrBanned = errors.New("address is banned")
	// ErrConnectionAttemptsExceeded rejects an address reconnecting faster than policy allows.
	ErrConnectionAttemptsExceeded = errors.New("connection attempts exceeded")
	// ErrMalformedPayload means a payload length disagrees with its declared item count.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrSessionClosed is returned for messages on a disconnected session.
	ErrSessionClosed     = errors.New("session is closed")
	ErrUnsupportedBanKey = errors.New("ban key must be an address or a /24, /16 or /64 subnet")
	ErrInvalidAddress    = errors.New("invalid address")
)

// MessageRateExceededError rejects a message over the per-window message budget.
type MessageRateExceededError struct {
	Current, Limit uint32
}

func (e *MessageRateExceededError) Error() string {
	return fmt.Sprintf("message rate exceeded: %d messages in window (limit %d)", e.Current, e.Limit)
}

// BandwidthExceededError rejects a message over the per-window byte budget.
type BandwidthExceededError struct {
	Current, Additional, Limit uint64
}

func (e *BandwidthExceededError) Error() string {
	return fmt.Sprintf("bandwidth exceeded: %d + %d bytes > %d", e.Current, e.Additional, e.Limit)
}

type TotalLimitExceededError struct {
	Current, Limit int
}

func (e *TotalLimitExceededError) Error() string {
	return fmt.Sprintf("total connection limit exceeded: %d >= %d", e.Current, e.Limit)
}

type PerIPLimitExceededError struct {
	IP             netip.Addr
	Current, Limit int
}

func (e *PerIPLimitExceededError) Error() string {
	return fmt.Sprintf("per-ip connection limit exceeded for %s: %d >= %d", e.IP, e.Current, e.Limit)
}

// SubnetLimitExceededError names the saturated subnet.
type SubnetLimitExceededError struct {
	Subnet         netip.Prefix
	Current, Limit int
}

func (e *SubnetLimitExceededError) Error() string {
	return fmt.Sprintf("subnet connection limit exceeded for %s: %d >= %d", e.Subnet, e.Current, e.Limit)
}

// TooManyInventoryItemsError rejects a counted message declaring too many items.
type TooManyInventoryItemsError struct {
	Command    string
	Count, Max uint64
}

func (e *TooManyInventoryItemsError) Error() string {
	return fmt.Sprintf("%s declares %d items (max %d)", e.Command, e.Count, e.Max)
}

type MessageTooLargeError struct {
	Command   string
	Size, Max int
}

func (e *MessageTooLargeError) Error() string {
	return fmt.Sprintf("%s payload is %d bytes (max %d)", e.Command, e.Size, e.Max)
}
