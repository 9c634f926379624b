package entity

import "github.com/ethereum/go-ethereum/common"

// AccountEventType distinguishes provider account notifications.
type AccountEventType int

const (
	// AccountChanged is fired when the provider's first authorized account changes.
	AccountChanged AccountEventType = iota
	// AccountDisconnected is fired when the provider no longer exposes any account.
	AccountDisconnected
)

// AccountEvent is delivered by the provider gateway to its subscribers.
type AccountEvent struct {
	Type    AccountEventType
	Address common.Address // set for AccountChanged
}
