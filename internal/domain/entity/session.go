package entity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ConnectionState is the state of the wallet session state machine.
type ConnectionState int

const (
	// Disconnected is the initial state and the state after the provider drops the account.
	Disconnected ConnectionState = iota
	// Connecting means an account/balance lookup is in flight.
	Connecting
	// Connected means Address and BalanceWei are populated.
	Connected
	// Failed means the last connection attempt failed; LastError holds the cause.
	Failed
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// WalletSession is the canonical view of the user's wallet for one session.
type WalletSession struct {
	Address    *common.Address
	BalanceWei *big.Int
	State      ConnectionState
	LastError  error
}

// Snapshot returns a deep copy. BalanceWei is only carried over while Connected.
func (s WalletSession) Snapshot() WalletSession {
	out := WalletSession{State: s.State, LastError: s.LastError}
	if s.Address != nil {
		addr := *s.Address
		out.Address = &addr
	}
	if s.State == Connected && s.BalanceWei != nil {
		out.BalanceWei = new(big.Int).Set(s.BalanceWei)
	}
	return out
}
