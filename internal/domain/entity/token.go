package entity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TrackedToken is a user-added token contract together with the signer's balance in it.
// Entries are never mutated in place; a refresh replaces the whole value.
type TrackedToken struct {
	ContractAddress common.Address
	Symbol          string
	BalanceRaw      *big.Int
	Decimals        *uint8 // nil when the contract does not expose decimals()
}

// Clone returns a copy that shares no pointers with t.
func (t TrackedToken) Clone() TrackedToken {
	out := t
	if t.BalanceRaw != nil {
		out.BalanceRaw = new(big.Int).Set(t.BalanceRaw)
	}
	if t.Decimals != nil {
		d := *t.Decimals
		out.Decimals = &d
	}
	return out
}

// TokenInfo holds seed token details as stored in the token data files.
type TokenInfo struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Name     string `json:"name,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Decimals uint8  `json:"decimals,omitempty"`
}
