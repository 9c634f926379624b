package entity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	jsoniter "github.com/json-iterator/go"
)

// HistoryEntry is one transaction record returned by the History Service.
type HistoryEntry struct {
	TransactionHash common.Hash
	ValueWei        *big.Int
	From            common.Address
	To              *common.Address // nil for contract creation
	BlockNumber     uint64
	Timestamp       int64
	Raw             jsoniter.RawMessage
}

// Clone returns a copy that shares no mutable state with e.
func (e HistoryEntry) Clone() HistoryEntry {
	out := e
	if e.ValueWei != nil {
		out.ValueWei = new(big.Int).Set(e.ValueWei)
	}
	if e.To != nil {
		to := *e.To
		out.To = &to
	}
	if e.Raw != nil {
		out.Raw = append(jsoniter.RawMessage(nil), e.Raw...)
	}
	return out
}
