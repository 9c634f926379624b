package restapi

import (
	"encoding/json"

	"wallet_session/internal/domain/entity"
	"wallet_session/internal/pkg/utils"
)

// APIError is the body of every failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIErrorResponse wraps APIError.
type APIErrorResponse struct {
	Error APIError `json:"error"`
}

// NetworkResponse describes the network the session runs against.
type NetworkResponse struct {
	ChainID          uint64 `json:"chainId"`
	Name             string `json:"name"`
	Identifier       string `json:"identifier"`
	NativeSymbol     string `json:"nativeSymbol"`
	BlockExplorerURL string `json:"blockExplorerUrl,omitempty"`
}

// SessionResponse is the wallet session snapshot.
type SessionResponse struct {
	State      string          `json:"state"`
	Address    *string         `json:"address"`
	BalanceWei *string         `json:"balanceWei"`
	Balance    *string         `json:"balance"`
	LastError  *APIError       `json:"lastError,omitempty"`
	Network    NetworkResponse `json:"network"`
}

// TokenResponse is one tracked token.
type TokenResponse struct {
	ContractAddress string `json:"contractAddress"`
	Symbol          string `json:"symbol"`
	BalanceRaw      string `json:"balanceRaw"`
	Balance         string `json:"balance"`
	Decimals        *uint8 `json:"decimals,omitempty"`
}

// HistoryEntryResponse is one transaction of the history list.
type HistoryEntryResponse struct {
	TransactionHash string          `json:"transactionHash"`
	ValueWei        string          `json:"valueWei"`
	Value           string          `json:"value"`
	From            string          `json:"from"`
	To              *string         `json:"to"`
	BlockNumber     uint64          `json:"blockNumber"`
	Timestamp       int64           `json:"timestamp"`
	Raw             json.RawMessage `json:"raw,omitempty"`
}

// ConnectRequest optionally names the authorized account to use.
type ConnectRequest struct {
	Account string `json:"account"`
}

// AddTokenRequest carries the contract address typed by the user.
type AddTokenRequest struct {
	Address string `json:"address"`
}

func newAPIError(err error) APIError {
	return APIError{Code: entity.ErrorCode(err), Message: err.Error()}
}

func newNetworkResponse(n entity.NetworkDefinition) NetworkResponse {
	return NetworkResponse{
		ChainID:          n.ChainID,
		Name:             n.Name,
		Identifier:       n.Identifier,
		NativeSymbol:     n.NativeSymbol,
		BlockExplorerURL: n.BlockExplorerURL,
	}
}

func newSessionResponse(s entity.WalletSession, n entity.NetworkDefinition) SessionResponse {
	resp := SessionResponse{
		State:   s.State.String(),
		Network: newNetworkResponse(n),
	}
	if s.Address != nil {
		addr := s.Address.Hex()
		resp.Address = &addr
	}
	if s.BalanceWei != nil {
		wei := s.BalanceWei.String()
		formatted := utils.FormatUnits(s.BalanceWei, nativeDecimals(n))
		resp.BalanceWei = &wei
		resp.Balance = &formatted
	}
	if s.LastError != nil {
		apiErr := newAPIError(s.LastError)
		resp.LastError = &apiErr
	}
	return resp
}

func newTokenResponse(t entity.TrackedToken) TokenResponse {
	resp := TokenResponse{
		ContractAddress: t.ContractAddress.Hex(),
		Symbol:          t.Symbol,
		BalanceRaw:      "0",
		Balance:         utils.FormatRaw(t.BalanceRaw, t.Decimals),
		Decimals:        t.Decimals,
	}
	if t.BalanceRaw != nil {
		resp.BalanceRaw = t.BalanceRaw.String()
	}
	return resp
}

func newTokenResponses(tokens []entity.TrackedToken) []TokenResponse {
	out := make([]TokenResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, newTokenResponse(t))
	}
	return out
}

func newHistoryResponses(entries []entity.HistoryEntry, n entity.NetworkDefinition) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		item := HistoryEntryResponse{
			TransactionHash: e.TransactionHash.Hex(),
			ValueWei:        "0",
			Value:           utils.FormatUnits(e.ValueWei, nativeDecimals(n)),
			From:            e.From.Hex(),
			BlockNumber:     e.BlockNumber,
			Timestamp:       e.Timestamp,
		}
		if e.ValueWei != nil {
			item.ValueWei = e.ValueWei.String()
		}
		if e.To != nil {
			to := e.To.Hex()
			item.To = &to
		}
		if len(e.Raw) > 0 {
			item.Raw = json.RawMessage(e.Raw)
		}
		out = append(out, item)
	}
	return out
}

func nativeDecimals(n entity.NetworkDefinition) uint8 {
	if n.Decimals == 0 {
		return 18
	}
	return n.Decimals
}
