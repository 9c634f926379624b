package entity

import "errors"

// Connection errors: raised while establishing access to the signing provider.
var (
	ErrProviderNotFound    = errors.New("signing provider not found")
	ErrAccessRejected      = errors.New("signing provider rejected the access request")
	ErrNoAccount           = errors.New("no authorized account")
	ErrKeyMaterialRejected = errors.New("key material is not accepted; connect through the signing provider")
)

// Network errors: raised by balance and history queries.
var (
	ErrNetworkUnreachable = errors.New("network unreachable")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrTimeout            = errors.New("network call timed out")
)

// Contract errors: raised by read-only contract calls.
var (
	ErrNotAContract = errors.New("address is not a contract or returned malformed data")
	ErrRevert       = errors.New("contract call reverted")
)

// Token errors: raised by the add-token workflow.
var (
	ErrTokenInvalidAddress = errors.New("token address is not a well-formed address")
	ErrNotAToken           = errors.New("contract does not behave like a token")
	ErrDuplicateToken      = errors.New("token is already tracked")
)

// ErrSessionClosed is returned when an operation runs against a torn-down session.
var ErrSessionClosed = errors.New("session closed")

// ErrSuperseded is returned by a connection attempt whose result was discarded for a newer one.
var ErrSuperseded = errors.New("superseded by a newer connection attempt")

var errorCodes = []struct {
	err  error
	code string
}{
	// token errors first: they may wrap contract or network causes
	{ErrTokenInvalidAddress, "token_invalid_address"},
	{ErrNotAToken, "not_a_token"},
	{ErrDuplicateToken, "duplicate_token"},
	{ErrProviderNotFound, "provider_not_found"},
	{ErrAccessRejected, "access_rejected"},
	{ErrNoAccount, "no_account"},
	{ErrKeyMaterialRejected, "key_material_rejected"},
	{ErrTimeout, "timeout"},
	{ErrNetworkUnreachable, "network_unreachable"},
	{ErrInvalidAddress, "invalid_address"},
	{ErrNotAContract, "not_a_contract"},
	{ErrRevert, "revert"},
	{ErrSessionClosed, "session_closed"},
	{ErrSuperseded, "superseded"},
}

// ErrorCode maps an error to a stable code for the presentation layer.
// Unknown errors map to "internal".
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}
