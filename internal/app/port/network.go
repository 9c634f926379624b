package port

import (
	"context"
	"math/big"

	"wallet_session/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

// SigningProvider is the raw JSON-RPC surface of an external wallet.
// *rpc.Client from go-ethereum satisfies it.
type SigningProvider interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// ProviderGateway wraps exactly one SigningProvider and exposes the primitives the session needs.
// It never mutates session state.
type ProviderGateway interface {
	// Detect reports whether a provider is present and identifies as the supported wallet type.
	Detect() bool

	// RequestAccess asks the provider to authorize the caller and returns the authorized accounts.
	RequestAccess(ctx context.Context) ([]common.Address, error)

	// CurrentAddress returns the first authorized signing address.
	CurrentAddress(ctx context.Context) (common.Address, error)

	// GetBalance fetches the wei balance of addr.
	GetBalance(ctx context.Context, addr common.Address) (*big.Int, error)

	// CallContractView invokes a read-only contract method identified by its signature, e.g. "balanceOf(address)".
	CallContractView(ctx context.Context, contract common.Address, signature string, args ...interface{}) (interface{}, error)

	// SubscribeAccountEvents delivers AccountChanged / AccountDisconnected notifications.
	SubscribeAccountEvents(sink chan<- entity.AccountEvent) event.Subscription
}

// NetworkDefinitionProvider defines the interface for providing network definitions.
type NetworkDefinitionProvider interface {
	// GetAllNetworkDefinitions returns all available network definitions as a slice.
	GetAllNetworkDefinitions() []entity.NetworkDefinition

	// GetNetworkDefinitionByName returns a specific network definition by its identifier.
	GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool)
}
