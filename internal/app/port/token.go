package port

import (
	"context"

	"wallet_session/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
)

// OwnerResolver returns the account whose token balances are read.
type OwnerResolver func(ctx context.Context) (common.Address, error)

// TokenRegistry maintains the ordered set of tracked tokens.
type TokenRegistry interface {
	// AddToken validates raw, queries the contract and appends it. The registry is unchanged on failure.
	AddToken(ctx context.Context, raw string) (entity.TrackedToken, error)

	// List returns a snapshot in insertion order.
	List() []entity.TrackedToken

	// Refresh re-queries balances and replaces entries wholesale.
	Refresh(ctx context.Context) error

	// SetOwnerResolver replaces the lookup of the balance owner. The default is the provider's current account.
	SetOwnerResolver(fn OwnerResolver)
}

// TokenProvider defines the interface for loading seed token definitions.
type TokenProvider interface {
	// GetTokensForNetwork returns the seed tokens configured for the given network.
	GetTokensForNetwork(netDef entity.NetworkDefinition) ([]entity.TokenInfo, error)
}
