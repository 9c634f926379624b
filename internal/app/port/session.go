package port

import (
	"context"

	"wallet_session/internal/domain/entity"
)

// SessionController is the surface the presentation layer drives.
type SessionController interface {
	Bootstrap(ctx context.Context)
	ConnectWithKey(ctx context.Context, raw string) error
	AddToken(ctx context.Context, raw string) (entity.TrackedToken, error)
	RefreshTokens(ctx context.Context) error
	RefreshHistory(ctx context.Context) error

	Session() entity.WalletSession
	Tokens() []entity.TrackedToken
	History() []entity.HistoryEntry
	Network() entity.NetworkDefinition
}
