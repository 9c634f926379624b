package port

import (
	"context"

	"wallet_session/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
)

// HistoryService is the external transaction history source.
type HistoryService interface {
	GetHistory(ctx context.Context, addr common.Address) ([]entity.HistoryEntry, error)
}

// HistoryFetcher keeps the last successfully fetched history list.
type HistoryFetcher interface {
	// FetchHistory replaces the stored list on success and keeps it on failure.
	FetchHistory(ctx context.Context, addr common.Address) ([]entity.HistoryEntry, error)

	// Entries returns a copy of the stored list.
	Entries() []entity.HistoryEntry

	// Reset drops the stored list and discards results of fetches still in flight.
	Reset()
}
