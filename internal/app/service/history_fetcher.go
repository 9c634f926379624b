package service

import (
	"context"
	"sync"
	"sync/atomic"

	"wallet_session/internal/app/port"
	"wallet_session/internal/domain/entity"
	"wallet_session/internal/pkg/metrics"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/singleflight"
)

// HistoryFetcherImpl implements port.HistoryFetcher.
type HistoryFetcherImpl struct {
	service port.HistoryService
	logger  port.Logger
	group   singleflight.Group

	// generation is bumped by every fetch and reset; only the newest fetch may store its result.
	generation atomic.Uint64

	mu      sync.RWMutex
	entries []entity.HistoryEntry
}

// NewHistoryFetcher creates a fetcher with an empty list.
func NewHistoryFetcher(svc port.HistoryService, l port.Logger) *HistoryFetcherImpl {
	return &HistoryFetcherImpl{
		service: svc,
		logger:  l,
		entries: make([]entity.HistoryEntry, 0),
	}
}

// FetchHistory queries the history service for addr and replaces the stored list on success.
// On failure the previous list is kept and the error is returned for logging.
func (f *HistoryFetcherImpl) FetchHistory(ctx context.Context, addr common.Address) ([]entity.HistoryEntry, error) {
	gen := f.generation.Add(1)

	v, err, shared := f.group.Do(addr.Hex(), func() (interface{}, error) {
		return f.service.GetHistory(ctx, addr)
	})
	metrics.HistoryFetches.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		f.logger.Warn("Failed to fetch transaction history", "address", addr.Hex(), "error", err)
		return nil, err
	}

	fetched := cloneEntries(v.([]entity.HistoryEntry))
	f.mu.Lock()
	if f.generation.Load() == gen {
		f.entries = cloneEntries(fetched)
	} else {
		f.logger.Debug("Discarding superseded history result", "address", addr.Hex())
	}
	f.mu.Unlock()

	f.logger.Debug("Transaction history fetched", "address", addr.Hex(), "count", len(fetched), "shared", shared)
	return fetched, nil
}

// Entries returns a copy of the stored list.
func (f *HistoryFetcherImpl) Entries() []entity.HistoryEntry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return cloneEntries(f.entries)
}

// Reset drops the stored list. Fetches still in flight will not store their results.
func (f *HistoryFetcherImpl) Reset() {
	f.generation.Add(1)
	f.mu.Lock()
	f.entries = make([]entity.HistoryEntry, 0)
	f.mu.Unlock()
}

func cloneEntries(in []entity.HistoryEntry) []entity.HistoryEntry {
	out := make([]entity.HistoryEntry, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}
