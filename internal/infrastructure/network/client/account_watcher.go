package client

import (
	"context"
	"time"

	"wallet_session/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
)

// WatchAccounts polls eth_accounts every interval and publishes AccountChanged / AccountDisconnected
// events on transitions. The first successful poll only records the baseline. It returns when ctx is done.
func (g *EVMProviderGateway) WatchAccounts(ctx context.Context, interval time.Duration) {
	if !g.Detect() {
		g.logger.Info("Account watcher not started: no signing provider detected")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	g.logger.Debug("Account watcher started", "interval", interval.String())
	for {
		g.checkAccounts(ctx)
		select {
		case <-ctx.Done():
			g.logger.Debug("Account watcher stopped")
			return
		case <-ticker.C:
		}
	}
}

// checkAccounts performs one poll. Transient provider errors are logged and produce no event.
func (g *EVMProviderGateway) checkAccounts(ctx context.Context) {
	accounts, err := g.accounts(ctx)
	if err != nil {
		g.logger.Debug("Account poll failed", "error", err)
		return
	}

	var current *common.Address
	if len(accounts) > 0 {
		addr := accounts[0]
		current = &addr
	}

	g.watchMu.Lock()
	prev, initialized := g.lastAccount, g.watchInit
	g.lastAccount, g.watchInit = current, true
	g.watchMu.Unlock()

	if !initialized {
		return
	}

	switch {
	case current == nil && prev != nil:
		g.logger.Info("Provider account disconnected", "previous", prev.Hex())
		g.feed.Send(entity.AccountEvent{Type: entity.AccountDisconnected})
	case current != nil && (prev == nil || *prev != *current):
		g.logger.Info("Provider account changed", "account", current.Hex())
		g.feed.Send(entity.AccountEvent{Type: entity.AccountChanged, Address: *current})
	}
}
