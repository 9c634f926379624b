package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"wallet_session/internal/app/port"
	"wallet_session/internal/domain/entity"
	"wallet_session/internal/pkg/metrics"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

const accountEventBuffer = 16

// SessionServiceImpl implements port.SessionController and owns the WalletSession.
type SessionServiceImpl struct {
	gateway port.ProviderGateway
	tokens  port.TokenRegistry
	history port.HistoryFetcher
	network entity.NetworkDefinition
	logger  port.Logger

	mu      sync.RWMutex
	session entity.WalletSession
	// epoch is bumped by every connection attempt, account event and Close.
	// Async completions carry the epoch they started under and are dropped when it moved on.
	epoch  uint64
	closed bool
}

// NewSessionService creates a controller in the Disconnected state.
// Token balances are read for the session's account from then on.
func NewSessionService(
	gw port.ProviderGateway,
	tokens port.TokenRegistry,
	history port.HistoryFetcher,
	network entity.NetworkDefinition,
	l port.Logger,
) *SessionServiceImpl {
	metrics.SessionState.Set(float64(entity.Disconnected))
	s := &SessionServiceImpl{
		gateway: gw,
		tokens:  tokens,
		history: history,
		network: network,
		logger:  l,
		session: entity.WalletSession{State: entity.Disconnected},
	}
	tokens.SetOwnerResolver(s.SignerAddress)
	return s
}

// Bootstrap silently connects to an already authorized account and loads its balance and history.
// Failures are logged; the session ends up Connected, Failed or, without a provider, Disconnected.
func (s *SessionServiceImpl) Bootstrap(ctx context.Context) {
	if !s.gateway.Detect() {
		s.logger.Info("No signing provider detected, session stays disconnected")
		return
	}

	epoch, err := s.begin()
	if err != nil {
		return
	}

	addr, err := s.gateway.CurrentAddress(ctx)
	if err != nil {
		s.fail(epoch, err)
		s.logger.Warn("Bootstrap could not resolve the current account", "error", err)
		return
	}

	if err := s.loadAccount(ctx, epoch, addr); err != nil {
		if !errors.Is(err, entity.ErrSuperseded) {
			s.logger.Warn("Bootstrap failed", "address", addr.Hex(), "error", err)
		}
		return
	}
	s.logger.Info("Session bootstrapped", "address", addr.Hex(), "network", s.network.Identifier)
}

// Connect asks the provider for access to any account.
func (s *SessionServiceImpl) Connect(ctx context.Context) error {
	return s.ConnectWithKey(ctx, "")
}

// ConnectWithKey connects through the signing provider. raw may be empty or the address of an
// authorized account to select. Key material is never accepted.
func (s *SessionServiceImpl) ConnectWithKey(ctx context.Context, raw string) error {
	if !s.gateway.Detect() {
		epoch, err := s.begin()
		if err != nil {
			return err
		}
		s.fail(epoch, entity.ErrProviderNotFound)
		return entity.ErrProviderNotFound
	}

	hint, err := parseAccountHint(raw)
	if err != nil {
		// raw is deliberately left out of the log record
		s.logger.Warn("Rejected connect input", "error", err)
		return err
	}

	epoch, err := s.begin()
	if err != nil {
		return err
	}

	accounts, err := s.gateway.RequestAccess(ctx)
	if err != nil {
		s.fail(epoch, err)
		return err
	}

	addr, err := selectAccount(accounts, hint)
	if err != nil {
		s.fail(epoch, err)
		return err
	}

	if err := s.loadAccount(ctx, epoch, addr); err != nil {
		if errors.Is(err, entity.ErrSuperseded) && s.isClosed() {
			return entity.ErrSessionClosed
		}
		return err
	}
	s.logger.Info("Wallet connected", "address", addr.Hex())
	s.refreshTrackedTokens(ctx)
	return nil
}

// AddToken delegates to the token registry. The wallet session is not touched.
func (s *SessionServiceImpl) AddToken(ctx context.Context, raw string) (entity.TrackedToken, error) {
	if s.isClosed() {
		return entity.TrackedToken{}, entity.ErrSessionClosed
	}
	return s.tokens.AddToken(ctx, raw)
}

// SeedTokens adds the configured tokens for the connected account. Failures are logged and skipped.
func (s *SessionServiceImpl) SeedTokens(ctx context.Context, seeds []entity.TokenInfo) {
	if s.Session().State != entity.Connected {
		if len(seeds) > 0 {
			s.logger.Debug("Skipping seed tokens, session is not connected", "count", len(seeds))
		}
		return
	}
	added := 0
	for _, seed := range seeds {
		if seed.ChainID != 0 && s.network.ChainID != 0 && seed.ChainID != s.network.ChainID {
			s.logger.Warn("Seed token belongs to another chain", "address", seed.Address, "chainId", seed.ChainID)
			continue
		}
		if _, err := s.AddToken(ctx, seed.Address); err != nil {
			if errors.Is(err, entity.ErrSessionClosed) {
				return
			}
			continue
		}
		added++
	}
	s.logger.Info("Seed tokens loaded", "added", added, "configured", len(seeds))
}

// RefreshTokens re-reads the balances of all tracked tokens.
func (s *SessionServiceImpl) RefreshTokens(ctx context.Context) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	return s.tokens.Refresh(ctx)
}

// RefreshHistory refetches the history of the connected account.
func (s *SessionServiceImpl) RefreshHistory(ctx context.Context) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	addr := s.Session().Address
	if addr == nil {
		return entity.ErrNoAccount
	}
	_, err := s.history.FetchHistory(ctx, *addr)
	s.dropHistoryIfIdle()
	return err
}

// Run reacts to provider account events until ctx is done.
func (s *SessionServiceImpl) Run(ctx context.Context) {
	events := make(chan entity.AccountEvent, accountEventBuffer)
	sub := s.gateway.SubscribeAccountEvents(events)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-sub.Err():
			if ok && err != nil {
				s.logger.Error("Account event subscription failed", "error", err)
			}
			return
		case ev := <-events:
			s.handleAccountEvent(ctx, ev)
		}
	}
}

func (s *SessionServiceImpl) handleAccountEvent(ctx context.Context, ev entity.AccountEvent) {
	switch ev.Type {
	case entity.AccountDisconnected:
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.epoch++
		s.session = entity.WalletSession{State: entity.Disconnected}
		s.mu.Unlock()
		metrics.SessionState.Set(float64(entity.Disconnected))
		s.history.Reset()
		s.logger.Info("Provider disconnected the account")

	case entity.AccountChanged:
		epoch, err := s.begin()
		if err != nil {
			return
		}
		s.logger.Info("Provider account changed", "address", ev.Address.Hex())
		if err := s.loadAccount(ctx, epoch, ev.Address); err != nil {
			if !errors.Is(err, entity.ErrSuperseded) {
				s.logger.Warn("Failed to load changed account", "address", ev.Address.Hex(), "error", err)
			}
			return
		}
		s.refreshTrackedTokens(ctx)
	}
}

// Close tears the session down. Results of operations still in flight are discarded.
func (s *SessionServiceImpl) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.epoch++
	s.session = entity.WalletSession{State: entity.Disconnected}
	s.mu.Unlock()

	metrics.SessionState.Set(float64(entity.Disconnected))
	s.history.Reset()
}

// SignerAddress returns the connected account, or the provider's current account otherwise.
func (s *SessionServiceImpl) SignerAddress(ctx context.Context) (common.Address, error) {
	s.mu.RLock()
	if s.session.State == entity.Connected && s.session.Address != nil {
		addr := *s.session.Address
		s.mu.RUnlock()
		return addr, nil
	}
	s.mu.RUnlock()
	return s.gateway.CurrentAddress(ctx)
}

// Session returns a snapshot of the wallet session.
func (s *SessionServiceImpl) Session() entity.WalletSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Snapshot()
}

// Tokens returns a snapshot of the tracked tokens.
func (s *SessionServiceImpl) Tokens() []entity.TrackedToken {
	return s.tokens.List()
}

// History returns a snapshot of the last fetched history.
func (s *SessionServiceImpl) History() []entity.HistoryEntry {
	return s.history.Entries()
}

// Network returns the network the session runs against.
func (s *SessionServiceImpl) Network() entity.NetworkDefinition {
	return s.network
}

// loadAccount fetches balance and history of addr concurrently and commits Connected.
// A history failure is logged and does not fail the connection.
func (s *SessionServiceImpl) loadAccount(ctx context.Context, epoch uint64, addr common.Address) error {
	var (
		balance *big.Int
		g       errgroup.Group
	)
	g.Go(func() error {
		b, err := s.gateway.GetBalance(ctx, addr)
		if err != nil {
			return fmt.Errorf("failed to fetch balance: %w", err)
		}
		balance = b
		return nil
	})
	g.Go(func() error {
		if _, err := s.history.FetchHistory(ctx, addr); err != nil {
			s.logger.Debug("History unavailable, keeping previous list", "address", addr.Hex(), "error", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if !s.failWithAddress(epoch, &addr, err) {
			s.dropHistoryIfIdle()
			return entity.ErrSuperseded
		}
		return err
	}

	ok := s.commit(epoch, func(ws *entity.WalletSession) {
		ws.Address = &addr
		ws.BalanceWei = balance
		ws.State = entity.Connected
		ws.LastError = nil
	})
	if !ok {
		s.dropHistoryIfIdle()
		return entity.ErrSuperseded
	}
	return nil
}

// refreshTrackedTokens re-reads token balances for a newly loaded account.
func (s *SessionServiceImpl) refreshTrackedTokens(ctx context.Context) {
	if err := s.tokens.Refresh(ctx); err != nil {
		s.logger.Warn("Failed to refresh token balances for the new account", "error", err)
	}
}

// dropHistoryIfIdle clears history a discarded fetch may have stored after a disconnect or Close.
// Holding s.mu keeps a new attempt from starting its fetch before the reset.
func (s *SessionServiceImpl) dropHistoryIfIdle() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.session.State == entity.Disconnected {
		s.history.Reset()
	}
}

// begin moves the session to Connecting and returns the new epoch.
func (s *SessionServiceImpl) begin() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, entity.ErrSessionClosed
	}
	s.epoch++
	s.session.State = entity.Connecting
	s.session.LastError = nil
	metrics.SessionState.Set(float64(entity.Connecting))
	return s.epoch, nil
}

// commit applies update when epoch is still current. It reports whether the update was applied.
func (s *SessionServiceImpl) commit(epoch uint64, update func(*entity.WalletSession)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || epoch != s.epoch {
		return false
	}
	update(&s.session)
	metrics.SessionState.Set(float64(s.session.State))
	return true
}

func (s *SessionServiceImpl) fail(epoch uint64, err error) bool {
	return s.failWithAddress(epoch, nil, err)
}

func (s *SessionServiceImpl) failWithAddress(epoch uint64, addr *common.Address, err error) bool {
	return s.commit(epoch, func(ws *entity.WalletSession) {
		if addr != nil {
			a := *addr
			ws.Address = &a
		}
		ws.BalanceWei = nil
		ws.State = entity.Failed
		ws.LastError = err
	})
}

func (s *SessionServiceImpl) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *SessionServiceImpl) requireConnected() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return entity.ErrSessionClosed
	}
	if s.session.State != entity.Connected {
		return entity.ErrNoAccount
	}
	return nil
}

// parseAccountHint accepts an empty string or an address. Anything else, private keys included,
// is rejected without echoing the input.
func parseAccountHint(raw string) (*common.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	addr, err := entity.ParseAddress(raw)
	if err != nil {
		return nil, entity.ErrKeyMaterialRejected
	}
	return &addr, nil
}

func selectAccount(accounts []common.Address, hint *common.Address) (common.Address, error) {
	if len(accounts) == 0 {
		return common.Address{}, entity.ErrNoAccount
	}
	if hint == nil {
		return accounts[0], nil
	}
	for _, a := range accounts {
		if a == *hint {
			return a, nil
		}
	}
	return common.Address{}, fmt.Errorf("%w: %s is not authorized by the provider", entity.ErrNoAccount, hint.Hex())
}
