package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"wallet_session/internal/app/port"
	"wallet_session/internal/domain/entity"
	"wallet_session/internal/pkg/metrics"
	"wallet_session/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

const (
	symbolSignature    = "symbol()"
	decimalsSignature  = "decimals()"
	balanceOfSignature = "balanceOf(address)"

	refreshConcurrency = 4
)

type tokenMetadata struct {
	symbol   string
	decimals *uint8
}

// TokenRegistryImpl implements port.TokenRegistry.
type TokenRegistryImpl struct {
	gateway  port.ProviderGateway
	logger   port.Logger
	metadata *cache.Cache

	mu     sync.RWMutex
	tokens []entity.TrackedToken
	owner  port.OwnerResolver
}

// NewTokenRegistry creates an empty registry. Symbol and decimals are cached per contract for metadataTTL.
func NewTokenRegistry(gw port.ProviderGateway, l port.Logger, metadataTTL time.Duration) *TokenRegistryImpl {
	if metadataTTL <= 0 {
		metadataTTL = time.Hour
	}
	return &TokenRegistryImpl{
		gateway:  gw,
		logger:   l,
		metadata: cache.New(metadataTTL, 2*metadataTTL),
		tokens:   make([]entity.TrackedToken, 0),
	}
}

// SetOwnerResolver makes balances follow the account fn returns. A nil fn restores the default.
func (r *TokenRegistryImpl) SetOwnerResolver(fn port.OwnerResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owner = fn
}

func (r *TokenRegistryImpl) resolveOwner(ctx context.Context) (common.Address, error) {
	r.mu.RLock()
	fn := r.owner
	r.mu.RUnlock()
	if fn == nil {
		fn = r.gateway.CurrentAddress
	}
	addr, err := fn(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to resolve signer address: %w", err)
	}
	return addr, nil
}

// AddToken validates raw, reads the contract's symbol and the signer's balance and appends the token.
// The registry is unchanged when any step fails.
func (r *TokenRegistryImpl) AddToken(ctx context.Context, raw string) (entity.TrackedToken, error) {
	token, err := r.addToken(ctx, raw)
	metrics.TokenAdds.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		r.logger.Warn("Failed to add token", "error", err)
		return entity.TrackedToken{}, err
	}
	r.logger.Info("Token added", "contract", token.ContractAddress.Hex(), "symbol", token.Symbol)
	return token, nil
}

func (r *TokenRegistryImpl) addToken(ctx context.Context, raw string) (entity.TrackedToken, error) {
	contract, err := entity.ParseAddress(raw)
	if err != nil {
		return entity.TrackedToken{}, fmt.Errorf("%w: %v", entity.ErrTokenInvalidAddress, err)
	}
	if r.contains(contract) {
		return entity.TrackedToken{}, fmt.Errorf("%w: %s", entity.ErrDuplicateToken, contract.Hex())
	}

	meta, err := r.metadataFor(ctx, contract)
	if err != nil {
		return entity.TrackedToken{}, err
	}

	signer, err := r.resolveOwner(ctx)
	if err != nil {
		return entity.TrackedToken{}, err
	}

	balance, err := r.balanceOf(ctx, contract, signer)
	if err != nil {
		return entity.TrackedToken{}, err
	}

	token := entity.TrackedToken{
		ContractAddress: contract,
		Symbol:          meta.symbol,
		BalanceRaw:      balance,
		Decimals:        meta.decimals,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// another add of the same contract may have completed while we were querying
	if r.indexLocked(contract) >= 0 {
		return entity.TrackedToken{}, fmt.Errorf("%w: %s", entity.ErrDuplicateToken, contract.Hex())
	}
	r.tokens = append(r.tokens, token)
	return token.Clone(), nil
}

// List returns a deep copy of the tracked tokens in insertion order.
func (r *TokenRegistryImpl) List() []entity.TrackedToken {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.TrackedToken, len(r.tokens))
	for i, t := range r.tokens {
		out[i] = t.Clone()
	}
	return out
}

// Refresh re-reads every token balance for the current signer.
// Tokens whose query fails keep their previous entry; the first such error is returned.
func (r *TokenRegistryImpl) Refresh(ctx context.Context) error {
	snapshot := r.List()
	if len(snapshot) == 0 {
		return nil
	}

	signer, err := r.resolveOwner(ctx)
	if err != nil {
		return err
	}

	balances := make([]*big.Int, len(snapshot))
	errs := make([]error, len(snapshot))
	var g errgroup.Group
	g.SetLimit(refreshConcurrency)
	for i, t := range snapshot {
		g.Go(func() error {
			balances[i], errs[i] = r.balanceOf(ctx, t.ContractAddress, signer)
			return nil
		})
	}
	_ = g.Wait()

	r.mu.Lock()
	for i, t := range snapshot {
		if errs[i] != nil {
			continue
		}
		idx := r.indexLocked(t.ContractAddress)
		if idx < 0 {
			continue
		}
		updated := r.tokens[idx].Clone()
		updated.BalanceRaw = balances[i]
		r.tokens[idx] = updated
	}
	r.mu.Unlock()

	var firstErr error
	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		r.logger.Warn("Failed to refresh token balance", "contract", snapshot[i].ContractAddress.Hex(), "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	r.logger.Debug("Token balances refreshed", "count", len(snapshot), "failed", failed)
	return firstErr
}

func (r *TokenRegistryImpl) contains(contract common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexLocked(contract) >= 0
}

func (r *TokenRegistryImpl) indexLocked(contract common.Address) int {
	for i, t := range r.tokens {
		if t.ContractAddress == contract {
			return i
		}
	}
	return -1
}

// metadataFor returns the cached symbol and decimals of contract, querying them on a miss.
func (r *TokenRegistryImpl) metadataFor(ctx context.Context, contract common.Address) (tokenMetadata, error) {
	key := contract.Hex()
	if cached, ok := r.metadata.Get(key); ok {
		return cached.(tokenMetadata), nil
	}

	value, err := r.gateway.CallContractView(ctx, contract, symbolSignature)
	if err != nil {
		return tokenMetadata{}, asTokenError(err)
	}
	symbol, ok := value.(string)
	if !ok {
		return tokenMetadata{}, fmt.Errorf("%w: symbol() returned %T", entity.ErrNotAToken, value)
	}

	meta := tokenMetadata{symbol: symbol}
	if value, err := r.gateway.CallContractView(ctx, contract, decimalsSignature); err == nil {
		if d, ok := value.(uint8); ok {
			meta.decimals = &d
		}
	} else {
		r.logger.Debug("decimals() unavailable", "contract", key, "error", err)
	}

	r.metadata.SetDefault(key, meta)
	return meta, nil
}

func (r *TokenRegistryImpl) balanceOf(ctx context.Context, contract, owner common.Address) (*big.Int, error) {
	value, err := r.gateway.CallContractView(ctx, contract, balanceOfSignature, owner)
	if err != nil {
		return nil, asTokenError(err)
	}
	balance, ok := value.(*big.Int)
	if !ok || balance == nil {
		return nil, fmt.Errorf("%w: balanceOf() returned %T", entity.ErrNotAToken, value)
	}
	return utils.CopyBigInt(balance), nil
}

// asTokenError turns contract failures into ErrNotAToken and leaves connection and network errors as they are.
func asTokenError(err error) error {
	if errors.Is(err, entity.ErrNotAContract) || errors.Is(err, entity.ErrRevert) {
		return fmt.Errorf("%w: %w", entity.ErrNotAToken, err)
	}
	return err
}
