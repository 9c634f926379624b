package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"wallet_session/internal/app/port"
	"wallet_session/internal/domain/entity"
	"wallet_session/internal/pkg/metrics"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
)

// EIP-1193 / JSON-RPC error codes the gateway distinguishes.
const (
	codeUserRejected     = 4001
	codeUnauthorized     = 4100
	codeExecutionError   = 3
	codeMethodNotFound   = -32601
	codeInvalidParams    = -32602
	defaultCallTimeout   = 30 * time.Second
	blockTagLatest       = "latest"
	revertMessageKeyword = "revert"
)

// ERC20 view subset used by the token registry.
const erc20ViewABI = `[
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"payable":false,"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}
]`

var (
	parsedERC20ABI  abi.ABI
	parsedERC20Once sync.Once
	methodsBySig    map[string]abi.Method
)

func initParsedERC20ABI() {
	parsedERC20Once.Do(func() {
		var err error
		parsedERC20ABI, err = abi.JSON(strings.NewReader(erc20ViewABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
		methodsBySig = make(map[string]abi.Method, len(parsedERC20ABI.Methods))
		for _, m := range parsedERC20ABI.Methods {
			methodsBySig[m.Sig] = m
		}
	})
}

// GatewayOptions configures an EVMProviderGateway.
type GatewayOptions struct {
	ClientVersion  string        // web3_clientVersion reported by the provider at dial time
	ExpectedClient string        // case-insensitive substring ClientVersion must contain; empty accepts any
	CallTimeout    time.Duration // bound for every provider call
}

// EVMProviderGateway implements port.ProviderGateway over a JSON-RPC signing provider.
type EVMProviderGateway struct {
	provider       port.SigningProvider
	clientVersion  string
	expectedClient string
	callTimeout    time.Duration
	logger         port.Logger

	feed  event.Feed
	scope event.SubscriptionScope

	watchMu     sync.Mutex
	watchInit   bool
	lastAccount *common.Address
}

// NewProviderGateway wraps provider. A nil provider yields a gateway for which Detect is false
// and every operation fails with entity.ErrProviderNotFound.
func NewProviderGateway(provider port.SigningProvider, opts GatewayOptions, logger port.Logger) *EVMProviderGateway {
	initParsedERC20ABI()
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	return &EVMProviderGateway{
		provider:       provider,
		clientVersion:  opts.ClientVersion,
		expectedClient: opts.ExpectedClient,
		callTimeout:    opts.CallTimeout,
		logger:         logger,
	}
}

// Detect reports whether a provider is present and identifies as the supported wallet type.
func (g *EVMProviderGateway) Detect() bool {
	if g.provider == nil {
		return false
	}
	if g.expectedClient == "" {
		return true
	}
	return strings.Contains(strings.ToLower(g.clientVersion), strings.ToLower(g.expectedClient))
}

// ClientVersion returns the identity the provider reported at dial time.
func (g *EVMProviderGateway) ClientVersion() string {
	return g.clientVersion
}

// RequestAccess asks the provider to authorize this client (eth_requestAccounts).
// Providers without that method (plain nodes) fall back to eth_accounts.
func (g *EVMProviderGateway) RequestAccess(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	err := g.call(ctx, &accounts, "eth_requestAccounts")
	if rpcErrorCode(err) == codeMethodNotFound {
		g.logger.Debug("Provider does not implement eth_requestAccounts, falling back to eth_accounts")
		accounts = nil
		err = g.call(ctx, &accounts, "eth_accounts")
	}
	if err != nil {
		return nil, classifyAccessError(err)
	}
	if len(accounts) == 0 {
		return nil, entity.ErrNoAccount
	}
	return accounts, nil
}

// CurrentAddress returns the first authorized account (eth_accounts).
func (g *EVMProviderGateway) CurrentAddress(ctx context.Context) (common.Address, error) {
	accounts, err := g.accounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if len(accounts) == 0 {
		return common.Address{}, entity.ErrNoAccount
	}
	return accounts[0], nil
}

func (g *EVMProviderGateway) accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := g.call(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, classifyAccessError(err)
	}
	return accounts, nil
}

// GetBalance fetches the wei balance of addr at the latest block.
func (g *EVMProviderGateway) GetBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero address", entity.ErrInvalidAddress)
	}
	var result hexutil.Big
	if err := g.call(ctx, &result, "eth_getBalance", addr, blockTagLatest); err != nil {
		return nil, classifyNetworkError(err)
	}
	return new(big.Int).Set((*big.Int)(&result)), nil
}

// CallContractView performs an eth_call of a known view method and returns its first output.
// Supported signatures: symbol(), name(), decimals(), balanceOf(address).
func (g *EVMProviderGateway) CallContractView(ctx context.Context, contract common.Address, signature string, args ...interface{}) (interface{}, error) {
	method, ok := methodsBySig[signature]
	if !ok {
		return nil, fmt.Errorf("unsupported view signature %q", signature)
	}
	input, err := parsedERC20ABI.Pack(method.Name, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s arguments: %w", signature, err)
	}

	var code hexutil.Bytes
	if err := g.call(ctx, &code, "eth_getCode", contract, blockTagLatest); err != nil {
		return nil, classifyContractError(err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: no code at %s", entity.ErrNotAContract, contract.Hex())
	}

	callArgs := map[string]interface{}{
		"to":   contract,
		"data": hexutil.Bytes(input),
	}
	var out hexutil.Bytes
	if err := g.call(ctx, &out, "eth_call", callArgs, blockTagLatest); err != nil {
		return nil, classifyContractError(err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty %s response from %s", entity.ErrNotAContract, signature, contract.Hex())
	}

	values, err := method.Outputs.Unpack(out)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to unpack %s result: %v. Raw: %s", entity.ErrNotAContract, signature, err, hexutil.Encode(out))
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s unpack returned no data", entity.ErrNotAContract, signature)
	}
	return values[0], nil
}

// SubscribeAccountEvents registers sink for account notifications produced by WatchAccounts.
func (g *EVMProviderGateway) SubscribeAccountEvents(sink chan<- entity.AccountEvent) event.Subscription {
	return g.scope.Track(g.feed.Subscribe(sink))
}

// Close ends all account event subscriptions.
func (g *EVMProviderGateway) Close() {
	g.scope.Close()
}

// call runs one bounded provider call and records its outcome.
func (g *EVMProviderGateway) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if !g.Detect() {
		metrics.ProviderCalls.WithLabelValues(method, metrics.Outcome(entity.ErrProviderNotFound)).Inc()
		return entity.ErrProviderNotFound
	}

	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	err := g.provider.CallContext(callCtx, result, method, args...)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("%w: %s after %s: %v", entity.ErrTimeout, method, g.callTimeout, err)
	}
	if err != nil {
		g.logger.Debug("Provider call failed", "method", method, "error", err)
		err = fmt.Errorf("%s: %w", method, err)
	}
	metrics.ProviderCalls.WithLabelValues(method, outcomeLabel(err)).Inc()
	return err
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if code := rpcErrorCode(err); code != 0 {
		return fmt.Sprintf("rpc_%d", code)
	}
	return metrics.Outcome(err)
}

// rpcErrorCode returns the JSON-RPC error code carried by err, or 0.
func rpcErrorCode(err error) int {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode()
	}
	return 0
}

func isRPCError(err error) bool {
	var rpcErr rpc.Error
	return errors.As(err, &rpcErr)
}

func isTimeout(err error) bool {
	return errors.Is(err, entity.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

func classifyAccessError(err error) error {
	switch {
	case errors.Is(err, entity.ErrProviderNotFound):
		return err
	case isTimeout(err):
		return wrapAs(entity.ErrTimeout, err)
	case rpcErrorCode(err) == codeUserRejected, rpcErrorCode(err) == codeUnauthorized:
		return fmt.Errorf("%w: %v", entity.ErrAccessRejected, err)
	case isRPCError(err):
		return fmt.Errorf("%w: %v", entity.ErrAccessRejected, err)
	default:
		// transport failure: the provider is not reachable
		return fmt.Errorf("%w: %v", entity.ErrProviderNotFound, err)
	}
}

func classifyNetworkError(err error) error {
	switch {
	case errors.Is(err, entity.ErrProviderNotFound):
		return err
	case isTimeout(err):
		return wrapAs(entity.ErrTimeout, err)
	case rpcErrorCode(err) == codeInvalidParams:
		return fmt.Errorf("%w: %v", entity.ErrInvalidAddress, err)
	default:
		return fmt.Errorf("%w: %v", entity.ErrNetworkUnreachable, err)
	}
}

func classifyContractError(err error) error {
	switch {
	case errors.Is(err, entity.ErrProviderNotFound):
		return err
	case isTimeout(err):
		return wrapAs(entity.ErrTimeout, err)
	case rpcErrorCode(err) == codeExecutionError,
		isRPCError(err) && strings.Contains(strings.ToLower(err.Error()), revertMessageKeyword):
		return fmt.Errorf("%w: %v", entity.ErrRevert, err)
	case isRPCError(err):
		return fmt.Errorf("%w: %v", entity.ErrNotAContract, err)
	default:
		return fmt.Errorf("%w: %v", entity.ErrNetworkUnreachable, err)
	}
}

func wrapAs(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}
