package service

import (
	"context"
	"math/big"
	"sync"

	"wallet_session/internal/domain/entity"
	"wallet_session/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

var (
	signer   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	other    = common.HexToAddress("0x2222222222222222222222222222222222222222")
	tokenA   = common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	tokenB   = common.HexToAddress("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
	testNet  = entity.NetworkDefinition{ChainID: 11155111, Name: "Sepolia", Identifier: "sepolia", NativeSymbol: "ETH", Decimals: 18}
	nopLog   = logger.NewNop()
	oneEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

type viewResult struct {
	value interface{}
	err   error
}

// fakeGateway is an in-memory port.ProviderGateway.
type fakeGateway struct {
	mu sync.Mutex

	present    bool
	accounts   []common.Address
	accessErr  error
	currentErr error
	balances   map[common.Address]*big.Int
	balanceErr error
	// balanceGate, when set, blocks GetBalance until closed; balanceEntered is signalled first.
	balanceGate    chan struct{}
	balanceEntered chan struct{}
	views          map[string]viewResult
	// holdings overrides balanceOf per contract and owner.
	holdings  map[string]*big.Int
	lastOwner common.Address

	calls map[string]int
	feed  event.Feed
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		present:  true,
		accounts: []common.Address{signer},
		balances: map[common.Address]*big.Int{signer: new(big.Int).Set(oneEther)},
		views:    make(map[string]viewResult),
		holdings: make(map[string]*big.Int),
		calls:    make(map[string]int),
	}
}

func viewKey(contract common.Address, signature string) string {
	return contract.Hex() + "|" + signature
}

func (g *fakeGateway) setView(contract common.Address, signature string, value interface{}, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.views[viewKey(contract, signature)] = viewResult{value: value, err: err}
}

// token registers a well-behaved ERC20 at contract.
func (g *fakeGateway) token(contract common.Address, symbol string, balance int64) {
	g.setView(contract, symbolSignature, symbol, nil)
	g.setView(contract, balanceOfSignature, big.NewInt(balance), nil)
}

// holding sets the balanceOf result of owner at contract.
func (g *fakeGateway) holding(contract, owner common.Address, balance int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.holdings[viewKey(contract, owner.Hex())] = big.NewInt(balance)
}

func (g *fakeGateway) balanceOwner() common.Address {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastOwner
}

func (g *fakeGateway) count(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[name]
}

func (g *fakeGateway) record(name string) {
	g.mu.Lock()
	g.calls[name]++
	g.mu.Unlock()
}

func (g *fakeGateway) Detect() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.present
}

func (g *fakeGateway) RequestAccess(ctx context.Context) ([]common.Address, error) {
	g.record("RequestAccess")
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.present {
		return nil, entity.ErrProviderNotFound
	}
	if g.accessErr != nil {
		return nil, g.accessErr
	}
	return append([]common.Address(nil), g.accounts...), nil
}

func (g *fakeGateway) CurrentAddress(ctx context.Context) (common.Address, error) {
	g.record("CurrentAddress")
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.present {
		return common.Address{}, entity.ErrProviderNotFound
	}
	if g.currentErr != nil {
		return common.Address{}, g.currentErr
	}
	if len(g.accounts) == 0 {
		return common.Address{}, entity.ErrNoAccount
	}
	return g.accounts[0], nil
}

func (g *fakeGateway) GetBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	g.record("GetBalance")
	g.mu.Lock()
	gate, entered := g.balanceGate, g.balanceEntered
	g.mu.Unlock()
	if gate != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		<-gate
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.present {
		return nil, entity.ErrProviderNotFound
	}
	if g.balanceErr != nil {
		return nil, g.balanceErr
	}
	b, ok := g.balances[addr]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(b), nil
}

func (g *fakeGateway) CallContractView(ctx context.Context, contract common.Address, signature string, args ...interface{}) (interface{}, error) {
	g.record(signature)
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.present {
		return nil, entity.ErrProviderNotFound
	}
	if signature == balanceOfSignature && len(args) == 1 {
		if owner, ok := args[0].(common.Address); ok {
			g.lastOwner = owner
			if b, ok := g.holdings[viewKey(contract, owner.Hex())]; ok {
				return new(big.Int).Set(b), nil
			}
		}
	}
	res, ok := g.views[viewKey(contract, signature)]
	if !ok {
		return nil, entity.ErrNotAContract
	}
	if b, isBig := res.value.(*big.Int); isBig {
		return new(big.Int).Set(b), res.err
	}
	return res.value, res.err
}

func (g *fakeGateway) SubscribeAccountEvents(sink chan<- entity.AccountEvent) event.Subscription {
	return g.feed.Subscribe(sink)
}

// fakeHistoryService is an in-memory port.HistoryService.
type fakeHistoryService struct {
	mu      sync.Mutex
	entries map[common.Address][]entity.HistoryEntry
	err     error
	gates   map[common.Address]chan struct{}
	calls   int
}

func newFakeHistoryService() *fakeHistoryService {
	return &fakeHistoryService{
		entries: make(map[common.Address][]entity.HistoryEntry),
		gates:   make(map[common.Address]chan struct{}),
	}
}

func (h *fakeHistoryService) set(addr common.Address, entries ...entity.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[addr] = entries
}

func (h *fakeHistoryService) setErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *fakeHistoryService) gate(addr common.Address) chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan struct{})
	h.gates[addr] = ch
	return ch
}

func (h *fakeHistoryService) GetHistory(ctx context.Context, addr common.Address) ([]entity.HistoryEntry, error) {
	h.mu.Lock()
	h.calls++
	gate := h.gates[addr]
	h.mu.Unlock()
	if gate != nil {
		<-gate
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	return append([]entity.HistoryEntry(nil), h.entries[addr]...), nil
}

func txEntry(hash string, wei int64) entity.HistoryEntry {
	return entity.HistoryEntry{
		TransactionHash: common.HexToHash(hash),
		ValueWei:        big.NewInt(wei),
	}
}
