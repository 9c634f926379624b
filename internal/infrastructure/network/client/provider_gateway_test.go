package client

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"wallet_session/internal/domain/entity"
	"wallet_session/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcError struct {
	code int
	msg  string
}

func (e *rpcError) Error() string  { return e.msg }
func (e *rpcError) ErrorCode() int { return e.code }

type rpcHandler func(ctx context.Context, args []interface{}) (interface{}, error)

// fakeProvider answers JSON-RPC calls from per-method handlers and JSON-roundtrips results like a real client.
type fakeProvider struct {
	mu       sync.Mutex
	handlers map[string]rpcHandler
	calls    []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{handlers: map[string]rpcHandler{}}
}

func (f *fakeProvider) on(method string, h rpcHandler) *fakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
	return f
}

func (f *fakeProvider) reply(method string, v interface{}) *fakeProvider {
	return f.on(method, func(context.Context, []interface{}) (interface{}, error) { return v, nil })
}

func (f *fakeProvider) fail(method string, err error) *fakeProvider {
	return f.on(method, func(context.Context, []interface{}) (interface{}, error) { return nil, err })
}

func (f *fakeProvider) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	f.mu.Lock()
	h, ok := f.handlers[method]
	f.calls = append(f.calls, method)
	f.mu.Unlock()
	if !ok {
		return &rpcError{code: codeMethodNotFound, msg: "the method " + method + " does not exist/is not available"}
	}
	v, err := h(ctx, args)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, result)
}

func (f *fakeProvider) called(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

var (
	signer   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenA   = common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	fakeCode = hexutil.Bytes{0x60, 0x80, 0x60, 0x40}
)

func packOutput(t *testing.T, method string, v interface{}) hexutil.Bytes {
	t.Helper()
	initParsedERC20ABI()
	out, err := parsedERC20ABI.Methods[method].Outputs.Pack(v)
	require.NoError(t, err)
	return out
}

func newGateway(p *fakeProvider, opts GatewayOptions) *EVMProviderGateway {
	if p == nil {
		return NewProviderGateway(nil, opts, logger.NewNop())
	}
	return NewProviderGateway(p, opts, logger.NewNop())
}

func TestDetect(t *testing.T) {
	assert.False(t, newGateway(nil, GatewayOptions{}).Detect())
	assert.True(t, newGateway(newFakeProvider(), GatewayOptions{ClientVersion: "Geth/v1.15"}).Detect())
	assert.True(t, newGateway(newFakeProvider(), GatewayOptions{ClientVersion: "Frame/v0.6.9", ExpectedClient: "frame"}).Detect())
	assert.False(t, newGateway(newFakeProvider(), GatewayOptions{ClientVersion: "Geth/v1.15", ExpectedClient: "frame"}).Detect())
}

func TestRequestAccess(t *testing.T) {
	t.Run("no provider", func(t *testing.T) {
		_, err := newGateway(nil, GatewayOptions{}).RequestAccess(context.Background())
		assert.ErrorIs(t, err, entity.ErrProviderNotFound)
	})

	t.Run("unsupported wallet type", func(t *testing.T) {
		p := newFakeProvider().reply("eth_requestAccounts", []string{signer.Hex()})
		_, err := newGateway(p, GatewayOptions{ClientVersion: "Geth", ExpectedClient: "Frame"}).RequestAccess(context.Background())
		assert.ErrorIs(t, err, entity.ErrProviderNotFound)
		assert.Zero(t, p.called("eth_requestAccounts"))
	})

	t.Run("authorized", func(t *testing.T) {
		p := newFakeProvider().reply("eth_requestAccounts", []string{signer.Hex()})
		accounts, err := newGateway(p, GatewayOptions{}).RequestAccess(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []common.Address{signer}, accounts)
	})

	t.Run("user rejected", func(t *testing.T) {
		p := newFakeProvider().fail("eth_requestAccounts", &rpcError{code: codeUserRejected, msg: "User rejected the request."})
		_, err := newGateway(p, GatewayOptions{}).RequestAccess(context.Background())
		assert.ErrorIs(t, err, entity.ErrAccessRejected)
	})

	t.Run("falls back to eth_accounts", func(t *testing.T) {
		p := newFakeProvider().reply("eth_accounts", []string{signer.Hex()})
		accounts, err := newGateway(p, GatewayOptions{}).RequestAccess(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []common.Address{signer}, accounts)
	})

	t.Run("empty account list", func(t *testing.T) {
		p := newFakeProvider().reply("eth_requestAccounts", []string{})
		_, err := newGateway(p, GatewayOptions{}).RequestAccess(context.Background())
		assert.ErrorIs(t, err, entity.ErrNoAccount)
	})

	t.Run("transport failure", func(t *testing.T) {
		p := newFakeProvider().fail("eth_requestAccounts", errors.New("dial tcp 127.0.0.1:1248: connect: connection refused"))
		_, err := newGateway(p, GatewayOptions{}).RequestAccess(context.Background())
		assert.ErrorIs(t, err, entity.ErrProviderNotFound)
	})
}

func TestCurrentAddress(t *testing.T) {
	p := newFakeProvider().reply("eth_accounts", []string{signer.Hex(), tokenA.Hex()})
	addr, err := newGateway(p, GatewayOptions{}).CurrentAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, signer, addr)

	p = newFakeProvider().reply("eth_accounts", []string{})
	_, err = newGateway(p, GatewayOptions{}).CurrentAddress(context.Background())
	assert.ErrorIs(t, err, entity.ErrNoAccount)
}

func TestGetBalance(t *testing.T) {
	oneEther, _ := new(big.Int).SetString("1000000000000000000", 10)

	t.Run("ok", func(t *testing.T) {
		p := newFakeProvider().on("eth_getBalance", func(_ context.Context, args []interface{}) (interface{}, error) {
			require.Len(t, args, 2)
			assert.Equal(t, signer, args[0])
			assert.Equal(t, "latest", args[1])
			return (*hexutil.Big)(oneEther), nil
		})
		bal, err := newGateway(p, GatewayOptions{}).GetBalance(context.Background(), signer)
		require.NoError(t, err)
		assert.Equal(t, 0, bal.Cmp(oneEther))
	})

	t.Run("zero address", func(t *testing.T) {
		_, err := newGateway(newFakeProvider(), GatewayOptions{}).GetBalance(context.Background(), common.Address{})
		assert.ErrorIs(t, err, entity.ErrInvalidAddress)
	})

	t.Run("invalid params", func(t *testing.T) {
		p := newFakeProvider().fail("eth_getBalance", &rpcError{code: codeInvalidParams, msg: "invalid argument 0"})
		_, err := newGateway(p, GatewayOptions{}).GetBalance(context.Background(), signer)
		assert.ErrorIs(t, err, entity.ErrInvalidAddress)
	})

	t.Run("unreachable", func(t *testing.T) {
		p := newFakeProvider().fail("eth_getBalance", errors.New("connection reset by peer"))
		_, err := newGateway(p, GatewayOptions{}).GetBalance(context.Background(), signer)
		assert.ErrorIs(t, err, entity.ErrNetworkUnreachable)
	})

	t.Run("timeout", func(t *testing.T) {
		p := newFakeProvider().on("eth_getBalance", func(ctx context.Context, _ []interface{}) (interface{}, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		_, err := newGateway(p, GatewayOptions{CallTimeout: 20 * time.Millisecond}).GetBalance(context.Background(), signer)
		assert.ErrorIs(t, err, entity.ErrTimeout)
	})
}

func TestCallContractView(t *testing.T) {
	t.Run("symbol", func(t *testing.T) {
		p := newFakeProvider().
			reply("eth_getCode", fakeCode).
			reply("eth_call", packOutput(t, "symbol", "TKN"))
		v, err := newGateway(p, GatewayOptions{}).CallContractView(context.Background(), tokenA, "symbol()")
		require.NoError(t, err)
		assert.Equal(t, "TKN", v)
	})

	t.Run("balanceOf packs the owner", func(t *testing.T) {
		p := newFakeProvider().
			reply("eth_getCode", fakeCode).
			on("eth_call", func(_ context.Context, args []interface{}) (interface{}, error) {
				callArgs := args[0].(map[string]interface{})
				assert.Equal(t, tokenA, callArgs["to"])
				data := callArgs["data"].(hexutil.Bytes)
				require.Len(t, data, 4+32)
				assert.Equal(t, parsedERC20ABI.Methods["balanceOf"].ID, []byte(data[:4]))
				assert.Equal(t, signer.Bytes(), []byte(data[16:]))
				return packOutput(t, "balanceOf", big.NewInt(500)), nil
			})
		v, err := newGateway(p, GatewayOptions{}).CallContractView(context.Background(), tokenA, "balanceOf(address)", signer)
		require.NoError(t, err)
		require.IsType(t, &big.Int{}, v)
		assert.Equal(t, 0, big.NewInt(500).Cmp(v.(*big.Int)))
	})

	t.Run("no code", func(t *testing.T) {
		p := newFakeProvider().reply("eth_getCode", hexutil.Bytes{})
		_, err := newGateway(p, GatewayOptions{}).CallContractView(context.Background(), tokenA, "symbol()")
		assert.ErrorIs(t, err, entity.ErrNotAContract)
		assert.Zero(t, p.called("eth_call"))
	})

	t.Run("empty return", func(t *testing.T) {
		p := newFakeProvider().reply("eth_getCode", fakeCode).reply("eth_call", hexutil.Bytes{})
		_, err := newGateway(p, GatewayOptions{}).CallContractView(context.Background(), tokenA, "symbol()")
		assert.ErrorIs(t, err, entity.ErrNotAContract)
	})

	t.Run("malformed return", func(t *testing.T) {
		p := newFakeProvider().reply("eth_getCode", fakeCode).reply("eth_call", hexutil.Bytes{0x01, 0x02})
		_, err := newGateway(p, GatewayOptions{}).CallContractView(context.Background(), tokenA, "symbol()")
		assert.ErrorIs(t, err, entity.ErrNotAContract)
	})

	t.Run("revert", func(t *testing.T) {
		p := newFakeProvider().
			reply("eth_getCode", fakeCode).
			fail("eth_call", &rpcError{code: codeExecutionError, msg: "execution reverted"})
		_, err := newGateway(p, GatewayOptions{}).CallContractView(context.Background(), tokenA, "symbol()")
		assert.ErrorIs(t, err, entity.ErrRevert)
	})

	t.Run("revert reported as server error", func(t *testing.T) {
		p := newFakeProvider().
			reply("eth_getCode", fakeCode).
			fail("eth_call", &rpcError{code: -32000, msg: "execution reverted: not supported"})
		_, err := newGateway(p, GatewayOptions{}).CallContractView(context.Background(), tokenA, "symbol()")
		assert.ErrorIs(t, err, entity.ErrRevert)
	})

	t.Run("unknown signature", func(t *testing.T) {
		_, err := newGateway(newFakeProvider(), GatewayOptions{}).CallContractView(context.Background(), tokenA, "transfer(address,uint256)")
		require.Error(t, err)
	})

	t.Run("no provider", func(t *testing.T) {
		_, err := newGateway(nil, GatewayOptions{}).CallContractView(context.Background(), tokenA, "symbol()")
		assert.ErrorIs(t, err, entity.ErrProviderNotFound)
	})
}
