package client

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"wallet_session/internal/app/port"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// ProviderHandle is a connected signing provider and the identity it reported.
type ProviderHandle struct {
	Client        *rpc.Client
	URL           string
	ClientVersion string
	ChainID       *big.Int
}

// Close releases the underlying RPC connection.
func (h *ProviderHandle) Close() {
	if h != nil && h.Client != nil {
		h.Client.Close()
	}
}

// DialSigningProvider connects to the first reachable URL. Each attempt must answer
// web3_clientVersion and eth_chainId within connectionTimeout.
func DialSigningProvider(ctx context.Context, urls []string, connectionTimeout time.Duration, logger port.Logger) (*ProviderHandle, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("no signing provider URL configured")
	}
	var lastErr error

	for _, url := range urls {
		handle, err := dialOne(ctx, url, connectionTimeout)
		if err == nil {
			logger.Info("Connected to signing provider", "url", url, "client", handle.ClientVersion, "chain_id", handle.ChainID.String())
			return handle, nil
		}
		logger.Warn("Signing provider connection attempt failed", "url", url, "error", err)
		lastErr = err
	}

	return nil, fmt.Errorf("all signing provider connection attempts failed: %w", lastErr)
}

func dialOne(ctx context.Context, url string, timeout time.Duration) (*ProviderHandle, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rpcClient, err := rpc.DialContext(dialCtx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	var version string
	if err := rpcClient.CallContext(dialCtx, &version, "web3_clientVersion"); err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("failed to identify provider at %s: %w", url, err)
	}

	chainID, err := ethclient.NewClient(rpcClient).ChainID(dialCtx)
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("failed to read chain ID from %s: %w", url, err)
	}

	return &ProviderHandle{Client: rpcClient, URL: url, ClientVersion: version, ChainID: chainID}, nil
}
