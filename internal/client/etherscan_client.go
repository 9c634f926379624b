package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wallet_session/internal/app/port"
	domain "wallet_session/internal/domain/entity"
	"wallet_session/internal/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const noTransactionsMessage = "No transactions found"

// EtherscanOptions configures the history client.
type EtherscanOptions struct {
	BaseURL            string
	APIKey             string
	ChainID            uint64
	Timeout            time.Duration
	MaxResults         int
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// etherscanClientImpl implements port.HistoryService against an Etherscan-compatible API.
type etherscanClientImpl struct {
	client     *fasthttp.Client
	baseURL    string
	apiKey     string
	chainID    uint64
	timeout    time.Duration
	maxResults int
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewEtherscanClient creates a new history client.
func NewEtherscanClient(opts EtherscanOptions, logger *zap.Logger) port.HistoryService {
	if opts.RateLimitPerSecond <= 0 {
		opts.RateLimitPerSecond = 5
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &etherscanClientImpl{
		client:     &fasthttp.Client{},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		chainID:    opts.ChainID,
		timeout:    opts.Timeout,
		maxResults: opts.MaxResults,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimitPerSecond), opts.RateLimitBurst),
		logger:     logger.Named("EtherscanClient"),
	}
}

// GetHistory returns the normal transactions of addr in ascending block order.
func (c *etherscanClientImpl) GetHistory(ctx context.Context, addr common.Address) ([]domain.HistoryEntry, error) {
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero address", domain.ErrInvalidAddress)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrTimeout, err)
	}

	requestURL := c.requestURL(addr)
	c.logger.Debug("Requesting transaction history", zap.String("address", addr.Hex()))

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	var err error
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < c.timeout {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		c.logger.Error("Failed to execute history request", zap.String("address", addr.Hex()), zap.Error(err))
		if errors.Is(err, fasthttp.ErrTimeout) {
			return nil, fmt.Errorf("%w: history request: %v", domain.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: history request: %v", domain.ErrNetworkUnreachable, err)
	}

	rawBody := resp.Body()
	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Error("History API request failed",
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", rawBody))
		return nil, fmt.Errorf("%w: history API returned status %d", domain.ErrNetworkUnreachable, resp.StatusCode())
	}

	return c.decode(rawBody)
}

func (c *etherscanClientImpl) requestURL(addr common.Address) string {
	q := url.Values{}
	if c.chainID != 0 {
		q.Set("chainid", strconv.FormatUint(c.chainID, 10))
	}
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", addr.Hex())
	q.Set("startblock", "0")
	q.Set("endblock", "99999999")
	q.Set("sort", "asc")
	if c.maxResults > 0 {
		q.Set("page", "1")
		q.Set("offset", strconv.Itoa(c.maxResults))
	}
	if c.apiKey != "" {
		q.Set("apikey", c.apiKey)
	}
	return c.baseURL + "?" + q.Encode()
}

func (c *etherscanClientImpl) decode(rawBody []byte) ([]domain.HistoryEntry, error) {
	var envelope entity.TxListResponse
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		c.logger.Error("Failed to unmarshal history response", zap.ByteString("responseBody", rawBody), zap.Error(err))
		return nil, fmt.Errorf("%w: malformed history response: %v", domain.ErrNetworkUnreachable, err)
	}

	if envelope.Status != "1" {
		if strings.EqualFold(envelope.Message, noTransactionsMessage) {
			return []domain.HistoryEntry{}, nil
		}
		var reason string
		if err := json.Unmarshal(envelope.Result, &reason); err != nil {
			reason = string(envelope.Result)
		}
		c.logger.Warn("History API returned an error status",
			zap.String("message", envelope.Message),
			zap.String("result", reason))
		return nil, fmt.Errorf("%w: history API: %s: %s", domain.ErrNetworkUnreachable, envelope.Message, reason)
	}

	var records []jsoniter.RawMessage
	if err := json.Unmarshal(envelope.Result, &records); err != nil {
		return nil, fmt.Errorf("%w: malformed history result: %v", domain.ErrNetworkUnreachable, err)
	}

	entries := make([]domain.HistoryEntry, 0, len(records))
	for _, raw := range records {
		entry, err := toHistoryEntry(raw)
		if err != nil {
			c.logger.Warn("Skipping malformed history record", zap.ByteString("record", raw), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func toHistoryEntry(raw jsoniter.RawMessage) (domain.HistoryEntry, error) {
	var rec entity.TxRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.HistoryEntry{}, err
	}

	hashBytes, err := hexutil.Decode(rec.Hash)
	if err != nil || len(hashBytes) != common.HashLength {
		return domain.HistoryEntry{}, fmt.Errorf("invalid transaction hash %q", rec.Hash)
	}
	value, ok := new(big.Int).SetString(rec.Value, 10)
	if !ok || value.Sign() < 0 {
		return domain.HistoryEntry{}, fmt.Errorf("invalid value %q", rec.Value)
	}

	entry := domain.HistoryEntry{
		TransactionHash: common.BytesToHash(hashBytes),
		ValueWei:        value,
		Raw:             append(jsoniter.RawMessage(nil), raw...),
	}
	if common.IsHexAddress(rec.From) {
		entry.From = common.HexToAddress(rec.From)
	}
	if common.IsHexAddress(rec.To) {
		to := common.HexToAddress(rec.To)
		entry.To = &to
	}
	if n, err := strconv.ParseUint(rec.BlockNumber, 10, 64); err == nil {
		entry.BlockNumber = n
	}
	if ts, err := strconv.ParseInt(rec.TimeStamp, 10, 64); err == nil {
		entry.Timestamp = ts
	}
	return entry, nil
}
