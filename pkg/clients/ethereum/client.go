package ethereum

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/finthetix/sidecar/internal/config"
	"go.uber.org/zap"
)

type RequestMethod struct {
	Name    string
	Timeout time.Duration
}

type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      uint   `json:"id"`
}

type RPCError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// IsExecutionReverted covers geth style (code 3) and the plain message most other nodes return.
func (e *RPCError) IsExecutionReverted() bool {
	return e.Code == 3 || strings.Contains(strings.ToLower(e.Message), "execution reverted")
}

type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint           `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

var (
	jsonRPCVersion = "2.0"

	ErrBlockNotFound     = errors.New("block not found")
	ErrRetriesExceeded   = errors.New("exceeded retries for call")
	ErrIncompleteResults = errors.New("batch call did not return a result for every request")
)

type Client struct {
	Logger       *zap.Logger
	httpClient   *http.Client
	clientConfig *EthereumClientConfig
}

type EthereumClientConfig struct {
	BaseUrl              string
	UseNativeBatchCall   bool // Use a single JSON-RPC batch payload per chunk
	NativeBatchCallSize  int  // Number of calls to put in a single batch payload
	ChunkedBatchCallSize int  // Number of calls to make in parallel
	// Backoffs between attempts of a single call. Node errors (reverts, bad params) are never retried.
	Backoffs []time.Duration
}

var defaultBackoffs = []time.Duration{
	1 * time.Second,
	3 * time.Second,
	5 * time.Second,
	10 * time.Second,
	20 * time.Second,
}

func ConvertGlobalConfigToEthereumConfig(cfg *config.EthereumRpcConfig) *EthereumClientConfig {
	c := DefaultNativeCallEthereumClientConfig()
	c.BaseUrl = cfg.BaseUrl
	c.UseNativeBatchCall = cfg.UseNativeBatchCall
	if cfg.NativeBatchCallSize > 0 {
		c.NativeBatchCallSize = cfg.NativeBatchCallSize
	}
	if cfg.ChunkedBatchCallSize > 0 {
		c.ChunkedBatchCallSize = cfg.ChunkedBatchCallSize
	}
	return c
}

func DefaultNativeCallEthereumClientConfig() *EthereumClientConfig {
	return &EthereumClientConfig{
		UseNativeBatchCall:   true,
		NativeBatchCallSize:  500,
		ChunkedBatchCallSize: 25,
		Backoffs:             defaultBackoffs,
	}
}

func DefaultChunkedCallEthereumClientConfig() *EthereumClientConfig {
	return &EthereumClientConfig{
		UseNativeBatchCall:   false,
		NativeBatchCallSize:  500,
		ChunkedBatchCallSize: 25,
		Backoffs:             defaultBackoffs,
	}
}

func NewClient(cfg *EthereumClientConfig, l *zap.Logger) *Client {
	client := &http.Client{
		Timeout: time.Second * 30,
	}

	l.Sugar().Infow("Creating new Ethereum client",
		zap.String("baseUrl", cfg.BaseUrl),
		zap.Bool("useNativeBatchCall", cfg.UseNativeBatchCall),
	)

	return &Client{
		httpClient:   client,
		Logger:       l,
		clientConfig: cfg,
	}
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) GetEthereumContractCaller() (*ethclient.Client, error) {
	d, err := ethclient.Dial(c.clientConfig.BaseUrl)
	if err != nil {
		c.Logger.Sugar().Errorw("Failed to create new eth client", zap.Error(err))
		return nil, err
	}
	return d, nil
}

func (c *Client) GetBlockNumberUint64(ctx context.Context) (uint64, error) {
	res, err := c.Call(ctx, GetBlockNumberRequest(1))
	if err != nil {
		return 0, err
	}
	return RPCMethod_BlockNumber.ResponseParser(res.Result)
}

func (c *Client) GetChainId(ctx context.Context) (uint64, error) {
	res, err := c.Call(ctx, GetChainIdRequest(1))
	if err != nil {
		return 0, err
	}
	return RPCMethod_chainId.ResponseParser(res.Result)
}

func (c *Client) GetLatestBlock(ctx context.Context) (*EthereumBlock, error) {
	return c.getBlock(ctx, GetLatestBlockRequest(1))
}

func (c *Client) GetBlockByNumber(ctx context.Context, blockNumber uint64) (*EthereumBlock, error) {
	return c.getBlock(ctx, GetBlockByNumberRequest(blockNumber, 1))
}

func (c *Client) getBlock(ctx context.Context, rpcRequest *RPCRequest) (*EthereumBlock, error) {
	res, err := c.Call(ctx, rpcRequest)
	if err != nil {
		return nil, err
	}
	ethBlock, err := RPCMethod_getBlockByNumber.ResponseParser(res.Result)
	if err != nil {
		c.Logger.Sugar().Errorw("failed to parse block",
			zap.Error(err),
			zap.String("raw response", string(res.Result)),
		)
		return nil, err
	}
	return ethBlock, nil
}

func (c *Client) EthCall(ctx context.Context, msg *CallMsg, blockTag string) ([]byte, error) {
	res, err := c.Call(ctx, GetCallRequest(msg, blockTag, 1))
	if err != nil {
		return nil, err
	}
	return RPCMethod_call.ResponseParser(res.Result)
}

func (c *Client) GetLogs(ctx context.Context, filter *LogFilter) ([]*EthereumEventLog, error) {
	res, err := c.Call(ctx, GetLogsRequest(filter, 1))
	if err != nil {
		return nil, err
	}
	logs, err := RPCMethod_getLogs.ResponseParser(res.Result)
	if err != nil {
		c.Logger.Sugar().Errorw("failed to parse logs",
			zap.Error(err),
			zap.Any("filter", filter),
		)
		return nil, err
	}
	return logs, nil
}

func (c *Client) post(ctx context.Context, payload any, timeout time.Duration) ([]byte, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	c.Logger.Sugar().Debugw("Request body", zap.String("requestBody", string(requestBody)))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.clientConfig.BaseUrl, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received http error code %+v", response.StatusCode)
	}
	return responseBody, nil
}

func (c *Client) batchCall(ctx context.Context, requests []*RPCRequest) ([]*RPCResponse, error) {
	if len(requests) == 0 {
		return make([]*RPCResponse, 0), nil
	}
	responseBody, err := c.post(ctx, requests, time.Second*30)
	if err != nil {
		return nil, err
	}

	// some nodes answer a batch with a single error object
	if bytes.HasPrefix(bytes.TrimSpace(responseBody), []byte("{")) {
		errorResponse := RPCResponse{}
		if err := json.Unmarshal(responseBody, &errorResponse); err != nil {
			return nil, fmt.Errorf("failed to unmarshal error response: %w", err)
		}
		if errorResponse.Error != nil {
			return nil, errorResponse.Error
		}
		return nil, fmt.Errorf("unexpected batch response: %s", string(responseBody))
	}

	destination := []*RPCResponse{}
	if err := json.Unmarshal(responseBody, &destination); err != nil {
		c.Logger.Sugar().Errorw("failed to unmarshal batch call response",
			zap.Error(err),
			zap.String("response", string(responseBody)),
		)
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return destination, nil
}

func chunkRequests[T any](requests []T, size int) [][]T {
	if size <= 0 {
		size = len(requests)
	}
	batches := [][]T{}
	for start := 0; start < len(requests); start += size {
		end := start + size
		if end > len(requests) {
			end = len(requests)
		}
		batches = append(batches, requests[start:end])
	}
	return batches
}

// orderResponses returns one response per request, in request order, matched by ID.
func orderResponses(requests []*RPCRequest, responses []*RPCResponse) ([]*RPCResponse, error) {
	byId := make(map[uint]*RPCResponse, len(responses))
	for _, res := range responses {
		if res == nil || res.ID == nil {
			continue
		}
		byId[*res.ID] = res
	}
	ordered := make([]*RPCResponse, 0, len(requests))
	for _, req := range requests {
		res, ok := byId[req.ID]
		if !ok {
			return nil, fmt.Errorf("%w: missing response for request id %d", ErrIncompleteResults, req.ID)
		}
		ordered = append(ordered, res)
	}
	return ordered, nil
}

func (c *Client) chunkedNativeBatchCall(ctx context.Context, requests []*RPCRequest) ([]*RPCResponse, error) {
	batches := chunkRequests(requests, c.clientConfig.NativeBatchCallSize)
	c.Logger.Sugar().Debugw(fmt.Sprintf("Batching '%v' requests into '%v' batches", len(requests), len(batches)))

	type batchResult struct {
		responses []*RPCResponse
		err       error
	}
	resultsChan := make(chan batchResult, len(batches))
	wg := sync.WaitGroup{}
	for i, batch := range batches {
		wg.Add(1)
		go func(i int, b []*RPCRequest) {
			defer wg.Done()

			res, err := withRetries(ctx, c, "batch", func() ([]*RPCResponse, error) {
				return c.batchCall(ctx, b)
			})
			if err != nil {
				c.Logger.Sugar().Errorw("failed to batch call", zap.Int("batch", i), zap.Error(err))
			}
			resultsChan <- batchResult{responses: res, err: err}
		}(i, batch)
	}
	wg.Wait()
	close(resultsChan)

	results := []*RPCResponse{}
	for res := range resultsChan {
		if res.err != nil {
			return nil, res.err
		}
		results = append(results, res.responses...)
	}
	return orderResponses(requests, results)
}

// chunkedBatchCall splits the requests into chunks of ChunkedBatchCallSize and sends each chunk
// in parallel through Call rather than a batch payload, so every request gets its own retries.
func (c *Client) chunkedBatchCall(ctx context.Context, requests []*RPCRequest) ([]*RPCResponse, error) {
	results := make([]*RPCResponse, len(requests))

	indexes := make([]int, len(requests))
	for i := range requests {
		indexes[i] = i
	}
	batches := chunkRequests(indexes, c.clientConfig.ChunkedBatchCallSize)
	c.Logger.Sugar().Debugw(fmt.Sprintf("Batching '%v' requests into '%v' batches", len(requests), len(batches)))

	for _, batch := range batches {
		var wg sync.WaitGroup
		errs := make(chan error, len(batch))

		for _, index := range batch {
			wg.Add(1)
			go func(index int) {
				defer wg.Done()

				req := requests[index]
				res, err := c.Call(ctx, req)
				var rpcErr *RPCError
				switch {
				case errors.As(err, &rpcErr):
					id := req.ID
					results[index] = &RPCResponse{JSONRPC: jsonRPCVersion, ID: &id, Error: rpcErr}
				case err != nil:
					errs <- err
				default:
					results[index] = res
				}
			}(index)
		}
		wg.Wait()
		close(errs)

		if err, ok := <-errs; ok {
			return nil, err
		}
	}

	for _, res := range results {
		if res == nil {
			return nil, ErrIncompleteResults
		}
	}
	return results, nil
}

// BatchCall returns exactly one response per request, in request order. Per request node
// errors are left on RPCResponse.Error for the caller; transport failures fail the whole batch.
func (c *Client) BatchCall(ctx context.Context, requests []*RPCRequest) ([]*RPCResponse, error) {
	if len(requests) == 0 {
		c.Logger.Sugar().Warnw("No requests to batch call")
		return make([]*RPCResponse, 0), nil
	}
	if c.clientConfig.UseNativeBatchCall {
		return c.chunkedNativeBatchCall(ctx, requests)
	}
	return c.chunkedBatchCall(ctx, requests)
}

func (c *Client) call(ctx context.Context, rpcRequest *RPCRequest) (*RPCResponse, error) {
	responseBody, err := c.post(ctx, rpcRequest, timeoutForMethod(rpcRequest.Method))
	if err != nil {
		return nil, err
	}

	destination := &RPCResponse{}
	if err := json.Unmarshal(responseBody, destination); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if destination.Error != nil {
		return nil, destination.Error
	}
	return destination, nil
}

func (c *Client) Call(ctx context.Context, rpcRequest *RPCRequest) (*RPCResponse, error) {
	return withRetries(ctx, c, rpcRequest.Method, func() (*RPCResponse, error) {
		return c.call(ctx, rpcRequest)
	})
}

// withRetries runs fn once plus once per configured backoff. Errors returned by the node
// itself are deterministic and returned straight away.
func withRetries[T any](ctx context.Context, c *Client, method string, fn func() (T, error)) (T, error) {
	var zero T
	attempts := append([]time.Duration{0}, c.clientConfig.Backoffs...)

	var lastErr error
	for i, backoff := range attempts {
		if backoff > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
		}

		res, err := fn()
		if err == nil {
			if i > 0 {
				c.Logger.Sugar().Infow("Successfully called after backoff",
					zap.Duration("backoff", backoff),
					zap.String("method", method),
				)
			}
			return res, nil
		}

		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		lastErr = err
		c.Logger.Sugar().Errorw("Failed to call",
			zap.Error(err),
			zap.Int("attempt", i+1),
			zap.String("method", method),
		)
	}
	c.Logger.Sugar().Errorw("Exceeded retries for Call", zap.String("method", method))
	return zero, fmt.Errorf("%w: %v", ErrRetriesExceeded, lastErr)
}
