package ethereum

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type ResponseParserFunc[T any] func(res json.RawMessage) (T, error)

type RequestResponseHandler[T any] struct {
	RequestMethod  *RequestMethod
	ResponseParser ResponseParserFunc[T]
}

const (
	BlockTag_Latest = "latest"
)

var (
	RPCMethod_BlockNumber = &RequestResponseHandler[uint64]{
		RequestMethod: &RequestMethod{
			Name:    "eth_blockNumber",
			Timeout: time.Second * 5,
		},
		ResponseParser: func(res json.RawMessage) (uint64, error) {
			return hexutil.DecodeUint64(strings.ReplaceAll(string(res), "\"", ""))
		},
	}
	RPCMethod_getBlockByNumber = &RequestResponseHandler[*EthereumBlock]{
		RequestMethod: &RequestMethod{
			Name:    "eth_getBlockByNumber",
			Timeout: time.Second * 5,
		},
		ResponseParser: func(res json.RawMessage) (*EthereumBlock, error) {
			if len(res) == 0 || string(res) == "null" {
				return nil, ErrBlockNotFound
			}
			block := &EthereumBlock{}
			if err := json.Unmarshal(res, block); err != nil {
				return nil, err
			}
			return block, nil
		},
	}
	RPCMethod_call = &RequestResponseHandler[[]byte]{
		RequestMethod: &RequestMethod{
			Name:    "eth_call",
			Timeout: time.Second * 5,
		},
		ResponseParser: func(res json.RawMessage) ([]byte, error) {
			var s EthereumHexString
			if err := json.Unmarshal(res, &s); err != nil {
				return nil, err
			}
			return s.Bytes()
		},
	}
	RPCMethod_getLogs = &RequestResponseHandler[[]*EthereumEventLog]{
		RequestMethod: &RequestMethod{
			Name:    "eth_getLogs",
			Timeout: time.Second * 30,
		},
		ResponseParser: func(res json.RawMessage) ([]*EthereumEventLog, error) {
			logs := make([]*EthereumEventLog, 0)
			if err := json.Unmarshal(res, &logs); err != nil {
				return nil, err
			}
			return logs, nil
		},
	}
	RPCMethod_chainId = &RequestResponseHandler[uint64]{
		RequestMethod: &RequestMethod{
			Name:    "eth_chainId",
			Timeout: time.Second * 5,
		},
		ResponseParser: func(res json.RawMessage) (uint64, error) {
			return hexutil.DecodeUint64(strings.ReplaceAll(string(res), "\"", ""))
		},
	}
)

var requestTimeouts = map[string]time.Duration{
	RPCMethod_BlockNumber.RequestMethod.Name:      RPCMethod_BlockNumber.RequestMethod.Timeout,
	RPCMethod_getBlockByNumber.RequestMethod.Name: RPCMethod_getBlockByNumber.RequestMethod.Timeout,
	RPCMethod_call.RequestMethod.Name:             RPCMethod_call.RequestMethod.Timeout,
	RPCMethod_getLogs.RequestMethod.Name:          RPCMethod_getLogs.RequestMethod.Timeout,
	RPCMethod_chainId.RequestMethod.Name:          RPCMethod_chainId.RequestMethod.Timeout,
}

func timeoutForMethod(method string) time.Duration {
	if t, ok := requestTimeouts[method]; ok {
		return t
	}
	return time.Second * 10
}

func GetBlockNumberRequest(id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_BlockNumber.RequestMethod.Name,
		ID:      id,
	}
}

func GetBlockByNumberRequest(blockNumber uint64, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_getBlockByNumber.RequestMethod.Name,
		Params:  []interface{}{hexutil.EncodeUint64(blockNumber), false},
		ID:      id,
	}
}

func GetLatestBlockRequest(id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_getBlockByNumber.RequestMethod.Name,
		Params:  []interface{}{BlockTag_Latest, false},
		ID:      id,
	}
}

// GetCallRequest builds an eth_call evaluated at the given block tag, which can be
// a hex block number or one of "latest", "safe", "finalized".
func GetCallRequest(msg *CallMsg, blockTag string, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_call.RequestMethod.Name,
		Params:  []interface{}{msg, blockTag},
		ID:      id,
	}
}

func GetLogsRequest(filter *LogFilter, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_getLogs.RequestMethod.Name,
		Params:  []interface{}{filter},
		ID:      id,
	}
}

func GetChainIdRequest(id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_chainId.RequestMethod.Name,
		ID:      id,
	}
}
