package tests

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jarcoal/httpmock"
)

const FakeEthereumNodeUrl = "http://localhost:8545"

type RecordedCall struct {
	From     string
	To       string
	Data     string
	BlockTag string
}

type rawRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// FakeEthereumNode is an httpmock backed JSON-RPC node. eth_call is answered by function selector
// with pre-encoded return data; both single and batch payloads are supported.
type FakeEthereumNode struct {
	mu         sync.Mutex
	results    map[string]string
	reverts    map[string]bool
	blocks     map[string]string
	latest     string
	chainId    uint64
	logs       string
	calls      []RecordedCall
	logFilters []json.RawMessage
}

func NewFakeEthereumNode() *FakeEthereumNode {
	n := &FakeEthereumNode{
		results: map[string]string{},
		reverts: map[string]bool{},
		blocks:  map[string]string{},
		chainId: 31337,
		logs:    `[]`,
	}
	n.SetLatestBlock(16, 1100)
	return n
}

// Register installs the node as the responder for FakeEthereumNodeUrl on the default httpmock transport.
func (n *FakeEthereumNode) Register() {
	httpmock.RegisterResponder("POST", FakeEthereumNodeUrl, n.Responder())
}

func (n *FakeEthereumNode) SetResult(method abi.Method, values ...interface{}) error {
	encoded, err := method.Outputs.Pack(values...)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results[hexutil.Encode(method.ID)] = hexutil.Encode(encoded)
	return nil
}

func (n *FakeEthereumNode) SetRawResult(method abi.Method, result string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results[hexutil.Encode(method.ID)] = result
}

func (n *FakeEthereumNode) Revert(method abi.Method) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reverts[hexutil.Encode(method.ID)] = true
}

// blockJson carries every header field go-ethereum requires so bound contract callers can decode it too.
func blockJson(number uint64, timestamp uint64) string {
	zeroHash := "0x" + strings.Repeat("0", 64)
	return fmt.Sprintf(`{"hash":"%s","parentHash":"%s","sha3Uncles":"%s","miner":"0x%s","stateRoot":"%s",`+
		`"transactionsRoot":"%s","receiptsRoot":"%s","logsBloom":"0x%s","difficulty":"0x0","number":"%s",`+
		`"gasLimit":"0x1c9c380","gasUsed":"0x0","timestamp":"%s","extraData":"0x","transactions":[]}`,
		fmt.Sprintf("0x%064x", number+1),
		fmt.Sprintf("0x%064x", number),
		zeroHash,
		strings.Repeat("0", 40),
		zeroHash,
		zeroHash,
		zeroHash,
		strings.Repeat("0", 512),
		hexutil.EncodeUint64(number),
		hexutil.EncodeUint64(timestamp),
	)
}

func (n *FakeEthereumNode) SetLatestBlock(number uint64, timestamp uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.latest = blockJson(number, timestamp)
	n.blocks[hexutil.EncodeUint64(number)] = n.latest
}

func (n *FakeEthereumNode) SetBlock(number uint64, timestamp uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.blocks[hexutil.EncodeUint64(number)] = blockJson(number, timestamp)
}

// RemoveLatestBlock makes the node answer null for the latest block.
func (n *FakeEthereumNode) RemoveLatestBlock() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.latest = "null"
}

func (n *FakeEthereumNode) SetLogs(logs interface{}) error {
	encoded, err := json.Marshal(logs)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logs = string(encoded)
	return nil
}

func (n *FakeEthereumNode) Calls() []RecordedCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]RecordedCall{}, n.calls...)
}

func (n *FakeEthereumNode) LogFilters() []json.RawMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]json.RawMessage{}, n.logFilters...)
}

func (n *FakeEthereumNode) answer(r rawRequest) map[string]interface{} {
	n.mu.Lock()
	defer n.mu.Unlock()

	res := map[string]interface{}{"jsonrpc": "2.0", "id": r.ID}
	param := func(i int) string {
		if i >= len(r.Params) {
			return ""
		}
		var s string
		_ = json.Unmarshal(r.Params[i], &s)
		return s
	}

	switch r.Method {
	case "eth_chainId":
		res["result"] = hexutil.EncodeUint64(n.chainId)
	case "eth_blockNumber":
		var latest struct {
			Number string `json:"number"`
		}
		_ = json.Unmarshal([]byte(n.latest), &latest)
		res["result"] = latest.Number
	case "eth_getBlockByNumber":
		tag := param(0)
		if tag == "latest" {
			res["result"] = json.RawMessage(n.latest)
		} else if block, ok := n.blocks[tag]; ok {
			res["result"] = json.RawMessage(block)
		} else {
			res["result"] = nil
		}
	case "eth_getLogs":
		if len(r.Params) > 0 {
			n.logFilters = append(n.logFilters, r.Params[0])
		}
		res["result"] = json.RawMessage(n.logs)
	case "eth_call":
		msg := struct {
			From  string `json:"from"`
			To    string `json:"to"`
			Data  string `json:"data"`
			Input string `json:"input"`
		}{}
		if len(r.Params) > 0 {
			_ = json.Unmarshal(r.Params[0], &msg)
		}
		data := msg.Data
		if data == "" {
			data = msg.Input
		}
		n.calls = append(n.calls, RecordedCall{
			From:     strings.ToLower(msg.From),
			To:       strings.ToLower(msg.To),
			Data:     data,
			BlockTag: param(1),
		})

		if len(data) < 10 {
			res["error"] = map[string]interface{}{"code": -32602, "message": "invalid call data"}
			break
		}
		selector := data[:10]
		if n.reverts[selector] {
			res["error"] = map[string]interface{}{"code": 3, "message": "execution reverted"}
		} else if result, ok := n.results[selector]; ok {
			res["result"] = result
		} else {
			res["result"] = "0x"
		}
	default:
		res["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
	}
	return res
}

func (n *FakeEthereumNode) Responder() httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(strings.TrimSpace(string(body)), "[") {
			requests := []rawRequest{}
			if err := json.Unmarshal(body, &requests); err != nil {
				return nil, err
			}
			responses := make([]map[string]interface{}, 0, len(requests))
			for _, r := range requests {
				responses = append(responses, n.answer(r))
			}
			return httpmock.NewJsonResponse(200, responses)
		}
		r := rawRequest{}
		if err := json.Unmarshal(body, &r); err != nil {
			return nil, err
		}
		return httpmock.NewJsonResponse(200, n.answer(r))
	}
}
