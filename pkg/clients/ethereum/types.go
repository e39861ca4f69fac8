package ethereum

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/xerrors"
)

type (
	EthereumHexString   string
	EthereumQuantity    uint64
	EthereumBigQuantity big.Int
)

type (
	// EthereumBlock only carries the header fields the staking reads need.
	EthereumBlock struct {
		Hash       EthereumHexString `json:"hash"`
		ParentHash EthereumHexString `json:"parentHash"`
		Number     EthereumQuantity  `json:"number"`
		Timestamp  EthereumQuantity  `json:"timestamp"`
	}

	EthereumEventLog struct {
		Removed          bool                `json:"removed"`
		LogIndex         EthereumQuantity    `json:"logIndex"`
		TransactionHash  EthereumHexString   `json:"transactionHash"`
		TransactionIndex EthereumQuantity    `json:"transactionIndex"`
		BlockHash        EthereumHexString   `json:"blockHash"`
		BlockNumber      EthereumQuantity    `json:"blockNumber"`
		Address          EthereumHexString   `json:"address"`
		Data             EthereumHexString   `json:"data"`
		Topics           []EthereumHexString `json:"topics"`
	}

	// CallMsg is the transaction object of eth_call. From is msg.sender for view
	// functions that read the caller's own position.
	CallMsg struct {
		From string `json:"from,omitempty"`
		To   string `json:"to"`
		Data string `json:"data"`
	}

	LogFilter struct {
		FromBlock string     `json:"fromBlock"`
		ToBlock   string     `json:"toBlock"`
		Address   string     `json:"address"`
		Topics    [][]string `json:"topics,omitempty"`
	}
)

func NewLogFilter(address common.Address, fromBlock, toBlock uint64, topics ...[]common.Hash) *LogFilter {
	filter := &LogFilter{
		FromBlock: hexutil.EncodeUint64(fromBlock),
		ToBlock:   hexutil.EncodeUint64(toBlock),
		Address:   strings.ToLower(address.Hex()),
	}
	for _, position := range topics {
		encoded := make([]string, 0, len(position))
		for _, topic := range position {
			encoded = append(encoded, topic.Hex())
		}
		filter.Topics = append(filter.Topics, encoded)
	}
	return filter
}

func (l *EthereumEventLog) TopicHashes() []common.Hash {
	hashes := make([]common.Hash, 0, len(l.Topics))
	for _, t := range l.Topics {
		hashes = append(hashes, common.HexToHash(t.Value()))
	}
	return hashes
}

func (v EthereumHexString) MarshalJSON() ([]byte, error) {
	s := fmt.Sprintf(`"%s"`, v)
	return []byte(s), nil
}

func (v *EthereumHexString) UnmarshalJSON(input []byte) error {
	var s string
	if err := json.Unmarshal(input, &s); err != nil {
		return xerrors.Errorf("failed to unmarshal EthereumHexString: %w", err)
	}
	*v = EthereumHexString(strings.ToLower(s))
	return nil
}

func (v EthereumHexString) Value() string {
	return string(v)
}

func (v EthereumHexString) Bytes() ([]byte, error) {
	if v == "" || v == "0x" {
		return []byte{}, nil
	}
	b, err := hexutil.Decode(string(v))
	if err != nil {
		return nil, xerrors.Errorf("failed to decode EthereumHexString %v: %w", v, err)
	}
	return b, nil
}

func (v EthereumQuantity) MarshalJSON() ([]byte, error) {
	s := fmt.Sprintf(`"%s"`, hexutil.EncodeUint64(uint64(v)))
	return []byte(s), nil
}

func (v *EthereumQuantity) UnmarshalJSON(input []byte) error {
	if len(input) > 0 && input[0] != '"' {
		var i uint64
		if err := json.Unmarshal(input, &i); err != nil {
			return xerrors.Errorf("failed to unmarshal EthereumQuantity into uint64: %w", err)
		}
		*v = EthereumQuantity(i)
		return nil
	}

	var s string
	if err := json.Unmarshal(input, &s); err != nil {
		return xerrors.Errorf("failed to unmarshal EthereumQuantity into string: %w", err)
	}
	if s == "" {
		*v = 0
		return nil
	}

	i, err := hexutil.DecodeUint64(s)
	if err != nil {
		return xerrors.Errorf("failed to decode EthereumQuantity %v: %w", s, err)
	}
	*v = EthereumQuantity(i)
	return nil
}

func (v EthereumQuantity) Value() uint64 {
	return uint64(v)
}

func (v EthereumBigQuantity) MarshalJSON() ([]byte, error) {
	bi := big.Int(v)
	s := fmt.Sprintf(`"%s"`, hexutil.EncodeBig(&bi))
	return []byte(s), nil
}

func (v *EthereumBigQuantity) UnmarshalJSON(input []byte) error {
	var s string
	if err := json.Unmarshal(input, &s); err != nil {
		return xerrors.Errorf("failed to unmarshal EthereumBigQuantity: %w", err)
	}
	if s == "" {
		*v = EthereumBigQuantity{}
		return nil
	}

	i, err := hexutil.DecodeBig(s)
	if err != nil {
		return xerrors.Errorf("failed to decode EthereumBigQuantity %v: %w", s, err)
	}
	*v = EthereumBigQuantity(*i)
	return nil
}

func (v EthereumBigQuantity) BigInt() *big.Int {
	i := big.Int(v)
	return new(big.Int).Set(&i)
}
