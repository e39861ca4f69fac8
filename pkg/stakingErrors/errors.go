package stakingErrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind int

const (
	ErrorKind_Internal ErrorKind = iota
	// ErrorKind_ChainRead means a required upstream read failed, was missing or had the wrong type
	ErrorKind_ChainRead
	// ErrorKind_BlockUnavailable means the current block could not be fetched
	ErrorKind_BlockUnavailable
	ErrorKind_InvalidInput
	ErrorKind_ContractReverted
	ErrorKind_Storage
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKind_ChainRead:
		return "chain_read"
	case ErrorKind_BlockUnavailable:
		return "block_unavailable"
	case ErrorKind_InvalidInput:
		return "invalid_input"
	case ErrorKind_ContractReverted:
		return "contract_reverted"
	case ErrorKind_Storage:
		return "storage"
	default:
		return "internal"
	}
}

func (k ErrorKind) HttpStatus() int {
	switch k {
	case ErrorKind_ChainRead, ErrorKind_ContractReverted:
		return http.StatusBadGateway
	case ErrorKind_BlockUnavailable:
		return http.StatusServiceUnavailable
	case ErrorKind_InvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsChainRead reports whether the kind is a failed upstream read of any flavor.
func (k ErrorKind) IsChainRead() bool {
	return k == ErrorKind_ChainRead || k == ErrorKind_BlockUnavailable || k == ErrorKind_ContractReverted
}

type Op string

const (
	Op_FetchUserData   Op = "fetchUserData"
	Op_FetchStatus     Op = "fetchStatus"
	Op_FetchMetadata   Op = "fetchMetadata"
	Op_FetchHistory    Op = "fetchHistory"
	Op_FetchBlock      Op = "fetchBlock"
	Op_ParseInput      Op = "parseInput"
	Op_RecordSnapshot  Op = "recordSnapshot"
	Op_ListSnapshots   Op = "listSnapshots"
	Op_PreviewStakeAmt Op = "previewStakeAmt"
)

// userMessages are stable, human readable messages safe to show to end users.
var userMessages = map[Op]string{
	Op_FetchUserData:   "ERR3: Error fetching user data",
	Op_FetchStatus:     "ERR8: Could not fetch Finthetix Status",
	Op_FetchMetadata:   "ERR9: Could not fetch token metadata",
	Op_FetchHistory:    "ERR10: Could not fetch staking history",
	Op_FetchBlock:      "ERR11: Could not fetch the current block",
	Op_ParseInput:      "ERR12: Invalid request",
	Op_RecordSnapshot:  "ERR13: Could not record reward snapshot",
	Op_ListSnapshots:   "ERR14: Could not list reward snapshots",
	Op_PreviewStakeAmt: "ERR15: Could not preview token amount",
}

type StakingError struct {
	Kind ErrorKind
	Op   Op
	Err  error
}

func New(kind ErrorKind, op Op, err error) *StakingError {
	return &StakingError{Kind: kind, Op: op, Err: err}
}

func Newf(kind ErrorKind, op Op, format string, args ...interface{}) *StakingError {
	return &StakingError{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *StakingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StakingError) Unwrap() error {
	return e.Err
}

// UserMessage never includes provider output.
func (e *StakingError) UserMessage() string {
	if msg, ok := userMessages[e.Op]; ok {
		if e.Kind == ErrorKind_InvalidInput && e.Err != nil {
			return fmt.Sprintf("%s: %v", msg, e.Err)
		}
		return msg
	}
	return "Internal error"
}

// KindOf returns the kind of the outermost StakingError in the chain, or ErrorKind_Internal.
func KindOf(err error) ErrorKind {
	var se *StakingError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrorKind_Internal
}

// UserMessageOf returns the user facing message for any error.
func UserMessageOf(err error) string {
	var se *StakingError
	if errors.As(err, &se) {
		return se.UserMessage()
	}
	return "Internal error"
}
