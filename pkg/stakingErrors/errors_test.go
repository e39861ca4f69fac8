package stakingErrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	pkgErrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func Test_StakingError(t *testing.T) {
	t.Run("Kinds survive wrapping", func(t *testing.T) {
		root := errors.New("connection refused")
		err := New(ErrorKind_ChainRead, Op_FetchUserData, root)

		wrapped := pkgErrors.Wrap(err, "failed to load rewards")
		wrappedTwice := fmt.Errorf("handler: %w", wrapped)

		assert.Equal(t, ErrorKind_ChainRead, KindOf(wrappedTwice))
		assert.True(t, errors.Is(wrappedTwice, root))
		assert.Equal(t, http.StatusBadGateway, KindOf(wrappedTwice).HttpStatus())
	})
	t.Run("User messages never leak provider output", func(t *testing.T) {
		err := New(ErrorKind_ChainRead, Op_FetchUserData, errors.New("upstream 0xdeadbeef exploded"))
		assert.Equal(t, "ERR3: Error fetching user data", err.UserMessage())
		assert.Contains(t, err.Error(), "0xdeadbeef")

		err = New(ErrorKind_BlockUnavailable, Op_FetchStatus, errors.New("timeout"))
		assert.Equal(t, "ERR8: Could not fetch Finthetix Status", UserMessageOf(err))
		assert.Equal(t, http.StatusServiceUnavailable, err.Kind.HttpStatus())
	})
	t.Run("Invalid input explains itself", func(t *testing.T) {
		err := Newf(ErrorKind_InvalidInput, Op_ParseInput, "invalid address '%s'", "0x12")
		assert.Equal(t, "ERR12: Invalid request: invalid address '0x12'", err.UserMessage())
		assert.Equal(t, http.StatusBadRequest, err.Kind.HttpStatus())
	})
	t.Run("Plain errors are internal", func(t *testing.T) {
		err := errors.New("boom")
		assert.Equal(t, ErrorKind_Internal, KindOf(err))
		assert.Equal(t, "Internal error", UserMessageOf(err))
		assert.False(t, KindOf(err).IsChainRead())
		assert.True(t, ErrorKind_ContractReverted.IsChainRead())
	})
}
