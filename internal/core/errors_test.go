package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrorsAreDistinct(t *testing.T) {
	all := []error{
		ErrConfigInvalid, ErrConnectFailed, ErrSchemaRead, ErrDdlEmit,
		ErrRowConvert, ErrBatchInsert, ErrRowInsert, ErrOrphanedFK,
		ErrIndexCreate, ErrValidationMismatch, ErrCancelled,
	}
	for i, a := range all {
		for j, b := range all {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}

func TestSentinelErrorsWrapAndUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("table %q: %w", "orders", ErrSchemaRead)
	assert.True(t, errors.Is(wrapped, ErrSchemaRead))
	assert.False(t, errors.Is(wrapped, ErrDdlEmit))
}
