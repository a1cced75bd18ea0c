package avaerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorNames(t *testing.T) {
	wrapped := fmt.Errorf("cycle 14 pc=0x06: %w", ErrFDivideByZero)

	assert.Equal(t, "DivideByZero", GetErrorName(wrapped))
	assert.Equal(t, "F3", GetErrorCode(wrapped))
	assert.Equal(t, "F3_DivideByZero", GetErrorCodeWithName(wrapped))
	assert.True(t, IsFatal(wrapped))
	assert.False(t, IsFatal(ErrHCycleLimit))
	assert.Equal(t, "No Error", GetErrorName(nil))
}

func TestSentinelPassthrough(t *testing.T) {
	other := errors.New("plain failure")
	assert.Equal(t, other, Sentinel(other))
	assert.Equal(t, "", GetErrorCode(other))
	assert.Equal(t, "plain failure", GetErrorName(other))
}
