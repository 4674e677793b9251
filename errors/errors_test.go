package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(42).String())
}

func TestWrapNilErrors(t *testing.T) {
	assert.Nil(t, Wrap(nil, "Store", "Get", "lookup"))
	assert.Nil(t, WrapTransient(nil, "Store", "Get", "lookup"))
	assert.Nil(t, WrapInvalid(nil, "Config", "Validate", "path"))
	assert.Nil(t, WrapFatal(nil, "Server", "Start", "bind"))
}

func TestWrapFormatsContext(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(base, "Store", "Put", "create record")
	require.Error(t, err)
	assert.Equal(t, "Store.Put: create record failed: boom", err.Error())
	assert.True(t, errors.Is(err, base))
}

func TestClassifiedWrappersPreserveChain(t *testing.T) {
	err := WrapInvalid(ErrInvalidConfig, "Config", "Validate", "backend type")

	var ce *ClassifiedError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrorInvalid, ce.Class)
	assert.Equal(t, "Config", ce.Component)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"classified transient", WrapTransient(errors.New("x"), "c", "m", "a"), ErrorTransient},
		{"classified invalid", WrapInvalid(errors.New("x"), "c", "m", "a"), ErrorInvalid},
		{"classified fatal", WrapFatal(errors.New("x"), "c", "m", "a"), ErrorFatal},
		{"store unavailable", ErrStoreUnavailable, ErrorTransient},
		{"context deadline", context.DeadlineExceeded, ErrorTransient},
		{"missing config", ErrMissingConfig, ErrorFatal},
		{"invalid data", ErrInvalidData, ErrorInvalid},
		{"timeout pattern", errors.New("dial tcp: i/o timeout"), ErrorTransient},
		{"unknown defaults to transient", errors.New("weird"), ErrorTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsTransientThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", ErrConnectionTimeout)
	assert.True(t, IsTransient(err))
	assert.False(t, IsTransient(nil))
}
