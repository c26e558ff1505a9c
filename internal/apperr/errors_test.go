package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrUnauthenticated, "unauthenticated"},
		{fmt.Errorf("toggle vote: %w", ErrNotFound), "not_found"},
		{fmt.Errorf("apply: %w", ErrAlreadyApplied), "already_applied"},
		{ErrDeadlinePassed, "deadline_passed"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err), tt.err.Error())
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(fmt.Errorf("insert vote: %w", ErrConflict)))
	assert.False(t, Retryable(ErrAlreadyApplied))
}
