package relay

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextMatcher_Classify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Failure
	}{
		{
			name: "nil error",
			err:  nil,
			want: FailureGeneric,
		},
		{
			name: "blocked marker",
			err:  errors.New("Forbidden: bot was blocked by the user"),
			want: FailureBlocked,
		},
		{
			name: "blocked marker case-insensitive",
			err:  errors.New("FORBIDDEN: BOT WAS BLOCKED BY THE USER"),
			want: FailureBlocked,
		},
		{
			name: "missing chat marker",
			err:  errors.New("Bad Request: chat not found"),
			want: FailureMissing,
		},
		{
			name: "missing user marker",
			err:  errors.New("Bad Request: user not found"),
			want: FailureMissing,
		},
		{
			name: "wrapped provider error",
			err:  fmt.Errorf("send text: %w", errors.New("bot was blocked by the user")),
			want: FailureBlocked,
		},
		{
			name: "unrelated error",
			err:  errors.New("Gateway Timeout"),
			want: FailureGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TextMatcher{}.Classify(tt.err))
		})
	}
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "delivered", OutcomeDelivered.String())
	assert.Equal(t, "blocked", OutcomeBlocked.String())
	assert.Equal(t, "unknown_thread", OutcomeUnknownThread.String())
}
