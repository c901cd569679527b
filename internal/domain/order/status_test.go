package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus_Known(t *testing.T) {
	for _, raw := range []string{"pending", "processing", "in_transit", "delivered", "cancelled"} {
		s, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, Status(raw), s)
	}
}

func TestParseStatus_Unknown(t *testing.T) {
	_, err := ParseStatus("shipped")

	var invErr *InvalidStatusError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "shipped", invErr.Value)
}

func TestValidateTransition_ForwardMoves(t *testing.T) {
	require.NoError(t, ValidateTransition(StatusPending, StatusProcessing))
	require.NoError(t, ValidateTransition(StatusProcessing, StatusInTransit))
	require.NoError(t, ValidateTransition(StatusInTransit, StatusDelivered))

	// Jumping ahead on the chain is allowed.
	require.NoError(t, ValidateTransition(StatusPending, StatusDelivered))
}

func TestValidateTransition_CancelFromAnyNonTerminal(t *testing.T) {
	for _, from := range []Status{StatusPending, StatusProcessing, StatusInTransit} {
		require.NoError(t, ValidateTransition(from, StatusCancelled))
	}
}

func TestValidateTransition_TerminalStatesAreFinal(t *testing.T) {
	var invErr *InvalidTransitionError

	require.ErrorAs(t, ValidateTransition(StatusDelivered, StatusPending), &invErr)
	require.ErrorAs(t, ValidateTransition(StatusCancelled, StatusProcessing), &invErr)
	require.ErrorAs(t, ValidateTransition(StatusDelivered, StatusCancelled), &invErr)
}

func TestValidateTransition_BackwardMovesRejected(t *testing.T) {
	err := ValidateTransition(StatusInTransit, StatusPending)

	var invErr *InvalidTransitionError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, StatusInTransit, invErr.From)
	assert.Equal(t, StatusPending, invErr.To)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusInTransit.Terminal())
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}
