package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_ValidAndInvalid(t *testing.T) {
	state := ExecutionState{Pending}

	require.NoError(t, Transition(state, 0, Pending, Running))
	require.NoError(t, Transition(state, 0, Running, Completed))

	assert.Error(t, Transition(state, 0, Completed, Running), "terminal -> running is forbidden")

	state[0] = Failed
	assert.Error(t, Transition(state, 0, Failed, Running))

	state[0] = Skipped
	assert.Error(t, Transition(state, 0, Skipped, Running))
}

func TestFailAndPropagate_CascadesToDownstreamPending(t *testing.T) {
	// A -> B -> C, D independent.
	state := ExecutionState{Running, Pending, Pending, Pending}
	adj := outgoing([][]int{nil, {0}, {1}, nil})

	require.NoError(t, FailAndPropagate(state, adj, 0))

	assert.Equal(t, Failed, state[0])
	assert.Equal(t, Skipped, state[1])
	assert.Equal(t, Skipped, state[2])
	assert.Equal(t, Pending, state[3], "independent step is left alone")
}

func TestFailAndPropagate_LeavesAlreadyTerminalStepsUnchanged(t *testing.T) {
	state := ExecutionState{Running, Completed}
	adj := outgoing([][]int{nil, {0}})

	require.NoError(t, FailAndPropagate(state, adj, 0))
	assert.Equal(t, Completed, state[1], "a step that already finished successfully is not retroactively skipped")
}

func TestFailAndPropagate_RunningDownstreamIsInvariantViolation(t *testing.T) {
	state := ExecutionState{Running, Running}
	adj := outgoing([][]int{nil, {0}})

	err := FailAndPropagate(state, adj, 0)
	require.Error(t, err)
	var invariant *ErrInternalInvariant
	require.ErrorAs(t, err, &invariant)
}
