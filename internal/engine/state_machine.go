package engine

import (
	"container/heap"
	"fmt"
)

// ExecutionState tracks every step's current StepState, indexed the same
// way as the Plan's Steps slice.
type ExecutionState []StepState

// Transition performs a validated move of step i from `from` to `to`. The
// caller supplies the expected prior state so a race (another goroutine
// having already moved it) is caught rather than silently overwritten.
func Transition(state ExecutionState, i int, from, to StepState) error {
	if i < 0 || i >= len(state) {
		return fmt.Errorf("step %d out of range", i)
	}
	if state[i] != from {
		return fmt.Errorf("invalid transition for step %d: expected %s, got %s", i, from, state[i])
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for step %d: %s -> %s", i, from, to)
	}
	state[i] = to
	return nil
}

func isAllowedTransition(from, to StepState) bool {
	switch from {
	case Pending:
		return to == Running || to == Cached || to == Skipped
	case Running:
		return to == Completed || to == Failed
	default:
		return false
	}
}

// outgoing builds, from each step's Prereqs, the reverse adjacency a
// failure needs to walk: outgoing[p] lists every step index that names p
// as a prerequisite.
func outgoing(prereqs [][]int) [][]int {
	out := make([][]int, len(prereqs))
	for i, ps := range prereqs {
		for _, p := range ps {
			out[p] = append(out[p], i)
		}
	}
	return out
}

// FailAndPropagate moves step i from Running to Failed and transitively
// marks every still-Pending step reachable from it as Skipped. Traversal
// uses a min-heap over step index so the set of newly-Skipped steps (and
// the order they're discovered in) is deterministic regardless of map or
// slice iteration order elsewhere in the caller.
func FailAndPropagate(state ExecutionState, adj [][]int, i int) error {
	if i < 0 || i >= len(state) {
		return fmt.Errorf("step %d out of range", i)
	}
	if state[i] != Running {
		return fmt.Errorf("cannot fail step %d from state %s", i, state[i])
	}
	state[i] = Failed

	visited := make([]bool, len(state))
	visited[i] = true

	hq := &intMinHeap{}
	heap.Init(hq)
	for _, d := range adj[i] {
		heap.Push(hq, d)
	}

	for hq.Len() > 0 {
		u := heap.Pop(hq).(int)
		if visited[u] {
			continue
		}
		visited[u] = true

		switch state[u] {
		case Pending:
			state[u] = Skipped
		case Running:
			return &ErrInternalInvariant{Detail: fmt.Sprintf("downstream step %d is running during failure propagation", u)}
		default:
			// Already terminal; leave it alone.
		}

		for _, v := range adj[u] {
			if !visited[v] {
				heap.Push(hq, v)
			}
		}
	}
	return nil
}

type intMinHeap []int

func (h intMinHeap) Len() int            { return len(h) }
func (h intMinHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
