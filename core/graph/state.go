package graph

import "sync"

// State is the run-scoped shared key-value store visible to every node of one
// run via NodeInput.State. It is safe for concurrent use from parallel node
// executions; the scheduler snapshots it into checkpoints and restores it on
// Resume.
//
// State is for cross-cutting values (counters, session ids, accumulated
// notes). Data that one node produces for another should flow through edges,
// where mapping and checkpointing see it.
type State struct {
	mu     sync.RWMutex
	values map[string]any
}

// newState creates a State seeded with a copy of initial.
func newState(initial map[string]any) *State {
	values := make(map[string]any, len(initial))
	for key, value := range initial {
		values[key] = value
	}
	return &State{values: values}
}

// Get retrieves a value from the shared state by key.
func (state *State) Get(key string) (any, bool) {
	state.mu.RLock()
	defer state.mu.RUnlock()

	value, exists := state.values[key]
	return value, exists
}

// Set writes a value to the shared state under the given key.
// Overwrites any existing value for the same key.
func (state *State) Set(key string, value any) {
	state.mu.Lock()
	defer state.mu.Unlock()

	state.values[key] = value
}

// Delete removes the given key from the shared state.
func (state *State) Delete(key string) {
	state.mu.Lock()
	defer state.mu.Unlock()

	delete(state.values, key)
}

// Update applies fn to the underlying map while holding the write lock, so a
// read-modify-write sequence is atomic with respect to other nodes.
//
// Example:
//
//	state.Update(func(values map[string]any) {
//	    attempts, _ := values["attempts"].(int)
//	    values["attempts"] = attempts + 1
//	})
func (state *State) Update(fn func(values map[string]any)) {
	state.mu.Lock()
	defer state.mu.Unlock()

	fn(state.values)
}

// Snapshot returns a copy of the shared state, safe to modify without
// affecting the run.
func (state *State) Snapshot() map[string]any {
	state.mu.RLock()
	defer state.mu.RUnlock()

	values := make(map[string]any, len(state.values))
	for key, value := range state.values {
		values[key] = value
	}
	return values
}

// Len returns the number of stored keys.
func (state *State) Len() int {
	state.mu.RLock()
	defer state.mu.RUnlock()

	return len(state.values)
}

// runContext is the mutable state of one run. The scheduler goroutine is its
// only writer: node executions report results over a channel and never touch
// these maps directly, so no locking is needed here.
type runContext struct {
	// statuses tracks each node's lifecycle position.
	statuses map[string]NodeStatus

	// pending accumulates delivered input fields per node, merged
	// last-writer-wins per field. Values may be *stream.Consumer[any] until
	// the node dispatches or the run checkpoints.
	pending map[string]map[string]any

	// queued holds per-delivery input sets for TriggerOnInput nodes, each
	// dispatched individually in arrival order.
	queued map[string][]map[string]any

	// finishedPreds records, per node, which predecessors have finished
	// (completed or skipped) at least once.
	finishedPreds map[string]map[string]bool

	// completedPreds records, per node, which predecessors completed rather
	// than skipped. A node whose predecessors all finished without any
	// completion is skipped.
	completedPreds map[string]map[string]bool

	// outputs holds the output of every completed node, keyed by name.
	outputs map[string]any

	// dispatches counts how many times each node has run, for OnInput
	// bookkeeping and observability.
	dispatches map[string]int

	// stepCount is the total number of dispatches so far, checked against
	// the step limit.
	stepCount int

	// interruptFired marks nodes whose interrupt point already triggered, so
	// a resumed run does not re-interrupt at the same place.
	interruptFired map[string]bool

	// state is the run's shared key-value state.
	state *State
}

// newRunContext creates the initial run state for a compiled graph: every
// node Waiting, no deliveries, fresh shared state.
func newRunContext(compiled *CompiledGraph) *runContext {
	var initial map[string]any
	if compiled.config.stateFactory != nil {
		initial = compiled.config.stateFactory()
	}

	run := &runContext{
		statuses:       make(map[string]NodeStatus, len(compiled.nodes)),
		pending:        make(map[string]map[string]any),
		queued:         make(map[string][]map[string]any),
		finishedPreds:  make(map[string]map[string]bool),
		completedPreds: make(map[string]map[string]bool),
		outputs:        make(map[string]any),
		dispatches:     make(map[string]int),
		interruptFired: make(map[string]bool),
		state:          newState(initial),
	}
	for name := range compiled.nodes {
		run.statuses[name] = NodeWaiting
	}
	return run
}

// mergeDelivery writes one delivered field into a node's pending input set.
func (run *runContext) mergeDelivery(nodeName, field string, value any) {
	fields, exists := run.pending[nodeName]
	if !exists {
		fields = make(map[string]any)
		run.pending[nodeName] = fields
	}
	fields[field] = value
}

// takePending removes and returns a node's accumulated input fields.
func (run *runContext) takePending(nodeName string) map[string]any {
	fields := run.pending[nodeName]
	delete(run.pending, nodeName)
	if fields == nil {
		fields = make(map[string]any)
	}
	return fields
}

// recordFinished notes that pred finished (completed or skipped) from the
// point of view of nodeName.
func (run *runContext) recordFinished(nodeName, pred string, completed bool) {
	finished, exists := run.finishedPreds[nodeName]
	if !exists {
		finished = make(map[string]bool)
		run.finishedPreds[nodeName] = finished
	}
	finished[pred] = true

	if completed {
		completedSet, exists := run.completedPreds[nodeName]
		if !exists {
			completedSet = make(map[string]bool)
			run.completedPreds[nodeName] = completedSet
		}
		completedSet[pred] = true
	}
}

// allPredsFinished reports whether every non-loop predecessor of the node
// has finished, and whether at least one of them completed.
func (run *runContext) allPredsFinished(compiled *CompiledGraph, nodeName string) (finished, anyCompleted bool) {
	preds := compiled.preds[nodeName]
	finishedSet := run.finishedPreds[nodeName]
	for _, pred := range preds {
		if !finishedSet[pred] {
			return false, false
		}
	}
	return true, len(run.completedPreds[nodeName]) > 0
}

// terminal reports whether the status is a final one for run-completion
// purposes.
func terminal(status NodeStatus) bool {
	switch status {
	case NodeCompleted, NodeFailed, NodeSkipped:
		return true
	default:
		return false
	}
}
