package graph

import (
	"context"
	"fmt"

	"github.com/blueskygzhz/eino-cpp-sub002/providers/observability"
)

// NodeInfo identifies a node dispatch to callbacks.
type NodeInfo struct {
	// Name is the node's name.
	Name string

	// Trigger is the node's trigger mode.
	Trigger TriggerMode

	// Dispatch is the 1-based dispatch count for this node within the run.
	// It exceeds 1 only for OnInput nodes and loop re-arms.
	Dispatch int

	// Metadata is the node's static metadata.
	Metadata *Metadata
}

// Callbacks is a set of optional lifecycle hooks invoked by the scheduler.
// Leave any field nil to skip that hook. Hooks observe the run; they cannot
// alter it: a panic inside a hook is recovered and logged, never propagated
// into scheduling, and node hooks may fire concurrently from parallel node
// executions.
//
// Register graph-wide hooks with WithCallbacks and per-run hooks with
// WithRunCallbacks; multiple registrations all fire, in registration order.
type Callbacks struct {
	// OnGraphStart fires once when a run (or resumed run) begins.
	OnGraphStart func(ctx context.Context, graphName string, input any)

	// OnGraphEnd fires once when a run finishes successfully.
	OnGraphEnd func(ctx context.Context, graphName string, result *RunResult)

	// OnGraphError fires once when a run fails or is interrupted.
	OnGraphError func(ctx context.Context, graphName string, err error)

	// OnNodeStart fires before each node execution, after its input has been
	// assembled.
	OnNodeStart func(ctx context.Context, info *NodeInfo, input *NodeInput)

	// OnNodeEnd fires after each successful node execution.
	OnNodeEnd func(ctx context.Context, info *NodeInfo, result *NodeResult)

	// OnNodeError fires after a failed node execution.
	OnNodeError func(ctx context.Context, info *NodeInfo, err error)

	// OnNodeStreamStart fires when a node produces a stream output, before
	// any chunk is routed downstream.
	OnNodeStreamStart func(ctx context.Context, info *NodeInfo)

	// OnNodeStreamEnd fires when a node's output stream reaches a terminal
	// outcome, with the number of chunks that were pulled through it.
	OnNodeStreamEnd func(ctx context.Context, info *NodeInfo, chunks int)
}

// callbackSet composes the graph-level and run-level callbacks and shields
// the scheduler from hook panics.
type callbackSet struct {
	callbacks []*Callbacks
	logger    observability.Provider
}

// guard runs fn, recovering and logging any panic so a misbehaving hook
// cannot abort the run.
func (set *callbackSet) guard(ctx context.Context, hook string, fn func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			if set.logger != nil {
				set.logger.Warn(ctx, "graph callback panicked",
					observability.String("hook", hook),
					observability.String("panic", fmt.Sprint(recovered)),
				)
			}
		}
	}()
	fn()
}

func (set *callbackSet) graphStart(ctx context.Context, graphName string, input any) {
	for _, callbacks := range set.callbacks {
		if callbacks.OnGraphStart != nil {
			set.guard(ctx, "OnGraphStart", func() { callbacks.OnGraphStart(ctx, graphName, input) })
		}
	}
}

func (set *callbackSet) graphEnd(ctx context.Context, graphName string, result *RunResult) {
	for _, callbacks := range set.callbacks {
		if callbacks.OnGraphEnd != nil {
			set.guard(ctx, "OnGraphEnd", func() { callbacks.OnGraphEnd(ctx, graphName, result) })
		}
	}
}

func (set *callbackSet) graphError(ctx context.Context, graphName string, err error) {
	for _, callbacks := range set.callbacks {
		if callbacks.OnGraphError != nil {
			set.guard(ctx, "OnGraphError", func() { callbacks.OnGraphError(ctx, graphName, err) })
		}
	}
}

func (set *callbackSet) nodeStart(ctx context.Context, info *NodeInfo, input *NodeInput) {
	for _, callbacks := range set.callbacks {
		if callbacks.OnNodeStart != nil {
			set.guard(ctx, "OnNodeStart", func() { callbacks.OnNodeStart(ctx, info, input) })
		}
	}
}

func (set *callbackSet) nodeEnd(ctx context.Context, info *NodeInfo, result *NodeResult) {
	for _, callbacks := range set.callbacks {
		if callbacks.OnNodeEnd != nil {
			set.guard(ctx, "OnNodeEnd", func() { callbacks.OnNodeEnd(ctx, info, result) })
		}
	}
}

func (set *callbackSet) nodeError(ctx context.Context, info *NodeInfo, err error) {
	for _, callbacks := range set.callbacks {
		if callbacks.OnNodeError != nil {
			set.guard(ctx, "OnNodeError", func() { callbacks.OnNodeError(ctx, info, err) })
		}
	}
}

func (set *callbackSet) nodeStreamStart(ctx context.Context, info *NodeInfo) {
	for _, callbacks := range set.callbacks {
		if callbacks.OnNodeStreamStart != nil {
			set.guard(ctx, "OnNodeStreamStart", func() { callbacks.OnNodeStreamStart(ctx, info) })
		}
	}
}

func (set *callbackSet) nodeStreamEnd(ctx context.Context, info *NodeInfo, chunks int) {
	for _, callbacks := range set.callbacks {
		if callbacks.OnNodeStreamEnd != nil {
			set.guard(ctx, "OnNodeStreamEnd", func() { callbacks.OnNodeStreamEnd(ctx, info, chunks) })
		}
	}
}
