package graph

import (
	"time"

	"github.com/blueskygzhz/eino-cpp-sub002/providers/checkpoint"
	"github.com/blueskygzhz/eino-cpp-sub002/providers/observability"
)

// Option is a functional option for configuring graph-level behavior.
// Options are applied during Graph construction via New.
type Option func(*graphConfig)

// NodeOption is a functional option for configuring individual node behavior.
// Node options are applied via Graph.AddNode.
type NodeOption func(*node)

// EdgeOption is a functional option for configuring individual edge behavior.
// Edge options are applied via Graph.AddEdge.
type EdgeOption func(*edge)

// RunOption is a functional option for configuring a single run.
// Run options are applied via CompiledGraph.Invoke, Stream, and Resume.
type RunOption func(*runConfig)

// graphConfig holds the configuration for a Graph, populated by Options.
type graphConfig struct {
	// maxSteps bounds the total number of node dispatches in one run.
	// Zero means unbounded, which Compile rejects for graphs with loop edges.
	maxSteps int

	// maxConcurrency limits the number of nodes executing in parallel.
	// Zero means unlimited concurrency.
	maxConcurrency int

	// executionTimeout is the maximum duration for one whole run.
	// Zero means no timeout.
	executionTimeout time.Duration

	// entryNodes overrides the default entry set (nodes with no incoming
	// non-loop edges). Empty means use the default.
	entryNodes []string

	// outputNode designates which node produces the final output.
	// If empty, the last node in topological order is used.
	outputNode string

	// interruptBefore lists nodes the scheduler yields in front of,
	// checkpointing the run before they ever dispatch.
	interruptBefore []string

	// interruptAfter lists nodes the scheduler yields behind, checkpointing
	// the run once their outputs have been routed.
	interruptAfter []string

	// checkpointStore persists interrupt snapshots. Required for Resume;
	// without it an interrupted run cannot be reconstructed.
	checkpointStore checkpoint.Store

	// stateFactory builds the initial shared state for each run.
	// Nil means every run starts with empty state.
	stateFactory func() map[string]any

	// observability overrides the provider resolved from the context.
	observability observability.Provider

	// callbacks are invoked around graph and node lifecycle events.
	callbacks []*Callbacks
}

// runConfig holds per-run configuration, populated by RunOptions.
type runConfig struct {
	// checkpointID keys interrupt snapshots in the checkpoint store.
	// Empty means interrupts are reported but not persisted.
	checkpointID string

	// stepLimit overrides the graph-level maxSteps for this run.
	// Zero means inherit.
	stepLimit int

	// callbacks are additional per-run callbacks, composed after the
	// graph-level ones.
	callbacks []*Callbacks
}

// --- Graph Options ---

// WithMaxSteps bounds the total number of node dispatches in one run. When
// the bound is exceeded the run fails with a StepLimitError. A value of 0
// (default) means unbounded.
//
// Graphs containing loop edges must set a positive bound; Compile rejects
// them otherwise, because a loop region without a step budget cannot be
// proven to terminate.
//
// Example:
//
//	graph.New("refine-loop",
//	    graph.WithMaxSteps(20),
//	)
func WithMaxSteps(maxSteps int) Option {
	return func(config *graphConfig) {
		config.maxSteps = maxSteps
	}
}

// WithMaxConcurrency limits the number of nodes that can execute in parallel
// within the same scheduling step. A value of 0 (default) means unlimited
// concurrency — all ready nodes dispatch simultaneously.
//
// Use this to control resource consumption when nodes are resource-intensive
// (e.g., each node makes expensive API calls).
//
// Example:
//
//	graph.New("pipeline",
//	    graph.WithMaxConcurrency(3), // at most 3 nodes running at once
//	)
func WithMaxConcurrency(maxConcurrency int) Option {
	return func(config *graphConfig) {
		config.maxConcurrency = maxConcurrency
	}
}

// WithExecutionTimeout sets the maximum duration for one whole run. If the
// timeout is exceeded, the run context is canceled and all running nodes
// receive a cancellation signal. A value of 0 (default) means no timeout.
//
// Example:
//
//	graph.New("pipeline",
//	    graph.WithExecutionTimeout(5 * time.Minute),
//	)
func WithExecutionTimeout(timeout time.Duration) Option {
	return func(config *graphConfig) {
		config.executionTimeout = timeout
	}
}

// WithEntryNodes overrides which nodes receive the run's input and dispatch
// first. By default the entry set is every node with no incoming non-loop
// edge.
//
// Example:
//
//	graph.New("pipeline",
//	    graph.WithEntryNodes("load", "load_reference"),
//	)
func WithEntryNodes(names ...string) Option {
	return func(config *graphConfig) {
		config.entryNodes = append(config.entryNodes, names...)
	}
}

// WithOutputNode designates which node produces the final run output.
// By default, the last node in topological order is used.
//
// Use this when the graph has multiple terminal nodes (nodes with no
// outgoing edges) and you want to control which one provides the result.
//
// Example:
//
//	graph.New("pipeline",
//	    graph.WithOutputNode("summarize"),
//	)
func WithOutputNode(name string) Option {
	return func(config *graphConfig) {
		config.outputNode = name
	}
}

// WithInterruptBefore lists nodes the scheduler pauses in front of. When a
// listed node becomes ready, the run checkpoints and returns an
// InterruptError instead of dispatching it; the node runs on Resume.
//
// Typical use is a human-approval gate:
//
//	graph.New("review-flow",
//	    graph.WithInterruptBefore("apply_changes"),
//	    graph.WithCheckpointStore(store),
//	)
func WithInterruptBefore(names ...string) Option {
	return func(config *graphConfig) {
		config.interruptBefore = append(config.interruptBefore, names...)
	}
}

// WithInterruptAfter lists nodes the scheduler pauses behind. When a listed
// node completes and its outputs have been routed, the run checkpoints and
// returns an InterruptError; downstream nodes run on Resume.
//
// Example:
//
//	graph.New("review-flow",
//	    graph.WithInterruptAfter("draft"),
//	    graph.WithCheckpointStore(store),
//	)
func WithInterruptAfter(names ...string) Option {
	return func(config *graphConfig) {
		config.interruptAfter = append(config.interruptAfter, names...)
	}
}

// WithCheckpointStore sets the store that persists interrupt snapshots and
// serves Resume. Runs that can interrupt need both a store and a per-run
// checkpoint id (WithCheckpointID) for the snapshot to be saved.
//
// Example:
//
//	store := inmemory.New()
//	graph.New("review-flow",
//	    graph.WithCheckpointStore(store),
//	)
func WithCheckpointStore(store checkpoint.Store) Option {
	return func(config *graphConfig) {
		config.checkpointStore = store
	}
}

// WithState installs a factory for the run-scoped shared state. The factory
// is called once per run and its map becomes the initial contents of
// NodeInput.State. Without it, every run starts with empty state.
//
// Example:
//
//	graph.New("pipeline",
//	    graph.WithState(func() map[string]any {
//	        return map[string]any{"attempts": 0}
//	    }),
//	)
func WithState(factory func() map[string]any) Option {
	return func(config *graphConfig) {
		config.stateFactory = factory
	}
}

// WithObservability sets the observability provider used for run and node
// spans, counters, and histograms. Without it, the provider attached to the
// context (if any) is used, and otherwise observability is disabled.
//
// Example:
//
//	observer := slogobs.New()
//	graph.New("pipeline",
//	    graph.WithObservability(observer),
//	)
func WithObservability(provider observability.Provider) Option {
	return func(config *graphConfig) {
		config.observability = provider
	}
}

// WithCallbacks registers lifecycle callbacks invoked around graph and node
// execution. Multiple registrations compose: every registered set is invoked
// in registration order. Callback panics are recovered and logged; they
// never abort the run.
//
// Example:
//
//	graph.New("pipeline",
//	    graph.WithCallbacks(&graph.Callbacks{
//	        OnNodeEnd: func(ctx context.Context, info *graph.NodeInfo, result *graph.NodeResult) {
//	            log.Printf("node %s finished in %s", info.Name, result.Duration)
//	        },
//	    }),
//	)
func WithCallbacks(callbacks *Callbacks) Option {
	return func(config *graphConfig) {
		if callbacks != nil {
			config.callbacks = append(config.callbacks, callbacks)
		}
	}
}

// --- Node Options ---

// WithTriggerMode sets when the node becomes eligible to run. The default is
// TriggerAllPredecessors, which waits for every predecessor to finish.
//
// Example:
//
//	builder.AddNode("merge", mergeExecutor,
//	    graph.WithTriggerMode(graph.TriggerAnyPredecessor),
//	)
func WithTriggerMode(mode TriggerMode) NodeOption {
	return func(nodeConfig *node) {
		nodeConfig.trigger = mode
	}
}

// WithNodeMetadata attaches one static metadata entry to the node, preserving
// the order in which entries are added. Metadata is visible to the executor
// via NodeInput.Metadata and to callbacks; the scheduler never interprets it.
//
// Example:
//
//	builder.AddNode("extract", extractExecutor,
//	    graph.WithNodeMetadata("team", "ingest"),
//	    graph.WithNodeMetadata("cost_center", "pipelines"),
//	)
func WithNodeMetadata(key, value string) NodeOption {
	return func(nodeConfig *node) {
		nodeConfig.metadata.Set(key, value)
	}
}

// WithPreHandler installs a handler that runs inside the node's dispatch,
// after input streams are materialized and before the executor. It may
// rewrite the input fields and access shared state; an error fails the node.
//
// Example:
//
//	builder.AddNode("summarize", summarizeExecutor,
//	    graph.WithPreHandler(func(ctx context.Context, state *graph.State, input *graph.NodeInput) error {
//	        input.Fields["language"] = "en"
//	        return nil
//	    }),
//	)
func WithPreHandler(handler PreHandler) NodeOption {
	return func(nodeConfig *node) {
		nodeConfig.preHandler = handler
	}
}

// WithPostHandler installs a handler that runs after a successful execution
// and before the output is routed. It may rewrite the result and access
// shared state; an error fails the node.
//
// Example:
//
//	builder.AddNode("summarize", summarizeExecutor,
//	    graph.WithPostHandler(func(ctx context.Context, state *graph.State, result *graph.NodeResult) error {
//	        state.Set("last_summary", result.Output)
//	        return nil
//	    }),
//	)
func WithPostHandler(handler PostHandler) NodeOption {
	return func(nodeConfig *node) {
		nodeConfig.postHandler = handler
	}
}

// WithStreamInput declares that the node consumes streams directly. Input
// fields whose values are *stream.Consumer[any] are handed to the executor
// as-is instead of being concatenated into plain values first.
//
// Example:
//
//	builder.AddNode("relay", relayExecutor,
//	    graph.WithStreamInput(),
//	)
func WithStreamInput() NodeOption {
	return func(nodeConfig *node) {
		nodeConfig.streamInput = true
	}
}

// WithNodeTimeout sets the maximum duration for one dispatch of this node.
// If the timeout is exceeded, the node's context is canceled and the node
// fails with a context deadline exceeded error.
//
// A value of 0 (default) means no node-specific timeout. The run-level
// execution timeout (WithExecutionTimeout) still applies.
//
// Example:
//
//	builder.AddNode("slow_analysis", analysisExecutor,
//	    graph.WithNodeTimeout(30 * time.Second),
//	)
func WithNodeTimeout(timeout time.Duration) NodeOption {
	return func(nodeConfig *node) {
		nodeConfig.timeout = timeout
	}
}

// --- Edge Options ---

// WithMappings projects fields of the source output into fields of the
// target input as the value travels along the edge. Without mappings, a data
// edge delivers the whole output under the source node's name.
//
// When two edges write the same target field within one scheduling step, the
// edge declared later wins.
//
// Example:
//
//	builder.AddEdge("extract", "score",
//	    graph.WithMappings(
//	        graph.MapField("title", "document_title"),
//	        graph.MapField("body", "document_body"),
//	    ),
//	)
func WithMappings(mappings ...FieldMapping) EdgeOption {
	return func(edgeConfig *edge) {
		edgeConfig.mappings = append(edgeConfig.mappings, mappings...)
	}
}

// WithControlOnly strips the data role from the edge: it signals completion
// to the target but delivers no value.
//
// Example:
//
//	builder.AddEdge("audit_log", "finalize", graph.WithControlOnly())
func WithControlOnly() EdgeOption {
	return func(edgeConfig *edge) {
		edgeConfig.data = false
		edgeConfig.control = true
	}
}

// WithDataOnly strips the control role from the edge: the edge exists to
// carry the value. The source still gates the target's readiness, since an
// AllPredecessors node cannot run before its data has arrived.
func WithDataOnly() EdgeOption {
	return func(edgeConfig *edge) {
		edgeConfig.control = false
		edgeConfig.data = true
	}
}

// WithLoopEdge marks the edge as an intentional back-edge of a loop region.
// Loop edges are excluded from cycle validation, and a delivery over one
// re-arms an already-completed TriggerAnyPredecessor target for another
// pass. Graphs with loop edges must set WithMaxSteps.
//
// Example:
//
//	builder.AddEdge("evaluate", "refine",
//	    graph.WithLoopEdge(),
//	)
func WithLoopEdge() EdgeOption {
	return func(edgeConfig *edge) {
		edgeConfig.loop = true
	}
}

// --- Run Options ---

// WithCheckpointID keys this run's interrupt snapshots in the checkpoint
// store. Resume uses the same id to reconstruct the run. Without an id,
// interrupts still surface as InterruptError but nothing is persisted.
//
// Example:
//
//	result, err := compiled.Invoke(ctx, input,
//	    graph.WithCheckpointID("order-7421"),
//	)
func WithCheckpointID(id string) RunOption {
	return func(config *runConfig) {
		config.checkpointID = id
	}
}

// WithStepLimit overrides the graph-level WithMaxSteps bound for this run
// only. A value of 0 (default) inherits the compiled bound.
func WithStepLimit(limit int) RunOption {
	return func(config *runConfig) {
		config.stepLimit = limit
	}
}

// WithRunCallbacks registers additional callbacks for this run only,
// composed after the graph-level ones.
func WithRunCallbacks(callbacks *Callbacks) RunOption {
	return func(config *runConfig) {
		if callbacks != nil {
			config.callbacks = append(config.callbacks, callbacks)
		}
	}
}
