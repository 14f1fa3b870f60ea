package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/blueskygzhz/eino-cpp-sub002/core/stream"
)

// TriggerMode determines when a node becomes eligible to run, based on what
// its predecessors have done so far.
type TriggerMode string

const (
	// TriggerAllPredecessors dispatches the node once, after every control and
	// data predecessor has finished (completed or been skipped) and every data
	// value has been delivered. A node whose predecessors all skipped is
	// skipped itself. This is the default mode.
	TriggerAllPredecessors TriggerMode = "all_predecessors"

	// TriggerAnyPredecessor dispatches the node once, as soon as the first
	// predecessor finishes, using whichever inputs have arrived by then.
	// Later deliveries to an already-dispatched node are discarded unless
	// they arrive over a loop edge, which re-arms the node for another pass.
	TriggerAnyPredecessor TriggerMode = "any_predecessor"

	// TriggerOnInput dispatches the node once per arriving data delivery,
	// potentially many times per run. Each dispatch sees only the fields of
	// the delivery that caused it — fan-in without barrier semantics.
	TriggerOnInput TriggerMode = "on_input"
)

// NodeStatus represents the lifecycle status of a node within one run.
type NodeStatus string

const (
	// NodeWaiting indicates the node's trigger predicate is not satisfied yet.
	NodeWaiting NodeStatus = "waiting"

	// NodeReady indicates the trigger predicate is satisfied and the node
	// will be dispatched on the next scheduling step.
	NodeReady NodeStatus = "ready"

	// NodeRunning indicates the node's executor is currently executing.
	NodeRunning NodeStatus = "running"

	// NodeCompleted indicates the node finished successfully.
	NodeCompleted NodeStatus = "completed"

	// NodeFailed indicates the node's executor returned an error.
	NodeFailed NodeStatus = "failed"

	// NodeInterrupted indicates the run yielded at this node's boundary and
	// was checkpointed for a later Resume.
	NodeInterrupted NodeStatus = "interrupted"

	// NodeSkipped indicates the node was never dispatched because every
	// predecessor skipped, or a branch routed around it.
	NodeSkipped NodeStatus = "skipped"
)

// FieldMapping projects one field of a producer's output into one field of a
// consumer's input as a value travels along a data edge.
//
// An empty From selects the producer's entire output; an empty To targets the
// consumer's entire-input slot, read back through NodeInput.Value. The zero
// FieldMapping therefore forwards the whole output as the whole input.
type FieldMapping struct {
	// From names the output field to read. Empty means the entire output.
	From string

	// To names the input field to write. Empty means the entire-input slot.
	To string
}

// MapField maps the named output field onto the named input field.
func MapField(from, to string) FieldMapping {
	return FieldMapping{From: from, To: to}
}

// MapOutput delivers the producer's entire output under the named input field.
func MapOutput(to string) FieldMapping {
	return FieldMapping{To: to}
}

// MapToInput delivers the named output field as the consumer's entire input,
// read back through NodeInput.Value.
func MapToInput(from string) FieldMapping {
	return FieldMapping{From: from}
}

// entireInputKey is the reserved pending-input field used when a delivery
// targets the whole input rather than a named field.
const entireInputKey = ""

// Metadata is an ordered string-to-string mapping attached to a node.
// Iteration follows insertion order; setting an existing key updates the
// value in place without moving the key. The zero value is ready to use.
type Metadata struct {
	keys   []string
	values map[string]string
}

// Set stores value under key, appending the key on first write.
func (metadata *Metadata) Set(key, value string) {
	if metadata.values == nil {
		metadata.values = make(map[string]string)
	}
	if _, exists := metadata.values[key]; !exists {
		metadata.keys = append(metadata.keys, key)
	}
	metadata.values[key] = value
}

// Get returns the value stored under key and whether the key exists.
func (metadata *Metadata) Get(key string) (string, bool) {
	value, exists := metadata.values[key]
	return value, exists
}

// Keys returns the keys in insertion order. The returned slice is a copy.
func (metadata *Metadata) Keys() []string {
	keys := make([]string, len(metadata.keys))
	copy(keys, metadata.keys)
	return keys
}

// Len returns the number of stored keys.
func (metadata *Metadata) Len() int {
	return len(metadata.keys)
}

// Range calls fn for each key/value pair in insertion order until fn returns
// false.
func (metadata *Metadata) Range(fn func(key, value string) bool) {
	for _, key := range metadata.keys {
		if !fn(key, metadata.values[key]) {
			return
		}
	}
}

// NodeInput carries everything a node sees when it executes: the input fields
// assembled from predecessor deliveries, the run's shared state, and the
// node's own metadata.
type NodeInput struct {
	// Fields maps input field names to delivered values. Unmapped data edges
	// deliver the predecessor's whole output under the predecessor's name;
	// field mappings rename or project values per edge. For nodes declared
	// with WithStreamInput, values may be *stream.Consumer[any]; otherwise
	// streams are concatenated to plain values before the executor runs.
	Fields map[string]any

	// State is the run-scoped shared key-value state, safe for concurrent
	// use from parallel node executions.
	State *State

	// Metadata is the node's static metadata, set via WithNodeMetadata.
	Metadata *Metadata
}

// Field returns the named input field and whether it was delivered.
func (input *NodeInput) Field(name string) (any, bool) {
	value, exists := input.Fields[name]
	return value, exists
}

// Value returns the node's primary input: the entire-input slot when a
// delivery targeted it, otherwise the single delivered field when exactly one
// arrived, otherwise nil. Multi-field inputs should be read via Field.
func (input *NodeInput) Value() any {
	if value, exists := input.Fields[entireInputKey]; exists {
		return value
	}
	if len(input.Fields) == 1 {
		for _, value := range input.Fields {
			return value
		}
	}
	return nil
}

// NodeResult contains the output produced by a node after execution.
// The Output field must be JSON-serializable for runs that may checkpoint,
// because pending deliveries are serialized at interrupt time.
type NodeResult struct {
	// Output is the value produced by the node. It may be a plain value or a
	// *stream.Consumer[any]; streams are routed live to downstream nodes and
	// concatenated wherever a single value is required.
	Output any

	// Metadata contains arbitrary key-value pairs for additional information
	// such as token counts or retry attempts. It is passed to post-handlers
	// and callbacks but never routed along edges.
	Metadata map[string]any

	// Duration is the wall-clock time the node took to execute.
	// It is populated by the scheduler.
	Duration time.Duration
}

// NodeExecutor is the interface every graph node implements. It defines the
// processing logic for a single step in the workflow.
//
// Implementations should:
//   - Read their input via input.Value or input.Field
//   - Use input.State for cross-node data sharing
//   - Return a NodeResult with the Output field populated on success
//   - Return an error if the execution fails
//
// A *CompiledGraph is itself a NodeExecutor, so a whole graph can run as a
// single node of an outer graph.
//
// Example:
//
//	type totalExecutor struct{}
//
//	func (e *totalExecutor) Execute(ctx context.Context, input *NodeInput) (*graph.NodeResult, error) {
//	    items, ok := input.Value().([]float64)
//	    if !ok {
//	        return nil, fmt.Errorf("expected []float64 input, got %T", input.Value())
//	    }
//	    var total float64
//	    for _, item := range items {
//	        total += item
//	    }
//	    return &graph.NodeResult{Output: total}, nil
//	}
type NodeExecutor interface {
	Execute(ctx context.Context, input *NodeInput) (*NodeResult, error)
}

// NodeExecutorFunc is an adapter that allows using an ordinary function as a
// NodeExecutor. If f is a function with the appropriate signature,
// NodeExecutorFunc(f) is a NodeExecutor that calls f.
type NodeExecutorFunc func(ctx context.Context, input *NodeInput) (*NodeResult, error)

// Execute calls the underlying function, satisfying the NodeExecutor interface.
func (executorFunc NodeExecutorFunc) Execute(ctx context.Context, input *NodeInput) (*NodeResult, error) {
	return executorFunc(ctx, input)
}

// StreamNodeExecutor is implemented by executors that produce their output as
// a live stream. The scheduler prefers ExecuteStream over Execute for such
// nodes and routes the consumer downstream chunk by chunk.
//
// The producer side belongs to the executor: it must eventually close the
// stream (or send a terminal error), typically from a goroutine it owns.
type StreamNodeExecutor interface {
	NodeExecutor
	ExecuteStream(ctx context.Context, input *NodeInput) (*stream.Consumer[any], error)
}

// StreamNodeExecutorFunc adapts a function into a StreamNodeExecutor.
type StreamNodeExecutorFunc func(ctx context.Context, input *NodeInput) (*stream.Consumer[any], error)

// ExecuteStream calls the underlying function.
func (executorFunc StreamNodeExecutorFunc) ExecuteStream(ctx context.Context, input *NodeInput) (*stream.Consumer[any], error) {
	return executorFunc(ctx, input)
}

// Execute satisfies NodeExecutor by wrapping the produced stream in a
// NodeResult, for callers that treat the node as non-streaming.
func (executorFunc StreamNodeExecutorFunc) Execute(ctx context.Context, input *NodeInput) (*NodeResult, error) {
	consumer, err := executorFunc(ctx, input)
	if err != nil {
		return nil, err
	}
	return &NodeResult{Output: consumer}, nil
}

// PreHandler runs inside a node's dispatch, after input streams are
// materialized and before the executor. It may rewrite input.Fields and read
// or update shared state. Returning an error fails the node.
type PreHandler func(ctx context.Context, state *State, input *NodeInput) error

// PostHandler runs inside a node's dispatch, after a successful execution and
// before the output is routed. It may rewrite result.Output and read or
// update shared state. Returning an error fails the node.
type PostHandler func(ctx context.Context, state *State, result *NodeResult) error

// BranchSelector picks which candidate targets of a branch receive the source
// node's output. It returns the names of the selected candidates; candidates
// left out are skipped, along with any downstream nodes that only they feed.
type BranchSelector func(ctx context.Context, output any) ([]string, error)

// node represents a single processing step in the graph.
// It is created internally by Graph.AddNode and is not directly instantiated
// by users.
type node struct {
	// name is the unique identifier for this node within the graph.
	name string

	// executor contains the processing logic for this node.
	executor NodeExecutor

	// trigger determines when the node becomes eligible to run.
	// Defaults to TriggerAllPredecessors.
	trigger TriggerMode

	// metadata is the node's ordered static metadata.
	metadata *Metadata

	// preHandler, if set, runs before the executor within each dispatch.
	preHandler PreHandler

	// postHandler, if set, runs after a successful execution.
	postHandler PostHandler

	// streamInput, when true, hands stream-valued input fields to the
	// executor as-is instead of concatenating them first.
	streamInput bool

	// timeout is the maximum duration allowed for one dispatch of this node.
	// Zero means no node-level timeout.
	timeout time.Duration
}

// edge represents a directed connection between two nodes in the graph.
type edge struct {
	// from is the name of the source node.
	from string

	// to is the name of the target node.
	to string

	// control marks the edge as signaling "predecessor finished".
	control bool

	// data marks the edge as carrying the predecessor's output value.
	data bool

	// loop marks the edge as an intentional back-edge of a loop region,
	// excluded from cycle validation and able to re-arm its target.
	loop bool

	// mappings project fields of the source output into fields of the target
	// input. Empty means the whole output is delivered under the source
	// node's name.
	mappings []FieldMapping

	// index is the edge's declaration order, used as the deterministic
	// tie-break when two deliveries in the same step write one field.
	index int

	// branch links edges synthesized by AddBranch back to their selector.
	branch *branch
}

// branch routes a node's output to a runtime-selected subset of candidates.
type branch struct {
	// from is the name of the source node.
	from string

	// selector picks the candidates that receive the output.
	selector BranchSelector

	// candidates lists the possible targets, in declaration order.
	candidates []string
}

// Graph accumulates nodes, edges, and branches through a fluent API, then
// validates the whole structure in Compile. Errors found while adding are
// recorded and reported together at Compile time, so call sites can chain
// without per-call error handling.
//
// Example:
//
//	compiled, err := graph.New("pipeline").
//	    AddNode("fetch", fetchExecutor).
//	    AddNode("analyze", analyzeExecutor).
//	    AddNode("summarize", summarizeExecutor).
//	    AddEdge("fetch", "analyze").
//	    AddEdge("analyze", "summarize").
//	    Compile()
type Graph struct {
	// name identifies the graph in logs, spans, and checkpoints.
	name string

	// config holds graph-level configuration populated from Options.
	config *graphConfig

	// nodes stores all registered nodes keyed by their name.
	nodes map[string]*node

	// nodeOrder preserves the insertion order of nodes for deterministic
	// scheduling scans and error messages.
	nodeOrder []string

	// edges stores all registered directed edges in declaration order.
	edges []*edge

	// branches stores all registered branches in declaration order.
	branches []*branch

	// buildErrors accumulates validation errors from AddNode/AddEdge/AddBranch
	// and is reported when Compile is called.
	buildErrors []error
}

// New creates an empty Graph with the given name. Graph-level options
// (WithMaxSteps, WithOutputNode, WithCheckpointStore, ...) are applied here;
// node and edge options are applied via AddNode and AddEdge.
//
// Example:
//
//	g := graph.New("review-flow",
//	    graph.WithMaxSteps(50),
//	    graph.WithInterruptBefore("human_review"),
//	    graph.WithCheckpointStore(inmemory.New()),
//	)
func New(name string, opts ...Option) *Graph {
	config := &graphConfig{}
	for _, opt := range opts {
		opt(config)
	}

	return &Graph{
		name:      name,
		config:    config,
		nodes:     make(map[string]*node),
		nodeOrder: make([]string, 0),
		edges:     make([]*edge, 0),
		branches:  make([]*branch, 0),
	}
}

// AddNode registers a processing node with the given unique name and
// executor. Node options (WithTriggerMode, WithNodeMetadata, WithPreHandler,
// WithPostHandler, WithStreamInput, WithNodeTimeout) customize individual
// node behavior.
//
// Returns the graph for method chaining. If the name is empty, duplicated,
// or the executor is nil, a build error is recorded and reported at Compile
// time.
func (graph *Graph) AddNode(name string, executor NodeExecutor, opts ...NodeOption) *Graph {
	if name == "" {
		graph.buildErrors = append(graph.buildErrors, fmt.Errorf("node name must not be empty"))
		return graph
	}

	if executor == nil {
		graph.buildErrors = append(graph.buildErrors, fmt.Errorf("executor must not be nil for node %q", name))
		return graph
	}

	if _, exists := graph.nodes[name]; exists {
		graph.buildErrors = append(graph.buildErrors, fmt.Errorf("duplicate node name %q", name))
		return graph
	}

	graphNode := &node{
		name:     name,
		executor: executor,
		trigger:  TriggerAllPredecessors,
		metadata: &Metadata{},
	}

	for _, opt := range opts {
		opt(graphNode)
	}

	graph.nodes[name] = graphNode
	graph.nodeOrder = append(graph.nodeOrder, name)

	return graph
}

// AddEdge creates a directed edge from one node to another. By default the
// edge carries both the completion signal and the source's output value;
// edge options (WithControlOnly, WithDataOnly, WithMappings, WithLoopEdge)
// refine that.
//
// Returns the graph for method chaining. Endpoint existence is validated at
// Compile time, so edges may be declared before their nodes.
func (graph *Graph) AddEdge(from, to string, opts ...EdgeOption) *Graph {
	if from == "" || to == "" {
		graph.buildErrors = append(graph.buildErrors, fmt.Errorf("edge endpoints must not be empty (from=%q, to=%q)", from, to))
		return graph
	}

	graphEdge := &edge{
		from:    from,
		to:      to,
		control: true,
		data:    true,
		index:   len(graph.edges),
	}

	for _, opt := range opts {
		opt(graphEdge)
	}

	if from == to && !graphEdge.loop {
		graph.buildErrors = append(graph.buildErrors, fmt.Errorf("self-loop on node %q requires WithLoopEdge", from))
		return graph
	}

	graph.edges = append(graph.edges, graphEdge)

	return graph
}

// AddBranch routes the source node's output to a runtime-selected subset of
// the candidate nodes. The selector runs after the source completes and
// returns the names of the candidates to activate; the rest are skipped,
// along with downstream nodes that only they feed.
//
// Each candidate is connected by an implicit control+data edge. If an edge
// from the source to a candidate was already declared with AddEdge, the
// branch attaches to that edge instead, keeping its options; this is how a
// loop back-edge becomes conditional — declare it with WithLoopEdge, then
// list its target as a branch candidate, and the loop re-arms only while the
// selector keeps choosing it.
//
// Example:
//
//	g.AddBranch("triage", func(ctx context.Context, output any) ([]string, error) {
//	    if output.(bool) {
//	        return []string{"approve"}, nil
//	    }
//	    return []string{"escalate"}, nil
//	}, "approve", "escalate")
func (graph *Graph) AddBranch(from string, selector BranchSelector, candidates ...string) *Graph {
	if from == "" {
		graph.buildErrors = append(graph.buildErrors, fmt.Errorf("branch source must not be empty"))
		return graph
	}

	if selector == nil {
		graph.buildErrors = append(graph.buildErrors, fmt.Errorf("branch selector must not be nil for node %q", from))
		return graph
	}

	if len(candidates) == 0 {
		graph.buildErrors = append(graph.buildErrors, fmt.Errorf("branch from node %q must list at least one candidate", from))
		return graph
	}

	graphBranch := &branch{
		from:       from,
		selector:   selector,
		candidates: candidates,
	}
	graph.branches = append(graph.branches, graphBranch)

	for _, candidate := range candidates {
		if existing := graph.findEdge(from, candidate); existing != nil {
			if existing.branch != nil {
				graph.buildErrors = append(graph.buildErrors, fmt.Errorf("edge from %q to %q is already routed by another branch", from, candidate))
				continue
			}
			existing.branch = graphBranch
			continue
		}
		graph.edges = append(graph.edges, &edge{
			from:    from,
			to:      candidate,
			control: true,
			data:    true,
			index:   len(graph.edges),
			branch:  graphBranch,
		})
	}

	return graph
}

// findEdge returns the declared edge between the two nodes, or nil.
func (graph *Graph) findEdge(from, to string) *edge {
	for _, graphEdge := range graph.edges {
		if graphEdge.from == from && graphEdge.to == to {
			return graphEdge
		}
	}
	return nil
}
