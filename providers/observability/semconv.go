package observability

// Semantic conventions for observability attributes.
// These constants define the attribute names the engine records, so Provider
// implementations and dashboards can rely on stable keys.

// --- Graph Attributes ---

const (
	// AttrGraphName is the name given to the graph at construction
	AttrGraphName = "graph.name"

	// AttrGraphNodeCount is the number of nodes in the compiled graph
	AttrGraphNodeCount = "graph.node_count"

	// AttrGraphEntryNodes lists the entry node names of the run
	AttrGraphEntryNodes = "graph.entry_nodes"
)

// --- Run Attributes ---

const (
	// AttrRunStep is the superstep counter at the time of the observation
	AttrRunStep = "run.step"

	// AttrRunMaxSteps is the configured step bound for the run
	AttrRunMaxSteps = "run.max_steps"

	// AttrRunResumed marks runs re-entered from a checkpoint
	AttrRunResumed = "run.resumed"

	// AttrRunOutputNode is the node whose value becomes the run result
	AttrRunOutputNode = "run.output_node"
)

// --- Node Attributes ---

const (
	// AttrNodeName is the name of the node being dispatched
	AttrNodeName = "node.name"

	// AttrNodeTrigger is the node's trigger mode
	AttrNodeTrigger = "node.trigger_mode"

	// AttrNodeStatus is the node's lifecycle status after the observation
	AttrNodeStatus = "node.status"

	// AttrNodeStreaming marks dispatches that produced a stream output
	AttrNodeStreaming = "node.streaming"
)

// --- Checkpoint Attributes ---

const (
	// AttrCheckpointID is the identifier a snapshot was stored or loaded under
	AttrCheckpointID = "checkpoint.id"

	// AttrCheckpointBytes is the serialized snapshot size
	AttrCheckpointBytes = "checkpoint.bytes"

	// AttrInterruptBefore lists nodes held back by an interrupt-before rule
	AttrInterruptBefore = "interrupt.before_nodes"

	// AttrInterruptAfter lists nodes that completed under an interrupt-after rule
	AttrInterruptAfter = "interrupt.after_nodes"
)

// --- Stream Attributes ---

const (
	// AttrStreamChunks is the number of chunks moved through a stream
	AttrStreamChunks = "stream.chunks"
)

// --- Status Attributes ---

const (
	// AttrStatus is the operation status
	AttrStatus = "status"

	// AttrStatusDescription is the status description
	AttrStatusDescription = "status_description"

	// AttrDuration is the wall-clock duration of an operation
	AttrDuration = "duration"
)
