package graph

import (
	"context"
	"strings"
	"time"

	"github.com/blueskygzhz/eino-cpp-sub002/internal/utils"
	"github.com/blueskygzhz/eino-cpp-sub002/providers/observability"
)

// Span and metric names for graph observability. Attribute names live in the
// observability package's semantic conventions.
const (
	// spanGraphRun is the span name for one whole run.
	spanGraphRun = "graph.run"

	// spanGraphNodeExecute is the span name for one node dispatch.
	spanGraphNodeExecute = "graph.node.execute"

	// metricGraphNodeDuration is the histogram for node dispatch duration.
	metricGraphNodeDuration = "eino.graph.node.duration"

	// metricGraphNodeCount is the counter for node dispatches by status.
	metricGraphNodeCount = "eino.graph.node.count"

	// metricGraphRunDuration is the histogram for total run duration.
	metricGraphRunDuration = "eino.graph.run.duration"

	// metricGraphRunSteps is the histogram for dispatches per run.
	metricGraphRunSteps = "eino.graph.run.steps"

	// metricGraphInterruptCount is the counter for interrupt yields.
	metricGraphInterruptCount = "eino.graph.interrupt.count"
)

// observerState holds the observability provider and the root span for one
// run. It is populated at run start from the graph configuration, falling
// back to the provider attached to the context.
type observerState struct {
	// provider is the resolved observability provider.
	// Nil means observability is disabled (zero overhead).
	provider observability.Provider

	// rootSpan is the top-level span for the run.
	rootSpan observability.Span
}

// observeRunStart initializes observability for a run. Creates the root span,
// attaches span and provider to the context for downstream propagation, and
// logs the run configuration.
func (runner *graphRunner) observeRunStart(ctx *context.Context, input any) {
	runner.observer.provider = runner.compiled.config.observability
	if runner.observer.provider == nil {
		// Fall back to a provider attached to the caller's context.
		runner.observer.provider = observability.ObserverFromContext(*ctx)
	}

	if runner.observer.provider == nil {
		return
	}

	var rootSpan observability.Span
	*ctx, rootSpan = runner.observer.provider.StartSpan(*ctx, spanGraphRun,
		observability.String(observability.AttrGraphName, runner.compiled.name),
		observability.Int(observability.AttrGraphNodeCount, len(runner.compiled.nodes)),
		observability.StringSlice(observability.AttrGraphEntryNodes, runner.compiled.entries),
		observability.String(observability.AttrRunOutputNode, runner.compiled.outputNode),
		observability.Int(observability.AttrRunMaxSteps, runner.stepLimit),
		observability.Bool(observability.AttrRunResumed, runner.resumed),
	)
	runner.observer.rootSpan = rootSpan

	*ctx = observability.ContextWithSpan(*ctx, rootSpan)
	*ctx = observability.ContextWithObserver(*ctx, runner.observer.provider)

	logAttrs := []observability.Attribute{
		observability.String(observability.AttrGraphName, runner.compiled.name),
		observability.Int(observability.AttrGraphNodeCount, len(runner.compiled.nodes)),
		observability.Bool(observability.AttrRunResumed, runner.resumed),
	}
	if inputText, isString := input.(string); isString {
		logAttrs = append(logAttrs,
			observability.String("run.input", utils.TruncateString(inputText, 100)),
		)
	}
	runner.observer.provider.Info(*ctx, "graph run started", logAttrs...)
}

// observeRunCompleted records a successful run and closes the root span.
func (runner *graphRunner) observeRunCompleted(ctx context.Context, result *RunResult, totalDuration time.Duration) {
	if runner.observer.provider == nil {
		return
	}

	runner.observer.provider.Histogram(metricGraphRunDuration).Record(ctx, totalDuration.Seconds())
	runner.observer.provider.Histogram(metricGraphRunSteps).Record(ctx, float64(result.Steps))

	runner.observer.provider.Info(ctx, "graph run completed",
		observability.String(observability.AttrGraphName, runner.compiled.name),
		observability.Int(observability.AttrRunStep, result.Steps),
		observability.Duration(observability.AttrDuration, totalDuration),
	)

	if runner.observer.rootSpan != nil {
		runner.observer.rootSpan.SetAttributes(
			observability.Int(observability.AttrRunStep, result.Steps),
		)
		runner.observer.rootSpan.SetStatus(observability.StatusOK, "graph run completed")
		runner.observer.rootSpan.End()
	}
}

// observeRunFailed records a failed run and closes the root span.
func (runner *graphRunner) observeRunFailed(ctx context.Context, runError error, totalDuration time.Duration) {
	if runner.observer.provider == nil {
		return
	}

	runner.observer.provider.Histogram(metricGraphRunDuration).Record(ctx, totalDuration.Seconds())

	runner.observer.provider.Error(ctx, "graph run failed",
		observability.String(observability.AttrGraphName, runner.compiled.name),
		observability.Error(runError),
		observability.Duration(observability.AttrDuration, totalDuration),
	)

	if runner.observer.rootSpan != nil {
		runner.observer.rootSpan.RecordError(runError)
		runner.observer.rootSpan.SetStatus(observability.StatusError, "graph run failed")
		runner.observer.rootSpan.End()
	}
}

// observeRunInterrupted records an interrupt yield and closes the root span.
// An interrupt is a pause, not a failure, so the span status stays OK.
func (runner *graphRunner) observeRunInterrupted(ctx context.Context, info *InterruptInfo, totalDuration time.Duration) {
	if runner.observer.provider == nil {
		return
	}

	runner.observer.provider.Counter(metricGraphInterruptCount).Add(ctx, 1,
		observability.String(observability.AttrGraphName, runner.compiled.name),
	)

	runner.observer.provider.Info(ctx, "graph run interrupted",
		observability.String(observability.AttrGraphName, runner.compiled.name),
		observability.String(observability.AttrCheckpointID, info.CheckpointID),
		observability.StringSlice(observability.AttrInterruptBefore, info.BeforeNodes),
		observability.StringSlice(observability.AttrInterruptAfter, info.AfterNodes),
		observability.Duration(observability.AttrDuration, totalDuration),
	)

	if runner.observer.rootSpan != nil {
		runner.observer.rootSpan.SetAttributes(
			observability.String(observability.AttrCheckpointID, info.CheckpointID),
		)
		runner.observer.rootSpan.SetStatus(observability.StatusOK, "graph run interrupted")
		runner.observer.rootSpan.End()
	}
}

// observeNodeStart creates a child span for a node dispatch and logs the
// start event. The span is attached to the returned context and closed by
// observeNodeCompleted or observeNodeFailed.
func (runner *graphRunner) observeNodeStart(ctx *context.Context, info *NodeInfo) {
	if runner.observer.provider == nil {
		return
	}

	var nodeSpan observability.Span
	*ctx, nodeSpan = runner.observer.provider.StartSpan(*ctx, spanGraphNodeExecute,
		observability.String(observability.AttrNodeName, info.Name),
		observability.String(observability.AttrNodeTrigger, string(info.Trigger)),
		observability.Int("node.dispatch", info.Dispatch),
	)

	*ctx = observability.ContextWithSpan(*ctx, nodeSpan)

	runner.observer.provider.Debug(*ctx, "node execution started",
		observability.String(observability.AttrNodeName, info.Name),
		observability.String(observability.AttrNodeTrigger, string(info.Trigger)),
	)
}

// observeNodeCompleted records a successful node dispatch and closes its span.
func (runner *graphRunner) observeNodeCompleted(ctx context.Context, name string, result *NodeResult, streaming bool) {
	if runner.observer.provider == nil {
		return
	}

	runner.observer.provider.Histogram(metricGraphNodeDuration).Record(ctx, result.Duration.Seconds(),
		observability.String(observability.AttrNodeName, name),
	)

	runner.observer.provider.Counter(metricGraphNodeCount).Add(ctx, 1,
		observability.String(observability.AttrNodeStatus, string(NodeCompleted)),
		observability.String(observability.AttrNodeName, name),
	)

	logAttrs := []observability.Attribute{
		observability.String(observability.AttrNodeName, name),
		observability.String(observability.AttrNodeStatus, string(NodeCompleted)),
		observability.Bool(observability.AttrNodeStreaming, streaming),
		observability.Duration(observability.AttrDuration, result.Duration),
	}

	// Include output preview if it's a string.
	if outputText, isString := result.Output.(string); isString {
		logAttrs = append(logAttrs,
			observability.String("node.output", utils.TruncateString(outputText, 100)),
		)
	}

	runner.observer.provider.Info(ctx, "node execution completed", logAttrs...)

	nodeSpan := observability.SpanFromContext(ctx)
	if nodeSpan != nil {
		nodeSpan.SetAttributes(
			observability.String(observability.AttrNodeStatus, string(NodeCompleted)),
			observability.Bool(observability.AttrNodeStreaming, streaming),
			observability.Duration(observability.AttrDuration, result.Duration),
		)
		nodeSpan.SetStatus(observability.StatusOK, "node completed")
		nodeSpan.End()
	}
}

// observeNodeFailed records a failed node dispatch and closes its span.
func (runner *graphRunner) observeNodeFailed(ctx context.Context, name string, nodeError error, duration time.Duration) {
	if runner.observer.provider == nil {
		return
	}

	runner.observer.provider.Histogram(metricGraphNodeDuration).Record(ctx, duration.Seconds(),
		observability.String(observability.AttrNodeName, name),
	)

	runner.observer.provider.Counter(metricGraphNodeCount).Add(ctx, 1,
		observability.String(observability.AttrNodeStatus, string(NodeFailed)),
		observability.String(observability.AttrNodeName, name),
	)

	runner.observer.provider.Error(ctx, "node execution failed",
		observability.String(observability.AttrNodeName, name),
		observability.Error(nodeError),
		observability.Duration(observability.AttrDuration, duration),
	)

	nodeSpan := observability.SpanFromContext(ctx)
	if nodeSpan != nil {
		nodeSpan.RecordError(nodeError)
		nodeSpan.SetAttributes(
			observability.String(observability.AttrNodeStatus, string(NodeFailed)),
			observability.Duration(observability.AttrDuration, duration),
		)
		nodeSpan.SetStatus(observability.StatusError, "node failed")
		nodeSpan.End()
	}
}

// observeNodeSkipped records that a node was skipped and why.
func (runner *graphRunner) observeNodeSkipped(ctx context.Context, name string, reason string) {
	if runner.observer.provider == nil {
		return
	}

	runner.observer.provider.Counter(metricGraphNodeCount).Add(ctx, 1,
		observability.String(observability.AttrNodeStatus, string(NodeSkipped)),
		observability.String(observability.AttrNodeName, name),
	)

	runner.observer.provider.Info(ctx, "node skipped",
		observability.String(observability.AttrNodeName, name),
		observability.String("node.skip_reason", reason),
	)
}

// observeStreamEnd logs the terminal outcome of a node's output stream with
// the number of chunks that moved through it.
func (runner *graphRunner) observeStreamEnd(ctx context.Context, name string, chunks int) {
	if runner.observer.provider == nil {
		return
	}

	runner.observer.provider.Debug(ctx, "node stream ended",
		observability.String(observability.AttrNodeName, name),
		observability.Int(observability.AttrStreamChunks, chunks),
	)
}

// observeStepStart logs the beginning of a scheduling step and the nodes it
// dispatches.
func (runner *graphRunner) observeStepStart(ctx context.Context, dispatching []string) {
	if runner.observer.provider == nil {
		return
	}

	runner.observer.provider.Debug(ctx, "scheduling step started",
		observability.Int(observability.AttrRunStep, runner.run.stepCount),
		observability.Int("step.node_count", len(dispatching)),
		observability.String("step.nodes", strings.Join(dispatching, ",")),
	)
}

// observeCheckpointSaved logs a persisted interrupt snapshot.
func (runner *graphRunner) observeCheckpointSaved(ctx context.Context, checkpointID string, size int) {
	if runner.observer.provider == nil {
		return
	}

	runner.observer.provider.Info(ctx, "checkpoint saved",
		observability.String(observability.AttrCheckpointID, checkpointID),
		observability.Int(observability.AttrCheckpointBytes, size),
	)
}
