package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/blueskygzhz/eino-cpp-sub002/core/parse"
	"github.com/blueskygzhz/eino-cpp-sub002/core/stream"
	"github.com/blueskygzhz/eino-cpp-sub002/providers/checkpoint"
)

// RunResult is the outcome of a completed run.
type RunResult struct {
	// Output is the output node's result. For Invoke, stream outputs are
	// concatenated into a plain value; nil when the output node was skipped.
	Output any

	// NodeOutputs maps every completed node to its output.
	NodeOutputs map[string]any

	// Statuses maps every node to its final lifecycle status.
	Statuses map[string]NodeStatus

	// Steps is the total number of node dispatches the run performed.
	Steps int
}

// OutputAs extracts the run output as a concrete type. Direct values are
// asserted; strings holding JSON and map-shaped values are decoded through
// the parse package, which also repairs slightly malformed JSON.
//
// Example:
//
//	type Verdict struct {
//	    Approved bool   `json:"approved"`
//	    Reason   string `json:"reason"`
//	}
//
//	result, _ := compiled.Invoke(ctx, input)
//	verdict, err := graph.OutputAs[Verdict](result)
func OutputAs[T any](result *RunResult) (T, error) {
	return parse.ValueAs[T](result.Output)
}

// Compile-time check that a compiled graph can serve as a node of an outer
// graph.
var _ NodeExecutor = (*CompiledGraph)(nil)

// Invoke runs the graph to completion and returns the final result. The
// input value is delivered to every entry node as its entire input. If the
// output node produced a stream, Invoke concatenates it into a plain value;
// use Stream to receive it chunk by chunk instead.
//
// Invoke is safe to call concurrently: each call owns an isolated run.
func (compiled *CompiledGraph) Invoke(ctx context.Context, input any, opts ...RunOption) (*RunResult, error) {
	runner := compiled.newRunner(opts)
	runner.seedEntries(input)

	result, err := runner.execute(ctx, input)
	if err != nil {
		return nil, err
	}

	if consumer, isStream := result.Output.(*stream.Consumer[any]); isStream {
		merged, concatErr := stream.ConcatAny(consumer)
		if concatErr != nil {
			return nil, &NodeError{Node: compiled.outputNode, Err: concatErr, Partial: result.NodeOutputs}
		}
		result.Output = merged
		result.NodeOutputs[compiled.outputNode] = merged
	}
	return result, nil
}

// Stream runs the graph to completion and returns the output node's result
// as a stream. A streaming output passes through live; a plain value arrives
// as a single chunk. The caller owns the returned consumer and should drain
// or close it.
func (compiled *CompiledGraph) Stream(ctx context.Context, input any, opts ...RunOption) (*stream.Consumer[any], error) {
	runner := compiled.newRunner(opts)
	runner.seedEntries(input)

	result, err := runner.execute(ctx, input)
	if err != nil {
		return nil, err
	}
	return outputAsStream(result.Output), nil
}

// Execute lets a compiled graph act as a node of an outer graph: the node
// input's primary value becomes the run input, and the run output becomes
// the node output. Interrupts inside a nested graph surface to the outer run
// as node failures; nested graphs should resume through their own Resume.
func (compiled *CompiledGraph) Execute(ctx context.Context, input *NodeInput) (*NodeResult, error) {
	result, err := compiled.Invoke(ctx, input.Value())
	if err != nil {
		return nil, err
	}
	return &NodeResult{Output: result.Output}, nil
}

// graphRunner drives one run. The scheduling loop below is its only writer
// of run state; node executions report back over the task manager's channel.
type graphRunner struct {
	compiled *CompiledGraph
	run      *runContext
	manager  *taskManager

	callbacks *callbackSet
	observer  observerState

	// store and checkpointID configure interrupt persistence for this run.
	store        checkpoint.Store
	checkpointID string

	// stepLimit is the effective dispatch bound, after per-run override.
	stepLimit int

	// resumed marks runs reconstructed from a checkpoint.
	resumed bool

	// openStreams tracks live stream consumers so a failed or canceled run
	// can release blocked readers. Appended from scheduler and task
	// goroutines, hence the lock.
	streamsMu   sync.Mutex
	openStreams []*stream.Consumer[any]
}

// newRunner builds the per-run state for one execution.
func (compiled *CompiledGraph) newRunner(opts []RunOption) *graphRunner {
	config := &runConfig{}
	for _, opt := range opts {
		opt(config)
	}

	stepLimit := compiled.config.maxSteps
	if config.stepLimit > 0 {
		stepLimit = config.stepLimit
	}

	composed := make([]*Callbacks, 0, len(compiled.config.callbacks)+len(config.callbacks))
	composed = append(composed, compiled.config.callbacks...)
	composed = append(composed, config.callbacks...)

	return &graphRunner{
		compiled:     compiled,
		run:          newRunContext(compiled),
		manager:      newTaskManager(compiled.config.maxConcurrency),
		callbacks:    &callbackSet{callbacks: composed},
		store:        compiled.config.checkpointStore,
		checkpointID: config.checkpointID,
		stepLimit:    stepLimit,
	}
}

// seedEntries delivers the run input to every entry node as its entire
// input. The readiness scan arms them on the first step.
func (runner *graphRunner) seedEntries(input any) {
	for _, name := range runner.compiled.entries {
		if runner.compiled.nodes[name].trigger == TriggerOnInput {
			runner.run.queued[name] = append(runner.run.queued[name],
				map[string]any{entireInputKey: input})
			continue
		}
		runner.run.mergeDelivery(name, entireInputKey, input)
	}
}

// execute drives the scheduling loop: scan for ready nodes, dispatch them as
// one step, collect every completion, route outputs, repeat. It returns when
// all reachable nodes are terminal, a failure or limit aborts the run, or an
// interrupt point yields.
func (runner *graphRunner) execute(ctx context.Context, input any) (result *RunResult, err error) {
	runStart := time.Now()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	if timeout := runner.compiled.config.executionTimeout; timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		defer cancelTimeout()
	}

	runner.observeRunStart(&runCtx, input)
	runner.callbacks.logger = runner.observer.provider
	runner.callbacks.graphStart(runCtx, runner.compiled.name, input)

	// The watchdog unblocks the scheduler's collect and any blocked stream
	// readers when the run context is canceled.
	watchdogDone := make(chan struct{})
	go func() {
		select {
		case <-runCtx.Done():
			runner.manager.completions.Close()
			runner.closeOpenStreams()
		case <-watchdogDone:
		}
	}()
	defer close(watchdogDone)

	defer func() {
		totalDuration := time.Since(runStart)
		switch {
		case err == nil:
			runner.observeRunCompleted(runCtx, result, totalDuration)
			runner.callbacks.graphEnd(runCtx, runner.compiled.name, result)
		default:
			// An abandoned run releases every live stream, so producers and
			// any straggler readers unblock. Successful runs keep the output
			// stream open for the caller.
			runner.closeOpenStreams()
			if info, interrupted := ExtractInterrupt(err); interrupted {
				runner.observeRunInterrupted(runCtx, info, totalDuration)
			} else {
				runner.observeRunFailed(runCtx, err, totalDuration)
			}
			runner.callbacks.graphError(runCtx, runner.compiled.name, err)
		}
	}()

	for {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		ready := runner.collectReady(runCtx)

		if blocked := runner.interruptBeforeNodes(ready); len(blocked) > 0 {
			return nil, runner.yieldInterrupt(runCtx, blocked, nil)
		}

		if len(ready) == 0 {
			if runner.allTerminal() {
				break
			}
			return nil, runner.deadlockError()
		}

		if runner.stepLimit > 0 && runner.run.stepCount+len(ready) > runner.stepLimit {
			return nil, &StepLimitError{Limit: runner.stepLimit}
		}

		runner.observeStepStart(runCtx, ready)
		for _, name := range ready {
			launched := runner.buildTask(name)
			runner.run.statuses[name] = NodeRunning
			runner.manager.launch(runCtx, runner, launched)
		}

		batch, collectErr := runner.manager.collect(runCtx)
		if collectErr != nil {
			return nil, collectErr
		}

		if failed := firstFailure(batch); failed != nil {
			runner.recordBatchSuccesses(batch)
			runner.run.statuses[failed.node.name] = NodeFailed
			cancelRun()
			return nil, &NodeError{
				Node:    failed.node.name,
				Err:     failed.err,
				Partial: runner.materializePartials(),
			}
		}

		interruptAfter, routeErr := runner.routeBatch(runCtx, batch)
		if routeErr != nil {
			cancelRun()
			if nodeErr, isNode := routeErr.(*NodeError); isNode && nodeErr.Partial == nil {
				nodeErr.Partial = runner.materializePartials()
			}
			return nil, routeErr
		}

		if len(interruptAfter) > 0 {
			return nil, runner.yieldInterrupt(runCtx, nil, interruptAfter)
		}
	}

	return runner.finalize()
}

// collectReady returns the names of all ready nodes in topological order.
// Skip propagation settles only when nothing is ready: while a loop region
// is still live, its exit candidates must stay Waiting, because a later
// iteration may still select them.
func (runner *graphRunner) collectReady(ctx context.Context) []string {
	for {
		if ready := runner.markReady(); len(ready) > 0 {
			return ready
		}
		if !runner.settleSkips(ctx) {
			return nil
		}
	}
}

// markReady flags every Waiting node whose trigger condition is satisfied
// and returns the ready set in topological order, including nodes that were
// already Ready (restored checkpoints re-enter here).
func (runner *graphRunner) markReady() []string {
	run := runner.run
	compiled := runner.compiled

	ready := make([]string, 0)
	for _, name := range compiled.topologicalOrder {
		if run.statuses[name] == NodeReady {
			ready = append(ready, name)
			continue
		}
		if run.statuses[name] != NodeWaiting {
			continue
		}

		eligible := false
		switch compiled.nodes[name].trigger {
		case TriggerAllPredecessors:
			finished, anyCompleted := run.allPredsFinished(compiled, name)
			eligible = finished && (len(compiled.preds[name]) == 0 || anyCompleted)
		case TriggerAnyPredecessor:
			eligible = len(run.pending[name]) > 0 || len(run.completedPreds[name]) > 0
		case TriggerOnInput:
			eligible = len(run.queued[name]) > 0
		}

		if eligible {
			run.statuses[name] = NodeReady
			ready = append(ready, name)
		}
	}
	return ready
}

// settleSkips marks Waiting nodes that can no longer run as Skipped and
// cascades the decision through their successors. Returns whether any node
// settled; the scan repeats until stable because one node's skip can
// unblock or skip the next.
func (runner *graphRunner) settleSkips(ctx context.Context) bool {
	run := runner.run
	compiled := runner.compiled

	settled := false
	changed := true
	for changed {
		changed = false
		for _, name := range compiled.topologicalOrder {
			if run.statuses[name] != NodeWaiting {
				continue
			}
			finished, anyCompleted := run.allPredsFinished(compiled, name)
			if !finished || len(compiled.preds[name]) == 0 {
				continue
			}

			switch compiled.nodes[name].trigger {
			case TriggerAllPredecessors, TriggerAnyPredecessor:
				if !anyCompleted {
					runner.skipNode(ctx, name, "all predecessors skipped")
					settled = true
					changed = true
				}
			case TriggerOnInput:
				if run.dispatches[name] == 0 {
					runner.skipNode(ctx, name, "no input delivered")
					settled = true
					changed = true
				}
			}
		}
	}
	return settled
}

// skipNode marks a node skipped and reports the skip to its successors so
// the decision cascades.
func (runner *graphRunner) skipNode(ctx context.Context, name, reason string) {
	runner.run.statuses[name] = NodeSkipped
	runner.observeNodeSkipped(ctx, name, reason)

	for _, outEdge := range runner.compiled.outgoing[name] {
		if outEdge.loop {
			continue
		}
		runner.run.recordFinished(outEdge.to, name, false)
	}
}

// buildTask assembles the input for one dispatch of a ready node. OnInput
// nodes consume one queued delivery; other modes take their accumulated
// pending fields.
func (runner *graphRunner) buildTask(name string) *task {
	dispatchedNode := runner.compiled.nodes[name]

	var fields map[string]any
	if dispatchedNode.trigger == TriggerOnInput {
		queue := runner.run.queued[name]
		fields = queue[0]
		if len(queue) == 1 {
			delete(runner.run.queued, name)
		} else {
			runner.run.queued[name] = queue[1:]
		}
	} else {
		fields = runner.run.takePending(name)
	}

	runner.run.dispatches[name]++
	runner.run.stepCount++

	info := &NodeInfo{
		Name:     name,
		Trigger:  dispatchedNode.trigger,
		Dispatch: runner.run.dispatches[name],
		Metadata: dispatchedNode.metadata,
	}
	input := &NodeInput{
		Fields:   fields,
		State:    runner.run.state,
		Metadata: dispatchedNode.metadata,
	}
	return &task{node: dispatchedNode, info: info, input: input}
}

// firstFailure returns the first failed task of a batch, or nil.
func firstFailure(batch []*task) *task {
	for _, completed := range batch {
		if completed.err != nil {
			return completed
		}
	}
	return nil
}

// recordBatchSuccesses marks the successful tasks of a partially failed
// batch completed, so their outputs are preserved as partial results.
func (runner *graphRunner) recordBatchSuccesses(batch []*task) {
	for _, completed := range batch {
		if completed.err != nil {
			continue
		}
		runner.run.statuses[completed.node.name] = NodeCompleted
		runner.run.outputs[completed.node.name] = completed.result.Output
	}
}

// fieldDelivery is one projected field heading to one target, kept in
// mapping order so repeated writes resolve deterministically.
type fieldDelivery struct {
	key   string
	value any
}

// edgeDelivery is the projected payload of one data edge for one completed
// node.
type edgeDelivery struct {
	via    *edge
	fields []fieldDelivery
}

// routeBatch applies a step's completions to the run state: statuses,
// recorded outputs, branch selection, skip reports, and data deliveries.
// Deliveries across the whole batch are applied in edge declaration order,
// which makes same-step writes to one field resolve deterministically in
// favor of the later-declared edge. It returns the nodes whose
// interrupt-after points fired.
func (runner *graphRunner) routeBatch(ctx context.Context, batch []*task) ([]string, error) {
	run := runner.run
	compiled := runner.compiled

	var interruptAfter []string
	deliveries := make([]*edgeDelivery, 0)

	for _, completed := range batch {
		name := completed.node.name
		if completed.node.trigger == TriggerOnInput && len(run.queued[name]) > 0 {
			// More queued deliveries: the node goes back to Waiting so the
			// next scan dispatches it again.
			run.statuses[name] = NodeWaiting
		} else {
			run.statuses[name] = NodeCompleted
		}
		run.outputs[name] = completed.result.Output

		nodeDeliveries, err := runner.routeNode(ctx, completed)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, nodeDeliveries...)

		if compiled.interruptAfter[name] && !run.interruptFired[name] {
			run.interruptFired[name] = true
			interruptAfter = append(interruptAfter, name)
		}
	}

	sort.SliceStable(deliveries, func(indexA, indexB int) bool {
		return deliveries[indexA].via.index < deliveries[indexB].via.index
	})

	for _, delivery := range deliveries {
		runner.applyDelivery(delivery)
	}

	return interruptAfter, nil
}

// routeNode evaluates one completed node's branches and projects its output
// along its outgoing edges. Stream outputs are fanned out with shared replay
// copies so each consumer reads independently.
func (runner *graphRunner) routeNode(ctx context.Context, completed *task) ([]*edgeDelivery, error) {
	run := runner.run
	compiled := runner.compiled
	name := completed.node.name
	output := completed.result.Output

	outEdges := compiled.outgoing[name]
	dataEdges := make([]*edge, 0, len(outEdges))
	for _, outEdge := range outEdges {
		if outEdge.data {
			dataEdges = append(dataEdges, outEdge)
		}
	}

	// Fan a stream output into one copy per possible consumer: every data
	// edge, the recorded output, and one merged copy for branch selectors.
	branches := compiled.branches[name]
	streamOutput, isStream := output.(*stream.Consumer[any])
	edgeStreams := make(map[*edge]*stream.Consumer[any])
	branchValue := output
	if isStream {
		copiesNeeded := len(dataEdges) + 1
		if len(branches) > 0 {
			copiesNeeded++
		}
		copies := streamOutput.Copy(copiesNeeded)
		for _, copied := range copies {
			runner.trackStream(copied)
		}
		run.outputs[name] = copies[0]
		for i, dataEdge := range dataEdges {
			edgeStreams[dataEdge] = copies[i+1]
		}
		if len(branches) > 0 {
			merged, err := stream.ConcatAny(copies[len(copies)-1])
			if err != nil {
				return nil, &NodeError{Node: name, Err: fmt.Errorf("branch selector input: %w", err)}
			}
			branchValue = merged
		}
	}

	selected, err := runner.selectBranches(ctx, name, branches, branchValue)
	if err != nil {
		return nil, err
	}

	deliveries := make([]*edgeDelivery, 0, len(dataEdges))
	for _, outEdge := range outEdges {
		if outEdge.branch != nil && !selected[outEdge.to] {
			// Unselected candidate: the source finished but chose another
			// path, so this edge reports a skip, not a completion.
			if !outEdge.loop {
				run.recordFinished(outEdge.to, name, false)
			}
			if copied, exists := edgeStreams[outEdge]; exists {
				copied.Close()
			}
			continue
		}

		if !outEdge.loop {
			run.recordFinished(outEdge.to, name, true)
		}

		if !outEdge.data {
			continue
		}

		edgeValue := output
		if isStream {
			edgeValue = edgeStreams[outEdge]
		}
		fields, projectErr := runner.projectEdge(outEdge, name, edgeValue)
		if projectErr != nil {
			return nil, &NodeError{Node: name, Err: projectErr}
		}
		deliveries = append(deliveries, &edgeDelivery{via: outEdge, fields: fields})
	}

	return deliveries, nil
}

// selectBranches runs every branch selector of a completed node and returns
// the union of selected candidates. Selecting a name that is not a declared
// candidate fails the run.
func (runner *graphRunner) selectBranches(ctx context.Context, name string, branches []*branch, branchValue any) (map[string]bool, error) {
	if len(branches) == 0 {
		return nil, nil
	}

	selected := make(map[string]bool)
	for _, evaluated := range branches {
		candidates := make(map[string]bool, len(evaluated.candidates))
		for _, candidate := range evaluated.candidates {
			candidates[candidate] = true
		}

		chosen, err := evaluated.selector(ctx, branchValue)
		if err != nil {
			return nil, &NodeError{Node: name, Err: fmt.Errorf("branch selector failed: %w", err)}
		}
		for _, choice := range chosen {
			if !candidates[choice] {
				return nil, &NodeError{Node: name, Err: fmt.Errorf("branch selector chose %q, not among candidates %v", choice, evaluated.candidates)}
			}
			selected[choice] = true
		}
	}
	return selected, nil
}

// projectEdge shapes one data edge's delivery. Without mappings the whole
// output travels under the source node's name; with mappings each entry
// projects or renames one field. Stream values project per chunk.
func (runner *graphRunner) projectEdge(outEdge *edge, sourceName string, value any) ([]fieldDelivery, error) {
	if len(outEdge.mappings) == 0 {
		return []fieldDelivery{{key: sourceName, value: value}}, nil
	}

	streamValue, isStream := value.(*stream.Consumer[any])

	// A stream feeding several mappings gets one copy per mapping, so every
	// projection reads the full sequence instead of competing for chunks.
	var mappingStreams []*stream.Consumer[any]
	if isStream && len(outEdge.mappings) > 1 {
		mappingStreams = streamValue.Copy(len(outEdge.mappings))
		for _, copied := range mappingStreams {
			runner.trackStream(copied)
		}
	}

	fields := make([]fieldDelivery, 0, len(outEdge.mappings))
	for i, mapping := range outEdge.mappings {
		projected := value
		switch {
		case isStream:
			mapped := streamValue
			if mappingStreams != nil {
				mapped = mappingStreams[i]
			}
			if mapping.From != "" {
				projected = projectStream(mapped, mapping.From)
			} else {
				projected = mapped
			}
		case mapping.From != "":
			extracted, err := extractField(value, mapping.From)
			if err != nil {
				return nil, fmt.Errorf("mapping %q to %q on edge to %q: %w", mapping.From, mapping.To, outEdge.to, err)
			}
			projected = extracted
		}
		fields = append(fields, fieldDelivery{key: mapping.To, value: projected})
	}

	return fields, nil
}

// applyDelivery merges one edge's projected fields into its target. OnInput
// targets queue the delivery for an individual dispatch; completed targets
// discard late deliveries unless the edge is a loop back-edge, which re-arms
// them.
func (runner *graphRunner) applyDelivery(delivery *edgeDelivery) {
	run := runner.run
	target := delivery.via.to
	targetNode := runner.compiled.nodes[target]

	if run.statuses[target] == NodeSkipped {
		// A skipped node stays skipped; only completed nodes re-arm.
		return
	}

	if targetNode.trigger == TriggerOnInput {
		fields := make(map[string]any, len(delivery.fields))
		for _, field := range delivery.fields {
			fields[field.key] = field.value
		}
		run.queued[target] = append(run.queued[target], fields)
		if run.statuses[target] == NodeCompleted {
			run.statuses[target] = NodeWaiting
		}
		return
	}

	if run.statuses[target] == NodeCompleted {
		if !delivery.via.loop {
			// Late delivery to a finished node: discarded.
			return
		}
		run.statuses[target] = NodeWaiting
	}

	for _, field := range delivery.fields {
		run.mergeDelivery(target, field.key, field.value)
	}
}

// interruptBeforeNodes returns the ready nodes gated by WithInterruptBefore
// whose interrupt has not fired yet, marking them fired. A non-empty result
// holds back the entire step.
func (runner *graphRunner) interruptBeforeNodes(ready []string) []string {
	blocked := make([]string, 0)
	for _, name := range ready {
		if runner.compiled.interruptBefore[name] && !runner.run.interruptFired[name] {
			runner.run.interruptFired[name] = true
			blocked = append(blocked, name)
		}
	}
	return blocked
}

// allTerminal reports whether every node reached a terminal status.
func (runner *graphRunner) allTerminal() bool {
	for _, name := range runner.compiled.nodeOrder {
		if !terminal(runner.run.statuses[name]) {
			return false
		}
	}
	return true
}

// deadlockError describes a stuck run: nothing is runnable, nothing is
// running, yet not every node finished.
func (runner *graphRunner) deadlockError() error {
	stuck := make([]string, 0)
	for _, name := range runner.compiled.nodeOrder {
		if !terminal(runner.run.statuses[name]) {
			stuck = append(stuck, name)
		}
	}
	return fmt.Errorf("graph deadlocked: no runnable nodes while %v have not finished", stuck)
}

// partialOutputs copies the outputs recorded so far.
func (runner *graphRunner) partialOutputs() map[string]any {
	outputs := make(map[string]any, len(runner.run.outputs))
	for name, value := range runner.run.outputs {
		outputs[name] = value
	}
	return outputs
}

// materializePartials copies the recorded outputs with stream values
// concatenated, best effort: a stream cut short by cancellation yields the
// chunks received before the cut, one that fails to concatenate is dropped.
func (runner *graphRunner) materializePartials() map[string]any {
	outputs := runner.partialOutputs()
	for name, value := range outputs {
		consumer, isStream := value.(*stream.Consumer[any])
		if !isStream {
			continue
		}
		merged, err := stream.ConcatAny(consumer)
		if err != nil {
			delete(outputs, name)
			continue
		}
		outputs[name] = merged
	}
	return outputs
}

// finalize shapes the RunResult. Stream outputs of non-output nodes are
// concatenated so NodeOutputs holds plain values; the output node's stream
// is left live for Stream callers.
func (runner *graphRunner) finalize() (*RunResult, error) {
	run := runner.run

	for name, value := range run.outputs {
		if name == runner.compiled.outputNode {
			continue
		}
		consumer, isStream := value.(*stream.Consumer[any])
		if !isStream {
			continue
		}
		merged, err := stream.ConcatAny(consumer)
		if err != nil {
			return nil, &NodeError{Node: name, Err: err, Partial: runner.materializePartials()}
		}
		run.outputs[name] = merged
	}

	statuses := make(map[string]NodeStatus, len(run.statuses))
	for name, status := range run.statuses {
		statuses[name] = status
	}

	return &RunResult{
		Output:      run.outputs[runner.compiled.outputNode],
		NodeOutputs: runner.partialOutputs(),
		Statuses:    statuses,
		Steps:       run.stepCount,
	}, nil
}
