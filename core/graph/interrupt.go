package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/blueskygzhz/eino-cpp-sub002/core/stream"
)

// checkpointVersion guards the snapshot wire format. Bump it when the shape
// below changes incompatibly.
const checkpointVersion = 1

// checkpointData is the JSON form of a yielded run. Stream values are
// concatenated to plain values before serialization, so a snapshot is always
// self-contained bytes. Typed values come back from JSON as maps and
// numbers; executors that care should decode through the parse package.
type checkpointData struct {
	Version        int                         `json:"version"`
	Graph          string                      `json:"graph"`
	Step           int                         `json:"step"`
	Statuses       map[string]NodeStatus       `json:"statuses"`
	Pending        map[string]map[string]any   `json:"pending,omitempty"`
	QueuedInputs   map[string][]map[string]any `json:"queued_inputs,omitempty"`
	FinishedPreds  map[string][]string         `json:"finished_preds,omitempty"`
	CompletedPreds map[string][]string         `json:"completed_preds,omitempty"`
	Outputs        map[string]any              `json:"outputs,omitempty"`
	State          map[string]any              `json:"state,omitempty"`
	InterruptFired []string                    `json:"interrupt_fired,omitempty"`
	BeforeNodes    []string                    `json:"before_nodes,omitempty"`
	AfterNodes     []string                    `json:"after_nodes,omitempty"`
}

// yieldInterrupt stops the run at a superstep boundary: after nodes are
// marked Interrupted, the run state is checkpointed when a store and id are
// configured, and an InterruptError describing the pause is returned.
func (runner *graphRunner) yieldInterrupt(ctx context.Context, before, after []string) error {
	for _, name := range after {
		runner.run.statuses[name] = NodeInterrupted
	}

	info := &InterruptInfo{BeforeNodes: before, AfterNodes: after}

	if runner.store != nil && runner.checkpointID != "" {
		data, err := runner.snapshot(before, after)
		if err != nil {
			return fmt.Errorf("snapshot for checkpoint %q: %w", runner.checkpointID, err)
		}
		if err := runner.store.Set(ctx, runner.checkpointID, data); err != nil {
			return fmt.Errorf("store checkpoint %q: %w", runner.checkpointID, err)
		}
		info.CheckpointID = runner.checkpointID
		runner.observeCheckpointSaved(ctx, runner.checkpointID, len(data))
	}

	return &InterruptError{Info: info}
}

// snapshot serializes the run state to JSON. Because interrupts land between
// steps, no node is mid-execution here; the only live values are pending
// stream deliveries and recorded stream outputs, which are concatenated
// first.
func (runner *graphRunner) snapshot(before, after []string) ([]byte, error) {
	run := runner.run

	for name, fields := range run.pending {
		if err := materializeFields(fields); err != nil {
			return nil, fmt.Errorf("pending input of node %q: %w", name, err)
		}
	}
	for name, queue := range run.queued {
		for _, fields := range queue {
			if err := materializeFields(fields); err != nil {
				return nil, fmt.Errorf("queued input of node %q: %w", name, err)
			}
		}
	}
	for name, value := range run.outputs {
		consumer, isStream := value.(*stream.Consumer[any])
		if !isStream {
			continue
		}
		merged, err := stream.ConcatAny(consumer)
		if err != nil {
			return nil, fmt.Errorf("output of node %q: %w", name, err)
		}
		run.outputs[name] = merged
	}

	data := &checkpointData{
		Version:        checkpointVersion,
		Graph:          runner.compiled.name,
		Step:           run.stepCount,
		Statuses:       run.statuses,
		Pending:        run.pending,
		QueuedInputs:   run.queued,
		FinishedPreds:  make(map[string][]string, len(run.finishedPreds)),
		CompletedPreds: make(map[string][]string, len(run.completedPreds)),
		Outputs:        run.outputs,
		State:          run.state.Snapshot(),
		InterruptFired: sortedMembers(run.interruptFired),
		BeforeNodes:    before,
		AfterNodes:     after,
	}
	for name, set := range run.finishedPreds {
		data.FinishedPreds[name] = sortedMembers(set)
	}
	for name, set := range run.completedPreds {
		data.CompletedPreds[name] = sortedMembers(set)
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("checkpoint state is not JSON-serializable: %w", err)
	}
	return encoded, nil
}

// Resume loads the checkpoint saved by an interrupted run and continues it.
// Completed nodes are not re-executed; nodes the interrupt held back become
// runnable again without re-firing their interrupt point. resumeInputs
// merges extra fields into nodes' pending inputs before the first resumed
// step, keyed node name to field name; pass nil when nothing is injected.
//
// Values restored from a checkpoint have been through JSON, so typed outputs
// come back as maps and float64s; decode them with OutputAs or the parse
// package.
//
// Example:
//
//	result, err := compiled.Invoke(ctx, input,
//	    graph.WithCheckpointID("run-42"))
//	if info, interrupted := graph.ExtractInterrupt(err); interrupted {
//	    approval := collectApproval(info.BeforeNodes)
//	    result, err = compiled.Resume(ctx, info.CheckpointID,
//	        map[string]map[string]any{"review": {"approved": approval}})
//	}
func (compiled *CompiledGraph) Resume(ctx context.Context, checkpointID string, resumeInputs map[string]map[string]any, opts ...RunOption) (*RunResult, error) {
	store := compiled.config.checkpointStore
	if store == nil {
		return nil, fmt.Errorf("resume requires a checkpoint store; configure one with WithCheckpointStore")
	}

	encoded, found, err := store.Get(ctx, checkpointID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %q: %w", checkpointID, err)
	}
	if !found {
		return nil, &CheckpointNotFoundError{ID: checkpointID}
	}

	var data checkpointData
	if err := json.Unmarshal(encoded, &data); err != nil {
		return nil, fmt.Errorf("decode checkpoint %q: %w", checkpointID, err)
	}
	if data.Version != checkpointVersion {
		return nil, fmt.Errorf("checkpoint %q has version %d, this engine writes version %d", checkpointID, data.Version, checkpointVersion)
	}
	if data.Graph != compiled.name {
		return nil, fmt.Errorf("checkpoint %q belongs to graph %q, not %q", checkpointID, data.Graph, compiled.name)
	}

	runner := compiled.newRunner(opts)
	if runner.checkpointID == "" {
		// A second interrupt on the resumed run saves under the same id.
		runner.checkpointID = checkpointID
	}
	runner.resumed = true

	if err := runner.restore(&data); err != nil {
		return nil, fmt.Errorf("restore checkpoint %q: %w", checkpointID, err)
	}
	if err := runner.mergeResumeInputs(resumeInputs); err != nil {
		return nil, err
	}

	result, err := runner.execute(ctx, nil)
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

// restore rebuilds the run state from a decoded snapshot. Interrupted nodes
// flip to Completed: their outputs were already routed before the yield, so
// from the resumed run's point of view they simply finished.
func (runner *graphRunner) restore(data *checkpointData) error {
	run := runner.run

	for name, status := range data.Statuses {
		if _, exists := runner.compiled.nodes[name]; !exists {
			return fmt.Errorf("snapshot references unknown node %q; the graph definition changed", name)
		}
		if status == NodeInterrupted {
			status = NodeCompleted
		}
		run.statuses[name] = status
	}

	run.stepCount = data.Step
	for name, fields := range data.Pending {
		run.pending[name] = fields
	}
	for name, queue := range data.QueuedInputs {
		run.queued[name] = queue
		// An OnInput node yielded with deliveries still queued re-arms so
		// the first resumed scan dispatches it.
		if target, exists := runner.compiled.nodes[name]; exists &&
			target.trigger == TriggerOnInput && run.statuses[name] == NodeCompleted && len(queue) > 0 {
			run.statuses[name] = NodeWaiting
		}
	}
	for name, preds := range data.FinishedPreds {
		for _, pred := range preds {
			run.recordFinished(name, pred, false)
		}
	}
	for name, preds := range data.CompletedPreds {
		for _, pred := range preds {
			run.recordFinished(name, pred, true)
		}
	}
	for name, value := range data.Outputs {
		run.outputs[name] = value
	}
	for _, name := range data.InterruptFired {
		run.interruptFired[name] = true
	}
	run.state = newState(data.State)

	return nil
}

// mergeResumeInputs injects caller-provided fields into nodes' pending
// inputs, mirroring edge delivery: OnInput targets queue one combined
// delivery and re-arm if already completed, other targets merge per field.
func (runner *graphRunner) mergeResumeInputs(resumeInputs map[string]map[string]any) error {
	if len(resumeInputs) == 0 {
		return nil
	}

	names := make([]string, 0, len(resumeInputs))
	for name := range resumeInputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target, exists := runner.compiled.nodes[name]
		if !exists {
			return fmt.Errorf("resume input targets unknown node %q", name)
		}

		fields := resumeInputs[name]
		if target.trigger == TriggerOnInput {
			queued := make(map[string]any, len(fields))
			for key, value := range fields {
				queued[key] = value
			}
			runner.run.queued[name] = append(runner.run.queued[name], queued)
			if runner.run.statuses[name] == NodeCompleted {
				runner.run.statuses[name] = NodeWaiting
			}
			continue
		}

		for key, value := range fields {
			runner.run.mergeDelivery(name, key, value)
		}
	}
	return nil
}

// sortedMembers returns the set's members in sorted order, for stable
// serialization.
func sortedMembers(set map[string]bool) []string {
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	sort.Strings(members)
	return members
}
