package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/blueskygzhz/eino-cpp-sub002/core/stream"
	"github.com/blueskygzhz/eino-cpp-sub002/internal/channel"
)

// task is one node dispatch in flight. The scheduler assembles it, a worker
// goroutine fills in result or err, and the completion travels back to the
// scheduler over the task manager's channel.
type task struct {
	// node is the dispatched node's definition.
	node *node

	// info identifies the dispatch to callbacks and observability.
	info *NodeInfo

	// input is the assembled node input.
	input *NodeInput

	// result holds the node's output on success.
	result *NodeResult

	// err holds the failure cause, nil on success.
	err error

	// streaming records whether the output was produced as a stream.
	streaming bool
}

// taskManager tracks in-flight node executions and funnels their completions
// back to the scheduler goroutine, which is the only writer of run state.
type taskManager struct {
	// completions carries finished tasks back to the scheduler. The
	// cancellation watchdog closes it to unblock a collect in progress.
	completions *channel.Chan[*task]

	// semaphore bounds parallel node executions when maxConcurrency is set.
	semaphore chan struct{}

	// running counts tasks launched but not yet collected.
	running int
}

// newTaskManager creates a task manager with an optional concurrency bound.
func newTaskManager(maxConcurrency int) *taskManager {
	manager := &taskManager{completions: channel.New[*task]()}
	if maxConcurrency > 0 {
		manager.semaphore = make(chan struct{}, maxConcurrency)
	}
	return manager
}

// launch starts one task in its own goroutine.
func (manager *taskManager) launch(ctx context.Context, runner *graphRunner, pending *task) {
	manager.running++
	go runner.executeTask(ctx, pending)
}

// collect blocks until every launched task of the current step has reported,
// or until the first failure, whichever comes first. A closed completions
// channel means the run was canceled.
func (manager *taskManager) collect(ctx context.Context) ([]*task, error) {
	batch := make([]*task, 0, manager.running)
	for manager.running > 0 {
		completed, ok := manager.completions.Receive()
		if !ok {
			if err := ctx.Err(); err != nil {
				return batch, err
			}
			return batch, fmt.Errorf("run canceled: completion channel closed")
		}
		manager.running--
		batch = append(batch, completed)
		if completed.err != nil {
			// Fail fast: the scheduler aborts the run; stragglers are
			// released by the run context cancellation.
			return batch, nil
		}
	}
	return batch, nil
}

// executeTask runs one node dispatch end to end: concurrency gating, input
// materialization, pre-handler, executor, post-handler, observability, and
// callbacks. It always reports a completion, even on failure.
func (runner *graphRunner) executeTask(ctx context.Context, executedTask *task) {
	defer func() {
		// Best-effort: the channel closes only when the run is torn down.
		_ = runner.manager.completions.Send(executedTask) //nolint:errcheck
	}()

	if runner.manager.semaphore != nil {
		select {
		case runner.manager.semaphore <- struct{}{}:
			defer func() { <-runner.manager.semaphore }()
		case <-ctx.Done():
			executedTask.err = ctx.Err()
			return
		}
	}
	if err := ctx.Err(); err != nil {
		executedTask.err = err
		return
	}

	dispatchedNode := executedTask.node
	nodeContext := ctx
	runner.observeNodeStart(&nodeContext, executedTask.info)

	if dispatchedNode.timeout > 0 {
		var cancel context.CancelFunc
		nodeContext, cancel = context.WithTimeout(nodeContext, dispatchedNode.timeout)
		defer cancel()
	}

	nodeStart := time.Now()

	// Collapse stream-valued fields into plain values for nodes that did not
	// opt into raw streams. This is where a slow producer is waited out, off
	// the scheduler goroutine.
	if !dispatchedNode.streamInput {
		if err := materializeFields(executedTask.input.Fields); err != nil {
			runner.failTask(nodeContext, executedTask, time.Since(nodeStart),
				fmt.Errorf("assemble input: %w", err))
			return
		}
	}

	if dispatchedNode.preHandler != nil {
		if err := dispatchedNode.preHandler(nodeContext, runner.run.state, executedTask.input); err != nil {
			runner.failTask(nodeContext, executedTask, time.Since(nodeStart),
				fmt.Errorf("pre-handler: %w", err))
			return
		}
	}

	runner.callbacks.nodeStart(nodeContext, executedTask.info, executedTask.input)

	result, err := runner.runExecutor(nodeContext, executedTask)
	executionDuration := time.Since(nodeStart)
	if err != nil {
		runner.failTask(nodeContext, executedTask, executionDuration, err)
		return
	}

	if result == nil {
		result = &NodeResult{}
	}
	result.Duration = executionDuration

	if consumer, isStream := result.Output.(*stream.Consumer[any]); isStream {
		executedTask.streaming = true
		runner.callbacks.nodeStreamStart(nodeContext, executedTask.info)
		result.Output = runner.monitorStream(nodeContext, executedTask.info, consumer)
	}

	if dispatchedNode.postHandler != nil {
		if err := dispatchedNode.postHandler(nodeContext, runner.run.state, result); err != nil {
			runner.failTask(nodeContext, executedTask, executionDuration,
				fmt.Errorf("post-handler: %w", err))
			return
		}
	}

	executedTask.result = result
	runner.observeNodeCompleted(nodeContext, dispatchedNode.name, result, executedTask.streaming)
	runner.callbacks.nodeEnd(nodeContext, executedTask.info, result)
}

// runExecutor invokes the node's executor, preferring the streaming entry
// point when the executor provides one.
func (runner *graphRunner) runExecutor(ctx context.Context, executedTask *task) (*NodeResult, error) {
	if streamExecutor, isStreaming := executedTask.node.executor.(StreamNodeExecutor); isStreaming {
		consumer, err := streamExecutor.ExecuteStream(ctx, executedTask.input)
		if err != nil {
			return nil, err
		}
		return &NodeResult{Output: consumer}, nil
	}
	return executedTask.node.executor.Execute(ctx, executedTask.input)
}

// failTask records a task failure in observability and callbacks and marks
// the task failed for the scheduler.
func (runner *graphRunner) failTask(ctx context.Context, executedTask *task, duration time.Duration, err error) {
	executedTask.err = err
	runner.observeNodeFailed(ctx, executedTask.node.name, err, duration)
	runner.callbacks.nodeError(ctx, executedTask.info, err)
}

// materializeFields replaces stream-valued fields with their concatenated
// values, in place. An empty stream becomes a nil value, not an error.
func materializeFields(fields map[string]any) error {
	for name, value := range fields {
		consumer, isStream := value.(*stream.Consumer[any])
		if !isStream {
			continue
		}
		merged, err := stream.ConcatAny(consumer)
		if err != nil {
			return err
		}
		fields[name] = merged
	}
	return nil
}
