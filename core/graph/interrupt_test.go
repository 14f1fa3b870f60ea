package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/blueskygzhz/eino-cpp-sub002/providers/checkpoint/inmemory"
)

// transformExecutor appends a deterministic suffix to its input, so a resumed
// run's output can be compared against an uninterrupted one.
func transformExecutor(suffix string) NodeExecutorFunc {
	return func(_ context.Context, input *NodeInput) (*NodeResult, error) {
		return &NodeResult{Output: fmt.Sprintf("%v|%s", input.Value(), suffix)}, nil
	}
}

// --- Interrupt Tests ---

func TestInvoke_InterruptAfterYieldsAtStepBoundary(testCase *testing.T) {
	var mu sync.Mutex
	var order []string
	store := inmemory.New()

	compiled := mustCompile(testCase, New("pausable",
		WithCheckpointStore(store),
		WithInterruptAfter("a")).
		AddNode("a", trackingExecutor(&order, &mu, "a", "a-out")).
		AddNode("b", trackingExecutor(&order, &mu, "b", "b-out")).
		AddNode("c", trackingExecutor(&order, &mu, "c", "c-out")).
		AddEdge("a", "b").
		AddEdge("b", "c"))

	_, err := compiled.Invoke(context.Background(), "go", WithCheckpointID("run-1"))
	if err == nil {
		testCase.Fatal("expected interrupt error, got nil")
	}

	info, interrupted := ExtractInterrupt(err)
	if !interrupted {
		testCase.Fatalf("expected an interrupt, got %v", err)
	}
	if info.CheckpointID != "run-1" {
		testCase.Errorf("expected checkpoint ID run-1, got %q", info.CheckpointID)
	}
	if len(info.AfterNodes) != 1 || info.AfterNodes[0] != "a" {
		testCase.Errorf("expected interrupt after [a], got %v", info.AfterNodes)
	}
	if store.Len() != 1 {
		testCase.Errorf("expected one stored checkpoint, got %d", store.Len())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 1 || order[0] != "a" {
		testCase.Errorf("expected only a to have run before the interrupt, got %v", order)
	}
}

func TestResume_AfterInterruptMatchesUninterruptedRun(testCase *testing.T) {
	store := inmemory.New()
	build := func(interrupt bool) *CompiledGraph {
		opts := []Option{}
		if interrupt {
			opts = append(opts, WithCheckpointStore(store), WithInterruptAfter("a"))
		}
		return mustCompile(testCase, New("pausable", opts...).
			AddNode("a", transformExecutor("a")).
			AddNode("b", transformExecutor("b")).
			AddNode("c", transformExecutor("c")).
			AddEdge("a", "b").
			AddEdge("b", "c"))
	}

	baseline, err := build(false).Invoke(context.Background(), "seed")
	if err != nil {
		testCase.Fatalf("unexpected baseline error: %v", err)
	}

	pausable := build(true)
	_, err = pausable.Invoke(context.Background(), "seed", WithCheckpointID("run-1"))
	if _, interrupted := ExtractInterrupt(err); !interrupted {
		testCase.Fatalf("expected an interrupt, got %v", err)
	}

	resumed, err := pausable.Resume(context.Background(), "run-1", nil)
	if err != nil {
		testCase.Fatalf("unexpected resume error: %v", err)
	}
	if resumed.Output != baseline.Output {
		testCase.Errorf("expected resumed output %v to match uninterrupted output %v",
			resumed.Output, baseline.Output)
	}
	if resumed.Output != "seed|a|b|c" {
		testCase.Errorf("expected the full pipeline applied exactly once, got %v", resumed.Output)
	}
	if resumed.Steps != 3 {
		testCase.Errorf("expected cumulative step count 3, got %d", resumed.Steps)
	}
	for _, name := range []string{"a", "b", "c"} {
		if resumed.Statuses[name] != NodeCompleted {
			testCase.Errorf("expected %q completed after resume, got %s", name, resumed.Statuses[name])
		}
	}
}

func TestInvoke_InterruptBeforeBlocksTheStep(testCase *testing.T) {
	var mu sync.Mutex
	var order []string
	store := inmemory.New()

	compiled := mustCompile(testCase, New("gated",
		WithCheckpointStore(store),
		WithInterruptBefore("b")).
		AddNode("a", trackingExecutor(&order, &mu, "a", "a-out")).
		AddNode("b", trackingExecutor(&order, &mu, "b", "b-out")).
		AddNode("c", trackingExecutor(&order, &mu, "c", "c-out")).
		AddEdge("a", "b").
		AddEdge("b", "c"))

	_, err := compiled.Invoke(context.Background(), "go", WithCheckpointID("run-1"))
	info, interrupted := ExtractInterrupt(err)
	if !interrupted {
		testCase.Fatalf("expected an interrupt, got %v", err)
	}
	if len(info.BeforeNodes) != 1 || info.BeforeNodes[0] != "b" {
		testCase.Errorf("expected interrupt before [b], got %v", info.BeforeNodes)
	}

	mu.Lock()
	ranBeforeResume := len(order)
	mu.Unlock()
	if ranBeforeResume != 1 {
		testCase.Fatalf("expected b held back, execution order %v", order)
	}

	resumed, err := compiled.Resume(context.Background(), "run-1", nil)
	if err != nil {
		testCase.Fatalf("unexpected resume error: %v", err)
	}
	if resumed.Output != "c-out" {
		testCase.Errorf("expected the run to finish through c, got %v", resumed.Output)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[1] != "b" || order[2] != "c" {
		testCase.Errorf("expected resume to run b then c exactly once, got %v", order)
	}
}

func TestResume_MergesResumeInputs(testCase *testing.T) {
	var mu sync.Mutex
	var captured []map[string]any
	store := inmemory.New()

	compiled := mustCompile(testCase, New("approval",
		WithCheckpointStore(store),
		WithInterruptBefore("approve")).
		AddNode("draft", successExecutor("the draft")).
		AddNode("approve", capturingExecutor(&captured, &mu, "approved")).
		AddEdge("draft", "approve"))

	_, err := compiled.Invoke(context.Background(), "go", WithCheckpointID("run-1"))
	if _, interrupted := ExtractInterrupt(err); !interrupted {
		testCase.Fatalf("expected an interrupt, got %v", err)
	}

	_, err = compiled.Resume(context.Background(), "run-1", map[string]map[string]any{
		"approve": {"decision": "yes"},
	})
	if err != nil {
		testCase.Fatalf("unexpected resume error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(captured) != 1 {
		testCase.Fatalf("expected one dispatch of approve, got %d", len(captured))
	}
	if captured[0]["draft"] != "the draft" {
		testCase.Errorf("expected the original delivery preserved, got %v", captured[0])
	}
	if captured[0]["decision"] != "yes" {
		testCase.Errorf("expected the resume input merged in, got %v", captured[0])
	}
}

func TestResume_UnknownResumeInputNode(testCase *testing.T) {
	store := inmemory.New()
	compiled := mustCompile(testCase, New("approval",
		WithCheckpointStore(store),
		WithInterruptAfter("a")).
		AddNode("a", successExecutor("a")).
		AddNode("b", successExecutor("b")).
		AddEdge("a", "b"))

	_, err := compiled.Invoke(context.Background(), "go", WithCheckpointID("run-1"))
	if _, interrupted := ExtractInterrupt(err); !interrupted {
		testCase.Fatalf("expected an interrupt, got %v", err)
	}

	_, err = compiled.Resume(context.Background(), "run-1", map[string]map[string]any{
		"ghost": {"x": 1},
	})
	if err == nil {
		testCase.Fatal("expected error for unknown resume input node, got nil")
	}
	if !strings.Contains(err.Error(), "unknown node") {
		testCase.Errorf("expected 'unknown node' in message, got: %v", err)
	}
}

func TestResume_MissingCheckpoint(testCase *testing.T) {
	store := inmemory.New()
	compiled := mustCompile(testCase, New("pausable", WithCheckpointStore(store)).
		AddNode("a", successExecutor("a")))

	_, err := compiled.Resume(context.Background(), "ghost", nil)
	if err == nil {
		testCase.Fatal("expected error for missing checkpoint, got nil")
	}
	var notFound *CheckpointNotFoundError
	if !errors.As(err, &notFound) {
		testCase.Fatalf("expected *CheckpointNotFoundError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), `checkpoint "ghost" not found`) {
		testCase.Errorf("unexpected message: %v", err)
	}
}

func TestResume_WithoutStore(testCase *testing.T) {
	compiled := mustCompile(testCase, New("plain").
		AddNode("a", successExecutor("a")))

	_, err := compiled.Resume(context.Background(), "any", nil)
	if err == nil {
		testCase.Fatal("expected error for resume without a store, got nil")
	}
	if !strings.Contains(err.Error(), "requires a checkpoint store") {
		testCase.Errorf("expected store requirement in message, got: %v", err)
	}
}

func TestResume_RejectsCheckpointFromOtherGraph(testCase *testing.T) {
	store := inmemory.New()
	writer := mustCompile(testCase, New("writer",
		WithCheckpointStore(store),
		WithInterruptAfter("a")).
		AddNode("a", successExecutor("a")).
		AddNode("b", successExecutor("b")).
		AddEdge("a", "b"))

	_, err := writer.Invoke(context.Background(), "go", WithCheckpointID("shared"))
	if _, interrupted := ExtractInterrupt(err); !interrupted {
		testCase.Fatalf("expected an interrupt, got %v", err)
	}

	reader := mustCompile(testCase, New("reader", WithCheckpointStore(store)).
		AddNode("a", successExecutor("a")))

	_, err = reader.Resume(context.Background(), "shared", nil)
	if err == nil {
		testCase.Fatal("expected error for foreign checkpoint, got nil")
	}
	if !strings.Contains(err.Error(), "belongs to graph") {
		testCase.Errorf("expected graph ownership check in message, got: %v", err)
	}
}

func TestInvoke_InterruptWithoutStoreYieldsUnpersisted(testCase *testing.T) {
	compiled := mustCompile(testCase, New("ephemeral", WithInterruptAfter("a")).
		AddNode("a", successExecutor("a")).
		AddNode("b", successExecutor("b")).
		AddEdge("a", "b"))

	_, err := compiled.Invoke(context.Background(), "go")
	info, interrupted := ExtractInterrupt(err)
	if !interrupted {
		testCase.Fatalf("expected an interrupt, got %v", err)
	}
	if info.CheckpointID != "" {
		testCase.Errorf("expected no checkpoint ID without a store, got %q", info.CheckpointID)
	}
}

func TestResume_OnInputQueueSurvivesCheckpoint(testCase *testing.T) {
	var mu sync.Mutex
	var captured []map[string]any
	store := inmemory.New()

	// Both sources complete in one step, so the sink holds a second queued
	// delivery when the interrupt fires after its first dispatch.
	compiled := mustCompile(testCase, New("queued",
		WithCheckpointStore(store),
		WithInterruptAfter("sink"),
		WithOutputNode("sink")).
		AddNode("a", successExecutor("first")).
		AddNode("b", successExecutor("second")).
		AddNode("sink", capturingExecutor(&captured, &mu, "done"), WithTriggerMode(TriggerOnInput)).
		AddEdge("a", "sink").
		AddEdge("b", "sink"))

	_, err := compiled.Invoke(context.Background(), "go", WithCheckpointID("run-1"))
	if _, interrupted := ExtractInterrupt(err); !interrupted {
		testCase.Fatalf("expected an interrupt, got %v", err)
	}

	mu.Lock()
	dispatchesBeforeResume := len(captured)
	mu.Unlock()
	if dispatchesBeforeResume != 1 {
		testCase.Fatalf("expected one dispatch before the interrupt, got %d", dispatchesBeforeResume)
	}

	resumed, err := compiled.Resume(context.Background(), "run-1", nil)
	if err != nil {
		testCase.Fatalf("unexpected resume error: %v", err)
	}
	if resumed.Statuses["sink"] != NodeCompleted {
		testCase.Errorf("expected sink completed after draining its queue, got %s", resumed.Statuses["sink"])
	}

	mu.Lock()
	defer mu.Unlock()
	if len(captured) != 2 {
		testCase.Fatalf("expected the queued delivery dispatched on resume, got %d dispatches", len(captured))
	}
	if captured[0]["a"] != "first" || captured[1]["b"] != "second" {
		testCase.Errorf("expected deliveries in edge order across the checkpoint, got %v", captured)
	}
}

func TestResume_SharedStateSurvivesCheckpoint(testCase *testing.T) {
	store := inmemory.New()
	writer := func(_ context.Context, input *NodeInput) (*NodeResult, error) {
		input.State.Set("progress", "a-finished")
		return &NodeResult{Output: "a"}, nil
	}
	reader := func(_ context.Context, input *NodeInput) (*NodeResult, error) {
		progress, _ := input.State.Get("progress")
		return &NodeResult{Output: progress}, nil
	}

	compiled := mustCompile(testCase, New("stateful",
		WithCheckpointStore(store),
		WithInterruptAfter("a"),
		WithState(func() map[string]any { return map[string]any{} })).
		AddNode("a", NodeExecutorFunc(writer)).
		AddNode("b", NodeExecutorFunc(reader)).
		AddEdge("a", "b"))

	_, err := compiled.Invoke(context.Background(), "go", WithCheckpointID("run-1"))
	if _, interrupted := ExtractInterrupt(err); !interrupted {
		testCase.Fatalf("expected an interrupt, got %v", err)
	}

	resumed, err := compiled.Resume(context.Background(), "run-1", nil)
	if err != nil {
		testCase.Fatalf("unexpected resume error: %v", err)
	}
	if resumed.Output != "a-finished" {
		testCase.Errorf("expected state written before the checkpoint to survive, got %v", resumed.Output)
	}
}
