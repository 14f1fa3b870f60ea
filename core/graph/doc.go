// Package graph implements a dataflow execution engine for multi-step
// workflows. Each node wraps an executor; directed edges carry control
// (when a node may run) and data (what it receives), and the scheduler
// advances the graph in supersteps, running every ready node of a step in
// parallel and routing the outputs before the next scan.
//
// Nodes declare how they become ready through trigger modes: the default
// [TriggerAllPredecessors] waits for every predecessor to finish,
// [TriggerAnyPredecessor] fires on the first, and [TriggerOnInput] runs once
// per delivered input, which is what loops and reducer-style accumulation
// build on. Cycles are declared explicitly with [WithLoopEdge] and bounded
// by [WithMaxSteps].
//
// Values flow between nodes as either plain values or streams from the
// stream package. A stream output fans out to every consumer edge as an
// independent copy; a node that wants chunks as they arrive opts in with
// [WithStreamInput], everyone else receives the concatenated value. The
// main entry points are [New] to declare a graph, [Graph.Compile] to
// validate it, and [CompiledGraph.Invoke] / [CompiledGraph.Stream] to run
// it. A [CompiledGraph] is itself a [NodeExecutor], so graphs nest as nodes
// of larger graphs.
//
// Key features:
//   - Parallel superstep scheduling with deterministic input merging
//   - Per-node trigger modes, timeouts, and pre/post handlers
//   - Field mappings on edges ([MapField], [MapOutput], [MapToInput])
//   - Branch routing via [Graph.AddBranch] with automatic skip propagation
//   - Streaming end to end: stream outputs, stream inputs, streamed results
//   - Interrupt points before or after any node, with JSON checkpoints and
//     [CompiledGraph.Resume]
//   - Run-scoped shared [State] visible to every executor
//   - Lifecycle [Callbacks] and full observability integration (spans,
//     counters, histograms)
//
// Example:
//
//	g := graph.New("review-pipeline",
//	    graph.WithMaxConcurrency(4),
//	).AddNode("fetch", fetchExecutor).
//	    AddNode("analyze", analyzeExecutor).
//	    AddNode("report", reportExecutor).
//	    AddEdge("fetch", "analyze").
//	    AddEdge("analyze", "report", graph.WithMappings(
//	        graph.MapField("findings", "input"),
//	    ))
//
//	compiled, err := g.Compile()
//	if err != nil {
//	    return err
//	}
//
//	result, err := compiled.Invoke(ctx, "https://example.com/changeset/42")
//	if err != nil {
//	    return err
//	}
//	report, err := graph.OutputAs[Report](result)
//
// Example (interrupt and resume):
//
//	compiled, _ := graph.New("deploy",
//	    graph.WithInterruptBefore("apply"),
//	    graph.WithCheckpointStore(inmemory.New()),
//	).AddNode("plan", planExecutor).
//	    AddNode("apply", applyExecutor).
//	    AddEdge("plan", "apply").
//	    Compile()
//
//	_, err := compiled.Invoke(ctx, changeSet, graph.WithCheckpointID("deploy-7"))
//	if info, interrupted := graph.ExtractInterrupt(err); interrupted {
//	    // ... wait for a human decision ...
//	    result, err = compiled.Resume(ctx, info.CheckpointID, nil)
//	}
package graph
