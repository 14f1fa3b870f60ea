package graph

import (
	"fmt"
	"sort"
)

// CompiledGraph is a validated, immutable execution plan. It precomputes the
// per-node predecessor sets and edge routing used by the scheduler, so runs
// only read from it.
//
// A CompiledGraph is safe for concurrent use: every Invoke, Stream, or
// Resume builds its own run state. It also implements NodeExecutor, so a
// compiled graph can serve as a node of an outer graph.
type CompiledGraph struct {
	// name identifies the graph in logs, spans, and checkpoints.
	name string

	// config is the graph-level configuration captured at Compile time.
	config *graphConfig

	// nodes maps node names to their definitions.
	nodes map[string]*node

	// nodeOrder preserves node insertion order.
	nodeOrder []string

	// edges contains all directed edges in declaration order, including
	// edges synthesized by AddBranch.
	edges []*edge

	// outgoing groups edges by source node, in declaration order.
	outgoing map[string][]*edge

	// preds lists each node's unique non-loop predecessors in edge
	// declaration order. Loop back-edges deliver and re-arm but never gate
	// readiness, so they are excluded here.
	preds map[string][]string

	// branches groups branches by their source node.
	branches map[string][]*branch

	// entries are the nodes that receive the run input and dispatch first.
	entries []string

	// topologicalOrder contains all node names sorted topologically over the
	// non-loop edges. Used for deterministic scheduling scans and the
	// default output node.
	topologicalOrder []string

	// outputNode is the node whose output becomes the run result.
	outputNode string

	// interruptBefore and interruptAfter are the configured interrupt points.
	interruptBefore map[string]bool
	interruptAfter  map[string]bool

	// hasLoopEdges records whether any loop edge exists, which requires a
	// positive step bound.
	hasLoopEdges bool
}

// Compile validates the graph and produces an executable CompiledGraph.
// It performs the following validations:
//
//  1. No accumulated build errors from AddNode/AddEdge/AddBranch
//  2. At least one node exists
//  3. All edge endpoints reference existing nodes, without duplicate edges
//  4. Edges carry at least one of control/data; mappings only on data edges
//  5. Loop edges target re-armable nodes and the graph has a step bound
//  6. Entry nodes exist and every node is reachable from them
//  7. The non-loop edge set is acyclic (validated via Kahn's algorithm)
//  8. Output and interrupt node references exist
//
// On failure it returns a ValidationError; it does not attempt partial
// compilation.
func (graph *Graph) Compile() (*CompiledGraph, error) {
	// Report any errors accumulated during AddNode/AddEdge/AddBranch.
	if len(graph.buildErrors) > 0 {
		return nil, newValidationError(graph.buildErrors...)
	}

	if len(graph.nodes) == 0 {
		return nil, newValidationError(fmt.Errorf("graph must contain at least one node"))
	}

	if err := graph.validateEdges(); err != nil {
		return nil, newValidationError(err)
	}

	if err := graph.validateLoops(); err != nil {
		return nil, newValidationError(err)
	}

	if err := graph.validateTriggers(); err != nil {
		return nil, newValidationError(err)
	}

	entries, err := graph.resolveEntries()
	if err != nil {
		return nil, newValidationError(err)
	}

	if err := graph.validateReachability(entries); err != nil {
		return nil, newValidationError(err)
	}

	topologicalOrder, err := kahnTopologicalSort(graph.nodes, graph.edges, graph.nodeOrder)
	if err != nil {
		return nil, newValidationError(err)
	}

	outputNode, err := graph.resolveOutputNode(topologicalOrder)
	if err != nil {
		return nil, newValidationError(err)
	}

	if err := graph.validateInterruptNodes(); err != nil {
		return nil, newValidationError(err)
	}

	compiled := &CompiledGraph{
		name:             graph.name,
		config:           graph.config,
		nodes:            graph.nodes,
		nodeOrder:        graph.nodeOrder,
		edges:            graph.edges,
		outgoing:         make(map[string][]*edge, len(graph.nodes)),
		preds:            make(map[string][]string, len(graph.nodes)),
		branches:         make(map[string][]*branch),
		entries:          entries,
		topologicalOrder: topologicalOrder,
		outputNode:       outputNode,
		interruptBefore:  make(map[string]bool, len(graph.config.interruptBefore)),
		interruptAfter:   make(map[string]bool, len(graph.config.interruptAfter)),
	}

	seenPred := make(map[string]map[string]bool, len(graph.nodes))
	for _, graphEdge := range graph.edges {
		compiled.outgoing[graphEdge.from] = append(compiled.outgoing[graphEdge.from], graphEdge)
		if graphEdge.loop {
			compiled.hasLoopEdges = true
			continue
		}
		seen, exists := seenPred[graphEdge.to]
		if !exists {
			seen = make(map[string]bool)
			seenPred[graphEdge.to] = seen
		}
		if !seen[graphEdge.from] {
			seen[graphEdge.from] = true
			compiled.preds[graphEdge.to] = append(compiled.preds[graphEdge.to], graphEdge.from)
		}
	}

	for _, graphBranch := range graph.branches {
		compiled.branches[graphBranch.from] = append(compiled.branches[graphBranch.from], graphBranch)
	}

	for _, name := range graph.config.interruptBefore {
		compiled.interruptBefore[name] = true
	}
	for _, name := range graph.config.interruptAfter {
		compiled.interruptAfter[name] = true
	}

	return compiled, nil
}

// validateEdges checks that all edge endpoints reference existing nodes,
// that no from/to pair repeats, and that each edge's roles are coherent.
func (graph *Graph) validateEdges() error {
	edgeSet := make(map[string]bool)

	for _, graphEdge := range graph.edges {
		if _, exists := graph.nodes[graphEdge.from]; !exists {
			return fmt.Errorf("edge references non-existent source node %q", graphEdge.from)
		}
		if _, exists := graph.nodes[graphEdge.to]; !exists {
			return fmt.Errorf("edge references non-existent target node %q", graphEdge.to)
		}

		if !graphEdge.control && !graphEdge.data {
			return fmt.Errorf("edge from %q to %q carries neither control nor data", graphEdge.from, graphEdge.to)
		}
		if !graphEdge.data && len(graphEdge.mappings) > 0 {
			return fmt.Errorf("field mappings on control-only edge from %q to %q", graphEdge.from, graphEdge.to)
		}

		edgeKey := graphEdge.from + "->" + graphEdge.to
		if edgeSet[edgeKey] {
			return fmt.Errorf("duplicate edge from %q to %q", graphEdge.from, graphEdge.to)
		}
		edgeSet[edgeKey] = true
	}

	return nil
}

// validateLoops enforces the termination guarantees for loop regions: a
// graph with loop edges needs a positive step bound, and a loop edge must
// target a node whose trigger mode can re-arm.
func (graph *Graph) validateLoops() error {
	for _, graphEdge := range graph.edges {
		if !graphEdge.loop {
			continue
		}

		if graph.config.maxSteps <= 0 {
			return fmt.Errorf("loop edge from %q to %q requires a positive step bound; set WithMaxSteps", graphEdge.from, graphEdge.to)
		}

		target := graph.nodes[graphEdge.to]
		if target.trigger == TriggerAllPredecessors {
			return fmt.Errorf("loop edge from %q to %q targets an all_predecessors node; loop targets must use any_predecessor or on_input", graphEdge.from, graphEdge.to)
		}
	}

	return nil
}

// validateTriggers rejects unknown trigger mode values.
func (graph *Graph) validateTriggers() error {
	for _, name := range graph.nodeOrder {
		switch graph.nodes[name].trigger {
		case TriggerAllPredecessors, TriggerAnyPredecessor, TriggerOnInput:
		default:
			return fmt.Errorf("node %q has unknown trigger mode %q", name, graph.nodes[name].trigger)
		}
	}
	return nil
}

// resolveEntries determines the entry node set: the explicitly configured
// one, or by default every node with no incoming non-loop edge.
func (graph *Graph) resolveEntries() ([]string, error) {
	if len(graph.config.entryNodes) > 0 {
		seen := make(map[string]bool, len(graph.config.entryNodes))
		for _, name := range graph.config.entryNodes {
			if _, exists := graph.nodes[name]; !exists {
				return nil, fmt.Errorf("entry node %q does not exist in the graph", name)
			}
			if seen[name] {
				return nil, fmt.Errorf("entry node %q listed twice", name)
			}
			seen[name] = true
		}
		return graph.config.entryNodes, nil
	}

	hasIncoming := make(map[string]bool)
	for _, graphEdge := range graph.edges {
		if !graphEdge.loop {
			hasIncoming[graphEdge.to] = true
		}
	}

	entries := make([]string, 0)
	for _, name := range graph.nodeOrder {
		if !hasIncoming[name] {
			entries = append(entries, name)
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("graph has no entry nodes: every node has incoming edges; declare entries with WithEntryNodes")
	}
	return entries, nil
}

// validateReachability checks that every node can be reached from the entry
// set, walking all edges including loop back-edges.
func (graph *Graph) validateReachability(entries []string) error {
	reachable := make(map[string]bool, len(graph.nodes))
	frontier := append([]string(nil), entries...)
	for _, name := range frontier {
		reachable[name] = true
	}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]
		for _, graphEdge := range graph.edges {
			if graphEdge.from != current || reachable[graphEdge.to] {
				continue
			}
			reachable[graphEdge.to] = true
			frontier = append(frontier, graphEdge.to)
		}
	}

	unreachable := make([]string, 0)
	for _, name := range graph.nodeOrder {
		if !reachable[name] {
			unreachable = append(unreachable, name)
		}
	}
	if len(unreachable) > 0 {
		return fmt.Errorf("nodes unreachable from entry set: %v", unreachable)
	}
	return nil
}

// resolveOutputNode determines which node produces the final output.
// If WithOutputNode was used, validates that the specified node exists.
// Otherwise, uses the last node in topological order.
func (graph *Graph) resolveOutputNode(topologicalOrder []string) (string, error) {
	if graph.config.outputNode != "" {
		if _, exists := graph.nodes[graph.config.outputNode]; !exists {
			return "", fmt.Errorf("output node %q does not exist in the graph", graph.config.outputNode)
		}
		return graph.config.outputNode, nil
	}

	// Default: last node in topological order.
	return topologicalOrder[len(topologicalOrder)-1], nil
}

// validateInterruptNodes checks that interrupt-before/after lists reference
// existing nodes.
func (graph *Graph) validateInterruptNodes() error {
	for _, name := range graph.config.interruptBefore {
		if _, exists := graph.nodes[name]; !exists {
			return fmt.Errorf("interrupt-before node %q does not exist in the graph", name)
		}
	}
	for _, name := range graph.config.interruptAfter {
		if _, exists := graph.nodes[name]; !exists {
			return fmt.Errorf("interrupt-after node %q does not exist in the graph", name)
		}
	}
	return nil
}

// kahnTopologicalSort performs Kahn's algorithm over the non-loop edges,
// simultaneously detecting cycles and producing a deterministic topological
// order (insertion order breaks ties within a frontier).
//
// Loop edges are excluded: they are the declared back-edges of bounded loop
// regions, and including them would flag every intentional loop as a cycle.
func kahnTopologicalSort(nodes map[string]*node, edges []*edge, nodeOrder []string) ([]string, error) {
	inDegree := make(map[string]int, len(nodes))
	adjacency := make(map[string][]string, len(nodes))
	for name := range nodes {
		inDegree[name] = 0
	}
	for _, graphEdge := range edges {
		if graphEdge.loop {
			continue
		}
		adjacency[graphEdge.from] = append(adjacency[graphEdge.from], graphEdge.to)
		inDegree[graphEdge.to]++
	}

	// Build a position map for deterministic ordering within a frontier.
	nodePosition := make(map[string]int, len(nodeOrder))
	for index, name := range nodeOrder {
		nodePosition[name] = index
	}

	frontier := make([]string, 0)
	for name, degree := range inDegree {
		if degree == 0 {
			frontier = append(frontier, name)
		}
	}
	sort.Slice(frontier, func(indexA, indexB int) bool {
		return nodePosition[frontier[indexA]] < nodePosition[frontier[indexB]]
	})

	topologicalOrder := make([]string, 0, len(nodes))

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]
		topologicalOrder = append(topologicalOrder, current)

		released := make([]string, 0)
		for _, neighbor := range adjacency[current] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				released = append(released, neighbor)
			}
		}
		sort.Slice(released, func(indexA, indexB int) bool {
			return nodePosition[released[indexA]] < nodePosition[released[indexB]]
		})
		frontier = append(frontier, released...)
	}

	// If we didn't process all nodes, there is a cycle.
	if len(topologicalOrder) != len(nodes) {
		cycleNodes := make([]string, 0)
		for name, degree := range inDegree {
			if degree > 0 {
				cycleNodes = append(cycleNodes, name)
			}
		}
		sort.Strings(cycleNodes)
		return nil, fmt.Errorf("cycle detected in graph involving nodes %v; declare intentional back-edges with WithLoopEdge", cycleNodes)
	}

	return topologicalOrder, nil
}
