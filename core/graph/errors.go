package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports why a graph failed to compile. Errors recorded
// while adding nodes and edges are gathered into one ValidationError, so a
// single Compile call surfaces every construction mistake at once.
type ValidationError struct {
	// Issues holds the individual violations, in the order they were found.
	Issues []error
}

// Error joins the issues into a single description.
func (validationError *ValidationError) Error() string {
	if len(validationError.Issues) == 1 {
		return "graph validation failed: " + validationError.Issues[0].Error()
	}
	descriptions := make([]string, len(validationError.Issues))
	for i, issue := range validationError.Issues {
		descriptions[i] = issue.Error()
	}
	return fmt.Sprintf("graph validation failed with %d issues: %s",
		len(validationError.Issues), strings.Join(descriptions, "; "))
}

// Unwrap exposes the individual issues to errors.Is and errors.As.
func (validationError *ValidationError) Unwrap() []error {
	return validationError.Issues
}

// newValidationError wraps one or more issues; nil-only input returns nil.
func newValidationError(issues ...error) error {
	nonNil := make([]error, 0, len(issues))
	for _, issue := range issues {
		if issue != nil {
			nonNil = append(nonNil, issue)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	return &ValidationError{Issues: nonNil}
}

// NodeError reports a node executor failure. The run aborts on the first
// failure, but outputs of nodes that completed beforehand are preserved in
// Partial rather than discarded.
type NodeError struct {
	// Node is the name of the node that failed.
	Node string

	// Err is the underlying executor, handler, or assembly error.
	Err error

	// Partial maps already-completed node names to their outputs at the time
	// of the failure.
	Partial map[string]any
}

// Error describes the failing node and its cause.
func (nodeError *NodeError) Error() string {
	return fmt.Sprintf("node %q failed: %v", nodeError.Node, nodeError.Err)
}

// Unwrap returns the underlying cause.
func (nodeError *NodeError) Unwrap() error {
	return nodeError.Err
}

// StepLimitError reports that a run dispatched more node executions than its
// configured bound allows, the guard against runaway loop regions.
type StepLimitError struct {
	// Limit is the configured step bound the run exceeded.
	Limit int
}

// Error describes the exceeded bound.
func (stepLimitError *StepLimitError) Error() string {
	return fmt.Sprintf("exceeded step limit of %d", stepLimitError.Limit)
}

// CheckpointNotFoundError reports a Resume against a checkpoint id the store
// does not hold. Callers can recover by retrying with a different id or
// starting a fresh run.
type CheckpointNotFoundError struct {
	// ID is the checkpoint id that was requested.
	ID string
}

// Error describes the missing checkpoint.
func (notFoundError *CheckpointNotFoundError) Error() string {
	return fmt.Sprintf("checkpoint %q not found", notFoundError.ID)
}

// InterruptInfo describes where a run paused and how to pick it up again.
type InterruptInfo struct {
	// CheckpointID keys the persisted snapshot, or is empty when the run had
	// no store or id configured and the state was not saved.
	CheckpointID string `json:"checkpoint_id"`

	// BeforeNodes lists ready nodes held back by WithInterruptBefore.
	BeforeNodes []string `json:"before_nodes,omitempty"`

	// AfterNodes lists completed nodes that triggered WithInterruptAfter.
	AfterNodes []string `json:"after_nodes,omitempty"`
}

// InterruptError is the terminal-but-resumable outcome of a run that hit an
// interrupt point. It is an error so interrupted runs cannot be mistaken for
// finished ones, but callers are expected to detect it with ExtractInterrupt
// and later call Resume.
type InterruptError struct {
	// Info describes the interrupt point and checkpoint.
	Info *InterruptInfo
}

// Error describes the interrupt point.
func (interruptError *InterruptError) Error() string {
	info := interruptError.Info
	switch {
	case len(info.BeforeNodes) > 0 && len(info.AfterNodes) > 0:
		return fmt.Sprintf("run interrupted before %v and after %v (checkpoint %q)",
			info.BeforeNodes, info.AfterNodes, info.CheckpointID)
	case len(info.AfterNodes) > 0:
		return fmt.Sprintf("run interrupted after %v (checkpoint %q)",
			info.AfterNodes, info.CheckpointID)
	default:
		return fmt.Sprintf("run interrupted before %v (checkpoint %q)",
			info.BeforeNodes, info.CheckpointID)
	}
}

// ExtractInterrupt reports whether err represents an interrupted run and, if
// so, returns its InterruptInfo.
//
// Example:
//
//	result, err := compiled.Invoke(ctx, input, graph.WithCheckpointID(id))
//	if info, interrupted := graph.ExtractInterrupt(err); interrupted {
//	    // gather human input, then:
//	    result, err = compiled.Resume(ctx, info.CheckpointID, resumeInputs)
//	}
func ExtractInterrupt(err error) (*InterruptInfo, bool) {
	var interruptError *InterruptError
	if errors.As(err, &interruptError) {
		return interruptError.Info, true
	}
	return nil, false
}
