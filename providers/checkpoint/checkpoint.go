// Package checkpoint defines the storage contract for interrupted graph runs.
//
// The engine serializes a run snapshot to bytes and hands it to a [Store]
// under a caller-chosen checkpoint id; Resume reads it back. The contract is
// deliberately a minimal key/value surface so implementations can range from
// the in-process map in the inmemory subpackage to any external system that
// can hold bytes under a key.
package checkpoint

import "context"

// Store persists serialized run snapshots by checkpoint id.
//
// Set overwrites any previous snapshot stored under the same id. Get reports
// found=false (with a nil error) when no snapshot exists for the id; errors
// are reserved for storage failures.
type Store interface {
	Get(ctx context.Context, checkpointID string) (data []byte, found bool, err error)
	Set(ctx context.Context, checkpointID string, data []byte) error
}
