package job

import "context"

// Store is the registry of job records. The orchestrator is the only
// writer; at most one dispatch pipeline mutates a given job at a time.
// Implementations must guarantee read-after-write consistency per key
// and reject transitions that would leave a terminal state.
type Store interface {
	Put(ctx context.Context, j *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	ListByOwner(ctx context.Context, userID string) ([]*Job, error)

	// MarkProcessing transitions pending -> processing.
	MarkProcessing(ctx context.Context, id string) error

	// Complete transitions processing -> completed, recording the output
	// blob path (may be empty for text-only results) and merging meta.
	Complete(ctx context.Context, id string, outputPath string, meta map[string]any) error

	// Fail transitions pending|processing -> failed with metadata.error set.
	Fail(ctx context.Context, id string, errMsg string) error
}
