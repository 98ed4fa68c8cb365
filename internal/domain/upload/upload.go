package upload

import (
	"context"
	"time"

	"loan-intake-service/internal/domain/document"
)

// PendingUploadEntry captures a document whose upload was deferred because
// the application awaits out-of-band approval. Content is base64-encoded for
// the durable store. At most one entry exists per kind; a later attempt
// replaces an earlier one.
type PendingUploadEntry struct {
	Kind           document.Kind `json:"kind"`
	TypeCode       string        `json:"type_code"`
	EncodedContent string        `json:"encoded_content"`
	QueuedAt       time.Time     `json:"queued_at"`
}

// Queue persists deferred uploads for one session until a manual drain.
type Queue interface {
	Put(ctx context.Context, sessionID string, e PendingUploadEntry) error
	Remove(ctx context.Context, sessionID string, kind document.Kind) error
	Entries(ctx context.Context, sessionID string) ([]PendingUploadEntry, error)
	Clear(ctx context.Context, sessionID string) error
}
