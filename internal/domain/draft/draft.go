package draft

import (
	"context"
	"errors"
	"time"

	"loan-intake-service/internal/domain/document"
	"loan-intake-service/internal/domain/session"
)

var ErrNoDraft = errors.New("no draft saved")

// DocumentMeta is the persisted view of a document: metadata only, raw bytes
// are deliberately excluded so a restored draft never resurrects content the
// user must re-attach.
type DocumentMeta struct {
	Kind            document.Kind   `json:"kind"`
	Status          document.Status `json:"status"`
	Fingerprint     string          `json:"fingerprint,omitempty"`
	SizeBytes       int64           `json:"size_bytes"`
	MimeType        string          `json:"mime_type,omitempty"`
	PendingApproval bool            `json:"pending_approval,omitempty"`
}

type Snapshot struct {
	SavedAt       time.Time              `json:"saved_at"`
	StepIndex     int                    `json:"step_index"`
	ApplicationID string                 `json:"application_id,omitempty"`
	Customer      session.CustomerFields `json:"customer"`
	Loan          session.LoanFields     `json:"loan"`
	Documents     []DocumentMeta         `json:"documents"`
}

// Store persists at most one snapshot per session; each save supersedes the
// previous one.
type Store interface {
	Save(ctx context.Context, sessionID string, s Snapshot) error
	Load(ctx context.Context, sessionID string) (Snapshot, error)
	Clear(ctx context.Context, sessionID string) error
}
