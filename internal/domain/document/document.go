package document

import (
	"errors"
	"time"
)

var (
	ErrUnsupportedType   = errors.New("unsupported document type")
	ErrTooLarge          = errors.New("document exceeds size limit")
	ErrDuplicateDocument = errors.New("same content already attached under another kind")
	ErrNotFound          = errors.New("document not found")
)

type Kind string

const (
	KindIDFront          Kind = "id-front"
	KindIDBack           Kind = "id-back"
	KindCombinedID       Kind = "combined-id"
	KindPayslip1         Kind = "payslip-1"
	KindPayslip2         Kind = "payslip-2"
	KindPayslip3         Kind = "payslip-3"
	KindCombinedPayslips Kind = "combined-payslips"
	KindSelfie           Kind = "selfie"
	KindBankStatement    Kind = "bank-statement"
)

func (k Kind) Valid() bool {
	switch k {
	case KindIDFront, KindIDBack, KindCombinedID,
		KindPayslip1, KindPayslip2, KindPayslip3, KindCombinedPayslips,
		KindSelfie, KindBankStatement:
		return true
	}
	return false
}

// IsIdentity reports whether the kind carries the applicant's identity number
// and is therefore eligible for the advisory text-extraction cross-check.
func (k Kind) IsIdentity() bool {
	return k == KindIDFront || k == KindIDBack
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusVerifying Status = "verifying"
	StatusVerified  Status = "verified"
	// StatusMerged marks a part consumed into a combined artifact; it is not
	// uploaded individually.
	StatusMerged    Status = "merged"
	StatusUploading Status = "uploading"
	StatusUploaded  Status = "uploaded"
	StatusError     Status = "error"
)

// Document is one attached file in an application session. Exactly one live
// Document exists per Kind; the binary payload is owned by the Document until
// it is merged away or removed.
type Document struct {
	Kind              Kind      `json:"kind"`
	Status            Status    `json:"status"`
	Content           []byte    `json:"-"`
	Fingerprint       string    `json:"fingerprint,omitempty"`
	SizeBytes         int64     `json:"size_bytes"`
	MimeType          string    `json:"mime_type,omitempty"`
	ExtractedSnippet  string    `json:"extracted_snippet,omitempty"`
	VerificationNotes []string  `json:"verification_notes,omitempty"`
	// PendingApproval is set on an uploaded document whose content was queued
	// locally because the backend has not approved the application yet.
	PendingApproval bool      `json:"pending_approval,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	AttachedAt      time.Time `json:"attached_at"`
}

// Clone returns a deep copy so callers cannot mutate store-owned state.
func (d *Document) Clone() *Document {
	cp := *d
	cp.Content = append([]byte(nil), d.Content...)
	cp.VerificationNotes = append([]string(nil), d.VerificationNotes...)
	return &cp
}

// Uploadable reports whether the document is ready to be sent to the backend.
// Merged-away parts and already-uploaded documents are excluded.
func (d *Document) Uploadable() bool {
	return d.Status == StatusVerified
}

// MergeGroup is a fixed set of kinds combined into one artifact once every
// member is verified.
type MergeGroup struct {
	Members []Kind
	Target  Kind
}

var MergeGroups = []MergeGroup{
	{Members: []Kind{KindIDFront, KindIDBack}, Target: KindCombinedID},
	{Members: []Kind{KindPayslip1, KindPayslip2, KindPayslip3}, Target: KindCombinedPayslips},
}

// GroupFor returns the merge group containing kind, either as a member or as
// the combined target.
func GroupFor(kind Kind) (MergeGroup, bool) {
	for _, g := range MergeGroups {
		if g.Target == kind {
			return g, true
		}
		for _, m := range g.Members {
			if m == kind {
				return g, true
			}
		}
	}
	return MergeGroup{}, false
}

// TypeCode maps a kind to the backend document classification code.
func TypeCode(kind Kind) string {
	switch kind {
	case KindIDFront, KindIDBack, KindCombinedID:
		return "01"
	case KindPayslip1, KindPayslip2, KindPayslip3, KindCombinedPayslips:
		return "02"
	case KindSelfie:
		return "03"
	case KindBankStatement:
		return "04"
	}
	return "99"
}
