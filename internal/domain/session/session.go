package session

import (
	"context"
	"errors"
	"time"

	"loan-intake-service/internal/domain/document"
)

var ErrNotFound = errors.New("session not found")

// CustomerFields is the applicant data collected by the intake wizard.
// Pointer-free so partial updates are expressed with PartialCustomer.
type CustomerFields struct {
	FullName       string `json:"full_name"`
	IdentityNumber string `json:"identity_number"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Province       string `json:"province"`
	BranchName     string `json:"branch_name"`
}

type LoanFields struct {
	Amount      float64 `json:"amount"`
	TenorMonths int     `json:"tenor_months"`
	Purpose     string  `json:"purpose"`
}

// PartialCustomer carries only the fields the caller wants to overwrite.
type PartialCustomer struct {
	FullName       *string `json:"full_name,omitempty"`
	IdentityNumber *string `json:"identity_number,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Email          *string `json:"email,omitempty"`
	Province       *string `json:"province,omitempty"`
	BranchName     *string `json:"branch_name,omitempty"`
}

type PartialLoan struct {
	Amount      *float64 `json:"amount,omitempty"`
	TenorMonths *int     `json:"tenor_months,omitempty"`
	Purpose     *string  `json:"purpose,omitempty"`
}

// ApplicationSession is the single source of truth for one intake run.
type ApplicationSession struct {
	ID            string                           `json:"session_id"`
	Customer      CustomerFields                   `json:"customer"`
	Loan          LoanFields                       `json:"loan"`
	// ApplicationID is backend-issued, set at most once per session.
	ApplicationID string                           `json:"application_id,omitempty"`
	StepIndex     int                              `json:"step_index"`
	Documents     map[document.Kind]*document.Document `json:"documents"`
	CreatedAt     time.Time                        `json:"created_at"`
}

// Clone deep-copies the session so readers never alias store-owned state.
func (s *ApplicationSession) Clone() *ApplicationSession {
	cp := *s
	cp.Documents = make(map[document.Kind]*document.Document, len(s.Documents))
	for k, d := range s.Documents {
		cp.Documents[k] = d.Clone()
	}
	return &cp
}

// Document returns the live document for kind, or nil.
func (s *ApplicationSession) Document(kind document.Kind) *document.Document {
	return s.Documents[kind]
}

// Observer is notified with a fresh snapshot after every mutation. Draft
// persistence keeps itself in sync through this hook instead of reaching into
// the store.
type Observer func(snapshot *ApplicationSession)

// Store owns every ApplicationSession. All mutation flows through these entry
// points; reads return deep copies.
type Store interface {
	Create(ctx context.Context) (*ApplicationSession, error)
	Get(ctx context.Context, sessionID string) (*ApplicationSession, error)
	SetCustomer(ctx context.Context, sessionID string, p PartialCustomer) (*ApplicationSession, error)
	SetLoan(ctx context.Context, sessionID string, p PartialLoan) (*ApplicationSession, error)
	SetStep(ctx context.Context, sessionID string, step int) error
	SetApplicationID(ctx context.Context, sessionID, applicationID string) error
	UpsertDocument(ctx context.Context, sessionID string, doc *document.Document) error
	RemoveDocument(ctx context.Context, sessionID string, kind document.Kind) error
	Reset(ctx context.Context, sessionID string) error
	Subscribe(obs Observer)
}
