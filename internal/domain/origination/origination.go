// Package origination defines the contract with the remote loan-origination
// service. Duck-typed backend responses are decoded exactly once, at the
// client boundary, into the types below.
package origination

import (
	"context"
	"errors"
	"fmt"
)

// Machine-readable failure codes surfaced to the UI layer. Authentication
// failures are kept distinct from validation failures because the remediation
// differs (refresh credential vs. correct input).
const (
	CodeValidation   = "validation"
	CodeUnauthorized = "unauthorized"
	CodeNetwork      = "network"
	CodeServer       = "server"
)

// Error is a typed failure from the remote service.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return fmt.Sprintf("origination: %s: %s", e.Code, e.Message) }

// AsError unwraps err into an *Error if it carries one.
func AsError(err error) (*Error, bool) {
	var oe *Error
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

// Application is the submit payload assembled from session fields. BranchName
// is already normalized against the valid-branch list by the orchestrator.
type Application struct {
	FullName       string  `json:"full_name"`
	IdentityNumber string  `json:"identity_number"`
	Phone          string  `json:"phone"`
	Email          string  `json:"email"`
	Province       string  `json:"province"`
	BranchName     string  `json:"branch_name"`
	Amount         float64 `json:"amount"`
	TenorMonths    int     `json:"tenor_months"`
	Purpose        string  `json:"purpose"`
}

type SubmitResult struct {
	ApplicationID string `json:"application_id"`
}

// UploadResult distinguishes a true remote acknowledgment from the
// pending-approval outcome, which is not an error: the backend recognized the
// application but will not accept documents until it is manually approved.
type UploadResult struct {
	DocumentID      string `json:"document_id,omitempty"`
	PendingApproval bool   `json:"pending_approval"`
}

type CustomerRequest struct {
	FullName       string `json:"full_name"`
	IdentityNumber string `json:"identity_number"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
}

type CreateCustomerResult struct {
	RequestID string `json:"request_id"`
}

type RequestStatus string

const (
	RequestPending RequestStatus = "pending"
	RequestDecided RequestStatus = "decided"
)

// Client talks to the remote loan-origination service. Every call forwards
// the caller's bearer credential.
type Client interface {
	SubmitApplication(ctx context.Context, credential string, app Application) (SubmitResult, error)
	UploadDocument(ctx context.Context, credential, applicationID, typeCode string, content []byte) (UploadResult, error)
	CreateCustomer(ctx context.Context, credential string, req CustomerRequest) (CreateCustomerResult, error)
	GetRequestStatus(ctx context.Context, credential, requestID string) (RequestStatus, error)
}
