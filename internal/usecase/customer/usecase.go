// Package customer implements the optional customer-registration flow: a
// remote create followed by polling the request status until the backend
// records a decision.
package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	dom "loan-intake-service/internal/domain/origination"
)

var ErrDecisionTimeout = errors.New("registration not decided within the polling budget")

type IncompleteError struct{ Field string }

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("customer registration: missing required field %q", e.Field)
}

type Usecase struct {
	client      dom.Client
	clk         clock.Clock
	maxAttempts int
	pollDelay   time.Duration
	logger      *slog.Logger
}

func NewUsecase(client dom.Client, clk clock.Clock, maxAttempts int, pollDelay time.Duration, logger *slog.Logger) *Usecase {
	return &Usecase{client: client, clk: clk, maxAttempts: maxAttempts, pollDelay: pollDelay, logger: logger}
}

type Result struct {
	RequestID string            `json:"request_id"`
	Status    dom.RequestStatus `json:"request_status"`
	Attempts  int               `json:"attempts"`
}

// Register creates the customer record and polls until the request is
// decided, bounded by maxAttempts with a fixed delay between attempts. A
// still-pending request after the budget is ErrDecisionTimeout; the request
// id is returned either way so the caller can resume later.
func (u *Usecase) Register(ctx context.Context, credential string, req dom.CustomerRequest) (Result, error) {
	if req.FullName == "" {
		return Result{}, &IncompleteError{Field: "full_name"}
	}
	if req.IdentityNumber == "" {
		return Result{}, &IncompleteError{Field: "identity_number"}
	}
	if req.Phone == "" {
		return Result{}, &IncompleteError{Field: "phone"}
	}

	created, err := u.client.CreateCustomer(ctx, credential, req)
	if err != nil {
		return Result{}, err
	}
	u.logger.Info("customer registration submitted", "request", created.RequestID)

	res := Result{RequestID: created.RequestID, Status: dom.RequestPending}
	for attempt := 1; attempt <= u.maxAttempts; attempt++ {
		res.Attempts = attempt
		status, err := u.client.GetRequestStatus(ctx, credential, created.RequestID)
		if err != nil {
			return res, err
		}
		if status == dom.RequestDecided {
			res.Status = dom.RequestDecided
			u.logger.Info("customer registration decided", "request", created.RequestID, "attempts", attempt)
			return res, nil
		}
		if attempt == u.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-u.clk.After(u.pollDelay):
		}
	}
	return res, fmt.Errorf("%w: request %s after %d attempts", ErrDecisionTimeout, created.RequestID, u.maxAttempts)
}
