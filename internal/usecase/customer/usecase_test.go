package customer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	dom "loan-intake-service/internal/domain/origination"
	"loan-intake-service/internal/testutil/originationmock"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func validRequest() dom.CustomerRequest {
	return dom.CustomerRequest{
		FullName:       "Ana Surya",
		IdentityNumber: "3201010190010003",
		Phone:          "081122334455",
	}
}

// The polling delay is driven through the clock interface; tests use a real
// clock with a tiny delay to keep them fast without a goroutine dance.
func newUsecase(client dom.Client, maxAttempts int) *Usecase {
	return NewUsecase(client, clock.New(), maxAttempts, time.Millisecond, testLogger())
}

func TestRegister_DecidedWithinBudget(t *testing.T) {
	polls := 0
	mock := &originationmock.Client{
		CreateCustomerFn: func(ctx context.Context, cred string, req dom.CustomerRequest) (dom.CreateCustomerResult, error) {
			return dom.CreateCustomerResult{RequestID: "REQ-1"}, nil
		},
		GetRequestStatusFn: func(ctx context.Context, cred, requestID string) (dom.RequestStatus, error) {
			polls++
			if polls < 3 {
				return dom.RequestPending, nil
			}
			return dom.RequestDecided, nil
		},
	}

	res, err := newUsecase(mock, 5).Register(context.Background(), "tok", validRequest())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Status != dom.RequestDecided || res.Attempts != 3 {
		t.Fatalf("result = %+v, want decided on attempt 3", res)
	}
}

func TestRegister_StopsAtMaxAttempts(t *testing.T) {
	mock := &originationmock.Client{
		CreateCustomerFn: func(ctx context.Context, cred string, req dom.CustomerRequest) (dom.CreateCustomerResult, error) {
			return dom.CreateCustomerResult{RequestID: "REQ-1"}, nil
		},
		GetRequestStatusFn: func(ctx context.Context, cred, requestID string) (dom.RequestStatus, error) {
			return dom.RequestPending, nil
		},
	}

	res, err := newUsecase(mock, 4).Register(context.Background(), "tok", validRequest())
	if !errors.Is(err, ErrDecisionTimeout) {
		t.Fatalf("err = %v, want ErrDecisionTimeout", err)
	}
	if mock.StatusCalls != 4 {
		t.Fatalf("status polls = %d, want exactly maxAttempts", mock.StatusCalls)
	}
	// The request id survives so the caller can resume polling later.
	if res.RequestID != "REQ-1" || res.Status != dom.RequestPending {
		t.Fatalf("result = %+v", res)
	}
}

func TestRegister_ValidatesBeforeNetwork(t *testing.T) {
	mock := &originationmock.Client{}

	req := validRequest()
	req.Phone = ""
	_, err := newUsecase(mock, 3).Register(context.Background(), "tok", req)

	var inc *IncompleteError
	if !errors.As(err, &inc) || inc.Field != "phone" {
		t.Fatalf("err = %v, want IncompleteError{phone}", err)
	}
}

func TestRegister_CreateFailurePropagates(t *testing.T) {
	mock := &originationmock.Client{
		CreateCustomerFn: func(ctx context.Context, cred string, req dom.CustomerRequest) (dom.CreateCustomerResult, error) {
			return dom.CreateCustomerResult{}, &dom.Error{Code: dom.CodeUnauthorized, Message: "credential missing/invalid"}
		},
	}

	_, err := newUsecase(mock, 3).Register(context.Background(), "tok", validRequest())
	oe, ok := dom.AsError(err)
	if !ok || oe.Code != dom.CodeUnauthorized {
		t.Fatalf("err = %v, want unauthorized origination error", err)
	}
	if mock.StatusCalls != 0 {
		t.Fatal("polled after failed create")
	}
}
