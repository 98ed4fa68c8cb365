// Package originationmock provides a function-field test double for the
// remote loan-origination client.
package originationmock

import (
	"context"
	"errors"

	dom "loan-intake-service/internal/domain/origination"
)

type Client struct {
	SubmitApplicationFn func(ctx context.Context, credential string, app dom.Application) (dom.SubmitResult, error)
	UploadDocumentFn    func(ctx context.Context, credential, applicationID, typeCode string, content []byte) (dom.UploadResult, error)
	CreateCustomerFn    func(ctx context.Context, credential string, req dom.CustomerRequest) (dom.CreateCustomerResult, error)
	GetRequestStatusFn  func(ctx context.Context, credential, requestID string) (dom.RequestStatus, error)

	SubmitCalls int
	UploadCalls int
	StatusCalls int
}

var _ dom.Client = (*Client)(nil)

func (m *Client) SubmitApplication(ctx context.Context, credential string, app dom.Application) (dom.SubmitResult, error) {
	m.SubmitCalls++
	if m.SubmitApplicationFn != nil {
		return m.SubmitApplicationFn(ctx, credential, app)
	}
	return dom.SubmitResult{}, errors.New("not implemented")
}

func (m *Client) UploadDocument(ctx context.Context, credential, applicationID, typeCode string, content []byte) (dom.UploadResult, error) {
	m.UploadCalls++
	if m.UploadDocumentFn != nil {
		return m.UploadDocumentFn(ctx, credential, applicationID, typeCode, content)
	}
	return dom.UploadResult{}, errors.New("not implemented")
}

func (m *Client) CreateCustomer(ctx context.Context, credential string, req dom.CustomerRequest) (dom.CreateCustomerResult, error) {
	if m.CreateCustomerFn != nil {
		return m.CreateCustomerFn(ctx, credential, req)
	}
	return dom.CreateCustomerResult{}, errors.New("not implemented")
}

func (m *Client) GetRequestStatus(ctx context.Context, credential, requestID string) (dom.RequestStatus, error) {
	m.StatusCalls++
	if m.GetRequestStatusFn != nil {
		return m.GetRequestStatusFn(ctx, credential, requestID)
	}
	return "", errors.New("not implemented")
}
