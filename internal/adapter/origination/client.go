// Package origination implements the HTTP client for the remote
// loan-origination service. All response decoding happens here: callers see
// discriminated results and typed errors, never raw backend payloads.
package origination

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	dom "loan-intake-service/internal/domain/origination"
)

// pendingApprovalMessage is the literal the backend returns while an
// application exists but awaits manual approval. It is matched here and
// nowhere else; a stable machine-readable code from the backend would replace
// this single line.
const pendingApprovalMessage = "Application Number does not exists"

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

var _ dom.Client = (*Client)(nil)

// backendEnvelope covers every field the backend may return; which ones are
// set depends on the endpoint and outcome.
type backendEnvelope struct {
	ApplicationID string `json:"application_id"`
	DocumentID    string `json:"document_id"`
	RequestID     string `json:"request_id"`
	RequestStatus string `json:"request_status"`
	Message       string `json:"message"`
	Error         string `json:"error"`
}

func (b *backendEnvelope) message() string {
	if b.Message != "" {
		return b.Message
	}
	return b.Error
}

func (c *Client) SubmitApplication(ctx context.Context, credential string, app dom.Application) (dom.SubmitResult, error) {
	env, status, err := c.do(ctx, credential, http.MethodPost, "/api/v1/applications", app)
	if err != nil {
		return dom.SubmitResult{}, err
	}
	if status >= 300 {
		return dom.SubmitResult{}, decodeFailure(status, env)
	}
	if env.ApplicationID == "" {
		return dom.SubmitResult{}, &dom.Error{Code: dom.CodeServer, Message: "backend returned no application id"}
	}
	return dom.SubmitResult{ApplicationID: env.ApplicationID}, nil
}

type uploadRequest struct {
	TypeCode string `json:"type_code"`
	Content  string `json:"content"`
}

func (c *Client) UploadDocument(ctx context.Context, credential, applicationID, typeCode string, content []byte) (dom.UploadResult, error) {
	path := fmt.Sprintf("/api/v1/applications/%s/documents", applicationID)
	body := uploadRequest{TypeCode: typeCode, Content: base64.StdEncoding.EncodeToString(content)}
	env, status, err := c.do(ctx, credential, http.MethodPost, path, body)
	if err != nil {
		return dom.UploadResult{}, err
	}
	if status >= 300 {
		// The pending-approval signal is a recognizable message, not a
		// distinct status code. It is not an error: the caller queues the
		// document for a later drain.
		if strings.Contains(env.message(), pendingApprovalMessage) {
			return dom.UploadResult{PendingApproval: true}, nil
		}
		return dom.UploadResult{}, decodeFailure(status, env)
	}
	return dom.UploadResult{DocumentID: env.DocumentID}, nil
}

func (c *Client) CreateCustomer(ctx context.Context, credential string, req dom.CustomerRequest) (dom.CreateCustomerResult, error) {
	env, status, err := c.do(ctx, credential, http.MethodPost, "/api/v1/customers", req)
	if err != nil {
		return dom.CreateCustomerResult{}, err
	}
	if status >= 300 {
		return dom.CreateCustomerResult{}, decodeFailure(status, env)
	}
	if env.RequestID == "" {
		return dom.CreateCustomerResult{}, &dom.Error{Code: dom.CodeServer, Message: "backend returned no request id"}
	}
	return dom.CreateCustomerResult{RequestID: env.RequestID}, nil
}

func (c *Client) GetRequestStatus(ctx context.Context, credential, requestID string) (dom.RequestStatus, error) {
	env, status, err := c.do(ctx, credential, http.MethodGet, "/api/v1/requests/"+requestID, nil)
	if err != nil {
		return "", err
	}
	if status >= 300 {
		return "", decodeFailure(status, env)
	}
	switch env.RequestStatus {
	case string(dom.RequestDecided):
		return dom.RequestDecided, nil
	default:
		return dom.RequestPending, nil
	}
}

// do performs one authenticated call and decodes the body into the shared
// envelope. Transport failures come back as network errors.
func (c *Client) do(ctx context.Context, credential, method, path string, payload any) (backendEnvelope, int, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return backendEnvelope{}, 0, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return backendEnvelope{}, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return backendEnvelope{}, 0, &dom.Error{Code: dom.CodeNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return backendEnvelope{}, 0, &dom.Error{Code: dom.CodeNetwork, Message: err.Error()}
	}

	var env backendEnvelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			// Some backend failures are plain text; keep it as the message.
			env.Message = strings.TrimSpace(string(raw))
		}
	}
	return env, resp.StatusCode, nil
}

func decodeFailure(status int, env backendEnvelope) *dom.Error {
	msg := env.message()
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &dom.Error{Code: dom.CodeUnauthorized, Message: msg}
	case status >= 400 && status < 500:
		return &dom.Error{Code: dom.CodeValidation, Message: msg}
	default:
		return &dom.Error{Code: dom.CodeServer, Message: msg}
	}
}
