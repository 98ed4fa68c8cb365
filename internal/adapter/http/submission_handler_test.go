package http

import (
	"context"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"loan-intake-service/internal/adapter/repository/memory"
	"loan-intake-service/internal/adapter/repository/sqlkv"
	"loan-intake-service/internal/domain/document"
	dom "loan-intake-service/internal/domain/origination"
	"loan-intake-service/internal/domain/session"
	"loan-intake-service/internal/infrastructure/db"
	"loan-intake-service/internal/testutil/originationmock"
	"loan-intake-service/internal/usecase/precheck"
	"loan-intake-service/internal/usecase/submission"
	"loan-intake-service/internal/usecase/uploadqueue"

	"github.com/labstack/echo/v4"
)

type submissionFixture struct {
	e       *echo.Echo
	store   *memory.SessionStore
	client  *originationmock.Client
	queue   *uploadqueue.Queue
	handler *SubmissionHandler
	sessID  string
}

func newSubmissionFixture(t *testing.T) *submissionFixture {
	t.Helper()

	gdb, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	kvs, err := sqlkv.New(gdb)
	if err != nil {
		t.Fatalf("sqlkv: %v", err)
	}
	queue := uploadqueue.New(kvs)

	store := memory.NewSessionStore()
	client := &originationmock.Client{
		SubmitApplicationFn: func(ctx context.Context, credential string, app dom.Application) (dom.SubmitResult, error) {
			return dom.SubmitResult{ApplicationID: "APP-900"}, nil
		},
		UploadDocumentFn: func(ctx context.Context, credential, applicationID, typeCode string, content []byte) (dom.UploadResult, error) {
			return dom.UploadResult{DocumentID: "DOC-1"}, nil
		},
	}
	orch := submission.NewOrchestrator(store, client, queue, discardLogger())

	sess, err := store.Create(context.Background())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	seedComplete(t, store, sess.ID)

	return &submissionFixture{
		e:       newEchoWithValidator(),
		store:   store,
		client:  client,
		queue:   queue,
		handler: NewSubmissionHandler(orch, queue),
		sessID:  sess.ID,
	}
}

func seedComplete(t *testing.T, store *memory.SessionStore, sessionID string) {
	t.Helper()
	ctx := context.Background()
	name := "Ana Surya"
	idnum := "3204 1123 4567 8901"
	phone := "081234567890"
	province := "Jawa Barat"
	branch := "Bandung Utara"
	if _, err := store.SetCustomer(ctx, sessionID, session.PartialCustomer{
		FullName: &name, IdentityNumber: &idnum, Phone: &phone,
		Province: &province, BranchName: &branch,
	}); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	amount := 25000000.0
	tenor := 12
	purpose := "working capital"
	if _, err := store.SetLoan(ctx, sessionID, session.PartialLoan{
		Amount: &amount, TenorMonths: &tenor, Purpose: &purpose,
	}); err != nil {
		t.Fatalf("seed loan: %v", err)
	}
}

func seedVerifiedDoc(t *testing.T, store *memory.SessionStore, sessionID string, kind document.Kind, content []byte) {
	t.Helper()
	doc := &document.Document{
		Kind:        kind,
		Status:      document.StatusVerified,
		Content:     content,
		Fingerprint: precheck.Fingerprint(content),
		SizeBytes:   int64(len(content)),
		MimeType:    "image/png",
		AttachedAt:  time.Now().UTC(),
	}
	if err := store.UpsertDocument(context.Background(), sessionID, doc); err != nil {
		t.Fatalf("seed doc: %v", err)
	}
}

func TestEnsureApplication_Handler(t *testing.T) {
	f := newSubmissionFixture(t)

	req := httptest.NewRequest(stdhttp.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(f.sessID)

	if err := f.handler.EnsureApplication(c); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["application_id"] != "APP-900" {
		t.Fatalf("application_id = %q", body["application_id"])
	}
	if f.client.SubmitCalls != 1 {
		t.Fatalf("submit calls = %d, want 1", f.client.SubmitCalls)
	}
}

func TestEnsureApplication_IncompleteCustomer(t *testing.T) {
	f := newSubmissionFixture(t)

	// fresh session without any data
	empty, _ := f.store.Create(context.Background())

	req := httptest.NewRequest(stdhttp.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(empty.ID)

	if err := f.handler.EnsureApplication(c); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var body ErrorResponse
	decodeBody(t, rec, &body)
	if body.Code != "incomplete" {
		t.Fatalf("code = %q", body.Code)
	}
}

func TestSubmit_ReportsOutcomes(t *testing.T) {
	f := newSubmissionFixture(t)
	seedVerifiedDoc(t, f.store, f.sessID, document.KindSelfie, pngBytes(t, 4, 4))

	req := httptest.NewRequest(stdhttp.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(f.sessID)

	if err := f.handler.Submit(c); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body submitResponse
	decodeBody(t, rec, &body)
	if len(body.Outcomes) != 1 {
		t.Fatalf("outcomes = %+v", body.Outcomes)
	}
	if body.Outcomes[0].Status != document.StatusUploaded {
		t.Fatalf("outcome status = %s", body.Outcomes[0].Status)
	}
}

func TestPendingUploads_ListsQueuedRetries(t *testing.T) {
	f := newSubmissionFixture(t)
	seedVerifiedDoc(t, f.store, f.sessID, document.KindBankStatement, pngBytes(t, 4, 4))

	// backend flags the application as awaiting approval
	f.client.UploadDocumentFn = func(ctx context.Context, credential, applicationID, typeCode string, content []byte) (dom.UploadResult, error) {
		return dom.UploadResult{PendingApproval: true}, nil
	}

	req := httptest.NewRequest(stdhttp.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(f.sessID)
	if err := f.handler.Submit(c); err != nil {
		t.Fatalf("submit: %v", err)
	}

	req = httptest.NewRequest(stdhttp.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	c = f.e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(f.sessID)
	if err := f.handler.PendingUploads(c); err != nil {
		t.Fatalf("pending: %v", err)
	}

	var body struct {
		Pending []pendingUploadView `json:"pending"`
	}
	decodeBody(t, rec, &body)
	if len(body.Pending) != 1 {
		t.Fatalf("pending = %+v", body.Pending)
	}
	if body.Pending[0].Kind != document.KindBankStatement {
		t.Fatalf("kind = %s", body.Pending[0].Kind)
	}
	if body.Pending[0].TypeCode != "04" {
		t.Fatalf("type code = %s", body.Pending[0].TypeCode)
	}
}

func TestRetryUploads_DrainsQueue(t *testing.T) {
	f := newSubmissionFixture(t)
	seedVerifiedDoc(t, f.store, f.sessID, document.KindSelfie, pngBytes(t, 4, 4))

	f.client.UploadDocumentFn = func(ctx context.Context, credential, applicationID, typeCode string, content []byte) (dom.UploadResult, error) {
		return dom.UploadResult{PendingApproval: true}, nil
	}
	req := httptest.NewRequest(stdhttp.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(f.sessID)
	if err := f.handler.Submit(c); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// approval granted: uploads start sticking
	f.client.UploadDocumentFn = func(ctx context.Context, credential, applicationID, typeCode string, content []byte) (dom.UploadResult, error) {
		return dom.UploadResult{DocumentID: "DOC-7"}, nil
	}

	req = httptest.NewRequest(stdhttp.MethodPost, "/", nil)
	rec = httptest.NewRecorder()
	c = f.e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(f.sessID)
	if err := f.handler.RetryUploads(c); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	entries, err := f.queue.Entries(context.Background(), f.sessID)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("queue should be empty after successful retry, got %+v", entries)
	}
}
