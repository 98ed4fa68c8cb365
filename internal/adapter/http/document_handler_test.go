package http

import (
	"context"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"loan-intake-service/internal/adapter/repository/memory"
	"loan-intake-service/internal/domain/document"
	"loan-intake-service/internal/usecase/merge"
	"loan-intake-service/internal/usecase/precheck"

	"github.com/benbjohnson/clock"
	"github.com/labstack/echo/v4"
)

// The mock clock never advances in these tests, so attached documents stay in
// their verifying state and no merge work runs.
func newDocumentFixture(t *testing.T) (*echo.Echo, *DocumentHandler, *memory.SessionStore, string) {
	t.Helper()
	e := newEchoWithValidator()
	store := memory.NewSessionStore()
	engine := precheck.NewEngine(store, clock.NewMock(), merge.NewEngine(store, discardLogger()), discardLogger())
	sess, err := store.Create(context.Background())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return e, NewDocumentHandler(engine), store, sess.ID
}

func TestAttachDocument_Success(t *testing.T) {
	e, h, store, sessionID := newDocumentFixture(t)

	body, contentType := multipartFile(t, "file", "front.png", pngBytes(t, 8, 8))
	req := httptest.NewRequest(stdhttp.MethodPost, "/", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id", "kind")
	c.SetParamValues(sessionID, string(document.KindIDFront))

	if err := h.AttachDocument(c); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var doc document.Document
	decodeBody(t, rec, &doc)
	if doc.Status != document.StatusVerifying {
		t.Fatalf("status = %s, want verifying", doc.Status)
	}
	if doc.Fingerprint == "" {
		t.Fatal("expected a fingerprint")
	}

	sess, _ := store.Get(context.Background(), sessionID)
	if sess.Document(document.KindIDFront) == nil {
		t.Fatal("document not in session")
	}
}

func TestAttachDocument_UnknownKind(t *testing.T) {
	e, h, _, sessionID := newDocumentFixture(t)

	body, contentType := multipartFile(t, "file", "x.png", pngBytes(t, 4, 4))
	req := httptest.NewRequest(stdhttp.MethodPost, "/", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id", "kind")
	c.SetParamValues(sessionID, "tax-return")

	if err := h.AttachDocument(c); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestAttachDocument_MissingFilePart(t *testing.T) {
	e, h, _, sessionID := newDocumentFixture(t)

	req := httptest.NewRequest(stdhttp.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id", "kind")
	c.SetParamValues(sessionID, string(document.KindSelfie))

	if err := h.AttachDocument(c); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAttachDocument_UnsupportedContent(t *testing.T) {
	e, h, _, sessionID := newDocumentFixture(t)

	body, contentType := multipartFile(t, "file", "notes.txt", []byte("plain text, not a scan"))
	req := httptest.NewRequest(stdhttp.MethodPost, "/", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id", "kind")
	c.SetParamValues(sessionID, string(document.KindPayslip1))

	if err := h.AttachDocument(c); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestRemoveDocument(t *testing.T) {
	e, h, store, sessionID := newDocumentFixture(t)

	// attach first
	body, contentType := multipartFile(t, "file", "front.png", pngBytes(t, 8, 8))
	req := httptest.NewRequest(stdhttp.MethodPost, "/", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id", "kind")
	c.SetParamValues(sessionID, string(document.KindIDFront))
	if err := h.AttachDocument(c); err != nil || rec.Code != stdhttp.StatusCreated {
		t.Fatalf("attach: err=%v code=%d", err, rec.Code)
	}

	req = httptest.NewRequest(stdhttp.MethodDelete, "/", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("session_id", "kind")
	c.SetParamValues(sessionID, string(document.KindIDFront))
	if err := h.RemoveDocument(c); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	sess, _ := store.Get(context.Background(), sessionID)
	if sess.Document(document.KindIDFront) != nil {
		t.Fatal("document still present after remove")
	}
}

func TestRemoveDocument_Missing(t *testing.T) {
	e, h, _, sessionID := newDocumentFixture(t)

	req := httptest.NewRequest(stdhttp.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id", "kind")
	c.SetParamValues(sessionID, string(document.KindSelfie))

	if err := h.RemoveDocument(c); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
