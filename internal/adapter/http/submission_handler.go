package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"loan-intake-service/internal/adapter/middleware"
	"loan-intake-service/internal/domain/document"
	"loan-intake-service/internal/domain/upload"
	"loan-intake-service/internal/usecase/submission"
)

type SubmissionHandler struct {
	orch  *submission.Orchestrator
	queue upload.Queue
}

func NewSubmissionHandler(orch *submission.Orchestrator, queue upload.Queue) *SubmissionHandler {
	return &SubmissionHandler{orch: orch, queue: queue}
}

func (h *SubmissionHandler) EnsureApplication(c echo.Context) error {
	appID, err := h.orch.EnsureApplication(c.Request().Context(), middleware.Credential(c), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"application_id": appID})
}

type submitResponse struct {
	Outcomes []submission.UploadOutcome `json:"outcomes"`
}

// Submit creates the application if needed and uploads every verified
// document. Per-document failures are reported in the outcome list, not as
// request errors.
func (h *SubmissionHandler) Submit(c echo.Context) error {
	outcomes, err := h.orch.SubmitAll(c.Request().Context(), middleware.Credential(c), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, submitResponse{Outcomes: outcomes})
}

func (h *SubmissionHandler) UploadDocument(c echo.Context) error {
	kind, ok := kindParam(c)
	if !ok {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Code: "unknown_kind", Error: "unknown document kind"})
	}
	if err := h.orch.UploadDocument(c.Request().Context(), middleware.Credential(c), c.Param("session_id"), kind); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SubmissionHandler) RetryUploads(c echo.Context) error {
	outcomes, err := h.orch.DrainPendingUploads(c.Request().Context(), middleware.Credential(c), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, submitResponse{Outcomes: outcomes})
}

type pendingUploadView struct {
	Kind     document.Kind `json:"kind"`
	TypeCode string        `json:"type_code"`
	QueuedAt time.Time     `json:"queued_at"`
}

// PendingUploads lists queued retries without their payloads.
func (h *SubmissionHandler) PendingUploads(c echo.Context) error {
	entries, err := h.queue.Entries(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	views := make([]pendingUploadView, 0, len(entries))
	for _, e := range entries {
		views = append(views, pendingUploadView{Kind: e.Kind, TypeCode: e.TypeCode, QueuedAt: e.QueuedAt})
	}
	return c.JSON(http.StatusOK, map[string]any{"pending": views})
}
