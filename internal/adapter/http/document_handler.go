package http

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"loan-intake-service/internal/domain/document"
	"loan-intake-service/internal/usecase/precheck"
)

type DocumentHandler struct{ engine *precheck.Engine }

func NewDocumentHandler(engine *precheck.Engine) *DocumentHandler {
	return &DocumentHandler{engine: engine}
}

func kindParam(c echo.Context) (document.Kind, bool) {
	kind := document.Kind(c.Param("kind"))
	return kind, kind.Valid()
}

// AttachDocument reads the multipart "file" part and runs the pre-check
// pipeline. The response carries the document in its verifying state;
// verification finishes asynchronously.
func (h *DocumentHandler) AttachDocument(c echo.Context) error {
	kind, ok := kindParam(c)
	if !ok {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Code: "unknown_kind", Error: "unknown document kind"})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "bad_request", Error: "multipart field \"file\" is required"})
	}
	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "bad_request", Error: "could not open uploaded file"})
	}
	defer src.Close()

	content, err := io.ReadAll(io.LimitReader(src, precheck.MaxDocumentBytes+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "bad_request", Error: "could not read uploaded file"})
	}

	doc, err := h.engine.Attach(c.Request().Context(), c.Param("session_id"), kind, content)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, doc)
}

func (h *DocumentHandler) RemoveDocument(c echo.Context) error {
	kind, ok := kindParam(c)
	if !ok {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Code: "unknown_kind", Error: "unknown document kind"})
	}
	if err := h.engine.Remove(c.Request().Context(), c.Param("session_id"), kind); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
