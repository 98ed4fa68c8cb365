package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"loan-intake-service/internal/domain/document"
	"loan-intake-service/internal/domain/draft"
	"loan-intake-service/internal/domain/origination"
	"loan-intake-service/internal/domain/session"
	"loan-intake-service/internal/usecase/customer"
	"loan-intake-service/internal/usecase/submission"
)

// writeError maps domain and backend errors onto HTTP responses.
func writeError(c echo.Context, err error) error {
	var (
		incomplete    *submission.IncompleteError
		missing       *customer.IncompleteError
		notUploadable *submission.NotUploadableError
	)

	switch {
	case errors.Is(err, session.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Code: "not_found", Error: "session not found"})
	case errors.Is(err, document.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Code: "not_found", Error: "document not found"})
	case errors.Is(err, draft.ErrNoDraft):
		return c.JSON(http.StatusNotFound, ErrorResponse{Code: "not_found", Error: "no saved draft"})
	case errors.Is(err, document.ErrDuplicateDocument):
		return c.JSON(http.StatusConflict, ErrorResponse{Code: "duplicate", Error: "identical file already attached under another kind"})
	case errors.Is(err, document.ErrUnsupportedType):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Code: "unsupported_type", Error: "file type must be JPEG, PNG or PDF"})
	case errors.Is(err, document.ErrTooLarge):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Code: "too_large", Error: "file exceeds the maximum allowed size"})
	case errors.Is(err, submission.ErrInvalidBranch):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Code: "invalid_branch", Error: "branch name could not be resolved"})
	case errors.Is(err, customer.ErrDecisionTimeout):
		return c.JSON(http.StatusGatewayTimeout, ErrorResponse{Code: "decision_timeout", Error: err.Error()})
	case errors.As(err, &incomplete):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Code:    "incomplete",
			Error:   err.Error(),
			Details: []FieldError{{Field: incomplete.Step, Message: "is incomplete"}},
		})
	case errors.As(err, &notUploadable):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Code: "not_uploadable", Error: err.Error()})
	case errors.As(err, &missing):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Code:    "incomplete",
			Error:   err.Error(),
			Details: []FieldError{{Field: missing.Field, Message: "is required"}},
		})
	}

	if be, ok := origination.AsError(err); ok {
		switch be.Code {
		case origination.CodeUnauthorized:
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "unauthorized", Error: be.Message})
		case origination.CodeValidation:
			return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Code: "rejected", Error: be.Message})
		default:
			return c.JSON(http.StatusBadGateway, ErrorResponse{Code: "upstream", Error: be.Message})
		}
	}

	return c.JSON(http.StatusInternalServerError, ErrorResponse{Code: "internal", Error: "internal server error"})
}

// bindAndValidate reports ok=false after writing the error response itself.
func bindAndValidate(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Code: "bad_request", Error: "malformed request body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Code:    "validation",
			Error:   "request validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
