package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"loan-intake-service/internal/domain/session"
)

type SessionHandler struct{ store session.Store }

func NewSessionHandler(store session.Store) *SessionHandler {
	return &SessionHandler{store: store}
}

func (h *SessionHandler) CreateSession(c echo.Context) error {
	sess, err := h.store.Create(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *SessionHandler) GetSession(c echo.Context) error {
	sess, err := h.store.Get(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

type patchCustomerReq struct {
	FullName       *string `json:"full_name,omitempty" validate:"omitempty,min=3"`
	IdentityNumber *string `json:"identity_number,omitempty" validate:"omitempty,idnum"`
	Phone          *string `json:"phone,omitempty" validate:"omitempty,phone"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email"`
	Province       *string `json:"province,omitempty"`
	BranchName     *string `json:"branch_name,omitempty"`
}

func (h *SessionHandler) PatchCustomer(c echo.Context) error {
	var req patchCustomerReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	sess, err := h.store.SetCustomer(c.Request().Context(), c.Param("session_id"), session.PartialCustomer{
		FullName:       req.FullName,
		IdentityNumber: req.IdentityNumber,
		Phone:          req.Phone,
		Email:          req.Email,
		Province:       req.Province,
		BranchName:     req.BranchName,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

type patchLoanReq struct {
	Amount      *float64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
	TenorMonths *int     `json:"tenor_months,omitempty" validate:"omitempty,gt=0"`
	Purpose     *string  `json:"purpose,omitempty"`
}

func (h *SessionHandler) PatchLoan(c echo.Context) error {
	var req patchLoanReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	sess, err := h.store.SetLoan(c.Request().Context(), c.Param("session_id"), session.PartialLoan{
		Amount:      req.Amount,
		TenorMonths: req.TenorMonths,
		Purpose:     req.Purpose,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

type setStepReq struct {
	StepIndex int `json:"step_index" validate:"gte=0,lte=10"`
}

func (h *SessionHandler) SetStep(c echo.Context) error {
	var req setStepReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if err := h.store.SetStep(c.Request().Context(), c.Param("session_id"), req.StepIndex); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SessionHandler) ResetSession(c echo.Context) error {
	if err := h.store.Reset(c.Request().Context(), c.Param("session_id")); err != nil {
		return writeError(c, err)
	}
	sess, err := h.store.Get(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}
