package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"loan-intake-service/internal/adapter/middleware"
	dom "loan-intake-service/internal/domain/origination"
	"loan-intake-service/internal/usecase/customer"
)

type CustomerHandler struct{ uc *customer.Usecase }

func NewCustomerHandler(uc *customer.Usecase) *CustomerHandler {
	return &CustomerHandler{uc: uc}
}

type registerCustomerReq struct {
	FullName       string `json:"full_name" validate:"required,min=3"`
	IdentityNumber string `json:"identity_number" validate:"required,idnum"`
	Phone          string `json:"phone" validate:"required,phone"`
	Email          string `json:"email" validate:"omitempty,email"`
}

// RegisterCustomer creates the customer record upstream and blocks until the
// review decision lands or the poll budget runs out.
func (h *CustomerHandler) RegisterCustomer(c echo.Context) error {
	var req registerCustomerReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.uc.Register(c.Request().Context(), middleware.Credential(c), dom.CustomerRequest{
		FullName:       req.FullName,
		IdentityNumber: req.IdentityNumber,
		Phone:          req.Phone,
		Email:          req.Email,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}
