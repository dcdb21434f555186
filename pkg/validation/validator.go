package validation

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator adapts go-playground/validator to Echo's Validator interface
type RequestValidator struct {
	validator *validator.Validate
}

// NewRequestValidator creates a validator for request binding
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validator: validator.New()}
}

// Validate validates the given struct and converts failures into 400 responses
func (v *RequestValidator) Validate(i interface{}) error {
	if err := v.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
