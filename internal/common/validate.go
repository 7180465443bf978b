package common

import (
	"errors"
	"io"
	"net/http"

	validator "github.com/go-playground/validator/v10"
)

// NewValidator returns the validator shared by request handlers.
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// DecodeValid decodes a JSON body into dst and runs struct validation on it.
// Validation failures become 400 VALIDATION_FAILED with one detail per field.
func DecodeValid(r io.Reader, v *validator.Validate, dst any) error {
	if err := DecodeJSON(r, dst); err != nil {
		return err
	}
	if err := v.Struct(dst); err != nil {
		return NewAppError("VALIDATION_FAILED", "request failed validation", http.StatusBadRequest, err).
			WithDetails(validationDetails(err))
	}
	return nil
}

func validationDetails(err error) []map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]map[string]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, map[string]string{"field": fe.Namespace(), "rule": fe.Tag()})
	}
	return out
}
