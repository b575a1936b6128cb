package validators

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	rules "github.com/threadloom/storefront-backend/pkg/checkout"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
)

const maxBodyBytes = 1 << 20

var validate = rules.NewValidator()

// DecodeJSONBody decodes a single JSON object, rejecting unknown fields, and
// runs struct validation on the result.
func DecodeJSONBody(r *http.Request, dest any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return pkgerrors.New(pkgerrors.CodeValidation, "request body is required")
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").WithDetails(map[string]any{"error": err.Error()})
	}
	return ValidateStruct(dest)
}

// ValidateStruct reports every failing field as a VALIDATION_ERROR.
func ValidateStruct(dest any) error {
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *pkgerrors.Error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		fields := pkgerrors.FieldErrors{}
		for _, fieldErr := range errs {
			fields[fieldErr.Field()] = rules.Message(fieldErr)
		}
		return pkgerrors.Validation(fields)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}
