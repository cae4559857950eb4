package contextutils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs the validate tags of v and converts failures to an INVALID_INPUT AppError
// naming every offending field.
func ValidateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewAppErrorWithCause(ErrorCodeInvalidInput, SeverityWarn, "Invalid input", err.Error(), err)
	}

	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			details = append(details, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			details = append(details, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return NewAppErrorWithCause(ErrorCodeInvalidInput, SeverityWarn, "Invalid input", strings.Join(details, "; "), err)
}

// IsValidVar validates a single value against a validator tag expression.
func IsValidVar(value interface{}, tag string) bool {
	return validate.Var(value, tag) == nil
}
