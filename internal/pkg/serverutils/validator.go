package serverutils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest runs struct tag validation and folds the failures into a
// single 400 AppError so the error middleware can render them in one envelope.
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return NewAppError(400, "Invalid request body", err)
		}
		reasons := make([]string, 0, len(validationErrors))
		for _, fe := range validationErrors {
			reasons = append(reasons, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
		}
		return NewAppError(400, "Validation failed: "+strings.Join(reasons, ", "), err)
	}
	return nil
}
