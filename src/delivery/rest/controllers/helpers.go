package controllers

import (
	"fmt"
	"strings"

	"github.com/seatvault/reservation-engine/src/internal/domain"

	"github.com/go-playground/validator/v10"
)

// validate is shared across every controller's request DTOs; a single
// instance is safe for concurrent use and caches each struct's parsed
// tags on first validation.
var validate = validator.New()

func validationError(msg string) error {
	return domain.NewValidationError(msg, nil)
}

// validateStruct runs the `validate` struct tags on req (e.g.
// `validate:"required"` on reserveRequest.SeatID) and collapses any
// failures into one ValidationError naming the offending fields.
func validateStruct(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		var fields []string
		for _, fe := range err.(validator.ValidationErrors) {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return validationError(fmt.Sprintf("validation failed: %s", strings.Join(fields, ", ")))
	}
	return nil
}
