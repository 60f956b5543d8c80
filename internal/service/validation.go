package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/arena-session-api/pkg/errors"
)

// NewValidator returns a validator that reports fields by their JSON or form name.
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
	return validate
}

// validationError converts a validator failure into a bad request naming the
// first offending field.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return appErrors.WithData(appErrors.ErrValidation, map[string]string{"field": fieldErrs[0].Field()})
	}
	return appErrors.Wrap(err, appErrors.KindBadRequest, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message)
}
