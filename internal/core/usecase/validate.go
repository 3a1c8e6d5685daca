package usecase

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rbroggi/gatherly/internal/core/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields with the names clients send them with
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// validateArgs validates use-case arguments and translates failures into a *model.ValidationError.
func validateArgs(args any) error {
	err := validate.Struct(args)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("error validating arguments: %w", err)
	}
	validationErr := &model.ValidationError{Fields: make([]model.FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		validationErr.Fields = append(validationErr.Fields, model.FieldError{
			Field: fe.Field(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return validationErr
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}
