package server

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"example.com/budget-tracker/backend/internal/models"
)

type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator создает валидатор с JSON-именами полей и правилом tone.
func NewValidator() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("tone", func(fl validator.FieldLevel) bool {
		switch models.Tone(fl.Field().String()) {
		case models.ToneIncome, models.ToneExpense:
			return true
		}
		return false
	})

	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}
