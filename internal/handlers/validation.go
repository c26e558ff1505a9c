package handlers

import (
	"fmt"
	"reflect"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/emilythestrangee/vamp/backend/internal/applications"
	"github.com/emilythestrangee/vamp/backend/internal/models"
)

// RegisterValidators adds the request tags used by the handler inputs to
// gin's validator engine.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	if err := v.RegisterValidation("decimal_positive", decimalPositive); err != nil {
		return err
	}
	return v.RegisterValidation("review_status", reviewStatus)
}

// decimalValue lets tags see a decimal as its string form.
func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func decimalPositive(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	return err == nil && d.IsPositive()
}

// reviewStatus accepts only the statuses a sponsor can move an application to.
func reviewStatus(fl validator.FieldLevel) bool {
	status := models.ApplicationStatus(fl.Field().String())
	for _, s := range applications.SponsorTargets() {
		if s == status {
			return true
		}
	}
	return false
}
