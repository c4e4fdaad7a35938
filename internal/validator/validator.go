// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"captable/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("interest_type", validateInterestType)
		_ = v.RegisterValidation("shareholder_type", validateShareholderType)
		_ = v.RegisterValidation("share_class_type", validateShareClassType)
		_ = v.RegisterValidation("conversion_trigger", validateConversionTrigger)
		_ = v.RegisterValidation("instrument_status", validateInstrumentStatus)
		_ = v.RegisterValidation("decimal_string", validateDecimalString)
	}
}

func validateInterestType(fl validator.FieldLevel) bool {
	switch models.InterestType(fl.Field().String()) {
	case models.InterestSimple, models.InterestCompound:
		return true
	}
	return false
}

func validateShareholderType(fl validator.FieldLevel) bool {
	switch models.ShareholderType(fl.Field().String()) {
	case models.ShareholderTypeIndividual, models.ShareholderTypeEntity:
		return true
	}
	return false
}

func validateShareClassType(fl validator.FieldLevel) bool {
	switch models.ShareClassType(fl.Field().String()) {
	case models.ShareClassTypeCommon, models.ShareClassTypePreferred:
		return true
	}
	return false
}

func validateConversionTrigger(fl validator.FieldLevel) bool {
	switch models.ConversionTrigger(fl.Field().String()) {
	case models.TriggerQualifiedFinancing, models.TriggerMaturity, models.TriggerOptional:
		return true
	}
	return false
}

func validateInstrumentStatus(fl validator.FieldLevel) bool {
	switch models.InstrumentStatus(fl.Field().String()) {
	case models.StatusOutstanding, models.StatusMatured, models.StatusConverted,
		models.StatusRedeemed, models.StatusCancelled:
		return true
	}
	return false
}

// validateDecimalString accepts strings that parse as exact decimals.
// Used for query parameters that carry money values.
func validateDecimalString(fl validator.FieldLevel) bool {
	_, err := decimal.NewFromString(fl.Field().String())
	return err == nil
}
