package validator

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/kamalbuilds/movetracer/movement"
)

var (
	once sync.Once
	v    *validator.Validate

	addressPattern = regexp.MustCompile(`^(0[xX])?[0-9a-fA-F]{1,64}$`)
	hashPattern    = regexp.MustCompile(`^0[xX][0-9a-fA-F]{64}$`)
)

func validateAddress(fl validator.FieldLevel) bool {
	return addressPattern.MatchString(fl.Field().String())
}

func validateFunctionID(fl validator.FieldLevel) bool {
	_, err := movement.ParseFunctionID(fl.Field().String())
	return err == nil
}

func validateTxHash(fl validator.FieldLevel) bool {
	return hashPattern.MatchString(fl.Field().String())
}

// Validator returns a singleton that can be used to validate various objects
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New()

		for tag, fn := range map[string]validator.Func{
			"move_address": validateAddress,
			"function_id":  validateFunctionID,
			"tx_hash":      validateTxHash,
		} {
			if err := v.RegisterValidation(tag, fn); err != nil {
				panic("failed to register validation: " + err.Error())
			}
		}
	})
	return v
}
