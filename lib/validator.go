package lib

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-playground/validator/v10"
)

type CustomValidator struct {
	Validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.Validator.Struct(i)
}

var customTags = map[string]validator.Func{
	"evm_address": func(fl validator.FieldLevel) bool {
		return common.IsHexAddress(fl.Field().String())
	},
	"tx_hash": func(fl validator.FieldLevel) bool {
		b, err := hexutil.Decode(fl.Field().String())
		return err == nil && len(b) == common.HashLength
	},
}

func registerTags(v *validator.Validate, tags map[string]validator.Func) error {
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %q validation: %w", tag, err)
		}
	}
	return nil
}

// NewCustomValidator adds the evm_address and tx_hash tags to the stock validator.
// It panics if a tag cannot be registered.
func NewCustomValidator() *CustomValidator {
	v := validator.New()
	if err := registerTags(v, customTags); err != nil {
		panic(err)
	}
	return &CustomValidator{Validator: v}
}
