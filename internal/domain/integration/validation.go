package integration

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Errors name fields the way the platform sends them
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the structural constraints of the connector and its
// settings. A failure is a validator.ValidationErrors.
func (c *Connector) Validate() error {
	return validate.Struct(c)
}

// Validate checks the structural constraints of the settings. A failure is a
// validator.ValidationErrors.
func (s *ConnectorSettings) Validate() error {
	return validate.Struct(s)
}
