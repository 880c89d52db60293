package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ConfigError reports a missing or invalid analysis parameter. It is
// always fatal for the unit being analysed.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs tag validation and converts the first failure into
// a ConfigError naming the offending field.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := fmt.Sprintf("failed %q", fe.Tag())
		if fe.Param() != "" {
			reason = fmt.Sprintf("failed %q (%s), got %v", fe.Tag(), fe.Param(), fe.Value())
		}
		return &ConfigError{Field: fe.Field(), Reason: reason}
	}
	return fmt.Errorf("config: validation: %w", err)
}
