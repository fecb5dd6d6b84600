package settings

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/nosan/embedded-cassandra-sub005/internal/errdefs"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	propKeyPattern  = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)
	envKeyPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	nodeNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]*$`)
)

// GetValidator returns the shared validator with the node-specific rules registered.
func GetValidator() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("propkey", func(fl validator.FieldLevel) bool {
			return propKeyPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("envkey", func(fl validator.FieldLevel) bool {
			return envKeyPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("nodename", func(fl validator.FieldLevel) bool {
			return nodeNamePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("regexp", func(fl validator.FieldLevel) bool {
			_, err := regexp.Compile(fl.Field().String())
			return err == nil
		})
		validateInst = v
	})
	return validateInst
}

// ValidateStruct runs the shared validator and reports the first failure as a ConfigError.
func ValidateStruct(s any) error {
	return convertValidationError(GetValidator().Struct(s))
}

// convertValidationError turns the first validator failure into a ConfigError.
func convertValidationError(err error) error {
	if err == nil {
		return nil
	}
	if ves, ok := err.(validator.ValidationErrors); ok && len(ves) > 0 {
		ve := ves[0]
		field := fieldName(ve)
		return errdefs.NewConfigError(field, fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag()), err)
	}
	return errdefs.NewConfigError("", err.Error(), err)
}

func fieldName(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, part := range parts {
		name, index, _ := strings.Cut(part, "[")
		parts[i] = strings.ToLower(name)
		if index != "" {
			parts[i] += "[" + index
		}
	}
	return strings.Join(parts, ".")
}
