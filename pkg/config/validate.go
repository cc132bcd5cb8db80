package config

import (
	"math"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/layouttune/pkg/errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
			return errors.ValidateDeclarationName(fl.Field().String()) == nil
		})
		_ = v.RegisterValidation("format_token", func(fl validator.FieldLevel) bool {
			return errors.ValidateFormatToken(fl.Field().String()) == nil
		})
		_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
			d, err := time.ParseDuration(fl.Field().String())
			return err == nil && d >= 0
		})
		_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
			f := fl.Field().Float()
			return !math.IsNaN(f) && !math.IsInf(f, 0)
		})
		v.RegisterStructValidation(engineRules, Config{})
		validate = v
	})
	return validate
}

// engineRules checks the fields each engine needs.
func engineRules(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	switch c.Engine {
	case EngineToolchain:
		if c.Source.Path == "" {
			sl.ReportError(c.Source.Path, "source.path", "Path", "required_for_toolchain", "")
		}
		if len(c.Build.Command) == 0 || c.Build.Command[0] == "" {
			sl.ReportError(c.Build.Command, "build.command", "Command", "required_for_toolchain", "")
		}
		if c.Render.Executable == "" {
			sl.ReportError(c.Render.Executable, "render.executable", "Executable", "required_for_toolchain", "")
		}
		if c.Render.Input == "" {
			sl.ReportError(c.Render.Input, "render.input", "Input", "required_for_toolchain", "")
		}
	case EngineGraphviz:
		if c.Graphviz.Input == "" {
			sl.ReportError(c.Graphviz.Input, "graphviz.input", "Input", "required_for_graphviz", "")
		}
	}
}

// Validate checks c and returns an INVALID_CONFIG error describing every
// violation.
func (c *Config) Validate() error {
	err := validatorInstance().Struct(c)
	if err == nil {
		return errors.ValidateDeclarationNames(c.Declarations().Names())
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "validate config")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(errors.ErrCodeInvalidConfig, "invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_for_toolchain", "required_for_graphviz":
		return field + " is required"
	case "oneof":
		return field + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return field + " must not be empty"
	case "identifier":
		return field + " must be an identifier"
	case "duration":
		return field + " must be a duration such as 90s or 10m"
	case "finite":
		return field + " must be a finite number"
	case "format_token":
		return field + " must be a single word"
	}
	return field + " failed " + fe.Tag()
}
