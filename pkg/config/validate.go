package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/hostsolo/hostsolo/pkg/errdefs"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their YAML key rather than the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("cronspec", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})

	return v
}

// Validate checks the normalized config. It returns a *errdefs.ValidationError
// naming the first offending field.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return toValidationError("", err)
	}

	if c.Environments.Len() == 0 {
		return errdefs.Invalid("environments", "at least one environment is required")
	}

	for _, name := range c.Environments.Keys() {
		env, _ := c.Environments.Get(name)
		if err := validate.Struct(env); err != nil {
			return toValidationError("environments."+name, err)
		}
	}

	for _, name := range c.Apps.Keys() {
		app, _ := c.Apps.Get(name)
		if err := validate.Struct(app); err != nil {
			return toValidationError("apps."+name, err)
		}
	}

	return nil
}

// NextBackupRuns returns the next n times the backup schedule fires after from.
func (c *Config) NextBackupRuns(from time.Time, n int) ([]time.Time, error) {
	sched, err := cron.ParseStandard(c.Backup.Schedule)
	if err != nil {
		return nil, errdefs.Invalid("backup.schedule", fmt.Sprintf("invalid cron expression %q", c.Backup.Schedule))
	}

	runs := make([]time.Time, 0, n)
	next := from
	for i := 0; i < n; i++ {
		next = sched.Next(next)
		runs = append(runs, next)
	}
	return runs, nil
}

func toValidationError(prefix string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &errdefs.ValidationError{Field: prefix, Message: "invalid configuration", Err: err}
	}

	fe := verrs[0]

	// Namespace is "Config.backup.schedule"; drop the root type name.
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	if prefix != "" {
		field = prefix + "." + field
	}

	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "min":
		msg = fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		msg = fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "cronspec":
		msg = fmt.Sprintf("invalid cron expression %q", fe.Value())
	case "hostname_rfc1123":
		msg = fmt.Sprintf("%q is not a valid subdomain", fe.Value())
	default:
		msg = fmt.Sprintf("failed %q check", fe.Tag())
	}

	return errdefs.Invalid(field, msg)
}
