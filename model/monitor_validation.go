package model

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError maps a form field (by its json name) to the first problem
// found for it.
type ValidationError map[string]string

func (e ValidationError) Error() string {
	fields := make([]string, 0, len(e))
	for k := range e {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, k := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e[k]))
	}
	return "invalid monitor: " + strings.Join(parts, "; ")
}

var schemeOfType = map[string]string{
	MonitorTypeMongoDB:  "mongodb",
	MonitorTypeRedis:    "redis",
	MonitorTypeMySQL:    "mysql",
	MonitorTypePostgres: "postgres",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterStructValidation(monitorFormTypeRules, MonitorForm{})
	return v
}

// monitorFormTypeRules applies the part of the schema that depends on the
// monitor type.
func monitorFormTypeRules(sl validator.StructLevel) {
	f := sl.Current().Interface().(MonitorForm)
	switch f.Type {
	case MonitorTypeTCP:
		if f.URL != "" && sl.Validator().Var(f.URL, "hostname_rfc1123|ip") != nil {
			sl.ReportError(f.URL, "url", "URL", "host", "")
		}
		if f.Port < 1 || f.Port > 65535 {
			sl.ReportError(f.Port, "port", "Port", "port", "")
		}
	case MonitorTypeHTTP:
		if f.URL != "" && !hasScheme(f.URL, "http", "https") {
			sl.ReportError(f.URL, "url", "URL", "scheme", "http")
		}
	case MonitorTypeMongoDB, MonitorTypeRedis, MonitorTypeMySQL, MonitorTypePostgres:
		if f.URL != "" && !hasScheme(f.URL, schemeOfType[f.Type]) {
			sl.ReportError(f.URL, "url", "URL", "scheme", schemeOfType[f.Type])
		}
	}
}

func hasScheme(raw string, schemes ...string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) || strings.EqualFold(u.Scheme, s+"+srv") {
			return true
		}
	}
	return false
}

// ValidateMonitorForm checks f against the schema of its type. It returns nil
// or a ValidationError.
func ValidateMonitorForm(f MonitorForm) error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationError{"form": err.Error()}
	}
	ve := make(ValidationError)
	for _, fe := range verrs {
		if _, seen := ve[fe.Field()]; seen {
			continue
		}
		ve[fe.Field()] = fieldMessage(fe)
	}
	return ve
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must be a number", fe.Field())
	case "host":
		return "url must be a host name or IP address"
	case "port":
		return "port must be between 1 and 65535"
	case "scheme":
		return fmt.Sprintf("url must be a %s:// address", fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
