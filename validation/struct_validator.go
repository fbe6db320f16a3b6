package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/vaultkit/errors"
)

// fieldTags are consulted in order for the name reported in a FieldError,
// so errors use the same key the value was configured under.
var fieldTags = []string{"mapstructure", "json", "yaml"}

var structValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	_ = v.RegisterValidation("ttl", func(fl validator.FieldLevel) bool {
		_, err := ParseTTL(fl.Field().String())
		return err == nil
	})
	return v
})

func fieldName(fld reflect.StructField) string {
	for _, tag := range fieldTags {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		switch name {
		case "":
			continue
		case "-":
			return toSnakeCase(fld.Name)
		}
		return name
	}
	return toSnakeCase(fld.Name)
}

// Validate checks s against its `validate` struct tags. Besides the
// validator built-ins, `ttl` accepts a Vault duration ("30s", "3600").
// Failures come back as one KindValidation error carrying every field.
func Validate(s any) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(errors.KindValidation, err, "validation failed")
	}

	fields := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = FieldError{Field: fe.Field(), Message: tagMessage(fe)}
	}
	return fieldsError(fields)
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url", "http_url":
		return "must be a valid URL"
	case "ttl":
		return "must be a duration such as 30s, 5m or 3600"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	}
	return "is invalid"
}

// toSnakeCase turns a Go field name into the snake_case key Vault and the
// config files use. Acronyms stay together: TLSServerName is
// tls_server_name.
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
