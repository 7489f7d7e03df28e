// Package validation configures go-playground/validator for request and
// fixture structs and turns its errors into field messages.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/pageza/larder/backend/internal/apierr"
)

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

	registerOnce sync.Once
	registerErr  error
)

// Configure installs JSON field naming and the custom "username" and "slug" rules.
func Configure(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form", "yaml"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
}

// Register configures gin's binding engine once per process.
func Register() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin binding engine is not go-playground/validator")
			return
		}
		registerErr = Configure(v)
	})
	return registerErr
}

// Validator checks structs tagged with `validate:"..."`.
type Validator struct {
	v *validator.Validate
}

func New() (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := Configure(v); err != nil {
		return nil, err
	}
	return &Validator{v: v}, nil
}

func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return Translate(err)
	}
	return nil
}

// Translate converts binding and validation failures into API errors:
// validator errors become per-field messages, malformed JSON a 400.
func Translate(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := apierr.FieldErrors{}
		for _, e := range validationErrs {
			fields.Add(fieldPath(e), friendlyMessage(e))
		}
		return apierr.Validation(fields)
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return apierr.BadRequest("malformed JSON body")
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return apierr.FieldInvalid(field, fmt.Sprintf("must be of type %s", typeErr.Type))
	}
	return apierr.BadRequest(err.Error())
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return "must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", e.Param())
		}
		return "must not exceed " + e.Param()
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "username":
		return "may contain only letters, digits and @/./+/-/_"
	case "slug":
		return "may contain only letters, digits, hyphens and underscores"
	default:
		return "is invalid"
	}
}
