package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

type Error struct {
	Status int
	Code   string
	Err    error
	Fields FieldErrors
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

const (
	CodeValidation   = "validation_error"
	CodeBadRequest   = "bad_request"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeNotRelated   = "not_related"
	CodeForbidden    = "forbidden"
	CodeUnauthorized = "unauthorized"
	CodeRateLimited  = "rate_limited"
)

func BadRequest(msg string) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, errors.New(msg))
}

func NotFound(what string) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf("%s not found", what))
}

// Conflict and NotRelated both answer 400: the pair already exists, or does
// not exist, for the requesting user.
func Conflict(msg string) *Error {
	return New(http.StatusBadRequest, CodeConflict, errors.New(msg))
}

func NotRelated(msg string) *Error {
	return New(http.StatusBadRequest, CodeNotRelated, errors.New(msg))
}

func Forbidden(msg string) *Error {
	return New(http.StatusForbidden, CodeForbidden, errors.New(msg))
}

func Unauthorized(msg string) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, errors.New(msg))
}

func RateLimited(msg string) *Error {
	return New(http.StatusTooManyRequests, CodeRateLimited, errors.New(msg))
}

// Validation wraps per-field messages into a 400 response.
func Validation(fields FieldErrors) *Error {
	return &Error{
		Status: http.StatusBadRequest,
		Code:   CodeValidation,
		Err:    errors.New("validation failed"),
		Fields: fields,
	}
}

// FieldInvalid is shorthand for a validation error on a single field.
func FieldInvalid(field string, messages ...string) *Error {
	fe := FieldErrors{}
	for _, m := range messages {
		fe.Add(field, m)
	}
	return Validation(fe)
}

// FieldErrors collects messages keyed by the JSON field name.
type FieldErrors map[string][]string

func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

// Merge copies the fields of a validation error into f. It reports false for
// any other error so callers can return it unchanged.
func (f FieldErrors) Merge(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Code != CodeValidation {
		return false
	}
	for field, msgs := range apiErr.Fields {
		f[field] = append(f[field], msgs...)
	}
	return true
}

// Err returns nil when no field failed.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return Validation(f)
}

func (f FieldErrors) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasCode reports whether err is an *Error carrying code.
func HasCode(err error, code string) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
