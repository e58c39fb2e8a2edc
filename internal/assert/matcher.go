package assert

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"testpass/internal/domain"
)

// ErrInvalidMatcher is returned by MatchError for values that cannot describe an error.
var ErrInvalidMatcher = errors.New("invalid expected error")

// ErrorShape describes an expected error field by field. Empty fields are
// not checked. Message is a message prefix (string) or a *regexp.Regexp.
type ErrorShape struct {
	Name    string
	Message any
	Code    any
}

// MatchError converts an expected-error value into a matcher.
//
// Accepted values: a func(error) bool predicate; a string, matched as a
// message prefix; a *regexp.Regexp, matched against the message; an error
// value, which requires the same name and message; an ErrorShape.
func MatchError(expected any) (domain.ErrorMatcher, error) {
	switch e := expected.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrInvalidMatcher)
	case domain.ErrorMatcher:
		return e, nil
	case func(error) bool:
		return e, nil
	case string:
		return func(err error) bool {
			return strings.HasPrefix(err.Error(), e)
		}, nil
	case *regexp.Regexp:
		if e == nil {
			return nil, fmt.Errorf("%w: nil regexp", ErrInvalidMatcher)
		}
		return func(err error) bool {
			return e.MatchString(err.Error())
		}, nil
	case ErrorShape:
		return matchShape(e)
	case *ErrorShape:
		if e == nil {
			return nil, fmt.Errorf("%w: nil shape", ErrInvalidMatcher)
		}
		return matchShape(*e)
	case error:
		name, message := ErrorName(e), e.Error()
		return func(err error) bool {
			return ErrorName(err) == name && err.Error() == message
		}, nil
	}
	return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidMatcher, expected)
}

func matchShape(shape ErrorShape) (domain.ErrorMatcher, error) {
	var message func(string) bool
	switch m := shape.Message.(type) {
	case nil:
	case string:
		message = func(s string) bool { return strings.HasPrefix(s, m) }
	case *regexp.Regexp:
		message = m.MatchString
	default:
		return nil, fmt.Errorf("%w: message must be a string or *regexp.Regexp, got %T", ErrInvalidMatcher, shape.Message)
	}

	return func(err error) bool {
		if shape.Name != "" && ErrorName(err) != shape.Name {
			return false
		}
		if message != nil && !message(err.Error()) {
			return false
		}
		if shape.Code != nil {
			code, ok := ErrorCode(err)
			if !ok || !(Equal(code, shape.Code) || fmt.Sprint(code) == fmt.Sprint(shape.Code)) {
				return false
			}
		}
		return true
	}, nil
}

// ErrorName returns the name of an error: the result of its Name method when
// it has one, otherwise its type name. Errors built by the errors and fmt
// packages are named "Error".
func ErrorName(err error) string {
	if named, ok := err.(interface{ Name() string }); ok {
		return named.Name()
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.PkgPath() {
	case "errors", "fmt":
		return "Error"
	}
	if t.Name() == "" {
		return "Error"
	}
	return t.Name()
}

// ErrorCode returns the code carried by err, read from a Code method or an
// exported Code field.
func ErrorCode(err error) (any, bool) {
	v := reflect.ValueOf(err)
	if m := v.MethodByName("Code"); m.IsValid() {
		if m.Type().NumIn() == 0 && m.Type().NumOut() == 1 {
			return m.Call(nil)[0].Interface(), true
		}
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, false
	}
	field, ok := v.Type().FieldByName("Code")
	if !ok || !field.IsExported() {
		return nil, false
	}
	return v.FieldByIndex(field.Index).Interface(), true
}
