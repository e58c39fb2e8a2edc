package assert

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
)

var exportAll = cmp.Exporter(func(reflect.Type) bool { return true })

// Diff renders the difference between actual and expected in the go-cmp
// format: lines prefixed with "-" are expected, "+" actual.
func Diff(actual, expected any) (diff string) {
	defer func() {
		if r := recover(); r != nil {
			diff = fmt.Sprintf("- %#v\n+ %#v", expected, actual)
		}
	}()
	return strings.TrimSpace(cmp.Diff(expected, actual, exportAll))
}

// Format renders v for an assertion message.
func Format(v any) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", v)
	case error:
		return v.Error()
	}
	return fmt.Sprintf("%#v", v)
}
