package assert

import (
	"reflect"
)

// Equal reports whether actual and expected are structurally equal.
//
// Slices and arrays are compared by length, then element by element. Maps
// used as sets (map[K]struct{}, or map[K]bool whose values are all true) are
// compared by mutual membership. Other maps and structs need the same key set
// and recursively equal values. Pointers are compared by pointee. Everything
// else falls back to value equality.
func Equal(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	return equalValue(reflect.ValueOf(actual), reflect.ValueOf(expected), make(map[visit]bool))
}

type visit struct {
	a, b uintptr
	typ  reflect.Type
}

func equalValue(a, b reflect.Value, seen map[visit]bool) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}

	// Nil and empty slices and maps compare equal.
	switch a.Kind() {
	case reflect.Pointer, reflect.Map:
		if a.Kind() == reflect.Pointer && (a.IsNil() || b.IsNil()) {
			return a.IsNil() && b.IsNil()
		}
		if a.IsNil() || b.IsNil() {
			break
		}
		if a.UnsafePointer() == b.UnsafePointer() {
			return true
		}
		v := visit{uintptr(a.UnsafePointer()), uintptr(b.UnsafePointer()), a.Type()}
		if seen[v] {
			return true
		}
		seen[v] = true
	}

	switch a.Kind() {
	case reflect.Pointer, reflect.Interface:
		return equalValue(a.Elem(), b.Elem(), seen)
	case reflect.Slice, reflect.Array:
		if a.Len() != b.Len() {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !equalValue(a.Index(i), b.Index(i), seen) {
				return false
			}
		}
		return true
	case reflect.Map:
		if isSet(a) && isSet(b) {
			return sameMembers(a, b)
		}
		if a.Len() != b.Len() {
			return false
		}
		iter := a.MapRange()
		for iter.Next() {
			other := b.MapIndex(iter.Key())
			if !other.IsValid() || !equalValue(iter.Value(), other, seen) {
				return false
			}
		}
		return true
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !equalValue(a.Field(i), b.Field(i), seen) {
				return false
			}
		}
		return true
	case reflect.Func:
		return a.IsNil() && b.IsNil()
	case reflect.Chan, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()
	case reflect.Bool:
		return a.Bool() == b.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() == b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() == b.Uint()
	case reflect.Float32, reflect.Float64:
		return a.Float() == b.Float()
	case reflect.Complex64, reflect.Complex128:
		return a.Complex() == b.Complex()
	case reflect.String:
		return a.String() == b.String()
	}
	return false
}

// isSet reports whether m is a map used as a set.
func isSet(m reflect.Value) bool {
	elem := m.Type().Elem()
	switch {
	case elem.Kind() == reflect.Struct && elem.NumField() == 0:
		return true
	case elem.Kind() == reflect.Bool:
		iter := m.MapRange()
		for iter.Next() {
			if !iter.Value().Bool() {
				return false
			}
		}
		return true
	}
	return false
}

func sameMembers(a, b reflect.Value) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, key := range a.MapKeys() {
		if !b.MapIndex(key).IsValid() {
			return false
		}
	}
	return true
}
