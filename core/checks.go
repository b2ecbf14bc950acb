package core

import (
	"reflect"

	"github.com/kat-co/vala"
)

// NotNil is a vala.Checker that fails on nil interfaces and nil pointers, maps, slices, funcs or chans.
// Unlike vala.IsNotNil it accepts non-nillable values (e.g. structs).
func NotNil(obj interface{}, paramName string) vala.Checker {
	return func() (bool, string) {
		if obj == nil {
			return false, "parameter was nil: " + paramName
		}
		rv := reflect.ValueOf(obj)
		switch rv.Kind() {
		case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
			if rv.IsNil() {
				return false, "parameter was nil: " + paramName
			}
		}
		return true, ""
	}
}

// MustHaveDeps panics when any of the checkers fails. Meant for constructors, where a missing
// dependency is a programming error.
func MustHaveDeps(checkers ...vala.Checker) {
	vala.BeginValidation().Validate(checkers...).CheckAndPanic()
}
