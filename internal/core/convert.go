package core

import (
	"fmt"
	"reflect"
)

// This file holds the reflect plumbing shared by the proxy, the behaviors,
// and the protocol trampolines: moving between []any argument lists and the
// typed []reflect.Value lists that reflect.MakeFunc and reflect.Value.Call
// work in.

// flattenIn converts the incoming values of a MakeFunc body to a flat
// argument list. For variadic signatures the trailing slice is expanded so
// matchers and recorders see the arguments as the caller wrote them.
func flattenIn(in []reflect.Value, variadic bool) []any {
	if !variadic {
		args := make([]any, len(in))
		for i, v := range in {
			args[i] = v.Interface()
		}

		return args
	}

	args := make([]any, 0, len(in))
	for _, v := range in[:len(in)-1] {
		args = append(args, v.Interface())
	}

	tail := in[len(in)-1]
	for i := 0; i < tail.Len(); i++ {
		args = append(args, tail.Index(i).Interface())
	}

	return args
}

// argsToIn converts a flat argument list to the typed values expected by
// fnType. Mismatches here are configuration mistakes (a Replace or Wrap
// implementation with the wrong shape), so they panic like the rest of the
// registration-time validation.
func argsToIn(fnType reflect.Type, args []any, what string) []reflect.Value {
	fixed := fnType.NumIn()
	if fnType.IsVariadic() {
		fixed--

		if len(args) < fixed {
			panic(fmt.Sprintf("%s takes at least %d args, but %d were passed", what, fixed, len(args)))
		}
	} else if len(args) != fixed {
		panic(fmt.Sprintf("%s takes %d args, but %d were passed", what, fixed, len(args)))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		in[i] = toReflectValue(arg, paramTypeAt(fnType, i), fmt.Sprintf("arg %d of %s", i, what))
	}

	return in
}

// callFunc invokes fn with a flat argument list and returns a flat result
// list. Panics raised by fn propagate unchanged.
func callFunc(fn reflect.Value, args []any, what string) []any {
	out := fn.Call(argsToIn(fn.Type(), args, what))

	results := make([]any, len(out))
	for i, v := range out {
		results[i] = v.Interface()
	}

	return results
}

// resultsToOut converts a flat result list to the typed return values of
// fnType. Scripted return values that don't fit the signature are
// configuration mistakes and panic with a description of the mismatch.
func resultsToOut(fnType reflect.Type, results []any, what string) []reflect.Value {
	numOut := fnType.NumOut()

	if len(results) != numOut {
		panic(fmt.Sprintf("%s returns %d value(s), but %d were scripted", what, numOut, len(results)))
	}

	out := make([]reflect.Value, numOut)
	for i, result := range results {
		out[i] = toReflectValue(result, fnType.Out(i), fmt.Sprintf("return value %d of %s", i, what))
	}

	return out
}

// toReflectValue converts one dynamic value to the given type, handling the
// nil-for-nillable case.
func toReflectValue(value any, target reflect.Type, what string) reflect.Value {
	if value == nil {
		if !isNillableKind(target.Kind()) {
			panic(fmt.Sprintf("%s: nil is not a valid %s", what, typeName(target)))
		}

		return reflect.Zero(target)
	}

	rv := reflect.ValueOf(value)
	if rv.Type() == target {
		return rv
	}

	if rv.Type().AssignableTo(target) {
		converted := reflect.New(target).Elem()
		converted.Set(rv)

		return converted
	}

	panic(fmt.Sprintf("%s: expected %s, got %s", what, typeName(target), typeName(rv.Type())))
}

// typeName gets the type's name, if it has one. If it does not have one,
// typeName will return the type's string.
func typeName(t reflect.Type) string {
	if t.Name() != "" {
		return t.Name()
	}

	return t.String()
}

// isNillableKind returns true if the kind passed is nillable.
// According to https://pkg.go.dev/reflect#Value.IsNil, this is the case for
// chan, func, interface, map, pointer, or slice kinds.
func isNillableKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Chan, reflect.Func, reflect.Interface,
		reflect.Map, reflect.Pointer, reflect.Slice:
		return true
	case reflect.Invalid, reflect.Bool, reflect.Int,
		reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Int64, reflect.Uint, reflect.Uint8,
		reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr, reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128, reflect.Array,
		reflect.String, reflect.Struct, reflect.UnsafePointer:
		return false
	default:
		panic("unable to check for nillability for unknown kind " + kind.String())
	}
}
