package core

import (
	"fmt"
	"reflect"
)

// Behavior is the scripted response strategy bound to a matcher. The set of
// variants is closed: each constructor below carries exactly the data its
// strategy needs.
type Behavior interface {
	invoke(p *Proxy, args []any) []any
}

// ReturnValue scripts a fixed result tuple, returned on every accepted call.
// It never exhausts.
func ReturnValue(values []any) Behavior {
	return &returnValue{values: values}
}

type returnValue struct {
	values []any
}

func (b *returnValue) invoke(*Proxy, []any) []any {
	return b.values
}

// ReturnSequence scripts one response per call, consumed in order. Each step
// is a single return value, or a []any tuple for multi-valued callables.
// A call after the last step fails with UndefinedBehaviorError: the
// arguments did match, but no scripted response remains.
func ReturnSequence(steps []any) Behavior {
	return &returnSequence{steps: steps}
}

type returnSequence struct {
	steps  []any
	cursor int
}

func (b *returnSequence) invoke(p *Proxy, args []any) []any {
	if b.cursor >= len(b.steps) {
		panic(&UndefinedBehaviorError{
			Target:    p.target,
			Attribute: p.attribute,
			Args:      args,
			Reason:    fmt.Sprintf("all %d scripted return(s) have been consumed", len(b.steps)),
		})
	}

	step := b.steps[b.cursor]
	b.cursor++

	if tuple, ok := step.([]any); ok {
		return tuple
	}

	return []any{step}
}

// YieldSequence scripts a lazy, finite, non-restartable sequence over the
// given values. The patched callable must return a single push-style
// sequence (iter.Seq[T], or any func(func(T) bool)); elements are produced
// only as the caller's own iteration pulls them. Consuming past the end
// terminates the iteration normally rather than raising an engine error, and
// a fully consumed sequence stays empty for any later iteration.
func YieldSequence(values []any) Behavior {
	return &yieldSequence{values: values}
}

type yieldSequence struct {
	values []any
	cursor int
}

func (b *yieldSequence) invoke(p *Proxy, _ []any) []any {
	if p.sig.NumOut() != 1 {
		panic(fmt.Sprintf("%s must return exactly one value to yield a sequence, returns %d",
			p.Target(), p.sig.NumOut()))
	}

	seqType := p.sig.Out(0)

	elemType, ok := seqElemType(seqType)
	if !ok {
		panic(fmt.Sprintf("%s returns %s, which is not an iter.Seq-shaped sequence",
			p.Target(), typeName(seqType)))
	}

	seq := reflect.MakeFunc(seqType, func(in []reflect.Value) []reflect.Value {
		yield := in[0]

		for b.cursor < len(b.values) {
			value := toReflectValue(b.values[b.cursor], elemType, "yielded value")
			b.cursor++

			if !yield.Call([]reflect.Value{value})[0].Bool() {
				return nil
			}
		}

		return nil
	})

	return []any{seq.Interface()}
}

// seqElemType reports whether t has the shape func(func(T) bool) and, if so,
// returns T.
func seqElemType(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() != reflect.Func || t.NumIn() != 1 || t.NumOut() != 0 {
		return nil, false
	}

	yield := t.In(0)
	if yield.Kind() != reflect.Func || yield.NumIn() != 1 || yield.NumOut() != 1 ||
		yield.Out(0).Kind() != reflect.Bool {
		return nil, false
	}

	return yield.In(0), true
}

// Raise scripts a panic with the given value, which may be an error value or
// anything else the code under test expects to recover.
func Raise(value any) Behavior {
	return &raiseBehavior{value: value}
}

type raiseBehavior struct {
	value any
}

func (b *raiseBehavior) invoke(*Proxy, []any) []any {
	panic(b.value)
}

// Replace scripts a substitute implementation: fn is invoked with the call's
// arguments and its results are returned. Panics raised by fn propagate
// unchanged. fn's signature must accept the call shapes the matcher admits.
func Replace(fn any) Behavior {
	return &replaceBehavior{fn: callableValue(fn, "Replace")}
}

type replaceBehavior struct {
	fn reflect.Value
}

func (b *replaceBehavior) invoke(p *Proxy, args []any) []any {
	return callFunc(b.fn, args, "replacement for "+p.Target())
}

// Wrap scripts a call-through wrapper: fn receives the original, unpatched
// callable as its first argument followed by the call's arguments, and
// controls whether and how the original is invoked.
func Wrap(fn any) Behavior {
	wrapper := callableValue(fn, "Wrap")
	if wrapper.Type().NumIn() == 0 {
		panic("Wrap requires a function whose first parameter receives the original callable")
	}

	return &wrapBehavior{fn: wrapper}
}

type wrapBehavior struct {
	fn reflect.Value
}

func (b *wrapBehavior) invoke(p *Proxy, args []any) []any {
	wrapped := append([]any{p.original.Interface()}, args...)

	return callFunc(b.fn, wrapped, "wrapper for "+p.Target())
}

// CallOriginal scripts a call through to the real, unpatched implementation.
// The proxy holds the original callable, so it stays reachable even though
// the attribute is currently overridden.
func CallOriginal() Behavior {
	return &callOriginal{}
}

type callOriginal struct{}

func (b *callOriginal) invoke(p *Proxy, args []any) []any {
	return callFunc(p.original, args, "original "+p.Target())
}

// callableValue panics if the given object is not a function, mirroring how
// registration-time misuse is reported everywhere else.
func callableValue(fn any, what string) reflect.Value {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		panic(fmt.Sprintf("%s must be passed a function. received a %s instead.", what, rv.Kind().String()))
	}

	return rv
}
