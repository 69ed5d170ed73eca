package standin

import (
	"github.com/standin-dev/standin/internal/core"
)

// Builder configures one call matcher registration: optionally a call-shape
// constraint, then a behavior, then optionally a terminal call-count
// assertion. A matcher left without a behavior is a configuration error
// surfaced at call time, not registration time - the call may legitimately
// never happen.
type Builder struct {
	engine  *core.Engine
	matcher *core.CallMatcher
}

// ForCall constrains this registration to calls whose arguments match the
// given values. Each value may be a literal (compared with deep equality) or
// a Matcher such as match.BeAny. Without ForCall the registration accepts
// every call.
func (b *Builder) ForCall(args ...any) *Builder {
	if b.matcher != nil {
		b.matcher.UsePattern(args)
	}

	return b
}

// ToReturnValue scripts a fixed result, returned on every accepted call.
// Pass one value per return position for multi-valued callables.
func (b *Builder) ToReturnValue(values ...any) *Builder {
	return b.behave(core.ReturnValue(values))
}

// ToReturnValues scripts one response per call, consumed in order. A call
// after the last response panics with UndefinedBehaviorError. For
// multi-valued callables, pass a []any tuple per step.
func (b *Builder) ToReturnValues(steps ...any) *Builder {
	return b.behave(core.ReturnSequence(steps))
}

// ToYieldValues scripts a lazy, finite, single-use sequence over the given
// values. The patched callable must return an iter.Seq-shaped value;
// elements are produced only as the caller iterates.
func (b *Builder) ToYieldValues(values ...any) *Builder {
	return b.behave(core.YieldSequence(values))
}

// ToRaise scripts a panic with the given value on every accepted call.
func (b *Builder) ToRaise(value any) *Builder {
	return b.behave(core.Raise(value))
}

// WithImplementation scripts a substitute implementation: fn is invoked with
// the call's arguments and its results are returned. Panics raised by fn
// propagate unchanged.
func (b *Builder) WithImplementation(fn any) *Builder {
	return b.behave(core.Replace(fn))
}

// WithWrapper scripts a call-through wrapper: fn receives the original,
// unpatched callable as its first argument followed by the call's arguments,
// and decides whether and how to invoke it.
func (b *Builder) WithWrapper(fn any) *Builder {
	return b.behave(core.Wrap(fn))
}

// ToCallOriginal scripts a call through to the real, unpatched
// implementation.
func (b *Builder) ToCallOriginal() *Builder {
	return b.behave(core.CallOriginal())
}

// Terminal assertion methods. Each registers a deferred check evaluated
// after the test body completes; the call being asserted on may not have
// happened yet when the assertion is declared. Every registered assertion is
// evaluated and every failure reported - one failure never suppresses
// another.
//
// An assertion on a ForCall-constrained registration counts only the calls
// that constraint accepts; on an unconstrained registration it counts every
// call to the patched attribute.

// AndAssertCalledExactly asserts the callable is called exactly n times.
func (b *Builder) AndAssertCalledExactly(n int) {
	b.deferAssertion(core.CalledExactly, n)
}

// AndAssertCalledOnce asserts the callable is called exactly once.
func (b *Builder) AndAssertCalledOnce() {
	b.deferAssertion(core.CalledExactly, 1)
}

// AndAssertCalledTwice asserts the callable is called exactly twice.
func (b *Builder) AndAssertCalledTwice() {
	b.deferAssertion(core.CalledExactly, 2)
}

// AndAssertCalledAtLeast asserts the callable is called at least n times.
func (b *Builder) AndAssertCalledAtLeast(n int) {
	b.deferAssertion(core.CalledAtLeast, n)
}

// AndAssertCalledAtMost asserts the callable is called at most n times.
func (b *Builder) AndAssertCalledAtMost(n int) {
	b.deferAssertion(core.CalledAtMost, n)
}

// AndAssertCalled asserts the callable is called at least once.
func (b *Builder) AndAssertCalled() {
	b.deferAssertion(core.CalledAtLeastOnce, 0)
}

// AndAssertNotCalled asserts the callable is never called.
func (b *Builder) AndAssertNotCalled() {
	b.deferAssertion(core.CalledNever, 0)
}

func (b *Builder) behave(behavior core.Behavior) *Builder {
	if b.matcher != nil {
		b.matcher.UseBehavior(behavior)
	}

	return b
}

func (b *Builder) deferAssertion(kind core.AssertionKind, n int) {
	if b.matcher == nil {
		return
	}

	b.engine.DeferAssertion(core.NewAssertion(kind, n, b.matcher))
}
