// Package standin lets a test replace a targeted callable with a controlled
// substitute: it constrains which call shapes are accepted, scripts what each
// accepted shape returns or does, and asserts how many times it was called.
//
// This is the public API entry point. Implementation lives in internal/core.
//
// A targeted callable is an attribute on some container: a func-typed field
// on a struct instance, an entry in a string-keyed map, a member of a module
// registered by name, or a protocol operation routed through a bound
// dispatch slot. Registration goes through MockCallable; the host test
// framework's cleanup phase evaluates deferred assertions and restores every
// original, unconditionally, after each test.
package standin

import (
	"github.com/standin-dev/standin/internal/core"
)

// Tester is the minimal interface standin needs from test frameworks.
type Tester = core.Tester

// Invocation is one recorded call to a patched callable.
type Invocation = core.Invocation

// Matcher defines the interface for flexible argument matching.
// Compatible with gomega matchers via duck typing; see the match package.
type Matcher = core.Matcher

// Error types raised by the engine.

// AttributeNotFoundError reports an install-time failure: the requested
// attribute does not exist on the target.
type AttributeNotFoundError = core.AttributeNotFoundError

// UnexpectedCallError is the panic value raised when no registered pattern
// accepts a call's arguments.
type UnexpectedCallError = core.UnexpectedCallError

// UndefinedBehaviorError is the panic value raised when a call matched a
// pattern but no scripted response remains.
type UndefinedBehaviorError = core.UndefinedBehaviorError

// ContractError is the panic value raised when a call's shape violates the
// original callable's real parameter contract.
type ContractError = core.ContractError

// MockCallable patches target.attribute and returns a builder for one call
// matcher registration. Each call creates an independent registration, so
// repeated calls against the same target compose: the most recently
// registered matcher that accepts a call wins.
//
// target is a direct reference (pointer to a struct instance, string-keyed
// map, or an instance whose type has a bound dispatch slot) or a string
// identifier previously registered with RegisterModule.
func MockCallable(t Tester, target any, attribute string) *Builder {
	t.Helper()

	engine := core.GetOrCreateEngine(t)
	proxy := core.Install(t, target, attribute)

	builder := &Builder{engine: engine}
	if proxy != nil {
		builder.matcher = proxy.AddMatcher()
	}

	return builder
}

// RestoreAll unconditionally restores every patched attribute and dispatch
// slot and drops all matcher and recorder state. Safe to call with zero
// active patches. Hosts whose Tester supports Cleanup get this automatically
// on every exit path; everyone else must arrange to call VerifyAndRestore
// exactly once per test.
func RestoreAll() {
	core.RestoreAll()
}

// VerifyAndRestore evaluates the deferred assertions registered under t and
// then restores everything. Tests using *testing.T never need to call this:
// the same work is registered via t.Cleanup at first use.
func VerifyAndRestore(t Tester) {
	core.FinishEngine(t)
}

// RegisterModule makes a target reachable by string identifier, so tests can
// write MockCallable(t, "payments", "Charge") without importing the package
// that owns the callable.
func RegisterModule(name string, module any) {
	core.RegisterModule(name, module)
}

// BindDispatchSlot registers a type's dispatch slot for a protocol
// operation, enabling per-instance overrides of operations that Go resolves
// through the type's method set. slot must be a pointer to the package-level
// func variable the type's method delegates to, with the receiver as its
// first parameter.
func BindDispatchSlot(operation string, slot any) {
	core.BindDispatchSlot(operation, slot)
}
