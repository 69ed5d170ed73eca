package core

import (
	"fmt"
	"reflect"
	"strings"
)

// CallMatcher is one registration against a proxy: an argument pattern, the
// behavior to execute when the pattern accepts a call, and optionally a
// deferred call-count assertion scoped to the pattern.
type CallMatcher struct {
	ordinal  int
	proxy    *Proxy
	pattern  *ArgsPattern // nil accepts every call
	behavior Behavior
}

// UsePattern constrains this matcher to calls whose arguments match the
// given values. Each expected value may be a literal (compared with
// reflect.DeepEqual) or a Matcher.
func (m *CallMatcher) UsePattern(expected []any) {
	m.pattern = &ArgsPattern{expected: expected}
}

// UseBehavior sets the scripted response for calls this matcher accepts.
func (m *CallMatcher) UseBehavior(b Behavior) {
	m.behavior = b
}

// Proxy returns the proxy this matcher is registered against.
func (m *CallMatcher) Proxy() *Proxy {
	return m.proxy
}

// accepts reports whether this matcher's pattern admits the given arguments.
// A matcher without a pattern admits everything.
func (m *CallMatcher) accepts(args []any) bool {
	if m.pattern == nil {
		return true
	}

	return m.pattern.accepts(args)
}

// describe renders the pattern for the UnexpectedCallError diagnostic.
func (m *CallMatcher) describe() string {
	if m.pattern == nil {
		return "(any arguments)"
	}

	return m.pattern.String()
}

// resolve scans the matcher list from most-recently-registered to
// least-recently-registered and returns the first matcher whose pattern
// accepts the call. This order lets a later, narrower registration override
// a broad earlier one, and equally lets a later catch-all supersede earlier
// specific rules from that point forward.
//
// When nothing accepts the call, the panic payload lists every registered
// pattern so the failure shows both what was called and what would have
// matched.
func (p *Proxy) resolve(args []any) *CallMatcher {
	for i := len(p.matchers) - 1; i >= 0; i-- {
		if p.matchers[i].accepts(args) {
			return p.matchers[i]
		}
	}

	registered := make([]string, len(p.matchers))
	for i, m := range p.matchers {
		registered[i] = m.describe()
	}

	panic(&UnexpectedCallError{
		Target:     p.target,
		Attribute:  p.attribute,
		Args:       args,
		Registered: registered,
	})
}

// ArgsPattern is a positional argument predicate: one expected value or
// matcher per argument.
type ArgsPattern struct {
	expected []any
}

// accepts reports whether every actual argument matches its expected
// counterpart. Argument count must match exactly.
func (ap *ArgsPattern) accepts(args []any) bool {
	if len(args) != len(ap.expected) {
		return false
	}

	for i, expected := range ap.expected {
		if ok, _ := MatchValue(args[i], expected); !ok {
			return false
		}
	}

	return true
}

// String renders the pattern the way it would appear at a call site.
func (ap *ArgsPattern) String() string {
	parts := make([]string, len(ap.expected))

	for i, expected := range ap.expected {
		switch v := expected.(type) {
		case Matcher:
			if s, ok := expected.(fmt.Stringer); ok {
				parts[i] = s.String()
			} else {
				parts[i] = fmt.Sprintf("<%T>", v)
			}
		default:
			parts[i] = fmt.Sprintf("%#v", v)
		}
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

// Matcher defines the interface for flexible value matching.
// Compatible with gomega.GomegaMatcher via duck typing - any type
// implementing Match and FailureMessage will work.
type Matcher interface {
	Match(actual any) (success bool, err error)
	FailureMessage(actual any) string
}

// MatchValue checks if actual matches expected.
// If expected implements the Matcher interface, uses its Match method.
// Otherwise, uses reflect.DeepEqual for comparison.
// Returns (success, errorMessage). If success is true, errorMessage is empty.
func MatchValue(actual, expected any) (bool, string) {
	if matcher, ok := expected.(Matcher); ok {
		success, err := matcher.Match(actual)
		if err != nil {
			return false, err.Error()
		}

		if !success {
			return false, matcher.FailureMessage(actual)
		}

		return true, ""
	}

	if isNil(actual) && isNil(expected) {
		return true, ""
	}

	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}

	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

// isNil returns whether the value is nil, covering typed nils.
func isNil(value any) bool {
	if value == nil {
		return true
	}

	rv := reflect.ValueOf(value)

	return isNillableKind(rv.Kind()) && rv.IsNil()
}
