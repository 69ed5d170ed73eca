// Package match provides argument matchers for use with standin's ForCall
// patterns. This package is designed to be dot-imported alongside gomega
// matchers:
//
//	import (
//	    . "github.com/onsi/gomega"
//	    . "github.com/standin-dev/standin/match"
//	)
//
//	standin.MockCallable(t, api, "Fetch").ForCall(BeAny, BeNumerically(">", 0)).ToReturnValue(nil)
package match

import (
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"
)

// errTypeMismatch is a sentinel error for type assertion failures.
var errTypeMismatch = errors.New("type mismatch")

// Matcher defines the interface for flexible value matching.
// Compatible with gomega.GomegaMatcher via duck typing - any type
// implementing Match and FailureMessage will work.
type Matcher interface {
	Match(actual any) (success bool, err error)
	FailureMessage(actual any) string
}

// BeAny is a matcher that matches any value.
// Useful when you don't care about a particular argument.
//
//nolint:gochecknoglobals // Intentional exported constant-like value
var BeAny Matcher = anyMatcher{}

// Satisfy returns a matcher that uses a predicate function to check for a
// match. The predicate should return nil if the value matches, or an error
// describing the mismatch if it does not.
//
// Example:
//
//	ForCall(Satisfy(func(x int) error {
//	    if x < 0 { return fmt.Errorf("expected positive, got %d", x) }
//	    return nil
//	}))
func Satisfy[T any](predicate func(T) error) Matcher {
	return &satisfyMatcher[T]{predicate: predicate}
}

// Eql returns a matcher that compares with go-cmp semantic equality. Use it
// over a bare literal when the failure message should show the structural
// diff, or when extra cmp options (ignored fields, approximations) matter.
func Eql(expected any, opts ...cmp.Option) Matcher {
	return &eqlMatcher{expected: expected, opts: opts}
}

// anyMatcher is the implementation of the BeAny matcher.
type anyMatcher struct{}

// FailureMessage returns an empty string since BeAny always matches.
func (anyMatcher) FailureMessage(any) string {
	return ""
}

// Match always returns true - matches any value.
func (anyMatcher) Match(any) (bool, error) {
	return true, nil
}

// String names the matcher in registered-pattern listings.
func (anyMatcher) String() string {
	return "<any>"
}

type satisfyMatcher[T any] struct {
	predicate func(T) error
	lastErr   error
}

func (m *satisfyMatcher[T]) FailureMessage(actual any) string {
	if m.lastErr != nil {
		return fmt.Sprintf("value %v does not satisfy predicate: %v", actual, m.lastErr)
	}

	return fmt.Sprintf("value %v does not satisfy predicate", actual)
}

func (m *satisfyMatcher[T]) Match(actual any) (bool, error) {
	val, ok := actual.(T)

	if !ok {
		return false, fmt.Errorf("%w: expected %T, got %T", errTypeMismatch, *new(T), actual)
	}

	m.lastErr = m.predicate(val)

	return m.lastErr == nil, nil
}

func (m *satisfyMatcher[T]) String() string {
	return fmt.Sprintf("<satisfies func(%T) error>", *new(T))
}

type eqlMatcher struct {
	expected any
	opts     []cmp.Option
	lastDiff string
}

func (m *eqlMatcher) FailureMessage(actual any) string {
	if m.lastDiff != "" {
		return fmt.Sprintf("value %v does not equal %v (-want +got):\n%s", actual, m.expected, m.lastDiff)
	}

	return fmt.Sprintf("value %v does not equal %v", actual, m.expected)
}

func (m *eqlMatcher) Match(actual any) (bool, error) {
	if cmp.Equal(m.expected, actual, m.opts...) {
		m.lastDiff = ""

		return true, nil
	}

	m.lastDiff = cmp.Diff(m.expected, actual, m.opts...)

	return false, nil
}

func (m *eqlMatcher) String() string {
	return fmt.Sprintf("%#v", m.expected)
}
