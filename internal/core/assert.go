package core

import "fmt"

// AssertionKind enumerates the call-count expectations.
type AssertionKind int

// Assertion kinds.
const (
	CalledExactly AssertionKind = iota
	CalledAtLeast
	CalledAtMost
	CalledAtLeastOnce
	CalledNever
)

// AssertionSpec is a deferred call-count check bound to one matcher. It is
// registered when the expectation is declared but evaluated only after the
// test body completes, since the calls it counts may not have happened yet.
//
// An assertion bound to a pattern-constrained matcher counts only the
// invocations that pattern accepts; an assertion on an unconstrained matcher
// counts every invocation of the proxy.
type AssertionSpec struct {
	kind    AssertionKind
	n       int
	matcher *CallMatcher
}

// NewAssertion builds a deferred call-count check for the given matcher.
func NewAssertion(kind AssertionKind, n int, matcher *CallMatcher) *AssertionSpec {
	return &AssertionSpec{kind: kind, n: n, matcher: matcher}
}

// Check evaluates the assertion against the recorder and reports a failure
// through the Tester. Errorf, not Fatalf: every registered assertion gets
// evaluated and every failure gets reported, alongside any call-site failure
// the test already hit.
func (a *AssertionSpec) Check(t Tester) {
	t.Helper()

	count := a.count()
	if a.satisfied(count) {
		return
	}

	t.Errorf("%s was called %d time(s)%s, expected %s",
		a.matcher.proxy.Target(), count, a.scopeSuffix(), a.expectation())
}

// count tallies the recorded invocations in scope for this assertion.
func (a *AssertionSpec) count() int {
	invocations := a.matcher.proxy.Invocations()

	if a.matcher.pattern == nil {
		return len(invocations)
	}

	count := 0

	for _, inv := range invocations {
		if a.matcher.pattern.accepts(inv.Args) {
			count++
		}
	}

	return count
}

func (a *AssertionSpec) satisfied(count int) bool {
	switch a.kind {
	case CalledExactly:
		return count == a.n
	case CalledAtLeast:
		return count >= a.n
	case CalledAtMost:
		return count <= a.n
	case CalledAtLeastOnce:
		return count >= 1
	case CalledNever:
		return count == 0
	default:
		panic(fmt.Sprintf("unknown assertion kind %d", a.kind))
	}
}

func (a *AssertionSpec) expectation() string {
	switch a.kind {
	case CalledExactly:
		return fmt.Sprintf("exactly %d", a.n)
	case CalledAtLeast:
		return fmt.Sprintf("at least %d", a.n)
	case CalledAtMost:
		return fmt.Sprintf("at most %d", a.n)
	case CalledAtLeastOnce:
		return "at least 1"
	case CalledNever:
		return "none"
	default:
		panic(fmt.Sprintf("unknown assertion kind %d", a.kind))
	}
}

func (a *AssertionSpec) scopeSuffix() string {
	if a.matcher.pattern == nil {
		return ""
	}

	return " with args matching " + a.matcher.pattern.String()
}
