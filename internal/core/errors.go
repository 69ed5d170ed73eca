package core

import (
	"fmt"
	"strings"
)

// AttributeNotFoundError reports an install-time failure: the requested
// attribute does not exist on the target. It is reported through the Tester
// rather than panicking, since registration happens in the test body itself.
type AttributeNotFoundError struct {
	Target    string
	Attribute string
}

func (e *AttributeNotFoundError) Error() string {
	return fmt.Sprintf("target %s has no attribute %q to patch", e.Target, e.Attribute)
}

// UnexpectedCallError is the panic value raised when a patched callable is
// invoked with arguments that no registered pattern accepts. It carries
// everything needed to see both what was called and what would have matched.
type UnexpectedCallError struct {
	Target     string
	Attribute  string
	Args       []any
	Registered []string // pattern descriptions, in registration order
}

func (e *UnexpectedCallError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "unexpected call to %s.%s with args %s\n", e.Target, e.Attribute, formatArgs(e.Args))

	if len(e.Registered) == 0 {
		b.WriteString("no call patterns are registered")

		return b.String()
	}

	b.WriteString("registered call patterns (in registration order):")

	for i, desc := range e.Registered {
		fmt.Fprintf(&b, "\n  %d: %s", i+1, desc)
	}

	return b.String()
}

// UndefinedBehaviorError is the panic value raised when a call matched a
// registered pattern but the matcher had no scripted response left to give
// (an exhausted return sequence, or a matcher registered without a behavior).
type UndefinedBehaviorError struct {
	Target    string
	Attribute string
	Args      []any
	Reason    string
}

func (e *UndefinedBehaviorError) Error() string {
	return fmt.Sprintf("no behavior left for call to %s.%s with args %s: %s",
		e.Target, e.Attribute, formatArgs(e.Args), e.Reason)
}

// ContractError is the panic value raised when a call's shape violates the
// real parameter contract of the original callable, regardless of which
// registered pattern accepted it.
type ContractError struct {
	Target    string
	Attribute string
	Args      []any
	Reason    string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("call to %s.%s with args %s violates the original signature: %s",
		e.Target, e.Attribute, formatArgs(e.Args), e.Reason)
}

// formatArgs renders an argument list the way it would appear at a call site.
func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = fmt.Sprintf("%#v", arg)
	}

	return "(" + strings.Join(parts, ", ") + ")"
}
