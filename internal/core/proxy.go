package core

import (
	"fmt"
	"reflect"
	"time"
)

// Proxy is the replacement callable standing in for one patched attribute.
// Every invocation of the patched attribute lands here: the call is recorded,
// resolved against the registered matchers (newest first), checked against
// the original callable's signature, and finally dispatched to the selected
// matcher's behavior.
type Proxy struct {
	target    string
	attribute string
	sig       reflect.Type  // func type of the original callable
	original  reflect.Value // the real, unpatched implementation

	matchers    []*CallMatcher
	invocations []Invocation
}

// Invocation is one recorded call to a proxy.
type Invocation struct {
	Args []any
	At   time.Time
}

func newProxy(target, attribute string, sig reflect.Type, original reflect.Value) *Proxy {
	return &Proxy{
		target:    target,
		attribute: attribute,
		sig:       sig,
		original:  original,
	}
}

// Target returns the identity of the patched attribute, as "target.attribute".
func (p *Proxy) Target() string {
	return p.target + "." + p.attribute
}

// AddMatcher appends a new matcher to the list. Being the most recently
// registered, it becomes the first candidate scanned at resolution time.
// The matcher starts with no call-shape constraint (accept-all) and no
// behavior; an unset behavior is surfaced at call time.
func (p *Proxy) AddMatcher() *CallMatcher {
	matcher := &CallMatcher{
		ordinal: len(p.matchers),
		proxy:   p,
	}
	p.matchers = append(p.matchers, matcher)

	return matcher
}

// Invocations returns the calls recorded against this proxy during the
// current patch lifetime.
func (p *Proxy) Invocations() []Invocation {
	return p.invocations
}

// Call invokes the proxy through its dynamic surface, bypassing the typed
// function value installed at the attribute. Used by protocol trampolines
// and available to hosts that hold callables dynamically. Unlike the typed
// path, nothing here is compiler-checked, which is exactly what the contract
// validation step exists for.
func (p *Proxy) Call(args ...any) []any {
	return p.dispatch(args)
}

// dispatch is the single funnel for every invocation: record, resolve,
// validate, execute.
func (p *Proxy) dispatch(args []any) []any {
	p.invocations = append(p.invocations, Invocation{Args: args, At: time.Now()})

	matcher := p.resolve(args)

	p.checkContract(args)

	if matcher.behavior == nil {
		panic(&UndefinedBehaviorError{
			Target:    p.target,
			Attribute: p.attribute,
			Args:      args,
			Reason:    "the matching registration has no scripted behavior",
		})
	}

	return matcher.behavior.invoke(p, args)
}

// reflectCall adapts the dispatch funnel to the original callable's
// signature. This is the body of the reflect.MakeFunc replacement installed
// at the attribute.
func (p *Proxy) reflectCall(in []reflect.Value) []reflect.Value {
	args := flattenIn(in, p.sig.IsVariadic())
	results := p.dispatch(args)

	return resultsToOut(p.sig, results, p.Target())
}

// checkContract validates the call shape against the original callable's
// real parameter contract. The check runs regardless of which matcher was
// selected: a permissive test-side pattern does not exempt a call from
// matching the real signature.
//
// Callables whose signature carries no parameter information (a single
// variadic ...any) have no introspectable contract; for those the check
// degrades to a no-op.
func (p *Proxy) checkContract(args []any) {
	sig := p.sig
	if sig == nil || !hasContract(sig) {
		return
	}

	fixed := sig.NumIn()
	if sig.IsVariadic() {
		fixed--
	}

	if len(args) < fixed {
		p.contractViolation(args, fmt.Sprintf("takes at least %d argument(s), got %d", fixed, len(args)))
	}

	if !sig.IsVariadic() && len(args) > fixed {
		p.contractViolation(args, fmt.Sprintf("takes %d argument(s), got %d", fixed, len(args)))
	}

	for i, arg := range args {
		paramType := paramTypeAt(sig, i)

		if arg == nil {
			if !isNillableKind(paramType.Kind()) {
				p.contractViolation(args, fmt.Sprintf("argument %d: nil is not a valid %s", i, typeName(paramType)))
			}

			continue
		}

		argType := reflect.TypeOf(arg)
		if !argType.AssignableTo(paramType) {
			p.contractViolation(args, fmt.Sprintf("argument %d: %s is not assignable to %s",
				i, typeName(argType), typeName(paramType)))
		}
	}
}

func (p *Proxy) contractViolation(args []any, reason string) {
	panic(&ContractError{
		Target:    p.target,
		Attribute: p.attribute,
		Args:      args,
		Reason:    reason,
	})
}

// invalidate drops all matcher and recorder state. Called on restore so that
// nothing dangles into the next test.
func (p *Proxy) invalidate() {
	p.matchers = nil
	p.invocations = nil
}

// hasContract reports whether the signature declares real parameter
// information. func(...any) says nothing about the shape of a valid call.
func hasContract(sig reflect.Type) bool {
	if sig.NumIn() == 1 && sig.IsVariadic() && sig.In(0).Elem().Kind() == reflect.Interface &&
		sig.In(0).Elem().NumMethod() == 0 {
		return false
	}

	return true
}

// paramTypeAt returns the declared type of the i-th positional argument,
// unwrapping the variadic slice for trailing positions.
func paramTypeAt(sig reflect.Type, i int) reflect.Type {
	if sig.IsVariadic() && i >= sig.NumIn()-1 {
		return sig.In(sig.NumIn() - 1).Elem()
	}

	return sig.In(i)
}
