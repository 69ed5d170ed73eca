package core

import (
	"fmt"
	"testing"
)

func init() {
	BindDispatchSlot("String", &widgetString)
}

// TestProtocol_OverrideIsScopedToOneInstance verifies the trampoline
// consults the instance table: the patched widget answers with the scripted
// value while an untouched sibling of the same type is unaffected.
func TestProtocol_OverrideIsScopedToOneInstance(t *testing.T) {
	defer RestoreAll()

	rt := &recordingTester{}
	patched := &widget{label: "a"}
	sibling := &widget{label: "b"}

	proxy := Install(rt, patched, "String")
	proxy.AddMatcher().UseBehavior(ReturnValue([]any{"mocked"}))

	if got := patched.String(); got != "mocked" {
		t.Errorf("patched.String() = %q, want the override", got)
	}

	if got := sibling.String(); got != "widget b" {
		t.Errorf("sibling.String() = %q, want the type's original behavior", got)
	}

	// Stringification through fmt resolves via the type's method set too.
	if got := fmt.Sprintf("%s / %s", patched, sibling); got != "mocked / widget b" {
		t.Errorf("fmt dispatch = %q, want override and original side by side", got)
	}
}

// TestProtocol_RestoreUninstallsTrampoline verifies RestoreAll puts the
// original implementation back in the slot for everyone.
func TestProtocol_RestoreUninstallsTrampoline(t *testing.T) {
	rt := &recordingTester{}
	patched := &widget{label: "a"}

	proxy := Install(rt, patched, "String")
	proxy.AddMatcher().UseBehavior(ReturnValue([]any{"mocked"}))

	RestoreAll()

	if got := patched.String(); got != "widget a" {
		t.Errorf("after restore, String() = %q, want the original", got)
	}
}

// TestProtocol_RepeatInstallReturnsSameProxy verifies per-instance
// idempotency, mirroring attribute patches.
func TestProtocol_RepeatInstallReturnsSameProxy(t *testing.T) {
	defer RestoreAll()

	rt := &recordingTester{}
	patched := &widget{label: "a"}

	if Install(rt, patched, "String") != Install(rt, patched, "String") {
		t.Error("expected the same proxy for repeated installs on one instance")
	}
}

// TestProtocol_CallOriginalThroughOverride verifies the saved type-level
// implementation stays reachable for the overridden instance.
func TestProtocol_CallOriginalThroughOverride(t *testing.T) {
	defer RestoreAll()

	rt := &recordingTester{}
	patched := &widget{label: "a"}

	proxy := Install(rt, patched, "String")
	proxy.AddMatcher().UseBehavior(Wrap(func(original func() string) string {
		return "<" + original() + ">"
	}))

	if got := patched.String(); got != "<widget a>" {
		t.Errorf("String() = %q, want the wrapped original", got)
	}
}

// TestProtocol_AbsentBindingIsAttributeNotFound verifies an operation with
// no bound slot and no field reports AttributeNotFound like any other
// missing attribute.
func TestProtocol_AbsentBindingIsAttributeNotFound(t *testing.T) {
	defer RestoreAll()

	rt := &recordingTester{}
	patched := &widget{label: "a"}

	expectFatal(t, rt, "no attribute", func() {
		Install(rt, patched, "Iterate")
	})
}
