package core

import (
	"reflect"
	"strings"
	"testing"
)

// expectFatal runs fn and verifies it trips the recordingTester's Fatalf.
func expectFatal(t *testing.T, rt *recordingTester, fragment string, fn func()) {
	t.Helper()

	defer func() {
		recover()

		if len(rt.fatals) == 0 {
			t.Fatalf("expected a fatal registration error mentioning %q", fragment)
		}

		if !strings.Contains(rt.fatals[len(rt.fatals)-1], fragment) {
			t.Errorf("fatal %q does not mention %q", rt.fatals[len(rt.fatals)-1], fragment)
		}
	}()

	fn()
}

// TestInstall_Idempotent verifies a second install for the same (target,
// attribute) returns the existing proxy instead of stacking a second patch.
func TestInstall_Idempotent(t *testing.T) {
	defer RestoreAll()

	rt := &recordingTester{}
	client := newAPIClient()

	first := Install(rt, client, "Fetch")
	second := Install(rt, client, "Fetch")

	if first != second {
		t.Error("expected the same proxy for repeated installs on one target")
	}
}

// TestInstall_SeparateAttributesGetSeparateProxies verifies patch identity
// is the (container, attribute) pair, not the container alone.
func TestInstall_SeparateAttributesGetSeparateProxies(t *testing.T) {
	defer RestoreAll()

	rt := &recordingTester{}
	client := newAPIClient()

	if Install(rt, client, "Fetch") == Install(rt, client, "Combine") {
		t.Error("expected distinct proxies for distinct attributes")
	}
}

// TestInstall_AttributeNotFound verifies the install-time failure for a
// missing attribute.
func TestInstall_AttributeNotFound(t *testing.T) {
	defer RestoreAll()

	rt := &recordingTester{}
	client := newAPIClient()

	expectFatal(t, rt, "no attribute", func() {
		Install(rt, client, "NoSuchMethod")
	})
}

// TestInstall_TypeLevelPatchRejected verifies patching a type rather than an
// instance is refused: with multiple live instances the semantics would be
// ambiguous.
func TestInstall_TypeLevelPatchRejected(t *testing.T) {
	defer RestoreAll()

	rt := &recordingTester{}

	expectFatal(t, rt, "type level", func() {
		Install(rt, reflect.TypeOf(apiClient{}), "Fetch")
	})
}

// TestInstall_StructValueRejected verifies a non-pointer struct target is
// refused; the patch could only ever mutate a copy.
func TestInstall_StructValueRejected(t *testing.T) {
	defer RestoreAll()

	rt := &recordingTester{}

	expectFatal(t, rt, "pointer", func() {
		Install(rt, *newAPIClient(), "Fetch")
	})
}

// TestInstall_NonCallableAttributeRejected verifies only callables can be
// patched.
func TestInstall_NonCallableAttributeRejected(t *testing.T) {
	defer RestoreAll()

	rt := &recordingTester{}
	target := &struct {
		Name string
		Fn   func()
	}{}

	expectFatal(t, rt, "callable", func() {
		Install(rt, target, "Name")
	})
}

// TestInstall_MapEntry verifies callables held in string-keyed maps are
// patchable and restorable.
func TestInstall_MapEntry(t *testing.T) {
	defer RestoreAll()

	rt := &recordingTester{}
	handlers := map[string]func(string) string{
		"greet": func(name string) string { return "hello " + name },
	}

	proxy := Install(rt, handlers, "greet")
	proxy.AddMatcher().UseBehavior(ReturnValue([]any{"stubbed"}))

	if got := handlers["greet"]("world"); got != "stubbed" {
		t.Errorf(`greet = %q, want "stubbed"`, got)
	}

	RestoreAll()

	if got := handlers["greet"]("world"); got != "hello world" {
		t.Errorf("after restore, greet = %q, want the original", got)
	}
}

// TestInstall_MapEntryMissing verifies a missing map key is
// AttributeNotFound.
func TestInstall_MapEntryMissing(t *testing.T) {
	defer RestoreAll()

	rt := &recordingTester{}
	handlers := map[string]func(){}

	expectFatal(t, rt, "no attribute", func() {
		Install(rt, handlers, "missing")
	})
}

// TestInstall_AnyValuedMapEntry verifies patching works when the map's value
// type is any and only the entry itself is a callable.
func TestInstall_AnyValuedMapEntry(t *testing.T) {
	defer RestoreAll()

	rt := &recordingTester{}
	module := map[string]any{
		"version": func() int { return 1 },
	}

	proxy := Install(rt, module, "version")
	proxy.AddMatcher().UseBehavior(ReturnValue([]any{99}))

	fn, ok := module["version"].(func() int)
	if !ok {
		t.Fatalf("replacement changed the entry's dynamic type: %T", module["version"])
	}

	if got := fn(); got != 99 {
		t.Errorf("version() = %d, want 99", got)
	}

	RestoreAll()

	if got := module["version"].(func() int)(); got != 1 {
		t.Errorf("after restore, version() = %d, want 1", got)
	}
}

// TestInstall_ModuleByStringIdentifier verifies string targets resolve
// through RegisterModule.
func TestInstall_ModuleByStringIdentifier(t *testing.T) {
	defer RestoreAll()

	rt := &recordingTester{}
	client := newAPIClient()
	RegisterModule("api", client)

	proxy := Install(rt, "api", "Fetch")
	proxy.AddMatcher().UseBehavior(ReturnValue([]any{"via module"}))

	if got := client.Fetch(1); got != "via module" {
		t.Errorf("Fetch = %q, want the module-resolved stub", got)
	}
}

// TestInstall_UnknownModuleName verifies an unregistered identifier fails at
// install time.
func TestInstall_UnknownModuleName(t *testing.T) {
	defer RestoreAll()

	rt := &recordingTester{}

	expectFatal(t, rt, "RegisterModule", func() {
		Install(rt, "nope", "Fetch")
	})
}

// TestRestoreAll_RestoresOriginalBehavior verifies the core lifecycle
// guarantee: after RestoreAll, calling the previously patched attribute runs
// the true original, regardless of any matcher state that existed before.
func TestRestoreAll_RestoresOriginalBehavior(t *testing.T) {
	rt := &recordingTester{}
	client := newAPIClient()

	proxy := Install(rt, client, "Fetch")
	proxy.AddMatcher().UseBehavior(ReturnValue([]any{"patched"}))

	if got := client.Fetch(5); got != "patched" {
		t.Fatalf("Fetch = %q, want the patch active", got)
	}

	RestoreAll()

	if got := client.Fetch(5); got != "real-5" {
		t.Errorf("after restore, Fetch = %q, want the original", got)
	}

	if len(proxy.Invocations()) != 0 {
		t.Error("restore should drop the invocation record")
	}
}

// TestRestoreAll_SafeWithZeroPatches verifies the finalizer is callable
// unconditionally.
func TestRestoreAll_SafeWithZeroPatches(t *testing.T) {
	RestoreAll()
	RestoreAll()
}

// TestRestoreAll_ReinstallAfterRestoreGetsFreshProxy verifies restore fully
// retires the old patch so a later test starts clean.
func TestRestoreAll_ReinstallAfterRestoreGetsFreshProxy(t *testing.T) {
	defer RestoreAll()

	rt := &recordingTester{}
	client := newAPIClient()

	first := Install(rt, client, "Fetch")
	RestoreAll()

	second := Install(rt, client, "Fetch")
	if first == second {
		t.Error("expected a fresh proxy after restore")
	}

	second.AddMatcher().UseBehavior(CallOriginal())

	if got := client.Fetch(2); got != "real-2" {
		t.Errorf("re-patched CallOriginal = %q, want the true original, not a stacked proxy", got)
	}
}
