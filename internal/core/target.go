package core

import (
	"fmt"
	"reflect"
)

// A patch owns the original value of one (container, attribute) pair and
// knows how to put it back. Exactly one live patch exists per pair; a second
// install for the same pair hands back the existing proxy.
type patch struct {
	key     patchKey
	proxy   *Proxy
	restore func()
}

// patchKey identifies a patched attribute by container identity. The pointer
// of the container (struct pointer or map header) plus the attribute name is
// stable for the life of the patch.
type patchKey struct {
	container uintptr
	attr      string
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Process-wide patch table is the point of the registry
	patches = make(map[patchKey]*patch)
	//nolint:gochecknoglobals // Restore must run in reverse install order
	patchOrder []*patch
	//nolint:gochecknoglobals // Named targets registered by the host
	modules = make(map[string]any)
)

// RegisterModule makes a target reachable by string identifier. The module
// value is anything Install accepts as a direct target reference, typically
// a pointer to a struct of func-typed fields or a map of named callables.
func RegisterModule(name string, module any) {
	modules[name] = module
}

// Install patches target.attribute and returns the proxy now standing in for
// the original callable. Idempotent: installing over an already-patched
// attribute returns the existing proxy so new matchers append to its list.
//
// target may be a direct reference (pointer to struct, map with string keys,
// or an instance whose type has a bound dispatch slot) or a string identifier
// previously registered with RegisterModule.
//
// Install-time problems are reported through the Tester: they are test
// configuration mistakes, not failures of the code under test.
func Install(t Tester, target any, attribute string) *Proxy {
	t.Helper()

	if name, ok := target.(string); ok {
		module, found := modules[name]
		if !found {
			t.Fatalf("no module registered under %q; call RegisterModule first", name)

			return nil
		}

		return installResolved(t, module, name, attribute)
	}

	return installResolved(t, target, fmt.Sprintf("%T", target), attribute)
}

//nolint:funlen // sequential target-kind discrimination reads better unsplit
func installResolved(t Tester, target any, desc, attribute string) *Proxy {
	t.Helper()

	if _, ok := target.(reflect.Type); ok {
		t.Fatalf("cannot patch %s at the type level: instance methods must be patched on a specific instance", desc)

		return nil
	}

	value := reflect.ValueOf(target)

	switch value.Kind() {
	case reflect.Pointer:
		if value.IsNil() {
			t.Fatalf("cannot patch attribute %q on a nil %s", attribute, desc)

			return nil
		}

		if value.Elem().Kind() == reflect.Struct {
			field := value.Elem().FieldByName(attribute)
			if field.IsValid() {
				return installField(t, field, desc, attribute, value.Pointer())
			}
		}

		// No such field: the attribute may be a protocol operation with a
		// bound dispatch slot for this type. Instance-level absence is
		// expected there.
		if slot := lookupSlot(value.Type(), attribute); slot != nil {
			return slot.proxyFor(t, target, desc)
		}

		t.Fatalf("%s", (&AttributeNotFoundError{Target: desc, Attribute: attribute}).Error())

		return nil
	case reflect.Map:
		return installMapEntry(t, value, desc, attribute)
	case reflect.Struct:
		if slot := lookupSlot(value.Type(), attribute); slot != nil {
			return slot.proxyFor(t, target, desc)
		}

		t.Fatalf("cannot patch attribute %q on a struct value; pass a pointer to the instance", attribute)

		return nil
	default:
		t.Fatalf("cannot patch attribute %q on target of kind %s", attribute, value.Kind())

		return nil
	}
}

// installField patches a func-typed (or func-valued any) struct field.
func installField(t Tester, field reflect.Value, desc, attribute string, container uintptr) *Proxy {
	t.Helper()

	key := patchKey{container: container, attr: attribute}
	if existing, ok := patches[key]; ok {
		return existing.proxy
	}

	if !field.CanSet() {
		t.Fatalf("attribute %q on %s is unexported and cannot be patched", attribute, desc)

		return nil
	}

	original := field
	if field.Kind() == reflect.Interface {
		original = field.Elem()
	}

	if !original.IsValid() || original.Kind() != reflect.Func || original.IsNil() {
		t.Fatalf("attribute %q on %s does not hold a callable", attribute, desc)

		return nil
	}

	// Copy the original out of the field before overwriting it.
	originalFn := reflect.ValueOf(original.Interface())

	proxy := newProxy(desc, attribute, originalFn.Type(), originalFn)
	replacement := reflect.MakeFunc(originalFn.Type(), proxy.reflectCall)

	if field.Kind() == reflect.Interface {
		field.Set(replacement.Convert(field.Type()))
	} else {
		field.Set(replacement)
	}

	remember(&patch{
		key:   key,
		proxy: proxy,
		restore: func() {
			if field.Kind() == reflect.Interface {
				field.Set(originalFn.Convert(field.Type()))
			} else {
				field.Set(originalFn)
			}
		},
	})

	return proxy
}

// installMapEntry patches a callable held in a string-keyed map.
func installMapEntry(t Tester, mapValue reflect.Value, desc, attribute string) *Proxy {
	t.Helper()

	if mapValue.Type().Key().Kind() != reflect.String {
		t.Fatalf("cannot patch attribute %q: %s is not keyed by string", attribute, desc)

		return nil
	}

	key := patchKey{container: mapValue.Pointer(), attr: attribute}
	if existing, ok := patches[key]; ok {
		return existing.proxy
	}

	mapKey := reflect.ValueOf(attribute).Convert(mapValue.Type().Key())

	entry := mapValue.MapIndex(mapKey)
	if !entry.IsValid() {
		t.Fatalf("%s", (&AttributeNotFoundError{Target: desc, Attribute: attribute}).Error())

		return nil
	}

	original := entry
	if entry.Kind() == reflect.Interface {
		original = entry.Elem()
	}

	if !original.IsValid() || original.Kind() != reflect.Func || original.IsNil() {
		t.Fatalf("attribute %q on %s does not hold a callable", attribute, desc)

		return nil
	}

	originalFn := reflect.ValueOf(original.Interface())

	proxy := newProxy(desc, attribute, originalFn.Type(), originalFn)
	replacement := reflect.MakeFunc(originalFn.Type(), proxy.reflectCall)

	elemType := mapValue.Type().Elem()
	mapValue.SetMapIndex(mapKey, replacement.Convert(elemType))

	remember(&patch{
		key:   key,
		proxy: proxy,
		restore: func() {
			mapValue.SetMapIndex(mapKey, originalFn.Convert(elemType))
		},
	})

	return proxy
}

// remember records a patch so RestoreAll can undo it.
func remember(p *patch) {
	patches[p.key] = p
	patchOrder = append(patchOrder, p)
}

// RestoreAll unconditionally restores every patched attribute and dispatch
// slot, and drops every matcher list and invocation record. Restoration runs
// in reverse install order. Safe to call with zero active patches.
//
// A leaked patch corrupts every subsequent test, so hosts must arrange for
// this to run on every exit path. GetOrCreateEngine does that automatically
// for testers that support Cleanup.
func RestoreAll() {
	for i := len(patchOrder) - 1; i >= 0; i-- {
		p := patchOrder[i]
		p.restore()
		p.proxy.invalidate()
	}

	patchOrder = nil
	patches = make(map[patchKey]*patch)

	restoreSlots()
}
