package core

import (
	"fmt"
	"reflect"
)

// Protocol operations (stringification, iteration, and the like) are
// resolved through the owning type, not the instance: in Go that resolution
// is a method call, and methods cannot be overridden per instance. The seam
// is a package-level func variable - the dispatch slot - that the type's
// method delegates to:
//
//	var widgetRender = (*Widget).render
//
//	func (w *Widget) String() string { return widgetRender(w) }
//
// Binding that slot lets the engine install, once per type, a single
// trampoline in the slot. The trampoline consults an instance-identity-keyed
// override table before falling back to the type's original implementation,
// so only instances present in the table observe changed behavior.

// slotKey identifies a dispatch slot by receiver type and operation name.
type slotKey struct {
	recv reflect.Type
	op   string
}

// dispatchSlot is one bound slot: where the type-level implementation lives,
// what it was before the trampoline went in, and which instances are
// currently overridden.
type dispatchSlot struct {
	op        string
	ptr       reflect.Value // pointer to the slot variable
	fnType    reflect.Type  // func type of the slot, receiver first
	recv      reflect.Type
	original  reflect.Value
	installed bool
	overrides map[any]*Proxy
}

//nolint:gochecknoglobals // Slot bindings are process-wide, like the patch table
var slots = make(map[slotKey]*dispatchSlot)

// BindDispatchSlot registers a type's dispatch slot for a protocol
// operation. slot must be a pointer to a func variable whose first parameter
// is the receiver. Binding is a one-time wiring step done by the package
// that owns the type; it installs nothing until an instance is patched.
func BindDispatchSlot(operation string, slot any) {
	ptr := reflect.ValueOf(slot)
	if ptr.Kind() != reflect.Pointer || ptr.Elem().Kind() != reflect.Func {
		panic(fmt.Sprintf("BindDispatchSlot must be passed a pointer to a func variable. received a %T instead.", slot))
	}

	fnType := ptr.Elem().Type()
	if fnType.NumIn() == 0 {
		panic("dispatch slot functions must take the receiver as their first parameter")
	}

	recv := fnType.In(0)
	slots[slotKey{recv: recv, op: operation}] = &dispatchSlot{
		op:        operation,
		ptr:       ptr,
		fnType:    fnType,
		recv:      recv,
		overrides: make(map[any]*Proxy),
	}
}

// lookupSlot finds the bound slot for a receiver type and operation, if any.
func lookupSlot(recv reflect.Type, op string) *dispatchSlot {
	return slots[slotKey{recv: recv, op: op}]
}

// proxyFor returns the override proxy for one instance, creating it (and the
// per-type trampoline, on first use) as needed. Sibling instances of the
// same type keep routing to the original implementation.
func (s *dispatchSlot) proxyFor(t Tester, instance any, desc string) *Proxy {
	t.Helper()

	if !reflect.TypeOf(instance).Comparable() {
		t.Fatalf("cannot key a protocol override on non-comparable instance type %s", desc)

		return nil
	}

	if proxy, ok := s.overrides[instance]; ok {
		return proxy
	}

	s.ensureInstalled()

	methodType := s.methodType()
	proxy := newProxy(desc, s.op, methodType, s.boundOriginal(instance, methodType, desc))
	s.overrides[instance] = proxy

	return proxy
}

// ensureInstalled swaps the trampoline into the slot. Runs once per slot per
// patch lifetime; RestoreAll puts the original back.
func (s *dispatchSlot) ensureInstalled() {
	if s.installed {
		return
	}

	s.original = reflect.ValueOf(s.ptr.Elem().Interface())

	trampoline := reflect.MakeFunc(s.fnType, func(in []reflect.Value) []reflect.Value {
		if in[0].Type().Comparable() {
			if proxy, ok := s.overrides[in[0].Interface()]; ok {
				results := proxy.dispatch(flattenIn(in[1:], s.fnType.IsVariadic()))

				return resultsToOut(proxy.sig, results, proxy.Target())
			}
		}

		if s.fnType.IsVariadic() {
			return s.original.CallSlice(in)
		}

		return s.original.Call(in)
	})

	s.ptr.Elem().Set(trampoline)
	s.installed = true
}

// methodType is the slot's func type with the receiver stripped: the shape
// a caller of the protocol operation sees.
func (s *dispatchSlot) methodType() reflect.Type {
	ins := make([]reflect.Type, s.fnType.NumIn()-1)
	for i := range ins {
		ins[i] = s.fnType.In(i + 1)
	}

	outs := make([]reflect.Type, s.fnType.NumOut())
	for i := range outs {
		outs[i] = s.fnType.Out(i)
	}

	return reflect.FuncOf(ins, outs, s.fnType.IsVariadic())
}

// boundOriginal closes the saved type-level implementation over one
// instance, so CallOriginal and Wrap behaviors reach the real operation.
func (s *dispatchSlot) boundOriginal(instance any, methodType reflect.Type, desc string) reflect.Value {
	return reflect.MakeFunc(methodType, func(in []reflect.Value) []reflect.Value {
		args := append([]any{instance}, flattenIn(in, methodType.IsVariadic())...)
		results := callFunc(s.original, args, "original "+desc+"."+s.op)

		return resultsToOut(methodType, results, "original "+desc+"."+s.op)
	})
}

// restoreSlots uninstalls every trampoline and clears every override table.
// Slot bindings themselves survive: they are wiring, not patch state.
func restoreSlots() {
	for _, s := range slots {
		if !s.installed {
			continue
		}

		s.ptr.Elem().Set(s.original)

		for _, proxy := range s.overrides {
			proxy.invalidate()
		}

		s.overrides = make(map[any]*Proxy)
		s.installed = false
		s.original = reflect.Value{}
	}
}
