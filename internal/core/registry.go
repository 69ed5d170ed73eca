// Package core provides the internal implementation of standin's patch
// registry, call resolution, and deferred assertion machinery.
package core

import "sync"

// Tester is the minimal interface the engine needs from test frameworks.
// Errorf is used for deferred assertion failures so that every failing
// assertion in a test gets reported, not just the first one encountered.
type Tester interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// Engine coordinates the patches and deferred assertions registered under a
// single test. All engines share the process-wide patch table; the engine
// itself only tracks what must be evaluated when its test finishes.
type Engine struct {
	t          Tester
	assertions []*AssertionSpec
	finished   bool
}

// GetOrCreateEngine returns the Engine for the given test, creating one if
// needed. Multiple calls with the same Tester return the same Engine, so
// every registration in one test feeds the same deferred-assertion list.
//
// If the Tester supports Cleanup (like *testing.T), Finish is registered to
// run automatically when the test completes. Cleanup runs on every exit path,
// which is what guarantees assertions are evaluated and patches restored even
// when the test body fails or panics.
func GetOrCreateEngine(t Tester) *Engine {
	enginesMu.Lock()
	defer enginesMu.Unlock()

	if engine, ok := engines[t]; ok {
		return engine
	}

	engine := &Engine{t: t}
	engines[t] = engine

	if cr, ok := t.(cleanupRegistrar); ok {
		cr.Cleanup(func() {
			engine.Finish()

			enginesMu.Lock()
			delete(engines, t)
			enginesMu.Unlock()
		})
	}

	return engine
}

// FinishEngine evaluates assertions and restores patches for the given test.
// Hosts whose Tester does not support Cleanup must call this themselves,
// unconditionally, after every test. Safe to call when no engine exists: the
// patch table is still cleared.
func FinishEngine(t Tester) {
	enginesMu.Lock()

	engine, ok := engines[t]
	if ok {
		delete(engines, t)
	}

	enginesMu.Unlock()

	if ok {
		engine.Finish()

		return
	}

	RestoreAll()
}

// DeferAssertion registers a check to be evaluated when the test finishes.
func (e *Engine) DeferAssertion(spec *AssertionSpec) {
	e.assertions = append(e.assertions, spec)
}

// Finish evaluates every deferred assertion and then restores all patches.
// Evaluation happens first, while the invocation records still exist.
// Idempotent: a second call is a no-op so an explicit FinishEngine followed
// by a Cleanup-triggered one does not double-report.
func (e *Engine) Finish() {
	if e.finished {
		return
	}

	e.finished = true

	for _, spec := range e.assertions {
		spec.Check(e.t)
	}

	RestoreAll()
}

// Tester returns the test reporter this engine reports through.
func (e *Engine) Tester() Tester {
	return e.t
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Package-level registry is intentional for test coordination
	engines = make(map[Tester]*Engine)
	//nolint:gochecknoglobals // Mutex for registry
	enginesMu sync.Mutex
)

// cleanupRegistrar is the interface needed for registering cleanup functions.
// This is satisfied by *testing.T and *testing.B.
type cleanupRegistrar interface {
	Cleanup(cleanupFunc func())
}
