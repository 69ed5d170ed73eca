package core

import (
	"fmt"
)

// recordingTester captures failures so tests can inspect them. Fatalf panics
// to stop the registration path the way *testing.T stops its goroutine.
type recordingTester struct {
	errors []string
	fatals []string
}

func (rt *recordingTester) Helper() {}

func (rt *recordingTester) Errorf(format string, args ...any) {
	rt.errors = append(rt.errors, fmt.Sprintf(format, args...))
}

func (rt *recordingTester) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	rt.fatals = append(rt.fatals, msg)
	panic("recordingTester fatal: " + msg)
}

// cleanupTester additionally supports Cleanup, like *testing.T.
type cleanupTester struct {
	recordingTester

	cleanups []func()
}

func (ct *cleanupTester) Cleanup(fn func()) {
	ct.cleanups = append(ct.cleanups, fn)
}

func (ct *cleanupTester) runCleanups() {
	for i := len(ct.cleanups) - 1; i >= 0; i-- {
		ct.cleanups[i]()
	}

	ct.cleanups = nil
}

// apiClient is the struct-instance fixture: callables held in func-typed
// fields, the common seam shape this engine patches.
type apiClient struct {
	Fetch    func(id int) string
	Combine  func(a, b int) (int, error)
	// iter.Seq[string] spelled as its underlying type: the iter package
	// and range-over-func need go >= 1.23, and this build runs go 1.21.
	Stream   func() func(yield func(string) bool)
	Dispatch func(args ...any) any
	Sum      func(nums ...int) int
}

func newAPIClient() *apiClient {
	return &apiClient{
		Fetch:   func(id int) string { return fmt.Sprintf("real-%d", id) },
		Combine: func(a, b int) (int, error) { return a + b, nil },
		Stream: func() func(yield func(string) bool) {
			return func(yield func(string) bool) {
				yield("real")
			}
		},
		Dispatch: func(args ...any) any { return len(args) },
		Sum: func(nums ...int) int {
			total := 0
			for _, n := range nums {
				total += n
			}

			return total
		},
	}
}

// widget is the protocol-dispatch fixture. Stringification resolves through
// the type's method set; the method delegates to a package-level dispatch
// slot so one instance can be overridden without touching its siblings.
type widget struct {
	label string
}

//nolint:gochecknoglobals // the dispatch slot must be a package-level variable
var widgetString = (*widget).render

func (w *widget) String() string { return widgetString(w) }

func (w *widget) render() string { return "widget " + w.label }

// stubEngine builds a recordingTester and an engine bound to it.
func stubEngine() (*recordingTester, *Engine) {
	rt := &recordingTester{}

	return rt, GetOrCreateEngine(rt)
}
