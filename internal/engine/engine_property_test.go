//go:build property

package engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/go-spry/spry/internal/logging"
)

// TestRenderProperties exercises the render invariants over generated
// inputs: rendering is a pure function of template and data, repeat
// expansion is exact, and re-applies never leak listeners.
func TestRenderProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(9876)
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("apply is deterministic for the same data", prop.ForAll(
		func(name string, show bool) bool {
			data := map[string]any{"name": name, "show": show}

			run := func() string {
				e := New(WithLogger(logging.NewNop()))
				if err := e.SetTemplate(`<p data-if="show">{{ name | upper }}</p>`); err != nil {
					return "parse-error"
				}
				if err := e.ApplyData(data); err != nil {
					return "apply-error"
				}
				return e.HTML()
			}
			return run() == run()
		},
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.Property("repeat renders exactly one clone per element", prop.ForAll(
		func(n int) bool {
			items := make([]any, n)
			for i := range items {
				items[i] = fmt.Sprintf("v%d", i)
			}

			e := New(WithLogger(logging.NewNop()))
			if err := e.SetTemplate(`<li data-repeat="it, i in items">{{ i }}</li>`); err != nil {
				return false
			}
			if err := e.ApplyData(map[string]any{"items": items}); err != nil {
				return false
			}
			out := e.HTML()
			if strings.Count(out, "<li>") != n {
				return false
			}
			// Indices appear in order.
			for i := 0; i < n; i++ {
				if !strings.Contains(out, fmt.Sprintf("<li>%d</li>", i)) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 30),
	))

	properties.Property("re-applies keep the listener count stable", prop.ForAll(
		func(applies int) bool {
			e := New(WithLogger(logging.NewNop()))
			if err := e.SetTemplate(`<button data-on:click="go">x</button><input data-model="v">`); err != nil {
				return false
			}
			data := map[string]any{
				"v":  "x",
				"go": func(c *Ctx, args ...any) any { return nil },
			}
			for i := 0; i < applies; i++ {
				if err := e.ApplyData(data); err != nil {
					return false
				}
			}
			want := 0
			if applies > 0 {
				want = 2
			}
			return e.Document().ListenerCount() == want && e.bindings.Count() == want
		},
		gen.IntRange(0, 10),
	))

	properties.Property("escaped interpolation never emits raw markup", prop.ForAll(
		func(payload string) bool {
			e := New(WithLogger(logging.NewNop()))
			if err := e.SetTemplate(`<p>{{ v }}</p>`); err != nil {
				return false
			}
			if err := e.ApplyData(map[string]any{"v": "<script>" + payload + "</script>"}); err != nil {
				return false
			}
			return !strings.Contains(e.HTML(), "<script>")
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
