package substitution

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"
)

// fakeChat is a model.BaseChatModel returning a canned answer or error.
type fakeChat struct {
	answer string
	err    error
	// block makes Generate wait for ctx cancellation.
	block bool
	// stall makes Generate sleep without looking at ctx.
	stall  time.Duration
	calls  atomic.Int32
	prompt atomic.Value
}

func (f *fakeChat) Generate(ctx context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.calls.Add(1)
	if len(in) > 0 {
		f.prompt.Store(in[0].Content)
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.stall > 0 {
		time.Sleep(f.stall)
	}
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.answer, nil), nil
}

func (f *fakeChat) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestResolver_TableWinsRegardlessOfModel(t *testing.T) {
	t.Parallel()

	for _, chat := range []*fakeChat{nil, {err: errors.New("down")}, {answer: "something else"}} {
		var m model.BaseChatModel
		if chat != nil {
			m = chat
		}
		r := NewResolver(nil, m)
		got := r.Resolve(context.Background(), "  Heavy Cream ")
		if got.Text != "coconut cream" || got.Source != SourceTable {
			t.Errorf("Resolve(heavy cream) = %+v, want coconut cream from table", got)
		}
		if chat != nil && chat.calls.Load() != 0 {
			t.Errorf("model consulted for a table hit")
		}
	}
}

func TestResolver_ModelAnswer(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{answer: "  \"Greek yogurt.\"\n"}
	r := NewResolver(DefaultTable(), chat)
	got := r.Resolve(context.Background(), "Sour Cream")
	if got.Source != SourceModel || got.Text != "Greek yogurt" {
		t.Errorf("Resolve = %+v, want cleaned model answer", got)
	}
	prompt, _ := chat.prompt.Load().(string)
	want := "Suggest a healthy substitution for sour cream in cooking. Return only the substitute ingredient name, nothing else."
	if prompt != want {
		t.Errorf("prompt = %q, want %q", prompt, want)
	}
}

func TestResolver_FallbackNeverEmpty(t *testing.T) {
	t.Parallel()

	want := "No substitution found for unobtainium. Try an online search for alternatives."
	tests := []struct {
		name string
		chat model.BaseChatModel
		opts []Option
	}{
		{name: "no backend", chat: nil},
		{name: "backend error", chat: &fakeChat{err: errors.New("connection refused")}},
		{name: "empty answer", chat: &fakeChat{answer: "  "}},
		{name: "timeout", chat: &fakeChat{block: true}, opts: []Option{WithTimeout(20 * time.Millisecond)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := NewResolver(DefaultTable(), tc.chat, tc.opts...)
			got := r.Resolve(context.Background(), "unobtainium")
			if got.Source != SourceFallback || got.Text != want {
				t.Errorf("Resolve = %+v, want fallback %q", got, want)
			}
		})
	}
}

func TestResolver_EmptyIngredient(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{answer: "anything"}
	r := NewResolver(DefaultTable(), chat)
	for _, in := range []string{"", "   "} {
		got := r.Substitute(context.Background(), in)
		if got != "No substitution found. Try an online search for alternatives." {
			t.Errorf("Substitute(%q) = %q", in, got)
		}
	}
	if chat.calls.Load() != 0 {
		t.Error("model consulted for an empty ingredient")
	}
}

func TestResolver_BudgetExhaustion(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{answer: "applesauce"}
	r := NewResolver(DefaultTable(), chat, WithBudget(0.001, 1))

	first := r.Resolve(context.Background(), "sugar")
	second := r.Resolve(context.Background(), "sugar")
	if first.Source != SourceModel {
		t.Errorf("first call = %+v, want model answer", first)
	}
	if second.Source != SourceFallback {
		t.Errorf("second call = %+v, want fallback once the budget is spent", second)
	}
	if n := chat.calls.Load(); n != 1 {
		t.Errorf("model called %d times, want 1", n)
	}
}

func TestResolver_TimeoutBoundsStalledModel(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{answer: "applesauce", stall: 2 * time.Second}
	r := NewResolver(DefaultTable(), chat, WithTimeout(20*time.Millisecond))

	start := time.Now()
	got := r.Resolve(context.Background(), "sugar")
	if got.Source != SourceFallback {
		t.Errorf("got %+v, want fallback after the timeout", got)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Resolve took %v, want close to the 20ms timeout", elapsed)
	}
}

func TestResolver_SharedLimiter(t *testing.T) {
	t.Parallel()

	budget := rate.NewLimiter(rate.Limit(0.001), 1)
	chat := &fakeChat{answer: "applesauce"}
	a := NewResolver(DefaultTable(), chat, WithLimiter(budget))
	b := NewResolver(DefaultTable(), chat, WithLimiter(budget))

	if got := a.Resolve(context.Background(), "sugar"); got.Source != SourceModel {
		t.Errorf("first resolver = %+v, want model answer", got)
	}
	if got := b.Resolve(context.Background(), "sugar"); got.Source != SourceFallback {
		t.Errorf("second resolver = %+v, want fallback from the shared budget", got)
	}
}

func TestResolver_ModelObserver(t *testing.T) {
	t.Parallel()

	var seen atomic.Int32
	var lastErr atomic.Value
	r := NewResolver(DefaultTable(), &fakeChat{err: errors.New("boom")},
		WithModelObserver(func(_ time.Duration, err error) {
			seen.Add(1)
			lastErr.Store(err)
		}))
	r.Resolve(context.Background(), "saffron")
	if seen.Load() != 1 {
		t.Fatalf("observer called %d times, want 1", seen.Load())
	}
	if err, _ := lastErr.Load().(error); err == nil {
		t.Error("observer should receive the model error")
	}
}

func TestTable_RendersRatios(t *testing.T) {
	t.Parallel()

	tbl, err := NewTable(map[string][]Replacement{
		"Eggs": {
			{Replacement: "flax eggs", Ratio: "1 tbsp ground flax + 3 tbsp water per egg"},
			{Replacement: "applesauce", Ratio: "1/4 cup per egg"},
		},
		"butter": {{Replacement: "olive oil"}},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	got, ok := tbl.Lookup(" EGGS")
	want := "flax eggs (1 tbsp ground flax + 3 tbsp water per egg) or applesauce (1/4 cup per egg)"
	if !ok || got != want {
		t.Errorf("Lookup(eggs) = %q, %v; want %q", got, ok, want)
	}
	if got, _ := tbl.Lookup("butter"); got != "olive oil" {
		t.Errorf("Lookup(butter) = %q, want olive oil", got)
	}
}

func TestTable_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entries map[string][]Replacement
		wantErr string
	}{
		{"empty name", map[string][]Replacement{" ": {{Replacement: "x"}}}, "empty ingredient name"},
		{"empty replacement", map[string][]Replacement{"milk": {{Replacement: " "}}}, "empty replacement"},
		{"no replacements", map[string][]Replacement{"milk": nil}, "no replacements"},
		{"duplicate", map[string][]Replacement{"Milk": {{Replacement: "a"}}, "milk ": {{Replacement: "b"}}}, "duplicate"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewTable(tc.entries)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("NewTable error = %v, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadTable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "subs.yaml")
	content := `substitutions:
  heavy cream:
    - replacement: coconut cream
      ratio: "1:1"
  Buttermilk:
    - replacement: milk with lemon juice
`
	if err := os.WriteFile(good, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	tbl, err := LoadTable(good)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}
	if got, _ := tbl.Lookup("heavy cream"); got != "coconut cream (1:1)" {
		t.Errorf("Lookup(heavy cream) = %q", got)
	}
	// A file replaces the default table entirely.
	if _, ok := tbl.Lookup("butter"); ok {
		t.Error("default entries must not leak into a loaded table")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("substitutions: [not, a, map]"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTable(bad); err == nil {
		t.Error("expected a parse error")
	}
	if _, err := LoadTable(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestDefaultTable(t *testing.T) {
	t.Parallel()

	tbl := DefaultTable()
	if tbl.Len() != 13 {
		t.Errorf("default table has %d entries, want 13", tbl.Len())
	}
	names := tbl.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("Names() not sorted: %v", names)
		}
	}
}
