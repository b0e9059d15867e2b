package answer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/54b3r/recipeai-go/internal/recipe"
)

// fakeChat records the transcript it was sent and replies with a canned answer.
type fakeChat struct {
	mu    sync.Mutex
	reply string
	err   error
	stall time.Duration
	got   []*schema.Message
}

func (f *fakeChat) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	f.got = in
	f.mu.Unlock()
	if f.stall > 0 {
		time.Sleep(f.stall)
	}
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChat) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChat) transcript() []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.got
}

var sources = []recipe.Recipe{
	{
		Name:         "Penne Arrabbiata",
		Cuisine:      "Italian",
		Ingredients:  []string{"400g penne pasta", "1 can chopped tomatoes"},
		Instructions: recipe.Steps{"Boil the pasta.", "Simmer the sauce."},
	},
	{Name: "Lentil Soup", Ingredients: []string{"250g red lentils"}},
}

func TestGenerator_Answer(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: "  Use penne and chopped tomatoes.\n"}
	g, err := New(chat)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := g.Answer(context.Background(), "What pasta can I make?", sources)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != "Use penne and chopped tomatoes." {
		t.Errorf("answer = %q", got)
	}

	msgs := chat.transcript()
	if len(msgs) != 2 || msgs[0].Role != schema.System || msgs[1].Role != schema.User {
		t.Fatalf("transcript = %+v, want system then user", msgs)
	}
	user := msgs[1].Content
	for _, want := range []string{
		"Recipe: Penne Arrabbiata",
		"Ingredients: 400g penne pasta; 1 can chopped tomatoes",
		"Instructions: Boil the pasta. Simmer the sauce.",
		"Recipe: Lentil Soup",
		"Question: What pasta can I make?",
	} {
		if !strings.Contains(user, want) {
			t.Errorf("prompt missing %q:\n%s", want, user)
		}
	}
}

func TestGenerator_Errors(t *testing.T) {
	t.Parallel()

	if _, err := New(nil); err == nil {
		t.Error("expected an error for a nil chat model")
	}

	boom := errors.New("backend down")
	tests := []struct {
		name string
		chat *fakeChat
		opts []Option
	}{
		{"model error", &fakeChat{err: boom}, nil},
		{"empty reply", &fakeChat{reply: "   "}, nil},
		{"stalled model", &fakeChat{reply: "late", stall: 2 * time.Second}, []Option{WithTimeout(20 * time.Millisecond)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var observed int
			opts := append(tc.opts, WithModelObserver(func(_ time.Duration, err error) {
				if err != nil {
					observed++
				}
			}))
			g, err := New(tc.chat, opts...)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			start := time.Now()
			if _, err := g.Answer(context.Background(), "why?", sources); err == nil {
				t.Fatal("expected an error")
			}
			if elapsed := time.Since(start); elapsed > time.Second {
				t.Errorf("Answer took %v", elapsed)
			}
			if observed != 1 {
				t.Errorf("observer saw %d failures, want 1", observed)
			}
		})
	}
}

func TestGenerator_Budget(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: "ok"}
	g, err := New(chat, WithLimiter(rate.NewLimiter(rate.Limit(0.001), 1)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := g.Answer(context.Background(), "q", nil); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := g.Answer(context.Background(), "q", nil); !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("second call err = %v, want ErrBudgetExhausted", err)
	}
}

func TestContext_NoSources(t *testing.T) {
	t.Parallel()

	if got := Context(nil); got != "(no matching recipes)\n" {
		t.Errorf("Context(nil) = %q", got)
	}
}
