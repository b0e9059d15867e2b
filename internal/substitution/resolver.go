package substitution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/54b3r/recipeai-go/internal/logging"
	"github.com/54b3r/recipeai-go/internal/provider"
)

// Source records which step produced a suggestion.
type Source string

const (
	// SourceTable means the ingredient was found in the substitution table.
	SourceTable Source = "table"
	// SourceModel means the chat model answered.
	SourceModel Source = "model"
	// SourceFallback means neither step produced an answer.
	SourceFallback Source = "fallback"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 10 * time.Second

// promptTemplate is sent to the chat model for ingredients not in the table.
const promptTemplate = "Suggest a healthy substitution for %s in cooking. Return only the substitute ingredient name, nothing else."

// errBudgetExhausted is logged when the outbound model budget denies a call.
var errBudgetExhausted = errors.New("model call budget exhausted")

// Suggestion is the resolver's answer. Text is never empty.
type Suggestion struct {
	Text   string
	Source Source
}

// Resolver answers substitution requests. It is safe for concurrent use; all
// of its state is fixed at construction.
type Resolver struct {
	table   *Table
	chat    model.BaseChatModel
	timeout time.Duration
	budget  *rate.Limiter
	// handlers receive eino callbacks (e.g. Langfuse tracing) for model calls.
	handlers []callbacks.Handler
	// observe, when set, is told the duration and outcome of every model call.
	observe func(d time.Duration, err error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithBudget limits outbound model calls to rps per second with the given
// burst. A denied call is treated as the model being unavailable. A
// non-positive rps leaves calls unlimited.
func WithBudget(rps float64, burst int) Option {
	return func(r *Resolver) {
		if rps <= 0 {
			r.budget = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.budget = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLimiter shares an existing outbound call budget, so several model
// consumers draw from one limit. A nil limiter leaves calls unlimited.
func WithLimiter(l *rate.Limiter) Option {
	return func(r *Resolver) { r.budget = l }
}

// WithCallbacks attaches eino callback handlers to every model call.
func WithCallbacks(handlers ...callbacks.Handler) Option {
	return func(r *Resolver) {
		for _, h := range handlers {
			if h != nil {
				r.handlers = append(r.handlers, h)
			}
		}
	}
}

// WithModelObserver registers fn to receive the duration and error of every
// model call, for metrics.
func WithModelObserver(fn func(d time.Duration, err error)) Option {
	return func(r *Resolver) { r.observe = fn }
}

// NewResolver builds a resolver over table. chat may be nil, in which case
// unknown ingredients go straight to the fallback text. A nil table is
// replaced by DefaultTable.
func NewResolver(table *Table, chat model.BaseChatModel, opts ...Option) *Resolver {
	if table == nil {
		table = DefaultTable()
	}
	r := &Resolver{table: table, chat: chat, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Substitute returns the suggestion text for ingredient.
func (r *Resolver) Substitute(ctx context.Context, ingredient string) string {
	return r.Resolve(ctx, ingredient).Text
}

// Resolve looks ingredient up in the table, then asks the model, then falls
// back to a fixed message. Model failures are logged at WARN and never
// returned.
func (r *Resolver) Resolve(ctx context.Context, ingredient string) Suggestion {
	key := Normalize(ingredient)
	if key == "" {
		return Suggestion{Text: Fallback(""), Source: SourceFallback}
	}
	if text, ok := r.table.Lookup(key); ok {
		return Suggestion{Text: text, Source: SourceTable}
	}

	if r.chat != nil {
		text, err := r.ask(ctx, key)
		if err == nil {
			return Suggestion{Text: text, Source: SourceModel}
		}
		logging.FromContext(ctx).Warn("substitution: model step failed, using fallback",
			slog.String("ingredient", key),
			slog.String("error", err.Error()),
		)
	}

	return Suggestion{Text: Fallback(strings.TrimSpace(ingredient)), Source: SourceFallback}
}

// ask runs one model call bounded by the resolver timeout, even when the
// backend ignores cancellation. An empty answer is an error.
func (r *Resolver) ask(ctx context.Context, ingredient string) (string, error) {
	if r.budget != nil && !r.budget.Allow() {
		return "", errBudgetExhausted
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if len(r.handlers) > 0 {
		ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      "substitute",
			Component: components.ComponentOfChatModel,
		}, r.handlers...)
	}

	start := time.Now()
	msg, err := provider.Generate(ctx, r.chat, []*schema.Message{
		schema.UserMessage(fmt.Sprintf(promptTemplate, ingredient)),
	})
	var text string
	if err == nil {
		text = cleanAnswer(msg.Content)
		if text == "" {
			err = errors.New("model returned an empty answer")
		}
	}
	if r.observe != nil {
		r.observe(time.Since(start), err)
	}
	if err != nil {
		return "", fmt.Errorf("substitution: generate: %w", err)
	}
	return text, nil
}

// cleanAnswer trims whitespace, surrounding quotes and a trailing period from
// a model answer.
func cleanAnswer(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`")
	s = strings.TrimSuffix(s, ".")
	return strings.TrimSpace(s)
}

// Fallback returns the text used when no substitution can be found.
func Fallback(ingredient string) string {
	if ingredient == "" {
		return "No substitution found. Try an online search for alternatives."
	}
	return fmt.Sprintf("No substitution found for %s. Try an online search for alternatives.", ingredient)
}
