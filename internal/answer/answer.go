// Package answer produces free-text replies to cooking questions from a chat
// model, grounded on recipes already retrieved by the search engine.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/54b3r/recipeai-go/internal/provider"
	"github.com/54b3r/recipeai-go/internal/recipe"
)

// DefaultTimeout bounds a single answer call. Answers are longer than
// substitutions, so the bound is looser.
const DefaultTimeout = 20 * time.Second

// systemPrompt frames every question.
const systemPrompt = "You are a cooking assistant. Answer the following cooking or recipe related question. " +
	"Use the provided recipes as context if they are relevant, and say so when they are not."

// questionTemplate carries the context block and the question.
const questionTemplate = "Context:\n%s\nQuestion: %s\n\nAnswer:"

// ErrBudgetExhausted is returned when the outbound model budget denies a call.
var ErrBudgetExhausted = errors.New("answer: model call budget exhausted")

// Generator answers questions with a chat model. It is safe for concurrent
// use; all of its state is fixed at construction.
type Generator struct {
	chat     model.BaseChatModel
	timeout  time.Duration
	budget   *rate.Limiter
	handlers []callbacks.Handler
	observe  func(d time.Duration, err error)
}

// Option configures a Generator.
type Option func(*Generator)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLimiter draws every call from l. A nil limiter leaves calls unlimited.
func WithLimiter(l *rate.Limiter) Option {
	return func(g *Generator) { g.budget = l }
}

// WithCallbacks attaches eino callback handlers to every model call.
func WithCallbacks(handlers ...callbacks.Handler) Option {
	return func(g *Generator) {
		for _, h := range handlers {
			if h != nil {
				g.handlers = append(g.handlers, h)
			}
		}
	}
}

// WithModelObserver registers fn to receive the duration and error of every
// model call.
func WithModelObserver(fn func(d time.Duration, err error)) Option {
	return func(g *Generator) { g.observe = fn }
}

// New builds a Generator over chat.
func New(chat model.BaseChatModel, opts ...Option) (*Generator, error) {
	if chat == nil {
		return nil, fmt.Errorf("answer: chat model must not be nil")
	}
	g := &Generator{chat: chat, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Answer asks the model question with sources rendered as context. An empty
// reply is an error.
func (g *Generator) Answer(ctx context.Context, question string, sources []recipe.Recipe) (string, error) {
	if g.budget != nil && !g.budget.Allow() {
		return "", ErrBudgetExhausted
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if len(g.handlers) > 0 {
		ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      "answer",
			Component: components.ComponentOfChatModel,
		}, g.handlers...)
	}

	start := time.Now()
	msg, err := provider.Generate(ctx, g.chat, Messages(question, sources))
	var text string
	if err == nil {
		text = strings.TrimSpace(msg.Content)
		if text == "" {
			err = errors.New("model returned an empty answer")
		}
	}
	if g.observe != nil {
		g.observe(time.Since(start), err)
	}
	if err != nil {
		return "", fmt.Errorf("answer: generate: %w", err)
	}
	return text, nil
}

// Messages builds the chat transcript for question.
func Messages(question string, sources []recipe.Recipe) []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(fmt.Sprintf(questionTemplate, Context(sources), strings.TrimSpace(question))),
	}
}

// Context renders recipes as the prompt's context block, one paragraph each.
func Context(sources []recipe.Recipe) string {
	if len(sources) == 0 {
		return "(no matching recipes)\n"
	}
	var b strings.Builder
	for i, r := range sources {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Recipe: %s\n", r.Name)
		if r.Cuisine != "" {
			fmt.Fprintf(&b, "Cuisine: %s\n", r.Cuisine)
		}
		fmt.Fprintf(&b, "Ingredients: %s\n", strings.Join(r.Ingredients, "; "))
		if len(r.Instructions) > 0 {
			fmt.Fprintf(&b, "Instructions: %s\n", strings.Join(r.Instructions, " "))
		}
	}
	return b.String()
}
