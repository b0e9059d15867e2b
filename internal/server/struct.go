package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/recipeai-go/internal/assistant"
	"github.com/54b3r/recipeai-go/internal/recipe"
	"github.com/54b3r/recipeai-go/internal/search"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// RequestTimeout bounds the work done for one API request (default: 30s).
	// The model call inside a substitution has its own, shorter timeout.
	RequestTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on the API
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// CORSOrigins lists the origins allowed to call the API from a browser.
	// Defaults to ["*"].
	CORSOrigins []string
	// MetricsRegistry receives the server's Prometheus collectors. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
	// Metrics, when set, is used instead of registering a new set. Callers that
	// need to observe model calls outside the server create it with NewMetrics.
	Metrics *Metrics
}

// answerer is the interface the API handlers call. *assistant.Assistant
// satisfies it; tests inject a fake.
type answerer interface {
	Do(ctx context.Context, req assistant.Request) (assistant.Result, error)
}

// Server is the HTTP server that exposes the recipe assistant.
type Server struct {
	// assistant answers every API request.
	assistant answerer
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// handler is the fully wrapped handler chain, exposed for tests.
	handler http.Handler
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors.
	metrics *Metrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// searchRequest is the JSON body for POST /api/search. Query is a pointer so
// a missing field can be told apart from an empty string.
type searchRequest struct {
	Query *string `json:"query"`
}

// searchResponse is the JSON response for POST /api/search.
type searchResponse struct {
	Recipes []recipe.Recipe `json:"recipes"`
}

// substituteRequest is the JSON body for POST /api/substitute.
type substituteRequest struct {
	Ingredient *string `json:"ingredient"`
}

// substituteResponse is the JSON response for POST /api/substitute.
type substituteResponse struct {
	Substitution string `json:"substitution"`
}

// askRequest is the JSON body for POST /api/ask.
type askRequest struct {
	Text *string `json:"text"`
}

// askResponse is the JSON response for POST /api/ask. Exactly one of Items
// or Text is present, as selected by Kind.
type askResponse struct {
	Kind  assistant.ResultKind `json:"kind"`
	Items *[]recipe.Recipe     `json:"items,omitempty"`
	Text  *string              `json:"text,omitempty"`
}

// similarRequest is the JSON body for POST /api/similar. Recipe is a dataset
// position and wins over Text when both are present.
type similarRequest struct {
	Recipe *int    `json:"recipe"`
	Text   *string `json:"text"`
	K      int     `json:"k"`
}

// similarResponse is the JSON response for POST /api/similar.
type similarResponse struct {
	Matches []search.Match `json:"matches"`
}

// answerRequest is the JSON body for POST /api/answer.
type answerRequest struct {
	Question *string `json:"question"`
}

// errorResponse is the JSON body for 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}
