package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/54b3r/recipeai-go/internal/assistant"
	"github.com/54b3r/recipeai-go/internal/logging"
	"github.com/54b3r/recipeai-go/internal/recipe"
	"github.com/54b3r/recipeai-go/internal/search"
)

// maxBodyBytes caps request bodies on the API routes.
const maxBodyBytes = 64 << 10

// handleSearch handles POST /api/search. A blank query returns the whole
// collection in stored order.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Query == nil {
		writeError(r.Context(), w, http.StatusBadRequest, "query is required")
		return
	}

	res, err := s.assistant.Do(r.Context(), assistant.Request{Kind: assistant.KindSearch, Query: *req.Query})
	if err != nil {
		s.failSearch(w, r, err)
		return
	}
	s.metrics.observeSearch(res.Mode)

	writeJSON(r.Context(), w, http.StatusOK, searchResponse{Recipes: nonNil(res.Items)})
}

// handleSubstitute handles POST /api/substitute. It always answers 200 with a
// suggestion once the body is valid.
func (s *Server) handleSubstitute(w http.ResponseWriter, r *http.Request) {
	var req substituteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Ingredient == nil {
		writeError(r.Context(), w, http.StatusBadRequest, "ingredient is required")
		return
	}

	res, err := s.assistant.Do(r.Context(), assistant.Request{Kind: assistant.KindSubstitute, Ingredient: *req.Ingredient})
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "substitution failed")
		return
	}
	s.metrics.observeSubstitution(res.Source)

	writeJSON(r.Context(), w, http.StatusOK, substituteResponse{Substitution: res.Text})
}

// handleAsk handles POST /api/ask. The text is classified by trigger phrase
// and routed to search or substitution.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Text == nil {
		writeError(r.Context(), w, http.StatusBadRequest, "text is required")
		return
	}

	classified := assistant.Classify(*req.Text)
	logging.FromContext(r.Context()).Debug("ask classified",
		slog.String("kind", string(classified.Kind)),
	)

	res, err := s.assistant.Do(r.Context(), classified)
	if err != nil {
		s.failSearch(w, r, err)
		return
	}

	resp := askResponse{Kind: res.Kind}
	switch res.Kind {
	case assistant.ResultRecipes:
		s.metrics.observeSearch(res.Mode)
		items := nonNil(res.Items)
		resp.Items = &items
	case assistant.ResultSubstitution:
		s.metrics.observeSubstitution(res.Source)
		text := res.Text
		resp.Text = &text
	}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}

// handleSimilar handles POST /api/similar. It ranks recipes against a stored
// recipe (by dataset position) or free text and returns them with scores.
func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	var req similarRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Recipe == nil && req.Text == nil {
		writeError(r.Context(), w, http.StatusBadRequest, "recipe or text is required")
		return
	}
	if req.K < 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "k must not be negative")
		return
	}

	ref := assistant.Request{Kind: assistant.KindSimilar, Recipe: req.Recipe, K: req.K}
	if req.Text != nil {
		ref.Query = *req.Text
	}
	res, err := s.assistant.Do(r.Context(), ref)
	switch {
	case errors.Is(err, search.ErrRecipeNotFound):
		writeError(r.Context(), w, http.StatusNotFound, "recipe not found")
		return
	case errors.Is(err, search.ErrNoReference):
		writeError(r.Context(), w, http.StatusBadRequest, "recipe or text is required")
		return
	case err != nil:
		s.failSearch(w, r, err)
		return
	}

	matches := res.Matches
	if matches == nil {
		matches = []search.Match{}
	}
	writeJSON(r.Context(), w, http.StatusOK, similarResponse{Matches: matches})
}

// handleAnswer handles POST /api/answer. With a chat model configured the
// response is {"kind":"answer","text":...,"items":[sources]}; otherwise, or
// when the model fails, it is the plain {"kind":"recipes","items":[...]}
// listing.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Question == nil {
		writeError(r.Context(), w, http.StatusBadRequest, "question is required")
		return
	}

	res, err := s.assistant.Do(r.Context(), assistant.Request{Kind: assistant.KindAnswer, Query: *req.Question})
	if err != nil {
		s.failSearch(w, r, err)
		return
	}
	s.metrics.observeAnswer(res.Kind)

	writeJSON(r.Context(), w, http.StatusOK, res)
}

// failSearch maps a search failure to a status code. Only a cancelled or
// expired request context can make a search fail once the index is built.
func (s *Server) failSearch(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context()).Error("search failed", slog.Any("error", err))
	if errors.Is(err, context.DeadlineExceeded) {
		writeError(r.Context(), w, http.StatusGatewayTimeout, "search timed out")
		return
	}
	writeError(r.Context(), w, http.StatusInternalServerError, "search failed")
}

// decodeBody decodes a size-limited JSON body into dst. On failure it writes
// a 400 response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(r.Context(), w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(r.Context(), w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(ctx).Warn("failed to encode response", slog.Any("error", err))
	}
}

// writeError writes a JSON error body.
func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(ctx, w, status, errorResponse{Error: msg})
}

func nonNil(items []recipe.Recipe) []recipe.Recipe {
	if items == nil {
		return []recipe.Recipe{}
	}
	return items
}
