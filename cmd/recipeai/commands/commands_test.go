package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/54b3r/recipeai-go/internal/assistant"
	"github.com/54b3r/recipeai-go/internal/recipe"
)

// setupEnv pins every variable buildApp reads so the host environment cannot
// leak into the run. Tests using it must not call t.Parallel.
func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RECIPEAI_CONFIG", "")
	t.Setenv("RECIPEAI_DATA", "../../../data/recipes.json")
	t.Setenv("EMBEDDING_PROVIDER", "local")
	t.Setenv("EMBEDDING_CACHE_DB", "")
	t.Setenv("INDEX_BACKEND", "memory")
	t.Setenv("MODEL_PROVIDER", "none")
	t.Setenv("SUBSTITUTIONS_FILE", "")
	t.Setenv("SEARCH_TOP_K", "")
	t.Setenv("LOG_LEVEL", "error")
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "recipeai dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestSearchCmd_JSON(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "search", "--json", "Show", "me", "pasta", "recipes")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var res assistant.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Kind != assistant.ResultRecipes || len(res.Items) != 3 {
		t.Fatalf("result = %+v, want 3 recipes", res)
	}
	if res.Items[0].Name != "Penne Arrabbiata" {
		t.Errorf("top result = %q, want Penne Arrabbiata", res.Items[0].Name)
	}
}

func TestSearchCmd_NoQueryListsAll(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "search")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.HasPrefix(out, "1. Spaghetti Carbonara") {
		t.Errorf("first line = %q", strings.SplitN(out, "\n", 2)[0])
	}
	if !strings.Contains(out, "12. ") {
		t.Errorf("expected 12 numbered recipes, got:\n%s", out)
	}
}

func TestSubstituteCmd(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "substitute", "Butter")
	if err != nil {
		t.Fatalf("substitute: %v", err)
	}
	if strings.TrimSpace(out) != "olive oil" {
		t.Errorf("substitute butter = %q, want olive oil", out)
	}
}

func TestAskCmd_RoutesBothWays(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "ask", "What can I substitute for butter?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if strings.TrimSpace(out) != "olive oil" {
		t.Errorf("ask substitution = %q, want olive oil", out)
	}

	out, err = run(t, "ask", "--json", "Show me pasta recipes")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.Contains(out, `"kind": "recipes"`) {
		t.Errorf("ask search output = %s", out)
	}
}

func TestBuildApp_UnknownIndexBackend(t *testing.T) {
	setupEnv(t)
	t.Setenv("INDEX_BACKEND", "faiss")

	if _, err := run(t, "search", "pasta"); err == nil || !strings.Contains(err.Error(), "INDEX_BACKEND") {
		t.Fatalf("expected INDEX_BACKEND error, got %v", err)
	}
}

func TestBuildApp_MissingDataset(t *testing.T) {
	setupEnv(t)
	t.Setenv("RECIPEAI_DATA", "does-not-exist.json")

	if _, err := run(t, "search", "pasta"); err == nil {
		t.Fatal("expected error for missing dataset")
	}
}

func TestPrintRecipes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := printRecipes(&buf, []recipe.Recipe{{
		Name:        "Greek Salad",
		Cuisine:     "Greek",
		PrepTime:    "15 minutes",
		Servings:    4,
		Ingredients: []string{"tomatoes", "feta cheese"},
	}})
	if err != nil {
		t.Fatalf("printRecipes: %v", err)
	}
	want := "1. Greek Salad (Greek, prep 15 minutes, serves 4)\n   Ingredients: tomatoes, feta cheese\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	if err := printRecipes(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "No recipes found.\n" {
		t.Errorf("empty list = %q", buf.String())
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("X_TIMEOUT", "2s")
	if got := getEnvDuration("X_TIMEOUT", 0); got.Seconds() != 2 {
		t.Errorf("2s parsed as %v", got)
	}
	t.Setenv("X_TIMEOUT", "1.5")
	if got := getEnvDuration("X_TIMEOUT", 0); got.Milliseconds() != 1500 {
		t.Errorf("1.5 parsed as %v", got)
	}
	t.Setenv("X_TIMEOUT", "soon")
	if got := getEnvDuration("X_TIMEOUT", 7); got != 7 {
		t.Errorf("invalid value should fall back, got %v", got)
	}
}

func TestSearchCmd_JSONEmptyKeepsItems(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := printResult(&buf, assistant.Result{Kind: assistant.ResultRecipes}, true); err != nil {
		t.Fatalf("printResult: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(buf.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if items, ok := body["items"].([]any); !ok || len(items) != 0 {
		t.Errorf("items = %#v, want an empty list", body["items"])
	}
}

func TestSimilarCmd(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "similar", "--recipe", "8", "-k", "2")
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	if !strings.HasPrefix(out, "1. Mushroom Risotto [1.000]") {
		t.Errorf("similar output = %q", out)
	}
	if !strings.Contains(out, "\n2. ") || strings.Contains(out, "\n3. ") {
		t.Errorf("expected exactly 2 matches, got:\n%s", out)
	}

	out, err = run(t, "similar", "--json", "teriyaki", "salmon")
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	var res assistant.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Kind != assistant.ResultMatches || len(res.Matches) != 5 || res.Matches[0].Recipe.Name != "Teriyaki Salmon" {
		t.Errorf("result = %+v", res)
	}

	if _, err := run(t, "similar"); err == nil {
		t.Error("expected an error without a reference")
	}
	if _, err := run(t, "similar", "--recipe", "0"); err == nil {
		t.Error("expected an error for --recipe 0")
	}
	if _, err := run(t, "similar", "--recipe", "13"); err == nil {
		t.Error("expected an error for a recipe outside the dataset")
	}
}

func TestAnswerCmd_WithoutModelListsRecipes(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "answer", "--json", "Show me pasta recipes")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	var res assistant.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Kind != assistant.ResultRecipes || len(res.Items) != 3 || res.Items[0].Name != "Penne Arrabbiata" {
		t.Errorf("result = %+v, want the pasta listing", res)
	}
}
