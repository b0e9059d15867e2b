package embedder

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/54b3r/recipeai-go/internal/rag"
)

// Identified is implemented by embedders that can name the function they
// compute. Cache entries are scoped by this identity.
type Identified interface {
	ModelID() string
}

// Cache wraps a remote embedder with a SQLite table of previously computed
// vectors, so restarts do not re-embed an unchanged corpus. The cache is never
// the source of truth: a miss (or a broken row) always goes to the wrapped
// embedder. It is safe for concurrent use.
type Cache struct {
	// db is the underlying database connection pool.
	db *sql.DB
	// next is the embedder consulted on a miss.
	next rag.Embedder
	// model scopes every key to the wrapped embedder's identity.
	model string
}

// OpenCache opens (or creates) the cache database at path and wraps next.
// Use ":memory:" for an in-memory database in tests.
func OpenCache(path string, next rag.Embedder) (*Cache, error) {
	if next == nil {
		return nil, fmt.Errorf("embedder cache: wrapped embedder must not be nil")
	}
	model := fmt.Sprintf("%T", next)
	if id, ok := next.(Identified); ok {
		model = id.ModelID()
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("embedder cache: open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	c := &Cache{db: db, next: next, model: model}
	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// migrate creates the schema if it does not already exist.
func (c *Cache) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS embeddings (
    model       TEXT    NOT NULL,
    text_hash   TEXT    NOT NULL,
    dim         INTEGER NOT NULL,
    vector      BLOB    NOT NULL,
    created_at  INTEGER NOT NULL,  -- Unix timestamp (seconds)
    PRIMARY KEY (model, text_hash)
);`
	if _, err := c.db.Exec(ddl); err != nil {
		return fmt.Errorf("embedder cache: migrate: %w", err)
	}
	return nil
}

// ModelID reports the wrapped embedder's identity.
func (c *Cache) ModelID() string { return c.model }

// Fit forwards to the wrapped embedder when it supports corpus fitting.
func (c *Cache) Fit(corpus []string) error {
	if f, ok := c.next.(rag.Fitter); ok {
		return f.Fit(corpus)
	}
	return nil
}

// Embed returns cached vectors where available and embeds the misses in a
// single call to the wrapped embedder, storing the results.
func (c *Cache) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		keys[i] = hashText(text)
		vec, ok, err := c.lookup(ctx, keys[i])
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("embedder cache: wrapped embedder returned %d vectors for %d texts", len(fresh), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = fresh[j]
		if err := c.store(ctx, keys[i], fresh[j]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// EmbedQuery embeds one query text. A stored vector is reused when the query
// matches a cached text, but a miss is never written back: only corpus text
// passed to Embed is persisted, so client queries cannot grow the table.
func (c *Cache) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, ok, err := c.lookup(ctx, hashText(text))
	if err != nil {
		return nil, err
	}
	if ok {
		return vec, nil
	}

	out, err := c.next.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("embedder cache: wrapped embedder returned %d vectors for 1 text", len(out))
	}
	return out[0], nil
}

// lookup returns the cached vector for key. A row whose blob does not match
// its recorded dimension is treated as a miss.
func (c *Cache) lookup(ctx context.Context, key string) ([]float32, bool, error) {
	const q = `SELECT dim, vector FROM embeddings WHERE model = ? AND text_hash = ?`
	var dim int
	var blob []byte
	err := c.db.QueryRowContext(ctx, q, c.model, key).Scan(&dim, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("embedder cache: lookup: %w", err)
	}
	vec, ok := decodeVector(blob)
	if !ok || len(vec) != dim {
		return nil, false, nil
	}
	return vec, true, nil
}

// store upserts one vector.
func (c *Cache) store(ctx context.Context, key string, vec []float32) error {
	const q = `INSERT OR REPLACE INTO embeddings (model, text_hash, dim, vector, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := c.db.ExecContext(ctx, q, c.model, key, len(vec), encodeVector(vec), time.Now().Unix()); err != nil {
		return fmt.Errorf("embedder cache: store: %w", err)
	}
	return nil
}

// Len returns the number of rows cached for the wrapped model.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings WHERE model = ?`, c.model).Scan(&n); err != nil {
		return 0, fmt.Errorf("embedder cache: count: %w", err)
	}
	return n, nil
}

// Close releases the database connection pool.
func (c *Cache) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("embedder cache: close: %w", err)
	}
	return nil
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// encodeVector packs v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector.
func decodeVector(b []byte) ([]float32, bool) {
	if len(b)%4 != 0 {
		return nil, false
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, true
}
