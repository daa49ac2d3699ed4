package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/foomo/contentexport/embed"
	"github.com/google/uuid"
)

type Include string

const (
	IncludeDocuments Include = "documents"
	IncludeMetadatas Include = "metadatas"
)

type Collection struct {
	ID           uuid.UUID
	Name         string
	EmbedderName string

	db       *sql.DB
	embedder embed.Embedder
}

// GetOptions filters and shapes Get. No IDs means all documents, no Include
// means documents and metadatas.
type GetOptions struct {
	IDs     []string
	Include []Include
}

// GetResult holds parallel slices in insertion order. Documents and Metadatas
// are nil unless included.
type GetResult struct {
	IDs       []string
	Documents []string
	Metadatas []map[string]string
}

type QueryResult struct {
	ID       string
	Document string
	Metadata map[string]string
	Score    float64
}

// Add embeds and stores the documents. Ids that already exist are left
// untouched. It returns the number of documents actually inserted.
func (c *Collection) Add(ctx context.Context, ids, documents []string, metadatas []map[string]string) (int, error) {
	if len(ids) != len(documents) || (metadatas != nil && len(metadatas) != len(ids)) {
		return 0, fmt.Errorf("add to %s: got %d ids, %d documents and %d metadatas", c.Name, len(ids), len(documents), len(metadatas))
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if c.embedder == nil {
		return 0, ErrNoEmbedder
	}

	vecs, err := c.embedder.EmbedBatch(ctx, documents)
	if err != nil {
		return 0, fmt.Errorf("embed documents for %s: %w", c.Name, err)
	}
	if len(vecs) != len(ids) {
		return 0, fmt.Errorf("embed documents for %s: got %d vectors for %d documents", c.Name, len(vecs), len(ids))
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("add to %s: %w", c.Name, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO documents (collection_id, id, document, metadata, embedding)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (collection_id, id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("add to %s: %w", c.Name, err)
	}
	defer stmt.Close()

	var added int
	for i, id := range ids {
		meta := "{}"
		if metadatas != nil && metadatas[i] != nil {
			data, err := json.Marshal(metadatas[i])
			if err != nil {
				return 0, fmt.Errorf("metadata of %s: %w", id, err)
			}
			meta = string(data)
		}
		res, err := stmt.ExecContext(ctx, c.ID.String(), id, documents[i], meta, encodeVector(vecs[i]))
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", id, err)
		}
		added += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("add to %s: %w", c.Name, err)
	}
	return added, nil
}

func (c *Collection) Get(ctx context.Context, opts GetOptions) (*GetResult, error) {
	include := opts.Include
	if len(include) == 0 {
		include = []Include{IncludeDocuments, IncludeMetadatas}
	}
	var withDocs, withMetas bool
	for _, inc := range include {
		switch inc {
		case IncludeDocuments:
			withDocs = true
		case IncludeMetadatas:
			withMetas = true
		default:
			return nil, fmt.Errorf("get from %s: unknown include %q", c.Name, inc)
		}
	}

	query := `SELECT id, document, metadata FROM documents WHERE collection_id = ?`
	args := []any{c.ID.String()}
	if opts.IDs != nil {
		if len(opts.IDs) == 0 {
			return &GetResult{}, nil
		}
		query += ` AND id IN (?` + strings.Repeat(", ?", len(opts.IDs)-1) + `)`
		for _, id := range opts.IDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY seq`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get from %s: %w", c.Name, err)
	}
	defer rows.Close()

	result := &GetResult{}
	for rows.Next() {
		var id, doc, meta string
		if err := rows.Scan(&id, &doc, &meta); err != nil {
			return nil, fmt.Errorf("get from %s: %w", c.Name, err)
		}
		result.IDs = append(result.IDs, id)
		if withDocs {
			result.Documents = append(result.Documents, doc)
		}
		if withMetas {
			m, err := decodeMetadata(meta)
			if err != nil {
				return nil, fmt.Errorf("metadata of %s: %w", id, err)
			}
			result.Metadatas = append(result.Metadatas, m)
		}
	}
	return result, rows.Err()
}

func (c *Collection) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection_id = ?`, c.ID.String(),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.Name, err)
	}
	return n, nil
}

// Query returns the n documents most similar to text, best first.
func (c *Collection) Query(ctx context.Context, text string, n int) ([]QueryResult, error) {
	if c.embedder == nil {
		return nil, ErrNoEmbedder
	}
	if n <= 0 {
		return nil, nil
	}
	vecs, err := c.embedder.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	query := vecs[0]

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, document, metadata, embedding FROM documents WHERE collection_id = ? ORDER BY seq`,
		c.ID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.Name, err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			r         QueryResult
			meta      string
			embedding []byte
		)
		if err := rows.Scan(&r.ID, &r.Document, &meta, &embedding); err != nil {
			return nil, fmt.Errorf("query %s: %w", c.Name, err)
		}
		if r.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, fmt.Errorf("metadata of %s: %w", r.ID, err)
		}
		r.Score = embed.Cosine(query, decodeVector(embedding))
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", c.Name, err)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > n {
		results = results[:n]
	}
	return results, nil
}

func decodeMetadata(s string) (map[string]string, error) {
	m := map[string]string{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// encodeVector stores a vector as little endian float32 values.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}
