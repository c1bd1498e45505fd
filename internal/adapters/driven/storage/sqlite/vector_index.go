package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/custodia-labs/effortqa/internal/adapters/driven/storage/vectorrank"
	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

// vectorIndex implements driven.VectorIndex over the index_documents table.
// Embeddings are stored as little-endian float32 blobs and ranked in
// process with vectorrank.
type vectorIndex struct {
	db       *sql.DB
	embedder driven.EmbeddingService
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// Add embeds and upserts documents. A replaced document keeps its sequence.
func (v *vectorIndex) Add(ctx context.Context, docs []driven.IndexDocument) error {
	if len(docs) == 0 {
		return nil
	}
	if v.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	embeddings, err := v.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if err := checkEmbeddings(v.embedder, docs, embeddings); err != nil {
		return err
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("beginning index write", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO index_documents (id, content, metadata, embedding)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding
	`)
	if err != nil {
		return persistErr("preparing index write", err)
	}
	defer stmt.Close()

	for i, d := range docs {
		meta, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", d.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, d.ID, d.Content, string(meta), encodeVector(embeddings[i])); err != nil {
			return persistErr("writing index document", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return persistErr("committing index write", err)
	}
	return nil
}

// checkEmbeddings rejects a batch whose vectors do not match the model's
// declared size, which would make every later distance meaningless.
func checkEmbeddings(embedder driven.EmbeddingService, docs []driven.IndexDocument, embeddings [][]float32) error {
	if len(embeddings) != len(docs) {
		return fmt.Errorf("%w: %s returned %d embeddings for %d documents",
			domain.ErrEmbeddingUnavailable, embedder.ModelName(), len(embeddings), len(docs))
	}
	dims := embedder.Dimensions()
	if dims <= 0 {
		return nil
	}
	for i, e := range embeddings {
		if len(e) != dims {
			return fmt.Errorf("%w: %s embedded %s to %d dimensions, expected %d",
				domain.ErrEmbeddingUnavailable, embedder.ModelName(), docs[i].ID, len(e), dims)
		}
	}
	return nil
}

// Delete removes documents by ID.
func (v *vectorIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := v.db.ExecContext(ctx,
		"DELETE FROM index_documents WHERE id IN ("+placeholders+")", args...); err != nil {
		return persistErr("deleting index documents", err)
	}
	return nil
}

// DeleteWhere removes every document whose metadata matches filter.
func (v *vectorIndex) DeleteWhere(ctx context.Context, filter map[string]string) (int, error) {
	entries, err := v.load(ctx, false)
	if err != nil {
		return 0, err
	}
	var ids []string
	for _, e := range entries {
		if vectorrank.Matches(e.Document.Metadata, filter) {
			ids = append(ids, e.Document.ID)
		}
	}
	if err := v.Delete(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Search embeds query and ranks every stored document.
func (v *vectorIndex) Search(ctx context.Context, query string, opts driven.SearchOptions) ([]driven.VectorHit, error) {
	if v.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	q, err := v.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	entries, err := v.load(ctx, true)
	if err != nil {
		return nil, err
	}
	return vectorrank.Rank(q, entries, opts), nil
}

// Count returns the number of indexed documents.
func (v *vectorIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := v.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM index_documents").Scan(&n); err != nil {
		return 0, persistErr("counting index documents", err)
	}
	return n, nil
}

// Close is a no-op; the owning Store closes the database.
func (v *vectorIndex) Close() error {
	return nil
}

func (v *vectorIndex) load(ctx context.Context, withVectors bool) ([]vectorrank.Entry, error) {
	cols := "seq, id, content, metadata"
	if withVectors {
		cols += ", embedding"
	}
	rows, err := v.db.QueryContext(ctx, "SELECT "+cols+" FROM index_documents ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
	}
	defer rows.Close()

	var entries []vectorrank.Entry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e vectorrank.Entry
		var meta string
		var blob []byte
		dest := []any{&e.Seq, &e.Document.ID, &e.Document.Content, &meta}
		if withVectors {
			dest = append(dest, &blob)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%w: scanning document: %w", domain.ErrVectorIndexUnavailable, err)
		}
		if err := json.Unmarshal([]byte(meta), &e.Document.Metadata); err != nil {
			return nil, fmt.Errorf("%w: decoding metadata: %w", domain.ErrVectorIndexUnavailable, err)
		}
		e.Embedding = decodeVector(blob)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
	}
	return entries, nil
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	if len(buf) == 0 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
