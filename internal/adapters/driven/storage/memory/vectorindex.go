package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/custodia-labs/effortqa/internal/adapters/driven/storage/vectorrank"
	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory brute-force implementation of driven.VectorIndex.
type VectorIndex struct {
	embedder driven.EmbeddingService

	mu      sync.RWMutex
	entries map[string]vectorrank.Entry
	seq     int64
}

// NewVectorIndex creates an in-memory index that embeds with embedder.
func NewVectorIndex(embedder driven.EmbeddingService) *VectorIndex {
	return &VectorIndex{
		embedder: embedder,
		entries:  make(map[string]vectorrank.Entry),
	}
}

// Add inserts or replaces documents by ID.
func (v *VectorIndex) Add(ctx context.Context, docs []driven.IndexDocument) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	embeddings, err := v.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if len(embeddings) != len(docs) {
		return fmt.Errorf("%w: %s returned %d embeddings for %d documents",
			domain.ErrEmbeddingUnavailable, v.embedder.ModelName(), len(embeddings), len(docs))
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for i, d := range docs {
		seq := v.seq
		if prev, ok := v.entries[d.ID]; ok {
			seq = prev.Seq
		} else {
			v.seq++
		}
		d.Metadata = maps.Clone(d.Metadata)
		v.entries[d.ID] = vectorrank.Entry{Document: d, Embedding: embeddings[i], Seq: seq}
	}
	return nil
}

// Delete removes documents by ID.
func (v *VectorIndex) Delete(_ context.Context, ids []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, id := range ids {
		delete(v.entries, id)
	}
	return nil
}

// DeleteWhere removes every document matching filter.
func (v *VectorIndex) DeleteWhere(_ context.Context, filter map[string]string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for id, e := range v.entries {
		if vectorrank.Matches(e.Document.Metadata, filter) {
			delete(v.entries, id)
			n++
		}
	}
	return n, nil
}

// Search embeds query and ranks every stored document.
func (v *VectorIndex) Search(ctx context.Context, query string, opts driven.SearchOptions) ([]driven.VectorHit, error) {
	q, err := v.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	v.mu.RLock()
	entries := slices.Collect(maps.Values(v.entries))
	v.mu.RUnlock()

	slices.SortFunc(entries, func(a, b vectorrank.Entry) int { return int(a.Seq - b.Seq) })
	return vectorrank.Rank(q, entries, opts), nil
}

// Count returns the number of indexed documents.
func (v *VectorIndex) Count(_ context.Context) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries), nil
}

// Close releases resources.
func (v *VectorIndex) Close() error {
	return nil
}
