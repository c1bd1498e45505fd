// Package vectorrank holds the brute-force ranking shared by the vector
// index adapters: cosine distance, metadata filtering and maximal
// marginal relevance.
package vectorrank

import (
	"cmp"
	"math"
	"slices"

	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

// Entry is an indexed document with its embedding.
type Entry struct {
	Document  driven.IndexDocument
	Embedding []float32
	// Seq is the insertion sequence, used to break distance ties.
	Seq int64
}

// Cosine returns the cosine similarity of a and b, or 0 when either is
// zero or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Distance is the cosine distance, clamped to [0,2].
func Distance(a, b []float32) float64 {
	d := 1 - Cosine(a, b)
	return math.Max(0, math.Min(2, d))
}

// Matches reports whether metadata contains every filter entry.
func Matches(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// Rank filters entries and returns hits for query ordered per opts.
// With FetchK > K the top FetchK by distance are re-ranked with MMR.
func Rank(query []float32, entries []Entry, opts driven.SearchOptions) []driven.VectorHit {
	k := opts.K
	if k <= 0 {
		k = 4
	}

	type scored struct {
		entry    *Entry
		distance float64
	}
	candidates := make([]scored, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if !Matches(e.Document.Metadata, opts.Filter) || slices.Contains(opts.ExcludeIDs, e.Document.ID) {
			continue
		}
		candidates = append(candidates, scored{entry: e, distance: Distance(query, e.Embedding)})
	}
	slices.SortStableFunc(candidates, func(a, b scored) int {
		if c := cmp.Compare(a.distance, b.distance); c != 0 {
			return c
		}
		return cmp.Compare(a.entry.Seq, b.entry.Seq)
	})

	if opts.FetchK <= k || len(candidates) <= k {
		if len(candidates) > k {
			candidates = candidates[:k]
		}
		hits := make([]driven.VectorHit, len(candidates))
		for i, c := range candidates {
			hits[i] = driven.VectorHit{Document: c.entry.Document, Distance: c.distance}
		}
		return hits
	}

	if len(candidates) > opts.FetchK {
		candidates = candidates[:opts.FetchK]
	}
	pool := make([]Entry, len(candidates))
	for i, c := range candidates {
		pool[i] = *c.entry
	}
	selected := MMR(query, pool, k, opts.Lambda)
	hits := make([]driven.VectorHit, len(selected))
	for i, idx := range selected {
		hits[i] = driven.VectorHit{Document: pool[idx].Document, Distance: candidates[idx].distance}
	}
	return hits
}

// MMR selects k indices from pool by maximal marginal relevance.
// lambda 1.0 is pure relevance, 0.0 pure diversity.
func MMR(query []float32, pool []Entry, k int, lambda float64) []int {
	if k > len(pool) {
		k = len(pool)
	}
	relevance := make([]float64, len(pool))
	for i := range pool {
		relevance[i] = Cosine(query, pool[i].Embedding)
	}

	selected := make([]int, 0, k)
	used := make([]bool, len(pool))
	for len(selected) < k {
		best, bestScore := -1, math.Inf(-1)
		for i := range pool {
			if used[i] {
				continue
			}
			redundancy := 0.0
			for _, j := range selected {
				redundancy = math.Max(redundancy, Cosine(pool[i].Embedding, pool[j].Embedding))
			}
			score := lambda*relevance[i] - (1-lambda)*redundancy
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		used[best] = true
		selected = append(selected, best)
	}
	return selected
}
