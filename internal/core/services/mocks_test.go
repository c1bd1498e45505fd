package services

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

var errBackend = errors.New("backend down")

// fakeVectorIndex is a driven.VectorIndex whose distances are computed by
// distanceFn. The default distance is 0 for texts equal after removing
// spaces and 1 otherwise.
type fakeVectorIndex struct {
	mu         sync.Mutex
	docs       []driven.IndexDocument
	distanceFn func(query, content string) float64

	searchErr error
	addErr    error

	searches     []string
	searchOpts   []driven.SearchOptions
	adds         int
	deleteWheres int
}

func newFakeVectorIndex() *fakeVectorIndex {
	return &fakeVectorIndex{}
}

func (f *fakeVectorIndex) Add(_ context.Context, docs []driven.IndexDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds++
	if f.addErr != nil {
		return f.addErr
	}
	for _, d := range docs {
		f.docs = slices.DeleteFunc(f.docs, func(x driven.IndexDocument) bool { return x.ID == d.ID })
		f.docs = append(f.docs, d)
	}
	return nil
}

func (f *fakeVectorIndex) Delete(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = slices.DeleteFunc(f.docs, func(x driven.IndexDocument) bool { return slices.Contains(ids, x.ID) })
	return nil
}

func (f *fakeVectorIndex) DeleteWhere(_ context.Context, filter map[string]string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteWheres++
	before := len(f.docs)
	f.docs = slices.DeleteFunc(f.docs, func(x driven.IndexDocument) bool { return matchesFilter(x.Metadata, filter) })
	return before - len(f.docs), nil
}

func (f *fakeVectorIndex) Search(_ context.Context, query string, opts driven.SearchOptions) ([]driven.VectorHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	f.searchOpts = append(f.searchOpts, opts)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	dist := f.distanceFn
	if dist == nil {
		dist = func(q, c string) float64 {
			if strings.ReplaceAll(q, " ", "") == strings.ReplaceAll(c, " ", "") {
				return 0
			}
			return 1
		}
	}
	var hits []driven.VectorHit
	for _, d := range f.docs {
		if !matchesFilter(d.Metadata, opts.Filter) || slices.Contains(opts.ExcludeIDs, d.ID) {
			continue
		}
		hits = append(hits, driven.VectorHit{Document: d, Distance: dist(query, d.Content)})
	}
	slices.SortStableFunc(hits, func(a, b driven.VectorHit) int { return cmp.Compare(a.Distance, b.Distance) })
	if opts.K > 0 && len(hits) > opts.K {
		hits = hits[:opts.K]
	}
	return hits, nil
}

func (f *fakeVectorIndex) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs), nil
}

func (f *fakeVectorIndex) Close() error { return nil }

func (f *fakeVectorIndex) docsWithSource(source string) []driven.IndexDocument {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []driven.IndexDocument
	for _, d := range f.docs {
		if d.Metadata[driven.MetaSource] == source {
			out = append(out, d)
		}
	}
	return out
}

func (f *fakeVectorIndex) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches)
}

func matchesFilter(md, filter map[string]string) bool {
	for k, v := range filter {
		if md[k] != v {
			return false
		}
	}
	return true
}

// fakeLLM is a driven.LLMService returning canned responses.
type fakeLLM struct {
	mu       sync.Mutex
	response string
	respond  func(prompt string) string
	err      error
	prompts  []string
	opts     []driven.GenerateOptions
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return "", f.err
	}
	if f.respond != nil {
		return f.respond(prompt), nil
	}
	return f.response, nil
}

func (f *fakeLLM) ModelName() string { return "fake" }

func (f *fakeLLM) Ping(_ context.Context) error { return f.err }

func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// fakeCache is a driven.AnswerCache backed by a map.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]domain.ResolveResult
	flushes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]domain.ResolveResult)}
}

func (c *fakeCache) Get(_ context.Context, key string) (*domain.ResolveResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (c *fakeCache) Set(_ context.Context, key string, result *domain.ResolveResult, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = *result
	return nil
}

func (c *fakeCache) Flush(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]domain.ResolveResult)
	c.flushes++
	return nil
}

func (c *fakeCache) Close() error { return nil }

// fakeMetrics counts observations.
type fakeMetrics struct {
	mu       sync.Mutex
	resolves map[string]int
	feedback int
	errors   map[string]int
	synced   map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{resolves: map[string]int{}, errors: map[string]int{}, synced: map[string]int{}}
}

func (m *fakeMetrics) ObserveResolve(state, _ string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolves[state]++
}

func (m *fakeMetrics) FeedbackRecorded(string, bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback++
}

func (m *fakeMetrics) BackendError(backend string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[backend]++
}

func (m *fakeMetrics) SyncItems(kind, outcome string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synced[kind+"/"+outcome] += n
}

// fakePrompts is a driven.PromptStore with no custom prompts.
type fakePrompts struct {
	prompts map[string]string
}

func (p *fakePrompts) Load(name string) (string, error) {
	if s, ok := p.prompts[name]; ok {
		return s, nil
	}
	return "", domain.ErrNotFound
}

func (p *fakePrompts) Reload() {}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// fakeClassifier is a driven.CategoryClassifier with a fixed prediction.
type fakeClassifier struct {
	category   domain.Category
	confidence float64
	trained    bool
	trainedOn  []domain.EffortRecord
}

func (c *fakeClassifier) Train(records []domain.EffortRecord) error {
	c.trainedOn = records
	c.trained = len(records) > 0
	return nil
}

func (c *fakeClassifier) Predict(string) (domain.Category, float64) {
	if !c.trained {
		return domain.Unclassified(), 0
	}
	return c.category, c.confidence
}

func (c *fakeClassifier) Trained() bool { return c.trained }
