package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
	"github.com/custodia-labs/effortqa/internal/logger"
)

// Ensure Resolver implements the interface.
var _ driving.Resolver = (*Resolver)(nil)

// noAnswerMarkers are phrases the model uses when nothing matched.
var noAnswerMarkers = []string{"등록되어 있지 않습니다", "찾을 수 없습니다"}

// epicTriggers mark a project roll-up question. Longer phrases come first
// so they are stripped whole.
var epicTriggers = []string{"프로젝트 공수", "전체 공수", "프로젝트", "epic", "에픽"}

// epicStopWords are stripped from a roll-up question to leave the keyword.
var epicStopWords = []string{
	"알려주세요", "알려줘", "공수", "얼마", "?", "？", "추가", "개선", "개발", "기능", "작업",
}

// EpicKeyword reports whether question asks for a project roll-up and
// returns the remaining project keyword.
func EpicKeyword(question string) (string, bool) {
	lower := strings.ToLower(question)
	if !containsAny(lower, epicTriggers) {
		return "", false
	}
	kw := lower
	for _, t := range epicTriggers {
		kw = strings.ReplaceAll(kw, t, " ")
	}
	for _, w := range epicStopWords {
		kw = strings.ReplaceAll(kw, w, " ")
	}
	return strings.Join(strings.Fields(kw), " "), true
}

// feedbackLookup finds an accepted answer for a question.
type feedbackLookup interface {
	Lookup(ctx context.Context, question string) *domain.FeedbackRecord
}

// ResolverDeps wires the resolver's collaborators. Only Efforts is
// required; a nil Index or LLM turns every semantic attempt into NoAnswer.
type ResolverDeps struct {
	Feedback   feedbackLookup
	Epics      driving.EpicAggregator
	Efforts    driven.EffortStore
	Index      driven.VectorIndex
	LLM        driven.LLMService
	Classifier driven.CategoryClassifier
	Cache      driven.AnswerCache
	AnswerLog  driven.AnswerLog
	Metrics    driven.Metrics
	Settings   domain.RetrievalSettings
}

// Resolver answers effort questions: sanitisation, project roll-up,
// feedback cache, then semantic retrieval with query rewriting.
type Resolver struct {
	feedback    feedbackLookup
	epics       driving.EpicAggregator
	efforts     driven.EffortStore
	index       driven.VectorIndex
	llm         driven.LLMService
	classifier  driven.CategoryClassifier
	cache       driven.AnswerCache
	answerLog   driven.AnswerLog
	metrics     driven.Metrics
	promptStore driven.PromptStore
	settings    domain.RetrievalSettings
	scorer      *LexicalScorer
	strategies  []RewriteStrategy
	now         func() time.Time
}

// NewResolver creates a resolver. Zero settings fall back to defaults.
func NewResolver(deps ResolverDeps) *Resolver {
	settings := deps.Settings
	defaults := domain.DefaultAppSettings().Retrieval
	if settings.K <= 0 {
		settings.K = defaults.K
	}
	if settings.FetchK <= 0 {
		settings.FetchK = defaults.FetchK
	}
	if settings.MMRLambda <= 0 {
		settings.MMRLambda = defaults.MMRLambda
	}
	if settings.CategoryConfidence <= 0 {
		settings.CategoryConfidence = defaults.CategoryConfidence
	}
	if settings.MinDocs <= 0 {
		settings.MinDocs = defaults.MinDocs
	}
	scorer := NewLexicalScorer()
	return &Resolver{
		feedback:   deps.Feedback,
		epics:      deps.Epics,
		efforts:    deps.Efforts,
		index:      deps.Index,
		llm:        deps.LLM,
		classifier: deps.Classifier,
		cache:      deps.Cache,
		answerLog:  deps.AnswerLog,
		metrics:    metricsOrNop(deps.Metrics),
		settings:   settings,
		scorer:     scorer,
		strategies: DefaultRewriteStrategies(scorer),
		now:        time.Now,
	}
}

// SetPromptStore sets the prompt store for the answer template.
func (r *Resolver) SetPromptStore(store driven.PromptStore) {
	r.promptStore = store
}

// Resolve runs the full pipeline for one question.
func (r *Resolver) Resolve(ctx context.Context, question string) *domain.ResolveResult {
	return r.observe(ctx, question, nil)
}

// ResolveExcluding re-asks a question without the named tickets. The
// roll-up, feedback and cache stages are skipped.
func (r *Resolver) ResolveExcluding(ctx context.Context, question string, excludeTickets []string) *domain.ResolveResult {
	if len(excludeTickets) == 0 {
		excludeTickets = []string{}
	}
	return r.observe(ctx, question, excludeTickets)
}

func (r *Resolver) observe(ctx context.Context, question string, exclude []string) *domain.ResolveResult {
	start := r.now()
	res := r.resolve(ctx, question, exclude)
	elapsed := r.now().Sub(start)

	r.metrics.ObserveResolve(res.State.String(), res.Strategy, elapsed)
	if r.answerLog != nil {
		entry := &domain.AnswerLogEntry{
			Question:  res.Question,
			State:     res.State,
			Strategy:  res.Strategy,
			Sources:   len(res.Sources),
			Error:     res.Err,
			ServedAt:  start,
			LatencyMS: elapsed.Milliseconds(),
		}
		if err := r.answerLog.Append(ctx, entry); err != nil {
			logger.Warn("resolver: answer log append failed: %v", err)
		}
	}
	logger.Debug("resolve %q -> %s (strategy=%s, %s)", question, res.State, res.Strategy, elapsed)
	return res
}

func (r *Resolver) resolve(ctx context.Context, question string, exclude []string) *domain.ResolveResult {
	clean, ok := Sanitize(question)
	if !ok {
		return rejected(question, domain.ReasonMalformed)
	}
	rerun := exclude != nil

	if !rerun && r.epics != nil {
		if kw, isEpic := EpicKeyword(clean); isEpic && kw != "" {
			return r.rollup(ctx, question, kw)
		}
	}

	if !rerun && r.feedback != nil {
		if rec := r.feedback.Lookup(ctx, clean); rec != nil {
			// still rateable so a stale acceptance can be rejected
			return &domain.ResolveResult{
				Question:         question,
				Answer:           rec.Answer,
				Sources:          slices.Clone(rec.Sources),
				State:            domain.StateFeedbackHit,
				FeedbackEligible: true,
			}
		}
	}

	if !HasDomainKeyword(clean) && !IsMeaningful(clean) {
		return rejected(question, domain.ReasonOffDomain)
	}

	key := answerCacheKey(clean)
	if !rerun {
		if cached := r.cached(ctx, key); cached != nil {
			cached.Question = question
			return cached
		}
	}

	res := r.semantic(ctx, question, clean, exclude)
	if !rerun && res.State == domain.StateSemanticAnswer {
		r.store(ctx, key, res)
	}
	return res
}

func rejected(question, reason string) *domain.ResolveResult {
	return &domain.ResolveResult{
		Question: question,
		Answer:   domain.MsgRejected,
		Sources:  []domain.SourceRef{},
		State:    domain.StateRejected,
		Reason:   reason,
	}
}

func noAnswer(question string, err error) *domain.ResolveResult {
	res := &domain.ResolveResult{
		Question: question,
		Answer:   domain.MsgNotFound,
		Sources:  []domain.SourceRef{},
		State:    domain.StateNoAnswer,
	}
	if err != nil {
		res.Err = err.Error()
	}
	return res
}

// rollup answers a project question from the aggregator.
func (r *Resolver) rollup(ctx context.Context, question, keyword string) *domain.ResolveResult {
	groups, err := r.epics.Aggregate(ctx, keyword)
	if err != nil {
		logger.Warn("resolver: epic aggregate %q failed: %v", keyword, err)
		r.metrics.BackendError("effort_store")
		return noAnswer(question, err)
	}
	if len(groups) == 0 {
		res := noAnswer(question, nil)
		res.Answer = domain.MsgNoEpic
		return res
	}

	sources := make([]domain.SourceRef, 0, len(groups))
	for _, g := range groups {
		sources = append(sources, domain.SourceRef{
			TicketID: g.ProjectKey,
			Source:   "epic",
			Snippet:  fmt.Sprintf("%s: %d개 작업", g.ProjectName, g.Count),
		})
	}
	return &domain.ResolveResult{
		Question: question,
		Answer:   r.epics.Render(keyword, groups),
		Sources:  sources,
		State:    domain.StateEpicRollup,
		Epics:    groups,
	}
}

// attempt is the outcome of one rewrite strategy.
type attempt struct {
	strategy   string
	records    []domain.EffortRecord
	answer     string
	acceptable bool
}

// semantic runs the rewrite strategies until one yields an acceptable
// answer backed by enough documents.
func (r *Resolver) semantic(ctx context.Context, question, clean string, exclude []string) *domain.ResolveResult {
	if r.index == nil {
		return noAnswer(question, domain.ErrVectorIndexUnavailable)
	}
	if r.llm == nil {
		return noAnswer(question, domain.ErrLLMUnavailable)
	}

	filter := r.categoryFilter(clean)
	excludeIDs := make([]string, 0, len(exclude))
	for _, id := range exclude {
		excludeIDs = append(excludeIDs, effortDocumentID(id))
	}

	var best *attempt
	tried := make(map[string]bool)
	for _, strategy := range r.strategies {
		if best != nil && best.acceptable && len(best.records) >= r.settings.MinDocs {
			break
		}
		query := strategy.Build(clean)
		if query == "" || tried[query] {
			continue
		}
		tried[query] = true

		cur, err := r.try(ctx, strategy.Name, query, clean, filter, excludeIDs)
		if err != nil {
			logger.Warn("resolver: %s attempt failed: %v", strategy.Name, err)
			return noAnswer(question, err)
		}
		logger.Debug("resolver: %s %q -> %d records, acceptable=%t",
			strategy.Name, query, len(cur.records), cur.acceptable)

		if best == nil || (cur.acceptable && (!best.acceptable || len(cur.records) > len(best.records))) {
			best = cur
		}
	}

	if best == nil || !best.acceptable {
		return noAnswer(question, nil)
	}

	sources := make([]domain.SourceRef, 0, len(best.records))
	for _, rec := range best.records {
		sources = append(sources, domain.SourceRef{
			TicketID: rec.TicketID,
			Source:   driven.SourceEffort,
			Snippet:  rec.Title,
		})
	}
	return &domain.ResolveResult{
		Question:         question,
		Answer:           best.answer,
		Sources:          sources,
		State:            domain.StateSemanticAnswer,
		FeedbackEligible: true,
		Strategy:         best.strategy,
	}
}

// categoryFilter builds the retrieval filter, narrowed to the predicted
// major category when the classifier is confident.
func (r *Resolver) categoryFilter(question string) map[string]string {
	filter := map[string]string{driven.MetaSource: driven.SourceEffort}
	if r.classifier == nil || !r.classifier.Trained() {
		return filter
	}
	cat, confidence := r.classifier.Predict(question)
	if confidence > r.settings.CategoryConfidence && !cat.IsUnclassified() {
		filter[driven.MetaCategoryMajor] = cat.Major
		logger.Debug("resolver: category filter %s (%.2f)", cat.Major, confidence)
	}
	return filter
}

// try retrieves, re-ranks and synthesises an answer for one query.
func (r *Resolver) try(
	ctx context.Context,
	strategy, query, question string,
	filter map[string]string,
	excludeIDs []string,
) (*attempt, error) {
	opts := driven.SearchOptions{
		K:          r.settings.K,
		FetchK:     r.settings.FetchK,
		Lambda:     r.settings.MMRLambda,
		Filter:     filter,
		ExcludeIDs: excludeIDs,
	}
	hits, err := r.index.Search(ctx, query, opts)
	if err != nil {
		r.metrics.BackendError("vector_index")
		return nil, fmt.Errorf("%w: search: %w", domain.ErrVectorIndexUnavailable, err)
	}
	if len(hits) == 0 && len(filter) > 1 {
		opts.Filter = map[string]string{driven.MetaSource: driven.SourceEffort}
		if hits, err = r.index.Search(ctx, query, opts); err != nil {
			r.metrics.BackendError("vector_index")
			return nil, fmt.Errorf("%w: search: %w", domain.ErrVectorIndexUnavailable, err)
		}
	}

	cur := &attempt{strategy: strategy, records: r.rerank(ctx, question, hits)}
	if len(cur.records) == 0 {
		return cur, nil
	}

	blocks := make([]string, 0, len(cur.records))
	for i := range cur.records {
		blocks = append(blocks, RenderRecord(&cur.records[i]))
	}
	prompt := fmt.Sprintf(loadPrompt(r.promptStore, driven.PromptEffortAnswer),
		strings.Join(blocks, "\n\n"), question)

	logger.Debug("resolver: %s answering from %d records", r.llm.ModelName(), len(cur.records))
	answer, err := r.llm.Generate(ctx, prompt, driven.GenerateOptions{MaxTokens: 1024})
	if err != nil {
		r.metrics.BackendError("llm")
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	cur.answer = strings.TrimSpace(answer)
	cur.acceptable = acceptableAnswer(cur.answer)
	return cur, nil
}

// rerank resolves hits to records and orders them by combined score.
// The sort is stable so equal scores keep retrieval order.
func (r *Resolver) rerank(ctx context.Context, question string, hits []driven.VectorHit) []domain.EffortRecord {
	query := r.scorer.Normalize(question)
	type scored struct {
		rec   domain.EffortRecord
		score float64
	}
	ranked := make([]scored, 0, len(hits))
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		id := h.Document.Metadata[driven.MetaTicketID]
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		rec, err := r.efforts.Get(ctx, id)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				logger.Warn("resolver: load %s failed: %v", id, err)
			}
			continue
		}
		ratio := r.scorer.Score(query, r.scorer.Normalize(rec.Title))
		ranked = append(ranked, scored{rec: *rec, score: CombinedScore(Similarity(h.Distance), ratio)})
	}
	slices.SortStableFunc(ranked, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})
	out := make([]domain.EffortRecord, len(ranked))
	for i, s := range ranked {
		out[i] = s.rec
	}
	return out
}

// acceptableAnswer rejects empty answers and the model's no-answer phrases.
func acceptableAnswer(answer string) bool {
	return answer != "" && !containsAny(answer, noAnswerMarkers)
}

func answerCacheKey(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(question)), " ")
}

func (r *Resolver) cached(ctx context.Context, key string) *domain.ResolveResult {
	if r.cache == nil || r.settings.CacheTTL <= 0 {
		return nil
	}
	res, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("resolver: answer cache get failed: %v", err)
		r.metrics.BackendError("answer_cache")
		return nil
	}
	if !ok {
		return nil
	}
	logger.Debug("resolver: cache hit %q", key)
	return res
}

func (r *Resolver) store(ctx context.Context, key string, res *domain.ResolveResult) {
	if r.cache == nil || r.settings.CacheTTL <= 0 {
		return
	}
	if err := r.cache.Set(ctx, key, res, r.settings.CacheTTL); err != nil {
		logger.Warn("resolver: answer cache set failed: %v", err)
		r.metrics.BackendError("answer_cache")
	}
}
