package services

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
	"github.com/custodia-labs/effortqa/internal/logger"
)

// Ensure FeedbackService implements the interface.
var _ driving.FeedbackService = (*FeedbackService)(nil)

// feedbackSearchK is the number of neighbours fetched per semantic lookup.
const feedbackSearchK = 5

// FeedbackService records question/answer judgements and serves accepted
// answers as an authoritative cache ahead of semantic retrieval.
type FeedbackService struct {
	store     driven.FeedbackStore
	index     driven.VectorIndex
	answerLog driven.AnswerLog
	cache     driven.AnswerCache
	metrics   driven.Metrics
	scorer    *LexicalScorer
	epsilon   float64

	mu  sync.Mutex
	now func() time.Time
}

// NewFeedbackService creates a feedback service.
// index, answerLog, cache and metrics may be nil.
func NewFeedbackService(
	store driven.FeedbackStore,
	index driven.VectorIndex,
	answerLog driven.AnswerLog,
	cache driven.AnswerCache,
	metrics driven.Metrics,
	epsilon float64,
) *FeedbackService {
	if epsilon <= 0 {
		epsilon = domain.DefaultAppSettings().Retrieval.FeedbackEpsilon
	}
	return &FeedbackService{
		store:     store,
		index:     index,
		answerLog: answerLog,
		cache:     cache,
		metrics:   metricsOrNop(metrics),
		scorer:    NewLexicalScorer(),
		epsilon:   epsilon,
		now:       time.Now,
	}
}

// Record stores a judgement.
//
// A repeat of the same pair and polarity increments the count. The
// opposite polarity flips the record in place, keeping its counters. A new
// acceptance for a question that already has a different accepted answer
// replaces that answer. Any change touching accepted records rebuilds the
// accepted partition of the vector index.
func (s *FeedbackService) Record(ctx context.Context, sub domain.FeedbackSubmission) (*domain.FeedbackOutcome, error) {
	question := strings.TrimSpace(sub.Question)
	answer := strings.TrimSpace(sub.Answer)
	if question == "" || answer == "" {
		return nil, fmt.Errorf("%w: question and answer are required", domain.ErrInvalidInput)
	}
	if !sub.Polarity.IsValid() {
		return nil, fmt.Errorf("%w: polarity %q", domain.ErrInvalidInput, sub.Polarity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	hash := domain.QAHash(question, answer)
	outcome := &domain.FeedbackOutcome{QAHash: hash}

	existing, err := s.store.Get(ctx, hash)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: get feedback %s: %w", domain.ErrPersistence, hash, err)
	}

	touchesAccepted := sub.Polarity == domain.PolarityAccepted

	switch {
	case existing != nil && existing.Polarity == sub.Polarity:
		existing.Count++
		existing.Observe(sub.Reporter)
		existing.LastSeenAt = now
		if err := s.store.Save(ctx, existing); err != nil {
			return nil, fmt.Errorf("%w: save feedback %s: %w", domain.ErrPersistence, hash, err)
		}
		outcome.Count = existing.Count

	case existing != nil:
		if err := s.store.SetPolarity(ctx, hash, sub.Polarity, now); err != nil {
			return nil, fmt.Errorf("%w: flip feedback %s: %w", domain.ErrPersistence, hash, err)
		}
		if sub.Reporter != "" && !slices.Contains(existing.ObservedBy, sub.Reporter) {
			existing.Polarity = sub.Polarity
			existing.LastSeenAt = now
			existing.Observe(sub.Reporter)
			if err := s.store.Save(ctx, existing); err != nil {
				return nil, fmt.Errorf("%w: save feedback %s: %w", domain.ErrPersistence, hash, err)
			}
		}
		outcome.Count = existing.Count
		outcome.TypeChanged = true
		outcome.RemovedAccepted = existing.Polarity == domain.PolarityAccepted
		touchesAccepted = true
		logger.Debug("feedback %s moved %s -> %s", hash, existing.Polarity, sub.Polarity)

	default:
		rec := &domain.FeedbackRecord{
			QAHash:      hash,
			Question:    question,
			Answer:      answer,
			Sources:     sub.Sources,
			Polarity:    sub.Polarity,
			FirstSeenAt: now,
			LastSeenAt:  now,
			Count:       1,
		}
		rec.Observe(sub.Reporter)

		if sub.Polarity == domain.PolarityAccepted {
			prior, err := s.acceptedForQuestion(ctx, question)
			if err != nil {
				return nil, err
			}
			if prior != nil {
				rec.FirstSeenAt = prior.FirstSeenAt
				rec.Count = prior.Count
				rec.ObservedBy = slices.Clone(prior.ObservedBy)
				rec.Observe(sub.Reporter)
				if err := s.store.Delete(ctx, prior.QAHash); err != nil {
					return nil, fmt.Errorf("%w: replace feedback %s: %w", domain.ErrPersistence, prior.QAHash, err)
				}
				outcome.AnswerReplaced = true
				logger.Debug("feedback answer replaced for %q (%s -> %s)", question, prior.QAHash, hash)
			}
		}

		if err := s.store.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("%w: save feedback %s: %w", domain.ErrPersistence, hash, err)
		}
		outcome.IsNew = !outcome.AnswerReplaced
		outcome.Count = rec.Count
	}

	s.metrics.FeedbackRecorded(sub.Polarity.String(), outcome.IsNew, outcome.TypeChanged)
	s.flushCache(ctx)

	if touchesAccepted {
		if err := s.reindexAccepted(ctx); err != nil {
			logger.Warn("feedback: reindex after %s failed: %v", hash, err)
			return outcome, err
		}
	}
	return outcome, nil
}

// acceptedForQuestion returns the accepted record with exactly this question.
func (s *FeedbackService) acceptedForQuestion(ctx context.Context, question string) (*domain.FeedbackRecord, error) {
	accepted, err := s.store.List(ctx, domain.PolarityAccepted)
	if err != nil {
		return nil, fmt.Errorf("%w: list accepted feedback: %w", domain.ErrPersistence, err)
	}
	for i := range accepted {
		if accepted[i].Question == question {
			return &accepted[i], nil
		}
	}
	return nil, nil
}

// Lookup returns the accepted record answering question, or nil.
//
// A structural match needs full keyword coverage of the question. The
// semantic fallback additionally needs a vector distance below epsilon.
func (s *FeedbackService) Lookup(ctx context.Context, question string) *domain.FeedbackRecord {
	question = strings.TrimSpace(question)
	queryKeywords := s.scorer.Normalize(question)
	if len(queryKeywords) == 0 {
		return nil
	}

	accepted, err := s.store.List(ctx, domain.PolarityAccepted)
	if err != nil {
		logger.Warn("feedback lookup: list accepted failed: %v", err)
		s.metrics.BackendError("feedback_store")
		return nil
	}
	if len(accepted) == 0 {
		return nil
	}

	for i := range accepted {
		if s.scorer.Score(queryKeywords, s.scorer.Normalize(accepted[i].Question)) >= 1.0 {
			logger.Debug("feedback lookup: structural hit %s", accepted[i].QAHash)
			return &accepted[i]
		}
	}

	if s.index == nil {
		return nil
	}

	hits, err := s.searchFeedback(ctx, question)
	if err != nil {
		logger.Warn("feedback lookup: vector search failed: %v", err)
		s.metrics.BackendError("vector_index")
		return nil
	}

	var best *driven.VectorHit
	bestScore := 0.0
	for i := range hits {
		hit := &hits[i]
		ratio := s.scorer.Score(queryKeywords, s.scorer.Normalize(hit.Document.Content))
		sim := Similarity(hit.Distance)
		combined := CombinedScore(sim, ratio)
		logger.Debug("feedback lookup: %q distance=%.3f ratio=%.3f combined=%.3f",
			hit.Document.Content, hit.Distance, ratio, combined)
		if Accept(ratio, hit.Distance, s.epsilon) && combined > bestScore {
			best, bestScore = hit, combined
		}
	}
	if best == nil {
		return nil
	}

	hash := best.Document.Metadata[driven.MetaQAHash]
	for i := range accepted {
		if accepted[i].QAHash == hash {
			return &accepted[i]
		}
	}
	return recordFromDocument(best.Document)
}

// searchFeedback queries the accepted partition with the question and its
// space-free variant, keeping the closest distance per document.
func (s *FeedbackService) searchFeedback(ctx context.Context, question string) ([]driven.VectorHit, error) {
	opts := driven.SearchOptions{
		K:      feedbackSearchK,
		Filter: map[string]string{driven.MetaSource: driven.SourcePositiveFeedback},
	}
	hits, err := s.index.Search(ctx, question, opts)
	if err != nil {
		return nil, err
	}

	collapsed := strings.ReplaceAll(question, " ", "")
	if collapsed == question {
		return hits, nil
	}
	more, err := s.index.Search(ctx, collapsed, opts)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]driven.VectorHit, len(hits)+len(more))
	for _, h := range append(hits, more...) {
		if prev, ok := byID[h.Document.ID]; !ok || h.Distance < prev.Distance {
			byID[h.Document.ID] = h
		}
	}
	merged := make([]driven.VectorHit, 0, len(byID))
	for _, h := range byID {
		merged = append(merged, h)
	}
	slices.SortFunc(merged, func(a, b driven.VectorHit) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return strings.Compare(a.Document.ID, b.Document.ID)
	})
	if len(merged) > feedbackSearchK {
		merged = merged[:feedbackSearchK]
	}
	return merged, nil
}

// Get retrieves a record by hash.
func (s *FeedbackService) Get(ctx context.Context, qaHash string) (*domain.FeedbackRecord, error) {
	return s.store.Get(ctx, qaHash)
}

// List returns records of one polarity.
func (s *FeedbackService) List(ctx context.Context, polarity domain.Polarity) ([]domain.FeedbackRecord, error) {
	if polarity != "" && !polarity.IsValid() {
		return nil, fmt.Errorf("%w: polarity %q", domain.ErrInvalidInput, polarity)
	}
	return s.store.List(ctx, polarity)
}

// WeeklyAcceptance reports accepted feedback against answers served this ISO week.
func (s *FeedbackService) WeeklyAcceptance(ctx context.Context, now time.Time) (*domain.WeeklyFeedbackStats, error) {
	start := domain.WeekStart(now)
	year, week := now.ISOWeek()
	stats := &domain.WeeklyFeedbackStats{Year: year, Week: week, WeekStart: start}

	var err error
	if stats.Accepted, err = s.store.CountSince(ctx, domain.PolarityAccepted, start); err != nil {
		return nil, fmt.Errorf("count accepted: %w", err)
	}
	if stats.Rejected, err = s.store.CountSince(ctx, domain.PolarityRejected, start); err != nil {
		return nil, fmt.Errorf("count rejected: %w", err)
	}
	if s.answerLog != nil {
		if stats.AnswersServed, err = s.answerLog.CountSince(ctx, start); err != nil {
			return nil, fmt.Errorf("count answers: %w", err)
		}
	}
	if stats.AnswersServed > 0 {
		stats.Ratio = domain.RoundEffort(float64(stats.Accepted) / float64(stats.AnswersServed))
	}
	return stats, nil
}

// Reindex rebuilds the accepted partition of the vector index.
func (s *FeedbackService) Reindex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reindexAccepted(ctx)
}

// reindexAccepted deletes every positive_feedback document and re-adds the
// current accepted records.
func (s *FeedbackService) reindexAccepted(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	accepted, err := s.store.List(ctx, domain.PolarityAccepted)
	if err != nil {
		return fmt.Errorf("%w: list accepted feedback: %w", domain.ErrPersistence, err)
	}

	removed, err := s.index.DeleteWhere(ctx, map[string]string{driven.MetaSource: driven.SourcePositiveFeedback})
	if err != nil {
		s.metrics.BackendError("vector_index")
		return fmt.Errorf("%w: clear feedback documents: %w", domain.ErrVectorIndexUnavailable, err)
	}

	docs := make([]driven.IndexDocument, 0, len(accepted))
	for i := range accepted {
		docs = append(docs, feedbackDocument(&accepted[i]))
	}
	if len(docs) > 0 {
		if err := s.index.Add(ctx, docs); err != nil {
			s.metrics.BackendError("vector_index")
			return fmt.Errorf("%w: add feedback documents: %w", domain.ErrVectorIndexUnavailable, err)
		}
	}
	logger.Debug("feedback index rebuilt: removed=%d added=%d", removed, len(docs))
	return nil
}

// Export writes every record as an indented JSON list.
func (s *FeedbackService) Export(ctx context.Context, w io.Writer) error {
	records, err := s.store.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list feedback: %w", err)
	}
	if records == nil {
		records = []domain.FeedbackRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}

// Import reads a JSON list of records and saves each one, replacing
// records with the same hash.
func (s *FeedbackService) Import(ctx context.Context, r io.Reader) (int, error) {
	var records []domain.FeedbackRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return 0, fmt.Errorf("%w: decode feedback: %w", domain.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	imported := 0
	for i := range records {
		rec := &records[i]
		if rec.Question == "" || rec.Answer == "" || !rec.Polarity.IsValid() {
			logger.Warn("feedback import: skipping malformed record %d", i)
			continue
		}
		rec.QAHash = domain.QAHash(rec.Question, rec.Answer)
		if rec.Count < 1 {
			rec.Count = 1
		}
		if rec.FirstSeenAt.IsZero() {
			rec.FirstSeenAt = now
		}
		if rec.LastSeenAt.IsZero() {
			rec.LastSeenAt = rec.FirstSeenAt
		}
		if err := s.store.Save(ctx, rec); err != nil {
			return imported, fmt.Errorf("%w: save feedback %s: %w", domain.ErrPersistence, rec.QAHash, err)
		}
		imported++
	}

	s.flushCache(ctx)
	return imported, s.reindexAccepted(ctx)
}

func (s *FeedbackService) flushCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Flush(ctx); err != nil {
		logger.Warn("feedback: answer cache flush failed: %v", err)
	}
}

func feedbackDocument(rec *domain.FeedbackRecord) driven.IndexDocument {
	sources, err := json.Marshal(rec.Sources)
	if err != nil {
		sources = []byte("[]")
	}
	return driven.IndexDocument{
		ID:      "feedback:" + rec.QAHash,
		Content: rec.Question,
		Metadata: map[string]string{
			driven.MetaSource:    driven.SourcePositiveFeedback,
			driven.MetaQAHash:    rec.QAHash,
			driven.MetaAnswer:    rec.Answer,
			driven.MetaSources:   string(sources),
			driven.MetaTimestamp: rec.LastSeenAt.UTC().Format(time.RFC3339),
		},
	}
}

func recordFromDocument(doc driven.IndexDocument) *domain.FeedbackRecord {
	rec := &domain.FeedbackRecord{
		QAHash:   doc.Metadata[driven.MetaQAHash],
		Question: doc.Content,
		Answer:   doc.Metadata[driven.MetaAnswer],
		Polarity: domain.PolarityAccepted,
		Count:    1,
	}
	if raw := doc.Metadata[driven.MetaSources]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.Sources); err != nil {
			logger.Debug("feedback document %s: bad sources: %v", doc.ID, err)
		}
	}
	return rec
}
