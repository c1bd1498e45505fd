package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
	"github.com/custodia-labs/effortqa/internal/logger"
)

// Ensure EffortService implements the interface.
var _ driving.EffortService = (*EffortService)(nil)

// reindexBatchSize bounds the documents sent to the index per call.
const reindexBatchSize = 64

// categoryValidator checks categories against the current taxonomy.
type categoryValidator interface {
	Validate(c domain.Category) error
}

// EffortService manages effort records and keeps the effort partition of
// the vector index in step with the store.
type EffortService struct {
	store    driven.EffortStore
	index    driven.VectorIndex
	backup   driven.BackupStore
	taxonomy categoryValidator

	mu  sync.Mutex
	now func() time.Time
}

// NewEffortService creates an effort service. index, backup and taxonomy
// may be nil.
func NewEffortService(
	store driven.EffortStore,
	index driven.VectorIndex,
	backup driven.BackupStore,
	taxonomy categoryValidator,
) *EffortService {
	return &EffortService{
		store:    store,
		index:    index,
		backup:   backup,
		taxonomy: taxonomy,
		now:      time.Now,
	}
}

// Add inserts or updates a record. An existing record keeps its category
// and project linkage unless opts asks to overwrite them.
func (s *EffortService) Add(ctx context.Context, rec *domain.EffortRecord, opts driving.AddOptions) (*driving.AddOutcome, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record", domain.ErrInvalidInput)
	}
	next := *rec
	next.TicketID = strings.TrimSpace(next.TicketID)
	next.Title = strings.TrimSpace(next.Title)
	next.Estimate = domain.RoundEffort(next.Estimate)
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("record %q: %w", next.TicketID, err)
	}
	if err := s.validateCategory(next.Category); err != nil {
		return nil, err
	}

	s.mu.Lock()
	outcome, err := s.upsert(ctx, &next, opts)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if !outcome.Unchanged && !opts.SkipReindex && s.index != nil {
		if err := s.Reindex(ctx, next.TicketID); err != nil {
			logger.Warn("effort: reindex %s failed: %v", next.TicketID, err)
			return outcome, err
		}
	}
	return outcome, nil
}

func (s *EffortService) upsert(ctx context.Context, next *domain.EffortRecord, opts driving.AddOptions) (*driving.AddOutcome, error) {
	existing, err := s.store.Get(ctx, next.TicketID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: get %s: %w", domain.ErrPersistence, next.TicketID, err)
	}

	if existing == nil {
		if next.CreatedAt.IsZero() {
			next.CreatedAt = s.now()
		}
		if err := s.store.Upsert(ctx, next); err != nil {
			return nil, fmt.Errorf("%w: insert %s: %w", domain.ErrPersistence, next.TicketID, err)
		}
		logger.Debug("effort: created %s", next.TicketID)
		return &driving.AddOutcome{Created: true}, nil
	}

	if !opts.OverwriteCategory && !existing.Category.IsUnclassified() {
		next.Category = existing.Category
	}
	if !opts.OverwriteProject && existing.ProjectKey != "" {
		next.ProjectKey = existing.ProjectKey
		next.ProjectName = existing.ProjectName
	}
	next.CreatedAt = existing.CreatedAt

	if *existing == *next {
		return &driving.AddOutcome{Unchanged: true}, nil
	}
	if err := s.store.Upsert(ctx, next); err != nil {
		return nil, fmt.Errorf("%w: update %s: %w", domain.ErrPersistence, next.TicketID, err)
	}
	logger.Debug("effort: updated %s", next.TicketID)
	return &driving.AddOutcome{Updated: true}, nil
}

func (s *EffortService) validateCategory(c domain.Category) error {
	if s.taxonomy == nil {
		if !c.IsUnclassified() && !c.IsComplete() {
			return fmt.Errorf("%w: %s", domain.ErrInvalidCategory, c.String())
		}
		return nil
	}
	return s.taxonomy.Validate(c)
}

// Get retrieves one record.
func (s *EffortService) Get(ctx context.Context, ticketID string) (*domain.EffortRecord, error) {
	return s.store.Get(ctx, strings.TrimSpace(ticketID))
}

// List returns every record.
func (s *EffortService) List(ctx context.Context) ([]domain.EffortRecord, error) {
	return s.store.List(ctx)
}

// SetCategory replaces a record's category. The change is all-or-nothing.
func (s *EffortService) SetCategory(ctx context.Context, ticketID string, category domain.Category) error {
	if err := s.validateCategory(category); err != nil {
		return err
	}
	s.mu.Lock()
	err := s.store.UpdateCategory(ctx, ticketID, category)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("set category of %s: %w", ticketID, err)
	}
	if s.index == nil {
		return nil
	}
	return s.Reindex(ctx, ticketID)
}

// SearchSimilar returns records whose title contains feature.
func (s *EffortService) SearchSimilar(ctx context.Context, feature string) ([]domain.EffortRecord, error) {
	feature = strings.TrimSpace(feature)
	if feature == "" {
		return nil, fmt.Errorf("%w: feature name is required", domain.ErrInvalidInput)
	}
	return s.store.SearchTitle(ctx, feature)
}

// Reindex re-materialises records as effort documents. With no ticket
// IDs the whole effort partition is dropped and rebuilt.
func (s *EffortService) Reindex(ctx context.Context, ticketIDs ...string) error {
	if s.index == nil {
		return domain.ErrVectorIndexUnavailable
	}

	var records []domain.EffortRecord
	if len(ticketIDs) == 0 {
		all, err := s.store.List(ctx)
		if err != nil {
			return fmt.Errorf("list effort records: %w", err)
		}
		records = all
		removed, err := s.index.DeleteWhere(ctx, map[string]string{driven.MetaSource: driven.SourceEffort})
		if err != nil {
			return fmt.Errorf("%w: clear effort documents: %w", domain.ErrVectorIndexUnavailable, err)
		}
		logger.Debug("effort reindex: cleared %d documents", removed)
	} else {
		ids := make([]string, 0, len(ticketIDs))
		for _, id := range ticketIDs {
			rec, err := s.store.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("get %s: %w", id, err)
			}
			records = append(records, *rec)
			ids = append(ids, effortDocumentID(id))
		}
		if err := s.index.Delete(ctx, ids); err != nil {
			return fmt.Errorf("%w: delete effort documents: %w", domain.ErrVectorIndexUnavailable, err)
		}
	}

	for start := 0; start < len(records); start += reindexBatchSize {
		end := min(start+reindexBatchSize, len(records))
		docs := make([]driven.IndexDocument, 0, end-start)
		for i := start; i < end; i++ {
			docs = append(docs, EffortDocument(&records[i]))
		}
		if err := s.index.Add(ctx, docs); err != nil {
			return fmt.Errorf("%w: add effort documents: %w", domain.ErrVectorIndexUnavailable, err)
		}
	}
	logger.Debug("effort reindex: indexed %d records", len(records))
	return nil
}

// Stats summarises the store.
func (s *EffortService) Stats(ctx context.Context) (*domain.EffortStats, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list effort records: %w", err)
	}
	return ComputeEffortStats(records), nil
}

// ComputeEffortStats aggregates records by ticket, title, member and major category.
func ComputeEffortStats(records []domain.EffortRecord) *domain.EffortStats {
	stats := &domain.EffortStats{
		ByTicket:   make(map[string]float64, len(records)),
		ByTitle:    make(map[string]domain.TitleStats),
		ByMember:   make(map[string]float64),
		ByCategory: make(map[string]float64),
	}
	var total float64
	for _, r := range records {
		total += r.Estimate
		stats.ByTicket[r.TicketID] = r.Estimate

		ts := stats.ByTitle[r.Title]
		ts.Count++
		ts.Total = domain.RoundEffort(ts.Total + r.Estimate)
		ts.Tickets = append(ts.Tickets, r.TicketID)
		if ts.Category == "" {
			ts.Category = r.Category.String()
		}
		stats.ByTitle[r.Title] = ts

		if named(r.TeamMember) {
			stats.ByMember[r.TeamMember] = domain.RoundEffort(stats.ByMember[r.TeamMember] + r.Estimate)
		}
		if r.Category.IsUnclassified() {
			stats.Unclassified++
		} else {
			stats.ByCategory[r.Category.Major] = domain.RoundEffort(stats.ByCategory[r.Category.Major] + r.Estimate)
		}
	}
	stats.TotalTickets = len(records)
	stats.TotalEffort = domain.RoundEffort(total)
	if len(records) > 0 {
		stats.AverageEffort = domain.RoundTo(total/float64(len(records)), 1)
	}
	return stats
}

// Backup snapshots every record.
func (s *EffortService) Backup(ctx context.Context) (string, error) {
	if s.backup == nil {
		return "", fmt.Errorf("%w: no backup store configured", domain.ErrPersistence)
	}
	records, err := s.store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list effort records: %w", err)
	}
	location, err := s.backup.WriteSnapshot(ctx, records)
	if err != nil {
		return "", fmt.Errorf("%w: write snapshot: %w", domain.ErrPersistence, err)
	}
	logger.Info("effort backup: %d records -> %s", len(records), location)
	return location, nil
}

// Export writes every record as an indented JSON list.
func (s *EffortService) Export(ctx context.Context, w io.Writer) error {
	records, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list effort records: %w", err)
	}
	if records == nil {
		records = []domain.EffortRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}

// Import reads a JSON list of records and adds each one, then rebuilds
// the effort partition once. It returns the number of created or updated
// records. Invalid records are skipped and reported in the joined error.
func (s *EffortService) Import(ctx context.Context, r io.Reader, opts driving.AddOptions) (int, error) {
	var records []domain.EffortRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return 0, fmt.Errorf("%w: decode effort records: %w", domain.ErrInvalidInput, err)
	}

	opts.SkipReindex = true
	changed := 0
	var errs []error
	for i := range records {
		out, err := s.Add(ctx, &records[i], opts)
		if err != nil {
			if errors.Is(err, domain.ErrPersistence) {
				return changed, err
			}
			errs = append(errs, err)
			continue
		}
		if !out.Unchanged {
			changed++
		}
	}

	if changed > 0 && s.index != nil {
		if err := s.Reindex(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return changed, errors.Join(errs...)
}

func effortDocumentID(ticketID string) string {
	return "effort:" + ticketID
}

// EffortDocument renders a record as an effort document.
func EffortDocument(rec *domain.EffortRecord) driven.IndexDocument {
	md := map[string]string{
		driven.MetaSource:     driven.SourceEffort,
		driven.MetaTicketID:   rec.TicketID,
		driven.MetaProjectKey: rec.ProjectKey,
	}
	if !rec.Category.IsUnclassified() {
		md[driven.MetaCategoryMajor] = rec.Category.Major
		md[driven.MetaCategoryMinor] = rec.Category.Minor
		md[driven.MetaCategorySub] = rec.Category.Sub
	}
	if !rec.CreatedAt.IsZero() {
		md[driven.MetaCreatedAt] = rec.CreatedAt.UTC().Format(time.RFC3339)
	}
	return driven.IndexDocument{
		ID:       effortDocumentID(rec.TicketID),
		Content:  RenderRecord(rec),
		Metadata: md,
	}
}

// RenderRecord formats a record as the labelled text block that is both
// embedded and handed to the model.
func RenderRecord(rec *domain.EffortRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "티켓: %s\n", rec.TicketID)
	fmt.Fprintf(&b, "제목: %s\n", rec.Title)
	if rec.ProjectKey != "" {
		fmt.Fprintf(&b, "Epic: %s", rec.ProjectKey)
		if rec.ProjectName != "" {
			fmt.Fprintf(&b, " (%s)", rec.ProjectName)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "공수: %s\n", rec.DisplayEstimate())
	writeField(&b, "카테고리", rec.Category.String())
	writeField(&b, "담당자", rec.TeamMember)
	writeField(&b, "산정 이유", rec.EstimationReason)
	writeField(&b, "설명", rec.Description)
	writeField(&b, "댓글", rec.Comments)
	writeField(&b, "비고", rec.Notes)
	return strings.TrimRight(b.String(), "\n")
}

func writeField(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}
