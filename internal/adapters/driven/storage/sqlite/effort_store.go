package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

// effortStore implements driven.EffortStore.
type effortStore struct {
	db *sql.DB
}

var _ driven.EffortStore = (*effortStore)(nil)

const effortColumns = `ticket_id, title, estimate, estimate_original, estimate_unit,
	description, comments, estimation_reason, team_member,
	category_major, category_minor, category_sub,
	project_key, project_name, notes, created_at`

// Upsert inserts or replaces a record. A replaced record keeps its position.
func (s *effortStore) Upsert(ctx context.Context, rec *domain.EffortRecord) error {
	if rec == nil {
		return domain.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO effort_records (`+effortColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticket_id) DO UPDATE SET
			title = excluded.title,
			estimate = excluded.estimate,
			estimate_original = excluded.estimate_original,
			estimate_unit = excluded.estimate_unit,
			description = excluded.description,
			comments = excluded.comments,
			estimation_reason = excluded.estimation_reason,
			team_member = excluded.team_member,
			category_major = excluded.category_major,
			category_minor = excluded.category_minor,
			category_sub = excluded.category_sub,
			project_key = excluded.project_key,
			project_name = excluded.project_name,
			notes = excluded.notes,
			created_at = excluded.created_at
	`, rec.TicketID, rec.Title, rec.Estimate, rec.EstimateOriginal, string(rec.EstimateUnit),
		rec.Description, rec.Comments, rec.EstimationReason, rec.TeamMember,
		rec.Category.Major, rec.Category.Minor, rec.Category.Sub,
		rec.ProjectKey, rec.ProjectName, rec.Notes, formatTime(rec.CreatedAt))
	if err != nil {
		return persistErr("upserting effort record", err)
	}
	return nil
}

// Get retrieves a record by ticket ID.
func (s *effortStore) Get(ctx context.Context, ticketID string) (*domain.EffortRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+effortColumns+" FROM effort_records WHERE ticket_id = ?", ticketID)
	rec, err := scanEffort(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, persistErr("getting effort record", err)
	}
	return rec, nil
}

// List returns every record in insertion order.
func (s *effortStore) List(ctx context.Context) ([]domain.EffortRecord, error) {
	return s.query(ctx, "SELECT "+effortColumns+" FROM effort_records ORDER BY rowid")
}

// Count returns the number of records.
func (s *effortStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM effort_records").Scan(&n); err != nil {
		return 0, persistErr("counting effort records", err)
	}
	return n, nil
}

// UpdateCategory replaces a record's category triple.
func (s *effortStore) UpdateCategory(ctx context.Context, ticketID string, category domain.Category) error {
	return s.update(ctx, `
		UPDATE effort_records SET category_major = ?, category_minor = ?, category_sub = ?
		WHERE ticket_id = ?
	`, category.Major, category.Minor, category.Sub, ticketID)
}

// UpdateProject sets a record's parent epic.
func (s *effortStore) UpdateProject(ctx context.Context, ticketID, projectKey, projectName string) error {
	return s.update(ctx,
		"UPDATE effort_records SET project_key = ?, project_name = ? WHERE ticket_id = ?",
		projectKey, projectName, ticketID)
}

// SearchTitle returns records whose title contains term, case-insensitively.
func (s *effortStore) SearchTitle(ctx context.Context, term string) ([]domain.EffortRecord, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	// Filtered in Go: SQLite's lower() only folds ASCII.
	needle := strings.ToLower(term)
	var out []domain.EffortRecord
	for _, rec := range all {
		if strings.Contains(strings.ToLower(rec.Title), needle) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *effortStore) update(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return persistErr("updating effort record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("updating effort record", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *effortStore) query(ctx context.Context, query string, args ...any) ([]domain.EffortRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("querying effort records", err)
	}
	return collect(rows, "effort records", scanEffort)
}

func scanEffort(row scanner) (*domain.EffortRecord, error) {
	var rec domain.EffortRecord
	var unit, createdAt string
	if err := row.Scan(&rec.TicketID, &rec.Title, &rec.Estimate, &rec.EstimateOriginal, &unit,
		&rec.Description, &rec.Comments, &rec.EstimationReason, &rec.TeamMember,
		&rec.Category.Major, &rec.Category.Minor, &rec.Category.Sub,
		&rec.ProjectKey, &rec.ProjectName, &rec.Notes, &createdAt); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	rec.EstimateUnit = domain.EstimateUnit(unit)
	rec.CreatedAt = parseTime(createdAt)
	return &rec, nil
}
