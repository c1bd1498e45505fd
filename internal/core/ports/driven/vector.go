package driven

import "context"

// Metadata keys shared by every indexed document.
const (
	MetaSource        = "source"
	MetaTicketID      = "ticket_id"
	MetaCategoryMajor = "category_major"
	MetaCategoryMinor = "category_minor"
	MetaCategorySub   = "category_sub"
	MetaProjectKey    = "project_key"
	MetaCreatedAt     = "created_at"
	MetaAnswer        = "answer"
	MetaSources       = "sources"
	MetaQAHash        = "qa_hash"
	MetaTimestamp     = "timestamp"
)

// Source tags for indexed documents.
const (
	SourceEffort           = "effort"
	SourcePositiveFeedback = "positive_feedback"
)

// IndexDocument is a searchable text with flat string metadata.
type IndexDocument struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// SearchOptions configures a nearest-neighbour query.
type SearchOptions struct {
	// K is the number of results returned.
	K int

	// FetchK is the candidate pool size before diversity re-ranking.
	// Zero or FetchK <= K disables MMR.
	FetchK int

	// Lambda balances relevance (1.0) and diversity (0.0) for MMR.
	Lambda float64

	// Filter keeps only documents whose metadata equals every entry.
	Filter map[string]string

	// ExcludeIDs drops documents with these IDs before ranking.
	ExcludeIDs []string
}

// VectorHit is one search result. Lower Distance is closer.
type VectorHit struct {
	Document IndexDocument
	Distance float64
}

// VectorIndex is the nearest-neighbour index over effort records and
// accepted feedback. It is eventually consistent with the canonical stores.
type VectorIndex interface {
	// Add inserts or replaces documents by ID.
	Add(ctx context.Context, docs []IndexDocument) error

	// Delete removes documents by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// DeleteWhere removes every document matching the filter and returns the count.
	DeleteWhere(ctx context.Context, filter map[string]string) (int, error)

	// Search returns documents ordered by ascending distance, or in MMR
	// selection order when FetchK > K.
	Search(ctx context.Context, query string, opts SearchOptions) ([]VectorHit, error)

	// Count returns the number of indexed documents.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
