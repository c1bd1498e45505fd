package domain

import (
	"crypto/md5" //nolint:gosec // content hash for deduplication, not security
	"encoding/hex"
	"slices"
	"time"
)

// Polarity is the judgement attached to a feedback record.
type Polarity string

// Feedback polarities.
const (
	PolarityAccepted Polarity = "accepted"
	PolarityRejected Polarity = "rejected"
)

// IsValid returns true if the polarity is recognised.
func (p Polarity) IsValid() bool {
	return p == PolarityAccepted || p == PolarityRejected
}

// Opposite returns the other polarity.
func (p Polarity) Opposite() Polarity {
	if p == PolarityAccepted {
		return PolarityRejected
	}
	return PolarityAccepted
}

// String returns the string representation.
func (p Polarity) String() string {
	return string(p)
}

// ParsePolarity accepts the canonical names plus a few common aliases.
func ParsePolarity(s string) (Polarity, error) {
	switch s {
	case "accepted", "accept", "positive", "good", "up", "+":
		return PolarityAccepted, nil
	case "rejected", "reject", "negative", "bad", "down", "-":
		return PolarityRejected, nil
	default:
		return "", ErrInvalidInput
	}
}

// SourceRef is a provenance snippet attached to an answer.
type SourceRef struct {
	// TicketID is set when the snippet came from an effort record.
	TicketID string `json:"ticket_id,omitempty"`

	// Source names the collection the snippet came from.
	Source string `json:"source"`

	// Snippet is a short excerpt of the matched content.
	Snippet string `json:"snippet,omitempty"`
}

// FeedbackRecord is a cached judgement on one question/answer pair.
// QAHash is unique across the whole store, so a hash lives in at most
// one polarity at a time.
type FeedbackRecord struct {
	QAHash      string      `json:"qa_hash"`
	Question    string      `json:"question"`
	Answer      string      `json:"answer"`
	Sources     []SourceRef `json:"sources"`
	Polarity    Polarity    `json:"polarity"`
	FirstSeenAt time.Time   `json:"first_seen_at"`
	LastSeenAt  time.Time   `json:"last_seen_at"`
	Count       int         `json:"occurrence_count"`
	ObservedBy  []string    `json:"observed_by"`
}

// Observe adds a reporter if it has not been seen before.
func (r *FeedbackRecord) Observe(reporter string) {
	if reporter == "" || slices.Contains(r.ObservedBy, reporter) {
		return
	}
	r.ObservedBy = append(r.ObservedBy, reporter)
}

// QAHash returns the deduplication key for a question/answer pair.
func QAHash(question, answer string) string {
	sum := md5.Sum([]byte(question + "|||" + answer)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// FeedbackSubmission is the input to FeedbackService.Record.
type FeedbackSubmission struct {
	Question string
	Answer   string
	Sources  []SourceRef
	Polarity Polarity
	Reporter string
}

// FeedbackOutcome reports what Record did.
type FeedbackOutcome struct {
	// QAHash is the key of the affected record.
	QAHash string `json:"qa_hash"`

	// IsNew is true when a fresh record was inserted.
	IsNew bool `json:"is_new"`

	// Count is the occurrence count after the operation.
	Count int `json:"occurrence_count"`

	// TypeChanged is true when the record moved to the other polarity.
	TypeChanged bool `json:"type_changed"`

	// AnswerReplaced is true when an accepted record for the same question
	// had its answer overwritten.
	AnswerReplaced bool `json:"answer_replaced"`

	// RemovedAccepted is true when a rejection removed an accepted record.
	RemovedAccepted bool `json:"removed_accepted"`
}
