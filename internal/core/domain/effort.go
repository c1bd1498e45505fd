package domain

import (
	"math"
	"strconv"
	"time"
)

// EstimateUnit identifies the unit an estimate was recorded in before normalisation.
type EstimateUnit string

// Known estimate units.
const (
	// UnitManDay is the canonical unit. Estimates are stored in effort-days.
	UnitManDay EstimateUnit = "M/D"

	// UnitManMonth is used by projects that estimate in months.
	UnitManMonth EstimateUnit = "M/M"
)

// UnassignedProject is the group key for records with no parent project.
const UnassignedProject = "미지정"

// EffortRecord is one historical unit of work.
type EffortRecord struct {
	// TicketID is the unique, stable identifier (e.g. "ENOMIX-123").
	TicketID string `json:"ticket_id"`

	// Title is the ticket summary.
	Title string `json:"title"`

	// Estimate is the normalised effort in days. Never negative.
	Estimate float64 `json:"estimate"`

	// EstimateOriginal is the raw value before unit conversion.
	EstimateOriginal float64 `json:"estimate_original,omitempty"`

	// EstimateUnit is the unit of EstimateOriginal.
	EstimateUnit EstimateUnit `json:"estimate_unit,omitempty"`

	// Description is the flattened ticket body.
	Description string `json:"description,omitempty"`

	// Comments holds merged ticket comments.
	Comments string `json:"comments,omitempty"`

	// EstimationReason explains how the estimate was reached.
	EstimationReason string `json:"estimation_reason,omitempty"`

	// TeamMember is the assignee.
	TeamMember string `json:"team_member,omitempty"`

	// Category is the taxonomy path. Zero value means unclassified.
	Category Category `json:"category"`

	// ProjectKey is the parent Epic identifier.
	ProjectKey string `json:"project_key,omitempty"`

	// ProjectName is the parent Epic title.
	ProjectName string `json:"project_name,omitempty"`

	// Notes holds free-form remarks such as the tracker status.
	Notes string `json:"notes,omitempty"`

	// CreatedAt is when the record was first stored.
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks record invariants that do not depend on the taxonomy.
func (r *EffortRecord) Validate() error {
	if r.TicketID == "" {
		return ErrInvalidInput
	}
	if r.Estimate < 0 || math.IsNaN(r.Estimate) || math.IsInf(r.Estimate, 0) {
		return ErrInvalidInput
	}
	if !r.Category.IsUnclassified() && !r.Category.IsComplete() {
		return ErrInvalidCategory
	}
	return nil
}

// GroupKey returns the project key used for aggregation.
func (r *EffortRecord) GroupKey() string {
	if r.ProjectKey == "" {
		return UnassignedProject
	}
	return r.ProjectKey
}

// DisplayEstimate renders the estimate rounded to two decimals, with the
// original month value appended when the record was converted.
func (r *EffortRecord) DisplayEstimate() string {
	s := FormatEffort(r.Estimate) + " M/D"
	if r.EstimateUnit == UnitManMonth {
		s += " (원본: " + FormatEffort(r.EstimateOriginal) + " M/M)"
	}
	return s
}

// RoundEffort rounds an effort value to two decimal places.
func RoundEffort(x float64) float64 {
	return RoundTo(x, 2)
}

// RoundTo rounds x to the given number of decimal places, half away from zero.
func RoundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// FormatEffort renders an effort value rounded to two decimals with
// trailing zeros removed ("5", "2.5", "0.33").
func FormatEffort(x float64) string {
	return strconv.FormatFloat(RoundEffort(x), 'f', -1, 64)
}

// ConvertEstimate normalises a raw estimate into effort-days.
// Month values are multiplied by daysPerMonth.
func ConvertEstimate(value float64, unit EstimateUnit, daysPerMonth float64) float64 {
	if unit == UnitManMonth {
		return RoundEffort(value * daysPerMonth)
	}
	return RoundEffort(value)
}
