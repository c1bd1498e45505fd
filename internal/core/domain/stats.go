package domain

import "time"

// EffortStats summarises the effort record store.
type EffortStats struct {
	TotalTickets  int     `json:"total_tickets"`
	TotalEffort   float64 `json:"total_effort"`
	AverageEffort float64 `json:"average_effort"`

	// ByTicket maps ticket IDs to their estimate.
	ByTicket map[string]float64 `json:"by_ticket"`

	// ByTitle aggregates records sharing a title.
	ByTitle map[string]TitleStats `json:"by_title"`

	// ByMember maps assignees to their summed estimate.
	ByMember map[string]float64 `json:"by_member"`

	// ByCategory maps major categories to their summed estimate.
	ByCategory map[string]float64 `json:"by_category"`

	Unclassified int `json:"unclassified"`
}

// TitleStats aggregates records sharing one title.
type TitleStats struct {
	Count    int      `json:"count"`
	Total    float64  `json:"total"`
	Tickets  []string `json:"tickets"`
	Category string   `json:"category,omitempty"`
}

// WeeklyFeedbackStats is the feedback acceptance ratio for one ISO week.
type WeeklyFeedbackStats struct {
	Year          int       `json:"year"`
	Week          int       `json:"week"`
	WeekStart     time.Time `json:"week_start"`
	AnswersServed int       `json:"answers_served"`
	Accepted      int       `json:"accepted"`
	Rejected      int       `json:"rejected"`

	// Ratio is Accepted divided by AnswersServed, zero when nothing was served.
	Ratio float64 `json:"ratio"`
}

// AnswerLogEntry is one served answer, recorded for statistics.
type AnswerLogEntry struct {
	Question  string       `json:"question"`
	State     ResolveState `json:"state"`
	Strategy  string       `json:"strategy,omitempty"`
	Sources   int          `json:"sources"`
	Error     string       `json:"error,omitempty"`
	ServedAt  time.Time    `json:"served_at"`
	LatencyMS int64        `json:"latency_ms"`
}

// WeekStart returns midnight of the Monday of t's ISO week, in t's location.
func WeekStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	y, m, d := t.AddDate(0, 0, -(weekday - 1)).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
