package domain

import "time"

// Ticket is a work item fetched from the external tracker, already
// flattened to plain text and with its estimate normalised to days.
type Ticket struct {
	Key              string
	Summary          string
	IssueType        string
	Status           string
	Assignee         string
	Description      string
	Comments         string
	Estimate         float64
	EstimateOriginal float64
	EstimateUnit     EstimateUnit
	EpicKey          string
	EpicName         string
	Created          time.Time
	URL              string
}

// EpicInfo describes a parent epic in the tracker.
type EpicInfo struct {
	Key     string
	Name    string
	Status  string
	Project string
}

// SyncableIssueTypes are the issue types imported as effort records.
func SyncableIssueTypes() []string {
	return []string{"작업", "스토리", "버그", "Story", "Task", "Bug"}
}

// IsEpicType reports whether an issue type denotes an epic.
func IsEpicType(issueType string) bool {
	return issueType == "Epic" || issueType == "에픽"
}
