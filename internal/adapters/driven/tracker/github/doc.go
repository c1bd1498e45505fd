// Package github implements driven.Tracker over GitHub issues.
//
// Issues are tickets and milestones are epics. Keys follow the tracker
// convention of "<REPO>-<number>" for issues and "<REPO>-M<number>" for
// milestones, with the repository name upper-cased. Estimates are read
// from labels of the form "estimate:3".
package github
