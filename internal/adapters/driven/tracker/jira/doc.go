// Package jira implements driven.Tracker against the Jira Cloud REST v3 API.
//
// Tickets are flattened to plain text: Atlassian Document Format bodies
// become newline-separated paragraphs and comments are merged in order.
// Estimates are read from the first populated story-point field in a
// configurable priority list and normalised to effort-days; projects that
// estimate in man-months are converted with a configurable factor.
package jira
