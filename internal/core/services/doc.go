// Package services implements the driving ports.
//
// Resolver answers a question by trying retrieval strategies in order and
// consulting the feedback cache; FeedbackService records accept and
// reject verdicts; EpicAggregator rolls records up by project. Storage,
// models and the tracker are reached only through driven ports.
package services
