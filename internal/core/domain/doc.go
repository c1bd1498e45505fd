// Package domain holds the types every layer shares: effort records and
// their epic roll-ups, feedback keyed by qa_hash, the category taxonomy,
// resolve results and sync jobs, settings, and the sentinel errors that
// adapters wrap.
//
// It imports only the standard library.
package domain
