// Package sqlite provides the persistent implementation of the effortqa
// storage ports.
//
// It uses modernc.org/sqlite, a pure Go SQLite driver, so the binary
// cross-compiles without CGO. One database file backs every store:
//
//   - EffortStore: historical effort records
//   - FeedbackStore: rated question/answer pairs
//   - AnswerLog: served answers for acceptance statistics
//   - VectorIndex: embedded documents for semantic retrieval
//   - SchedulerStore: scheduled task state and run history
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files; applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.effortqa/data/effortqa.db.
//
// # Ordering
//
// Effort records, feedback and index documents are upserted with
// ON CONFLICT DO UPDATE so a replaced row keeps its original rowid, and
// listing by rowid yields insertion order.
package sqlite
