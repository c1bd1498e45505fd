// Package driven lists what the core needs from the outside world.
// Adapters under internal/adapters/driven implement these interfaces;
// this package imports nothing but domain.
//
// Storage (EffortStore, FeedbackStore, AnswerLog, SchedulerStore,
// TaxonomyStore, BackupStore, ConfigStore, PromptStore) is always wired.
//
// The rest may be nil and callers degrade:
//
//   - VectorIndex, EmbeddingService: without them semantic lookups miss
//     and the resolver relies on the lexical strategies.
//   - LLMService: answers fall through to the not-found path.
//   - Tracker: sync commands report that no tracker is configured.
//   - AnswerCache: every semantic answer is regenerated.
//   - Metrics: counters are dropped.
//   - CategoryClassifier: retrieval runs without a category filter.
package driven
