// Package file provides filesystem-backed implementations of driven ports.
//
// Adapters:
//   - ConfigStore: TOML configuration (~/.effortqa/config.toml)
//   - PromptStore: user-editable LLM prompt templates (~/.effortqa/prompts)
//   - TaxonomyStore: YAML category taxonomy with change watching
//   - BackupStore: JSON snapshot of effort records before each sync
package file
