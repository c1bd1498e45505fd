// Package driving lists what the CLI, the TUI and the MCP server may ask
// of the core: ask a question, record feedback, manage effort records and
// the taxonomy, sync from the tracker and run scheduled tasks.
//
// Every interface here is implemented in internal/core/services.
package driving
