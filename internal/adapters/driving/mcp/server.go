package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/effortqa/internal/logger"
)

const (
	serverName = "effortqa"

	shutdownGrace = 5 * time.Second
)

// instructions is sent to clients during initialisation.
const instructions = `Answers effort questions ("how long did the login page take?") from
historical tickets. Call ask_effort first. When the answer has
feedback_eligible set, pass the question and answer back unchanged to
submit_feedback with accepted or rejected; an accepted answer is returned
directly the next time the same question is asked. To ask again without the
cited tickets, call ask_effort with exclude_tickets.`

// Server exposes the effort tools and resources to MCP clients over stdio
// or streamable HTTP.
type Server struct {
	ports *Ports
	impl  *mcp.Implementation
	sdk   *mcp.Server
}

// NewServer registers every tool and resource the ports can back. An
// empty version is reported as "dev".
func NewServer(ports *Ports, version string) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("mcp: %w", err)
	}
	if version == "" {
		version = "dev"
	}
	impl := &mcp.Implementation{Name: serverName, Version: version}
	s := &Server{
		ports: ports,
		impl:  impl,
		sdk:   mcp.NewServer(impl, &mcp.ServerOptions{Instructions: instructions}),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

func (s *Server) Version() string { return s.impl.Version }

// Run serves one client on stdin/stdout until it disconnects or ctx ends.
func (s *Server) Run(ctx context.Context) error {
	logger.Debug("mcp: %s %s on stdio", s.impl.Name, s.impl.Version)
	return s.sdk.Run(ctx, &mcp.StdioTransport{})
}

// Handler mounts the streamable MCP endpoint at / and a plain-text
// liveness probe at /healthz. Every HTTP session shares one server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "ok %s\n", s.impl.Version)
	})
	mux.Handle("/", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.sdk }, nil))
	return mux
}

// RunHTTP serves Handler on addr. Cancelling ctx shuts the listener down
// gracefully and returns nil.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	served := make(chan error, 1)
	go func() { served <- srv.ListenAndServe() }()
	logger.Debug("mcp: %s %s on http %s", s.impl.Name, s.impl.Version, addr)

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("mcp: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp: shutdown: %v", err)
		}
		return nil
	}
}
