package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

const (
	scheme   = "effortqa://"
	jsonMIME = "application/json"
)

// reader loads the value behind a resource. id is the path segment after
// the collection, empty for fixed resources.
type reader func(ctx context.Context, id string) (any, error)

func (s *Server) registerResources() {
	s.sdk.AddResource(&mcp.Resource{
		URI:         scheme + "taxonomy",
		Name:        "taxonomy",
		Description: "Category taxonomy used to classify effort records",
		MIMEType:    jsonMIME,
	}, s.serveResource("taxonomy", s.readTaxonomy))

	s.sdk.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: scheme + "records/{ticketId}",
		Name:        "effort-record",
		Description: "One effort record by ticket ID",
		MIMEType:    jsonMIME,
	}, s.serveResource("records/", s.readRecord))

	s.sdk.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: scheme + "projects/{keyword}",
		Name:        "project-rollup",
		Description: "Per-project effort roll-up for an Epic name or key",
		MIMEType:    jsonMIME,
	}, s.serveResource("projects/", s.readProjects))
}

// serveResource adapts read to an MCP resource handler. Missing ports,
// malformed URIs and unknown IDs all read as not found.
func (s *Server) serveResource(
	path string,
	read reader,
) func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := req.Params.URI
		id, ok := resourceID(uri, path)
		if !ok {
			return nil, mcp.ResourceNotFoundError(uri)
		}

		v, err := read(ctx, id)
		if errors.Is(err, ErrServiceUnavailable) || errors.Is(err, domain.ErrNotFound) {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		if err != nil {
			return nil, err
		}

		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", uri, err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: jsonMIME, Text: string(data)}},
		}, nil
	}
}

// resourceID matches uri against scheme+path. A path ending in "/" names a
// collection and yields the single non-empty segment after it; any other
// path must match exactly. The segment is percent-decoded.
func resourceID(uri, path string) (string, bool) {
	rest, ok := strings.CutPrefix(uri, scheme+path)
	if !ok {
		return "", false
	}
	if !strings.HasSuffix(path, "/") {
		return "", rest == ""
	}
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	id, err := url.PathUnescape(rest)
	return id, err == nil
}

func (s *Server) readTaxonomy(context.Context, string) (any, error) {
	if s.ports.Taxonomy == nil {
		return nil, ErrServiceUnavailable
	}
	return s.ports.Taxonomy.Get(), nil
}

func (s *Server) readRecord(ctx context.Context, ticketID string) (any, error) {
	if s.ports.Efforts == nil {
		return nil, ErrServiceUnavailable
	}
	rec, err := s.ports.Efforts.Get(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("getting record %s: %w", ticketID, err)
	}
	return rec, nil
}

func (s *Server) readProjects(ctx context.Context, keyword string) (any, error) {
	if s.ports.Epics == nil {
		return nil, ErrServiceUnavailable
	}
	groups, err := s.ports.Epics.Aggregate(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("aggregating %s: %w", keyword, err)
	}
	if len(groups) == 0 {
		return nil, domain.ErrNotFound
	}
	return projectSummaries(groups), nil
}
