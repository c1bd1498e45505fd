package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

func readResource(t *testing.T, s *Server, path string, read reader, uri string) (string, error) {
	t.Helper()
	res, err := s.serveResource(path, read)(context.Background(), &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	})
	if err != nil {
		return "", err
	}
	require.Len(t, res.Contents, 1)
	assert.Equal(t, uri, res.Contents[0].URI)
	assert.Equal(t, "application/json", res.Contents[0].MIMEType)
	return res.Contents[0].Text, nil
}

func TestResourceID(t *testing.T) {
	tests := []struct {
		uri, path string
		id        string
		ok        bool
	}{
		{"effortqa://taxonomy", "taxonomy", "", true},
		{"effortqa://taxonomy/x", "taxonomy", "", false},
		{"effortqa://records/ENOMIX-123", "records/", "ENOMIX-123", true},
		{"effortqa://records/", "records/", "", false},
		{"effortqa://records/a/b", "records/", "", false},
		{"file://records/ENOMIX-123", "records/", "", false},
		{"effortqa://projects/%ED%9A%8C%EC%9B%90", "projects/", "회원", true},
		{"effortqa://projects/%zz", "projects/", "", false},
		{"", "records/", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			id, ok := resourceID(tt.uri, tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestTaxonomyResource(t *testing.T) {
	taxonomy := &domain.Taxonomy{Version: 3}
	require.NoError(t, taxonomy.Add(domain.NewCategory("개발", "프론트엔드", "화면")))

	s := newTestServer(t, &Ports{Taxonomy: &mockTaxonomyService{taxonomy: taxonomy}})
	text, err := readResource(t, s, "taxonomy", s.readTaxonomy, "effortqa://taxonomy")

	require.NoError(t, err)
	assert.Contains(t, text, "프론트엔드")
	assert.Contains(t, text, "화면")

	bare := newTestServer(t, &Ports{})
	_, err = readResource(t, bare, "taxonomy", bare.readTaxonomy, "effortqa://taxonomy")
	assert.Error(t, err)
}

func TestRecordResource(t *testing.T) {
	efforts := &mockEffortService{records: map[string]domain.EffortRecord{
		"ENOMIX-1": {TicketID: "ENOMIX-1", Title: "로그인 화면", Estimate: 3},
	}}
	s := newTestServer(t, &Ports{Efforts: efforts})

	text, err := readResource(t, s, "records/", s.readRecord, "effortqa://records/ENOMIX-1")
	require.NoError(t, err)
	assert.Contains(t, text, "로그인 화면")

	_, err = readResource(t, s, "records/", s.readRecord, "effortqa://records/ENOMIX-9")
	assert.Error(t, err, "unknown ticket")

	_, err = readResource(t, s, "records/", s.readRecord, "effortqa://records/")
	assert.Error(t, err, "missing ID")

	failing := newTestServer(t, &Ports{Efforts: &mockEffortService{err: errors.New("disk")}})
	_, err = readResource(t, failing, "records/", failing.readRecord, "effortqa://records/ENOMIX-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "getting record ENOMIX-1")
}

func TestProjectsResource(t *testing.T) {
	epics := &mockEpicAggregator{groups: []domain.EpicGroup{
		{ProjectKey: "ENOMIX-100", ProjectName: "회원 관리", Total: 12.5, Count: 4},
	}}
	s := newTestServer(t, &Ports{Epics: epics})

	text, err := readResource(t, s, "projects/", s.readProjects, "effortqa://projects/%ED%9A%8C%EC%9B%90")
	require.NoError(t, err)
	assert.Contains(t, text, `"key": "ENOMIX-100"`)
	assert.Contains(t, text, `"total_man_days": 12.5`)

	empty := newTestServer(t, &Ports{Epics: &mockEpicAggregator{}})
	_, err = readResource(t, empty, "projects/", empty.readProjects, "effortqa://projects/none")
	assert.Error(t, err, "no matching epic")

	broken := newTestServer(t, &Ports{Epics: &mockEpicAggregator{err: errors.New("index")}})
	_, err = readResource(t, broken, "projects/", broken.readProjects, "effortqa://projects/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aggregating x")
}
