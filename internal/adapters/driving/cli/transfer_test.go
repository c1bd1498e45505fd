package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport_Stdout(t *testing.T) {
	setupMocks(t)

	out, err := run(t, "", "export")

	require.NoError(t, err)
	assert.Contains(t, out, `{"records":[]}`)
}

func TestExport_FeedbackToFile(t *testing.T) {
	m := setupMocks(t)
	path := filepath.Join(t.TempDir(), "feedback.json")

	out, err := run(t, "", "export", "--feedback", "-o", path)

	require.NoError(t, err)
	assert.Equal(t, "feedback", m.feedback.exported)
	assert.Contains(t, out, "Exported to "+path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"feedback":[]}`, string(data))
}

func TestImport_Efforts(t *testing.T) {
	m := setupMocks(t)
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"records":[1,2,3]}`), 0o600))

	out, err := run(t, "", "import", path, "--overwrite")

	require.NoError(t, err)
	assert.Equal(t, `{"records":[1,2,3]}`, m.efforts.imported)
	assert.True(t, m.efforts.importOp.OverwriteCategory)
	assert.True(t, m.efforts.importOp.OverwriteProject)
	assert.Contains(t, out, "Imported 3 records.")
}

func TestImport_Feedback(t *testing.T) {
	m := setupMocks(t)
	path := filepath.Join(t.TempDir(), "feedback.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"feedback":[]}`), 0o600))

	out, err := run(t, "", "import", path, "--feedback")

	require.NoError(t, err)
	assert.Equal(t, `{"feedback":[]}`, m.feedback.imported)
	assert.Empty(t, m.efforts.imported)
	assert.Contains(t, out, "Imported 2 records.")
}

func TestImport_PartialFailure(t *testing.T) {
	m := setupMocks(t)
	m.efforts.err = errors.New("bad record")
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	_, err := run(t, "", "import", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 1 records")
}

func TestImport_MissingFile(t *testing.T) {
	setupMocks(t)

	_, err := run(t, "", "import", filepath.Join(t.TempDir(), "nope.json"))

	assert.ErrorContains(t, err, "failed to open")
}
