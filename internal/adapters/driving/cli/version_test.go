package cli

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withVersion(t *testing.T, v string) {
	t.Helper()
	prev := version
	version = v
	t.Cleanup(func() { version = prev })
}

func TestVersion_Full(t *testing.T) {
	setupMocks(t)
	withVersion(t, "1.4.0")

	out, err := run(t, "", "version")

	require.NoError(t, err)
	assert.Contains(t, out, "effortqa version 1.4.0")
	assert.Contains(t, out, runtime.Version())
	assert.Contains(t, out, runtime.GOOS+"/"+runtime.GOARCH)
}

func TestVersion_Short(t *testing.T) {
	setupMocks(t)
	withVersion(t, "1.4.0")

	out, err := run(t, "", "version", "--short")

	require.NoError(t, err)
	assert.Equal(t, "1.4.0", strings.TrimSpace(out))
}

func TestVersion_DevByDefault(t *testing.T) {
	setupMocks(t)
	withVersion(t, "dev")

	out, err := run(t, "", "version")

	require.NoError(t, err)
	assert.Contains(t, out, "effortqa version dev")
}

func TestVersion_RejectsArgs(t *testing.T) {
	setupMocks(t)

	_, err := run(t, "", "version", "extra")

	assert.Error(t, err)
}

func TestWriteVersion_Revision(t *testing.T) {
	withVersion(t, "1.4.0")

	var with, without bytes.Buffer
	writeVersion(&with, "0123456789ab+dirty")
	writeVersion(&without, "")

	assert.Contains(t, with.String(), "  revision: 0123456789ab+dirty\n")
	assert.Contains(t, with.String(), "  go:       "+runtime.Version())
	assert.NotContains(t, without.String(), "revision")
}

func TestSetVersion_IgnoresEmpty(t *testing.T) {
	withVersion(t, "dev")

	SetVersion("")
	assert.Equal(t, "dev", version)

	SetVersion("2.0.0")
	assert.Equal(t, "2.0.0", version)
}
