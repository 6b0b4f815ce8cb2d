// internal/bridge/filebridge_test.go
package bridge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileChannel_Commands(t *testing.T) {
	dir := t.TempDir()
	now := time.Unix(1700000000, 0)

	require.NoError(t, writeFileChannel(dir, cmdSetLOD, 3.25, now))
	target, err := os.ReadFile(filepath.Join(dir, targetFileName))
	require.NoError(t, err)
	assert.Equal(t, "3.250\n", string(target))

	require.NoError(t, writeFileChannel(dir, cmdEnable, 0, now))
	mode, err := os.ReadFile(filepath.Join(dir, modeFileName))
	require.NoError(t, err)
	assert.Equal(t, "ENABLED=1\n", string(mode))

	require.NoError(t, writeFileChannel(dir, cmdDisable, 0, now))
	mode, _ = os.ReadFile(filepath.Join(dir, modeFileName))
	assert.Equal(t, "ENABLED=0\n", string(mode))

	require.NoError(t, writeFileChannel(dir, cmdPing, 0, now))
	mode, _ = os.ReadFile(filepath.Join(dir, modeFileName))
	assert.Equal(t, "PING=1700000000\n", string(mode))
}

func TestWriteFileChannel_CreatesDirAndLeavesNoTemp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "bridge")

	require.NoError(t, writeFileChannel(dir, cmdSetLOD, 4.5, time.Unix(0, 0)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, targetFileName, entries[0].Name())
}

func TestReadFileStatus_MissingFile(t *testing.T) {
	st, err := ReadFileStatus(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestReadFileStatus_Parse(t *testing.T) {
	dir := t.TempDir()
	body := "ENABLED=yes\n" +
		"current_lod=3.750\n" +
		"Target_LOD=4.000\n" +
		"tier=cruise\n" +
		"this line is noise\n" +
		"last_update_epoch=1700000123\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, statusFileName), []byte(body), 0o644))

	st, err := ReadFileStatus(dir)
	require.NoError(t, err)
	require.NotNil(t, st)

	require.NotNil(t, st.Enabled)
	assert.True(t, *st.Enabled)
	require.NotNil(t, st.CurrentLOD)
	assert.Equal(t, 3.75, *st.CurrentLOD)
	require.NotNil(t, st.TargetLOD)
	assert.Equal(t, 4.0, *st.TargetLOD)
	assert.Equal(t, "cruise", st.Tier)
	assert.Equal(t, time.Unix(1700000123, 0), st.LastUpdateAt)
}

func TestReadFileStatus_EpochFallsBackToModTime(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, statusFileName),
		[]byte("enabled=0\ncurrent_lod=not-a-number\n"),
		0o644,
	))

	st, err := ReadFileStatus(dir)
	require.NoError(t, err)
	require.NotNil(t, st)

	require.NotNil(t, st.Enabled)
	assert.False(t, *st.Enabled)
	assert.Nil(t, st.CurrentLOD, "malformed values are skipped")
	assert.False(t, st.LastUpdateAt.IsZero())
	assert.Equal(t, st.FileModifiedAt, st.LastUpdateAt)
}
