package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestZIP(t *testing.T, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func TestExtract_MultiFile(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"specs.txt":  "SECTION 03 30 00",
		"bid.csv":    "item,qty,unit",
		"notes.text": "pre-bid meeting notes",
	})

	destDir := t.TempDir()
	extracted, err := Extract(zipPath, destDir)
	require.NoError(t, err)
	assert.Len(t, extracted, 3)

	data, err := os.ReadFile(filepath.Join(destDir, "specs.txt"))
	require.NoError(t, err)
	assert.Equal(t, "SECTION 03 30 00", string(data))
}

func TestExtract_WithSubdirectory(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "nested.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	_, err = w.Create("drawings/")
	require.NoError(t, err)
	fw, err := w.Create("drawings/A-101.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("floor plan notes")) //nolint:errcheck
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	destDir := t.TempDir()
	extracted, err := Extract(zipPath, destDir)
	require.NoError(t, err)
	// Directory entries are created but not listed.
	assert.Len(t, extracted, 1)

	data, err := os.ReadFile(filepath.Join(destDir, "drawings", "A-101.txt"))
	require.NoError(t, err)
	assert.Equal(t, "floor plan notes", string(data))
}

func TestExtract_ZipSlipPrevention(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "malicious.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	fw, err := w.Create("../../../etc/passwd")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("malicious")) //nolint:errcheck
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	destDir := t.TempDir()
	_, err = Extract(zipPath, destDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
}

func TestExtract_CorruptArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notazip.zip")
	require.NoError(t, os.WriteFile(path, []byte("this is not a zip"), 0o644))

	destDir := t.TempDir()
	_, err := Extract(path, destDir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestExtract_MissingArchive(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "absent.zip"), t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupt))
}
