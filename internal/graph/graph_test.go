package graph

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bidintake/internal/config"
	"github.com/sells-group/bidintake/internal/model"
)

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) ExtractText(_ context.Context, _ string) (string, error) {
	return s.text, s.err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuild_ChunksLongDocument(t *testing.T) {
	dir := t.TempDir()
	sentence := "The structural steel erector shall coordinate anchor bolt placement with the concrete subcontractor. "
	content := strings.Repeat(sentence, 10)
	path := writeFile(t, dir, "notes.txt", content)

	builder := New(config.IngestConfig{ChunkMinChars: 100, ChunkMaxChars: 200}, nil)
	graph, err := builder.Build(context.Background(), "p1", []model.IngestedFile{
		{Path: path, MimeType: "text/plain", Metadata: map[string]string{"source": "notes.txt"}},
	})
	require.NoError(t, err)
	require.Greater(t, len(graph.Nodes), 1)

	count := graph.Nodes[0].ChunkCount
	assert.Len(t, graph.Nodes, count)

	for i, node := range graph.Nodes {
		assert.Equal(t, i, node.ChunkIndex)
		assert.Equal(t, count, node.ChunkCount)
		assert.Equal(t, "notes.txt", node.File.Metadata["source"])
		assert.NotEmpty(t, node.ID)
		if i == 0 {
			assert.NotEmpty(t, node.File.Metadata["raw_text"])
		} else {
			assert.Empty(t, node.File.Metadata["raw_text"])
		}
	}

	// Joining the chunks reconstructs the flattened document text.
	var parts []string
	for _, node := range graph.Nodes {
		parts = append(parts, node.File.Text)
	}
	raw := graph.Nodes[0].File.Metadata["raw_text"]
	assert.Equal(t, strings.ReplaceAll(raw, "\n", " "), strings.Join(parts, " "))
}

func TestBuild_SkipsEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	empty := writeFile(t, dir, "empty.txt", "   \n\n  ")

	builder := New(config.IngestConfig{}, nil)
	graph, err := builder.Build(context.Background(), "p1", []model.IngestedFile{
		{Path: empty, MimeType: "text/plain", Metadata: map[string]string{}},
	})
	require.NoError(t, err)
	assert.Empty(t, graph.Nodes)
}

func TestBuild_RedactionAndMarkers(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "addendum.txt",
		"ADDENDUM 2 issued per REV B drawings. Contact estimator@example.com with questions.")

	builder := New(config.IngestConfig{RedactSensitive: true}, nil)
	graph, err := builder.Build(context.Background(), "p1", []model.IngestedFile{
		{Path: path, MimeType: "text/plain", Metadata: map[string]string{}},
	})
	require.NoError(t, err)
	require.Len(t, graph.Nodes, 1)

	node := graph.Nodes[0]
	assert.Equal(t, "true", node.File.Metadata["redacted"])
	assert.Contains(t, node.File.Text, "[REDACTED_EMAIL]")
	assert.Equal(t, "B", node.File.Metadata["revision"])
	assert.Equal(t, "2", node.File.Metadata["addendum"])
}

func TestBuild_PDFViaExtractor(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "plan.pdf", "%PDF-1.4 stub")

	builder := New(config.IngestConfig{}, stubExtractor{
		text: "Mechanical ductwork layout for level two, sheets M-201 through M-208.",
	})
	graph, err := builder.Build(context.Background(), "p1", []model.IngestedFile{
		{Path: path, MimeType: "application/pdf", Metadata: map[string]string{}},
	})
	require.NoError(t, err)
	require.Len(t, graph.Nodes, 1)
	assert.Contains(t, graph.Nodes[0].File.Text, "Mechanical ductwork")
}

func TestBuild_PDFExtractorFailureSkips(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "plan.pdf", "%PDF-1.4 stub")

	builder := New(config.IngestConfig{}, stubExtractor{err: assert.AnError})
	graph, err := builder.Build(context.Background(), "p1", []model.IngestedFile{
		{Path: path, MimeType: "application/pdf", Metadata: map[string]string{}},
	})
	require.NoError(t, err)
	assert.Empty(t, graph.Nodes)
}

func TestRefineSpecSections(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "div03.txt",
		"SECTION 03 30 00 - CAST-IN-PLACE CONCRETE\n\nPART 1 - GENERAL\n\n"+
			"Concrete shall attain a compressive strength of 4000 psi at 28 days.")

	builder := New(config.IngestConfig{}, nil)
	graph, err := builder.Build(context.Background(), "p1", []model.IngestedFile{
		{Path: path, MimeType: "text/plain", Metadata: map[string]string{}},
	})
	require.NoError(t, err)
	require.Len(t, graph.Nodes, 1)

	RefineSpecSections(graph)

	assert.Equal(t, "03 30 00", graph.Nodes[0].Section)
	assert.Equal(t, "CAST-IN-PLACE CONCRETE", graph.Nodes[0].File.Metadata["section_title"])
}

func TestProcessArchive(t *testing.T) {
	root := t.TempDir()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("specs/div03.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("SECTION 03 30 00 - CAST-IN-PLACE CONCRETE\n\n" +
		"Formwork shall remain in place until the concrete reaches design strength."))
	require.NoError(t, err)
	w, err = zw.Create("logo.png")
	require.NoError(t, err)
	_, err = w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	zipPath := filepath.Join(root, "bid.zip")
	require.NoError(t, os.WriteFile(zipPath, buf.Bytes(), 0o644))

	builder := New(config.IngestConfig{}, nil)
	graph, err := builder.ProcessArchive(context.Background(), "p1", zipPath)
	require.NoError(t, err)

	require.Len(t, graph.Nodes, 1)
	assert.Equal(t, "specs/div03.txt", graph.Nodes[0].File.Metadata["source"])
	assert.Equal(t, "03 30 00", graph.Nodes[0].Section)
}
