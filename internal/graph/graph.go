// Package graph builds a classified, chunked document graph from a set of
// ingested files, with a CSI spec-section refinement pass over the result.
package graph

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bidintake/internal/archive"
	"github.com/sells-group/bidintake/internal/classify"
	"github.com/sells-group/bidintake/internal/config"
	"github.com/sells-group/bidintake/internal/model"
	"github.com/sells-group/bidintake/internal/normalize"
	"github.com/sells-group/bidintake/internal/ocr"
)

// textExtensions are the file types the bulk loader reads directly.
var textExtensions = map[string]string{
	".txt": "text/plain",
	".md":  "text/markdown",
	".csv": "text/csv",
}

// Builder assembles document graphs using the shared chunking and
// classification configuration.
type Builder struct {
	cfg config.IngestConfig
	pdf ocr.Extractor
}

// New creates a graph builder. The extractor may be nil when no PDF inputs
// are expected.
func New(cfg config.IngestConfig, pdf ocr.Extractor) *Builder {
	return &Builder{cfg: cfg, pdf: pdf}
}

// Build chunks, classifies, and graphs every readable input file. Files that
// yield no text are skipped. The full sanitized document text is stashed on
// chunk 0's metadata only.
func (b *Builder) Build(ctx context.Context, projectID string, files []model.IngestedFile) (*model.DocumentGraph, error) {
	graph := &model.DocumentGraph{ProjectID: projectID}

	minChars := b.cfg.ChunkMinChars
	if minChars <= 0 {
		minChars = normalize.DefaultMinChars
	}
	maxChars := b.cfg.ChunkMaxChars
	if maxChars <= 0 {
		maxChars = normalize.DefaultMaxChars
	}

	for _, file := range files {
		text := b.loadText(ctx, file)
		chunks := normalize.Chunks(text, b.cfg.RedactSensitive, minChars, maxChars)
		if len(chunks) == 0 {
			continue
		}

		chunkCount := len(chunks)
		for _, chunk := range chunks {
			metadata := make(map[string]string, len(file.Metadata)+4)
			for k, v := range file.Metadata {
				metadata[k] = v
			}
			metadata["chunk_index"] = strconv.Itoa(chunk.Index)
			metadata["chunk_count"] = strconv.Itoa(chunkCount)
			if chunk.Redacted {
				metadata["redacted"] = "true"
			}
			if chunk.Index == 0 {
				metadata["raw_text"] = chunk.DocumentText
			}

			sectionTag := classify.Section(chunk.Text, filepath.Base(file.Path))
			discipline := classify.Discipline(chunk.Text)

			if sectionTag != "" {
				metadata["section_tag"] = sectionTag
			}
			if discipline != "" {
				if _, exists := metadata["discipline"]; !exists {
					metadata["discipline"] = discipline
				}
			}
			if revision := classify.DetectRevision(chunk.Text); revision != "" {
				metadata["revision"] = revision
			}
			if addendum := classify.DetectAddendum(chunk.Text); addendum != "" {
				metadata["addendum"] = addendum
			}

			classification := discipline
			if classification == "" {
				classification = sectionTag
			}

			section := metadata["section_tag"]
			if section == "" {
				section = metadata["section"]
			}
			pageRef := metadata["page"]
			if pageRef == "" {
				pageRef = strconv.Itoa(chunk.Index + 1)
			}

			graph.AddNode(model.DocumentNode{
				ID:        "doc_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
				ProjectID: projectID,
				File: model.IngestedFile{
					Path:           file.Path,
					MimeType:       file.MimeType,
					Classification: classification,
					Text:           chunk.Text,
					Metadata:       metadata,
				},
				Division:      metadata["division"],
				Section:       section,
				PageReference: pageRef,
				ChunkIndex:    chunk.Index,
				ChunkCount:    chunkCount,
			})
		}
	}

	return graph, nil
}

// ProcessArchive extracts a zip into a scratch directory, builds the graph
// from its text and PDF contents, and runs the spec-section refinement.
func (b *Builder) ProcessArchive(ctx context.Context, projectID, zipPath string) (*model.DocumentGraph, error) {
	workspace, err := os.MkdirTemp("", "bidintake_graph_")
	if err != nil {
		return nil, eris.Wrap(err, "graph: create workspace")
	}
	defer os.RemoveAll(workspace) //nolint:errcheck

	if _, err := archive.Extract(zipPath, workspace); err != nil {
		return nil, eris.Wrapf(err, "graph: extract %s", zipPath)
	}

	files, err := loadFiles(workspace)
	if err != nil {
		return nil, err
	}

	graph, err := b.Build(ctx, projectID, files)
	if err != nil {
		return nil, err
	}

	RefineSpecSections(graph)
	return graph, nil
}

// RefineSpecSections replaces each node's section with the first CSI
// MasterFormat number found in its source document text and records the
// matching section title.
func RefineSpecSections(graph *model.DocumentGraph) {
	for i := range graph.Nodes {
		node := &graph.Nodes[i]
		sourceText := node.File.Metadata["raw_text"]
		if sourceText == "" {
			sourceText = node.File.Text
		}
		sections := classify.SpecSections(sourceText)
		if len(sections) == 0 {
			continue
		}
		node.Section = sections[0].Number
		node.File.Metadata["section_title"] = sections[0].Title
	}
}

// loadFiles walks an extraction tree and describes every graph-eligible file.
func loadFiles(root string) ([]model.IngestedFile, error) {
	var files []model.IngestedFile

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		mime, textual := textExtensions[ext]
		if !textual && ext != ".pdf" {
			return nil
		}
		if ext == ".pdf" {
			mime = "application/pdf"
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return eris.Wrapf(err, "graph: relativize %s", path)
		}

		files = append(files, model.IngestedFile{
			Path:     path,
			MimeType: mime,
			Metadata: map[string]string{"source": filepath.ToSlash(rel)},
		})
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "graph: enumerate %s", root)
	}

	return files, nil
}

// loadText reads a file's text: PDFs through the layered extractor, known
// text formats directly, everything else as empty.
func (b *Builder) loadText(ctx context.Context, file model.IngestedFile) string {
	ext := strings.ToLower(filepath.Ext(file.Path))

	if file.MimeType == "application/pdf" || ext == ".pdf" {
		if b.pdf == nil {
			return ""
		}
		text, err := b.pdf.ExtractText(ctx, file.Path)
		if err != nil {
			zap.L().Debug("pdf text extraction failed", zap.String("path", file.Path), zap.Error(err))
			return ""
		}
		return text
	}

	if _, ok := textExtensions[ext]; ok {
		raw, err := os.ReadFile(file.Path)
		if err != nil {
			zap.L().Debug("unable to read text file", zap.String("path", file.Path), zap.Error(err))
			return ""
		}
		return string(raw)
	}

	return ""
}
