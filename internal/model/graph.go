package model

// IngestedFile is one input to the document graph builder, and also the
// per-chunk projection carried by each node.
type IngestedFile struct {
	Path           string            `json:"path"`
	MimeType       string            `json:"mime_type"`
	Classification string            `json:"classification,omitempty"`
	Text           string            `json:"text"`
	Metadata       map[string]string `json:"metadata"`
}

// DocumentNode is one classified, chunked slice of a parsed document.
type DocumentNode struct {
	ID            string       `json:"node_id"`
	ProjectID     string       `json:"project_id"`
	File          IngestedFile `json:"file"`
	Division      string       `json:"division,omitempty"`
	Section       string       `json:"section,omitempty"`
	PageReference string       `json:"page_reference,omitempty"`
	ChunkIndex    int          `json:"chunk_index"`
	ChunkCount    int          `json:"chunk_count"`
}

// DocumentGraph is the flat node collection produced by a bulk build.
type DocumentGraph struct {
	ProjectID string         `json:"project_id"`
	Nodes     []DocumentNode `json:"nodes"`
}

// AddNode appends a node to the graph.
func (g *DocumentGraph) AddNode(node DocumentNode) {
	g.Nodes = append(g.Nodes, node)
}

// ByClassification returns the nodes whose file classification matches label.
func (g *DocumentGraph) ByClassification(label string) []DocumentNode {
	var out []DocumentNode
	for _, node := range g.Nodes {
		if node.File.Classification == label {
			out = append(out, node)
		}
	}
	return out
}
