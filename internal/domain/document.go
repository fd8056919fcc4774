package domain

// StatusPublished marks documents visible to the query-serving pipeline.
const StatusPublished = "published"

// Document is an immutable corpus entry. Metadata always carries a "status"
// field used as a retrieval post-filter, and may carry a stable external
// "payload_id". Retrieval never mutates documents.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// Status returns the publication status from metadata, or "" when absent.
func (d Document) Status() string {
	s, _ := d.Metadata["status"].(string)
	return s
}

// Published reports whether the document passes the publication post-filter.
func (d Document) Published() bool {
	return d.Status() == StatusPublished
}

// PayloadID returns the stable external identifier, falling back to ID.
func (d Document) PayloadID() string {
	if p, ok := d.Metadata["payload_id"].(string); ok && p != "" {
		return p
	}
	return d.ID
}

// SourceRef is a lightweight pointer to a document cited in an answer.
type SourceRef struct {
	ID        string `json:"id"`
	PayloadID string `json:"payload_id,omitempty"`
	Snippet   string `json:"snippet,omitempty"`
}

// Candidate is a transient ranked retrieval result, discarded after
// response assembly.
type Candidate struct {
	Doc            Document
	SparseScore    float64 // raw BM25 score, 0 when absent from the sparse list
	DenseRankScore float64 // (list length - position), 0 when absent from the dense list
	Fused          float64
	RerankScore    float64 // set by the reranker stage when enabled
	Rank           int     // 1-based position after reranking
}

// SourceRefOf builds the citation record for a candidate.
func SourceRefOf(c Candidate) SourceRef {
	snippet := c.Doc.Content
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return SourceRef{ID: c.Doc.ID, PayloadID: c.Doc.PayloadID(), Snippet: snippet}
}

// Answer is the user-visible result of one pipeline pass.
type Answer struct {
	Text    string
	Sources []SourceRef
	Cached  bool
}
