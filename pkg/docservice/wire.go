package docservice

import (
	"github.com/matzehuels/docmap/pkg/mindmap"
	"github.com/matzehuels/docmap/pkg/storage"
)

// MindMapResponse is the body of GET /api/v1/mindmap/{documentID}.
type MindMapResponse = mindmap.Tree

// ExpandRequest is the body of POST /api/v1/nodes/{nodeID}/expand.
type ExpandRequest struct {
	// IncludeContent defaults to true when omitted.
	IncludeContent *bool `json:"include_content,omitempty"`
}

// WantContent resolves the default.
func (r ExpandRequest) WantContent() bool {
	return r.IncludeContent == nil || *r.IncludeContent
}

// ExpandResponse is the body returned by the expand endpoint.
type ExpandResponse = mindmap.Expansion

// ImportRequest is the body of POST /api/v1/documents.
type ImportRequest struct {
	mindmap.Tree
	OriginalFilename string `json:"original_filename,omitempty"`
	PageCount        int    `json:"page_count,omitempty"`
}

// LoadResponse is returned after restoring a persisted document.
type LoadResponse struct {
	DocumentID  string `json:"document_id"`
	ContentHash string `json:"content_hash"`
	RootID      string `json:"root_id"`
	NodeCount   int    `json:"node_count"`
}

// DocumentsResponse lists persisted documents, newest first.
type DocumentsResponse struct {
	Documents []storage.DocumentInfo `json:"documents"`
}

// AuditResponse is a document's audit trail, newest first.
type AuditResponse struct {
	ContentHash string               `json:"content_hash"`
	Entries     []storage.AuditEntry `json:"entries"`
}

// NodePatch is the body of PATCH /api/v1/nodes/{nodeID}. Nil fields are
// left unchanged; structural fields cannot be patched.
type NodePatch struct {
	Title       *string  `json:"title,omitempty"`
	Summary     *string  `json:"summary,omitempty"`
	FullContent *string  `json:"full_content,omitempty"`
	KeyConcepts []string `json:"key_concepts,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p NodePatch) Empty() bool {
	return p.Title == nil && p.Summary == nil && p.FullContent == nil && p.KeyConcepts == nil
}

// Apply returns n with the patch applied.
func (p NodePatch) Apply(n mindmap.Node) mindmap.Node {
	n = n.Clone()
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Summary != nil {
		n.Summary = *p.Summary
	}
	if p.FullContent != nil {
		n.FullContent = *p.FullContent
	}
	if p.KeyConcepts != nil {
		n.KeyConcepts = append([]string{}, p.KeyConcepts...)
	}
	return n
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}
