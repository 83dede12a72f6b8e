package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"time"

	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/mindmap"
	"github.com/matzehuels/docmap/pkg/observability"
)

// FormatVersion is written into every persisted mind map.
const FormatVersion = "1.0"

// Audit actions.
const (
	ActionDocumentCreated = "document_created"
	ActionMindMapSaved    = "mindmap_saved"
	ActionMindMapLoaded   = "mindmap_loaded"
	ActionMindMapUpdated  = "mindmap_updated"
)

// Store is implemented by every backend.
type Store interface {
	// Save writes m, replacing any document with the same content hash.
	Save(ctx context.Context, m *PersistedMindMap) error
	// Load returns the document or a DOCUMENT_NOT_FOUND error.
	Load(ctx context.Context, contentHash string) (*PersistedMindMap, error)
	// UpdateNodes replaces nodes by id and appends unknown ones.
	UpdateNodes(ctx context.Context, contentHash string, nodes []mindmap.Node) error
	// List returns all documents, most recently modified first.
	List(ctx context.Context) ([]DocumentInfo, error)
	// Audit returns the audit trail, newest first.
	Audit(ctx context.Context, contentHash string) ([]AuditEntry, error)
	// Delete removes the document and its audit trail.
	Delete(ctx context.Context, contentHash string) error
	Close() error
}

// PersistedMindMap is the stored form of one document.
type PersistedMindMap struct {
	Version          string         `json:"version" bson:"version"`
	DocumentID       string         `json:"document_id" bson:"document_id"`
	ContentHash      string         `json:"content_hash" bson:"content_hash"`
	OriginalFilename string         `json:"original_filename" bson:"original_filename"`
	PageCount        int            `json:"page_count" bson:"page_count"`
	RootNodeID       string         `json:"root_node_id" bson:"root_node_id"`
	Nodes            []mindmap.Node `json:"nodes" bson:"nodes"`
	CreatedAt        time.Time      `json:"created_at" bson:"created_at"`
	LastModified     time.Time      `json:"last_modified" bson:"last_modified"`
}

// AuditEntry is one line of a document's audit trail.
type AuditEntry struct {
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
	Action    string         `json:"action" bson:"action"`
	Details   map[string]any `json:"details" bson:"details"`
}

// DocumentInfo summarizes a stored document without its nodes.
type DocumentInfo struct {
	ContentHash      string    `json:"content_hash" bson:"content_hash"`
	DocumentID       string    `json:"document_id" bson:"document_id"`
	OriginalFilename string    `json:"original_filename" bson:"original_filename"`
	PageCount        int       `json:"page_count" bson:"page_count"`
	NodeCount        int       `json:"node_count" bson:"node_count"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
	LastModified     time.Time `json:"last_modified" bson:"last_modified"`
}

// ContentHash returns the first 16 hex characters of the SHA-256 of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// NewMindMap wraps a validated tree for storage.
func NewMindMap(contentHash, filename string, pageCount int, t mindmap.Tree, now time.Time) (*PersistedMindMap, error) {
	if err := errors.ValidateContentHash(contentHash); err != nil {
		return nil, err
	}
	if err := errors.ValidateFilename(filename); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	now = now.UTC()
	nodes := make([]mindmap.Node, len(t.Nodes))
	for i, n := range t.Nodes {
		nodes[i] = n.Clone()
		nodes[i].DocumentID = t.DocumentID
	}
	return &PersistedMindMap{
		Version:          FormatVersion,
		DocumentID:       t.DocumentID,
		ContentHash:      contentHash,
		OriginalFilename: filename,
		PageCount:        pageCount,
		RootNodeID:       t.RootID,
		Nodes:            nodes,
		CreatedAt:        now,
		LastModified:     now,
	}, nil
}

// Tree returns the stored nodes as a tree.
func (m *PersistedMindMap) Tree() mindmap.Tree {
	nodes := make([]mindmap.Node, len(m.Nodes))
	for i, n := range m.Nodes {
		nodes[i] = n.Clone()
	}
	return mindmap.Tree{DocumentID: m.DocumentID, RootID: m.RootNodeID, Nodes: nodes}
}

// Info summarizes m.
func (m *PersistedMindMap) Info() DocumentInfo {
	return DocumentInfo{
		ContentHash:      m.ContentHash,
		DocumentID:       m.DocumentID,
		OriginalFilename: m.OriginalFilename,
		PageCount:        m.PageCount,
		NodeCount:        len(m.Nodes),
		CreatedAt:        m.CreatedAt,
		LastModified:     m.LastModified,
	}
}

// Validate checks the fields every backend relies on.
func (m *PersistedMindMap) Validate() error {
	if err := errors.ValidateContentHash(m.ContentHash); err != nil {
		return err
	}
	if m.DocumentID == "" {
		return errors.New(errors.ErrCodeInvalidFormat, "document %s has no document_id", m.ContentHash)
	}
	t := m.Tree()
	return t.Validate()
}

// Clone returns a deep copy of m.
func (m *PersistedMindMap) Clone() *PersistedMindMap {
	c := *m
	c.Nodes = make([]mindmap.Node, len(m.Nodes))
	for i, n := range m.Nodes {
		c.Nodes[i] = n.Clone()
	}
	return &c
}

// MergeNodes replaces nodes in existing by id and appends the rest, keeping
// the original order.
func MergeNodes(existing, updated []mindmap.Node) []mindmap.Node {
	idx := make(map[string]int, len(existing))
	out := make([]mindmap.Node, len(existing), len(existing)+len(updated))
	for i, n := range existing {
		idx[n.ID] = i
		out[i] = n
	}
	for _, n := range updated {
		if i, ok := idx[n.ID]; ok {
			out[i] = n.Clone()
			continue
		}
		idx[n.ID] = len(out)
		out = append(out, n.Clone())
	}
	return out
}

// SortByModified orders infos newest first.
func SortByModified(infos []DocumentInfo) {
	slices.SortStableFunc(infos, func(a, b DocumentInfo) int {
		return b.LastModified.Compare(a.LastModified)
	})
}

// NewAuditEntry stamps an audit entry with the current time.
func NewAuditEntry(action string, details map[string]any) AuditEntry {
	if details == nil {
		details = map[string]any{}
	}
	return AuditEntry{Timestamp: time.Now().UTC(), Action: action, Details: details}
}

// NotFound is the error every backend returns for a missing document.
func NotFound(contentHash string) error {
	return errors.New(errors.ErrCodeDocumentNotFound, "document %s not found", contentHash)
}

// Observe reports one backend operation to the storage hooks.
// Call it deferred with a pointer to the operation's named error.
func Observe(ctx context.Context, backend, op string, start time.Time, err *error) {
	var e error
	if err != nil {
		e = *err
	}
	observability.Storage().OnStorageOp(ctx, backend, op, time.Since(start), e)
}
