package docservice

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/mindmap"
	"github.com/matzehuels/docmap/pkg/storage"
)

// Service keeps the index and a storage backend in step. Reads are served
// from the index; writes go to storage first.
type Service struct {
	Index  *Index
	Store  storage.Store
	Logger *log.Logger

	now func() time.Time
}

// NewService creates a service with an empty index. A nil logger uses the
// default logger.
func NewService(store storage.Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{Index: NewIndex(), Store: store, Logger: logger, now: time.Now}
}

// Restore indexes every persisted document. Documents that fail to load are
// logged and skipped; the count of indexed documents is returned.
func (s *Service) Restore(ctx context.Context) (int, error) {
	infos, err := s.Store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}
	n := 0
	for _, info := range infos {
		if _, err := s.LoadDocument(ctx, info.ContentHash); err != nil {
			s.Logger.Warn("skipping document", "hash", info.ContentHash, "err", err)
			continue
		}
		n++
	}
	s.Logger.Info("restored documents", "count", n, "stored", len(infos))
	return n, nil
}

// Import persists a tree and indexes it. The content hash is taken from raw
// (the uploaded bytes) when given, otherwise from the tree's JSON encoding.
// A missing document id is replaced by a fresh UUID.
func (s *Service) Import(ctx context.Context, req ImportRequest, raw []byte) (storage.DocumentInfo, error) {
	t := req.Tree
	if t.DocumentID == "" {
		t.DocumentID = uuid.NewString()
	}
	if raw == nil {
		var err error
		if raw, err = json.Marshal(t); err != nil {
			return storage.DocumentInfo{}, fmt.Errorf("encode tree: %w", err)
		}
	}
	hash := storage.ContentHash(raw)

	m, err := storage.NewMindMap(hash, req.OriginalFilename, req.PageCount, t, s.now())
	if err != nil {
		return storage.DocumentInfo{}, err
	}
	if err := s.Store.Save(ctx, m); err != nil {
		return storage.DocumentInfo{}, err
	}
	if err := s.Index.Add(m.Tree(), hash); err != nil {
		return storage.DocumentInfo{}, err
	}
	s.Logger.Info("imported document", "document", t.DocumentID, "hash", hash, "nodes", len(t.Nodes))
	return m.Info(), nil
}

// LoadDocument restores one persisted document into the index.
func (s *Service) LoadDocument(ctx context.Context, contentHash string) (LoadResponse, error) {
	m, err := s.Store.Load(ctx, contentHash)
	if err != nil {
		return LoadResponse{}, err
	}
	if err := s.Index.Add(m.Tree(), m.ContentHash); err != nil {
		return LoadResponse{}, err
	}
	s.Logger.Debug("loaded document", "document", m.DocumentID, "hash", contentHash)
	return LoadResponse{
		DocumentID:  m.DocumentID,
		ContentHash: m.ContentHash,
		RootID:      m.RootNodeID,
		NodeCount:   len(m.Nodes),
	}, nil
}

// LoadByDocumentID indexes the most recently modified persisted copy of
// documentID.
func (s *Service) LoadByDocumentID(ctx context.Context, documentID string) (LoadResponse, error) {
	docs, err := s.Store.List(ctx)
	if err != nil {
		return LoadResponse{}, err
	}
	for _, d := range docs {
		if d.DocumentID == documentID {
			return s.LoadDocument(ctx, d.ContentHash)
		}
	}
	return LoadResponse{}, errors.New(errors.ErrCodeDocumentNotFound, "document %s not found", documentID)
}

// Documents lists persisted documents, newest first.
func (s *Service) Documents(ctx context.Context) ([]storage.DocumentInfo, error) {
	return s.Store.List(ctx)
}

// Audit returns a document's audit trail, newest first.
func (s *Service) Audit(ctx context.Context, contentHash string) ([]storage.AuditEntry, error) {
	return s.Store.Audit(ctx, contentHash)
}

// Delete removes a document from storage and from the index.
func (s *Service) Delete(ctx context.Context, contentHash string) error {
	if err := s.Store.Delete(ctx, contentHash); err != nil {
		return err
	}
	s.Index.RemoveByHash(contentHash)
	s.Logger.Info("deleted document", "hash", contentHash)
	return nil
}

// Tree returns the shallow tree of a document.
func (s *Service) Tree(documentID string, depth int) (mindmap.Tree, error) {
	return s.Index.Tree(documentID, depth)
}

// Node returns one node.
func (s *Service) Node(nodeID string) (mindmap.Node, error) {
	return s.Index.Node(nodeID)
}

// Expand returns a node and its immediate children.
func (s *Service) Expand(nodeID string, includeContent bool) (mindmap.Expansion, error) {
	return s.Index.Expand(nodeID, includeContent)
}

// UpdateNode patches a node's payload and persists it.
func (s *Service) UpdateNode(ctx context.Context, nodeID string, patch NodePatch) (mindmap.Node, error) {
	if patch.Empty() {
		return mindmap.Node{}, errors.New(errors.ErrCodeInvalidInput, "patch for %s changes nothing", nodeID)
	}
	cur, err := s.Index.Node(nodeID)
	if err != nil {
		return mindmap.Node{}, err
	}
	updated := patch.Apply(cur)

	docID := cur.DocumentID
	if hash, ok := s.Index.ContentHash(docID); ok {
		if err := s.Store.UpdateNodes(ctx, hash, []mindmap.Node{updated}); err != nil {
			return mindmap.Node{}, err
		}
	}
	if _, err := s.Index.Update(updated); err != nil {
		return mindmap.Node{}, err
	}
	return updated, nil
}
