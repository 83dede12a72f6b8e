// Package memory provides an in-process storage backend.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/mindmap"
	"github.com/matzehuels/docmap/pkg/storage"
)

const backend = "memory"

// Store keeps documents in maps. Values are copied on the way in and out.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]*storage.PersistedMindMap
	audit map[string][]storage.AuditEntry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		docs:  make(map[string]*storage.PersistedMindMap),
		audit: make(map[string][]storage.AuditEntry),
	}
}

func (s *Store) Save(ctx context.Context, m *storage.PersistedMindMap) (err error) {
	defer storage.Observe(ctx, backend, "save", time.Now(), &err)
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[m.ContentHash]; !ok {
		s.appendAudit(m.ContentHash, storage.ActionDocumentCreated, map[string]any{
			"original_filename": m.OriginalFilename,
		})
	}
	s.docs[m.ContentHash] = m.Clone()
	s.appendAudit(m.ContentHash, storage.ActionMindMapSaved, map[string]any{
		"document_id":  m.DocumentID,
		"node_count":   len(m.Nodes),
		"root_node_id": m.RootNodeID,
	})
	return nil
}

func (s *Store) Load(ctx context.Context, contentHash string) (_ *storage.PersistedMindMap, err error) {
	defer storage.Observe(ctx, backend, "load", time.Now(), &err)
	if err := errors.ValidateContentHash(contentHash); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.docs[contentHash]
	if !ok {
		return nil, storage.NotFound(contentHash)
	}
	s.appendAudit(contentHash, storage.ActionMindMapLoaded, map[string]any{
		"document_id": m.DocumentID,
		"node_count":  len(m.Nodes),
	})
	return m.Clone(), nil
}

func (s *Store) UpdateNodes(ctx context.Context, contentHash string, nodes []mindmap.Node) (err error) {
	defer storage.Observe(ctx, backend, "update", time.Now(), &err)
	if err := errors.ValidateContentHash(contentHash); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.docs[contentHash]
	if !ok {
		return storage.NotFound(contentHash)
	}
	m.Nodes = storage.MergeNodes(m.Nodes, nodes)
	m.LastModified = time.Now().UTC()
	s.appendAudit(contentHash, storage.ActionMindMapUpdated, map[string]any{
		"updated_node_count": len(nodes),
	})
	return nil
}

func (s *Store) List(ctx context.Context) (_ []storage.DocumentInfo, err error) {
	defer storage.Observe(ctx, backend, "list", time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]storage.DocumentInfo, 0, len(s.docs))
	for _, m := range s.docs {
		infos = append(infos, m.Info())
	}
	storage.SortByModified(infos)
	return infos, nil
}

func (s *Store) Audit(ctx context.Context, contentHash string) (_ []storage.AuditEntry, err error) {
	defer storage.Observe(ctx, backend, "audit", time.Now(), &err)
	if err := errors.ValidateContentHash(contentHash); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := slices.Clone(s.audit[contentHash])
	slices.Reverse(entries)
	return entries, nil
}

func (s *Store) Delete(ctx context.Context, contentHash string) (err error) {
	defer storage.Observe(ctx, backend, "delete", time.Now(), &err)
	if err := errors.ValidateContentHash(contentHash); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[contentHash]; !ok {
		return storage.NotFound(contentHash)
	}
	delete(s.docs, contentHash)
	delete(s.audit, contentHash)
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) appendAudit(contentHash, action string, details map[string]any) {
	s.audit[contentHash] = append(s.audit[contentHash], storage.NewAuditEntry(action, details))
}

var _ storage.Store = (*Store)(nil)
