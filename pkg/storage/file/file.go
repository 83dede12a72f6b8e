// Package file stores documents on the local filesystem:
//
//	<dir>/
//	    <content_hash>/
//	        mindmap.json
//	        audit.log      (one JSON entry per line, oldest first)
package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/mindmap"
	"github.com/matzehuels/docmap/pkg/storage"
)

const (
	backend          = "file"
	mindMapFilename  = "mindmap.json"
	auditLogFilename = "audit.log"
)

// Store is a directory-backed storage backend. A single Store serializes
// its own writes; separate processes sharing a directory are not coordinated.
type Store struct {
	dir    string
	logger *log.Logger
	mu     sync.Mutex
}

// NewStore opens (and creates, if needed) the documents directory.
func NewStore(dir string, logger *log.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "documents directory is empty")
	}
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create documents dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the documents directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) folder(contentHash string) (string, error) {
	if err := errors.ValidateContentHash(contentHash); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, contentHash), nil
}

func (s *Store) Save(ctx context.Context, m *storage.PersistedMindMap) (err error) {
	defer storage.Observe(ctx, backend, "save", time.Now(), &err)
	if err := m.Validate(); err != nil {
		return err
	}
	folder, err := s.folder(m.ContentHash)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, statErr := os.Stat(filepath.Join(folder, mindMapFilename))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", folder, err)
	}
	if os.IsNotExist(statErr) {
		s.appendAudit(folder, storage.ActionDocumentCreated, map[string]any{
			"original_filename": m.OriginalFilename,
		})
	}
	if err := writeMindMap(folder, m); err != nil {
		return err
	}
	s.logger.Info("saved mind map", "hash", m.ContentHash, "nodes", len(m.Nodes))
	s.appendAudit(folder, storage.ActionMindMapSaved, map[string]any{
		"document_id":  m.DocumentID,
		"node_count":   len(m.Nodes),
		"root_node_id": m.RootNodeID,
	})
	return nil
}

func (s *Store) Load(ctx context.Context, contentHash string) (_ *storage.PersistedMindMap, err error) {
	defer storage.Observe(ctx, backend, "load", time.Now(), &err)
	folder, err := s.folder(contentHash)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := readMindMap(folder, contentHash)
	if err != nil {
		return nil, err
	}
	s.appendAudit(folder, storage.ActionMindMapLoaded, map[string]any{
		"document_id": m.DocumentID,
		"node_count":  len(m.Nodes),
	})
	return m, nil
}

func (s *Store) UpdateNodes(ctx context.Context, contentHash string, nodes []mindmap.Node) (err error) {
	defer storage.Observe(ctx, backend, "update", time.Now(), &err)
	folder, err := s.folder(contentHash)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := readMindMap(folder, contentHash)
	if err != nil {
		return err
	}
	m.Nodes = storage.MergeNodes(m.Nodes, nodes)
	m.LastModified = time.Now().UTC()
	if err := writeMindMap(folder, m); err != nil {
		return err
	}
	s.appendAudit(folder, storage.ActionMindMapUpdated, map[string]any{
		"updated_node_count": len(nodes),
	})
	return nil
}

func (s *Store) List(ctx context.Context) (_ []storage.DocumentInfo, err error) {
	defer storage.Observe(ctx, backend, "list", time.Now(), &err)
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read documents dir: %w", err)
	}

	infos := []storage.DocumentInfo{}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if errors.ValidateContentHash(e.Name()) != nil {
			continue
		}
		m, err := readMindMap(filepath.Join(s.dir, e.Name()), e.Name())
		if err != nil {
			if !errors.IsNotFound(err) {
				s.logger.Warn("skipping unreadable document", "hash", e.Name(), "err", err)
			}
			continue
		}
		infos = append(infos, m.Info())
	}
	storage.SortByModified(infos)
	return infos, nil
}

func (s *Store) Audit(ctx context.Context, contentHash string) (_ []storage.AuditEntry, err error) {
	defer storage.Observe(ctx, backend, "audit", time.Now(), &err)
	folder, err := s.folder(contentHash)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(folder, auditLogFilename))
	if os.IsNotExist(err) {
		return []storage.AuditEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	var entries []storage.AuditEntry
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e storage.AuditEntry
		if err := json.Unmarshal(line, &e); err != nil {
			s.logger.Warn("skipping malformed audit entry", "hash", contentHash, "err", err)
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}
	slices.Reverse(entries)
	return entries, nil
}

func (s *Store) Delete(ctx context.Context, contentHash string) (err error) {
	defer storage.Observe(ctx, backend, "delete", time.Now(), &err)
	folder, err := s.folder(contentHash)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(folder); os.IsNotExist(err) {
		return storage.NotFound(contentHash)
	}
	if err := os.RemoveAll(folder); err != nil {
		return fmt.Errorf("delete %s: %w", folder, err)
	}
	s.logger.Info("deleted document", "hash", contentHash)
	return nil
}

func (s *Store) Close() error { return nil }

func readMindMap(folder, contentHash string) (*storage.PersistedMindMap, error) {
	data, err := os.ReadFile(filepath.Join(folder, mindMapFilename))
	if os.IsNotExist(err) {
		return nil, storage.NotFound(contentHash)
	}
	if err != nil {
		return nil, fmt.Errorf("read mind map: %w", err)
	}
	var m storage.PersistedMindMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s", contentHash)
	}
	return &m, nil
}

// writeMindMap replaces mindmap.json via a temp file and rename so readers
// never see a partial document.
func writeMindMap(folder string, m *storage.PersistedMindMap) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode mind map: %w", err)
	}
	tmp, err := os.CreateTemp(folder, mindMapFilename+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write mind map: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(folder, mindMapFilename))
}

// appendAudit never fails the caller; a lost audit line is logged.
func (s *Store) appendAudit(folder, action string, details map[string]any) {
	line, err := json.Marshal(storage.NewAuditEntry(action, details))
	if err != nil {
		s.logger.Warn("encode audit entry", "err", err)
		return
	}
	f, err := os.OpenFile(filepath.Join(folder, auditLogFilename), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Warn("open audit log", "err", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		s.logger.Warn("append audit log", "err", err)
	}
}

var _ storage.Store = (*Store)(nil)
