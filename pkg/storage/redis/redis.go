// Package redis stores documents in Redis.
//
// Keys (with the default prefix):
//
//	docmap:mindmap:<hash>   JSON document
//	docmap:audit:<hash>     list of JSON audit entries, oldest first
//	docmap:documents        sorted set of hashes scored by last_modified
package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	goredis "github.com/redis/go-redis/v9"

	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/mindmap"
	"github.com/matzehuels/docmap/pkg/retry"
	"github.com/matzehuels/docmap/pkg/storage"
)

const backend = "redis"

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "docmap"

// Config selects the Redis server.
type Config struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// Store is a Redis storage backend.
type Store struct {
	client *goredis.Client
	prefix string
	logger *log.Logger
}

// NewStore connects and pings the server, retrying transient failures.
func NewStore(ctx context.Context, cfg Config, logger *log.Logger) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "redis address is empty")
	}
	if logger == nil {
		logger = log.Default()
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	err := retry.Do(ctx, func(attempt int) error {
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Debug("redis ping failed", "addr", cfg.Addr, "attempt", attempt, "err", err)
			return retry.Transient(err)
		}
		return nil
	})
	if err != nil {
		client.Close()
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to redis at %s", cfg.Addr)
	}
	return newStore(client, cfg.Prefix, logger), nil
}

func newStore(client *goredis.Client, prefix string, logger *log.Logger) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix, logger: logger}
}

func (s *Store) mindMapKey(hash string) string { return s.prefix + ":mindmap:" + hash }
func (s *Store) auditKey(hash string) string   { return s.prefix + ":audit:" + hash }
func (s *Store) indexKey() string              { return s.prefix + ":documents" }

func (s *Store) Save(ctx context.Context, m *storage.PersistedMindMap) (err error) {
	defer storage.Observe(ctx, backend, "save", time.Now(), &err)
	if err := m.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode mind map: %w", err)
	}
	key := s.mindMapKey(m.ContentHash)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "redis exists")
	}
	var audit []any
	if exists == 0 {
		audit = append(audit, mustAudit(storage.ActionDocumentCreated, map[string]any{
			"original_filename": m.OriginalFilename,
		}))
	}
	audit = append(audit, mustAudit(storage.ActionMindMapSaved, map[string]any{
		"document_id":  m.DocumentID,
		"node_count":   len(m.Nodes),
		"root_node_id": m.RootNodeID,
	}))

	_, err = s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, key, data, 0)
		p.ZAdd(ctx, s.indexKey(), goredis.Z{Score: score(m.LastModified), Member: m.ContentHash})
		p.RPush(ctx, s.auditKey(m.ContentHash), audit...)
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "save %s", m.ContentHash)
	}
	s.logger.Info("saved mind map", "hash", m.ContentHash, "nodes", len(m.Nodes))
	return nil
}

func (s *Store) Load(ctx context.Context, contentHash string) (_ *storage.PersistedMindMap, err error) {
	defer storage.Observe(ctx, backend, "load", time.Now(), &err)
	if err := errors.ValidateContentHash(contentHash); err != nil {
		return nil, err
	}
	m, err := s.get(ctx, s.client, contentHash)
	if err != nil {
		return nil, err
	}
	s.appendAudit(ctx, contentHash, storage.ActionMindMapLoaded, map[string]any{
		"document_id": m.DocumentID,
		"node_count":  len(m.Nodes),
	})
	return m, nil
}

// UpdateNodes runs as an optimistic transaction on the document key.
func (s *Store) UpdateNodes(ctx context.Context, contentHash string, nodes []mindmap.Node) (err error) {
	defer storage.Observe(ctx, backend, "update", time.Now(), &err)
	if err := errors.ValidateContentHash(contentHash); err != nil {
		return err
	}
	key := s.mindMapKey(contentHash)
	update := func(tx *goredis.Tx) error {
		m, err := s.get(ctx, tx, contentHash)
		if err != nil {
			return err
		}
		m.Nodes = storage.MergeNodes(m.Nodes, nodes)
		m.LastModified = time.Now().UTC()
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode mind map: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, key, data, 0)
			p.ZAdd(ctx, s.indexKey(), goredis.Z{Score: score(m.LastModified), Member: contentHash})
			p.RPush(ctx, s.auditKey(contentHash), mustAudit(storage.ActionMindMapUpdated, map[string]any{
				"updated_node_count": len(nodes),
			}))
			return nil
		})
		return err
	}

	for range 3 {
		err = s.client.Watch(ctx, update, key)
		if !stderrors.Is(err, goredis.TxFailedErr) {
			break
		}
		s.logger.Debug("update raced, retrying", "hash", contentHash)
	}
	if err != nil && errors.GetCode(err) == "" {
		return errors.Wrap(errors.ErrCodeNetwork, err, "update %s", contentHash)
	}
	return err
}

func (s *Store) List(ctx context.Context) (_ []storage.DocumentInfo, err error) {
	defer storage.Observe(ctx, backend, "list", time.Now(), &err)
	hashes, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "list documents")
	}
	infos := []storage.DocumentInfo{}
	if len(hashes) == 0 {
		return infos, nil
	}
	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = s.mindMapKey(h)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "list documents")
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a document.
			continue
		}
		var m storage.PersistedMindMap
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			s.logger.Warn("skipping unreadable document", "hash", hashes[i], "err", err)
			continue
		}
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
	lines, err := s.client.LRange(ctx, s.auditKey(contentHash), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "read audit log")
	}
	entries := make([]storage.AuditEntry, 0, len(lines))
	for _, line := range lines {
		var e storage.AuditEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			s.logger.Warn("skipping malformed audit entry", "hash", contentHash, "err", err)
			continue
		}
		entries = append(entries, e)
	}
	slices.Reverse(entries)
	return entries, nil
}

func (s *Store) Delete(ctx context.Context, contentHash string) (err error) {
	defer storage.Observe(ctx, backend, "delete", time.Now(), &err)
	if err := errors.ValidateContentHash(contentHash); err != nil {
		return err
	}
	var del *goredis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		del = p.Del(ctx, s.mindMapKey(contentHash))
		p.Del(ctx, s.auditKey(contentHash))
		p.ZRem(ctx, s.indexKey(), contentHash)
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "delete %s", contentHash)
	}
	if del.Val() == 0 {
		return storage.NotFound(contentHash)
	}
	s.logger.Info("deleted document", "hash", contentHash)
	return nil
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) get(ctx context.Context, c goredis.Cmdable, contentHash string) (*storage.PersistedMindMap, error) {
	raw, err := c.Get(ctx, s.mindMapKey(contentHash)).Bytes()
	if stderrors.Is(err, goredis.Nil) {
		return nil, storage.NotFound(contentHash)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "load %s", contentHash)
	}
	var m storage.PersistedMindMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s", contentHash)
	}
	return &m, nil
}

func (s *Store) appendAudit(ctx context.Context, contentHash, action string, details map[string]any) {
	if err := s.client.RPush(ctx, s.auditKey(contentHash), mustAudit(action, details)).Err(); err != nil {
		s.logger.Warn("append audit log", "hash", contentHash, "err", err)
	}
}

func mustAudit(action string, details map[string]any) string {
	data, err := json.Marshal(storage.NewAuditEntry(action, details))
	if err != nil {
		panic(err)
	}
	return string(data)
}

func score(t time.Time) float64 { return float64(t.UnixMilli()) }

var _ storage.Store = (*Store)(nil)
