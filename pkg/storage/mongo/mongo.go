// Package mongo stores documents in MongoDB: one collection of mind maps
// keyed by content hash, one collection of audit entries.
package mongo

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/docmap/pkg/errors"
	"github.com/matzehuels/docmap/pkg/mindmap"
	"github.com/matzehuels/docmap/pkg/retry"
	"github.com/matzehuels/docmap/pkg/storage"
)

const (
	backend         = "mongo"
	mindMapsColl    = "mindmaps"
	auditColl       = "audit"
	DefaultDatabase = "docmap"
)

// Config selects the MongoDB deployment and database.
type Config struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// Store is a MongoDB storage backend.
type Store struct {
	client   *mongo.Client
	mindMaps *mongo.Collection
	audit    *mongo.Collection
	logger   *log.Logger
}

type auditDoc struct {
	ContentHash string             `bson:"content_hash"`
	Entry       storage.AuditEntry `bson:",inline"`
}

// NewStore connects, pings the primary and ensures indexes exist.
func NewStore(ctx context.Context, cfg Config, logger *log.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "mongo uri is empty")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if logger == nil {
		logger = log.Default()
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "mongo client")
	}
	err = retry.Do(ctx, func(attempt int) error {
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			logger.Debug("mongo ping failed", "attempt", attempt, "err", err)
			return retry.Transient(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to mongo")
	}

	db := client.Database(cfg.Database)
	s := &Store{
		client:   client,
		mindMaps: db.Collection(mindMapsColl),
		audit:    db.Collection(auditColl),
		logger:   logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	byHash := bson.D{{Key: "content_hash", Value: 1}}
	if _, err := s.mindMaps.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    byHash,
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create mindmaps index: %w", err)
	}
	if _, err := s.audit.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: byHash}); err != nil {
		return fmt.Errorf("create audit index: %w", err)
	}
	return nil
}

func byHash(contentHash string) bson.M { return bson.M{"content_hash": contentHash} }

func (s *Store) Save(ctx context.Context, m *storage.PersistedMindMap) (err error) {
	defer storage.Observe(ctx, backend, "save", time.Now(), &err)
	if err := m.Validate(); err != nil {
		return err
	}
	res, err := s.mindMaps.ReplaceOne(ctx, byHash(m.ContentHash), m, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "save %s", m.ContentHash)
	}

	var entries []any
	if res.UpsertedCount > 0 {
		entries = append(entries, auditDoc{m.ContentHash, storage.NewAuditEntry(storage.ActionDocumentCreated, map[string]any{
			"original_filename": m.OriginalFilename,
		})})
	}
	entries = append(entries, auditDoc{m.ContentHash, storage.NewAuditEntry(storage.ActionMindMapSaved, map[string]any{
		"document_id":  m.DocumentID,
		"node_count":   len(m.Nodes),
		"root_node_id": m.RootNodeID,
	})})
	if _, err := s.audit.InsertMany(ctx, entries); err != nil {
		s.logger.Warn("append audit log", "hash", m.ContentHash, "err", err)
	}
	s.logger.Info("saved mind map", "hash", m.ContentHash, "nodes", len(m.Nodes))
	return nil
}

func (s *Store) Load(ctx context.Context, contentHash string) (_ *storage.PersistedMindMap, err error) {
	defer storage.Observe(ctx, backend, "load", time.Now(), &err)
	if err := errors.ValidateContentHash(contentHash); err != nil {
		return nil, err
	}
	m, err := s.get(ctx, contentHash)
	if err != nil {
		return nil, err
	}
	s.appendAudit(ctx, contentHash, storage.ActionMindMapLoaded, map[string]any{
		"document_id": m.DocumentID,
		"node_count":  len(m.Nodes),
	})
	return m, nil
}

func (s *Store) UpdateNodes(ctx context.Context, contentHash string, nodes []mindmap.Node) (err error) {
	defer storage.Observe(ctx, backend, "update", time.Now(), &err)
	if err := errors.ValidateContentHash(contentHash); err != nil {
		return err
	}
	m, err := s.get(ctx, contentHash)
	if err != nil {
		return err
	}
	m.Nodes = storage.MergeNodes(m.Nodes, nodes)
	m.LastModified = time.Now().UTC()
	res, err := s.mindMaps.ReplaceOne(ctx, byHash(contentHash), m)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "update %s", contentHash)
	}
	if res.MatchedCount == 0 {
		return storage.NotFound(contentHash)
	}
	s.appendAudit(ctx, contentHash, storage.ActionMindMapUpdated, map[string]any{
		"updated_node_count": len(nodes),
	})
	return nil
}

func (s *Store) List(ctx context.Context) (_ []storage.DocumentInfo, err error) {
	defer storage.Observe(ctx, backend, "list", time.Now(), &err)
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "last_modified", Value: -1}}}},
		{{Key: "$project", Value: bson.M{
			"content_hash":      1,
			"document_id":       1,
			"original_filename": 1,
			"page_count":        1,
			"created_at":        1,
			"last_modified":     1,
			"node_count":        bson.M{"$size": bson.M{"$ifNull": bson.A{"$nodes", bson.A{}}}},
		}}},
	}
	cur, err := s.mindMaps.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "list documents")
	}
	infos := []storage.DocumentInfo{}
	if err := cur.All(ctx, &infos); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "list documents")
	}
	storage.SortByModified(infos)
	return infos, nil
}

func (s *Store) Audit(ctx context.Context, contentHash string) (_ []storage.AuditEntry, err error) {
	defer storage.Observe(ctx, backend, "audit", time.Now(), &err)
	if err := errors.ValidateContentHash(contentHash); err != nil {
		return nil, err
	}
	// ObjectIDs grow with insertion order, so _id breaks timestamp ties.
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	cur, err := s.audit.Find(ctx, byHash(contentHash), opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "read audit log")
	}
	var docs []auditDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "read audit log")
	}
	entries := make([]storage.AuditEntry, len(docs))
	for i, d := range docs {
		entries[i] = d.Entry
	}
	return entries, nil
}

func (s *Store) Delete(ctx context.Context, contentHash string) (err error) {
	defer storage.Observe(ctx, backend, "delete", time.Now(), &err)
	if err := errors.ValidateContentHash(contentHash); err != nil {
		return err
	}
	res, err := s.mindMaps.DeleteOne(ctx, byHash(contentHash))
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "delete %s", contentHash)
	}
	if res.DeletedCount == 0 {
		return storage.NotFound(contentHash)
	}
	if _, err := s.audit.DeleteMany(ctx, byHash(contentHash)); err != nil {
		s.logger.Warn("delete audit log", "hash", contentHash, "err", err)
	}
	s.logger.Info("deleted document", "hash", contentHash)
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) get(ctx context.Context, contentHash string) (*storage.PersistedMindMap, error) {
	var m storage.PersistedMindMap
	err := s.mindMaps.FindOne(ctx, byHash(contentHash)).Decode(&m)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.NotFound(contentHash)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "load %s", contentHash)
	}
	return &m, nil
}

func (s *Store) appendAudit(ctx context.Context, contentHash, action string, details map[string]any) {
	doc := auditDoc{contentHash, storage.NewAuditEntry(action, details)}
	if _, err := s.audit.InsertOne(ctx, doc); err != nil {
		s.logger.Warn("append audit log", "hash", contentHash, "err", err)
	}
}

var _ storage.Store = (*Store)(nil)
