// Package docstore is the reference implementation of the hosted document
// database: schemaless collections persisted through GORM, with full-snapshot
// realtime publication after every committed write. It is the single writer
// of canonical state; clients only ever mirror what it pushes.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"driftline/internal/config"
	"driftline/internal/models"
	"driftline/internal/observability"
	"driftline/internal/remote"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// documentRow is the storage shape of one document: the collection name, the
// backend-assigned id and the raw JSON payload.
type documentRow struct {
	ID         uint   `gorm:"primaryKey"`
	Collection string `gorm:"uniqueIndex:idx_collection_doc;not null"`
	DocID      string `gorm:"uniqueIndex:idx_collection_doc;not null;column:doc_id"`
	Data       string `gorm:"type:text;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (documentRow) TableName() string { return "documents" }

// Store is a schemaless document store over a relational table.
type Store struct {
	db     *gorm.DB
	hub    *Hub
	logger *slog.Logger
}

// Open connects to the configured database, runs migrations and returns the
// connection.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DBPath)
	default:
		sslMode := cfg.DBSSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, sslMode,
		)
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(observability.Component("docstore")),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	return db, nil
}

// Migrate creates the document and account tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&documentRow{}, &accountRow{})
}

// New wraps an already-open (and migrated) database connection.
func New(db *gorm.DB) *Store {
	return &Store{
		db:     db,
		hub:    NewHub(),
		logger: observability.Component("docstore"),
	}
}

// Add creates a document with a backend-assigned id and returns the id.
func (s *Store) Add(ctx context.Context, collection string, fields remote.Fields) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

// Set creates or replaces the document with the given id.
func (s *Store) Set(ctx context.Context, collection, id string, fields remote.Fields) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return models.NewInternalError(err)
	}

	row := documentRow{Collection: collection, DocID: id, Data: string(raw)}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return models.NewInternalError(err)
	}

	s.publish(ctx, collection)
	return nil
}

// Get returns the document, or nil without error when it does not exist.
func (s *Store) Get(ctx context.Context, collection, id string) (*remote.Document, error) {
	var row documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return decodeRow(row)
}

// Update overwrites only the given fields of an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, fields remote.Fields) error {
	var row documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(collection, id)
	}
	if err != nil {
		return models.NewInternalError(err)
	}

	var data remote.Fields
	if err := json.Unmarshal([]byte(row.Data), &data); err != nil {
		return models.NewInternalError(err)
	}
	for k, v := range fields {
		data[k] = v
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return models.NewInternalError(err)
	}

	err = s.db.WithContext(ctx).
		Model(&documentRow{}).
		Where("collection = ? AND doc_id = ?", collection, id).
		Update("data", string(raw)).Error
	if err != nil {
		return models.NewInternalError(err)
	}

	s.publish(ctx, collection)
	return nil
}

// Delete removes the document by id. Deleting a missing document is a no-op.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		Delete(&documentRow{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		s.publish(ctx, collection)
	}
	return nil
}

// Where returns all documents of the collection whose field equals value.
func (s *Store) Where(ctx context.Context, collection, field string, value any) (remote.Snapshot, error) {
	snap, err := s.Snapshot(ctx, collection)
	if err != nil {
		return nil, err
	}

	want, err := json.Marshal(value)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	var out remote.Snapshot
	for _, doc := range snap {
		got, err := json.Marshal(doc.Data[field])
		if err != nil {
			continue
		}
		if string(got) == string(want) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Subscribe registers a snapshot subscriber for the collection. The current
// full contents are delivered immediately, then again after every change.
func (s *Store) Subscribe(ctx context.Context, collection string, order remote.Order) (<-chan remote.Snapshot, error) {
	initial, err := s.Snapshot(ctx, collection)
	if err != nil {
		return nil, err
	}
	return s.hub.Subscribe(ctx, collection, order, initial), nil
}

// Snapshot enumerates the complete current contents of a collection in
// insertion order.
func (s *Store) Snapshot(ctx context.Context, collection string) (remote.Snapshot, error) {
	var rows []documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	snap := make(remote.Snapshot, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		snap = append(snap, *doc)
	}
	return snap, nil
}

// publish rebuilds the collection snapshot and fans it out to subscribers.
// Publication failures are logged, not returned: the write already committed.
func (s *Store) publish(ctx context.Context, collection string) {
	snap, err := s.Snapshot(ctx, collection)
	if err != nil {
		s.logger.Error("snapshot rebuild failed",
			slog.String("collection", collection),
			slog.String("error", err.Error()),
		)
		return
	}
	s.hub.Publish(collection, snap)
}

func decodeRow(row documentRow) (*remote.Document, error) {
	var data remote.Fields
	if err := json.Unmarshal([]byte(row.Data), &data); err != nil {
		return nil, models.NewInternalError(err)
	}
	return &remote.Document{ID: row.DocID, Data: data}, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505; SQLite reports "UNIQUE constraint failed"
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}
