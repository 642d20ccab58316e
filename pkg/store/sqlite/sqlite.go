// Package sqlite provides a SQLite-backed record store. Item fields
// live in a regular table; embeddings live in a sqlite-vec vec0 virtual
// table keyed by the item's rowid, which also enforces the store's
// fixed embedding dimension.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/kimbleai/engram/pkg/memory"
	"github.com/kimbleai/engram/pkg/store"
)

// Driver implements store.Store using SQLite with sqlite-vec.
type Driver struct {
	db         *sql.DB
	dimensions int
	logger     *zap.Logger
}

// Config holds configuration for the SQLite store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the fixed embedding dimension for the store's
	// lifetime. Required.
	Dimensions int
}

// NewDriver opens (and migrates) a SQLite-backed record store.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: embedding dimensions must be configured", store.ErrDimensionMismatch)
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent and
	// serializes writers the way SQLite expects.
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	d := &Driver{db: db, dimensions: c.Dimensions, logger: logger}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	logger.Info("sqlite record store initialized",
		zap.String("db_path", c.DBPath),
		zap.Int("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return d, nil
}

func (d *Driver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memory_items (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		owner_id TEXT NOT NULL,
		project_id TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		text TEXT NOT NULL,
		query TEXT NOT NULL DEFAULT '',
		size_bytes INTEGER NOT NULL DEFAULT 0,
		created_at_ns INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_memory_items_scope ON memory_items(owner_id, project_id);
	`
	if _, err := d.db.Exec(schema); err != nil {
		return err
	}

	// vec0 virtual tables use integer rowids; embeddings share the
	// item's seq. The declared dimension makes mixed dimensions a
	// hard failure at the storage layer.
	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS memory_embeddings USING vec0(embedding float[%d])`,
		d.dimensions,
	)
	_, err := d.db.Exec(createVec)
	return err
}

func (d *Driver) validate(item *memory.Item) error {
	if item == nil {
		return fmt.Errorf("%w: nil item", store.ErrInvalidItem)
	}
	if item.OwnerID == "" {
		return fmt.Errorf("%w: owner id is required", store.ErrInvalidItem)
	}
	if !item.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", store.ErrInvalidItem, item.Kind)
	}
	if item.Kind == memory.KindDocument && item.Title == "" {
		return fmt.Errorf("%w: document title is required", store.ErrInvalidItem)
	}
	if item.HasEmbedding() && len(item.Embedding) != d.dimensions {
		return fmt.Errorf("%w: got %d, store is fixed at %d",
			store.ErrDimensionMismatch, len(item.Embedding), d.dimensions)
	}
	return nil
}

// Insert persists an item atomically. The item row and its embedding
// commit together or not at all.
func (d *Driver) Insert(ctx context.Context, item *memory.Item) (string, error) {
	if err := d.validate(item); err != nil {
		return "", err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: beginning transaction: %v", store.ErrStorage, err)
	}
	defer tx.Rollback()

	id := item.ID
	if id == "" {
		id = uuid.NewString()
	}

	// Clamp CreatedAt to the store's high-water mark so the per-owner
	// order stays non-decreasing even if the wall clock steps back.
	var lastNs int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(created_at_ns), 0) FROM memory_items`,
	).Scan(&lastNs); err != nil {
		return "", fmt.Errorf("%w: reading clock floor: %v", store.ErrStorage, err)
	}
	createdNs := time.Now().UnixNano()
	if createdNs <= lastNs {
		createdNs = lastNs + 1
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO memory_items (id, owner_id, project_id, kind, title, text, query, size_bytes, created_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, item.OwnerID, item.ProjectID, string(item.Kind),
		item.Title, item.Text, item.Query, item.SizeBytes, createdNs,
	)
	if err != nil {
		return "", fmt.Errorf("%w: inserting item: %v", store.ErrStorage, err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("%w: reading item seq: %v", store.ErrStorage, err)
	}

	if item.HasEmbedding() {
		blob, err := serializeFloat32(item.Embedding)
		if err != nil {
			return "", fmt.Errorf("%w: serializing embedding: %v", store.ErrStorage, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO memory_embeddings(rowid, embedding) VALUES (?, ?)`,
			seq, blob,
		); err != nil {
			return "", fmt.Errorf("%w: inserting embedding: %v", store.ErrStorage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%w: committing transaction: %v", store.ErrStorage, err)
	}

	d.logger.Debug("item inserted",
		zap.String("id", id),
		zap.String("owner", item.OwnerID),
		zap.String("kind", string(item.Kind)),
		zap.Bool("embedded", item.HasEmbedding()),
	)

	return id, nil
}

const itemColumns = `seq, id, owner_id, project_id, kind, title, text, query, size_bytes, created_at_ns`

func (d *Driver) scanItem(scanner interface{ Scan(...any) error }) (*memory.Item, error) {
	var it memory.Item
	var kind string
	var createdNs int64
	if err := scanner.Scan(
		&it.Seq, &it.ID, &it.OwnerID, &it.ProjectID, &kind,
		&it.Title, &it.Text, &it.Query, &it.SizeBytes, &createdNs,
	); err != nil {
		return nil, err
	}
	it.Kind = memory.Kind(kind)
	it.CreatedAt = time.Unix(0, createdNs)
	return &it, nil
}

// attachEmbedding loads an item's embedding, if any. Rows cursors must
// be closed before calling this (SQLite runs on a single connection).
func (d *Driver) attachEmbedding(ctx context.Context, it *memory.Item) error {
	var blob []byte
	err := d.db.QueryRowContext(ctx,
		`SELECT embedding FROM memory_embeddings WHERE rowid = ?`, it.Seq,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	it.Embedding, err = deserializeFloat32(blob)
	return err
}

// Get retrieves an item by id.
func (d *Driver) Get(ctx context.Context, id string) (*memory.Item, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM memory_items WHERE id = ?`, id)

	it, err := d.scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scanning item: %v", store.ErrStorage, err)
	}

	if err := d.attachEmbedding(ctx, it); err != nil {
		return nil, fmt.Errorf("%w: loading embedding: %v", store.ErrStorage, err)
	}
	return it, nil
}

// List returns the scoped items ordered by CreatedAt ascending.
func (d *Driver) List(ctx context.Context, scope memory.Scope) ([]*memory.Item, error) {
	return d.query(ctx, scope, false, 0)
}

// MissingEmbeddings returns scoped items without an embedding, oldest
// first.
func (d *Driver) MissingEmbeddings(ctx context.Context, scope memory.Scope, limit int) ([]*memory.Item, error) {
	return d.query(ctx, scope, true, limit)
}

func (d *Driver) query(ctx context.Context, scope memory.Scope, missingOnly bool, limit int) ([]*memory.Item, error) {
	// A project-scoped query also sees the owner's ungrouped items;
	// they are global to the owner.
	q := `SELECT ` + itemColumns + ` FROM memory_items m
		WHERE m.owner_id = ?
		  AND (? = '' OR m.project_id = ? OR m.project_id = '')`
	args := []any{scope.OwnerID, scope.ProjectID, scope.ProjectID}

	if missingOnly {
		q += ` AND NOT EXISTS (SELECT 1 FROM memory_embeddings e WHERE e.rowid = m.seq)`
	}
	q += ` ORDER BY m.created_at_ns ASC, m.seq ASC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying items: %v", store.ErrStorage, err)
	}

	var items []*memory.Item
	for rows.Next() {
		it, err := d.scanItem(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scanning item: %v", store.ErrStorage, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%w: iterating items: %v", store.ErrStorage, err)
	}
	rows.Close()

	if !missingOnly {
		for _, it := range items {
			if err := d.attachEmbedding(ctx, it); err != nil {
				return nil, fmt.Errorf("%w: loading embedding: %v", store.ErrStorage, err)
			}
		}
	}

	return items, nil
}

// BackfillEmbedding assigns an embedding to an item stored without one.
// If the item already has an embedding the call is a no-op.
func (d *Driver) BackfillEmbedding(ctx context.Context, id string, embedding []float32) error {
	if len(embedding) != d.dimensions {
		return fmt.Errorf("%w: got %d, store is fixed at %d",
			store.ErrDimensionMismatch, len(embedding), d.dimensions)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", store.ErrStorage, err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT seq FROM memory_items WHERE id = ?`, id,
	).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("%w: looking up item: %v", store.ErrStorage, err)
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM memory_embeddings WHERE rowid = ?`, seq,
	).Scan(&exists)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: checking embedding: %v", store.ErrStorage, err)
	}

	blob, err := serializeFloat32(embedding)
	if err != nil {
		return fmt.Errorf("%w: serializing embedding: %v", store.ErrStorage, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO memory_embeddings(rowid, embedding) VALUES (?, ?)`,
		seq, blob,
	); err != nil {
		return fmt.Errorf("%w: inserting embedding: %v", store.ErrStorage, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", store.ErrStorage, err)
	}

	d.logger.Debug("embedding backfilled", zap.String("id", id))
	return nil
}

// Close releases the database connection.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ store.Store = (*Driver)(nil)
