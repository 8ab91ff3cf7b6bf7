package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/modeleditor/internal/types"
)

const (
	tableModels   = "models"
	tableFields   = "model_fields"
	tableSettings = "settings"

	keyNextFieldID = "next_field_id"
)

// SQLStore implements Store on SQLite. Statements are built with the ent
// dialect builders and run through database/sql.
type SQLStore struct {
	db *sql.DB
	b  *entsql.DialectBuilder
}

// NewSQLStore wraps an open SQLite database. Call CreateTables before use.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, b: entsql.Dialect(dialect.SQLite)}
}

// OpenSQLite opens the database at dsn and creates the tables.
func OpenSQLite(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := NewSQLStore(db)
	if err := s.CreateTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// CreateTables creates the store tables if they do not exist.
func (s *SQLStore) CreateTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS models (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE IF NOT EXISTS model_fields (
			model_id       TEXT NOT NULL REFERENCES models(id) ON DELETE CASCADE,
			id             INTEGER NOT NULL,
			position       INTEGER NOT NULL,
			name           TEXT NOT NULL,
			type           TEXT NOT NULL DEFAULT '',
			is_primary_key INTEGER NOT NULL DEFAULT 0,
			is_required    INTEGER NOT NULL DEFAULT 0,
			is_unique      INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (model_id, id)
		);

		CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

func (s *SQLStore) ListModels(ctx context.Context) ([]types.Model, error) {
	query, args := s.b.Select("id", "name").
		From(s.b.Table(tableModels)).
		OrderBy("name", "id").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	defer rows.Close()

	models := []types.Model{}
	for rows.Next() {
		var m types.Model
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("scanning model: %w", err)
		}
		m.Fields = []types.Field{}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fields, err := s.fields(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range models {
		if fs, ok := fields[models[i].ID]; ok {
			models[i].Fields = fs
		}
	}
	return models, nil
}

func (s *SQLStore) GetModel(ctx context.Context, id string) (types.Model, error) {
	query, args := s.b.Select("id", "name").
		From(s.b.Table(tableModels)).
		Where(entsql.EQ("id", id)).
		Query()

	var m types.Model
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&m.ID, &m.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Model{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return types.Model{}, fmt.Errorf("loading model %s: %w", id, err)
	}

	fields, err := s.fields(ctx, id)
	if err != nil {
		return types.Model{}, err
	}
	m.Fields = fields[id]
	if m.Fields == nil {
		m.Fields = []types.Field{}
	}
	return m, nil
}

// fields loads fields grouped by model id, for one model or all of them.
func (s *SQLStore) fields(ctx context.Context, modelID string) (map[string][]types.Field, error) {
	sel := s.b.Select("model_id", "id", "name", "type", "is_primary_key", "is_required", "is_unique").
		From(s.b.Table(tableFields)).
		OrderBy("model_id", "position")
	if modelID != "" {
		sel = sel.Where(entsql.EQ("model_id", modelID))
	}
	query, args := sel.Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading fields: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]types.Field)
	for rows.Next() {
		var (
			owner    string
			f        types.Field
			typeName string
		)
		if err := rows.Scan(&owner, &f.ID, &f.Name, &typeName, &f.PrimaryKey, &f.Required, &f.Unique); err != nil {
			return nil, fmt.Errorf("scanning field: %w", err)
		}
		if f.Type, err = types.ParseDataType(typeName); err != nil {
			return nil, fmt.Errorf("field %d of model %s: %w", f.ID, owner, err)
		}
		out[owner] = append(out[owner], f)
	}
	return out, rows.Err()
}

func (s *SQLStore) SaveModel(ctx context.Context, m types.Model, nextFieldID types.FieldID) (types.Model, error) {
	m = m.Clone()
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Model{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if m.IsNew() {
		m.ID = uuid.New().String()
		query, args := s.b.Insert(tableModels).
			Columns("id", "name", "created_at", "updated_at").
			Values(m.ID, m.Name, now, now).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return types.Model{}, fmt.Errorf("writing model: %w", err)
		}
	} else {
		query, args := s.b.Update(tableModels).
			Set("name", m.Name).
			Set("updated_at", now).
			Where(entsql.EQ("id", m.ID)).
			Query()
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return types.Model{}, fmt.Errorf("writing model: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return types.Model{}, fmt.Errorf("%w: %s", ErrNotFound, m.ID)
		}
	}

	query, args := s.b.Delete(tableFields).Where(entsql.EQ("model_id", m.ID)).Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return types.Model{}, fmt.Errorf("clearing fields: %w", err)
	}

	if len(m.Fields) > 0 {
		ins := s.b.Insert(tableFields).
			Columns("model_id", "id", "position", "name", "type", "is_primary_key", "is_required", "is_unique")
		for i, f := range m.Fields {
			ins = ins.Values(m.ID, int(f.ID), i, f.Name, f.Type.String(), f.PrimaryKey, f.Required, f.Unique)
		}
		query, args = ins.Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return types.Model{}, fmt.Errorf("writing fields: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = MAX(value, excluded.value)`,
		keyNextFieldID, int(nextFieldID),
	); err != nil {
		return types.Model{}, fmt.Errorf("writing field counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.Model{}, fmt.Errorf("committing model: %w", err)
	}
	if m.Fields == nil {
		m.Fields = []types.Field{}
	}
	return m, nil
}

func (s *SQLStore) DeleteModel(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query, args := s.b.Delete(tableFields).Where(entsql.EQ("model_id", id)).Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting fields: %w", err)
	}

	query, args = s.b.Delete(tableModels).Where(entsql.EQ("id", id)).Query()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting model: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}

func (s *SQLStore) NextFieldID(ctx context.Context) (types.FieldID, error) {
	query, args := s.b.Select("value").
		From(s.b.Table(tableSettings)).
		Where(entsql.EQ("key", keyNextFieldID)).
		Query()

	var v int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading field counter: %w", err)
	}
	return types.FieldID(v), nil
}
