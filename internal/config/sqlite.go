package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteTenantStore reads tenant configuration rows from SQLite. Tenant
// administration writes the rows elsewhere; this side only reads.
type SQLiteTenantStore struct {
	db *sql.DB
}

// NewSQLiteTenantStore opens (and if needed initialises) the tenant database.
func NewSQLiteTenantStore(dbPath string) (*SQLiteTenantStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteTenantStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteTenantStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return err
	}
	return nil
}

// GetTenant loads and decodes one tenant row; nil when the id is unknown.
func (s *SQLiteTenantStore) GetTenant(ctx context.Context, tenantID string) (*Tenant, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT config_json FROM tenants WHERE id = ?`, tenantID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query tenant %s: %w", tenantID, err)
	}

	var t Tenant
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, fmt.Errorf("decode tenant %s config: %w", tenantID, err)
	}
	if t.ID == "" {
		t.ID = tenantID
	}
	return &t, nil
}

// PutTenant upserts a tenant row; used by bootstrap seeding and tests.
func (s *SQLiteTenantStore) PutTenant(ctx context.Context, t *Tenant) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode tenant %s config: %w", t.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tenants (id, config_json, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET config_json = excluded.config_json, updated_at = excluded.updated_at`,
		t.ID, string(raw), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert tenant %s: %w", t.ID, err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteTenantStore) Close() error {
	return s.db.Close()
}

var _ TenantStore = (*SQLiteTenantStore)(nil)
