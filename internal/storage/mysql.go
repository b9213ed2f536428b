package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// MySQL keeps scopes in the client_storage table (see database.EnsureSchema).
// Rows older than ttl are ignored on read; a zero ttl keeps them forever.
type MySQL struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewMySQL(db *sql.DB, ttl time.Duration) *MySQL {
	return &MySQL{db: db, ttl: ttl, now: time.Now}
}

func (m *MySQL) Scope(sessionID string) Storage {
	return &mysqlScope{m: m, id: sessionID}
}

func (m *MySQL) Close() error { return m.db.Close() }

// Purge removes rows that expired before now.
func (m *MySQL) Purge(ctx context.Context) (int64, error) {
	if m.ttl <= 0 {
		return 0, nil
	}
	res, err := m.db.ExecContext(ctx,
		"DELETE FROM client_storage WHERE updated_at < ?", m.now().UTC().Add(-m.ttl))
	if err != nil {
		return 0, fmt.Errorf("purge client_storage: %w", err)
	}
	return res.RowsAffected()
}

type mysqlScope struct {
	m  *MySQL
	id string
}

func (s *mysqlScope) Get(ctx context.Context, key string) (string, bool, error) {
	if s.id == "" {
		return "", false, ErrEmptyScope
	}
	var (
		v         string
		updatedAt time.Time
	)
	err := s.m.db.QueryRowContext(ctx,
		"SELECT v, updated_at FROM client_storage WHERE session_id=? AND k=? LIMIT 1",
		s.id, key).Scan(&v, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select client_storage: %w", err)
	}
	if s.m.ttl > 0 && s.m.now().UTC().After(updatedAt.Add(s.m.ttl)) {
		return "", false, nil
	}
	return v, true, nil
}

func (s *mysqlScope) Set(ctx context.Context, values map[string]string) error {
	if s.id == "" {
		return ErrEmptyScope
	}
	if len(values) == 0 {
		return nil
	}
	tx, err := s.m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	now := s.m.now().UTC()
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO client_storage (session_id, k, v, updated_at) VALUES (?,?,?,?) "+
				"ON DUPLICATE KEY UPDATE v=VALUES(v), updated_at=VALUES(updated_at)",
			s.id, k, values[k], now); err != nil {
			return fmt.Errorf("upsert %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func (s *mysqlScope) Delete(ctx context.Context, keys ...string) error {
	if s.id == "" {
		return ErrEmptyScope
	}
	if len(keys) == 0 {
		return nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]interface{}, 0, len(keys)+1)
	args = append(args, s.id)
	for _, k := range keys {
		args = append(args, k)
	}
	if _, err := s.m.db.ExecContext(ctx,
		"DELETE FROM client_storage WHERE session_id=? AND k IN ("+marks+")", args...); err != nil {
		return fmt.Errorf("delete client_storage: %w", err)
	}
	return nil
}
