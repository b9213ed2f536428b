package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DSN builds the driver DSN.  Times are parsed into time.Time in UTC and
// the driver's default utf8mb4 collation applies.
func DSN(user, pass, host, port, name string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// Open connects to MySQL and pings within five seconds.
func Open(ctx context.Context, user, pass, host, port, name string) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}

	// Session lookups are short and frequent; a small pool is plenty.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql at %s: %w", net.JoinHostPort(host, port), err)
	}
	return db, nil
}

const clientStorageDDL = `CREATE TABLE IF NOT EXISTS client_storage (
	session_id VARCHAR(64) NOT NULL,
	k          VARCHAR(32) NOT NULL,
	v          MEDIUMTEXT  NOT NULL,
	updated_at DATETIME    NOT NULL,
	PRIMARY KEY (session_id, k),
	KEY idx_client_storage_updated (updated_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// EnsureSchema creates the tables the session storage relies on.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, clientStorageDDL); err != nil {
		return fmt.Errorf("create client_storage: %w", err)
	}
	return nil
}
