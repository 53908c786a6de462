package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"

	"storyhub/pkg/config"
	"storyhub/pkg/logger"
)

// MemoryPath opens a private in-memory sqlite database.
const MemoryPath = ":memory:"

// sqliteDriver is go-sqlite3 with lower() replaced by a Unicode-aware version.
// The builtin only folds ASCII, while query arguments are folded with
// strings.ToLower, so "Érotique" would never match "érotique".
const sqliteDriver = "sqlite3_storyhub"

var registerSQLite sync.Once

func sqliteUnicodeLower(v any) any {
	switch s := v.(type) {
	case string:
		return strings.ToLower(s)
	case []byte:
		if s == nil { // NULL
			return nil
		}
		return strings.ToLower(string(s))
	default:
		return v
	}
}

type Config struct {
	Dialect         Dialect
	Path            string // sqlite file
	DSN             string // mysql
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// FromAppConfig maps the database section of the app config.
func FromAppConfig(c config.DatabaseConfig) Config {
	return Config{
		Dialect:         Dialect(c.Driver),
		Path:            c.Path,
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: time.Duration(c.MaxLifetimeMins) * time.Minute,
	}
}

func EnsureDataDir(cfg Config) error {
	if cfg.Path == "" || cfg.Path == MemoryPath {
		return nil
	}
	return os.MkdirAll(filepath.Dir(cfg.Path), 0o755)
}

// Open connects with the configured dialect and verifies the connection.
func Open(cfg Config) (*sql.DB, error) {
	switch cfg.Dialect {
	case SQLite:
		return openSQLite(cfg)
	case MySQL:
		return openMySQL(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Dialect)
	}
}

func openSQLite(cfg Config) (*sql.DB, error) {
	if err := EnsureDataDir(cfg); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	registerSQLite.Do(func() {
		sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("lower", sqliteUnicodeLower, true)
			},
		})
	})

	db, err := sql.Open(sqliteDriver, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if cfg.Path == MemoryPath {
		// every new connection would otherwise see an empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma foreign_keys: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma journal_mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

func openMySQL(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

func MustOpen(cfg Config) *sql.DB {
	db, err := Open(cfg)
	if err != nil {
		logger.Fatal(err, "failed to open db")
	}
	return db
}
