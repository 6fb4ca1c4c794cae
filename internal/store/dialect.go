package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// dialect captures what differs between the supported databases: how to reach
// the catalog, how to create it, the DDL, and how inserted ids come back.
type dialect interface {
	driverName() string
	dsn(cfg Config, withCatalog bool) (string, error)
	// prepare runs before the first connection attempt.
	prepare(cfg Config) error
	isUnknownCatalog(err error) bool
	createCatalog(ctx context.Context, admin *sql.DB, catalog string) error
	schema() []string
	rebind(query string) string
	insert(ctx context.Context, db *sql.DB, query string, args ...any) (int64, error)
	maxOpenConns(poolSize int) int
}

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "mysql":
		return mysqlDialect{}, nil
	case "postgres", "postgresql":
		return postgresDialect{}, nil
	case "sqlite":
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

func insertLastID(ctx context.Context, db *sql.DB, query string, args ...any) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ---------------- MySQL ----------------

const mysqlUnknownDatabase = 1049

type mysqlDialect struct{}

func (mysqlDialect) driverName() string { return "mysql" }

func (mysqlDialect) dsn(cfg Config, withCatalog bool) (string, error) {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Timeout = 10 * time.Second
	if withCatalog {
		mc.DBName = cfg.Catalog
	}
	return mc.FormatDSN(), nil
}

func (mysqlDialect) prepare(Config) error { return nil }

func (mysqlDialect) isUnknownCatalog(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlUnknownDatabase
}

func (mysqlDialect) createCatalog(ctx context.Context, admin *sql.DB, catalog string) error {
	_, err := admin.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteMySQL(catalog))
	return err
}

func quoteMySQL(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (mysqlDialect) schema() []string {
	return []string{`
CREATE TABLE IF NOT EXISTS content_updates (
  id INT AUTO_INCREMENT PRIMARY KEY,
  update_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  content_type VARCHAR(50),
  content TEXT,
  status VARCHAR(20),
  created_by VARCHAR(50),
  INDEX idx_content_updates_update_date (update_date)
)`, `
CREATE TABLE IF NOT EXISTS site_analytics (
  id INT AUTO_INCREMENT PRIMARY KEY,
  event_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
  event_type VARCHAR(50),
  event_data JSON,
  user_agent TEXT,
  INDEX idx_site_analytics_type_date (event_type, event_date)
)`}
}

func (mysqlDialect) rebind(q string) string { return q }

func (mysqlDialect) insert(ctx context.Context, db *sql.DB, q string, args ...any) (int64, error) {
	return insertLastID(ctx, db, q, args...)
}

func (mysqlDialect) maxOpenConns(n int) int { return n }

// ---------------- PostgreSQL ----------------

const (
	pgInvalidCatalog    = "3D000"
	pgDuplicateDatabase = "42P04"
	pgAdminCatalog      = "postgres"
)

type postgresDialect struct{}

func (postgresDialect) driverName() string { return "postgres" }

func (postgresDialect) dsn(cfg Config, withCatalog bool) (string, error) {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	catalog := pgAdminCatalog
	if withCatalog {
		catalog = cfg.Catalog
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:   "/" + catalog,
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else {
		u.User = url.User(cfg.User)
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	q.Set("connect_timeout", "10")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (postgresDialect) prepare(Config) error { return nil }

func (postgresDialect) isUnknownCatalog(err error) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && string(pe.Code) == pgInvalidCatalog
}

func (postgresDialect) createCatalog(ctx context.Context, admin *sql.DB, catalog string) error {
	_, err := admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(catalog))
	var pe *pq.Error
	if errors.As(err, &pe) && string(pe.Code) == pgDuplicateDatabase {
		return nil
	}
	return err
}

func (postgresDialect) schema() []string {
	return []string{`
CREATE TABLE IF NOT EXISTS content_updates (
  id SERIAL PRIMARY KEY,
  update_date TIMESTAMPTZ NOT NULL DEFAULT now(),
  content_type VARCHAR(50),
  content TEXT,
  status VARCHAR(20),
  created_by VARCHAR(50)
)`, `
CREATE TABLE IF NOT EXISTS site_analytics (
  id SERIAL PRIMARY KEY,
  event_date TIMESTAMPTZ NOT NULL DEFAULT now(),
  event_type VARCHAR(50),
  event_data JSONB,
  user_agent TEXT
)`, `
CREATE INDEX IF NOT EXISTS idx_content_updates_update_date ON content_updates(update_date)`, `
CREATE INDEX IF NOT EXISTS idx_site_analytics_type_date ON site_analytics(event_type, event_date)`}
}

// rebind turns ? placeholders into $1..$n.
func (postgresDialect) rebind(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (postgresDialect) insert(ctx context.Context, db *sql.DB, q string, args ...any) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, q+" RETURNING id", args...).Scan(&id)
	return id, err
}

func (postgresDialect) maxOpenConns(n int) int { return n }

// ---------------- SQLite ----------------

// sqliteDialect treats the database file as the catalog.
type sqliteDialect struct{}

func (sqliteDialect) driverName() string { return "sqlite" }

func (sqliteDialect) dsn(cfg Config, _ bool) (string, error) {
	if cfg.Path == "" {
		return "", errors.New("sqlite path is required")
	}
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", cfg.Path), nil
}

func (sqliteDialect) prepare(cfg Config) error {
	dir := filepath.Dir(cfg.Path)
	if _, err := os.Stat(dir); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if !cfg.AutoCreateCatalog {
		return fmt.Errorf("%w: directory %s does not exist", ErrCatalogMissing, dir)
	}
	return os.MkdirAll(dir, 0o755)
}

func (sqliteDialect) isUnknownCatalog(error) bool { return false }

func (sqliteDialect) createCatalog(context.Context, *sql.DB, string) error { return nil }

func (sqliteDialect) schema() []string {
	return []string{`
CREATE TABLE IF NOT EXISTS content_updates (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  update_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  content_type TEXT,
  content TEXT,
  status TEXT,
  created_by TEXT
)`, `
CREATE TABLE IF NOT EXISTS site_analytics (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  event_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  event_type TEXT,
  event_data TEXT,
  user_agent TEXT
)`, `
CREATE INDEX IF NOT EXISTS idx_content_updates_update_date ON content_updates(update_date)`, `
CREATE INDEX IF NOT EXISTS idx_site_analytics_type_date ON site_analytics(event_type, event_date)`}
}

func (sqliteDialect) rebind(q string) string { return q }

func (sqliteDialect) insert(ctx context.Context, db *sql.DB, q string, args ...any) (int64, error) {
	return insertLastID(ctx, db, q, args...)
}

// sqlite typically wants 1 writer
func (sqliteDialect) maxOpenConns(int) int { return 1 }
