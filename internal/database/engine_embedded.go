package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/tursodatabase/go-libsql"
	_ "modernc.org/sqlite"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
)

const dbFileExt = ".db"

// EmbeddedEngine serves logical databases from local libSQL or SQLite files,
// or a single database named by LIBSQL_URL.
type EmbeddedEngine struct {
	cfg *Config
}

func NewEmbeddedEngine(cfg *Config) *EmbeddedEngine {
	return &EmbeddedEngine{cfg: cfg}
}

func (e *EmbeddedEngine) Kind() string { return EngineEmbedded }

func (e *EmbeddedEngine) Close() error { return nil }

func (e *EmbeddedEngine) singleDatabase() bool { return e.cfg.URL != "" }

func (e *EmbeddedEngine) path(name string) string {
	return filepath.Join(e.cfg.DataDir, name+dbFileExt)
}

func (e *EmbeddedEngine) ListDatabases(ctx context.Context) ([]string, error) {
	if e.singleDatabase() {
		return []string{e.cfg.ActiveDatabase}, nil
	}
	entries, err := os.ReadDir(e.cfg.DataDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, errs.Wrap(errs.KindConnection, "list_databases", err, "cannot read %s", e.cfg.DataDir)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), dbFileExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), dbFileExt)
		if ValidateDatabaseName(name) == nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (e *EmbeddedEngine) Open(ctx context.Context, name string, create bool) (Backend, error) {
	const op = "open_database"
	if err := ValidateDatabaseName(name); err != nil {
		return nil, err
	}
	dsn, err := e.dsn(name, create)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(e.cfg.Driver, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.KindConnection, op, err, "failed to create database connector for %q", name)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.KindConnection, op, err, "database %q is unreachable", name)
	}
	applyPoolSettings(db, e.cfg)

	kind := DialectSQLite
	if e.cfg.Driver == DriverLibSQL {
		kind = DialectLibSQL
	}
	return &sqlBackend{name: name, db: db, kind: kind}, nil
}

func (e *EmbeddedEngine) dsn(name string, create bool) (string, error) {
	const op = "open_database"
	if e.singleDatabase() {
		if name != e.cfg.ActiveDatabase {
			return "", errs.NotFound(op, "database %q does not exist (single database mode serves %q)", name, e.cfg.ActiveDatabase)
		}
		return withAuthToken(e.cfg.URL, e.cfg.AuthToken), nil
	}

	path := e.path(name)
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return "", errs.Wrap(errs.KindConnection, op, err, "cannot stat %s", path)
		}
		if !create {
			return "", errs.NotFound(op, "database %q does not exist", name)
		}
		if err := os.MkdirAll(e.cfg.DataDir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create data directory %s: %w", e.cfg.DataDir, err)
		}
	}
	if e.cfg.Driver == DriverSQLite {
		return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", nil
	}
	return "file:" + path, nil
}

// withAuthToken appends the libSQL auth token to remote URLs.
func withAuthToken(dbURL, token string) string {
	if token == "" || strings.HasPrefix(dbURL, "file:") {
		return dbURL
	}
	if u, err := url.Parse(dbURL); err == nil {
		q := u.Query()
		q.Set("authToken", token)
		u.RawQuery = q.Encode()
		return u.String()
	}
	sep := "?"
	if strings.Contains(dbURL, "?") {
		sep = "&"
	}
	return dbURL + sep + "authToken=" + url.QueryEscape(token)
}
