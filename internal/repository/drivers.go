package repository

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/opensource-health/heron/internal/domain"
)

// sqlitePragmas are applied to every SQLite connection.
const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"

// dsnFor returns the database/sql driver name and DSN for cfg.
func dsnFor(cfg domain.RepositoryConfig) (string, string, error) {
	switch cfg.Driver {
	case "sqlite":
		// modernc.org/sqlite is pure Go; no CGO required
		path := cfg.SQLitePath
		if path == "" {
			path = "./heron.db"
		}
		return "sqlite", "file:" + path + "?" + sqlitePragmas, nil

	case "postgres":
		host := cfg.PostgresHost
		if host == "" {
			host = "localhost"
		}
		port := cfg.PostgresPort
		if port == 0 {
			port = 5432
		}
		dbname := cfg.PostgresDB
		if dbname == "" {
			dbname = "heron"
		}
		sslmode := cfg.PostgresSSLMode
		if sslmode == "" {
			sslmode = "disable"
		}

		u := url.URL{
			Scheme: "postgres",
			Host:   net.JoinHostPort(host, strconv.Itoa(port)),
			Path:   "/" + dbname,
			RawQuery: url.Values{
				"sslmode":          {sslmode},
				"application_name": {"heron"},
				"connect_timeout":  {"5"},
			}.Encode(),
		}
		if cfg.PostgresUser != "" {
			u.User = url.UserPassword(cfg.PostgresUser, cfg.PostgresPassword)
		}
		return "postgres", u.String(), nil
	}

	return "", "", fmt.Errorf("unsupported driver: %s", cfg.Driver)
}

// openDB opens and pings the configured database.
func openDB(cfg domain.RepositoryConfig) (*sql.DB, error) {
	driverName, dsn, err := dsnFor(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "sqlite" {
		if dir := filepath.Dir(cfg.SQLitePath); cfg.SQLitePath != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Driver, err)
	}

	return db, nil
}
