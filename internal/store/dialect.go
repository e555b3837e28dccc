package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// dialect holds the SQL that differs between the supported databases.
// Queries are written with ? placeholders and rebound for drivers that
// number them.
type dialect struct {
	name           string
	driver         string
	schema         []string
	insertChannel  string
	upsertSlot     string
	numberedParams bool // $1, $2, ... instead of ?
	returningID    bool // LastInsertId is unsupported; use RETURNING id
}

// rebind rewrites ? placeholders for the dialect.
func (d dialect) rebind(query string) string {
	if !d.numberedParams {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var sqliteDialect = dialect{
	name:   "sqlite",
	driver: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS channels (
			channel TEXT PRIMARY KEY,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS channel_slots (
			channel TEXT NOT NULL,
			environment TEXT NOT NULL,
			branch TEXT NOT NULL DEFAULT '',
			deployer TEXT,
			deployed_at TEXT,
			commit_sha TEXT,
			PRIMARY KEY (channel, environment)
		)`,
		`CREATE TABLE IF NOT EXISTS deployments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			channel TEXT NOT NULL,
			environment TEXT NOT NULL,
			branch TEXT NOT NULL,
			deployer TEXT,
			title TEXT,
			outcome TEXT NOT NULL,
			received_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deployments_channel
		ON deployments(channel, id DESC)`,
	},
	insertChannel: `INSERT OR IGNORE INTO channels (channel, created_at) VALUES (?, ?)`,
	upsertSlot: `
		INSERT INTO channel_slots (channel, environment, branch, deployer, deployed_at, commit_sha)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel, environment) DO UPDATE SET
			branch = excluded.branch,
			deployer = excluded.deployer,
			deployed_at = excluded.deployed_at,
			commit_sha = excluded.commit_sha`,
}

var mysqlDialect = dialect{
	name:   "mysql",
	driver: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS channels (
			channel VARCHAR(32) PRIMARY KEY,
			created_at VARCHAR(40) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS channel_slots (
			channel VARCHAR(32) NOT NULL,
			environment VARCHAR(64) NOT NULL,
			branch VARCHAR(255) NOT NULL DEFAULT '',
			deployer VARCHAR(255),
			deployed_at VARCHAR(40),
			commit_sha VARCHAR(64),
			PRIMARY KEY (channel, environment)
		)`,
		`CREATE TABLE IF NOT EXISTS deployments (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			channel VARCHAR(32) NOT NULL,
			environment VARCHAR(64) NOT NULL,
			branch VARCHAR(255) NOT NULL,
			deployer VARCHAR(255),
			title TEXT,
			outcome VARCHAR(16) NOT NULL,
			received_at VARCHAR(40) NOT NULL,
			INDEX idx_deployments_channel (channel, id)
		)`,
	},
	insertChannel: `INSERT IGNORE INTO channels (channel, created_at) VALUES (?, ?)`,
	upsertSlot: `
		INSERT INTO channel_slots (channel, environment, branch, deployer, deployed_at, commit_sha)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			branch = VALUES(branch),
			deployer = VALUES(deployer),
			deployed_at = VALUES(deployed_at),
			commit_sha = VALUES(commit_sha)`,
}

var postgresDialect = dialect{
	name:   "postgres",
	driver: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS channels (
			channel TEXT PRIMARY KEY,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS channel_slots (
			channel TEXT NOT NULL,
			environment TEXT NOT NULL,
			branch TEXT NOT NULL DEFAULT '',
			deployer TEXT,
			deployed_at TEXT,
			commit_sha TEXT,
			PRIMARY KEY (channel, environment)
		)`,
		`CREATE TABLE IF NOT EXISTS deployments (
			id BIGSERIAL PRIMARY KEY,
			channel TEXT NOT NULL,
			environment TEXT NOT NULL,
			branch TEXT NOT NULL,
			deployer TEXT,
			title TEXT,
			outcome TEXT NOT NULL,
			received_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deployments_channel
		ON deployments(channel, id DESC)`,
	},
	insertChannel: `INSERT INTO channels (channel, created_at) VALUES (?, ?)
		ON CONFLICT (channel) DO NOTHING`,
	upsertSlot:     sqliteDialect.upsertSlot,
	numberedParams: true,
	returningID:    true,
}

// parseDatabaseURL picks the dialect for a DATABASE_URL and returns the DSN
// to hand to its driver. A bare path is treated as a SQLite file.
func parseDatabaseURL(databaseURL string) (dialect, string, error) {
	switch {
	case databaseURL == "":
		return dialect{}, "", fmt.Errorf("database URL is empty")

	case strings.HasPrefix(databaseURL, "mysql://"):
		dsn := strings.TrimPrefix(databaseURL, "mysql://")
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return dialect{}, "", fmt.Errorf("invalid MySQL DSN: %w", err)
		}
		return mysqlDialect, dsn, nil

	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		// lib/pq accepts the URL form directly
		if _, err := pq.ParseURL(databaseURL); err != nil {
			return dialect{}, "", fmt.Errorf("invalid PostgreSQL URL: %w", err)
		}
		return postgresDialect, databaseURL, nil

	case strings.HasPrefix(databaseURL, "sqlite://"):
		return sqliteDialect, strings.TrimPrefix(databaseURL, "sqlite://"), nil

	case strings.Contains(databaseURL, "://"):
		scheme := databaseURL[:strings.Index(databaseURL, "://")]
		return dialect{}, "", fmt.Errorf("unsupported database scheme %q (use sqlite://, mysql:// or postgres://)", scheme)

	default:
		return sqliteDialect, databaseURL, nil
	}
}
