package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"deplog/internal/channel"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"
)

const openMaxElapsed = 30 * time.Second

// Store persists channel records and the deployment history.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the database named by databaseURL and creates the schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	d, dsn, err := parseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if d.name == sqliteDialect.name {
		// SQLite has a single writer
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := ping(ctx, db, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, dialect: d}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// ping checks the connection. A database server may still be starting, so
// transient connection errors are retried.
func ping(ctx context.Context, db *sql.DB, d dialect) error {
	if d.name == sqliteDialect.name {
		return db.PingContext(ctx)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = openMaxElapsed
	return backoff.Retry(func() error {
		err := db.PingContext(ctx)
		if err != nil && isRetryableError(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}

// isRetryableError returns true for transient connection errors.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, transient := range []string{
		"driver: bad connection",
		"invalid connection",
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"gone away",
	} {
		if strings.Contains(errStr, transient) {
			return true
		}
	}
	return false
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Dialect returns the name of the SQL dialect in use.
func (s *Store) Dialect() string {
	return s.dialect.name
}

func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Get returns the record for channelID, or nil if the channel was never seen.
func (s *Store) Get(ctx context.Context, channelID string) (*channel.Record, error) {
	var createdAtStr string
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT created_at FROM channels WHERE channel = ?`), channelID,
	).Scan(&createdAtStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query channel: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}

	record := &channel.Record{
		Channel:   channelID,
		Slots:     make(map[string]channel.Slot),
		CreatedAt: createdAt,
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT environment, branch, deployer, deployed_at, commit_sha
		FROM channel_slots
		WHERE channel = ?
	`), channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query channel slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		env, slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel slot: %w", err)
		}
		record.Slots[env] = slot
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return record, nil
}

// Load returns the stored record for channelID holding exactly the given
// environments: missing ones get an empty slot and stored slots of other
// environments are left out. An unseen channel yields a fresh unsaved record.
func (s *Store) Load(ctx context.Context, channelID string, environments []string) (*channel.Record, error) {
	record, err := s.Get(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = channel.NewRecord(channelID, environments)
		record.CreatedAt = time.Now().UTC().Truncate(time.Second)
		return record, nil
	}
	record.EnsureSlots(environments)
	record.Retain(environments)
	return record, nil
}

// Save writes the record and all of its slots in one transaction.
func (s *Store) Save(ctx context.Context, record *channel.Record) error {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(s.dialect.insertChannel),
		record.Channel, createdAt.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("failed to insert channel: %w", err)
	}

	for env, slot := range record.Slots {
		var deployedAt *string
		if !slot.DeployedAt.IsZero() {
			formatted := slot.DeployedAt.UTC().Format(time.RFC3339)
			deployedAt = &formatted
		}

		if _, err := tx.ExecContext(ctx, s.dialect.rebind(s.dialect.upsertSlot),
			record.Channel,
			env,
			slot.Branch,
			nullString(slot.Deployer),
			deployedAt,
			nullString(slot.Commit),
		); err != nil {
			return fmt.Errorf("failed to save slot %s: %w", env, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit channel record: %w", err)
	}
	return nil
}

// Channels lists every channel with a stored record.
func (s *Store) Channels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT channel FROM channels ORDER BY channel`)
	if err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer rows.Close()

	var channels []string
	for rows.Next() {
		var ch string
		if err := rows.Scan(&ch); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return channels, nil
}

// scanner is an interface that both *sql.Row and *sql.Rows implement
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSlot(sc scanner) (string, channel.Slot, error) {
	var env string
	var slot channel.Slot
	var deployer, deployedAtStr, commit sql.NullString

	if err := sc.Scan(&env, &slot.Branch, &deployer, &deployedAtStr, &commit); err != nil {
		return "", channel.Slot{}, err
	}

	slot.Deployer = deployer.String
	slot.Commit = commit.String

	if deployedAtStr.Valid && deployedAtStr.String != "" {
		deployedAt, err := time.Parse(time.RFC3339, deployedAtStr.String)
		if err != nil {
			return "", channel.Slot{}, fmt.Errorf("failed to parse deployed_at timestamp: %w", err)
		}
		slot.DeployedAt = deployedAt
	}

	return env, slot, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
