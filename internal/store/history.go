package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DefaultHistoryLimit is used when a non-positive limit is requested.
const DefaultHistoryLimit = 10

// RecordDeployment appends a notification to the deployment history.
// ReceivedAt defaults to now.
func (s *Store) RecordDeployment(ctx context.Context, record *DeploymentRecord) (int64, error) {
	receivedAt := record.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	query := `
		INSERT INTO deployments
		(channel, environment, branch, deployer, title, outcome, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	args := []interface{}{
		record.Channel,
		record.Environment,
		record.Branch,
		nullString(record.Deployer),
		nullString(record.Title),
		record.Outcome,
		receivedAt.UTC().Format(time.RFC3339),
	}

	if s.dialect.returningID {
		var id int64
		err := s.db.QueryRowContext(ctx, s.dialect.rebind(query+` RETURNING id`), args...).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("failed to insert deployment record: %w", err)
		}
		return id, nil
	}

	result, err := s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert deployment record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// RecentDeployments returns the newest notifications for a channel, newest
// first. An empty environment matches every environment.
func (s *Store) RecentDeployments(ctx context.Context, channelID, environment string, limit int) ([]DeploymentRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `
		SELECT id, channel, environment, branch, deployer, title, outcome, received_at
		FROM deployments
		WHERE channel = ?`
	args := []interface{}{channelID}
	if environment != "" {
		query += ` AND environment = ?`
		args = append(args, environment)
	}
	query += `
		ORDER BY id DESC
		LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deployment history: %w", err)
	}
	defer rows.Close()

	var records []DeploymentRecord
	for rows.Next() {
		record, err := scanDeploymentRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deployment record: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// scanDeploymentRecord scans a database row into a DeploymentRecord
func scanDeploymentRecord(sc scanner) (*DeploymentRecord, error) {
	var record DeploymentRecord
	var deployer, title sql.NullString
	var receivedAtStr string

	err := sc.Scan(
		&record.ID,
		&record.Channel,
		&record.Environment,
		&record.Branch,
		&deployer,
		&title,
		&record.Outcome,
		&receivedAtStr,
	)
	if err != nil {
		return nil, err
	}

	record.Deployer = deployer.String
	record.Title = title.String

	receivedAt, err := time.Parse(time.RFC3339, receivedAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse received_at timestamp: %w", err)
	}
	record.ReceivedAt = receivedAt

	return &record, nil
}
