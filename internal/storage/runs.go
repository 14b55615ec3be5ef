package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

// SaveRun records a finished run. Saving the same run ID twice replaces the
// earlier row.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.RunReport) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	summary, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			id, started_at, run_date, status, error_kind,
			transaction_count, rule_count, top_lift, source, grouping, summary
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.Timestamp.UTC(),
		run.RunDate,
		string(run.Status),
		nullString(run.ErrorKind),
		run.TransactionCount,
		run.RuleCount,
		run.Insights.TopLift,
		nullString(run.Source),
		nullString(run.Grouping),
		string(summary),
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.RunID, err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]*model.RunReport, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT summary FROM runs
		ORDER BY started_at DESC, id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*model.RunReport
	for rows.Next() {
		var summary string
		if err := rows.Scan(&summary); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run, err := decodeRun(summary)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// GetRun looks a run up by its ID or an unambiguous ID prefix.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.RunReport, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var summary string
	err := s.db.QueryRowContext(ctx, `SELECT summary FROM runs WHERE id = ?`, id).Scan(&summary)
	if errors.Is(err, sql.ErrNoRows) {
		return s.getRunByPrefix(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", id, err)
	}
	return decodeRun(summary)
}

func (s *SQLiteStorage) getRunByPrefix(ctx context.Context, prefix string) (*model.RunReport, error) {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	rows, err := s.db.QueryContext(ctx,
		`SELECT summary FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escaped+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", prefix, err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []string
	for rows.Next() {
		var summary string
		if err := rows.Scan(&summary); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	switch len(summaries) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return decodeRun(summaries[0])
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRunID, prefix)
	}
}

func decodeRun(summary string) (*model.RunReport, error) {
	var run model.RunReport
	if err := json.Unmarshal([]byte(summary), &run); err != nil {
		return nil, fmt.Errorf("failed to decode run summary: %w", err)
	}
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
