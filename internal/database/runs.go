package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// Run is one recorded crawl run.
type Run struct {
	ID         string
	Target     string
	StartedAt  time.Time
	FinishedAt time.Time
	Visited    int
	Pending    int
	Failed     int
	State      string
}

// RunStats are the counters stored when a run finishes.
type RunStats struct {
	Visited int
	Pending int
	Failed  int
	State   string
}

// BeginRun records the start of a crawl run and returns its ID.
func (s *StateDB) BeginRun(ctx context.Context, target string) (string, error) {
	id := uuid.NewString()
	query, args, err := sq.Insert("runs").
		Columns("id", "target", "started_at", "state").
		Values(id, target, time.Now().UTC().Format(time.RFC3339Nano), "running").
		ToSql()
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final counters of a run.
func (s *StateDB) FinishRun(ctx context.Context, id string, stats RunStats) error {
	query, args, err := sq.Update("runs").
		Set("finished_at", time.Now().UTC().Format(time.RFC3339Nano)).
		Set("visited", stats.Visited).
		Set("pending", stats.Pending).
		Set("failed", stats.Failed).
		Set("state", stats.State).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
// A non-positive limit returns every run.
func (s *StateDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	b := runColumns().OrderBy("started_at DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return s.queryRuns(ctx, b)
}

// GetRun returns a single run.
func (s *StateDB) GetRun(ctx context.Context, id string) (*Run, error) {
	runs, err := s.queryRuns(ctx, runColumns().Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return &runs[0], nil
}

func runColumns() sq.SelectBuilder {
	return sq.Select("id", "target", "started_at", "finished_at", "visited", "pending", "failed", "state").From("runs")
}

func (s *StateDB) queryRuns(ctx context.Context, b sq.SelectBuilder) ([]Run, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Target, &started, &finished, &r.Visited, &r.Pending, &r.Failed, &r.State); err != nil {
			return nil, err
		}
		r.StartedAt = parseTimestamp(started)
		if finished.Valid {
			r.FinishedAt = parseTimestamp(finished.String)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
