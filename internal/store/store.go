package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fieldscope/siteplan/internal/importer"
)

// ErrNoValidRows is returned when a commit request carries nothing eligible
// for insertion.
var ErrNoValidRows = errors.New("no valid rows to commit")

// DB is the subset of pgxpool.Pool the store needs. Keeping it an interface
// lets tests drive the commit loop with a fake transaction.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store persists activities for the import pipeline.
type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

// Ping reports whether the backing database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS activities (
	id UUID PRIMARY KEY,
	project_code TEXT NOT NULL,
	area_name TEXT NOT NULL DEFAULT '',
	system_name TEXT NOT NULL DEFAULT '',
	code TEXT NOT NULL,
	name TEXT NOT NULL,
	unit TEXT NOT NULL DEFAULT '',
	boq_qty DOUBLE PRECISION NOT NULL,
	weight DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (project_code, code)
);
CREATE INDEX IF NOT EXISTS idx_activities_project ON activities (project_code);
`

// EnsureSchema creates the activities table and its unique constraint. The
// (project_code, code) uniqueness is what turns concurrent duplicate imports
// into per-row rejections instead of silent double entry.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const insertActivitySQL = `
INSERT INTO activities (id, project_code, area_name, system_name, code, name, unit, boq_qty, weight, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

// BulkInsert commits validated activities for one project inside a single
// transaction. Each row gets its own savepoint so a rejected insert (most
// commonly a duplicate code) rolls back alone while the rest of the file
// proceeds. Rows that are not status=valid are refused outright; the caller
// is expected to send only the reviewed valid subset.
func (s *Store) BulkInsert(ctx context.Context, projectCode string, rows []importer.ParsedActivity) (*CommitResult, error) {
	if projectCode == "" {
		return nil, errors.New("project code is required")
	}
	valid := rows[:0:0]
	for _, a := range rows {
		if a.Status == importer.StatusValid {
			valid = append(valid, a)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoValidRows
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result := &CommitResult{
		CommitID:  uuid.NewString(),
		Requested: len(valid),
	}
	now := time.Now().UTC()

	for i, a := range valid {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("commit cancelled at row %d: %w", i+1, err)
		}

		savepoint := fmt.Sprintf("sp_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+savepoint); err != nil {
			return nil, fmt.Errorf("create savepoint: %w", err)
		}

		_, err := tx.Exec(ctx, insertActivitySQL,
			uuid.New(), projectCode, a.AreaName, a.SystemName,
			a.ActivityCode, a.ActivityName, a.Unit, a.BOQQty, a.Weight, now,
		)
		if err != nil {
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
				return nil, fmt.Errorf("rollback savepoint at row %d: %w", i+1, rbErr)
			}
			result.Skipped++
			result.Failed = append(result.Failed, FailedInsert{
				Row:          i + 1,
				ActivityCode: a.ActivityCode,
				Reason:       insertFailureReason(err),
			})
			continue
		}

		if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return nil, fmt.Errorf("release savepoint at row %d: %w", i+1, err)
		}
		result.Inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return result, nil
}

// insertFailureReason maps database errors onto review-screen wording.
func insertFailureReason(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return "duplicate activity code for this project"
	}
	return err.Error()
}

// ListActivityCodes returns the existing activity codes for a project, used
// by the review flow to warn about duplicates before commit.
func (s *Store) ListActivityCodes(ctx context.Context, projectCode string) ([]string, error) {
	rows, err := s.db.Query(ctx,
		"SELECT code FROM activities WHERE project_code = $1 ORDER BY code", projectCode)
	if err != nil {
		return nil, fmt.Errorf("list activity codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan activity code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activity codes: %w", err)
	}
	return codes, nil
}
