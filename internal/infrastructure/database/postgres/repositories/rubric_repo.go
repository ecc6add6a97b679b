// Package repositories implements the domain persistence contracts on
// PostgreSQL.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/turtacn/opgrader/internal/domain/rubric"
	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/pkg/errors"
)

const pgUniqueViolation = "23505"

// semverOrder sorts X.Y.Z version strings numerically inside SQL.
const semverOrder = "string_to_array(version, '.')::int[]"

// RubricRepository stores versioned rubrics in the rubrics table.  The full
// rubric document lives in a jsonb column; identity, status, and timestamps
// are mirrored into columns for filtering and ordering.
type RubricRepository struct {
	db     *sql.DB
	logger logging.Logger
}

// NewRubricRepository builds the repository.
func NewRubricRepository(db *sql.DB, logger logging.Logger) *RubricRepository {
	return &RubricRepository{db: db, logger: logger}
}

var _ rubric.Repository = (*RubricRepository)(nil)

// Create stores a new rubric version.
func (r *RubricRepository) Create(ctx context.Context, rb *rubric.Rubric) error {
	definition, err := json.Marshal(rb)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal rubric")
	}

	now := time.Now().UTC()
	createdAt := rb.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := rb.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO rubrics (rubric_id, version, status, definition, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rb.RubricID, rb.Version, string(rb.Status), definition, createdAt, updatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return errors.Newf(errors.ErrCodeRubricAlreadyExists,
				"rubric %s version %s already exists", rb.RubricID, rb.Version)
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert rubric")
	}

	r.logger.Info("Stored rubric version",
		logging.String("rubric_id", rb.RubricID),
		logging.String("version", rb.Version),
		logging.String("status", string(rb.Status)))
	return nil
}

// Get fetches one version, or the latest approved version when version is
// empty.
func (r *RubricRepository) Get(ctx context.Context, rubricID, version string) (*rubric.Rubric, error) {
	var row *sql.Row
	if version == "" {
		row = r.db.QueryRowContext(ctx, `
			SELECT definition, status, created_at, updated_at
			FROM rubrics
			WHERE rubric_id = $1 AND status = 'approved'
			ORDER BY `+semverOrder+` DESC
			LIMIT 1`, rubricID)
	} else {
		row = r.db.QueryRowContext(ctx, `
			SELECT definition, status, created_at, updated_at
			FROM rubrics
			WHERE rubric_id = $1 AND version = $2`, rubricID, version)
	}

	rb, err := scanRubric(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.Newf(errors.ErrCodeRubricNotFound, "rubric %s not found", rubricID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to fetch rubric")
	}
	return rb, nil
}

// ListVersions returns every stored version, oldest first.
func (r *RubricRepository) ListVersions(ctx context.Context, rubricID string) ([]*rubric.Rubric, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT definition, status, created_at, updated_at
		FROM rubrics
		WHERE rubric_id = $1
		ORDER BY `+semverOrder+` ASC`, rubricID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list rubric versions")
	}
	defer rows.Close()

	var out []*rubric.Rubric
	for rows.Next() {
		rb, err := scanRubric(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan rubric row")
		}
		out = append(out, rb)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate rubric rows")
	}
	return out, nil
}

// LatestVersion returns the highest stored version regardless of status.
func (r *RubricRepository) LatestVersion(ctx context.Context, rubricID string) (string, error) {
	var version string
	err := r.db.QueryRowContext(ctx, `
		SELECT version
		FROM rubrics
		WHERE rubric_id = $1
		ORDER BY `+semverOrder+` DESC
		LIMIT 1`, rubricID).Scan(&version)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", errors.Newf(errors.ErrCodeRubricNotFound, "rubric %s not found", rubricID)
	}
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to fetch latest version")
	}
	return version, nil
}

// UpdateStatus transitions a stored version between lifecycle states.
func (r *RubricRepository) UpdateStatus(ctx context.Context, rubricID, version string, status rubric.Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE rubrics
		SET status = $3, updated_at = $4
		WHERE rubric_id = $1 AND version = $2`,
		rubricID, version, string(status), time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update rubric status")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read update result")
	}
	if affected == 0 {
		return errors.Newf(errors.ErrCodeRubricNotFound, "rubric %s version %s not found", rubricID, version)
	}
	return nil
}

// Delete removes a version.  Approved versions stay put.
func (r *RubricRepository) Delete(ctx context.Context, rubricID, version string) error {
	var status string
	err := r.db.QueryRowContext(ctx, `
		SELECT status FROM rubrics WHERE rubric_id = $1 AND version = $2`,
		rubricID, version).Scan(&status)
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.Newf(errors.ErrCodeRubricNotFound, "rubric %s version %s not found", rubricID, version)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to fetch rubric status")
	}
	if rubric.Status(status) == rubric.StatusApproved {
		return errors.Newf(errors.ErrCodeRubricDeleteApproved,
			"rubric %s version %s is approved and cannot be deleted", rubricID, version)
	}

	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM rubrics WHERE rubric_id = $1 AND version = $2`,
		rubricID, version); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete rubric")
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRubric unmarshals the jsonb document and overlays the mirrored
// columns, which are authoritative after status transitions.
func scanRubric(s scanner) (*rubric.Rubric, error) {
	var (
		definition []byte
		status     string
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := s.Scan(&definition, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var rb rubric.Rubric
	if err := json.Unmarshal(definition, &rb); err != nil {
		return nil, err
	}
	rb.Status = rubric.Status(status)
	rb.CreatedAt = createdAt
	rb.UpdatedAt = updatedAt
	return &rb, nil
}
