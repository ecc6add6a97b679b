package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/turtacn/opgrader/internal/application/grading"
	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/pkg/errors"
)

// SubmissionRepository stores grading runs in the submissions table.  The
// full grading result lives in a jsonb column; every save appends the new
// status to a jsonb status_history array so transitions stay auditable.
type SubmissionRepository struct {
	db     *sql.DB
	logger logging.Logger
}

// NewSubmissionRepository builds the repository.
func NewSubmissionRepository(db *sql.DB, logger logging.Logger) *SubmissionRepository {
	return &SubmissionRepository{db: db, logger: logger}
}

var _ grading.SubmissionStore = (*SubmissionRepository)(nil)

// SaveSubmission upserts one grading run keyed by grading_id.  On conflict
// only the fields carried by sub overwrite the row (a nil result keeps the
// stored one), and the status is appended to status_history.
func (r *SubmissionRepository) SaveSubmission(ctx context.Context, sub *grading.Submission) error {
	if sub == nil || sub.GradingID == "" {
		return errors.InvalidParam("grading_id is required")
	}

	var result []byte
	if sub.Result != nil {
		var err error
		if result, err = json.Marshal(sub.Result); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal grading result")
		}
	}

	now := time.Now().UTC()
	createdAt := sub.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO submissions
			(grading_id, transcript_id, rubric_id, rubric_version, status,
			 overall_score, result, status_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
			jsonb_build_array(jsonb_build_object('status', $5::text, 'at', $8::timestamptz)),
			$8, $8)
		ON CONFLICT (grading_id) DO UPDATE SET
			status         = EXCLUDED.status,
			overall_score  = EXCLUDED.overall_score,
			result         = COALESCE(EXCLUDED.result, submissions.result),
			status_history = submissions.status_history ||
				jsonb_build_object('status', EXCLUDED.status, 'at', EXCLUDED.updated_at),
			updated_at     = EXCLUDED.updated_at`,
		sub.GradingID, sub.TranscriptID, sub.RubricID, sub.RubricVersion,
		sub.Status, sub.OverallScore, nullableJSON(result), createdAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save submission")
	}

	r.logger.Debug("Saved submission",
		logging.String("grading_id", sub.GradingID),
		logging.String("status", sub.Status))
	return nil
}

// Get fetches one submission by grading ID.
func (r *SubmissionRepository) Get(ctx context.Context, gradingID string) (*grading.Submission, error) {
	sub, err := scanSubmission(r.db.QueryRowContext(ctx, `
		SELECT grading_id, transcript_id, rubric_id, rubric_version, status,
		       overall_score, result, created_at, updated_at
		FROM submissions
		WHERE grading_id = $1`, gradingID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.Newf(errors.ErrCodeGradingNotFound, "grading %s not found", gradingID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to fetch submission")
	}
	return sub, nil
}

// ListByTranscript returns every grading run of one transcript, newest first.
func (r *SubmissionRepository) ListByTranscript(ctx context.Context, transcriptID string) ([]*grading.Submission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT grading_id, transcript_id, rubric_id, rubric_version, status,
		       overall_score, result, created_at, updated_at
		FROM submissions
		WHERE transcript_id = $1
		ORDER BY created_at DESC`, transcriptID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list submissions")
	}
	defer rows.Close()

	var out []*grading.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan submission row")
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate submission rows")
	}
	return out, nil
}

// StatusHistory returns the recorded status transitions of one grading run.
func (r *SubmissionRepository) StatusHistory(ctx context.Context, gradingID string) ([]StatusTransition, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT status_history FROM submissions WHERE grading_id = $1`,
		gradingID).Scan(&raw)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.Newf(errors.ErrCodeGradingNotFound, "grading %s not found", gradingID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to fetch status history")
	}

	var history []StatusTransition
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode status history")
	}
	return history, nil
}

// StatusTransition is one entry of a submission's status_history.
type StatusTransition struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func scanSubmission(s scanner) (*grading.Submission, error) {
	var (
		sub    grading.Submission
		score  sql.NullFloat64
		result []byte
	)
	if err := s.Scan(&sub.GradingID, &sub.TranscriptID, &sub.RubricID,
		&sub.RubricVersion, &sub.Status, &score, &result,
		&sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	sub.OverallScore = score.Float64

	if len(result) > 0 {
		sub.Result = &grading.Response{}
		if err := json.Unmarshal(result, sub.Result); err != nil {
			return nil, err
		}
	}
	return &sub, nil
}
