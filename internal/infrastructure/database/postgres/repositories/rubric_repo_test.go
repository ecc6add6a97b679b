package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/opgrader/internal/domain/rubric"
	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/pkg/errors"
)

func newTestRepo(t *testing.T) (*RubricRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRubricRepository(db, logging.NewNopLogger()), mock
}

func rubricRow(t *testing.T, rb *rubric.Rubric) *sqlmock.Rows {
	t.Helper()
	definition, err := json.Marshal(rb)
	require.NoError(t, err)
	return sqlmock.NewRows([]string{"definition", "status", "created_at", "updated_at"}).
		AddRow(definition, string(rb.Status), rb.CreatedAt, rb.UpdatedAt)
}

func TestRubricRepository_Create(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec("INSERT INTO rubrics").
		WithArgs("neuro-oral", "1.0.0", "draft", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &rubric.Rubric{
		RubricID: "neuro-oral",
		Version:  "1.0.0",
		Status:   rubric.StatusDraft,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRubricRepository_CreateDuplicate(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec("INSERT INTO rubrics").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	err := repo.Create(context.Background(), &rubric.Rubric{
		RubricID: "neuro-oral",
		Version:  "1.0.0",
		Status:   rubric.StatusDraft,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRubricAlreadyExists))
}

func TestRubricRepository_GetExactVersion(t *testing.T) {
	repo, mock := newTestRepo(t)

	now := time.Now().UTC().Truncate(time.Second)
	stored := &rubric.Rubric{
		RubricID:  "neuro-oral",
		Version:   "1.2.0",
		Status:    rubric.StatusApproved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	mock.ExpectQuery(`WHERE rubric_id = \$1 AND version = \$2`).
		WithArgs("neuro-oral", "1.2.0").
		WillReturnRows(rubricRow(t, stored))

	got, err := repo.Get(context.Background(), "neuro-oral", "1.2.0")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", got.Version)
	assert.Equal(t, rubric.StatusApproved, got.Status)
	assert.Equal(t, now, got.CreatedAt)
}

func TestRubricRepository_GetLatestApproved(t *testing.T) {
	repo, mock := newTestRepo(t)

	stored := &rubric.Rubric{RubricID: "neuro-oral", Version: "2.0.0", Status: rubric.StatusApproved}
	mock.ExpectQuery(`status = 'approved'`).
		WithArgs("neuro-oral").
		WillReturnRows(rubricRow(t, stored))

	got, err := repo.Get(context.Background(), "neuro-oral", "")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", got.Version)
}

func TestRubricRepository_GetNotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(`status = 'approved'`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing", "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRubricNotFound))
}

func TestRubricRepository_ListVersions(t *testing.T) {
	repo, mock := newTestRepo(t)

	v1, err := json.Marshal(&rubric.Rubric{RubricID: "neuro-oral", Version: "1.0.0"})
	require.NoError(t, err)
	v2, err := json.Marshal(&rubric.Rubric{RubricID: "neuro-oral", Version: "1.1.0"})
	require.NoError(t, err)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"definition", "status", "created_at", "updated_at"}).
		AddRow(v1, "archived", now, now).
		AddRow(v2, "approved", now, now)
	mock.ExpectQuery("FROM rubrics").WithArgs("neuro-oral").WillReturnRows(rows)

	out, err := repo.ListVersions(context.Background(), "neuro-oral")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "1.0.0", out[0].Version)
	assert.Equal(t, rubric.StatusArchived, out[0].Status)
	assert.Equal(t, "1.1.0", out[1].Version)
}

func TestRubricRepository_LatestVersion(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT version").
		WithArgs("neuro-oral").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("1.10.0"))

	version, err := repo.LatestVersion(context.Background(), "neuro-oral")
	require.NoError(t, err)
	assert.Equal(t, "1.10.0", version)
}

func TestRubricRepository_LatestVersionNotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT version").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.LatestVersion(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRubricNotFound))
}

func TestRubricRepository_UpdateStatus(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec("UPDATE rubrics").
		WithArgs("neuro-oral", "1.0.0", "approved", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "neuro-oral", "1.0.0", rubric.StatusApproved)
	require.NoError(t, err)
}

func TestRubricRepository_UpdateStatusNotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec("UPDATE rubrics").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "neuro-oral", "9.9.9", rubric.StatusApproved)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRubricNotFound))
}

func TestRubricRepository_Delete(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT status FROM rubrics").
		WithArgs("neuro-oral", "1.0.0").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("draft"))
	mock.ExpectExec("DELETE FROM rubrics").
		WithArgs("neuro-oral", "1.0.0").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "neuro-oral", "1.0.0"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRubricRepository_DeleteApprovedRefused(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT status FROM rubrics").
		WithArgs("neuro-oral", "1.0.0").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("approved"))

	err := repo.Delete(context.Background(), "neuro-oral", "1.0.0")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRubricDeleteApproved))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRubricRepository_DeleteNotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT status FROM rubrics").
		WithArgs("missing", "1.0.0").
		WillReturnError(sql.ErrNoRows)

	err := repo.Delete(context.Background(), "missing", "1.0.0")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRubricNotFound))
}
