// Package rubric provides the application-level service for authoring and
// managing versioned grading rubrics.
package rubric

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"

	domainRubric "github.com/turtacn/opgrader/internal/domain/rubric"
	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/pkg/errors"
)

// lockTTL bounds how long a version-allocation lock can be held.
const lockTTL = 10 * time.Second

// Locker serializes version allocation per rubric_id so two concurrent
// updates cannot both read the same latest version.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error
}

// Service defines the rubric management operations.
type Service interface {
	Create(ctx context.Context, r *domainRubric.Rubric) (*domainRubric.Rubric, error)
	Get(ctx context.Context, rubricID, version string) (*domainRubric.Rubric, error)
	ListVersions(ctx context.Context, rubricID string) ([]*domainRubric.Rubric, error)
	Update(ctx context.Context, rubricID, baseVersion string, updated *domainRubric.Rubric) (*domainRubric.Rubric, error)
	PatchUpdate(ctx context.Context, rubricID, baseVersion string, patch []byte) (*domainRubric.Rubric, error)
	Validate(ctx context.Context, r *domainRubric.Rubric) (*domainRubric.Report, error)
	Approve(ctx context.Context, rubricID, version string) error
	Archive(ctx context.Context, rubricID, version string) error
	Delete(ctx context.Context, rubricID, version string) error
}

// nopLocker is used when no distributed lock is configured, e.g. in tests or
// single-instance deployments.
type nopLocker struct{}

func (nopLocker) WithLock(ctx context.Context, _ string, _ time.Duration, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Option configures the service.
type Option func(*serviceImpl)

// WithLocker installs a distributed lock for version allocation.
func WithLocker(l Locker) Option {
	return func(s *serviceImpl) { s.locker = l }
}

type serviceImpl struct {
	repo      domainRubric.Repository
	validator *domainRubric.Validator
	locker    Locker
	logger    logging.Logger
}

// NewService creates the rubric application service.
func NewService(repo domainRubric.Repository, logger logging.Logger, opts ...Option) Service {
	s := &serviceImpl{
		repo:      repo,
		validator: domainRubric.NewValidator(),
		locker:    nopLocker{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new rubric version after structural validation and the QA
// gate.  QA warnings are logged but do not block creation.
func (s *serviceImpl) Create(ctx context.Context, r *domainRubric.Rubric) (*domainRubric.Rubric, error) {
	if r == nil {
		return nil, errors.InvalidParam("rubric is required")
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	report := s.validator.Validate(r)
	if !report.Valid {
		return nil, qaError(report)
	}
	for _, w := range report.Warnings {
		s.logger.Warn("rubric QA warning",
			logging.String("rubric_id", r.RubricID),
			logging.String("category", w.Category),
			logging.String("message", w.Message),
		)
	}

	now := time.Now().UTC()
	r.Status = domainRubric.StatusDraft
	r.CreatedAt = now
	r.UpdatedAt = now
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info("rubric created",
		logging.String("rubric_id", r.RubricID),
		logging.String("version", r.Version),
	)
	return r, nil
}

func (s *serviceImpl) Get(ctx context.Context, rubricID, version string) (*domainRubric.Rubric, error) {
	if rubricID == "" {
		return nil, errors.InvalidParam("rubric_id is required")
	}
	return s.repo.Get(ctx, rubricID, version)
}

func (s *serviceImpl) ListVersions(ctx context.Context, rubricID string) ([]*domainRubric.Rubric, error) {
	if rubricID == "" {
		return nil, errors.InvalidParam("rubric_id is required")
	}
	return s.repo.ListVersions(ctx, rubricID)
}

// Update stores the updated content as a fresh patch version in draft status.
// The stored base version is never mutated.
func (s *serviceImpl) Update(ctx context.Context, rubricID, baseVersion string, updated *domainRubric.Rubric) (*domainRubric.Rubric, error) {
	if updated == nil {
		return nil, errors.InvalidParam("updated rubric is required")
	}
	if _, err := s.repo.Get(ctx, rubricID, baseVersion); err != nil {
		return nil, err
	}
	return s.storeAsNextVersion(ctx, rubricID, updated)
}

// PatchUpdate applies an RFC 6902 JSON patch to the stored base version and
// stores the result as a fresh patch version in draft status.
func (s *serviceImpl) PatchUpdate(ctx context.Context, rubricID, baseVersion string, patch []byte) (*domainRubric.Rubric, error) {
	base, err := s.repo.Get(ctx, rubricID, baseVersion)
	if err != nil {
		return nil, err
	}

	decoded, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRubricPatchFailed, "invalid JSON patch")
	}
	baseDoc, err := json.Marshal(base)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRubricPatchFailed, "failed to encode base rubric")
	}
	patchedDoc, err := decoded.Apply(baseDoc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRubricPatchFailed, "failed to apply JSON patch")
	}
	var patched domainRubric.Rubric
	if err := json.Unmarshal(patchedDoc, &patched); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRubricPatchFailed, "patched rubric is not a valid rubric document")
	}
	patched.RubricID = rubricID
	return s.storeAsNextVersion(ctx, rubricID, &patched)
}

// storeAsNextVersion allocates the next patch version under the per-rubric
// lock, validates the content and stores it as a draft.
func (s *serviceImpl) storeAsNextVersion(ctx context.Context, rubricID string, content *domainRubric.Rubric) (*domainRubric.Rubric, error) {
	var stored *domainRubric.Rubric
	err := s.locker.WithLock(ctx, "rubric:version:"+rubricID, lockTTL, func(ctx context.Context) error {
		latest, err := s.repo.LatestVersion(ctx, rubricID)
		if err != nil {
			return err
		}
		next, err := domainRubric.NextPatchVersion(latest)
		if err != nil {
			return err
		}

		content.RubricID = rubricID
		content.Version = next
		content.Status = domainRubric.StatusDraft
		content.UpdatedAt = time.Now().UTC()
		if content.CreatedAt.IsZero() {
			content.CreatedAt = content.UpdatedAt
		}
		if err := content.Validate(); err != nil {
			return err
		}
		report := s.validator.Validate(content)
		if !report.Valid {
			return qaError(report)
		}
		if err := s.repo.Create(ctx, content); err != nil {
			return err
		}
		stored = content
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("rubric version allocated",
		logging.String("rubric_id", rubricID),
		logging.String("version", stored.Version),
	)
	return stored, nil
}

// Validate runs the QA validator without storing anything.
func (s *serviceImpl) Validate(_ context.Context, r *domainRubric.Rubric) (*domainRubric.Report, error) {
	if r == nil {
		return nil, errors.InvalidParam("rubric is required")
	}
	return s.validator.Validate(r), nil
}

// Approve transitions a draft version to approved after the QA gate.
// Approving an already approved version is an error, not a no-op, so
// retried requests surface the double approval.
func (s *serviceImpl) Approve(ctx context.Context, rubricID, version string) error {
	r, err := s.repo.Get(ctx, rubricID, version)
	if err != nil {
		return err
	}
	if r.Status == domainRubric.StatusApproved {
		return errors.New(errors.ErrCodeRubricAlreadyApproved, "rubric version is already approved")
	}
	report := s.validator.Validate(r)
	if !report.Valid {
		return qaError(report)
	}
	if err := s.repo.UpdateStatus(ctx, rubricID, version, domainRubric.StatusApproved); err != nil {
		return err
	}
	s.logger.Info("rubric approved",
		logging.String("rubric_id", rubricID),
		logging.String("version", version),
	)
	return nil
}

// Archive transitions a version to archived.  Archived versions stop
// resolving as "latest approved" but remain readable for audit.
func (s *serviceImpl) Archive(ctx context.Context, rubricID, version string) error {
	if _, err := s.repo.Get(ctx, rubricID, version); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, rubricID, version, domainRubric.StatusArchived); err != nil {
		return err
	}
	s.logger.Info("rubric archived",
		logging.String("rubric_id", rubricID),
		logging.String("version", version),
	)
	return nil
}

// Delete removes a version.  Approved versions are immutable history and
// cannot be deleted; archive them instead.
func (s *serviceImpl) Delete(ctx context.Context, rubricID, version string) error {
	r, err := s.repo.Get(ctx, rubricID, version)
	if err != nil {
		return err
	}
	if r.Status == domainRubric.StatusApproved {
		return errors.New(errors.ErrCodeRubricDeleteApproved, "approved rubric versions cannot be deleted")
	}
	return s.repo.Delete(ctx, rubricID, version)
}

// qaError folds QA errors into one invalid-rubric error carrying every
// finding in the detail.
func qaError(report *domainRubric.Report) error {
	parts := make([]string, 0, len(report.Errors))
	for _, issue := range report.Errors {
		parts = append(parts, issue.Category+": "+issue.Message)
	}
	return errors.New(errors.ErrCodeRubricInvalid, "rubric failed QA validation").
		WithDetail(strings.Join(parts, "; "))
}
