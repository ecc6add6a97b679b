package rubric

import "context"

// Repository is the persistence contract for versioned rubrics.
//
// Versions are immutable once approved: Update allocates a fresh patch
// version in draft status instead of mutating the stored row.  Get with an
// empty version resolves the latest approved version.
type Repository interface {
	// Create stores a new rubric version.  It fails with
	// ErrCodeRubricAlreadyExists when the (rubric_id, version) pair is taken.
	Create(ctx context.Context, r *Rubric) error

	// Get fetches one version, or the latest approved version when version is
	// empty.  Returns ErrCodeRubricNotFound when nothing matches.
	Get(ctx context.Context, rubricID, version string) (*Rubric, error)

	// ListVersions returns every stored version of a rubric, oldest first.
	ListVersions(ctx context.Context, rubricID string) ([]*Rubric, error)

	// LatestVersion returns the highest stored version string for a rubric,
	// regardless of status.  Returns ErrCodeRubricNotFound when the rubric has
	// no versions.
	LatestVersion(ctx context.Context, rubricID string) (string, error)

	// UpdateStatus transitions a stored version between lifecycle states.
	UpdateStatus(ctx context.Context, rubricID, version string, status Status) error

	// Delete removes a version.  Approved versions cannot be deleted and fail
	// with ErrCodeRubricDeleteApproved.
	Delete(ctx context.Context, rubricID, version string) error
}
