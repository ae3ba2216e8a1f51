package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/plantlab/lessonhub/internal/domain"
	"gorm.io/gorm"
)

// ArchiveRepository handles archived lesson snapshots.
type ArchiveRepository struct {
	db *gorm.DB
}

// NewArchiveRepository creates a new ArchiveRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ArchiveRepository: repository instance bound to db.
func NewArchiveRepository(db *gorm.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// WithTx returns a copy of the repository scoped to the given transaction.
func (r *ArchiveRepository) WithTx(tx *gorm.DB) *ArchiveRepository {
	return &ArchiveRepository{db: tx}
}

// Create inserts an archive snapshot.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - archived: snapshot to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *ArchiveRepository) Create(ctx context.Context, archived *domain.ArchivedLesson) error {
	return r.db.WithContext(ctx).Create(archived).Error
}

// GetByLessonID retrieves the archive snapshot for a lesson ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - lessonID: ID the lesson had while live.
// Returns:
//   - *domain.ArchivedLesson: snapshot if found.
//   - error: gorm.ErrRecordNotFound if missing, other non-nil on failure.
func (r *ArchiveRepository) GetByLessonID(ctx context.Context, lessonID string) (*domain.ArchivedLesson, error) {
	var archived domain.ArchivedLesson
	if err := r.db.WithContext(ctx).First(&archived, "lesson_id = ?", lessonID).Error; err != nil {
		return nil, err
	}
	return &archived, nil
}

// ExistsForLesson checks whether a lesson ID already has an archive snapshot.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - lessonID: lesson ID to check.
// Returns:
//   - bool: true if a snapshot exists.
//   - error: non-nil if the lookup fails.
func (r *ArchiveRepository) ExistsForLesson(ctx context.Context, lessonID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.ArchivedLesson{}).
		Where("lesson_id = ?", lessonID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByCanonicalIDs retrieves snapshots whose canonical pointer is within the
// given id set.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: candidate canonical ids.
// Returns:
//   - []domain.ArchivedLesson: matching snapshots.
//   - error: non-nil if the query fails.
func (r *ArchiveRepository) ListByCanonicalIDs(ctx context.Context, ids []string) ([]domain.ArchivedLesson, error) {
	if len(ids) == 0 {
		return []domain.ArchivedLesson{}, nil
	}
	var archived []domain.ArchivedLesson
	if err := r.db.WithContext(ctx).Where("canonical_id IN ?", ids).Find(&archived).Error; err != nil {
		return nil, fmt.Errorf("failed to list archives by canonical ids: %w", err)
	}
	return archived, nil
}

// ListByLessonIDs retrieves snapshots for any of the given lesson ids.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: lesson ids to look up.
// Returns:
//   - []domain.ArchivedLesson: matching snapshots.
//   - error: non-nil if the query fails.
func (r *ArchiveRepository) ListByLessonIDs(ctx context.Context, ids []string) ([]domain.ArchivedLesson, error) {
	if len(ids) == 0 {
		return []domain.ArchivedLesson{}, nil
	}
	var archived []domain.ArchivedLesson
	if err := r.db.WithContext(ctx).Where("lesson_id IN ?", ids).Find(&archived).Error; err != nil {
		return nil, fmt.Errorf("failed to list archives by lesson ids: %w", err)
	}
	return archived, nil
}

// RepointCanonical updates every snapshot whose canonical pointer is oldID to
// point at newID instead. Used when a record serving as a canonical target is
// itself archived, so no snapshot is ever left pointing at a dead id.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - oldID: canonical id being retired.
//   - newID: canonical id replacing it.
// Returns:
//   - int64: number of snapshots re-pointed.
//   - error: non-nil if the update fails.
func (r *ArchiveRepository) RepointCanonical(ctx context.Context, oldID, newID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.ArchivedLesson{}).
		Where("canonical_id = ?", oldID).
		Update("canonical_id", newID)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ResolveCanonical follows canonical pointers transitively until it reaches an
// id with no archive snapshot of its own. With re-pointing in place a chain is
// normally one hop; the walk is bounded so a cycle cannot hang the caller.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - lessonID: archived lesson id to resolve.
// Returns:
//   - string: the current canonical id for the archived lesson.
//   - error: gorm.ErrRecordNotFound if lessonID has no snapshot.
func (r *ArchiveRepository) ResolveCanonical(ctx context.Context, lessonID string) (string, error) {
	archived, err := r.GetByLessonID(ctx, lessonID)
	if err != nil {
		return "", err
	}
	canonical := archived.CanonicalID
	for hops := 0; hops < 16; hops++ {
		next, err := r.GetByLessonID(ctx, canonical)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return canonical, nil
		}
		if err != nil {
			return "", err
		}
		canonical = next.CanonicalID
	}
	return canonical, nil
}
