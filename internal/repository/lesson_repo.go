package repository

import (
	"context"
	"fmt"

	"github.com/plantlab/lessonhub/internal/domain"
	"gorm.io/gorm"
)

// LessonRepository handles live lesson data operations.
type LessonRepository struct {
	db *gorm.DB
}

// NewLessonRepository creates a new LessonRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *LessonRepository: repository instance bound to db.
func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// WithTx returns a copy of the repository scoped to the given transaction.
// Parameters:
//   - tx: transaction handle from gorm.DB.Transaction.
// Returns:
//   - *LessonRepository: repository whose statements run inside tx.
func (r *LessonRepository) WithTx(tx *gorm.DB) *LessonRepository {
	return &LessonRepository{db: tx}
}

// Create inserts a new lesson record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - lesson: lesson record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *LessonRepository) Create(ctx context.Context, lesson *domain.Lesson) error {
	return r.db.WithContext(ctx).Create(lesson).Error
}

// Update updates an existing lesson record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - lesson: lesson record with updated fields.
// Returns:
//   - error: non-nil if the update fails.
func (r *LessonRepository) Update(ctx context.Context, lesson *domain.Lesson) error {
	return r.db.WithContext(ctx).Save(lesson).Error
}

// GetByID retrieves a lesson by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: lesson ID.
// Returns:
//   - *domain.Lesson: lesson record if found.
//   - error: gorm.ErrRecordNotFound if missing, other non-nil on failure.
func (r *LessonRepository) GetByID(ctx context.Context, id string) (*domain.Lesson, error) {
	var lesson domain.Lesson
	if err := r.db.WithContext(ctx).First(&lesson, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lesson, nil
}

// GetByIDs retrieves lessons by a list of IDs.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: list of lesson IDs.
// Returns:
//   - []domain.Lesson: matching lesson records (missing ids are simply absent).
//   - error: non-nil if the query fails.
func (r *LessonRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Lesson, error) {
	if len(ids) == 0 {
		return []domain.Lesson{}, nil
	}
	var lessons []domain.Lesson
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&lessons).Error; err != nil {
		return nil, fmt.Errorf("failed to get lessons by IDs: %w", err)
	}
	return lessons, nil
}

// ListAll retrieves every live lesson, ordered by ID for deterministic scans.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []domain.Lesson: all live lesson records.
//   - error: non-nil if the query fails.
func (r *LessonRepository) ListAll(ctx context.Context) ([]domain.Lesson, error) {
	var lessons []domain.Lesson
	if err := r.db.WithContext(ctx).Order("id").Find(&lessons).Error; err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	return lessons, nil
}

// Exists checks whether a live lesson with the given ID exists.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: lesson ID.
// Returns:
//   - bool: true if a record exists.
//   - error: non-nil if the lookup fails.
func (r *LessonRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Lesson{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count returns the number of live lessons.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - int64: number of live lesson records.
//   - error: non-nil if the query fails.
func (r *LessonRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Lesson{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes a live lesson by ID and reports whether a row was deleted.
// The affected-row count lets callers detect a concurrent archive race: the
// loser observes zero rows and must treat the record as already gone.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: lesson ID to delete.
// Returns:
//   - int64: number of rows deleted (0 or 1).
//   - error: non-nil if the delete fails.
func (r *LessonRepository) Delete(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&domain.Lesson{}, "id = ?", id)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
