package repository

import (
	"context"
	"errors"

	"github.com/plantlab/lessonhub/internal/domain"
	"gorm.io/gorm"
)

// DismissalRepository handles the append-only dismissal log.
type DismissalRepository struct {
	db *gorm.DB
}

// NewDismissalRepository creates a new DismissalRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *DismissalRepository: repository instance bound to db.
func NewDismissalRepository(db *gorm.DB) *DismissalRepository {
	return &DismissalRepository{db: db}
}

// WithTx returns a copy of the repository scoped to the given transaction.
func (r *DismissalRepository) WithTx(tx *gorm.DB) *DismissalRepository {
	return &DismissalRepository{db: tx}
}

// Append records one dismissal. The unique set-key index makes a repeat
// dismissal of the identical id set a constraint violation the caller maps to
// an idempotent success or a conflict.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - record: dismissal row to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *DismissalRepository) Append(ctx context.Context, record *domain.DismissalRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// GetByExactSet retrieves the dismissal for exactly the given id set, if any.
// Matching uses the canonical sorted set key, so id order is irrelevant and
// subsets or supersets never match.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: lesson id set to look up.
// Returns:
//   - *domain.DismissalRecord: dismissal if present, nil if the set was never dismissed.
//   - error: non-nil if the lookup fails.
func (r *DismissalRepository) GetByExactSet(ctx context.Context, ids []string) (*domain.DismissalRecord, error) {
	var record domain.DismissalRecord
	err := r.db.WithContext(ctx).
		First(&record, "set_key = ?", domain.DismissalSetKey(ids)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
