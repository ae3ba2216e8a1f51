package repository

import (
	"context"
	"fmt"

	"github.com/plantlab/lessonhub/internal/domain"
	"gorm.io/gorm"
)

// ResolutionRepository handles the append-only resolution decision log.
type ResolutionRepository struct {
	db *gorm.DB
}

// NewResolutionRepository creates a new ResolutionRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ResolutionRepository: repository instance bound to db.
func NewResolutionRepository(db *gorm.DB) *ResolutionRepository {
	return &ResolutionRepository{db: db}
}

// WithTx returns a copy of the repository scoped to the given transaction.
func (r *ResolutionRepository) WithTx(tx *gorm.DB) *ResolutionRepository {
	return &ResolutionRepository{db: tx}
}

// Append records one resolution decision. Decisions are immutable history and
// are never updated or deleted afterwards.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - decision: decision row to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *ResolutionRepository) Append(ctx context.Context, decision *domain.ResolutionDecision) error {
	return r.db.WithContext(ctx).Create(decision).Error
}

// ListByCanonicalIDs retrieves decisions whose canonical id is within the
// given set, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: candidate canonical ids.
// Returns:
//   - []domain.ResolutionDecision: matching decisions.
//   - error: non-nil if the query fails.
func (r *ResolutionRepository) ListByCanonicalIDs(ctx context.Context, ids []string) ([]domain.ResolutionDecision, error) {
	if len(ids) == 0 {
		return []domain.ResolutionDecision{}, nil
	}
	var decisions []domain.ResolutionDecision
	if err := r.db.WithContext(ctx).
		Where("canonical_id IN ?", ids).
		Order("created_at DESC").
		Find(&decisions).Error; err != nil {
		return nil, fmt.Errorf("failed to list resolution decisions: %w", err)
	}
	return decisions, nil
}
