package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/plantlab/lessonhub/internal/auth"
	"github.com/plantlab/lessonhub/internal/domain"
	"github.com/plantlab/lessonhub/internal/logger"
	"github.com/plantlab/lessonhub/internal/repository"
	"gorm.io/gorm"
)

// VectorIndexCleaner removes a lesson's point from the vector index after the
// lesson leaves the live set. Cleanup runs outside the database transaction
// and is best-effort: the index tolerates stale points because the finder
// drops hits whose lesson id is no longer live.
type VectorIndexCleaner interface {
	DeleteLesson(ctx context.Context, lessonID string) error
}

// ResolutionService owns every mutating operation of the duplicate review
// workflow plus the group resolution-state check. Each mutation runs as one
// database transaction: all writes commit or none do. The permission gate is
// enforced inside each method, before any read, because these operations are
// directly callable.
type ResolutionService struct {
	db         *gorm.DB
	lessons    *repository.LessonRepository
	archives   *repository.ArchiveRepository
	decisions  *repository.ResolutionRepository
	dismissals *repository.DismissalRepository
	index      VectorIndexCleaner
}

// NewResolutionService creates the resolution service. index may be nil when
// no vector index is configured.
func NewResolutionService(
	db *gorm.DB,
	lessons *repository.LessonRepository,
	archives *repository.ArchiveRepository,
	decisions *repository.ResolutionRepository,
	dismissals *repository.DismissalRepository,
	index VectorIndexCleaner,
) *ResolutionService {
	return &ResolutionService{
		db:         db,
		lessons:    lessons,
		archives:   archives,
		decisions:  decisions,
		dismissals: dismissals,
		index:      index,
	}
}

// ArchiveResult reports a committed archive operation.
type ArchiveResult struct {
	ArchivedID      string `json:"archived_id"`
	CanonicalID     string `json:"canonical_id"`
	ArchiveRecordID string `json:"archive_record_id"`
	MergePerformed  bool   `json:"merge_performed"`
}

// Archive resolves one duplicate: it snapshots the duplicate lesson into the
// archive, re-points any prior snapshot whose canonical target is the
// duplicate, and deletes the live record, in that order, delete always last,
// inside a single transaction. withMerge additionally unions the duplicate's
// classification metadata into the canonical before archiving.
//
// The ordering is a hard invariant, not a style choice: the snapshot must be
// durably staged before anything is removed, and references must be cleaned
// before the row they point at disappears.
func (s *ResolutionService) Archive(ctx context.Context, caller auth.Caller, duplicateID, canonicalID string, withMerge bool) (*ArchiveResult, error) {
	if !auth.CanReviewDuplicates(caller) {
		logger.CtxWarn(ctx, "Archive refused: actor=%s lacks review permission", caller.Actor())
		return nil, permissionDenied("caller is not allowed to resolve duplicates")
	}
	if duplicateID == "" || canonicalID == "" {
		return nil, invalidArgument("duplicate and canonical ids are required")
	}
	if duplicateID == canonicalID {
		return nil, invalidArgument("a lesson cannot be archived as a duplicate of itself")
	}

	result := &ArchiveResult{
		ArchivedID:      duplicateID,
		CanonicalID:     canonicalID,
		ArchiveRecordID: uuid.New().String(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lessons := s.lessons.WithTx(tx)
		archives := s.archives.WithTx(tx)
		decisions := s.decisions.WithTx(tx)

		// Re-validate both preconditions against the store; finder output may
		// be stale by the time an administrator acts on it.
		duplicate, err := lessons.GetByID(ctx, duplicateID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.missingLessonError(ctx, archives, duplicateID, "duplicate")
		}
		if err != nil {
			return storageFailure("failed to read duplicate lesson", err)
		}

		exists, err := lessons.Exists(ctx, canonicalID)
		if err != nil {
			return storageFailure("failed to read canonical lesson", err)
		}
		if !exists {
			return s.missingLessonError(ctx, archives, canonicalID, "canonical")
		}

		if withMerge {
			merged, err := mergeInto(ctx, lessons, canonicalID, []string{duplicateID})
			if err != nil {
				return storageFailure("metadata merge failed", err)
			}
			result.MergePerformed = merged
		}

		now := time.Now().UTC()
		snapshot := domain.SnapshotOf(duplicate, result.ArchiveRecordID, canonicalID,
			caller.Actor(), fmt.Sprintf("duplicate of %s", canonicalID), now)
		if err := archives.Create(ctx, snapshot); err != nil {
			return storageFailure("failed to write archive snapshot", err)
		}

		// Earlier snapshots may name the duplicate as their canonical target.
		// Re-point them at the new canonical before the row disappears.
		repointed, err := archives.RepointCanonical(ctx, duplicateID, canonicalID)
		if err != nil {
			return storageFailure("failed to re-point dependent archives", err)
		}
		if repointed > 0 {
			logger.CtxInfo(ctx, "Re-pointed dependent archives: from=%s, to=%s, count=%d",
				duplicateID, canonicalID, repointed)
		}

		// Delete last. If anything above failed, the live record is untouched.
		deleted, err := lessons.Delete(ctx, duplicateID)
		if err != nil {
			return storageFailure("failed to delete duplicate lesson", err)
		}
		if deleted == 0 {
			// A concurrent archive won the race; abort so this transaction's
			// snapshot is not committed alongside the winner's.
			return notFound(fmt.Sprintf("lesson %s was already removed by a concurrent operation", duplicateID))
		}

		return decisionsAppend(ctx, decisions, &domain.ResolutionDecision{
			ID:             uuid.New().String(),
			CanonicalID:    canonicalID,
			ArchivedIDs:    domain.StringArray{duplicateID},
			MergePerformed: result.MergePerformed,
			Actor:          caller.Actor(),
		})
	})
	if err != nil {
		return nil, s.operationError(ctx, "archive", err,
			logger.Fields{logger.FieldLessonID: duplicateID, logger.FieldCanonicalID: canonicalID, logger.FieldActor: caller.Actor()})
	}

	logger.With(logger.Fields{
		logger.FieldLessonID:    duplicateID,
		logger.FieldCanonicalID: canonicalID,
		logger.FieldActor:       caller.Actor(),
	}).Info(ctx, "Archived duplicate lesson: archive_record=%s, merge=%v", result.ArchiveRecordID, result.MergePerformed)

	s.cleanupIndex(ctx, duplicateID)

	return result, nil
}

// MergeInto runs the metadata merge as a standalone gated operation, in its
// own transaction, without archiving anything.
func (s *ResolutionService) MergeInto(ctx context.Context, caller auth.Caller, canonicalID string, duplicateIDs []string) (bool, error) {
	if !auth.CanReviewDuplicates(caller) {
		return false, permissionDenied("caller is not allowed to merge lesson metadata")
	}
	if canonicalID == "" || len(duplicateIDs) == 0 {
		return false, invalidArgument("canonical id and at least one duplicate id are required")
	}
	for _, id := range duplicateIDs {
		if id == canonicalID {
			return false, invalidArgument("a lesson cannot be merged into itself")
		}
	}

	var merged bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lessons := s.lessons.WithTx(tx)

		found, err := lessons.GetByIDs(ctx, duplicateIDs)
		if err != nil {
			return storageFailure("failed to read duplicate lessons", err)
		}
		if len(found) != len(uniqueIDs(duplicateIDs)) {
			return notFound("one or more duplicate lessons do not exist")
		}

		merged, err = mergeInto(ctx, lessons, canonicalID, duplicateIDs)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(fmt.Sprintf("canonical lesson %s does not exist", canonicalID))
		}
		if err != nil {
			return storageFailure("metadata merge failed", err)
		}
		return nil
	})
	if err != nil {
		return false, s.operationError(ctx, "merge", err,
			logger.Fields{logger.FieldCanonicalID: canonicalID, logger.FieldActor: caller.Actor()})
	}
	return merged, nil
}

// Dismiss records a "these are not duplicates, keep all" decision over the
// exact id set. No lesson record is mutated.
func (s *ResolutionService) Dismiss(ctx context.Context, caller auth.Caller, ids []string, detectionMethod, note string) (*domain.DismissalRecord, error) {
	if !auth.CanReviewDuplicates(caller) {
		logger.CtxWarn(ctx, "Dismiss refused: actor=%s lacks review permission", caller.Actor())
		return nil, permissionDenied("caller is not allowed to dismiss duplicate groups")
	}

	unique := uniqueIDs(ids)
	if len(unique) < 2 {
		return nil, invalidArgument("a dismissal needs at least two distinct lesson ids")
	}
	for _, id := range unique {
		if id == "" {
			return nil, invalidArgument("lesson ids must be non-empty")
		}
	}

	record := &domain.DismissalRecord{
		ID:              uuid.New().String(),
		LessonIDs:       unique,
		SetKey:          domain.DismissalSetKey(unique),
		DetectionMethod: detectionMethod,
		Notes:           note,
		Actor:           caller.Actor(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lessons := s.lessons.WithTx(tx)
		dismissals := s.dismissals.WithTx(tx)

		found, err := lessons.GetByIDs(ctx, unique)
		if err != nil {
			return storageFailure("failed to read lessons for dismissal", err)
		}
		if len(found) != len(unique) {
			return notFound("one or more lessons in the group do not exist")
		}

		existing, err := dismissals.GetByExactSet(ctx, unique)
		if err != nil {
			return storageFailure("failed to check prior dismissals", err)
		}
		if existing != nil {
			return conflict("this exact group was already dismissed",
				"no action needed; the decision is already recorded")
		}

		if err := dismissals.Append(ctx, record); err != nil {
			return storageFailure("failed to record dismissal", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.operationError(ctx, "dismiss", err,
			logger.Fields{logger.FieldActor: caller.Actor(), logger.FieldCount: len(unique)})
	}

	logger.With(logger.Fields{
		logger.FieldActor: caller.Actor(),
		logger.FieldCount: len(unique),
	}).Info(ctx, "Dismissed duplicate group: method=%s", detectionMethod)

	return record, nil
}

// ArchiveLookup reports where an archived lesson's content lives now: the
// stored snapshot plus the id reached by following canonical pointers
// transitively. Re-pointing keeps the stored pointer current for new writes;
// the walk covers rows archived before their canonical target was.
type ArchiveLookup struct {
	Snapshot           *domain.ArchivedLesson `json:"snapshot"`
	CurrentCanonicalID string                 `json:"current_canonical_id"`
}

// LookupArchive retrieves the archive record for a lesson id together with
// its transitively resolved canonical. Read-only; returns not_found when the
// lesson was never archived.
func (s *ResolutionService) LookupArchive(ctx context.Context, lessonID string) (*ArchiveLookup, error) {
	if lessonID == "" {
		return nil, invalidArgument("a lesson id is required")
	}

	snapshot, err := s.archives.GetByLessonID(ctx, lessonID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(fmt.Sprintf("lesson %s has no archive record", lessonID))
	}
	if err != nil {
		return nil, storageFailure("failed to read archive record", err)
	}

	canonical, err := s.archives.ResolveCanonical(ctx, lessonID)
	if err != nil {
		return nil, storageFailure("failed to resolve canonical reference", err)
	}

	return &ArchiveLookup{Snapshot: snapshot, CurrentCanonicalID: canonical}, nil
}

// CheckGroupState reports whether the given id set was already handled.
// "Archived" means a prior decision or snapshot names a canonical inside the
// set, or a member of the set was itself archived. "Dismissed" requires exact
// set equality with a stored dismissal. Reads with no matches return
// not_resolved, never an error.
func (s *ResolutionService) CheckGroupState(ctx context.Context, ids []string) (domain.GroupResolution, error) {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return domain.GroupResolution{State: domain.StateNotResolved}, nil
	}

	var resolvedAt time.Time
	archived := false

	decisions, err := s.decisions.ListByCanonicalIDs(ctx, unique)
	if err != nil {
		return domain.GroupResolution{}, storageFailure("failed to check resolution decisions", err)
	}
	for _, d := range decisions {
		archived = true
		if d.CreatedAt.After(resolvedAt) {
			resolvedAt = d.CreatedAt
		}
	}

	snapshots, err := s.archives.ListByCanonicalIDs(ctx, unique)
	if err != nil {
		return domain.GroupResolution{}, storageFailure("failed to check archives by canonical", err)
	}
	memberSnapshots, err := s.archives.ListByLessonIDs(ctx, unique)
	if err != nil {
		return domain.GroupResolution{}, storageFailure("failed to check archives by member", err)
	}
	for _, a := range append(snapshots, memberSnapshots...) {
		archived = true
		if a.ArchivedAt.After(resolvedAt) {
			resolvedAt = a.ArchivedAt
		}
	}

	if archived {
		at := resolvedAt
		return domain.GroupResolution{State: domain.StateArchived, ResolvedAt: &at}, nil
	}

	dismissal, err := s.dismissals.GetByExactSet(ctx, unique)
	if err != nil {
		return domain.GroupResolution{}, storageFailure("failed to check dismissals", err)
	}
	if dismissal != nil {
		at := dismissal.CreatedAt
		return domain.GroupResolution{State: domain.StateDismissed, ResolvedAt: &at}, nil
	}

	return domain.GroupResolution{State: domain.StateNotResolved}, nil
}

// FilterUnresolved drops groups a prior decision already handled, so resolved
// groups do not resurface in review queues.
func (s *ResolutionService) FilterUnresolved(ctx context.Context, groups []domain.DuplicateGroup) ([]domain.DuplicateGroup, error) {
	unresolved := make([]domain.DuplicateGroup, 0, len(groups))
	for _, group := range groups {
		state, err := s.CheckGroupState(ctx, group.LessonIDs)
		if err != nil {
			return nil, err
		}
		if !state.Resolved() {
			unresolved = append(unresolved, group)
		}
	}
	return unresolved, nil
}

// missingLessonError distinguishes "never existed" from "already archived" for
// a missing live record.
func (s *ResolutionService) missingLessonError(ctx context.Context, archives *repository.ArchiveRepository, id, role string) error {
	wasArchived, err := archives.ExistsForLesson(ctx, id)
	if err != nil {
		return storageFailure("failed to check archive state", err)
	}
	if wasArchived {
		return conflict(fmt.Sprintf("%s lesson %s was already archived", role, id),
			"re-run the duplicate scan; this group is already resolved")
	}
	return notFound(fmt.Sprintf("%s lesson %s does not exist", role, id))
}

// operationError normalizes a transaction failure to a categorized error and
// logs it with the operation name and inputs for audit.
func (s *ResolutionService) operationError(ctx context.Context, operation string, err error, fields logger.Fields) error {
	var opErr *Error
	if !errors.As(err, &opErr) {
		opErr = storageFailure(fmt.Sprintf("%s transaction aborted", operation), err)
	}
	logger.With(fields).Error(ctx, "Operation failed: operation=%s, category=%s, detail=%v",
		operation, opErr.Category, err)
	return opErr
}

// cleanupIndex removes the archived lesson's vector point. Failures are logged
// and swallowed: the finder already ignores index hits for ids that are no
// longer live, and a periodic index rebuild reconciles stragglers.
func (s *ResolutionService) cleanupIndex(ctx context.Context, lessonID string) {
	if s.index == nil {
		return
	}
	if err := s.index.DeleteLesson(ctx, lessonID); err != nil {
		logger.CtxWarn(ctx, "Vector index cleanup failed: lesson=%s, error=%v", lessonID, err)
	}
}

func decisionsAppend(ctx context.Context, decisions *repository.ResolutionRepository, decision *domain.ResolutionDecision) error {
	if err := decisions.Append(ctx, decision); err != nil {
		return storageFailure("failed to append resolution decision", err)
	}
	return nil
}

// uniqueIDs deduplicates an id list preserving first-seen order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
