package service

import (
	"context"

	"github.com/plantlab/lessonhub/internal/domain"
	"github.com/plantlab/lessonhub/internal/logger"
	"github.com/plantlab/lessonhub/internal/repository"
)

// MergeFields applies the metadata merge rules to a canonical lesson given its
// duplicates, in memory: every set-valued classification field becomes the
// deduplicated union of canonical and duplicate values, and single-valued
// fields are backfilled from the first duplicate with a non-empty value only
// when the canonical's own value is empty. Title and summary are curated
// fields and are never touched. Returns true if anything changed.
func MergeFields(canonical *domain.Lesson, duplicates []domain.Lesson) bool {
	changed := false

	setFields := []struct {
		target *domain.StringArray
		pick   func(*domain.Lesson) domain.StringArray
	}{
		{&canonical.Themes, func(l *domain.Lesson) domain.StringArray { return l.Themes }},
		{&canonical.GradeLevels, func(l *domain.Lesson) domain.StringArray { return l.GradeLevels }},
		{&canonical.Ingredients, func(l *domain.Lesson) domain.StringArray { return l.Ingredients }},
		{&canonical.Skills, func(l *domain.Lesson) domain.StringArray { return l.Skills }},
		{&canonical.CulturalTags, func(l *domain.Lesson) domain.StringArray { return l.CulturalTags }},
		{&canonical.Seasons, func(l *domain.Lesson) domain.StringArray { return l.Seasons }},
	}

	for _, field := range setFields {
		merged := *field.target
		for i := range duplicates {
			merged = unionValues(merged, field.pick(&duplicates[i]))
		}
		if len(merged) != len(*field.target) {
			*field.target = merged
			changed = true
		}
	}

	if canonical.SourceURL == "" {
		for i := range duplicates {
			if duplicates[i].SourceURL != "" {
				canonical.SourceURL = duplicates[i].SourceURL
				changed = true
				break
			}
		}
	}

	return changed
}

// unionValues appends the additions not already present, preserving the
// canonical's existing order and the encounter order of new values.
func unionValues(current, additions domain.StringArray) domain.StringArray {
	seen := make(map[string]struct{}, len(current))
	for _, v := range current {
		seen[v] = struct{}{}
	}
	merged := current
	for _, v := range additions {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		merged = append(merged, v)
	}
	return merged
}

// mergeInto loads the canonical and duplicates through the given (possibly
// transaction-scoped) repository, applies the merge rules, and writes the
// canonical back when anything changed. Saving bumps the canonical's
// last-modified timestamp.
func mergeInto(ctx context.Context, lessons *repository.LessonRepository, canonicalID string, duplicateIDs []string) (bool, error) {
	canonical, err := lessons.GetByID(ctx, canonicalID)
	if err != nil {
		return false, err
	}

	duplicates, err := lessons.GetByIDs(ctx, duplicateIDs)
	if err != nil {
		return false, err
	}

	if !MergeFields(canonical, duplicates) {
		logger.CtxDebug(ctx, "Metadata merge made no changes: canonical=%s", canonicalID)
		return false, nil
	}

	if err := lessons.Update(ctx, canonical); err != nil {
		return false, err
	}

	logger.CtxInfo(ctx, "Merged metadata into canonical: canonical=%s, duplicates=%d", canonicalID, len(duplicateIDs))
	return true, nil
}
