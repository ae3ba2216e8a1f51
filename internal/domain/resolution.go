package domain

import (
	"sort"
	"strings"
	"time"
)

// ResolutionDecision is an append-only audit entry recording one archive
// action: which canonical was chosen, which ids were archived against it, and
// whether a metadata merge ran first. Rows are immutable history and keep the
// canonical id that was valid at decision time even if that record is later
// archived itself.
type ResolutionDecision struct {
	ID             string      `gorm:"type:text;primaryKey" json:"id"`
	CanonicalID    string      `gorm:"type:text;not null;index:idx_resolution_decisions_canonical" json:"canonical_id"`
	ArchivedIDs    StringArray `gorm:"type:text" json:"archived_ids"`
	MergePerformed bool        `gorm:"default:false" json:"merge_performed"`
	Actor          string      `gorm:"type:text;not null" json:"actor"`
	CreatedAt      time.Time   `json:"created_at"`
}

// TableName returns the database table name for ResolutionDecision.
func (ResolutionDecision) TableName() string {
	return "resolution_decisions"
}

// DismissalRecord is an append-only "these are not duplicates, keep all"
// decision over an exact lesson-id set. Matching is exact-set: a subset or
// superset of a dismissed group is not itself dismissed.
type DismissalRecord struct {
	ID              string      `gorm:"type:text;primaryKey" json:"id"`
	LessonIDs       StringArray `gorm:"type:text" json:"lesson_ids"`
	SetKey          string      `gorm:"type:text;not null;uniqueIndex:idx_dismissal_records_set_key" json:"set_key"`
	DetectionMethod string      `gorm:"type:text" json:"detection_method"`
	Notes           string      `gorm:"type:text" json:"notes"`
	Actor           string      `gorm:"type:text;not null" json:"actor"`
	CreatedAt       time.Time   `json:"created_at"`
}

// TableName returns the database table name for DismissalRecord.
func (DismissalRecord) TableName() string {
	return "dismissal_records"
}

// DismissalSetKey builds the canonical exact-set key for a group of lesson
// ids: deduplicated, sorted, joined. Two id sets produce the same key iff they
// contain exactly the same ids, regardless of order.
func DismissalSetKey(ids []string) string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Strings(unique)
	return strings.Join(unique, ",")
}
