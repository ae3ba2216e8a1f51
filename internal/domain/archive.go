package domain

import "time"

// ArchivedLesson is an immutable, complete snapshot of a Lesson taken at the
// moment it was archived as a duplicate. Every content field mirrors the live
// record field-for-field; set-valued fields are stored as empty collections
// rather than NULL so no archive data is ever missing. Rows are never updated
// after insert, with one exception: CanonicalID is re-pointed when the record
// it targets is itself archived later.
type ArchivedLesson struct {
	ArchiveID string `gorm:"type:text;primaryKey" json:"archive_id"`
	LessonID  string `gorm:"type:text;not null;uniqueIndex:idx_archived_lessons_lesson" json:"lesson_id"`

	// Snapshot of the live record.
	Title        string      `gorm:"type:text;not null" json:"title"`
	Summary      string      `gorm:"type:text" json:"summary"`
	Content      string      `gorm:"type:text" json:"content"`
	ContentHash  string      `gorm:"type:text" json:"content_hash"`
	Embedding    FloatVector `gorm:"type:text" json:"embedding,omitempty"`
	Themes       StringArray `gorm:"type:text" json:"themes"`
	GradeLevels  StringArray `gorm:"type:text" json:"grade_levels"`
	Ingredients  StringArray `gorm:"type:text" json:"ingredients"`
	Skills       StringArray `gorm:"type:text" json:"skills"`
	CulturalTags StringArray `gorm:"type:text" json:"cultural_tags"`
	Seasons      StringArray `gorm:"type:text" json:"seasons"`
	SourceURL    string      `gorm:"type:text" json:"source_url,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`

	// Archival metadata.
	CanonicalID string    `gorm:"type:text;not null;index:idx_archived_lessons_canonical" json:"canonical_id"`
	ArchivedBy  string    `gorm:"type:text;not null" json:"archived_by"`
	ArchivedAt  time.Time `gorm:"not null" json:"archived_at"`
	Reason      string    `gorm:"type:text" json:"reason"`
}

// TableName returns the database table name for ArchivedLesson.
func (ArchivedLesson) TableName() string {
	return "archived_lessons"
}

// SnapshotOf builds an archive snapshot from a live lesson. Set-valued fields
// are normalized to empty slices so the stored row never carries NULLs.
func SnapshotOf(lesson *Lesson, archiveID, canonicalID, archivedBy, reason string, archivedAt time.Time) *ArchivedLesson {
	return &ArchivedLesson{
		ArchiveID:    archiveID,
		LessonID:     lesson.ID,
		Title:        lesson.Title,
		Summary:      lesson.Summary,
		Content:      lesson.Content,
		ContentHash:  lesson.ContentHash,
		Embedding:    emptyIfNilVector(lesson.Embedding),
		Themes:       emptyIfNil(lesson.Themes),
		GradeLevels:  emptyIfNil(lesson.GradeLevels),
		Ingredients:  emptyIfNil(lesson.Ingredients),
		Skills:       emptyIfNil(lesson.Skills),
		CulturalTags: emptyIfNil(lesson.CulturalTags),
		Seasons:      emptyIfNil(lesson.Seasons),
		SourceURL:    lesson.SourceURL,
		CreatedAt:    lesson.CreatedAt,
		UpdatedAt:    lesson.UpdatedAt,
		CanonicalID:  canonicalID,
		ArchivedBy:   archivedBy,
		ArchivedAt:   archivedAt,
		Reason:       reason,
	}
}

func emptyIfNil(a StringArray) StringArray {
	if a == nil {
		return StringArray{}
	}
	return a
}

func emptyIfNilVector(v FloatVector) FloatVector {
	if v == nil {
		return FloatVector{}
	}
	return v
}
