package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringArray is a custom type for storing string sets as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// FloatVector stores a fixed-dimension embedding vector as JSON text.
type FloatVector []float32

// Value implements the driver.Valuer interface for database serialization.
func (v FloatVector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (v *FloatVector) Scan(value interface{}) error {
	if value == nil {
		*v = FloatVector{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan FloatVector")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, v)
}

// Lesson represents a live lesson record in the content store.
// Set-valued classification fields are stored as JSON arrays and are the
// subject of the metadata merge performed during duplicate resolution.
type Lesson struct {
	ID           string      `gorm:"type:text;primaryKey" json:"id"`
	Title        string      `gorm:"type:text;not null;index:idx_lessons_title" json:"title"`
	Summary      string      `gorm:"type:text" json:"summary"`
	Content      string      `gorm:"type:text" json:"content"`
	ContentHash  string      `gorm:"type:text;index:idx_lessons_content_hash" json:"content_hash"`
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
}

// TableName returns the database table name for Lesson.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Lesson) TableName() string {
	return "lessons"
}

// HasEmbedding reports whether the lesson carries a usable embedding vector.
func (l *Lesson) HasEmbedding() bool {
	return len(l.Embedding) > 0
}
