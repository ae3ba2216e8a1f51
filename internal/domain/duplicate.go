package domain

import "time"

// DetectionMethod identifies how a duplicate pair was found.
// Values include DetectionSameTitle, DetectionEmbedding, and DetectionBoth.
type DetectionMethod string

const (
	DetectionSameTitle DetectionMethod = "same_title"
	DetectionEmbedding DetectionMethod = "embedding"
	DetectionBoth      DetectionMethod = "both"
)

// Priority orders detection methods for result sorting: both > same_title > embedding.
func (m DetectionMethod) Priority() int {
	switch m {
	case DetectionBoth:
		return 2
	case DetectionSameTitle:
		return 1
	default:
		return 0
	}
}

// DuplicatePair is one candidate duplicate pair emitted by the finder.
// ID1 is always the lexicographically smaller id so symmetric pairs dedupe.
// Similarity is only meaningful when the method includes the embedding leg.
type DuplicatePair struct {
	ID1             string          `json:"id1"`
	ID2             string          `json:"id2"`
	Title1          string          `json:"title1"`
	Title2          string          `json:"title2"`
	DetectionMethod DetectionMethod `json:"detection_method"`
	Similarity      float32         `json:"similarity,omitempty"`
}

// DuplicateGroup is a connected component over the pair graph. Groups are
// derived in memory at query time and never persisted.
type DuplicateGroup struct {
	LessonIDs []string        `json:"lesson_ids"`
	Pairs     []DuplicatePair `json:"pairs"`
}

// ResolutionState reports whether a duplicate group was already handled.
// Values include StateNotResolved, StateArchived, and StateDismissed.
type ResolutionState string

const (
	StateNotResolved ResolutionState = "not_resolved"
	StateArchived    ResolutionState = "archived"
	StateDismissed   ResolutionState = "dismissed"
)

// GroupResolution is the result of a resolution-state check over an id set.
type GroupResolution struct {
	State      ResolutionState `json:"state"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}

// Resolved reports whether the group reached a terminal state.
func (g GroupResolution) Resolved() bool {
	return g.State != StateNotResolved
}
