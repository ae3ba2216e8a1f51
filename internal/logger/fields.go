package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Standard Tracing Fields (Context level)
// These fields are propagated through the call chain
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldOperation is the dedup operation name (archive, dismiss, find_pairs, ...)
	FieldOperation = "operation"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldActor is the authenticated caller identity
	FieldActor = "actor"

	// FieldLessonID is a lesson record ID
	FieldLessonID = "lesson_id"

	// FieldCanonicalID is the canonical lesson ID of a resolution
	FieldCanonicalID = "canonical_id"
)

// ============================================
// Standard Metric Fields (Entry level)
// These fields are used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
