package logger

// Standard field names for consistent structured logging across typeforge.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and correlation
	FieldRunID = "run_id"

	// Pipeline
	FieldStage  = "stage"
	FieldTarget = "target"

	// Metadata addressing
	FieldToken    = "token"
	FieldAssembly = "assembly"
	FieldTypeName = "type_name"

	// Counts and sizes
	FieldCount      = "count"
	FieldNodeCount  = "node_count"
	FieldEdgeCount  = "edge_count"
	FieldTotalCount = "total_count"

	// Timing
	FieldDurationMS = "duration_ms"

	// Files and paths
	FieldFile = "file"
	FieldDir  = "dir"

	// Errors
	FieldError = "error"
)
