package domain

// CoverageStatus summarizes how much required video content an exercise has.
type CoverageStatus string

const (
	CoverageComplete CoverageStatus = "complete"
	CoveragePartial  CoverageStatus = "partial"
	CoverageNone     CoverageStatus = "none"
)

// ExerciseCoverage is the per-exercise row of a coverage report.
type ExerciseCoverage struct {
	ExerciseID string         `json:"exercise_id"`
	Status     CoverageStatus `json:"status"`
	Present    []VideoKind    `json:"present"`
	Missing    []VideoKind    `json:"missing"`
	ClipCount  int            `json:"clip_count"`
}

// CoverageReport is the diagnostic view over the whole exercise library.
type CoverageReport struct {
	Total     int                `json:"total"`
	Complete  int                `json:"complete"`
	Partial   int                `json:"partial"`
	None      int                `json:"none"`
	Exercises []ExerciseCoverage `json:"exercises"`
}
