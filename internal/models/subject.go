package models

// AssessmentScheme represents how component scores combine into a percentage.
type AssessmentScheme string

const (
	// SchemeWeighted applies component weights to scores.
	SchemeWeighted AssessmentScheme = "WEIGHTED"
	// SchemeAverage computes the plain mean of component scores.
	SchemeAverage AssessmentScheme = "AVERAGE"
)

// AssessmentComponent is one scored part of a subject, e.g. midTerm.
type AssessmentComponent struct {
	Code   string  `json:"code"`
	Name   string  `json:"name,omitempty"`
	Weight float64 `json:"weight"`
}

// AssessmentInfo configures how a subject is scored.
type AssessmentInfo struct {
	Scheme     AssessmentScheme      `json:"scheme"`
	Components []AssessmentComponent `json:"components"`
}

// Subject represents an academic subject. Reference data, never mutated by the pipeline.
type Subject struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Code           string          `json:"code"`
	Core           bool            `json:"core"`
	Department     string          `json:"department,omitempty"`
	AssessmentInfo *AssessmentInfo `json:"assessmentInfo,omitempty"`
}
