package report

// AssessmentEntry is one visible line under a subject: a raw registry code or
// a synthetic merged entry produced by a merge rule.
type AssessmentEntry struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
	IsMerged bool    `json:"is_merged,omitempty"`
}

type SubjectReport struct {
	SubjectID string            `json:"subject_id"`
	Entries   []AssessmentEntry `json:"entries"`
	// Total/Max are normalized to the configured target (default 100),
	// not the natural sum of entry max scores.
	Total float64 `json:"total"`
	Max   float64 `json:"max"`
}

type StudentReport struct {
	StudentID string `json:"student_id"`
	TermID    string `json:"term_id"`
	ClassID   string `json:"class_id"`

	Subjects []SubjectReport `json:"subjects"`

	OverallTotal float64 `json:"overall_total"`
	OverallMax   float64 `json:"overall_max"`
	OverallGrade string  `json:"overall_grade"`

	Position  int `json:"position,omitempty"` // 1-based class rank
	ClassSize int `json:"class_size,omitempty"`
}

type RankEntry struct {
	StudentID string  `json:"student_id"`
	Total     float64 `json:"total"`
	Rank      int     `json:"rank"` // distinct consecutive, no tie-sharing
}
