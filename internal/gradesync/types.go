package gradesync

// Grade is one canonical ledger entry, keyed by (student, subject, class,
// term, assessment). CBT entries carry a back-reference to the submission
// they were projected from; staff-entered grades leave it empty.
type Grade struct {
	ID string `json:"id"`

	StudentID string `json:"student_id"`
	SubjectID string `json:"subject_id"`
	ClassID   string `json:"class_id"`
	TermID    string `json:"term_id"`

	AssessmentName string `json:"assessment_name"`
	AssessmentCode string `json:"assessment_code"`

	Score       float64 `json:"score"`
	MaxScore    float64 `json:"max_score"`
	Percentage  float64 `json:"percentage"`
	LetterGrade string  `json:"letter_grade"`

	IsPublished bool `json:"is_published"`
	IsFromCBT   bool `json:"is_from_cbt"`

	ExamSubmissionID string `json:"exam_submission_id,omitempty"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// BatchFilter narrows a batch sync to a subject/class/term scope. Zero values
// mean "any".
type BatchFilter struct {
	SubjectID string `json:"subject_id,omitempty"`
	ClassID   string `json:"class_id,omitempty"`
	TermID    string `json:"term_id,omitempty"`
}

type BatchResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errored int `json:"errors"`
}
