package scoring

// Submission is the immutable finalized record for one (student, exam).
// Subject, class and term are copied from the exam so later catalog edits do
// not rewrite history.
type Submission struct {
	ID        string `json:"id"`
	ExamID    string `json:"exam_id"`
	StudentID string `json:"student_id"`

	SubjectID string `json:"subject_id"`
	ClassID   string `json:"class_id"`
	TermID    string `json:"term_id"`
	ExamType  string `json:"exam_type"`

	Answers map[string]string `json:"answers"`

	CorrectAnswers  int     `json:"correct_answers"`
	TotalQuestions  int     `json:"total_questions"`
	ScorePercentage float64 `json:"score_percentage"`
	RawScore        float64 `json:"raw_score"`
	MaxScore        float64 `json:"max_score"`
	LetterGrade     string  `json:"letter_grade"`

	StartedAt   *int64 `json:"started_at,omitempty"`
	SubmittedAt int64  `json:"submitted_at"`
}

// Result is what the student gets back from submit, visibility permitting.
type Result struct {
	CorrectAnswers  int     `json:"correct_answers"`
	TotalQuestions  int     `json:"total_questions"`
	ScorePercentage float64 `json:"score_percentage"`
	RawScore        float64 `json:"raw_score"`
	MaxScore        float64 `json:"max_score"`
	LetterGrade     string  `json:"letter_grade"`
}
