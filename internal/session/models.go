package session

type AccountKind string

const (
	KindRegular AccountKind = "regular"
	// KindExempt marks demo accounts: they run the full exam flow but never
	// produce graded records, and skip every eligibility check.
	KindExempt AccountKind = "exempt"
)

type Student struct {
	ID      string      `json:"id"`
	ClassID string      `json:"class_id"`
	Kind    AccountKind `json:"account_kind"`
}

func (s Student) Exempt() bool { return s.Kind == KindExempt }

// Session is the one mutable row per (student, exam) while a test is in
// progress. QuestionOrder pins the randomized order chosen on first assembly
// so resumes replay it instead of re-rolling.
type Session struct {
	ID        string `json:"id"`
	ExamID    string `json:"exam_id"`
	StudentID string `json:"student_id"`

	CurrentIndex     int               `json:"current_index"`
	TimeRemainingSec int               `json:"time_remaining_sec"`
	Answers          map[string]string `json:"answers"` // questionID -> optionID or free text
	QuestionOrder    []string          `json:"question_order"`

	IsActive    bool `json:"is_active"`
	IsCompleted bool `json:"is_completed"`

	StartedAt      int64  `json:"started_at"`
	LastActivityAt int64  `json:"last_activity_at"`
	CompletedAt    *int64 `json:"completed_at,omitempty"`
}
