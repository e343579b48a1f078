package catalog

// Question types understood by the session and scoring engines.
const (
	TypeMCQ         = "mcq"
	TypeTrueFalse   = "true_false"
	TypeShortAnswer = "short_answer"
)

type Exam struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ExamType string `json:"exam_type"` // registry label, e.g. "Mid-Term Test"

	SubjectID string `json:"subject_id"`
	ClassID   string `json:"class_id"`
	TermID    string `json:"term_id"`

	StartsAt    int64  `json:"starts_at"`
	EndsAt      *int64 `json:"ends_at,omitempty"` // nil: open-ended window
	DurationSec int    `json:"duration_sec"`

	MaxScore      float64 `json:"max_score"`
	QuestionCount *int    `json:"question_count,omitempty"` // nil: serve the full pool

	IsActive   bool `json:"is_active"`
	IsFinished bool `json:"is_finished"` // implies IsActive=false

	CreatedAt int64 `json:"created_at,omitempty"`
}

type Option struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	IsCorrect bool   `json:"is_correct,omitempty"`
}

type Question struct {
	ID        string   `json:"id"`
	SubjectID string   `json:"subject_id"`
	ClassID   string   `json:"class_id"`
	Type      string   `json:"type"` // mcq|true_false|short_answer
	Prompt    string   `json:"prompt"`
	Options   []Option `json:"options,omitempty"`
	// AnswerText is the reference answer for short_answer questions.
	AnswerText string `json:"answer_text,omitempty"`
}

type AssessmentType struct {
	ID           string  `json:"id"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	MaxScore     float64 `json:"max_score"`
	DisplayOrder int     `json:"display_order"`
	CBTEligible  bool    `json:"cbt_eligible"`
}

type GradeBand struct {
	Grade    string  `json:"grade"`
	MinScore float64 `json:"min_score"`
	MaxScore float64 `json:"max_score"`
	Remark   string  `json:"remark,omitempty"`
}

type GradeScale struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	IsDefault bool        `json:"is_default"`
	Bands     []GradeBand `json:"bands"`
}

// MergeRule folds several raw assessment codes into one displayed entry.
type MergeRule struct {
	ComponentCodes []string `json:"component_codes"`
	DisplayName    string   `json:"display_name"`
}

type ReportConfig struct {
	ID      string `json:"id"`
	TermID  string `json:"term_id"`
	ClassID string `json:"class_id,omitempty"` // empty: applies to the whole term

	MergeRules          []MergeRule `json:"merge_rules"`
	ActiveCodes         []string    `json:"active_codes"`
	GradeScaleID        string      `json:"grade_scale_id,omitempty"`
	NormalizationTarget int         `json:"normalization_target"`
}
