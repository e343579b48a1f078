package scoring

import "github.com/edudesk/edudesk-cbt/internal/catalog"

// TotalQuestionsPolicy decides the scoring denominator for an exam.
type TotalQuestionsPolicy func(ex catalog.Exam, poolSize int) int

// ConfiguredCapTotal uses the exam's configured question_count when set, else
// the full pool size. Note this can differ from the number of questions a
// student was actually shown; keeping the rule in one place lets it be swapped
// without touching the rest of the pipeline.
func ConfiguredCapTotal(ex catalog.Exam, poolSize int) int {
	if ex.QuestionCount != nil && *ex.QuestionCount > 0 {
		return *ex.QuestionCount
	}
	return poolSize
}
