package scoring

import (
	"strings"

	"github.com/edudesk/edudesk-cbt/internal/catalog"
)

// Strategy decides whether one submitted answer is correct for one question.
type Strategy interface {
	Correct(q catalog.Question, answer string) bool
}

// Checker routes by question type to the correct Strategy. Unknown types are
// never correct.
type Checker struct {
	strategies map[string]Strategy
}

func NewChecker() *Checker {
	return &Checker{
		strategies: map[string]Strategy{
			catalog.TypeMCQ:         optionStrategy{},
			catalog.TypeTrueFalse:   optionStrategy{},
			catalog.TypeShortAnswer: shortAnswerStrategy{},
		},
	}
}

func (c *Checker) Correct(q catalog.Question, answer string) bool {
	s, ok := c.strategies[q.Type]
	if !ok {
		return false
	}
	return s.Correct(q, answer)
}

// optionStrategy: the submitted option id must carry the is_correct flag.
type optionStrategy struct{}

func (optionStrategy) Correct(q catalog.Question, answer string) bool {
	for _, o := range q.Options {
		if o.ID == answer {
			return o.IsCorrect
		}
	}
	return false
}

// shortAnswerStrategy: case-insensitive, whitespace-trimmed equality against
// the reference answer.
type shortAnswerStrategy struct{}

func (shortAnswerStrategy) Correct(q catalog.Question, answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.AnswerText))
}
