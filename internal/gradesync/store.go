package gradesync

import (
	"context"
	"errors"

	"github.com/edudesk/edudesk-cbt/internal/scoring"
)

var (
	ErrGradeNotFound = errors.New("grade not found")
	// ErrSyncConflict means another sync won the insert race for the same
	// submission. Callers read back the winner; it is not surfaced as failure.
	ErrSyncConflict = errors.New("grade already linked to submission")
)

type Store interface {
	GetGradeBySubmission(ctx context.Context, submissionID string) (Grade, error)
	// InsertGrade fails with ErrSyncConflict when a grade already references
	// the same submission (unique constraint on exam_submission_id).
	InsertGrade(ctx context.Context, g Grade) error
	UpdateGrade(ctx context.Context, g Grade) error

	// ListUnsyncedSubmissions returns finalized submissions with no linked
	// grade yet, optionally narrowed by filter.
	ListUnsyncedSubmissions(ctx context.Context, f BatchFilter) ([]scoring.Submission, error)
}
