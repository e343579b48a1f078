package report

import (
	"context"

	"github.com/edudesk/edudesk-cbt/internal/gradesync"
)

// Store is the read side the aggregation engine works from: the grade ledger
// plus enough roster to know who and what belongs on a report.
type Store interface {
	GradesForStudent(ctx context.Context, studentID, termID, classID string) ([]gradesync.Grade, error)
	GradesForClass(ctx context.Context, classID, termID string) ([]gradesync.Grade, error)
	SubjectsForStudent(ctx context.Context, studentID, classID string) ([]string, error)
	StudentsInClass(ctx context.Context, classID string) ([]string, error)
}
