package session

import (
	"context"
	"fmt"

	"github.com/edudesk/edudesk-cbt/internal/catalog"
)

// checkEligibility gates every session operation for regular students:
// enrollment (with auto-enroll when the subject is offered to the student's
// class), exam time window, and the already-completed guard. Exempt accounts
// bypass the whole gate.
func (e *Engine) checkEligibility(ctx context.Context, ex catalog.Exam, st Student) error {
	if st.Exempt() {
		return nil
	}

	enrolled, err := e.roster.IsEnrolled(ctx, st.ID, ex.SubjectID, ex.ClassID)
	if err != nil {
		return err
	}
	if !enrolled {
		offered, err := e.roster.SubjectOfferedToClass(ctx, st.ClassID, ex.SubjectID)
		if err != nil {
			return err
		}
		if !offered {
			return fmt.Errorf("%w: not enrolled in subject %s", ErrNotEligible, ex.SubjectID)
		}
		if err := e.roster.Enroll(ctx, st.ID, ex.SubjectID, ex.ClassID); err != nil {
			return err
		}
	}

	now := e.now().Unix()
	if ex.IsFinished || !ex.IsActive {
		return fmt.Errorf("%w: exam is closed", ErrNotEligible)
	}
	if now < ex.StartsAt {
		return fmt.Errorf("%w: exam has not started", ErrNotEligible)
	}
	if ex.EndsAt != nil && now > *ex.EndsAt {
		return fmt.Errorf("%w: exam window elapsed", ErrNotEligible)
	}

	done, err := e.completions.HasCompleted(ctx, ex.ID, st.ID)
	if err != nil {
		return err
	}
	if done {
		return ErrAlreadyCompleted
	}
	return nil
}
