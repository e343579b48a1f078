package http

import (
	"errors"
	"net/http"

	"github.com/edudesk/edudesk-cbt/internal/catalog"
	"github.com/edudesk/edudesk-cbt/internal/report"
	"github.com/edudesk/edudesk-cbt/internal/scoring"
	"github.com/edudesk/edudesk-cbt/internal/session"
)

// httpError maps the engine error taxonomy onto status codes. Everything here
// is per-request; nothing is fatal to the process.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotEligible):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, session.ErrAlreadyCompleted),
		errors.Is(err, scoring.ErrSubmissionRejected):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, session.ErrNoQuestionsAvailable):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, session.ErrNoSession),
		errors.Is(err, catalog.ErrExamNotFound),
		errors.Is(err, scoring.ErrSubmissionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, report.ErrRenderTimeout):
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
