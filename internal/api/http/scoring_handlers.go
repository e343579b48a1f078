package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edudesk/edudesk-cbt/internal/scoring"
	"github.com/edudesk/edudesk-cbt/internal/session"
)

// POST /exams/{examID}/submit
// showResults is the school-wide visibility toggle, passed in explicitly at
// wiring time rather than read from ambient state.
func SubmitHandler(eng *scoring.Engine, roster session.RosterStore, showResults bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := studentFromRequest(r, roster)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		var req struct {
			Answers map[string]string `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		res, visible, err := eng.Submit(r.Context(), st, chi.URLParam(r, "examID"), req.Answers,
			scoring.SubmitOptions{ShowResults: showResults})
		if err != nil {
			httpError(w, err)
			return
		}
		if !visible {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"submitted": true,
				"message":   "results withheld",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(res)
	}
}
