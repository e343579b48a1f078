package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/edudesk/edudesk-cbt/internal/auth/middleware"
	"github.com/edudesk/edudesk-cbt/internal/session"
)

func studentFromRequest(r *http.Request, roster session.RosterStore) (session.Student, error) {
	sub := authmw.SubjectFromContext(r.Context())
	return roster.GetStudent(r.Context(), sub)
}

// GET /exams/{examID}/questions
func QuestionSetHandler(eng *session.Engine, roster session.RosterStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := studentFromRequest(r, roster)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		qs, err := eng.AssembleQuestionSet(r.Context(), chi.URLParam(r, "examID"), st)
		if err != nil {
			httpError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(qs)
	}
}

// POST /exams/{examID}/session
func SaveSessionHandler(eng *session.Engine, roster session.RosterStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := studentFromRequest(r, roster)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		var req struct {
			CurrentIndex     int               `json:"current_index"`
			TimeRemainingSec int               `json:"time_remaining_sec"`
			Answers          map[string]string `json:"answers"`
			QuestionOrder    []string          `json:"question_order"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		sess, err := eng.SaveProgress(r.Context(), st, chi.URLParam(r, "examID"),
			req.CurrentIndex, req.TimeRemainingSec, req.Answers, req.QuestionOrder)
		if err != nil {
			httpError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(sess)
	}
}

// GET /exams/{examID}/session
func RestoreSessionHandler(eng *session.Engine, roster session.RosterStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := studentFromRequest(r, roster)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		sess, err := eng.RestoreProgress(r.Context(), st, chi.URLParam(r, "examID"))
		if err != nil {
			httpError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(sess)
	}
}
