package http

import (
	"encoding/json"
	"net/http"

	"github.com/edudesk/edudesk-cbt/internal/gradesync"
)

// POST /grades/sync  { "subject_id"?, "class_id"?, "term_id"? }
// Invoked opportunistically by staff views and report generation; redundant
// calls are harmless.
func SyncGradesHandler(syncer *gradesync.Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f gradesync.BatchFilter
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
				http.Error(w, "bad json", http.StatusBadRequest)
				return
			}
		}
		res, err := syncer.SyncBatch(r.Context(), f)
		if err != nil {
			httpError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(res)
	}
}
