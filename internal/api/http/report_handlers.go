package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/edudesk/edudesk-cbt/internal/auth/middleware"
	"github.com/edudesk/edudesk-cbt/internal/gradesync"
	"github.com/edudesk/edudesk-cbt/internal/rbac"
	"github.com/edudesk/edudesk-cbt/internal/report"
	"github.com/edudesk/edudesk-cbt/internal/storage"
)

// canViewReport: view-any sees everyone, view-own only the caller's own id.
func canViewReport(r *http.Request, studentID string) bool {
	if rbac.Has(rbac.RoleFromContext(r.Context()), "report:view-any") {
		return true
	}
	return authmw.SubjectFromContext(r.Context()) == studentID
}

// GET /students/{studentID}/report?term=...&class=...
// Unsynced submissions in scope are swept into the ledger first, so the
// report never trails a finished CBT.
func StudentReportHandler(eng *report.Engine, syncer *gradesync.Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID := chi.URLParam(r, "studentID")
		termID := r.URL.Query().Get("term")
		classID := r.URL.Query().Get("class")
		if termID == "" || classID == "" {
			http.Error(w, "term and class required", http.StatusBadRequest)
			return
		}
		if !canViewReport(r, studentID) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if syncer != nil {
			// best-effort: a failed sweep still serves the report
			_, _ = syncer.SyncBatch(r.Context(), gradesync.BatchFilter{ClassID: classID, TermID: termID})
		}
		rep, err := eng.StudentReport(r.Context(), studentID, termID, classID)
		if err != nil {
			httpError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(rep)
	}
}

// GET /classes/{classID}/ranking?term=...
func ClassRankingHandler(eng *report.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID := chi.URLParam(r, "classID")
		termID := r.URL.Query().Get("term")
		if termID == "" {
			http.Error(w, "term required", http.StatusBadRequest)
			return
		}
		ranking, err := eng.ClassRanking(r.Context(), classID, termID)
		if err != nil {
			httpError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(ranking)
	}
}

// artifactURL prefers the deployment's public base URL; the store's signed
// URL is the dev fallback.
func artifactURL(publicBase, key string, artifacts storage.BlobStore) (string, error) {
	if publicBase != "" {
		return strings.TrimRight(publicBase, "/") + "/artifacts/" + key, nil
	}
	return artifacts.SignedURL(key)
}

// GET /students/{studentID}/report/artifact?term=...&class=...
// Renders through the bounded worker pool and returns the artifact key plus a
// fetchable URL.
func ReportArtifactHandler(eng *report.Engine, pool *report.RenderPool, artifacts storage.BlobStore, publicBase string, syncer *gradesync.Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID := chi.URLParam(r, "studentID")
		termID := r.URL.Query().Get("term")
		classID := r.URL.Query().Get("class")
		if termID == "" || classID == "" {
			http.Error(w, "term and class required", http.StatusBadRequest)
			return
		}
		if syncer != nil {
			_, _ = syncer.SyncBatch(r.Context(), gradesync.BatchFilter{ClassID: classID, TermID: termID})
		}
		rep, err := eng.StudentReport(r.Context(), studentID, termID, classID)
		if err != nil {
			httpError(w, err)
			return
		}
		key, err := pool.Render(r.Context(), rep)
		if err != nil {
			httpError(w, err)
			return
		}
		url, err := artifactURL(publicBase, key, artifacts)
		if err != nil {
			httpError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"artifact": key, "url": url})
	}
}

// GET /artifacts/*  streams a previously rendered artifact.
func ArtifactDownloadHandler(artifacts storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		if key == "" {
			http.Error(w, "key required", http.StatusBadRequest)
			return
		}
		rc, err := artifacts.Get(key)
		if err != nil {
			http.Error(w, "artifact not found", http.StatusNotFound)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.Copy(w, rc)
	}
}
