package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/edudesk/edudesk-cbt/internal/api/http"
	auth "github.com/edudesk/edudesk-cbt/internal/auth/middleware"
	"github.com/edudesk/edudesk-cbt/internal/catalog"
	"github.com/edudesk/edudesk-cbt/internal/config"
	"github.com/edudesk/edudesk-cbt/internal/db"
	"github.com/edudesk/edudesk-cbt/internal/gradesync"
	"github.com/edudesk/edudesk-cbt/internal/rbac"
	"github.com/edudesk/edudesk-cbt/internal/report"
	"github.com/edudesk/edudesk-cbt/internal/scoring"
	"github.com/edudesk/edudesk-cbt/internal/session"
	"github.com/edudesk/edudesk-cbt/internal/storage"
	syncx "github.com/edudesk/edudesk-cbt/internal/sync"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	// --- Stores ---
	cat := catalog.NewSQLStore(dbh, cfg.DBDriver)
	sessions := session.NewSQLStore(dbh, cfg.DBDriver)
	roster := session.NewSQLRoster(dbh)
	subs := scoring.NewSQLStore(dbh, cfg.DBDriver)
	grades := gradesync.NewSQLStore(dbh, cfg.DBDriver)
	reports := report.NewSQLStore(dbh)
	events := syncx.NewEventRepo(dbh)

	// --- Engines ---
	sessionEng := session.NewEngine(cat, sessions, roster, subs)
	scoringEng := scoring.NewEngine(cat, subs, sessions, scoring.WithEventLog(events))
	syncer := gradesync.New(cat, grades, gradesync.WithEventLog(events))
	reportEng := report.NewEngine(cat, reports,
		report.WithNormalizationTarget(cfg.SubjectNormalizationTarget))

	artifacts, err := storage.NewFSStore(cfg.ArtifactBasePath)
	if err != nil {
		log.Fatalf("artifact store: %v", err)
	}
	renderPool := report.NewRenderPool(report.JSONRenderer{}, artifacts,
		int64(cfg.RenderWorkers), time.Duration(cfg.RenderTimeoutSec)*time.Second)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	// Protected API: JWT puts subject+role in context, RBAC gates per route.
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Student flow
		pr.With(rbac.Require("exam:take")).
			Get("/exams/{examID}/questions", api.QuestionSetHandler(sessionEng, roster))
		pr.With(rbac.Require("session:save")).
			Post("/exams/{examID}/session", api.SaveSessionHandler(sessionEng, roster))
		pr.With(rbac.Require("session:restore")).
			Get("/exams/{examID}/session", api.RestoreSessionHandler(sessionEng, roster))
		pr.With(rbac.Require("exam:submit")).
			Post("/exams/{examID}/submit", api.SubmitHandler(scoringEng, roster, cfg.ShowResultsImmediately))

		// Staff flow
		pr.With(rbac.Require("grades:sync")).
			Post("/grades/sync", api.SyncGradesHandler(syncer))
		pr.With(rbac.RequireAny("report:view-own", "report:view-any")).
			Get("/students/{studentID}/report", api.StudentReportHandler(reportEng, syncer))
		pr.With(rbac.Require("report:view-any")).
			Get("/students/{studentID}/report/artifact", api.ReportArtifactHandler(reportEng, renderPool, artifacts, cfg.PublicURL, syncer))
		pr.With(rbac.Require("report:view-any")).
			Get("/artifacts/*", api.ArtifactDownloadHandler(artifacts))
		pr.With(rbac.Require("ranking:view")).
			Get("/classes/{classID}/ranking", api.ClassRankingHandler(reportEng))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
