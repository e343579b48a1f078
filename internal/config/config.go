package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr  string
	PublicURL string

	DBDriver string
	DBDSN    string

	// ShowResultsImmediately controls whether a student sees the computed
	// score in the submit response or only an acknowledgment. School-wide.
	ShowResultsImmediately bool

	// SubjectNormalizationTarget is the max every subject total is scaled to
	// on reports, regardless of the natural sum of assessment max scores.
	SubjectNormalizationTarget int

	// Report render worker pool.
	RenderWorkers    int
	RenderTimeoutSec int

	ArtifactBasePath string

	AuthHMACSecret string

	CORSOrigins []string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:  addr,
		PublicURL: os.Getenv("PUBLIC_URL"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		ShowResultsImmediately:     envBool("SHOW_RESULTS_IMMEDIATELY", true),
		SubjectNormalizationTarget: envInt("SUBJECT_NORMALIZATION_TARGET", 100),

		RenderWorkers:    envInt("RENDER_WORKERS", 4),
		RenderTimeoutSec: envInt("RENDER_TIMEOUT_SEC", 30),

		ArtifactBasePath: envOr("ARTIFACT_BASE_PATH", "./data"),

		AuthHMACSecret: envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
