package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/scopeworks/kbingest/internal/api/handlers"
	"github.com/scopeworks/kbingest/internal/api/middleware"
	"github.com/scopeworks/kbingest/internal/config"
	"github.com/scopeworks/kbingest/internal/ingest"
	"github.com/scopeworks/kbingest/internal/queue"
	"github.com/scopeworks/kbingest/internal/store"
)

type Router struct {
	mux      *chi.Mux
	db       *pgxpool.Pool
	redis    *redis.Client
	cfg      *config.Config
	pipeline *ingest.Pipeline
	queue    *queue.Client
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, pipeline *ingest.Pipeline, qc *queue.Client) *Router {
	return &Router{
		mux:      chi.NewRouter(),
		db:       db,
		redis:    rdb,
		cfg:      cfg,
		pipeline: pipeline,
		queue:    qc,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health and metrics (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	st := store.New(rt.db)
	scanH := handlers.NewScanHandler(st, rt.queue)
	approvalH := handlers.NewApprovalHandler(st, rt.pipeline)
	documentH := handlers.NewDocumentHandler(st, rt.pipeline)
	jobH := handlers.NewJobHandler(st)
	statsH := handlers.NewStatsHandler(st)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKey(rt.cfg.Auth.APIKeyHeader, rt.cfg.Auth.AdminAPIKey))

		r.Post("/scan", scanH.Trigger)
		r.Get("/scan/status", scanH.Status)

		r.Get("/pending-updates", approvalH.List)
		r.Post("/approve/{id}", approvalH.Approve)
		r.Post("/reject/{id}", approvalH.Reject)

		r.Get("/kb-documents", documentH.List)
		r.Get("/kb-documents/{id}", documentH.Get)
		r.Delete("/kb-documents/{id}", documentH.Delete)
		r.Post("/reset-failed-documents", documentH.ResetFailed)

		r.Get("/processing-jobs", jobH.List)
		r.Get("/stats", statsH.Get)
	})

	return r
}
