package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kislikjeka/memechain/internal/transport/httpapi/handler"
	"github.com/kislikjeka/memechain/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/memechain/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger             *logger.Logger
	AllowedOrigins     []string
	BattleHandler      *handler.BattleHandler
	WriteHandler       *handler.WriteHandler
	FlowHandler        *handler.FlowHandler
	UploadHandler      *handler.UploadHandler
	HealthHandler      *handler.HealthHandler
	DocsHandler        *handler.DocsHandler
	OperatorMiddleware func(http.Handler) http.Handler
	RateLimit          func(http.Handler) http.Handler
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.RateLimit != nil {
		r.Use(cfg.RateLimit)
	}

	// Health check endpoints (no authentication required)
	r.Get("/health/live", handler.GetLiveness)
	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.GetHealth)
		r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
		r.Get("/health/detailed", cfg.HealthHandler.GetHealthDetailed)
	}

	// API documentation endpoint
	if cfg.DocsHandler != nil {
		r.Get("/docs", cfg.DocsHandler.GetOpenAPISpec)
		r.Get("/docs/info", cfg.DocsHandler.GetOpenAPIInfo)
	}

	// Media upload keeps its original path
	if cfg.UploadHandler != nil {
		r.Post("/api/ipfs-upload", cfg.UploadHandler.Upload)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Read views
		if cfg.BattleHandler != nil {
			r.Get("/battles", cfg.BattleHandler.ListBattles)
			r.Get("/battles/{id}", cfg.BattleHandler.GetBattle)
			r.Get("/battles/{id}/memes", cfg.BattleHandler.ListMemes)
			r.Get("/battles/{id}/votes/{voter}", cfg.BattleHandler.GetUserVote)
			r.Get("/accounts/{address}/balance", cfg.BattleHandler.GetBalance)
		}

		// Flow status
		if cfg.FlowHandler != nil {
			r.Get("/flows", cfg.FlowHandler.ListFlows)
			r.Get("/flows/history", cfg.FlowHandler.ListHistory)
			r.Get("/flows/{name}", cfg.FlowHandler.GetFlow)
		}

		// Participant writes, signed by the server wallet
		if cfg.WriteHandler != nil {
			r.Post("/battles/{id}/memes", cfg.WriteHandler.SubmitMeme)
			r.Post("/battles/{id}/votes", cfg.WriteHandler.CastVote)
		}

		// Operator routes (require JWT authentication)
		if cfg.OperatorMiddleware != nil {
			r.Group(func(r chi.Router) {
				r.Use(cfg.OperatorMiddleware)

				if cfg.WriteHandler != nil {
					r.Post("/battles", cfg.WriteHandler.CreateBattle)
					r.Post("/battles/{id}/phase/{action}", cfg.WriteHandler.AdvancePhase)
				}
				if cfg.FlowHandler != nil {
					r.Post("/flows/{name}/reset", cfg.FlowHandler.ResetFlow)
				}
			})
		}
	})

	return r
}
