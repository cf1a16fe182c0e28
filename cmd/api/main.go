package main

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kislikjeka/memechain/internal/infra/gateway/evm"
	"github.com/kislikjeka/memechain/internal/infra/gateway/pinata"
	"github.com/kislikjeka/memechain/internal/infra/postgres"
	infraRedis "github.com/kislikjeka/memechain/internal/infra/redis"
	"github.com/kislikjeka/memechain/internal/module/create"
	"github.com/kislikjeka/memechain/internal/module/phase"
	"github.com/kislikjeka/memechain/internal/module/submit"
	"github.com/kislikjeka/memechain/internal/module/vote"
	"github.com/kislikjeka/memechain/internal/platform/battle"
	"github.com/kislikjeka/memechain/internal/platform/flow"
	"github.com/kislikjeka/memechain/internal/platform/media"
	"github.com/kislikjeka/memechain/internal/platform/wallet"
	"github.com/kislikjeka/memechain/internal/transport/httpapi"
	"github.com/kislikjeka/memechain/internal/transport/httpapi/handler"
	"github.com/kislikjeka/memechain/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/memechain/migrations"
	"github.com/kislikjeka/memechain/pkg/config"
	"github.com/kislikjeka/memechain/pkg/logger"
)

//go:embed openapi.yaml
var openAPISpec []byte

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Create context that listens for termination signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid server configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewDefault(cfg.Env)
	log.Info("Starting MemeChain API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"chain_id", cfg.ChainID,
	)

	// Contracts and ledger connection
	contracts, err := config.LoadContractsConfig(cfg.ContractsConfigPath)
	if err != nil {
		log.Error("Failed to load contracts config", "error", err)
		os.Exit(1)
	}
	if contracts.Network.ChainID != cfg.ChainID {
		log.Warn("Contracts config targets a different chain",
			"contracts_chain_id", contracts.Network.ChainID,
			"chain_id", cfg.ChainID)
	}

	codec, err := evm.NewCodec(contracts.Contracts)
	if err != nil {
		log.Error("Failed to build contract codec", "error", err)
		os.Exit(1)
	}

	ledger, err := evm.Dial(ctx, cfg.RPCURL, codec, cfg.SignerPrivateKey, log.Logger)
	if err != nil {
		log.Error("Failed to connect to ledger", "error", err)
		os.Exit(1)
	}
	defer ledger.Close()
	if !cfg.HasSigner() {
		log.Warn("SIGNER_PRIVATE_KEY not configured, write endpoints will fail")
	}

	// Initialize Redis client for read view caching
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Redis connection established")

	viewCache := infraRedis.NewViewCache(redisClient, cfg.ViewCacheTTL, log)
	battles := battle.NewCachedReader(battle.NewReader(ledger, cfg.GatewayURL, log.Logger), viewCache, log.Logger)

	// Flow journal is optional
	var (
		journal flow.Journal
		history handler.HistoryReader
		db      *postgres.DB
	)
	if cfg.DatabaseURL != "" {
		db, err = postgres.NewPool(ctx, postgres.Config{URL: cfg.DatabaseURL})
		if err != nil {
			log.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		applied, err := db.Migrate(ctx, migrations.FS)
		if err != nil {
			log.Error("Failed to apply migrations", "error", err)
			os.Exit(1)
		}
		log.Info("Database connection established", "migrations_applied", len(applied))

		repo := postgres.NewJournalRepository(db.Pool)
		journal = repo
		history = repo
	} else {
		log.Warn("DATABASE_URL not configured, flow journal disabled")
	}

	// Media storage
	pinner := pinata.NewClient(cfg.PinataJWT, cfg.PinataURL, log)
	store := media.NewStore(pinner, cfg.GatewayURL, log.Logger)

	// Write flows
	guard := wallet.NewGuard(cfg.ChainID, ledger)

	createSvc := create.NewService(
		create.Config{ActivationWait: cfg.ActivationWait, PollInterval: cfg.ActivationPollInterval},
		guard, battles, ledger, ledger, ledger, battles, journal, log.Logger,
	)
	phases := phase.NewSet(guard, battles, ledger, battles, journal, log.Logger)
	submitSvc := submit.NewService(guard, battles, store, ledger, ledger, battles, journal, log.Logger)
	voteSvc := vote.NewService(
		vote.Config{Spender: contracts.Contracts.VotingEngine, ApprovalAmount: cfg.ApprovalAmount},
		guard, battles, ledger, ledger, battles, journal, log.Logger,
	)

	phaseFlows := make(map[phase.Action]handler.PhaseFlow, len(phase.Actions))
	flows := []handler.Flow{createSvc, submitSvc, voteSvc}
	for _, action := range phase.Actions {
		svc, err := phases.Get(action)
		if err != nil {
			log.Error("Failed to wire phase flow", "action", action, "error", err)
			os.Exit(1)
		}
		phaseFlows[action] = svc
		flows = append(flows, svc)
	}

	// Initialize HTTP handlers
	battleHandler := handler.NewBattleHandler(battles, log)
	writeHandler := handler.NewWriteHandler(ledger, handler.WriteFlows{
		Create: createSvc,
		Phases: phaseFlows,
		Submit: submitSvc,
		Vote:   voteSvc,
	}, log)
	flowHandler := handler.NewFlowHandler(history, flows...)
	uploadHandler := handler.NewUploadHandler(store, log)

	docsHandler, err := handler.NewDocsHandler(openAPISpec)
	if err != nil {
		log.Error("Failed to load API documentation", "error", err)
		os.Exit(1)
	}

	healthHandler := handler.NewHealthHandler(version).
		Register("ledger", handler.PingFunc(func(ctx context.Context) error {
			_, err := ledger.BlockTime(ctx)
			return err
		}), true).
		Register("redis", viewCache, true)
	if db != nil {
		healthHandler.Register("postgres", handler.PingFunc(db.Health), false)
	}

	jwtService := middleware.NewJWTService(cfg.JWTSecret)

	// Create HTTP router
	routerCfg := httpapi.Config{
		Logger:             log,
		AllowedOrigins:     cfg.AllowedOrigins,
		BattleHandler:      battleHandler,
		WriteHandler:       writeHandler,
		FlowHandler:        flowHandler,
		UploadHandler:      uploadHandler,
		HealthHandler:      healthHandler,
		DocsHandler:        docsHandler,
		OperatorMiddleware: middleware.OperatorMiddleware(jwtService),
		RateLimit:          middleware.RateLimit(ctx),
	}
	r := httpapi.NewRouter(routerCfg)

	// Write flows block until their receipts land, and create may also wait for activation
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2*time.Minute + cfg.ActivationWait,
		IdleTimeout:  60 * time.Second,
	}

	// Keep live battle views warm
	refresher := battle.NewRefresher(battles, cfg.ViewRefreshInterval, log.Logger)
	go refresher.Run(ctx)

	// Start server in a goroutine
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for termination signal
	<-ctx.Done()
	log.Info("Shutdown signal received")

	refresher.Stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped gracefully")
}
