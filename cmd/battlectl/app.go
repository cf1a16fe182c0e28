package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

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
	"github.com/kislikjeka/memechain/migrations"
	"github.com/kislikjeka/memechain/pkg/config"
	"github.com/kislikjeka/memechain/pkg/logger"
)

// app lazily builds the dependencies a command needs. Reads go straight to the ledger;
// the shared view cache and the journal are used only when they are reachable.
type app struct {
	contractsPath string
	jsonOutput    bool
	out           io.Writer

	cfg       *config.Config
	contracts *config.ContractsConfig
	log       *logger.Logger
	ledger    *evm.Client
	reader    *battle.Reader
	redis     *redis.Client
	cache     *infraRedis.ViewCache
	db        *postgres.DB
	journal   *postgres.JournalRepository
}

func (a *app) stdout() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}

func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.contractsPath != "" {
		cfg.ContractsConfigPath = a.contractsPath
	}

	a.cfg = cfg
	a.log = logger.New(cfg.Env, os.Stderr)
	return cfg, nil
}

func (a *app) connect(ctx context.Context) (*evm.Client, error) {
	if a.ledger != nil {
		return a.ledger, nil
	}

	cfg, err := a.config()
	if err != nil {
		return nil, err
	}

	contracts, err := config.LoadContractsConfig(cfg.ContractsConfigPath)
	if err != nil {
		return nil, err
	}
	codec, err := evm.NewCodec(contracts.Contracts)
	if err != nil {
		return nil, err
	}

	client, err := evm.Dial(ctx, cfg.RPCURL, codec, cfg.SignerPrivateKey, a.log.Logger)
	if err != nil {
		return nil, err
	}

	a.contracts = contracts
	a.ledger = client
	a.reader = battle.NewReader(client, cfg.GatewayURL, a.log.Logger)
	return client, nil
}

func (a *app) battles(ctx context.Context) (*battle.Reader, error) {
	if _, err := a.connect(ctx); err != nil {
		return nil, err
	}
	return a.reader, nil
}

// viewCache returns the shared view cache, or nil when Redis is unreachable
func (a *app) viewCache(ctx context.Context) *infraRedis.ViewCache {
	if a.cache != nil {
		return a.cache
	}

	cfg, err := a.config()
	if err != nil {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisURL, Password: cfg.RedisPassword})
	if err := client.Ping(ctx).Err(); err != nil {
		a.log.Debug("view cache unavailable", "error", err)
		client.Close()
		return nil
	}

	a.redis = client
	a.cache = infraRedis.NewViewCache(client, cfg.ViewCacheTTL, a.log)
	return a.cache
}

// flowJournal returns the run journal, or nil when DATABASE_URL is not set
func (a *app) flowJournal(ctx context.Context) (*postgres.JournalRepository, error) {
	if a.journal != nil {
		return a.journal, nil
	}

	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, nil
	}

	db, err := postgres.NewPool(ctx, postgres.Config{URL: cfg.DatabaseURL, MaxConns: 2})
	if err != nil {
		return nil, err
	}
	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close()
		return nil, err
	}

	a.db = db
	a.journal = postgres.NewJournalRepository(db.Pool)
	return a.journal, nil
}

// flowSet holds the write flows over the signer
type flowSet struct {
	session wallet.Session
	create  *create.Service
	phases  *phase.Set
	submit  *submit.Service
	vote    *vote.Service
}

func (a *app) flows(ctx context.Context) (*flowSet, error) {
	ledger, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	cfg := a.cfg

	var views flow.Invalidator
	if cache := a.viewCache(ctx); cache != nil {
		views = battle.NewCachedReader(a.reader, cache, a.log.Logger)
	}

	var journal flow.Journal
	repo, err := a.flowJournal(ctx)
	if err != nil {
		return nil, err
	}
	if repo != nil {
		journal = repo
	}

	guard := wallet.NewGuard(cfg.ChainID, ledger)
	store := media.NewStore(pinata.NewClient(cfg.PinataJWT, cfg.PinataURL, a.log), cfg.GatewayURL, a.log.Logger)

	return &flowSet{
		session: ledger.Session(),
		create: create.NewService(
			create.Config{ActivationWait: cfg.ActivationWait, PollInterval: cfg.ActivationPollInterval},
			guard, a.reader, ledger, ledger, ledger, views, journal, a.log.Logger,
		),
		phases: phase.NewSet(guard, a.reader, ledger, views, journal, a.log.Logger),
		submit: submit.NewService(guard, a.reader, store, ledger, ledger, views, journal, a.log.Logger),
		vote: vote.NewService(
			vote.Config{Spender: a.contracts.Contracts.VotingEngine, ApprovalAmount: cfg.ApprovalAmount},
			guard, a.reader, ledger, ledger, views, journal, a.log.Logger,
		),
	}, nil
}

func (a *app) close() {
	if a.ledger != nil {
		a.ledger.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
