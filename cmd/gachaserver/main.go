// Package main provides the gacha server binary: the JSON API, the gRPC
// health service and the background restoration and event schedulers.
package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/waifu/internal/api"
	"github.com/cory-johannsen/waifu/internal/cache"
	"github.com/cory-johannsen/waifu/internal/config"
	"github.com/cory-johannsen/waifu/internal/game/account"
	"github.com/cory-johannsen/waifu/internal/game/character"
	"github.com/cory-johannsen/waifu/internal/game/dice"
	"github.com/cory-johannsen/waifu/internal/game/event"
	"github.com/cory-johannsen/waifu/internal/game/restore"
	"github.com/cory-johannsen/waifu/internal/game/skill"
	"github.com/cory-johannsen/waifu/internal/gameserver"
	"github.com/cory-johannsen/waifu/internal/observability"
	"github.com/cory-johannsen/waifu/internal/scripting"
	"github.com/cory-johannsen/waifu/internal/server"
	"github.com/cory-johannsen/waifu/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "gachaserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics := observability.NewMetrics()
	src := dice.NewLoggedSource(dice.NewCryptoSource(), logger)

	logger.Info("starting gacha server",
		zap.String("mode", cfg.Server.Mode),
		zap.String("env", cfg.Server.Env),
	)

	// Content
	skills, err := skill.LoadDirectory(filepath.Join(cfg.Game.ContentDir, "skills"))
	if err != nil {
		logger.Fatal("loading skills", zap.Error(err))
	}
	events, err := event.LoadDirectory(filepath.Join(cfg.Game.ContentDir, "events"))
	if err != nil {
		logger.Fatal("loading events", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("skills", len(skills.All())),
		zap.Int("events", events.Len()),
	)

	var hooks event.ScoreHook
	if cfg.Game.ScriptDir != "" {
		scripts := scripting.NewManager(src, logger, cfg.Game.ScriptInstructionLimit)
		defer scripts.Close()
		n, err := scripts.LoadDirectory(cfg.Game.ScriptDir)
		if err != nil {
			logger.Fatal("loading scripts", zap.Error(err))
		}
		for _, d := range events.All() {
			if d.Script != "" && !scripts.HasHook(d.Script) {
				logger.Warn("event names a missing script hook", zap.String("event", d.ID), zap.String("hook", d.Script))
			}
		}
		logger.Info("scripts loaded", zap.Int("files", n))
		hooks = scripts
	}

	// PostgreSQL
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	store := postgres.NewStore(pool.DB())

	// Cache and activity
	checkers := map[string]server.Checker{"postgres": pool}
	var (
		fxCache  skill.EffectCache
		activity cache.ActivityTracker
	)
	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal("connecting to redis", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		fxCache = cache.NewRedisEffectCache(rdb.Client, cfg.Game.EffectsCacheTTL)
		activity = cache.NewRedisActivity(rdb.Client, cfg.Events.ActivityWindow)
		checkers["redis"] = rdb
		logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	} else {
		mem := cache.NewMemoryEffectCache(cfg.Game.EffectsCacheTTL)
		defer mem.Close()
		fxCache = mem
		activity = cache.NewMemoryActivity(cfg.Events.ActivityWindow)
	}
	effects := skill.NewCachedAggregator(skill.NewAggregator(skills, store.Skills, logger), fxCache, logger)

	var images character.ImageResolver = character.StaticImageResolver{Src: src}
	if cfg.Game.ImageBaseURL != "" {
		images = character.NewHTTPImageResolver(cfg.Game.ImageBaseURL, cfg.Game.ImageProbeTimeout, cfg.Game.ImageResolveBudget, src, logger)
	}

	game := gameserver.NewService(gameserver.Deps{
		Store:     store,
		Skills:    skills,
		Events:    events,
		Effects:   effects,
		Generator: character.NewGenerator(src, images),
		Engine:    event.NewEngine(events, src, hooks),
		Activity:  activity,
		Source:    src,
		Metrics:   metrics,
		Logger:    logger,
	}, gameserver.Rules{
		SummonCost:        cfg.Game.SummonCost,
		PremiumSummonCost: cfg.Game.PremiumSummonCost,
		PityThreshold:     cfg.Game.PityThreshold,
		Chat: account.ChatRules{
			CoinsPerMessage: cfg.Game.ChatCoins,
			DailyCap:        cfg.Game.ChatDailyCap,
			XPPerMessage:    cfg.Game.ChatXP,
		},
		OfferWindow:    cfg.Events.OfferWindow,
		GroupWindow:    cfg.Events.GroupWindow,
		ActivityWindow: cfg.Events.ActivityWindow,
	})
	defer game.Close()

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)

	// Added first so the pool closes after every service using it has stopped.
	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		},
		StopFn: pool.Close,
	})

	if cfg.Server.RunsAPI() {
		router := api.NewRouter(game, api.Options{
			Logger:         logger,
			Metrics:        metrics,
			Health:         pool.Health,
			AdminTokenHash: []byte(cfg.Admin.TokenHash),
		})
		lifecycle.Add("http", server.NewHTTPService(cfg.HTTP.Addr(), router, cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout, logger))
		lifecycle.Add("grpc-health", server.NewHealthService(cfg.GRPC.Addr(), checkers, 15*time.Second, logger))
	}

	if cfg.Server.RunsWorkers() {
		lifecycle.Add("restore", restore.NewScheduler(store.Characters, effects, cfg.Restore.Interval, logger, metrics))
		if cfg.Events.AutoInterval > 0 {
			lifecycle.Add("auto-events", event.NewAutoScheduler(events, activity, game.Groups(), src,
				cfg.Events.AutoInterval, cfg.Events.ActivityWindow, logger))
		}
	}

	logger.Info("gacha server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("http_addr", cfg.HTTP.Addr()),
		zap.String("grpc_addr", cfg.GRPC.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
