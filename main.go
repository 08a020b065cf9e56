package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/creaturebattle/server/api/rest"
	"github.com/kasuganosora/creaturebattle/server/api/sse"
	apows "github.com/kasuganosora/creaturebattle/server/api/ws"
	"github.com/kasuganosora/creaturebattle/server/cache"
	"github.com/kasuganosora/creaturebattle/server/config"
	dbadapter "github.com/kasuganosora/creaturebattle/server/db"
	"github.com/kasuganosora/creaturebattle/server/game/battle"
	"github.com/kasuganosora/creaturebattle/server/game/match"
	"github.com/kasuganosora/creaturebattle/server/game/player"
	"github.com/kasuganosora/creaturebattle/server/game/roster"
	mw "github.com/kasuganosora/creaturebattle/server/middleware"
	"github.com/kasuganosora/creaturebattle/server/model"
	"github.com/kasuganosora/creaturebattle/server/outcome"
	"github.com/kasuganosora/creaturebattle/server/resource"
	"github.com/kasuganosora/creaturebattle/server/scheduler"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		RedisPoolSize:   cfg.Cache.RedisPoolSize,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Catalog ----
	res := resource.NewLoader(cfg.Game.DataPath)
	if err := res.Load(); err != nil {
		log.Fatalf("catalog: %v", err)
	}
	logger.Info("Catalog loaded",
		zap.Int("species", len(res.Species())),
		zap.Int("moves", len(res.Moves())),
		zap.Int("teams", len(res.Teams())))

	weather, err := battle.ParseWeather(cfg.Game.Weather)
	if err != nil {
		log.Fatalf("game.weather: %v", err)
	}

	// ---- Outcome recorder ----
	outcomes := outcome.New(db, c, pubsub, logger, outcome.Options{FlushInterval: cfg.Game.OutcomeFlush})

	// ---- Match manager ----
	sm := player.NewSessionManager(logger)
	mgr := match.NewManager(match.Config{
		Roster:      roster.NewBuilder(res, cfg.Game.DefaultLevel, cfg.Game.RandomTeamSize),
		Rand:        battle.NewRand(cfg.Game.Seed),
		Weather:     weather,
		IdleForfeit: cfg.Game.IdleForfeit,
		Sink:        outcomes,
		Logger:      logger,
	})
	// The manager gets its own context so it outlives the HTTP server during
	// shutdown and can record the forfeits of closing sockets.
	g, gctx := errgroup.WithContext(context.Background())
	mgrCtx, stopMgr := context.WithCancel(context.Background())
	g.Go(func() error { return mgr.Run(mgrCtx) })

	rankH := apirest.NewRankingHandler(db, c, logger)

	// ---- Periodic Scheduler Tasks ----
	sched := scheduler.New(logger)
	sweepEvery := cfg.Game.IdleSweepInterval
	if cfg.Game.IdleForfeit <= 0 {
		sweepEvery = 0
	}
	sched.AddTicker("idle-sweep", sweepEvery, func(ctx context.Context) error {
		return mgr.Submit(ctx, match.SweepMsg{Now: time.Now()})
	})
	refresh := func(ctx context.Context) error {
		n, err := rankH.Refresh(ctx)
		if err == nil {
			logger.Debug("ranking refreshed", zap.Int("entries", n))
		}
		return err
	}
	sched.AddTicker("ranking-refresh", cfg.Game.RankingRefresh, refresh)
	sched.AddDelay("ranking-warmup", time.Second, refresh)

	// ---- WS Router ----
	wsRouter := apows.NewRouter(logger)
	if cfg.Security.WSRateRPS > 0 {
		wsRouter.Limit(mw.NewLimiterSet(rate.Limit(cfg.Security.WSRateRPS), cfg.Security.WSRateBurst))
	}
	apows.NewBattleHandlers(mgr, logger).RegisterHandlers(wsRouter)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(c, cfg.Security, logger)
	catalogH := apirest.NewCatalogHandler(res)
	adminH := apirest.NewAdminHandler(sm, mgr, sched, logger)
	sseH := sse.NewHandler(pubsub, c, rankH, cfg.Security, logger)

	api := r.Group("/api")
	api.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))
	{
		authG := api.Group("/auth")
		authG.POST("/guest", authH.Guest)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)
		authG.GET("/me", mw.Auth(cfg.Security, c), authH.Me)

		catG := api.Group("/catalog")
		catG.GET("/types", catalogH.Types)
		catG.GET("/moves", catalogH.Moves)
		catG.GET("/species", catalogH.Species)
		catG.GET("/species/:id", catalogH.SpeciesByID)
		catG.GET("/teams", catalogH.Teams)

		api.GET("/profiles/:id", rankH.Profile(sm.IsOnline))
		api.GET("/ranking/wins", rankH.TopWins)
		api.GET("/outcomes/recent", rankH.Recent)

		adminG := api.Group("/admin")
		adminG.Use(mw.IPWhitelist(cfg.Server.AdminIPs), apirest.AdminAuth(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/participants", adminH.ListParticipants)
		adminG.POST("/kick/:id", adminH.Kick)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
		adminG.POST("/ranking/refresh", rankH.RefreshRanking)
		adminG.POST("/announce", sseH.Announce)
	}

	// ---- WebSocket ----
	wsH := apows.NewHandler(c, cfg.Security, sm, mgr, wsRouter, logger)
	r.GET("/ws", wsH.ServeWS)

	// ---- SSE ----
	r.GET("/sse/outcomes", sseH.ServeOutcomes)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}
	g.Go(func() error {
		logger.Info("Server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	sig, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	select {
	case <-sig.Done():
		logger.Info("shutting down")
	case <-gctx.Done():
		logger.Error("server stopped unexpectedly, shutting down")
	}

	// Stop taking requests, then close sockets while the manager still runs
	// so every open battle is forfeited and recorded.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	sched.Stop()
	sm.CloseAllSessions(5 * time.Second)
	stopMgr()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("shutdown", zap.Error(err))
	}
	outcomes.Stop(shutdownCtx)
	logger.Info("shutdown complete")
}
