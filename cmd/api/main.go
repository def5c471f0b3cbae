package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/claritydx/feesched-api/pkg/auth"
	"github.com/claritydx/feesched-api/pkg/logger"
	"github.com/claritydx/feesched-api/pkg/metrics"
	"github.com/claritydx/feesched-api/pkg/security"

	"github.com/claritydx/feesched-api/internal/config"
	adminHandler "github.com/claritydx/feesched-api/internal/handler/admin"
	authHandler "github.com/claritydx/feesched-api/internal/handler/auth"
	feeHandler "github.com/claritydx/feesched-api/internal/handler/feeschedule"
	"github.com/claritydx/feesched-api/internal/handler/health"
	ratesHandler "github.com/claritydx/feesched-api/internal/handler/rates"
	"github.com/claritydx/feesched-api/internal/middleware"
	"github.com/claritydx/feesched-api/internal/objectstore"
	"github.com/claritydx/feesched-api/internal/repository/postgres"
	"github.com/claritydx/feesched-api/internal/router"
	adminService "github.com/claritydx/feesched-api/internal/service/admin"
	authService "github.com/claritydx/feesched-api/internal/service/auth"
	"github.com/claritydx/feesched-api/internal/service/importer"
	"github.com/claritydx/feesched-api/internal/service/query"
	"github.com/claritydx/feesched-api/internal/service/ratecache"
	"github.com/claritydx/feesched-api/internal/service/resolver"
)

func main() {
	// Rates serialize as JSON numbers, matching the lookup API contract.
	decimal.MarshalJSONWithoutQuotes = true

	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("feesched", "api")

	// Repositories
	base := postgres.NewBaseRepository(db)
	jurisdictionRepo := postgres.NewJurisdictionRepository(base)
	procedureRepo := postgres.NewProcedureRepository(base)
	feeScheduleRepo := postgres.NewFeeScheduleRepository(base)
	medicareRepo := postgres.NewMedicareRepository(base)
	cacheRepo := postgres.NewCacheRepository(base)
	queryLogRepo := postgres.NewQueryLogRepository(base)
	userRepo := postgres.NewUserRepository(base)

	// Object store
	store, err := objectstore.NewMinioStore(cfg.ObjectStore, log.ZL)
	if err != nil {
		log.Fatal(err, "failed to connect to object store")
	}

	// With no Redis the refresh lock degrades to in-process serialization.
	var refreshLock ratecache.RefreshLocker
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		refreshLock = ratecache.NewRedisLocker(client)
	}

	// Services
	cacheSvc := ratecache.NewService(cacheRepo, store, refreshLock, ratecache.Config{
		StalenessWindow: cfg.Cache.StalenessWindow,
		FetchTimeout:    cfg.Cache.FetchTimeout,
		LockTTL:         cfg.Cache.LockTTL,
	}, log, m)
	querySvc := query.NewService(cacheSvc, cacheRepo, queryLogRepo, cfg.Stats.TopN, log, m)
	resolverSvc := resolver.NewService(feeScheduleRepo, jurisdictionRepo, medicareRepo, m)
	importerSvc := importer.NewService(jurisdictionRepo, procedureRepo, feeScheduleRepo, log)
	adminSvc := adminService.NewService(jurisdictionRepo, log)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry)
	hasher := security.NewBcryptHasher(cfg.JWT.BcryptCost)
	authSvc := authService.NewService(userRepo, hasher, jwtSvc, log)

	// Handlers
	healthH := health.NewHandler(db)
	ratesH := ratesHandler.NewHandler(querySvc)
	feeH := feeHandler.NewHandler(resolverSvc)
	authH := authHandler.NewHandler(authSvc)
	adminH := adminHandler.NewHandler(adminSvc, importerSvc, cfg.Importer)

	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	r := router.NewRouter(
		authMiddleware,
		healthH,
		ratesH,
		feeH,
		authH,
		adminH,
		log,
		router.RouterConfig{
			RateLimitRPS:   cfg.RateLimit.RPS,
			RateLimitBurst: cfg.RateLimit.Burst,
			RequestTimeout: cfg.Server.RequestTimeout,
			CORSConfig:     middleware.DefaultCORSConfig(),
			MetricsPrefix:  "feesched",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info(fmt.Sprintf("listening on :%d", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err, "server forced to shutdown")
	}

	log.Info("server exited properly")
}
