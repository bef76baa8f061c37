package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/goout-id/goout/internal/api"
	"github.com/goout-id/goout/internal/app"
	"github.com/goout-id/goout/internal/app/maintenance"
	iauth "github.com/goout-id/goout/internal/auth"
	"github.com/goout-id/goout/internal/cache"
	"github.com/goout-id/goout/internal/database"
	"github.com/goout-id/goout/internal/monitoring"
	"github.com/goout-id/goout/internal/monitoring/checks"
	"github.com/goout-id/goout/internal/storage"
	"github.com/goout-id/goout/internal/verification"
	"github.com/goout-id/goout/pkg/logger"
	"github.com/goout-id/goout/pkg/mail"
)

const probeTimeout = 2 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Redis    *cache.RedisStore
	Cache    cache.Store
	Verifier *verification.Service
	Cleaner  *maintenance.Cleaner
	Router   *gin.Engine
}

// bootstrapRuntime initialises databases, caches, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)
	stack.Cache = dbStore
	if cfg.Cache.Redis.Enabled {
		redisCfg, err := cfg.Cache.RedisClientConfig()
		if err != nil {
			return nil, err
		}
		if stack.Redis, err = cache.NewRedisStore(ctx, redisCfg); err != nil {
			log.Warn("redis unavailable; falling back to database-backed cache", zap.Error(err))
		} else {
			stack.Cache = stack.Redis
			log.Info("redis connected", zap.String("addr", redisCfg.Address))
		}
	}

	mailer, err := mail.New(cfg.Email.MailSettings(), logger.WithModule("mail"))
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}

	stack.Verifier, err = verification.NewService(
		verification.NewGormSessionStore(stack.DB, cfg.Auth.VerificationStoreOptions()...),
		verification.NewGormTokenStore(stack.DB, cfg.Auth.VerificationStoreOptions()...),
		verification.NewGormUserDirectory(stack.DB),
		mailer,
		cfg.Auth.VerificationOptions(cfg.Server.PublicURL, cfg.Email.Sender())...,
	)
	if err != nil {
		return nil, fmt.Errorf("initialise verification service: %w", err)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	deps := api.Dependencies{
		DB:       stack.DB,
		Config:   cfg,
		JWT:      jwtSvc,
		Verifier: stack.Verifier,
		Cache:    stack.Cache,
		Health: monitoring.NewHealthManager(
			checks.Database(stack.DB, probeTimeout),
			checks.Cache(stack.Cache, probeTimeout),
		),
	}

	if cfg.Auth.OIDC.Enabled {
		login, err := iauth.NewOIDCLogin(ctx, cfg.Auth.OIDCLoginConfig(), stack.Cache)
		if err != nil {
			return nil, fmt.Errorf("initialise oidc login: %w", err)
		}
		deps.OIDC = login
		log.Info("oidc login enabled", zap.String("issuer", cfg.Auth.OIDC.Issuer))
	}

	deps.Uploader, err = buildUploader(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	if cfg.Maintenance.Enabled {
		opts := []maintenance.Option{
			maintenance.WithVerificationSchedule(cfg.Maintenance.Schedule),
			maintenance.WithCacheSchedule(cfg.Maintenance.CacheSchedule),
		}
		if stack.Redis == nil {
			opts = append(opts, maintenance.WithCachePurger(dbStore))
		}
		stack.Cleaner = maintenance.NewCleaner(stack.Verifier, opts...)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(deps)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// buildUploader returns the S3 uploader, or a disabled one when no bucket is configured.
func buildUploader(ctx context.Context, cfg app.StorageConfig) (storage.Uploader, error) {
	if !cfg.S3.Enabled {
		return storage.Disabled{}, nil
	}

	settings := cfg.S3Settings()
	client, err := storage.NewS3Client(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("initialise s3 client: %w", err)
	}
	uploader, err := storage.NewS3Uploader(client, settings)
	if err != nil {
		return nil, fmt.Errorf("initialise s3 uploader: %w", err)
	}
	return uploader, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			<-stopCtx.Done()
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
		s.Cleaner = nil
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
		s.Redis = nil
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
		s.DB = nil
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseSettings()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}
