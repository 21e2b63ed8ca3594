package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/templui/docshelf/internal/config"
	"github.com/templui/docshelf/internal/db"
	"github.com/templui/docshelf/internal/model"
	"github.com/templui/docshelf/internal/repository"
	"github.com/templui/docshelf/internal/service"
	"github.com/templui/docshelf/internal/storage"
)

type App struct {
	Cfg   *config.Config
	DB    *sqlx.DB
	Redis *redis.Client // nil unless TOKEN_STORE=redis

	Catalog             *model.Catalog
	Storage             storage.Storage
	AccountService      *service.AccountService
	AuthService         *service.AuthService
	CredentialService   *service.CredentialService
	RegistrationService *service.RegistrationService
	UserService         *service.UserService
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.RunMigrations(ctx, database.DB, cfg.DBDriver); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	fileStorage, err := storage.New(cfg)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var redisClient *redis.Client
	tokenRepository := repository.NewTokenRepository(database)
	if cfg.TokenStore == config.TokenStoreRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		tokenRepository = repository.NewRedisTokenRepository(redisClient, "docshelf")
		slog.Info("token store", "backend", "redis", "addr", cfg.RedisAddr)
	}

	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)

	a := Assemble(cfg, database, fileStorage, tokenRepository, emailService)
	a.Redis = redisClient
	return a, nil
}

// Assemble wires repositories and services over already opened
// infrastructure.
func Assemble(
	cfg *config.Config,
	database *sqlx.DB,
	fileStorage storage.Storage,
	tokenRepository repository.TokenRepository,
	notifier service.Notifier,
) *App {
	catalog := model.DefaultCatalog()

	userRepository := repository.NewUserRepository(database)
	accountRepository := repository.NewAccountRepository(database, catalog)
	documentRepository := repository.NewDocumentRepository(database)

	hasher := service.NewBcryptHasher(cfg.BcryptCost)
	credentialService := service.NewCredentialService(tokenRepository, notifier)

	return &App{
		Cfg:               cfg,
		DB:                database,
		Catalog:           catalog,
		Storage:           fileStorage,
		CredentialService: credentialService,
		AccountService: service.NewAccountService(
			accountRepository,
			userRepository,
			documentRepository,
			fileStorage,
			catalog,
		),
		AuthService: service.NewAuthService(
			userRepository,
			hasher,
			cfg.JWTSecret,
			cfg.JWTExpiry,
			cfg.IsProduction(),
		),
		RegistrationService: service.NewRegistrationService(
			accountRepository,
			userRepository,
			credentialService,
			hasher,
			catalog,
			cfg.TokenRegistrationExpiry,
		),
		UserService: service.NewUserService(
			userRepository,
			credentialService,
			hasher,
			cfg.TokenPasswordResetExpiry,
		),
	}
}

// RunTokenCleanup sweeps stale tokens every interval until ctx is done.
func (a *App) RunTokenCleanup(ctx context.Context, interval, retention time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.CredentialService.Cleanup(ctx, retention); err != nil {
				slog.Error("token cleanup failed", "error", err)
			}
		}
	}
}

func (a *App) Close() error {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Warn("failed to close redis", "error", err)
		}
	}
	return db.Close(a.DB)
}
