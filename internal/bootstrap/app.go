package bootstrap

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"pdfchat-backend/internal/auth"
	"pdfchat-backend/internal/conversations"
	"pdfchat-backend/internal/documents"
	"pdfchat-backend/internal/extract"
	"pdfchat-backend/internal/llm"
	"pdfchat-backend/internal/llm/gemini"
	"pdfchat-backend/internal/llm/openai"
	"pdfchat-backend/internal/services/health"
	sharedauth "pdfchat-backend/internal/shared/auth"
	"pdfchat-backend/internal/shared/config"
	"pdfchat-backend/internal/shared/lock"
	"pdfchat-backend/internal/shared/server"
	"pdfchat-backend/internal/shared/server/middleware"
	"pdfchat-backend/internal/shared/storage/db"
	"pdfchat-backend/internal/shared/storage/object"
	localstore "pdfchat-backend/internal/shared/storage/object/local"
	s3store "pdfchat-backend/internal/shared/storage/object/s3"
	"pdfchat-backend/internal/users"
)

const lockKeyPrefix = "pdfchat:lock"

// App holds shared dependencies and the configured router.
type App struct {
	Config               config.Config
	Router               *gin.Engine
	DB                   *sql.DB
	Store                object.ObjectStore
	Locker               lock.Locker
	Generator            llm.Generator
	UsersRepo            users.Repo
	DocumentsRepo        documents.DocumentsRepo
	UsersService         *users.Service
	AuthService          *auth.Service
	DocumentsService     *documents.Service
	ConversationEngine   *conversations.Engine
	Health               *health.Service
	AuthHandler          *auth.Handler
	GoogleAuth           *auth.GoogleService
	UsersHandler         *users.Handler
	DocumentsHandler     *documents.Handler
	ConversationsHandler *conversations.Handler

	closers []func() error
}

// Build prepares dependencies and wires routes.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	app := &App{Config: cfg, Health: health.NewService()}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if sqlDB != nil {
		app.DB = sqlDB
		app.closers = append(app.closers, sqlDB.Close)
		app.Health.Register("database", sqlDB.PingContext)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	locker, err := buildLocker(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Locker = locker
	if rl, ok := locker.(*lock.RedisLocker); ok {
		app.closers = append(app.closers, rl.Close)
		app.Health.Register("redis", rl.Ping)
	}

	generator, err := buildGenerator(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Generator = generator

	if err := buildServices(app); err != nil {
		app.Close()
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:              app.Config,
		Resolver:            tokenResolver(app.AuthService),
		Health:              app.Health,
		AuthHandler:         app.AuthHandler,
		GoogleAuth:          app.GoogleAuth,
		UserHandler:         app.UsersHandler,
		DocumentHandler:     app.DocumentsHandler,
		ConversationHandler: app.ConversationsHandler,
	})

	return app, nil
}

// Close releases connections opened by Build.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Endpoint)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLocker(ctx context.Context, cfg config.Config) (lock.Locker, error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return lock.NewMemoryLocker(), nil
	}
	rl, err := lock.NewRedisLocker(cfg.RedisAddr, cfg.RedisPassword, lockKeyPrefix)
	if err != nil {
		return nil, err
	}
	if err := rl.Ping(ctx); err != nil {
		rl.Close()
		if cfg.IsDevLike() {
			log.Printf("bootstrap: redis unreachable; using in-process locks: %v", err)
			return lock.NewMemoryLocker(), nil
		}
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rl, nil
}

func buildGenerator(cfg config.Config) (llm.Generator, error) {
	var base llm.Generator
	switch cfg.LLMProvider {
	case "openai":
		client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		base = client
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			if !cfg.IsDevLike() {
				return nil, fmt.Errorf("GEMINI_API_KEY is required")
			}
			log.Printf("bootstrap: GEMINI_API_KEY empty; questions will fail until a provider is configured")
			base = llm.PlaceholderGenerator{}
			break
		}
		client, err := gemini.NewClient(cfg.GeminiAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		base = client
	default:
		base = llm.PlaceholderGenerator{}
	}
	return llm.NewRetryingGenerator(base, cfg.GenerationTimeout), nil
}

func buildServices(app *App) error {
	cfg := app.Config

	if app.DB != nil {
		app.UsersRepo = &users.PGRepo{DB: app.DB}
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
	} else {
		app.UsersRepo = users.NewMemoryRepo()
		app.DocumentsRepo = documents.NewMemoryRepo()
	}

	secret := cfg.JWTSecret
	if secret == "" {
		if !cfg.IsDevLike() {
			return fmt.Errorf("JWT_SECRET is required")
		}
		secret = randomSecret()
		log.Printf("bootstrap: JWT_SECRET empty; using a random secret, tokens will not survive restarts")
	}
	tokens, err := sharedauth.NewTokenManager(secret, cfg.JWTAlgorithm, cfg.AccessTokenTTL)
	if err != nil {
		return err
	}

	app.UsersService = users.NewService(app.UsersRepo)
	app.AuthService = auth.NewService(app.UsersService, tokens)
	app.DocumentsService = documents.NewService(
		app.Store,
		app.DocumentsRepo,
		extract.NewStoreExtractor(app.Store),
		app.Locker,
		cfg.MaxUploadBytes,
	)
	app.ConversationEngine = conversations.NewEngine(app.DocumentsRepo, app.Generator, app.Locker, cfg.GenerationTimeout)

	app.AuthHandler = auth.NewHandler(app.AuthService)
	app.GoogleAuth = auth.NewGoogleService(
		app.AuthService,
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
	)
	app.UsersHandler = users.NewHandler(app.UsersService)
	app.DocumentsHandler = documents.NewHandler(app.DocumentsService)
	app.ConversationsHandler = conversations.NewHandler(app.ConversationEngine)
	return nil
}

func tokenResolver(svc *auth.Service) middleware.TokenResolver {
	return middleware.ResolverFunc(func(ctx context.Context, token string) (middleware.Principal, error) {
		user, err := svc.ResolveToken(ctx, token)
		if err != nil {
			return middleware.Principal{}, err
		}
		return middleware.Principal{UserID: user.ID, Email: user.Email}, nil
	})
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("read random secret: %v", err))
	}
	return hex.EncodeToString(buf)
}
