// Package bootstrap assembles the application's dependencies: database or
// in-memory repositories, object store, model client, mailer, and router.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"audit-backend/internal/analyses"
	"audit-backend/internal/llm"
	"audit-backend/internal/llm/anthropic"
	"audit-backend/internal/mailer"
	"audit-backend/internal/pipeline"
	"audit-backend/internal/shared/config"
	"audit-backend/internal/shared/server"
	"audit-backend/internal/shared/storage/db"
	"audit-backend/internal/shared/storage/object"
	localstore "audit-backend/internal/shared/storage/object/local"
	s3store "audit-backend/internal/shared/storage/object/s3"
	"audit-backend/internal/uploads"
	"audit-backend/internal/users"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Mail   mailer.Mailer
	LLM    llm.Client

	UsersRepo    users.Repo
	UploadsRepo  uploads.Repo
	AnalysesRepo analyses.Repo

	Pipeline        *pipeline.Service
	PipelineHandler *pipeline.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	mail, err := buildMailer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Mail:   mail,
		LLM:    llmClient,
	}

	if sqlDB != nil {
		app.UsersRepo = &users.PGRepo{DB: sqlDB}
		app.UploadsRepo = &uploads.PGRepo{DB: sqlDB}
		app.AnalysesRepo = &analyses.PGRepo{DB: sqlDB}
	} else {
		app.UsersRepo = users.NewMemoryRepo()
		app.UploadsRepo = uploads.NewMemoryRepo()
		app.AnalysesRepo = analyses.NewMemoryRepo()
	}

	app.Pipeline = pipeline.New(
		app.UsersRepo, app.UploadsRepo, app.AnalysesRepo,
		app.Store, app.LLM, app.Mail,
		cfg.LLMModel, cfg.AnalysisLookback,
	)
	app.PipelineHandler = pipeline.NewHandler(app.Pipeline, app.AnalysesRepo)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Pipeline: app.PipelineHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.PublicBaseURL)
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.PublicBaseURL), nil
	}
}

func buildMailer(ctx context.Context, cfg config.Config) (mailer.Mailer, error) {
	switch cfg.EmailProvider {
	case "ses":
		return mailer.NewSES(ctx, cfg.AWSRegion, cfg.EmailFrom)
	default:
		return mailer.NewLog(), nil
	}
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: ANTHROPIC_API_KEY empty; using placeholder model client")
			return llm.Placeholder{}, nil
		}
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}

	client, err := anthropic.New(anthropic.Options{
		APIKey:      apiKey,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
	})
	if err != nil {
		return nil, err
	}
	return llm.WithRetry(client), nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
