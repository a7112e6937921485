package main

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"

	"shopfront/pkg/cache"
	"shopfront/pkg/config"
	"shopfront/pkg/http"
	"shopfront/pkg/logging"
	"shopfront/pkg/middleware"
	"shopfront/pkg/service"
	"shopfront/pkg/storage"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	ctx := context.Background()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.NewLogger(logging.LogLevel(cfg.LogLevel))

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	if err := storage.Migrate(ctx, pool); err != nil {
		log.Fatal(err)
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal(err)
	}
	redisClient := redis.NewClient(opt)
	defer redisClient.Close()

	linkCache := cache.NewLinkCache(redisClient)
	store := storage.NewPostgresStorage(pool)

	linkService := service.NewLockedLinkService(store, linkCache, logger)
	shopService := service.NewShopService(store, linkCache, logger)

	var uploadService *service.UploadService
	if cfg.AWSBucketName != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			log.Fatal(err)
		}
		uploadService = service.NewUploadService(s3.NewFromConfig(awsCfg), cfg.AWSBucketName, logger)
	} else {
		logger.Logger.Warn("AWS_BUCKET_NAME not set, uploads disabled")
	}

	var oauthMiddleware *middleware.OAuthMiddleware
	if cfg.OIDCIssuer != "" {
		oauthMiddleware, err = middleware.NewOAuthMiddleware(middleware.OAuthConfig{
			IssuerURL: cfg.OIDCIssuer,
			Audience:  cfg.OIDCAudience,
		}, logger)
		if err != nil {
			log.Fatal("failed to create OAuth middleware:", err)
		}
	} else {
		logger.Logger.Warn("OIDC_ISSUER not set, running without authentication")
	}

	handler := http.NewHandler(linkService, shopService, uploadService, cfg.PublicBaseURL, logger)

	r := chi.NewRouter()
	http.SetupRoutes(r, handler, oauthMiddleware)

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Println("Starting API server on", addr)
	log.Fatal(stdhttp.ListenAndServe(addr, r))
}
