package main

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"

	"shopfront/pkg/cache"
	"shopfront/pkg/config"
	httphandler "shopfront/pkg/http"
	"shopfront/pkg/logging"
	"shopfront/pkg/security"
	"shopfront/pkg/service"
	"shopfront/pkg/storage"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// The unlock server is the only piece exposed to anonymous visitors. It
// serves the password prompt for locked links and nothing else.
func main() {
	ctx := context.Background()

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

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal(err)
	}
	redisClient := redis.NewClient(opt)
	defer redisClient.Close()

	linkCache := cache.NewLinkCache(redisClient)
	store := storage.NewPostgresStorage(pool)

	linkService := service.NewLockedLinkService(store, linkCache, logger)
	csrfManager := security.NewCSRFTokenManager()

	var files httphandler.FileResolver
	if cfg.AWSBucketName != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			log.Fatal(err)
		}
		files = service.NewUploadService(s3.NewFromConfig(awsCfg), cfg.AWSBucketName, logger)
	} else {
		logger.Logger.Warn("AWS_BUCKET_NAME not set, file-backed links cannot be served")
	}

	handler := httphandler.NewUnlockHandler(linkService, csrfManager, files, logger)

	r := chi.NewRouter()
	httphandler.SetupUnlockRoutes(r, handler)

	addr := fmt.Sprintf(":%d", cfg.UnlockPort)
	log.Println("Starting unlock server on", addr)
	log.Fatal(stdhttp.ListenAndServe(addr, r))
}
