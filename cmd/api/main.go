package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-signup-nosql/internal/application/auth"
	"github.com/go-signup-nosql/internal/application/otp"
	"github.com/go-signup-nosql/internal/application/session"
	"github.com/go-signup-nosql/internal/application/username"
	"github.com/go-signup-nosql/internal/application/verification"
	"github.com/go-signup-nosql/internal/config"
	"github.com/go-signup-nosql/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-signup-nosql/internal/infrastructure/jwt"
	redisinfra "github.com/go-signup-nosql/internal/infrastructure/redis"
	"github.com/go-signup-nosql/internal/infrastructure/smtp"
	"github.com/go-signup-nosql/internal/infrastructure/sns"
	"github.com/go-signup-nosql/internal/observability/metrics"
	"github.com/go-signup-nosql/internal/pkg/logger"
	"github.com/go-signup-nosql/internal/pkg/membership"
	transporthttp "github.com/go-signup-nosql/internal/transport/http"
	"github.com/go-signup-nosql/internal/transport/http/handler"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()

	zl, err := logger.New(cfg.IsProduction())
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	if envErr != nil {
		zl.Info("no .env file found, reading from environment")
	}

	metrics.MustRegister()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Authoritative store: unreachable at boot is fatal.
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		zl.Fatal("dynamodb client", zap.Error(err))
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables, zl)
	if err := dynamo.Ping(ctx, dynamoClient, cfg.DynamoTables.Users); err != nil {
		zl.Fatal("dynamodb unreachable", zap.Error(err))
	}
	users := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables, cfg.StoreTimeout)

	// Cache: unreachable at boot is fatal.
	rdb, err := redisinfra.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		zl.Fatal("redis unreachable", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()
	cache := redisinfra.NewStore(rdb, cfg.RedisKeyPrefix)

	// Membership index: a failed build leaves it unset and every lookup
	// falls through to the cache and store.
	var index *membership.Index
	start := time.Now()
	if idx, n, err := membership.Build(ctx, users, cfg.BloomCapacity, cfg.BloomFPRate); err != nil {
		zl.Warn("membership index not built", zap.Error(err))
	} else {
		index = idx
		zl.Info("membership index built", zap.Int("usernames", n), zap.Duration("took", time.Since(start)))
	}

	signer, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		zl.Fatal("jwt provider", zap.Error(err))
	}

	var events sns.EventPublisher
	if cfg.SNSTopicARN != "" {
		if p, err := sns.NewPublisher(ctx, cfg); err == nil {
			events = p
		} else {
			zl.Warn("registration events disabled", zap.Error(err))
		}
	}

	resolver := username.NewResolver(username.ResolverDeps{
		Index:  index,
		Cache:  cache,
		Store:  users,
		Logger: zl,
	})
	sessions := session.NewIssuer(signer, cache, zl)

	authSvc := auth.NewService(auth.ServiceDeps{
		Users:        users,
		Usernames:    resolver,
		Codes:        otp.NewManager(cache, zl),
		Verification: verification.NewManager(cache),
		Sessions:     sessions,
		Mailer:       smtp.NewMailer(cfg),
		Events:       events,
		BcryptCost:   cfg.BcryptCost,
		Logger:       zl,
	})

	router := transporthttp.NewRouter(ctx, cfg, &transporthttp.Deps{
		Auth:     authSvc,
		Sessions: sessions,
		Health: map[string]handler.Check{
			"dynamodb": func(ctx context.Context) error {
				return dynamo.Ping(ctx, dynamoClient, cfg.DynamoTables.Users)
			},
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Logger: zl,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("server starting", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	zl.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("forced shutdown", zap.Error(err))
		return
	}
	zl.Info("server stopped")
}
