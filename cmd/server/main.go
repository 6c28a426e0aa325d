package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"pairtalk/infrastructure/cache"
	"pairtalk/infrastructure/db"
	"pairtalk/internal/config"
	httpDelivery "pairtalk/internal/delivery/http"
	"pairtalk/internal/repository"
	"pairtalk/internal/usecase"
	"pairtalk/pkg/jwt"
	"pairtalk/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	var log *logger.Logger
	var err error
	if cfg.DevMode {
		log, err = logger.NewDevelopment()
	} else {
		log, err = logger.New(cfg.LogLevel)
	}
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "development-secret-change-in-production"
		log.Warn("using default JWT secret, set JWT_SECRET in production")
	}

	ctx := context.Background()

	mongoStore, err := db.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatal("connect mongodb", zap.Error(err))
	}
	defer mongoStore.Close(ctx)

	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		log.Fatal("ensure indexes", zap.Error(err))
	}
	log.Info("connected to mongodb", zap.String("database", cfg.MongoDatabase))

	var searchCache cache.Cache
	if cfg.RedisAddr != "" {
		searchCache, err = cache.NewRedisCache(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("connect redis", zap.Error(err))
		}
		log.Info("using redis cache", zap.String("addr", cfg.RedisAddr))
	} else {
		memCache := cache.NewMemCache(cfg.SearchCacheTTL)
		defer memCache.Close()
		searchCache = memCache
		log.Info("using in-memory cache")
	}

	// Repositories
	userRepo := repository.NewUserRepository(mongoStore.DB)
	conversationRepo := repository.NewConversationRepository(mongoStore.DB)
	messageRepo := repository.NewMessageRepository(mongoStore.DB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(mongoStore.DB)

	jwtManager := jwt.NewJWTManager(cfg.JWTSecret, cfg.AccessTokenDuration, cfg.RefreshTokenDuration)

	// Use cases
	authUc := usecase.NewAuthUsecase(userRepo, refreshTokenRepo, jwtManager)
	userUc := usecase.NewUserUsecase(userRepo, searchCache, cfg.UserSearchLimit, cfg.SearchCacheTTL)
	conversationUc := usecase.NewConversationUsecase(conversationRepo, userRepo)
	messageUc := usecase.NewMessageUsecase(messageRepo, conversationRepo, cfg.MaxMessageContent)

	// Handlers
	chatHandler := httpDelivery.NewChatHandler(conversationUc, messageUc, userUc, log)
	authHandler := httpDelivery.NewAuthHandler(authUc, log)
	authMiddleware := httpDelivery.NewAuthMiddleware(authUc)

	router := chi.NewRouter()
	httpDelivery.MapRoutes(router, chatHandler, authHandler, authMiddleware, log, cfg.CORSOrigin, func(r *http.Request) error {
		return mongoStore.Ping(r.Context())
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("http server running", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
