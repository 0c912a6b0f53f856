package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"dnd-grid/internal/config"
	"dnd-grid/internal/db"
	"dnd-grid/internal/grid"
	apihttp "dnd-grid/internal/http"
	"dnd-grid/internal/repository"
	"dnd-grid/internal/service"
	"dnd-grid/internal/ws"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	characterRepo := repository.NewPgCharacterRepository(pool)
	encounterRepo := repository.NewPgEncounterRepository(pool)

	var (
		loginLimiter service.LoginRateLimiter
		tokenStore   service.RefreshTokenStore
		redisClient  *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			loginLimiter = service.NewRedisLoginRateLimiter(redisClient, 10*time.Minute, 5)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
		}
		cancel()
	}

	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	userSvc := service.NewUserService(logger, userRepo, loginLimiter)

	cache := grid.NewCache()
	rooms := grid.NewBroadcaster(logger)
	coord := grid.NewCoordinator(logger, encounterRepo, cache, rooms, grid.Defaults{
		Width:  cfg.GridDefaultWidth,
		Height: cfg.GridDefaultHeight,
		CellPX: cfg.GridCellPX,
	})

	userHandler := apihttp.NewUserHandler(logger, userSvc, jwtSvc)
	characterHandler := apihttp.NewCharacterHandler(logger, characterRepo)
	encounterHandler := apihttp.NewEncounterHandler(logger, encounterRepo)
	router := apihttp.NewRouter(logger, jwtSvc, userHandler, characterHandler, encounterHandler, ws.Handler(logger, coord))

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
