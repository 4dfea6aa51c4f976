package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/yourusername/cbt-api/internal/config"
	"github.com/yourusername/cbt-api/internal/domain/repository"
	"github.com/yourusername/cbt-api/internal/handler"
	"github.com/yourusername/cbt-api/internal/middleware"
	"github.com/yourusername/cbt-api/internal/repository/memory"
	pgRepo "github.com/yourusername/cbt-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/cbt-api/internal/repository/redis"
	"github.com/yourusername/cbt-api/internal/service"
	"github.com/yourusername/cbt-api/pkg/auth"
	"github.com/yourusername/cbt-api/pkg/database"
)

// repositories — набор хранилищ, выбранный по storage.backend
type repositories struct {
	codes     repository.TestCodeRepository
	results   repository.ResultRepository
	questions repository.QuestionRepository
	activity  repository.ActivityLogRepository
	txManager repository.TxManager
	cache     repository.CacheRepository
	closers   []func() error
}

func main() {
	// .env необязателен, переменные окружения имеют приоритет
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	isProduction := gin.Mode() == gin.ReleaseMode

	repos, err := initRepositories(cfg, isProduction)
	if err != nil {
		log.Printf("Failed to initialize storage: %v", err)
		os.Exit(1)
	}
	defer repos.close()

	// Инициализируем сервисы
	activity := service.NewActivityLogger(repos.activity)
	generator := service.NewCodeGenerator(repos.questions, repos.txManager, activity, service.CodeGeneratorConfig{
		MaxBatchSize: cfg.CBT.MaxBatchSize,
		MaxAttempts:  cfg.CBT.CodeAttempts,
	})
	gate := service.NewActivationGate(repos.txManager, activity)
	tracker := service.NewSessionTracker(repos.codes, repos.results, repos.questions, repos.cache, cfg.CBT.SessionGrace())
	scorer := service.NewSubmissionScorer(repos.codes, repos.results, repos.questions, repos.txManager, tracker, activity)
	resultService := service.NewResultService(repos.results, repos.codes)
	codeService := service.NewTestCodeService(repos.codes)

	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	routes := &handler.Routes{
		TestCodes: handler.NewTestCodeHandler(generator, gate, codeService, resultService, cfg.CBT.StoreTimeout()),
		Tests:     handler.NewTestHandler(tracker, scorer, resultService, cfg.CBT.StoreTimeout()),
		Auth:      middleware.NewAuthMiddleware(jwtService),
	}
	if cfg.RateLimit.Enabled {
		routes.RateLimiter = middleware.NewRateLimiter(repos.cache)
		routes.RateLimit = middleware.RateLimitConfig{
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
			KeyPrefix:   middleware.DefaultTestRateLimitConfig().KeyPrefix,
		}
	}

	// Инициализируем роутер Gin
	router := gin.Default()

	// В production не доверяем прокси-заголовкам (защита от IP spoofing)
	trustedProxies := []string{"127.0.0.1", "::1"}
	if isProduction {
		trustedProxies = nil
	}
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		log.Printf("Warning: failed to set trusted proxies: %v", err)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "ok"})
	})
	routes.Register(router.Group("/api"))

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s (storage: %s)", cfg.Server.Port, cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		return
	}

	log.Println("Server exited properly")
}

// initRepositories подключает Postgres и Redis или создает хранилище в памяти
func initRepositories(cfg *config.Config, isProduction bool) (*repositories, error) {
	if cfg.Storage.Backend == config.StorageBackendMemory {
		log.Println("Using in-memory storage: data is lost on restart")
		store := memory.NewStore()
		return &repositories{
			codes:     store.TestCodes(),
			results:   store.Results(),
			questions: store.Questions(),
			activity:  store.ActivityLogRepo(),
			txManager: store.TxManager(),
			cache:     memory.NewCacheRepo(),
		}, nil
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), !isProduction)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateDB(db, cfg.Database.MigrationsPath); err != nil {
		return nil, err
	}

	redisClient, err := database.NewUniversalRedisClient(cfg.Redis, cfg.CBT.StoreTimeout())
	if err != nil {
		return nil, err
	}
	log.Println("Successfully connected to Redis")

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		redisClient.Close()
		return nil, err
	}

	repos := &repositories{
		codes:     pgRepo.NewTestCodeRepo(db),
		results:   pgRepo.NewResultRepo(db),
		questions: pgRepo.NewQuestionRepo(db),
		activity:  pgRepo.NewActivityLogRepo(db),
		txManager: pgRepo.NewTxManager(db),
		cache:     cacheRepo,
		closers:   []func() error{redisClient.Close},
	}
	if sqlDB, err := db.DB(); err == nil {
		repos.closers = append(repos.closers, sqlDB.Close)
	}
	return repos, nil
}

func (r *repositories) close() {
	for _, closeFn := range r.closers {
		if err := closeFn(); err != nil {
			log.Printf("Error closing storage: %v", err)
		}
	}
}
