package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/vidscribe/api/internal/client"
	"github.com/vidscribe/api/internal/config"
	"github.com/vidscribe/api/internal/handler"
	"github.com/vidscribe/api/internal/media"
	"github.com/vidscribe/api/internal/middleware"
	"github.com/vidscribe/api/internal/service"
	"github.com/vidscribe/api/internal/store"
	ws "github.com/vidscribe/api/internal/websocket"
	"github.com/vidscribe/api/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}

	// Job store
	jobsPath := cfg.Storage.JobsFile
	if !filepath.IsAbs(jobsPath) && filepath.Dir(jobsPath) == "." {
		jobsPath = filepath.Join(cfg.Storage.DataDir, jobsPath)
	}
	jobStore, err := store.NewFileStore(jobsPath)
	if err != nil {
		log.Fatalf("Failed to open job store: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Test Redis connection
	ctx := context.Background()
	redisOK := true
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
		redisOK = false
	}

	// Initialize external clients
	groqClient := client.NewGroqClient(&cfg.Groq)
	if !groqClient.IsConfigured() {
		log.Println("Warning: GROQ_API_KEY not set, transcription and chat will fail")
	}

	var r2Client *client.R2Client
	if cfg.R2.AccessKeyID != "" {
		r2Client, err = client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Printf("Warning: R2 client disabled: %v", err)
			r2Client = nil
		}
	}

	// Media pipeline
	runner := &media.ExecRunner{}
	var objects media.ObjectFetcher
	if r2Client != nil {
		objects = r2Client
	}
	var titles *media.TitleResolver
	if cfg.Media.TitleLookup {
		titles = media.NewTitleResolver(nil)
	}
	acquirer := media.NewAcquirer(cfg.Storage.DataDir, media.NewDownloader(cfg.Media.YtDlpPath, runner), media.NewFeedResolver(), titles, objects)
	splitter := media.NewSplitter(cfg.Media.FFmpegPath, runner, cfg.Media.SplitThresholdBytes, cfg.Media.SegmentSeconds)

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	// Initialize services
	orchestrator := service.NewOrchestrator(jobStore, acquirer, splitter, service.NewTranscriptionDriver(groqClient), hub, cfg.Storage.DataDir)

	var (
		dispatcher  service.Dispatcher
		pool        *worker.Pool
		asynqServer *asynq.Server
	)
	useAsynq := cfg.Worker.Mode == "asynq" && redisOK
	if useAsynq {
		asynqClient := asynq.NewClient(redisOpt(cfg))
		defer asynqClient.Close()
		dispatcher = service.NewAsynqDispatcher(asynqClient)
		log.Println("Dispatching jobs through asynq")
	} else {
		pool = worker.NewPool(orchestrator, cfg.Worker.Concurrency, 100)
		dispatcher = pool
		log.Println("Dispatching jobs to the in-process worker pool")
	}

	jobService := service.NewJobService(jobStore, dispatcher, cfg.Storage.DataDir)
	chatService := service.NewChatService(jobStore, groqClient, &cfg.Chat)

	queued := recoverThenStart(ctx, orchestrator, func() {
		if useAsynq {
			asynqServer = startWorkerServer(cfg, orchestrator)
			return
		}
		pool.Start()
	})
	if pool != nil {
		jobService.Resubmit(ctx, queued)
	}

	// Initialize validator
	validate := validator.New()

	// Initialize handlers
	jobHandler := handler.NewJobHandler(jobService, validate, int64(cfg.Upload.MaxBytes))
	chatHandler := handler.NewChatHandler(chatService, validate)

	// Initialize middleware
	var limiterRedis *redis.Client
	if redisOK {
		limiterRedis = redisClient
	}
	rateLimiter := middleware.NewRateLimiter(limiterRedis)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    cfg.Upload.MaxBytes + 1024*1024,
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":   "Video transcript API is running",
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"store":  true,
				"groq":   groqClient.IsConfigured(),
				"redis":  redisClient.Ping(c.Context()).Err() == nil,
				"r2":     r2Client.IsConfigured(),
				"worker": workerMode(pool),
			},
		})
	})

	// API routes
	api := app.Group("/api")
	api.Post("/process", rateLimiter.ProcessLimit(cfg.RateLimit.ProcessPerHour), jobHandler.Process)
	api.Post("/upload", rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour), jobHandler.Upload)
	api.Get("/status/:jobId", jobHandler.Status)
	api.Get("/result/:jobId", jobHandler.Result)
	api.Get("/jobs", jobHandler.List)
	api.Delete("/job/:jobId", jobHandler.Delete)
	api.Post("/chat", rateLimiter.ChatLimit(cfg.RateLimit.ChatPerMin), chatHandler.Ask)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"))
	}))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Printf("Server error: %v", err)
	}

	if asynqServer != nil {
		asynqServer.Shutdown()
	}
	if pool != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := pool.Shutdown(shutdownCtx); err != nil {
			log.Printf("Worker pool shutdown error: %v", err)
		}
	}
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func workerMode(pool *worker.Pool) string {
	if pool != nil {
		return "local"
	}
	return "asynq"
}

func startWorkerServer(cfg *config.Config, orchestrator *service.Orchestrator) *asynq.Server {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	concurrency := cfg.Worker.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	srv := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				service.QueueTranscribe: 1,
			},
			LogLevel: asynqLogLevel,
		},
	)

	transcribeWorker := worker.NewTranscribeWorker(orchestrator)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeTranscribe, transcribeWorker.ProcessTask)

	if err := srv.Start(mux); err != nil {
		log.Fatalf("Asynq worker error: %v", err)
	}
	return srv
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	errCode := "SERVICE_ERROR"
	if code == fiber.StatusRequestEntityTooLarge {
		errCode = "VALIDATION_ERROR"
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    errCode,
			"message": message,
		},
	})
}
