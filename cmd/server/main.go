package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/codebuildervaibhav/transcript-extractor/internal/bootstrap"
	"github.com/codebuildervaibhav/transcript-extractor/internal/cleanup"
	"github.com/codebuildervaibhav/transcript-extractor/internal/config"
	"github.com/codebuildervaibhav/transcript-extractor/internal/handlers"
	"github.com/codebuildervaibhav/transcript-extractor/internal/logger"
	"github.com/codebuildervaibhav/transcript-extractor/internal/queue"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	logBuffer := logger.NewLogBuffer(1000)
	log, err := logger.New(cfg.Log.Mode, logBuffer)
	if err != nil {
		stdlog.Fatalf("Failed to initialize logger: %v", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing components")

	awsCfg, err := bootstrap.LoadAWS(ctx, cfg)
	if err != nil {
		log.Fatal("failed to load AWS config", "error", err)
	}

	components, err := bootstrap.Build(ctx, cfg, awsCfg, log)
	if err != nil {
		log.Fatal("failed to build pipeline", "error", err)
	}
	defer components.Close()

	// Running jobs are cancelled on SIGTERM.
	workerPool := queue.NewWorkerPool(cfg.Workers.Count, cfg.Workers.QueueSize, components.Orchestrator, log)
	workerPool.Start(ctx)

	// Raw results left behind by failed replay runs are swept from the output container.
	if components.Local != nil {
		outputDir := components.Local.ContainerDir(cfg.Storage.OutputBucket)
		if err := cleanup.EnsureDirExists(outputDir); err != nil {
			log.Fatal("failed to create output directory", "dir", outputDir, "error", err)
		}
		cleanupScheduler := cleanup.NewScheduler(outputDir, "*.json",
			cfg.Cleanup.IntervalMinutes, cfg.Cleanup.MaxAgeHours, log)
		cleanupScheduler.Start()
		defer cleanupScheduler.Stop()
	}

	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Limits.MaxFileSizeMB * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{Output: logBuffer}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	deps := handlers.Deps{
		Queue:       workerPool,
		Store:       components.Store,
		Logs:        logBuffer,
		InputBucket: cfg.Storage.InputBucket,
		MaxSizeMB:   cfg.Limits.MaxFileSizeMB,
		Log:         log,
	}
	if components.DB != nil {
		deps.Index = components.DB
	}
	handlers.Register(app, deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("server starting", "addr", addr)
	log.Info("endpoints",
		"POST /events", "S3 event notification",
		"POST /upload", "upload audio or video",
		"GET /jobs/:id", "job status",
		"GET /transcripts", "list transcripts",
		"GET /transcripts/:id/text", "transcript text",
		"GET /logs", "server logs",
		"GET /health", "health check",
	)

	go func() {
		<-ctx.Done()
		log.Info("shutting down gracefully")
		if err := app.Shutdown(); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	if err := app.Listen(addr); err != nil {
		log.Error("server failed", "error", err)
	}

	stop()
	workerPool.Stop()
}
