package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/codebuildervaibhav/transcript-extractor/internal/bootstrap"
	"github.com/codebuildervaibhav/transcript-extractor/internal/config"
	"github.com/codebuildervaibhav/transcript-extractor/internal/logger"
	"github.com/codebuildervaibhav/transcript-extractor/internal/pipeline"
	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// Runner processes one uploaded object
type Runner interface {
	Run(ctx context.Context, src types.SourceRef) types.Response
}

func newHandler(runner Runner, log *logger.Logger) func(ctx context.Context, evt events.S3Event) (types.Response, error) {
	return func(ctx context.Context, evt events.S3Event) (types.Response, error) {
		src, err := pipeline.FirstSource(evt)
		if err != nil {
			log.Warn("rejecting event", "records", len(evt.Records), "error", err)
			return types.Response{
				StatusCode: http.StatusBadRequest,
				Body:       fmt.Sprintf("Invalid event: %v", err),
			}, nil
		}
		if len(evt.Records) > 1 {
			log.Warn("event carries several records, only the first is processed", "records", len(evt.Records))
		}
		return runner.Run(ctx, src), nil
	}
}

func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}
	// The function filesystem is read-only outside /tmp, so the ledger is
	// opt-in through TRANSCRIPT_DATABASE.
	if os.Getenv("TRANSCRIPT_DATABASE") == "" {
		cfg.Storage.Database = ""
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		stdlog.Fatalf("Failed to initialize logger: %v", err)
	}
	defer log.Sync()

	ctx := context.Background()
	awsCfg, err := bootstrap.LoadAWS(ctx, cfg)
	if err != nil {
		log.Fatal("failed to load AWS config", "error", err)
	}
	components, err := bootstrap.Build(ctx, cfg, awsCfg, log)
	if err != nil {
		log.Fatal("failed to build pipeline", "error", err)
	}
	defer components.Close()

	lambda.Start(newHandler(components.Orchestrator, log))
}
