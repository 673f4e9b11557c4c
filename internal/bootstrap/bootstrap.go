// Package bootstrap assembles the extraction pipeline from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/codebuildervaibhav/transcript-extractor/internal/cleanup"
	"github.com/codebuildervaibhav/transcript-extractor/internal/config"
	"github.com/codebuildervaibhav/transcript-extractor/internal/logger"
	"github.com/codebuildervaibhav/transcript-extractor/internal/notify"
	"github.com/codebuildervaibhav/transcript-extractor/internal/pipeline"
	"github.com/codebuildervaibhav/transcript-extractor/internal/storage"
	"github.com/codebuildervaibhav/transcript-extractor/internal/transcription"
)

// Components are the long-lived pieces built from one configuration
type Components struct {
	Orchestrator *pipeline.Orchestrator
	Store        storage.ObjectStore
	// Local is set when the local backend is selected
	Local *storage.LocalStorage
	// DB is nil when the ledger is disabled
	DB *storage.MetadataDB
}

// Close releases the ledger
func (c *Components) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// LoadAWS resolves AWS credentials and region the SDK's default way
func LoadAWS(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Engine.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}

// Build wires the orchestrator and its collaborators. The object store
// follows cfg.Storage.Backend and the engine cfg.Engine.Backend; the
// notification publisher always uses AWS.
func Build(ctx context.Context, cfg *config.Config, awsCfg aws.Config, log *logger.Logger) (*Components, error) {
	c := &Components{}

	switch cfg.Storage.Backend {
	case config.BackendLocal:
		c.Local = storage.NewLocalStorage(cfg.Storage.LocalRoot)
		c.Store = c.Local
		log.Info("using local object store", "root", cfg.Storage.LocalRoot)
	default:
		c.Store = storage.NewS3StoreFromConfig(awsCfg)
		log.Info("using S3 object store", "region", cfg.Engine.Region)
	}

	var ledger pipeline.Ledger
	if cfg.Storage.Database != "" {
		if err := cleanup.EnsureDirExists(filepath.Dir(cfg.Storage.Database)); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		db, err := storage.NewMetadataDB(cfg.Storage.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.DB = db
		ledger = db
	}

	var mirror pipeline.Mirror
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err == nil {
		driveClient, err := storage.NewDriveClient(ctx, cfg.GoogleDrive.CredentialsFile, cfg.GoogleDrive.TokenFile, cfg.GoogleDrive.FolderName)
		if err != nil {
			log.Warn("Google Drive not available, transcripts stay in the primary store only", "error", err)
		} else {
			mirror = driveClient
			log.Info("Google Drive mirror enabled", "folder", cfg.GoogleDrive.FolderName)
		}
	} else {
		log.Debug("Google Drive credentials not found, mirror disabled")
	}

	var publisher notify.Publisher
	if cfg.Notifications.TopicARN != "" || cfg.Notifications.UploadTopicARN != "" {
		publisher = notify.NewSNSPublisherFromConfig(awsCfg)
	}
	dispatcher := notify.NewDispatcher(publisher, notify.Topics{
		Default: cfg.Notifications.TopicARN,
		Upload:  cfg.Notifications.UploadTopicARN,
	}, log)

	engine, err := buildEngine(cfg, awsCfg, c.Store, log)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Orchestrator = pipeline.New(pipeline.Deps{
		Submitter: transcription.NewSubmitter(engine, transcription.SubmitterConfig{
			LanguageCode:    cfg.Engine.LanguageCode,
			OutputContainer: cfg.Storage.OutputBucket,
			MaxSpeakers:     cfg.Engine.MaxSpeakers,
		}, log),
		Poller: transcription.NewPoller(engine, transcription.PollerConfig{
			Interval:    cfg.PollInterval(),
			MaxAttempts: cfg.Engine.PollMaxAttempts,
			Timeout:     cfg.PollTimeout(),
		}, log),
		Reconciler: transcription.NewReconciler(ReconcilerOptions(cfg)),
		Store:      c.Store,
		Notifier:   dispatcher,
		Ledger:     ledger,
		Mirror:     mirror,
		Log:        log,
	}, cfg.Storage.OutputBucket)

	return c, nil
}

func buildEngine(cfg *config.Config, awsCfg aws.Config, store storage.ObjectStore, log *logger.Logger) (transcription.Engine, error) {
	if cfg.Engine.Backend != config.EngineReplay {
		log.Info("using Amazon Transcribe engine", "region", cfg.Engine.Region)
		return transcription.NewAWSEngineFromConfig(awsCfg), nil
	}

	var fallback []byte
	if cfg.Engine.ReplayResult != "" {
		data, err := os.ReadFile(cfg.Engine.ReplayResult)
		if err != nil {
			return nil, fmt.Errorf("failed to read replay result: %w", err)
		}
		if _, err := transcription.ParseResult(data); err != nil {
			return nil, fmt.Errorf("invalid replay result %s: %w", cfg.Engine.ReplayResult, err)
		}
		fallback = data
	}
	log.Info("using replay engine", "fallback", cfg.Engine.ReplayResult)
	return transcription.NewReplayEngine(store, fallback), nil
}

// ReconcilerOptions maps the reconcile section onto reconciler policies
func ReconcilerOptions(cfg *config.Config) transcription.ReconcilerOptions {
	opts := transcription.ReconcilerOptions{UnknownLabel: cfg.Reconcile.UnknownSpeakerLabel}
	if cfg.Reconcile.UnknownSpeaker == config.UnknownSpeakerPrevious {
		opts.UnknownSpeaker = transcription.AttributePrevious
	}
	if cfg.Reconcile.UntimedTokens == config.UntimedAppend {
		opts.Untimed = transcription.AppendUntimed
	}
	return opts
}
