package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// DefaultPath is where the server looks for its configuration file
const DefaultPath = "config/config.yaml"

// Storage backends
const (
	BackendS3    = "s3"
	BackendLocal = "local"
)

// Engine backends
const (
	EngineTranscribe = "transcribe"
	EngineReplay     = "replay"
)

// Reconciliation policies
const (
	UnknownSpeakerLabel    = "label"
	UnknownSpeakerPrevious = "previous"
	UntimedSkip            = "skip"
	UntimedAppend          = "append"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Engine struct {
		Backend             string `yaml:"backend"`
		ReplayResult        string `yaml:"replay_result"`
		Region              string `yaml:"region"`
		LanguageCode        string `yaml:"language_code"`
		MaxSpeakers         int    `yaml:"max_speakers"`
		PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
		PollMaxAttempts     int    `yaml:"poll_max_attempts"`
		PollTimeoutMinutes  int    `yaml:"poll_timeout_minutes"`
	} `yaml:"engine"`

	Storage struct {
		Backend      string `yaml:"backend"`
		LocalRoot    string `yaml:"local_root"`
		InputBucket  string `yaml:"input_bucket"`
		OutputBucket string `yaml:"output_bucket"`
		Database     string `yaml:"database"`
	} `yaml:"storage"`

	Notifications struct {
		TopicARN       string `yaml:"topic_arn"`
		UploadTopicARN string `yaml:"upload_topic_arn"`
	} `yaml:"notifications"`

	Reconcile struct {
		UnknownSpeaker      string `yaml:"unknown_speaker"`
		UnknownSpeakerLabel string `yaml:"unknown_speaker_label"`
		UntimedTokens       string `yaml:"untimed_tokens"`
	} `yaml:"reconcile"`

	Workers struct {
		Count     int `yaml:"count"`
		QueueSize int `yaml:"queue_size"`
	} `yaml:"workers"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`

	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file overrides it
func Default() Config {
	var c Config
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8080

	c.Engine.Backend = EngineTranscribe
	c.Engine.Region = "us-east-1"
	c.Engine.LanguageCode = "en-US"
	c.Engine.MaxSpeakers = 5
	c.Engine.PollIntervalSeconds = 5
	c.Engine.PollMaxAttempts = 720
	c.Engine.PollTimeoutMinutes = 14

	c.Storage.Backend = BackendS3
	c.Storage.LocalRoot = "data"
	c.Storage.InputBucket = "uploads"
	c.Storage.OutputBucket = "extractedtextimage"
	c.Storage.Database = "data/transcripts.db"

	c.Reconcile.UnknownSpeaker = UnknownSpeakerLabel
	c.Reconcile.UnknownSpeakerLabel = types.DefaultUnknownSpeaker
	c.Reconcile.UntimedTokens = UntimedSkip

	c.Workers.Count = 2
	c.Workers.QueueSize = 100

	c.Cleanup.IntervalMinutes = 60
	c.Cleanup.MaxAgeHours = 24

	c.GoogleDrive.CredentialsFile = "config/credentials.json"
	c.GoogleDrive.TokenFile = "config/token.json"
	c.GoogleDrive.FolderName = "Transcripts"

	c.Limits.MaxFileSizeMB = 500
	c.Log.Mode = "dev"
	return c
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file at DefaultPath is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env string
		dst *string
	}{
		{"AWS_REGION", &c.Engine.Region},
		{"TRANSCRIPT_OUTPUT_BUCKET", &c.Storage.OutputBucket},
		{"TRANSCRIPT_STORAGE_BACKEND", &c.Storage.Backend},
		{"TRANSCRIPT_ENGINE_BACKEND", &c.Engine.Backend},
		{"TRANSCRIPT_REPLAY_RESULT", &c.Engine.ReplayResult},
		{"TRANSCRIPT_TOPIC_ARN", &c.Notifications.TopicARN},
		{"TRANSCRIPT_UPLOAD_TOPIC_ARN", &c.Notifications.UploadTopicARN},
		{"TRANSCRIPT_DATABASE", &c.Storage.Database},
		{"TRANSCRIPT_LOG_MODE", &c.Log.Mode},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.dst = v
		}
	}
}

func (c *Config) normalize() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Engine.Backend = strings.ToLower(strings.TrimSpace(c.Engine.Backend))
	c.Reconcile.UnknownSpeaker = strings.ToLower(strings.TrimSpace(c.Reconcile.UnknownSpeaker))
	c.Reconcile.UntimedTokens = strings.ToLower(strings.TrimSpace(c.Reconcile.UntimedTokens))
	if c.Reconcile.UnknownSpeakerLabel == "" {
		c.Reconcile.UnknownSpeakerLabel = types.DefaultUnknownSpeaker
	}
	if c.Notifications.UploadTopicARN == "" {
		c.Notifications.UploadTopicARN = c.Notifications.TopicARN
	}
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	var problems []string
	if c.Storage.Backend != BackendS3 && c.Storage.Backend != BackendLocal {
		problems = append(problems, fmt.Sprintf("storage.backend must be %q or %q", BackendS3, BackendLocal))
	}
	if c.Engine.Backend != EngineTranscribe && c.Engine.Backend != EngineReplay {
		problems = append(problems, fmt.Sprintf("engine.backend must be %q or %q", EngineTranscribe, EngineReplay))
	}
	// Transcribe can only write its results to S3.
	if c.Storage.Backend == BackendLocal && c.Engine.Backend == EngineTranscribe {
		problems = append(problems, fmt.Sprintf("storage.backend %q requires engine.backend %q", BackendLocal, EngineReplay))
	}
	if c.Storage.OutputBucket == "" {
		problems = append(problems, "storage.output_bucket is required")
	}
	if c.Engine.LanguageCode == "" {
		problems = append(problems, "engine.language_code is required")
	}
	if c.Engine.MaxSpeakers < 2 || c.Engine.MaxSpeakers > 30 {
		problems = append(problems, "engine.max_speakers must be between 2 and 30")
	}
	if c.Engine.PollIntervalSeconds <= 0 {
		problems = append(problems, "engine.poll_interval_seconds must be positive")
	}
	if c.Engine.PollMaxAttempts <= 0 && c.Engine.PollTimeoutMinutes <= 0 {
		problems = append(problems, "engine.poll_max_attempts or engine.poll_timeout_minutes must bound polling")
	}
	if c.Reconcile.UnknownSpeaker != UnknownSpeakerLabel && c.Reconcile.UnknownSpeaker != UnknownSpeakerPrevious {
		problems = append(problems, fmt.Sprintf("reconcile.unknown_speaker must be %q or %q", UnknownSpeakerLabel, UnknownSpeakerPrevious))
	}
	if c.Reconcile.UntimedTokens != UntimedSkip && c.Reconcile.UntimedTokens != UntimedAppend {
		problems = append(problems, fmt.Sprintf("reconcile.untimed_tokens must be %q or %q", UntimedSkip, UntimedAppend))
	}
	if c.Workers.Count <= 0 {
		problems = append(problems, "workers.count must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// PollInterval is the delay between status queries
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Engine.PollIntervalSeconds) * time.Second
}

// PollTimeout bounds the total wait for a terminal status; zero means no deadline
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Engine.PollTimeoutMinutes) * time.Minute
}
