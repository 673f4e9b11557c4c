package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/codebuildervaibhav/transcript-extractor/internal/logger"
)

// Event identifies a lifecycle notification
type Event string

const (
	EventUploadReceived      Event = "upload_received"
	EventExtractionCompleted Event = "extraction_completed"
	EventExtractionFailed    Event = "extraction_failed"
)

// Payload is the JSON message body of every notification
type Payload struct {
	Bucket string `json:"bucket"`
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Publisher delivers a message to a topic
type Publisher interface {
	Publish(ctx context.Context, topic, subject string, payload Payload) error
}

type template struct {
	subject string
	status  string
}

var templates = map[Event]template{
	EventUploadReceived:      {subject: "Audio/Video File Upload Successful", status: "Upload Successful"},
	EventExtractionCompleted: {subject: "Audio/Video Extraction Completed", status: "Extraction Completed"},
	EventExtractionFailed:    {subject: "Audio/Video Extraction Failed", status: "Extraction Failed"},
}

// Topics maps events to topics. Upload falls back to Default when empty.
type Topics struct {
	Default string
	Upload  string
}

func (t Topics) forEvent(event Event) string {
	if event == EventUploadReceived && strings.TrimSpace(t.Upload) != "" {
		return t.Upload
	}
	return t.Default
}

// Dispatcher publishes lifecycle events. Publishing is fire-and-forget:
// failures are logged and never reach the caller.
type Dispatcher struct {
	publisher Publisher
	topics    Topics
	log       *logger.Logger
}

// NewDispatcher builds a dispatcher. With no publisher or no topic configured
// every notification is dropped with a debug log.
func NewDispatcher(publisher Publisher, topics Topics, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		topics:    topics,
		log:       log.With("component", "notify"),
	}
}

// Notify publishes event for the object identified by bucket and jobID
func (d *Dispatcher) Notify(ctx context.Context, event Event, bucket, jobID string) {
	tmpl, ok := templates[event]
	if !ok {
		d.log.Warn("unknown notification event", "event", event)
		return
	}
	topic := d.topics.forEvent(event)
	if d.publisher == nil || topic == "" {
		d.log.Debug("notification skipped, no topic configured", "event", event, "job_id", jobID)
		return
	}

	payload := Payload{Bucket: bucket, JobID: jobID, Status: tmpl.status}
	if err := d.publisher.Publish(ctx, topic, tmpl.subject, payload); err != nil {
		d.log.Error("failed to publish notification", "event", event, "topic", topic, "job_id", jobID, "error", err)
		return
	}
	d.log.Info("notification published", "event", event, "topic", topic, "job_id", jobID)
}

// SNSAPI is the subset of the SNS client the publisher uses
type SNSAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes notifications to Amazon SNS topics
type SNSPublisher struct {
	client SNSAPI
}

// NewSNSPublisher wraps an SNS client
func NewSNSPublisher(client SNSAPI) *SNSPublisher {
	return &SNSPublisher{client: client}
}

// NewSNSPublisherFromConfig builds the SNS client from an AWS config
func NewSNSPublisherFromConfig(cfg aws.Config) *SNSPublisher {
	return NewSNSPublisher(sns.NewFromConfig(cfg))
}

func (p *SNSPublisher) Publish(ctx context.Context, topic, subject string, payload Payload) error {
	msg, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(topic),
		Subject:  aws.String(subject),
		Message:  aws.String(string(msg)),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

var _ Publisher = (*SNSPublisher)(nil)
