package pipeline

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

func decodeEvent(t *testing.T, payload string) events.S3Event {
	t.Helper()
	var evt events.S3Event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	return evt
}

func TestFirstSource(t *testing.T) {
	evt := decodeEvent(t, `{"Records":[
		{"s3":{"bucket":{"name":"uploads"},"object":{"key":"team/Weekly+Sync%281%29.mp4"}}},
		{"s3":{"bucket":{"name":"uploads"},"object":{"key":"ignored.mp3"}}}
	]}`)
	got, err := FirstSource(evt)
	if err != nil {
		t.Fatalf("FirstSource: %v", err)
	}
	want := types.SourceRef{Bucket: "uploads", Key: "team/Weekly Sync(1).mp4"}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestFirstSourceDecodesUnicodeKeys(t *testing.T) {
	evt := decodeEvent(t, `{"Records":[{"s3":{"bucket":{"name":"uploads"},"object":{"key":"caf%C3%A9+r%C3%A9union.mp3"}}}]}`)
	got, err := FirstSource(evt)
	if err != nil {
		t.Fatalf("FirstSource: %v", err)
	}
	if got.Key != "café réunion.mp3" {
		t.Fatalf("unexpected key %q", got.Key)
	}
}

func TestFirstSourceInvalid(t *testing.T) {
	tests := map[string]string{
		"no records": `{"Records":[]}`,
		"no bucket":  `{"Records":[{"s3":{"object":{"key":"a.mp3"}}}]}`,
		"no key":     `{"Records":[{"s3":{"bucket":{"name":"uploads"},"object":{}}}]}`,
	}
	for name, payload := range tests {
		if _, err := FirstSource(decodeEvent(t, payload)); !errors.Is(err, types.ErrInvalidEvent) {
			t.Fatalf("%s: expected ErrInvalidEvent, got %v", name, err)
		}
	}
}

func TestUndecodableKeyFailsUnmarshal(t *testing.T) {
	var evt events.S3Event
	err := json.Unmarshal([]byte(`{"Records":[{"s3":{"bucket":{"name":"uploads"},"object":{"key":"a%zz.mp3"}}}]}`), &evt)
	if err == nil {
		t.Fatal("expected an unmarshal error for a malformed escape")
	}
}
