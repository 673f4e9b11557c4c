package pipeline

import (
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// SourceFromRecord extracts the uploaded object from one storage event
// record. The key is the form-decoded one events.S3Object fills in while
// unmarshalling.
func SourceFromRecord(rec events.S3EventRecord) (types.SourceRef, error) {
	bucket := rec.S3.Bucket.Name
	if bucket == "" {
		return types.SourceRef{}, fmt.Errorf("%w: record has no bucket", types.ErrInvalidEvent)
	}
	key := rec.S3.Object.URLDecodedKey
	if key == "" {
		return types.SourceRef{}, fmt.Errorf("%w: record has no object key", types.ErrInvalidEvent)
	}
	return types.SourceRef{Bucket: bucket, Key: key}, nil
}

// FirstSource returns the object named by the event's first record. Further
// records are ignored.
func FirstSource(evt events.S3Event) (types.SourceRef, error) {
	if len(evt.Records) == 0 {
		return types.SourceRef{}, fmt.Errorf("%w: event has no records", types.ErrInvalidEvent)
	}
	return SourceFromRecord(evt.Records[0])
}
