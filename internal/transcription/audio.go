package transcription

import (
	"fmt"
	"path"
	"strings"

	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// supportedFormats are the media formats the engine accepts
var supportedFormats = []string{"mp3", "mp4", "wav", "flac", "ogg", "amr", "webm", "m4a"}

// MediaFormat derives the engine media format from an object key's extension
func MediaFormat(key string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(key)), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no file extension", types.ErrSubmission, key)
	}
	for _, format := range supportedFormats {
		if ext == format {
			return ext, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported media format %q", types.ErrSubmission, ext)
}

// ValidateAudioFormat checks if the file format is supported
func ValidateAudioFormat(filename string) bool {
	_, err := MediaFormat(filename)
	return err == nil
}

// TranscriptKey is the object key the formatted transcript is saved under:
// the source key with its final extension replaced by ".txt".
func TranscriptKey(sourceKey string) string {
	return replaceExt(sourceKey, ".txt")
}

func replaceExt(key, ext string) string {
	return strings.TrimSuffix(key, path.Ext(key)) + ext
}

// MediaURI is the s3 URI the engine reads the source object from
func MediaURI(src types.SourceRef) string {
	return fmt.Sprintf("s3://%s/%s", src.Bucket, src.Key)
}
