package transcription

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	ttypes "github.com/aws/aws-sdk-go-v2/service/transcribe/types"

	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// TranscribeAPI is the subset of the Amazon Transcribe client the engine uses
type TranscribeAPI interface {
	StartTranscriptionJob(ctx context.Context, in *transcribe.StartTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, in *transcribe.GetTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error)
}

// AWSEngine runs jobs on Amazon Transcribe
type AWSEngine struct {
	client TranscribeAPI
}

// NewAWSEngine wraps a Transcribe client
func NewAWSEngine(client TranscribeAPI) *AWSEngine {
	return &AWSEngine{client: client}
}

// NewAWSEngineFromConfig builds the Transcribe client from an AWS config
func NewAWSEngineFromConfig(cfg aws.Config) *AWSEngine {
	return NewAWSEngine(transcribe.NewFromConfig(cfg))
}

func (e *AWSEngine) Start(ctx context.Context, req JobRequest) (types.JobHandle, error) {
	in := &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(req.JobName),
		Media:                &ttypes.Media{MediaFileUri: aws.String(req.MediaURI)},
		MediaFormat:          ttypes.MediaFormat(req.MediaFormat),
		LanguageCode:         ttypes.LanguageCode(req.LanguageCode),
	}
	if req.OutputContainer != "" {
		in.OutputBucketName = aws.String(req.OutputContainer)
	}
	if req.Diarization {
		in.Settings = &ttypes.Settings{
			ShowSpeakerLabels: aws.Bool(true),
			MaxSpeakerLabels:  aws.Int32(int32(req.MaxSpeakers)),
		}
	}

	out, err := e.client.StartTranscriptionJob(ctx, in)
	if err != nil {
		return types.JobHandle{}, fmt.Errorf("start transcription job %s: %w", req.JobName, err)
	}
	return handleFromJob(req.JobName, out.TranscriptionJob), nil
}

func (e *AWSEngine) Status(ctx context.Context, jobName string) (types.JobHandle, error) {
	out, err := e.client.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
	})
	if err != nil {
		return types.JobHandle{}, fmt.Errorf("get transcription job %s: %w", jobName, err)
	}
	return handleFromJob(jobName, out.TranscriptionJob), nil
}

func handleFromJob(jobName string, job *ttypes.TranscriptionJob) types.JobHandle {
	handle := types.JobHandle{JobName: jobName, Status: types.StatusInProgress}
	if job == nil {
		return handle
	}
	if name := aws.ToString(job.TranscriptionJobName); name != "" {
		handle.JobName = name
	}
	switch job.TranscriptionJobStatus {
	case ttypes.TranscriptionJobStatusCompleted:
		handle.Status = types.StatusCompleted
	case ttypes.TranscriptionJobStatusFailed:
		handle.Status = types.StatusFailed
	}
	if job.Transcript != nil {
		handle.ResultURI = aws.ToString(job.Transcript.TranscriptFileUri)
	}
	handle.FailureReason = aws.ToString(job.FailureReason)
	return handle
}

var _ Engine = (*AWSEngine)(nil)
