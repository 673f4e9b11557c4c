package transcription

import (
	"encoding/json"
	"fmt"

	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// RawResult matches the engine's JSON result document
type RawResult struct {
	JobName string `json:"jobName"`
	Status  string `json:"status"`
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
		SpeakerLabels *RawSpeakerLabels `json:"speaker_labels,omitempty"`
		Items         []RawItem         `json:"items"`
	} `json:"results"`
}

// RawSpeakerLabels holds the engine's diarization output
type RawSpeakerLabels struct {
	Speakers int                 `json:"speakers"`
	Segments []RawSpeakerSegment `json:"segments"`
}

// RawSpeakerSegment is one speaker stretch with its per-word sub-intervals
type RawSpeakerSegment struct {
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	SpeakerLabel string `json:"speaker_label"`
	Items        []struct {
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	} `json:"items"`
}

// RawItem is one recognized word or punctuation mark
type RawItem struct {
	StartTime    string           `json:"start_time,omitempty"`
	EndTime      string           `json:"end_time,omitempty"`
	Type         string           `json:"type"`
	Alternatives []RawAlternative `json:"alternatives"`
}

// RawAlternative is one candidate content for an item
type RawAlternative struct {
	Confidence string `json:"confidence"`
	Content    string `json:"content"`
}

// ParseResult decodes a raw result document
func ParseResult(data []byte) (*RawResult, error) {
	var raw RawResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse transcription result: %w", err)
	}
	return &raw, nil
}

// Segments flattens the diarization output. A result without speaker labels
// yields no segments.
func (r *RawResult) Segments() []types.SpeakerSegment {
	if r.Results.SpeakerLabels == nil {
		return nil
	}
	segments := make([]types.SpeakerSegment, 0, len(r.Results.SpeakerLabels.Segments))
	for _, seg := range r.Results.SpeakerLabels.Segments {
		starts := make([]string, 0, len(seg.Items))
		for _, it := range seg.Items {
			starts = append(starts, it.StartTime)
		}
		segments = append(segments, types.SpeakerSegment{
			SpeakerLabel: seg.SpeakerLabel,
			StartTimes:   starts,
		})
	}
	return segments
}

// Words returns the item stream in engine order, taking the first
// alternative's content for each item.
func (r *RawResult) Words() []types.WordItem {
	words := make([]types.WordItem, 0, len(r.Results.Items))
	for _, it := range r.Results.Items {
		var content string
		if len(it.Alternatives) > 0 {
			content = it.Alternatives[0].Content
		}
		words = append(words, types.WordItem{
			StartTime: it.StartTime,
			Content:   content,
		})
	}
	return words
}
