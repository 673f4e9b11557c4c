package transcription

import (
	"strings"

	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// UnknownSpeakerPolicy decides who a word is attributed to when no speaker
// segment covers its start time
type UnknownSpeakerPolicy int

const (
	// AttributeUnknown attributes the word to the sentinel label
	AttributeUnknown UnknownSpeakerPolicy = iota
	// AttributePrevious attaches the word to the previous turn's speaker,
	// falling back to the sentinel when there is no turn yet
	AttributePrevious
)

// UntimedPolicy decides what happens to items without a start time
type UntimedPolicy int

const (
	// SkipUntimed drops untimed items entirely
	SkipUntimed UntimedPolicy = iota
	// AppendUntimed glues untimed items onto the current turn with no
	// separating space; they are dropped while no turn exists yet
	AppendUntimed
)

// ReconcilerOptions configures a Reconciler. The zero value labels unknown
// speakers "unknown_speaker" and skips untimed items.
type ReconcilerOptions struct {
	UnknownLabel   string
	UnknownSpeaker UnknownSpeakerPolicy
	Untimed        UntimedPolicy
}

// Reconciler merges the word stream with the diarization output into
// ordered, coalesced speaker turns. It holds no state between calls.
type Reconciler struct {
	opts ReconcilerOptions
}

// NewReconciler creates a new reconciler
func NewReconciler(opts ReconcilerOptions) *Reconciler {
	if opts.UnknownLabel == "" {
		opts.UnknownLabel = types.DefaultUnknownSpeaker
	}
	return &Reconciler{opts: opts}
}

// SpeakerIndex maps a sub-interval start time to its speaker label. When the
// source repeats a start time, the last segment wins.
func SpeakerIndex(segments []types.SpeakerSegment) map[string]string {
	index := make(map[string]string)
	for _, seg := range segments {
		for _, start := range seg.StartTimes {
			index[start] = seg.SpeakerLabel
		}
	}
	return index
}

// Reconcile produces one turn per maximal run of consecutive words with the
// same attributed speaker, in item order. Same-speaker turns separated by
// another speaker are never merged.
func (r *Reconciler) Reconcile(segments []types.SpeakerSegment, items []types.WordItem) []types.ConversationTurn {
	index := SpeakerIndex(segments)

	var turns []*strings.Builder
	var speakers []string

	for _, item := range items {
		if !item.Timed() {
			if r.opts.Untimed == AppendUntimed && len(turns) > 0 {
				turns[len(turns)-1].WriteString(item.Content)
			}
			continue
		}

		speaker, ok := index[item.StartTime]
		if !ok {
			speaker = r.opts.UnknownLabel
			if r.opts.UnknownSpeaker == AttributePrevious && len(speakers) > 0 {
				speaker = speakers[len(speakers)-1]
			}
		}

		if n := len(speakers); n > 0 && speakers[n-1] == speaker {
			turns[n-1].WriteByte(' ')
			turns[n-1].WriteString(item.Content)
			continue
		}

		b := &strings.Builder{}
		b.WriteString(item.Content)
		turns = append(turns, b)
		speakers = append(speakers, speaker)
	}

	out := make([]types.ConversationTurn, len(turns))
	for i := range turns {
		out[i] = types.ConversationTurn{Speaker: speakers[i], Text: turns[i].String()}
	}
	return out
}

// ReconcileResult runs Reconcile over a parsed raw result
func (r *Reconciler) ReconcileResult(raw *RawResult) []types.ConversationTurn {
	return r.Reconcile(raw.Segments(), raw.Words())
}
