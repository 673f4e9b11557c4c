package transcription

import (
	"fmt"
	"strings"

	"github.com/codebuildervaibhav/transcript-extractor/internal/types"
)

// FormatTranscript renders one paragraph per turn as "**speaker**:text",
// paragraphs separated by a blank line.
func FormatTranscript(turns []types.ConversationTurn) string {
	var b strings.Builder
	for _, turn := range turns {
		fmt.Fprintf(&b, "**%s**:%s\n\n", turn.Speaker, turn.Text)
	}
	return b.String()
}

// ParseTranscript recovers the turns from a FormatTranscript document
func ParseTranscript(doc string) ([]types.ConversationTurn, error) {
	var turns []types.ConversationTurn
	for i, para := range strings.Split(doc, "\n\n") {
		if para == "" {
			continue
		}
		rest, ok := strings.CutPrefix(para, "**")
		if !ok {
			return nil, fmt.Errorf("paragraph %d: missing speaker label", i)
		}
		speaker, text, ok := strings.Cut(rest, "**:")
		if !ok {
			return nil, fmt.Errorf("paragraph %d: unterminated speaker label", i)
		}
		turns = append(turns, types.ConversationTurn{Speaker: speaker, Text: text})
	}
	return turns, nil
}
