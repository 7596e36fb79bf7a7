package vision

import (
	"strings"

	"github.com/eleven-am/vision-bridge/internal/frame"
)

const systemInstruction = `You watch a live camera feed for a voice assistant and report only what changes.

Rules:
- If nothing significant changed compared to the previous frame, reply with exactly NO_CHANGE and nothing else.
- Otherwise reply with one or two short sentences describing only what changed: people arriving or leaving, actions, gestures, objects picked up or put down.
- Continue from the prior description. Refer back to people and things with pronouns ("they", "it") instead of describing them again.
- Do not repeat static details of the scene such as clothing, furniture or lighting unless they changed.
- When there is no previous frame, describe the scene briefly in one or two sentences.
- Never speculate, never address the viewer, never use markdown.`

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	CandidateCount  int     `json:"candidateCount"`
}

type generateRequest struct {
	SystemInstruction content          `json:"systemInstruction"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

func buildRequest(current, previous *frame.Snapshot, last *Observation) generateRequest {
	parts := make([]part, 0, 5)

	if last != nil && last.HasText() {
		parts = append(parts, part{Text: "Prior description: " + last.Text})
	}
	if previous != nil && len(previous.Data) > 0 {
		parts = append(parts,
			part{Text: "Previous frame:"},
			imagePart(previous),
		)
	}
	parts = append(parts,
		part{Text: "Current frame:"},
		imagePart(current),
	)

	return generateRequest{
		SystemInstruction: content{Parts: []part{{Text: systemInstruction}}},
		Contents:          []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			MaxOutputTokens: MaxOutputTokens,
			Temperature:     Temperature,
			TopK:            TopK,
			CandidateCount:  CandidateCount,
		},
	}
}

func imagePart(s *frame.Snapshot) part {
	return part{InlineData: &inlineData{
		MimeType: s.MimeType(),
		Data:     s.Base64(),
	}}
}

// parseReply turns raw model text into an observation. An empty reply and
// the NO_CHANGE token, in any case and with trailing punctuation, are both
// treated as unchanged.
func parseReply(text string) Observation {
	trimmed := strings.TrimSpace(text)
	token := strings.TrimRight(trimmed, ".!;:,")
	token = strings.Trim(token, "`\"' ")

	if token == "" || strings.EqualFold(token, NoChangeToken) {
		return Observation{Unchanged: true}
	}
	return Observation{Text: trimmed}
}
