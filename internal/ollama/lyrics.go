package ollama

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/inagotable26/kara/internal/lyrics"
)

// LyricsGenerator asks an LLM for time-aligned lyrics in LRC format. Output
// is accepted only when more than half of its non-empty lines carry a valid
// timestamp; a failed attempt is retried once against a higher-capability
// model before giving up.
type LyricsGenerator struct {
	client        *Client
	escalateModel string // tried when the default model's output fails validation
}

// NewLyricsGenerator creates a lyric generator. escalateModel may be empty,
// in which case the retry reuses the default model.
func NewLyricsGenerator(client *Client, escalateModel string) *LyricsGenerator {
	return &LyricsGenerator{
		client:        client,
		escalateModel: escalateModel,
	}
}

// lyricsSystemPrompt instructs the LLM to emit LRC-formatted lyrics.
const lyricsSystemPrompt = `You are a karaoke lyric transcriber.

Given a song title and artist, output the song's lyrics in LRC format: every
line starts with a timestamp [MM:SS.xx] marking when that line is sung,
followed by the line's text.

Rules:
- Timestamp format is exactly [MM:SS.xx]: two-digit minutes, two-digit
  seconds, two-digit hundredths. Example: [00:17.50]
- One lyric line per output line, timestamps strictly increasing
- Cover the whole song from the first sung line to the last
- Plain text only after each timestamp: no markdown, no section labels,
  no translations

NEVER include explanations, preambles, code fences, or anything that is not
a timestamped lyric line.

/no_think`

// Generate returns validated LRC lyrics for the given song, or an error
// suitable for showing to the user. The caller's existing lyric text should
// be left untouched on error.
func (g *LyricsGenerator) Generate(ctx context.Context, title, artist string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("song title is required")
	}

	prompt := fmt.Sprintf("Song: %s", title)
	if artist != "" {
		prompt += fmt.Sprintf("\nArtist: %s", artist)
	}

	text, err := g.attempt(ctx, g.client.Model(), prompt)
	if err == nil {
		return text, nil
	}
	log.Printf("Lyric generation with %s failed (%v), retrying with %s", g.client.Model(), err, g.retryModel())

	text, err = g.attempt(ctx, g.retryModel(), prompt)
	if err != nil {
		return "", fmt.Errorf("could not generate usable lyrics: %w (enter lyrics manually)", err)
	}
	return text, nil
}

func (g *LyricsGenerator) retryModel() string {
	if g.escalateModel != "" {
		return g.escalateModel
	}
	return g.client.Model()
}

// attempt runs one generation pass and validates the timestamp density.
func (g *LyricsGenerator) attempt(ctx context.Context, model, prompt string) (string, error) {
	raw, err := g.client.GenerateWithModel(ctx, model, lyricsSystemPrompt, prompt)
	if err != nil {
		return "", err
	}

	text := cleanLyrics(raw)
	if text == "" {
		return "", fmt.Errorf("model returned empty output")
	}
	if !lyrics.MostlyTimestamped(text) {
		return "", fmt.Errorf("model output is not timestamped lyric text")
	}
	return text, nil
}

// cleanLyrics strips common LLM artifacts: thinking tags, code fences, and
// surrounding quotes.
func cleanLyrics(s string) string {
	s = strings.TrimSpace(s)

	// Strip thinking tags (Qwen 3 thinking mode leakage)
	if idx := strings.Index(s, "</think>"); idx >= 0 {
		s = strings.TrimSpace(s[idx+len("</think>"):])
	}

	// Strip a surrounding code fence
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// Strip surrounding quotes
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	return strings.TrimSpace(s)
}
