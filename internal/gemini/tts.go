package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"soniccluster/internal/audio"
)

// Synthesize renders the caption as speech and returns the decoded waveform:
// raw PCM, 24kHz, mono, 16-bit signed (audio.VoiceSampleRate). The clip is
// buffered whole; there is no streaming playback.
func (c *Client) Synthesize(ctx context.Context, text string) ([]int16, error) {
	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{genai.NewPartFromText(text)},
	}}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.voice},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.ttsModel, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no audio data returned")
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData != nil && len(p.InlineData.Data) > 0 {
			return audio.BytesToSamples(p.InlineData.Data), nil
		}
	}
	return nil, fmt.Errorf("no audio data returned")
}
