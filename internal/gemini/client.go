// Package gemini wraps the Google GenAI SDK as the two external oracles the
// system depends on: audio feature extraction and voice synthesis. Both are
// single-shot request/response calls; retry policy belongs to callers.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"soniccluster/internal/library"
)

// analysisSystemInstruction primes the multimodal model to act as a feature
// extractor with stable, schema-constrained output.
const analysisSystemInstruction = `
You are an expert musicologist AI. Your task is to listen to audio files and extract precise audio features for clustering purposes.
Analyze the audio for the following:
1. Energy (0.0 - 1.0): Intensity and activity.
2. Valence (0.0 - 1.0): Musical positiveness (sad/depressed to happy/cheerful).
3. Danceability (0.0 - 1.0): Suitability for dancing.
4. Acousticness (0.0 - 1.0): Likelihood the track is acoustic.
5. Tempo: Estimated Beats Per Minute (BPM).
6. Description: A vivid, 15-20 word description capturing the specific mood, instrumentation, and genre nuances (e.g., "A melancholic lo-fi hip-hop track with dusty piano samples and a laid-back boom-bap beat").
`

var featureSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"energy":       {Type: genai.TypeNumber, Description: "Energy level from 0.0 to 1.0"},
		"valence":      {Type: genai.TypeNumber, Description: "Valence level from 0.0 to 1.0"},
		"danceability": {Type: genai.TypeNumber, Description: "Danceability level from 0.0 to 1.0"},
		"acousticness": {Type: genai.TypeNumber, Description: "Acousticness level from 0.0 to 1.0"},
		"tempo":        {Type: genai.TypeNumber, Description: "Estimated BPM"},
		"description":  {Type: genai.TypeString, Description: "A short mood description"},
	},
	Required: []string{"energy", "valence", "danceability", "acousticness", "tempo", "description"},
}

// Client holds a GenAI connection plus the model selection for both oracles.
type Client struct {
	client        *genai.Client
	analysisModel string
	ttsModel      string
	voice         string
}

// NewClient connects to the GenAI API.
func NewClient(ctx context.Context, apiKey, analysisModel, ttsModel, voice string) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Client{
		client:        c,
		analysisModel: analysisModel,
		ttsModel:      ttsModel,
		voice:         voice,
	}, nil
}

// Analyze sends the raw audio bytes to the analysis model and returns the
// extracted feature vector. API errors are returned unwrapped so the caller
// can classify them.
func (c *Client) Analyze(ctx context.Context, data []byte, mimeType string) (library.AudioFeatures, error) {
	if mimeType == "" {
		mimeType = "audio/mp3"
	}

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText("Analyze this audio track and return its musical features in JSON format."),
		},
	}}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(analysisSystemInstruction)},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema:   featureSchema,
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.analysisModel, contents, cfg)
	if err != nil {
		return library.AudioFeatures{}, err
	}

	text := collectText(resp)
	if text == "" {
		return library.AudioFeatures{}, fmt.Errorf("no response from model")
	}

	var f library.AudioFeatures
	if err := json.Unmarshal([]byte(text), &f); err != nil {
		return library.AudioFeatures{}, fmt.Errorf("parse features: %w", err)
	}
	return f, nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}
