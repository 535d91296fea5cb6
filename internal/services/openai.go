package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/tanadol/reelforge/internal/models"
)

const (
	openaiScriptModel = "gpt-4o-mini"
	openaiTTSVoice    = openai.VoiceAlloy
)

// OpenAIService generates Stoic scripts via chat completion and synthesizes
// Thai narration via the speech endpoint.
type OpenAIService struct {
	client  *openai.Client
	tempDir string
	log     zerolog.Logger
}

func NewOpenAIService(apiKey, tempDir string, log zerolog.Logger) *OpenAIService {
	return &OpenAIService{
		client:  openai.NewClient(apiKey),
		tempDir: tempDir,
		log:     log,
	}
}

// generatedScript is the JSON shape the model is asked to produce.
type generatedScript struct {
	Theme           string   `json:"theme"`
	Quote           string   `json:"quote"`
	Narrative       string   `json:"narrative"`
	VoiceoverScript string   `json:"voiceover_script"`
	Keywords        []string `json:"keywords"`
	EmotionalTone   string   `json:"emotional_tone"`
}

// GenerateStoicContent asks the model for a fresh Thai Stoic narration on
// the given theme, using JSON mode for a parseable response.
func (s *OpenAIService) GenerateStoicContent(ctx context.Context, theme string) (*models.StoicContent, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openaiScriptModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: stoicSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildStoicUserPrompt(theme),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.9,
	})
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	raw := resp.Choices[0].Message.Content
	var script generatedScript
	if err := json.Unmarshal([]byte(raw), &script); err != nil {
		s.log.Error().Err(err).Str("raw", truncate(raw, 500)).Msg("failed to parse generated script")
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if script.Narrative == "" || script.Quote == "" {
		return nil, fmt.Errorf("generated script is missing narrative or quote")
	}
	if script.VoiceoverScript == "" {
		script.VoiceoverScript = BuildVoiceoverScript(script.Narrative, script.Quote)
	}
	if script.EmotionalTone == "" {
		script.EmotionalTone = "powerful"
	}

	return &models.StoicContent{
		Theme:           script.Theme,
		Quote:           script.Quote,
		Narrative:       script.Narrative,
		VoiceoverScript: script.VoiceoverScript,
		Keywords:        script.Keywords,
		EmotionalTone:   script.EmotionalTone,
	}, nil
}

// Synthesize converts a narration script to an mp3 file. Direction markers
// are stripped before the text reaches the speech model.
func (s *OpenAIService) Synthesize(ctx context.Context, script string) (*models.VoiceoverAsset, error) {
	clean := CleanScriptForTTS(script)
	if clean == "" {
		return nil, fmt.Errorf("script is empty after cleaning")
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          clean,
		Voice:          openaiTTSVoice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Close()

	path := filepath.Join(s.tempDir, fmt.Sprintf("voiceover_%s.mp3", uuid.New().String()[:8]))
	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	n, err := io.Copy(out, resp)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write voiceover: %w", err)
	}

	duration := EstimateSpeechDuration(clean)
	s.log.Info().Str("path", path).Int64("bytes", n).Float64("est_duration", duration).
		Msg("voiceover synthesized")

	return &models.VoiceoverAsset{
		Script:            clean,
		LocalPath:         path,
		EstimatedDuration: duration,
		Metadata: models.JSONB{
			"voice":    string(openaiTTSVoice),
			"language": "th-TH",
		},
	}, nil
}

const stoicSystemPrompt = `You are a Thai scriptwriter for short motivational videos grounded in Stoic philosophy.
Write entirely in Thai. The narration is read aloud as a voiceover, so favor short lines, natural speech rhythm, and a powerful, calm delivery.

Respond with a JSON object containing exactly these fields:
- theme: the theme name in Thai
- quote: one strong Stoic aphorism in Thai
- narrative: the main narration, 6-12 short lines separated by newlines
- voiceover_script: the narrative followed by the quote, with bracketed Thai delivery directions on their own lines
- keywords: 3-5 Thai keywords
- emotional_tone: one English word describing the tone`

func buildStoicUserPrompt(theme string) string {
	if theme == "" {
		return "Write a Thai Stoic narration on a theme of your choice."
	}
	return fmt.Sprintf("Write a Thai Stoic narration on the theme %q.", theme)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
