package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/tanadol/reelforge/internal/models"
)

const geminiScriptModel = "gemini-2.0-flash"

// GeminiService is the alternative script provider, using the Google Gen AI
// SDK. The client is created per call; the SDK keeps no useful state and a
// stale client pins a cancelled context.
type GeminiService struct {
	apiKey string
	log    zerolog.Logger
}

func NewGeminiService(apiKey string, log zerolog.Logger) *GeminiService {
	return &GeminiService{apiKey: apiKey, log: log}
}

// GenerateStoicContent generates a Thai Stoic narration with Gemini. The
// response is asked for as bare JSON; code fences are stripped defensively
// since Gemini wraps JSON in them now and then.
func (s *GeminiService) GenerateStoicContent(ctx context.Context, theme string) (*models.StoicContent, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	prompt := stoicSystemPrompt + "\n\nReturn only the JSON object, no code fences.\n\n" + buildStoicUserPrompt(theme)
	resp, err := client.Models.GenerateContent(ctx, geminiScriptModel, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	raw := strings.TrimSpace(resp.Text())
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var script generatedScript
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &script); err != nil {
		s.log.Error().Err(err).Str("raw", truncate(raw, 500)).Msg("failed to parse gemini script")
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
