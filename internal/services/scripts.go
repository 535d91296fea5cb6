package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tanadol/reelforge/internal/models"
)

// ScriptGenerator produces Stoic narration content for motivation videos.
type ScriptGenerator interface {
	GenerateStoicContent(ctx context.Context, theme string) (*models.StoicContent, error)
}

// VoiceSynthesizer renders a narration script to a local audio file.
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, script string) (*models.VoiceoverAsset, error)
}

// NewScriptGenerator selects the content provider. Unknown or unconfigured
// providers fall back to the curated library, which needs no credentials.
func NewScriptGenerator(provider, openaiKey, geminiKey, tempDir string, log zerolog.Logger) ScriptGenerator {
	switch provider {
	case "openai":
		if openaiKey != "" {
			log.Info().Msg("using openai script generation")
			return NewOpenAIService(openaiKey, tempDir, log)
		}
		log.Warn().Msg("openai provider selected but no API key set, using curated library")
	case "gemini":
		if geminiKey != "" {
			log.Info().Msg("using gemini script generation")
			return NewGeminiService(geminiKey, log)
		}
		log.Warn().Msg("gemini provider selected but no API key set, using curated library")
	}
	return NewStoicLibrary()
}
