package composer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tanadol/reelforge/internal/mixer"
	"github.com/tanadol/reelforge/internal/models"
)

// AssetFetcher materializes asset locations as local files.
type AssetFetcher interface {
	Fetch(ctx context.Context, location string) (path string, temp bool, err error)
	Cleanup(paths ...string)
}

// Composer turns a validated composition request into exactly one finished
// video file via a single render pass, then verifies the result before
// reporting success.
type Composer struct {
	engine  Engine
	fetcher AssetFetcher
	tempDir string
	log     zerolog.Logger
}

func New(engine Engine, fetcher AssetFetcher, tempDir string, log zerolog.Logger) *Composer {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		panic(fmt.Sprintf("failed to create temp dir: %v", err))
	}
	return &Composer{
		engine:  engine,
		fetcher: fetcher,
		tempDir: tempDir,
		log:     log,
	}
}

// Compose renders one video. On any failure after the render starts, the
// partial output file is removed; callers never see a path to a broken file.
func (c *Composer) Compose(ctx context.Context, req models.CompositionRequest) (*models.ComposedVideo, error) {
	if err := req.Validate(); err != nil {
		return nil, &CompositionError{Reason: ReasonValidation, Err: err}
	}

	videoPath, videoTemp, err := c.fetcher.Fetch(ctx, req.Video.Location())
	if err != nil {
		return nil, failure(ReasonAssetUnavailable, "background video: %w", err)
	}
	if videoTemp {
		defer c.fetcher.Cleanup(videoPath)
	}

	musicPath, musicTemp, err := c.fetcher.Fetch(ctx, req.Music.Location())
	if err != nil {
		return nil, failure(ReasonAssetUnavailable, "background music: %w", err)
	}
	if musicTemp {
		defer c.fetcher.Cleanup(musicPath)
	}

	voicePath := ""
	if req.Voiceover != nil && req.Voiceover.LocalPath != "" {
		voicePath, _, err = c.fetcher.Fetch(ctx, req.Voiceover.LocalPath)
		if err != nil {
			return nil, failure(ReasonAssetUnavailable, "voiceover: %w", err)
		}
	}

	plan := mixer.Plan(req.Kind, req.TargetDuration, voicePath != "")
	if req.Voiceover != nil && plan.VoiceoverTruncated(req.Voiceover.EstimatedDuration) {
		c.log.Warn().
			Str("request_id", req.ID.String()).
			Float64("voice_duration", req.Voiceover.EstimatedDuration).
			Int("target_duration", req.TargetDuration).
			Msg("voiceover runs past target duration and will be cut")
	}

	outputPath := filepath.Join(c.tempDir, fmt.Sprintf("%s_%s.mp4", req.Kind, uuid.New().String()))

	spec := RenderSpec{
		VideoPath:    videoPath,
		MusicPath:    musicPath,
		VoicePath:    voicePath,
		FilterGraph:  plan.FilterGraph().String(),
		VideoOutPad:  mixer.VideoOut,
		AudioOutPad:  mixer.AudioOut,
		Duration:     req.TargetDuration,
		CRF:          plan.Encode.CRF,
		Preset:       plan.Encode.Preset,
		AudioBitrate: plan.Encode.AudioBitrate,
		OutputPath:   outputPath,
	}

	renderCtx, cancel := context.WithTimeout(ctx, time.Duration(plan.Encode.TimeoutSeconds)*time.Second)
	defer cancel()

	start := time.Now()
	if err := c.engine.Render(renderCtx, spec); err != nil {
		os.Remove(outputPath)
		return nil, failure(ReasonEngineInvocation, "render: %w", err)
	}

	probe, err := c.engine.Probe(ctx, outputPath)
	if err != nil {
		os.Remove(outputPath)
		return nil, failure(ReasonOutputVerification, "probe: %w", err)
	}
	if probe.Duration <= 0 {
		os.Remove(outputPath)
		return nil, failure(ReasonOutputVerification,
			"output has zero duration (engine exited cleanly but produced no playable video)")
	}

	c.log.Info().
		Str("request_id", req.ID.String()).
		Str("kind", string(req.Kind)).
		Str("output", outputPath).
		Float64("duration", probe.Duration).
		Dur("render_time", time.Since(start)).
		Msg("composition complete")

	return &models.ComposedVideo{
		ProjectID:  req.ID,
		Path:       outputPath,
		Duration:   probe.Duration,
		Resolution: fmt.Sprintf("%dx%d", mixer.OutputWidth, mixer.OutputHeight),
		ByteSize:   probe.ByteSize,
		Format:     "mp4",
	}, nil
}

// Thumbnail extracts a representative frame from a finished video.
func (c *Composer) Thumbnail(ctx context.Context, videoPath string) (string, error) {
	outputPath := filepath.Join(c.tempDir, uuid.New().String()+".jpg")
	if err := c.engine.Frame(ctx, videoPath, outputPath, 2); err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("thumbnail: %w", err)
	}
	return outputPath, nil
}
