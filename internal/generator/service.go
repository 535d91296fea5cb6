// Package generator orchestrates the production of one finished video:
// script generation, media search, voice synthesis, composition, thumbnail
// capture, and publication.
package generator

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tanadol/reelforge/internal/models"
	"github.com/tanadol/reelforge/internal/services"
	"github.com/tanadol/reelforge/internal/storage"
)

// MediaSearcher finds stock footage and background music.
type MediaSearcher interface {
	RandomVideo(ctx context.Context, videoType models.VideoType, category string) (*models.MediaAsset, error)
	RandomMusic(ctx context.Context) (*models.MediaAsset, error)
}

// VideoComposer renders a composition request into a playable file.
type VideoComposer interface {
	Compose(ctx context.Context, req models.CompositionRequest) (*models.ComposedVideo, error)
	Thumbnail(ctx context.Context, videoPath string) (string, error)
}

// ObjectStore publishes finished artifacts. Nil means outputs stay on
// local disk.
type ObjectStore interface {
	UploadFile(ctx context.Context, objectPath, localPath string) error
	PublicURL(objectPath string) string
}

// RecordStore persists project rows. Nil means nothing is recorded.
type RecordStore interface {
	CreateProject(ctx context.Context, project *models.VideoProject) error
	UpdateProjectStatus(ctx context.Context, id uuid.UUID, status models.ProjectStatus, progress int) error
	CompleteProject(ctx context.Context, project *models.VideoProject) error
	FailProject(ctx context.Context, id uuid.UUID, message string) error
}

type Generator struct {
	scripts  services.ScriptGenerator
	voice    services.VoiceSynthesizer // nil disables narration
	media    MediaSearcher
	lofi     *services.LofiLibrary
	composer VideoComposer
	store    ObjectStore
	records  RecordStore
	log      zerolog.Logger
}

func New(
	scripts services.ScriptGenerator,
	voice services.VoiceSynthesizer,
	media MediaSearcher,
	lofi *services.LofiLibrary,
	composer VideoComposer,
	store ObjectStore,
	records RecordStore,
	log zerolog.Logger,
) *Generator {
	return &Generator{
		scripts:  scripts,
		voice:    voice,
		media:    media,
		lofi:     lofi,
		composer: composer,
		store:    store,
		records:  records,
		log:      log,
	}
}

// GenerateMotivation produces one narrated Stoic motivation video.
func (g *Generator) GenerateMotivation(ctx context.Context, params models.ItemParams) (*models.ItemResult, error) {
	projectID := uuid.New()
	duration := params.Duration
	if duration == 0 {
		duration = models.KindNarrated.DefaultDuration()
	}

	g.createRecord(ctx, projectID, models.VideoTypeMotivation, models.JSONB{
		"theme": params.Theme, "duration": duration,
	})

	g.setStage(ctx, projectID, models.ProjectStatusGeneratingContent, 10)
	content, err := g.motivationContent(ctx, params)
	if err != nil {
		return nil, g.failed(ctx, projectID, fmt.Errorf("content generation failed: %w", err))
	}

	g.setStage(ctx, projectID, models.ProjectStatusAcquiringMedia, 30)
	var (
		video, music *models.MediaAsset
		voiceover    *models.VoiceoverAsset
	)
	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		v, err := g.media.RandomVideo(gctx, models.VideoTypeMotivation, params.Category)
		if err != nil {
			return fmt.Errorf("video search failed: %w", err)
		}
		video = v
		return nil
	})
	grp.Go(func() error {
		m, err := g.media.RandomMusic(gctx)
		if err != nil {
			return fmt.Errorf("music search failed: %w", err)
		}
		music = m
		return nil
	})
	grp.Go(func() error {
		// Voice synthesis is best effort. Without it the video ships
		// with the music carrying the full mix.
		if g.voice == nil {
			return nil
		}
		vo, err := g.voice.Synthesize(gctx, content.VoiceoverScript)
		if err != nil {
			g.log.Warn().Err(err).
				Str("project_id", projectID.String()).
				Msg("voice synthesis failed, continuing without narration")
			return nil
		}
		voiceover = vo
		return nil
	})
	if err := grp.Wait(); err != nil {
		return nil, g.failed(ctx, projectID, err)
	}

	req := models.CompositionRequest{
		ID:             projectID,
		Kind:           models.KindNarrated,
		TargetDuration: duration,
		Video:          *video,
		Music:          *music,
		Voiceover:      voiceover,
	}
	return g.composeAndPublish(ctx, projectID, req, voiceover)
}

// GenerateLofi produces one ambient lofi video. Music comes from the
// curated track library, footage from stock search.
func (g *Generator) GenerateLofi(ctx context.Context, params models.ItemParams) (*models.ItemResult, error) {
	projectID := uuid.New()
	duration := params.Duration
	if duration == 0 {
		duration = models.KindAmbient.DefaultDuration()
	}

	g.createRecord(ctx, projectID, models.VideoTypeLofi, models.JSONB{
		"category": params.Category, "duration": duration,
	})

	g.setStage(ctx, projectID, models.ProjectStatusAcquiringMedia, 30)
	video, err := g.media.RandomVideo(ctx, models.VideoTypeLofi, params.Category)
	if err != nil {
		return nil, g.failed(ctx, projectID, fmt.Errorf("video search failed: %w", err))
	}
	music := g.lofi.RandomTrack(params.Category)

	req := models.CompositionRequest{
		ID:             projectID,
		Kind:           models.KindAmbient,
		TargetDuration: duration,
		Video:          *video,
		Music:          music,
	}
	return g.composeAndPublish(ctx, projectID, req, nil)
}

func (g *Generator) motivationContent(ctx context.Context, params models.ItemParams) (*models.StoicContent, error) {
	if params.CustomScript != "" {
		return &models.StoicContent{
			Theme:           params.Theme,
			VoiceoverScript: params.CustomScript,
			EmotionalTone:   "powerful",
		}, nil
	}
	return g.scripts.GenerateStoicContent(ctx, params.Theme)
}

// composeAndPublish renders the request, captures a thumbnail, uploads
// artifacts when an object store is configured, and records the outcome.
func (g *Generator) composeAndPublish(ctx context.Context, projectID uuid.UUID, req models.CompositionRequest, voiceover *models.VoiceoverAsset) (*models.ItemResult, error) {
	g.setStage(ctx, projectID, models.ProjectStatusComposingVideo, 60)
	composed, err := g.composer.Compose(ctx, req)
	if err != nil {
		return nil, g.failed(ctx, projectID, err)
	}

	thumbPath, err := g.composer.Thumbnail(ctx, composed.Path)
	if err != nil {
		g.log.Warn().Err(err).
			Str("project_id", projectID.String()).
			Msg("thumbnail capture failed, continuing without one")
		thumbPath = ""
	}

	result := &models.ItemResult{
		ProjectID:  projectID,
		Duration:   composed.Duration,
		Resolution: composed.Resolution,
		ByteSize:   composed.ByteSize,
	}

	if g.store == nil {
		result.LocalPath = composed.Path
		g.completeRecord(ctx, projectID, result)
		return result, nil
	}

	g.setStage(ctx, projectID, models.ProjectStatusUploading, 85)
	if err := g.store.UploadFile(ctx, storage.VideoPath(projectID), composed.Path); err != nil {
		return nil, g.failed(ctx, projectID, fmt.Errorf("video upload failed: %w", err))
	}
	result.VideoURL = g.store.PublicURL(storage.VideoPath(projectID))

	if voiceover != nil && voiceover.LocalPath != "" {
		if err := g.store.UploadFile(ctx, storage.VoiceoverPath(projectID), voiceover.LocalPath); err != nil {
			g.log.Warn().Err(err).Str("project_id", projectID.String()).Msg("voiceover upload failed")
		} else {
			url := g.store.PublicURL(storage.VoiceoverPath(projectID))
			result.VoiceoverURL = &url
		}
	}
	if thumbPath != "" {
		if err := g.store.UploadFile(ctx, storage.ThumbnailPath(projectID), thumbPath); err != nil {
			g.log.Warn().Err(err).Str("project_id", projectID.String()).Msg("thumbnail upload failed")
		} else {
			url := g.store.PublicURL(storage.ThumbnailPath(projectID))
			result.ThumbnailURL = &url
		}
	}

	g.cleanupLocal(composed.Path, thumbPath, voiceover)
	g.completeRecord(ctx, projectID, result)

	g.log.Info().
		Str("project_id", projectID.String()).
		Str("video_url", result.VideoURL).
		Float64("duration", result.Duration).
		Msg("video published")
	return result, nil
}

func (g *Generator) cleanupLocal(videoPath, thumbPath string, voiceover *models.VoiceoverAsset) {
	paths := []string{videoPath, thumbPath}
	if voiceover != nil {
		paths = append(paths, voiceover.LocalPath)
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			g.log.Warn().Err(err).Str("path", p).Msg("failed to remove local artifact")
		}
	}
}

func (g *Generator) createRecord(ctx context.Context, projectID uuid.UUID, videoType models.VideoType, metadata models.JSONB) {
	if g.records == nil {
		return
	}
	project := &models.VideoProject{
		ID:       projectID,
		Type:     videoType,
		Status:   models.ProjectStatusInitializing,
		Metadata: metadata,
	}
	if err := g.records.CreateProject(ctx, project); err != nil {
		g.log.Error().Err(err).Str("project_id", projectID.String()).Msg("failed to create project record")
	}
}

func (g *Generator) setStage(ctx context.Context, projectID uuid.UUID, status models.ProjectStatus, progress int) {
	if g.records == nil {
		return
	}
	if err := g.records.UpdateProjectStatus(ctx, projectID, status, progress); err != nil {
		g.log.Error().Err(err).Str("project_id", projectID.String()).Msg("failed to update project status")
	}
}

func (g *Generator) completeRecord(ctx context.Context, projectID uuid.UUID, result *models.ItemResult) {
	if g.records == nil {
		return
	}
	project := &models.VideoProject{
		ID:           projectID,
		VoiceoverURL: result.VoiceoverURL,
		ThumbnailURL: result.ThumbnailURL,
		Duration:     &result.Duration,
		ByteSize:     &result.ByteSize,
	}
	if result.VideoURL != "" {
		project.VideoURL = &result.VideoURL
	}
	if result.Resolution != "" {
		project.Resolution = &result.Resolution
	}
	if err := g.records.CompleteProject(ctx, project); err != nil {
		g.log.Error().Err(err).Str("project_id", projectID.String()).Msg("failed to complete project record")
	}
}

// failed records the failure and returns the original error for the
// scheduler to attach to the batch item.
func (g *Generator) failed(ctx context.Context, projectID uuid.UUID, err error) error {
	if g.records != nil {
		if ferr := g.records.FailProject(ctx, projectID, err.Error()); ferr != nil {
			g.log.Error().Err(ferr).Str("project_id", projectID.String()).Msg("failed to mark project failed")
		}
	}
	return err
}
