package composer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanadol/reelforge/internal/models"
)

// fakeEngine records render invocations and writes a placeholder output
// file so the verification path has something to probe.
type fakeEngine struct {
	renders   []RenderSpec
	renderErr error
	probe     ProbeResult
	probeErr  error
	frameErr  error
}

func (f *fakeEngine) Render(ctx context.Context, spec RenderSpec) error {
	f.renders = append(f.renders, spec)
	if f.renderErr != nil {
		return f.renderErr
	}
	return os.WriteFile(spec.OutputPath, []byte("rendered"), 0644)
}

func (f *fakeEngine) Probe(ctx context.Context, path string) (ProbeResult, error) {
	return f.probe, f.probeErr
}

func (f *fakeEngine) Frame(ctx context.Context, videoPath, outputPath string, atSecond float64) error {
	if f.frameErr != nil {
		return f.frameErr
	}
	return os.WriteFile(outputPath, []byte("jpeg"), 0644)
}

// fakeFetcher passes every location through unchanged.
type fakeFetcher struct {
	err     error
	failFor string
	cleaned []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, location string) (string, bool, error) {
	if f.err != nil && (f.failFor == "" || strings.Contains(location, f.failFor)) {
		return "", false, f.err
	}
	return location, false, nil
}

func (f *fakeFetcher) Cleanup(paths ...string) {
	f.cleaned = append(f.cleaned, paths...)
}

func testRequest(kind models.CompositionKind, duration int, withVoice bool) models.CompositionRequest {
	req := models.CompositionRequest{
		ID:             uuid.New(),
		Kind:           kind,
		TargetDuration: duration,
		Video:          models.MediaAsset{Kind: models.AssetVideo, LocalPath: "/assets/forest.mp4"},
		Music:          models.MediaAsset{Kind: models.AssetMusic, LocalPath: "/assets/calm.mp3"},
	}
	if withVoice {
		req.Voiceover = &models.VoiceoverAsset{
			Script:            "ความแข็งแกร่งอยู่ภายในตัวเรา",
			LocalPath:         "/assets/voice.mp3",
			EstimatedDuration: 40,
		}
	}
	return req
}

func newTestComposer(t *testing.T, engine Engine) *Composer {
	t.Helper()
	return New(engine, &fakeFetcher{}, t.TempDir(), zerolog.Nop())
}

func TestComposeNarrated(t *testing.T) {
	engine := &fakeEngine{probe: ProbeResult{Duration: 60.02, ByteSize: 1 << 20, Width: 1920, Height: 1080}}
	c := newTestComposer(t, engine)

	out, err := c.Compose(context.Background(), testRequest(models.KindNarrated, 60, true))
	require.NoError(t, err)

	require.Len(t, engine.renders, 1)
	spec := engine.renders[0]
	assert.Equal(t, "/assets/forest.mp4", spec.VideoPath)
	assert.Equal(t, "/assets/calm.mp3", spec.MusicPath)
	assert.Equal(t, "/assets/voice.mp3", spec.VoicePath)
	assert.Equal(t, 60, spec.Duration)
	assert.Equal(t, 23, spec.CRF)
	assert.Equal(t, "medium", spec.Preset)
	assert.Equal(t, "192k", spec.AudioBitrate)
	assert.Contains(t, spec.FilterGraph, "amix=inputs=2")

	assert.Equal(t, 60.02, out.Duration)
	assert.Equal(t, "1920x1080", out.Resolution)
	assert.Equal(t, "mp4", out.Format)
	assert.FileExists(t, out.Path)
}

func TestComposeNarratedWithoutVoiceover(t *testing.T) {
	engine := &fakeEngine{probe: ProbeResult{Duration: 60, ByteSize: 1 << 20}}
	c := newTestComposer(t, engine)

	_, err := c.Compose(context.Background(), testRequest(models.KindNarrated, 60, false))
	require.NoError(t, err)

	spec := engine.renders[0]
	assert.Empty(t, spec.VoicePath)
	assert.NotContains(t, spec.FilterGraph, "amix")
	assert.Contains(t, spec.FilterGraph, "volume=0.6,")
}

func TestComposeAmbientEncodeProfile(t *testing.T) {
	engine := &fakeEngine{probe: ProbeResult{Duration: 120, ByteSize: 1 << 20}}
	c := newTestComposer(t, engine)

	_, err := c.Compose(context.Background(), testRequest(models.KindAmbient, 120, false))
	require.NoError(t, err)

	spec := engine.renders[0]
	assert.Equal(t, 20, spec.CRF)
	assert.Equal(t, "slow", spec.Preset)
	assert.Equal(t, "256k", spec.AudioBitrate)
	assert.Contains(t, spec.FilterGraph, "unsharp")
}

func TestComposeValidationRejectedBeforeEngine(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestComposer(t, engine)

	req := testRequest(models.KindNarrated, 10, false) // below the 30s floor
	_, err := c.Compose(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, ReasonValidation, ReasonOf(err))
	assert.Empty(t, engine.renders)
}

func TestComposeAssetUnavailable(t *testing.T) {
	engine := &fakeEngine{}
	fetcher := &fakeFetcher{err: errors.New("status 404"), failFor: "calm.mp3"}
	c := New(engine, fetcher, t.TempDir(), zerolog.Nop())

	_, err := c.Compose(context.Background(), testRequest(models.KindNarrated, 60, false))

	require.Error(t, err)
	assert.Equal(t, ReasonAssetUnavailable, ReasonOf(err))
	assert.Empty(t, engine.renders)
}

func TestComposeEngineFailure(t *testing.T) {
	engine := &fakeEngine{renderErr: errors.New("exit status 1")}
	c := newTestComposer(t, engine)

	_, err := c.Compose(context.Background(), testRequest(models.KindNarrated, 60, true))

	require.Error(t, err)
	assert.Equal(t, ReasonEngineInvocation, ReasonOf(err))
}

func TestComposeZeroDurationOutputIsVerificationFailure(t *testing.T) {
	// engine exits cleanly but the file is unplayable: this is a distinct
	// failure class from a nonzero exit
	engine := &fakeEngine{probe: ProbeResult{Duration: 0, ByteSize: 48}}
	c := newTestComposer(t, engine)

	_, err := c.Compose(context.Background(), testRequest(models.KindNarrated, 60, true))

	require.Error(t, err)
	assert.Equal(t, ReasonOutputVerification, ReasonOf(err))

	// the broken file must not survive
	require.Len(t, engine.renders, 1)
	assert.NoFileExists(t, engine.renders[0].OutputPath)
}

func TestComposeProbeFailureRemovesOutput(t *testing.T) {
	engine := &fakeEngine{probeErr: errors.New("ffprobe failed")}
	c := newTestComposer(t, engine)

	_, err := c.Compose(context.Background(), testRequest(models.KindAmbient, 120, false))

	require.Error(t, err)
	assert.Equal(t, ReasonOutputVerification, ReasonOf(err))
	assert.NoFileExists(t, engine.renders[0].OutputPath)
}

func TestComposeUniqueOutputPaths(t *testing.T) {
	engine := &fakeEngine{probe: ProbeResult{Duration: 60, ByteSize: 1}}
	c := newTestComposer(t, engine)

	req := testRequest(models.KindNarrated, 60, false)
	first, err := c.Compose(context.Background(), req)
	require.NoError(t, err)
	second, err := c.Compose(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)
}

func TestThumbnail(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestComposer(t, engine)

	path, err := c.Thumbnail(context.Background(), "/tmp/video.mp4")
	require.NoError(t, err)
	assert.Equal(t, ".jpg", filepath.Ext(path))
	assert.FileExists(t, path)
}

func TestThumbnailError(t *testing.T) {
	engine := &fakeEngine{frameErr: errors.New("exit status 1")}
	c := newTestComposer(t, engine)

	_, err := c.Thumbnail(context.Background(), "/tmp/video.mp4")
	assert.Error(t, err)
}
