package generator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanadol/reelforge/internal/models"
	"github.com/tanadol/reelforge/internal/services"
)

type fakeScripts struct {
	calls   int
	content *models.StoicContent
	err     error
}

func (f *fakeScripts) GenerateStoicContent(_ context.Context, theme string) (*models.StoicContent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.content != nil {
		return f.content, nil
	}
	return &models.StoicContent{
		Theme:           theme,
		Quote:           "อุปสรรคคือหนทาง",
		Narrative:       "ทุกอุปสรรคคือโอกาส",
		VoiceoverScript: "ทุกอุปสรรคคือโอกาส\nอุปสรรคคือหนทาง",
		EmotionalTone:   "powerful",
	}, nil
}

type fakeVoice struct {
	err    error
	script string
}

func (f *fakeVoice) Synthesize(_ context.Context, script string) (*models.VoiceoverAsset, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.script = script
	return &models.VoiceoverAsset{
		Script:            script,
		LocalPath:         "/tmp/voiceover_test.mp3",
		EstimatedDuration: 42,
	}, nil
}

type fakeMedia struct {
	videoErr error
	musicErr error

	mu        sync.Mutex
	videoType models.VideoType
	category  string
}

func (f *fakeMedia) RandomVideo(_ context.Context, videoType models.VideoType, category string) (*models.MediaAsset, error) {
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	f.mu.Lock()
	f.videoType = videoType
	f.category = category
	f.mu.Unlock()
	return &models.MediaAsset{
		ID: "v1", Kind: models.AssetVideo, Source: "pixabay",
		URL: "https://cdn.example.com/clip.mp4", Duration: 95,
		Width: 1920, Height: 1080,
	}, nil
}

func (f *fakeMedia) RandomMusic(_ context.Context) (*models.MediaAsset, error) {
	if f.musicErr != nil {
		return nil, f.musicErr
	}
	return &models.MediaAsset{
		ID: "m1", Kind: models.AssetMusic, Source: "pixabay",
		URL: "https://cdn.example.com/track.mp3", Duration: 180,
		Volume: 0.2,
	}, nil
}

type fakeComposer struct {
	composeErr error
	thumbErr   error

	mu   sync.Mutex
	reqs []models.CompositionRequest
}

func (f *fakeComposer) Compose(_ context.Context, req models.CompositionRequest) (*models.ComposedVideo, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.composeErr != nil {
		return nil, f.composeErr
	}
	return &models.ComposedVideo{
		ProjectID:  req.ID,
		Path:       "/tmp/out_" + req.ID.String() + ".mp4",
		Duration:   float64(req.TargetDuration),
		Resolution: "1920x1080",
		ByteSize:   1 << 20,
		Format:     "mp4",
	}, nil
}

func (f *fakeComposer) Thumbnail(_ context.Context, videoPath string) (string, error) {
	if f.thumbErr != nil {
		return "", f.thumbErr
	}
	return videoPath + ".jpg", nil
}

func (f *fakeComposer) lastRequest(t *testing.T) models.CompositionRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.reqs)
	return f.reqs[len(f.reqs)-1]
}

type fakeStore struct {
	mu       sync.Mutex
	uploaded map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{uploaded: make(map[string]string)}
}

func (f *fakeStore) UploadFile(_ context.Context, objectPath, localPath string) error {
	f.mu.Lock()
	f.uploaded[objectPath] = localPath
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) PublicURL(objectPath string) string {
	return "https://store.example.com/" + objectPath
}

type fakeRecords struct {
	mu       sync.Mutex
	created  []models.VideoProject
	statuses []models.ProjectStatus
	complete *models.VideoProject
	failure  string
}

func (f *fakeRecords) CreateProject(_ context.Context, p *models.VideoProject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *p)
	return nil
}

func (f *fakeRecords) UpdateProjectStatus(_ context.Context, _ uuid.UUID, status models.ProjectStatus, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeRecords) CompleteProject(_ context.Context, p *models.VideoProject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.complete = p
	return nil
}

func (f *fakeRecords) FailProject(_ context.Context, _ uuid.UUID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failure = message
	return nil
}

type deps struct {
	scripts  *fakeScripts
	voice    *fakeVoice
	media    *fakeMedia
	composer *fakeComposer
	store    *fakeStore
	records  *fakeRecords
}

func newGenerator(d deps) *Generator {
	var voice services.VoiceSynthesizer
	if d.voice != nil {
		voice = d.voice
	}
	var store ObjectStore
	if d.store != nil {
		store = d.store
	}
	var records RecordStore
	if d.records != nil {
		records = d.records
	}
	return New(d.scripts, voice, d.media, services.NewLofiLibrary(), d.composer, store, records, zerolog.Nop())
}

func TestGenerateMotivationPublishesAllArtifacts(t *testing.T) {
	d := deps{
		scripts:  &fakeScripts{},
		voice:    &fakeVoice{},
		media:    &fakeMedia{},
		composer: &fakeComposer{},
		store:    newFakeStore(),
		records:  &fakeRecords{},
	}
	gen := newGenerator(d)

	result, err := gen.GenerateMotivation(context.Background(), models.ItemParams{Theme: "inner_strength"})
	require.NoError(t, err)

	req := d.composer.lastRequest(t)
	assert.Equal(t, models.KindNarrated, req.Kind)
	assert.Equal(t, 60, req.TargetDuration)
	require.NotNil(t, req.Voiceover)

	assert.Equal(t, "https://store.example.com/"+result.ProjectID.String()+"/video.mp4", result.VideoURL)
	require.NotNil(t, result.VoiceoverURL)
	require.NotNil(t, result.ThumbnailURL)
	assert.Empty(t, result.LocalPath)
	assert.Equal(t, float64(60), result.Duration)
	assert.Equal(t, "1920x1080", result.Resolution)

	assert.Len(t, d.store.uploaded, 3)
	require.NotNil(t, d.records.complete)
	assert.Contains(t, d.records.statuses, models.ProjectStatusGeneratingContent)
	assert.Contains(t, d.records.statuses, models.ProjectStatusAcquiringMedia)
	assert.Contains(t, d.records.statuses, models.ProjectStatusComposingVideo)
	assert.Contains(t, d.records.statuses, models.ProjectStatusUploading)
}

func TestGenerateMotivationVoiceFailureDegradesToMusicOnly(t *testing.T) {
	d := deps{
		scripts:  &fakeScripts{},
		voice:    &fakeVoice{err: errors.New("tts quota exhausted")},
		media:    &fakeMedia{},
		composer: &fakeComposer{},
		store:    newFakeStore(),
	}
	gen := newGenerator(d)

	result, err := gen.GenerateMotivation(context.Background(), models.ItemParams{Theme: "acceptance"})
	require.NoError(t, err)

	req := d.composer.lastRequest(t)
	assert.Nil(t, req.Voiceover)
	assert.Nil(t, result.VoiceoverURL)
	assert.NotEmpty(t, result.VideoURL)
}

func TestGenerateMotivationNoSynthesizerConfigured(t *testing.T) {
	d := deps{
		scripts:  &fakeScripts{},
		media:    &fakeMedia{},
		composer: &fakeComposer{},
		store:    newFakeStore(),
	}
	gen := newGenerator(d)

	_, err := gen.GenerateMotivation(context.Background(), models.ItemParams{Theme: "purpose"})
	require.NoError(t, err)
	assert.Nil(t, d.composer.lastRequest(t).Voiceover)
}

func TestGenerateMotivationCustomScriptSkipsGeneration(t *testing.T) {
	d := deps{
		scripts:  &fakeScripts{},
		voice:    &fakeVoice{},
		media:    &fakeMedia{},
		composer: &fakeComposer{},
		store:    newFakeStore(),
	}
	gen := newGenerator(d)

	_, err := gen.GenerateMotivation(context.Background(), models.ItemParams{
		Theme:        "resilience",
		CustomScript: "วันนี้คือวันของเรา",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, d.scripts.calls)
	assert.Equal(t, "วันนี้คือวันของเรา", d.voice.script)
}

func TestGenerateMotivationVideoSearchFailureFailsItem(t *testing.T) {
	d := deps{
		scripts:  &fakeScripts{},
		media:    &fakeMedia{videoErr: errors.New("no results")},
		composer: &fakeComposer{},
		records:  &fakeRecords{},
	}
	gen := newGenerator(d)

	_, err := gen.GenerateMotivation(context.Background(), models.ItemParams{Theme: "purpose"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "video search failed")
	assert.Contains(t, d.records.failure, "video search failed")
}

func TestGenerateMotivationScriptFailureFailsItem(t *testing.T) {
	d := deps{
		scripts:  &fakeScripts{err: errors.New("model overloaded")},
		media:    &fakeMedia{},
		composer: &fakeComposer{},
		records:  &fakeRecords{},
	}
	gen := newGenerator(d)

	_, err := gen.GenerateMotivation(context.Background(), models.ItemParams{Theme: "purpose"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content generation failed")
}

func TestGenerateLofiUsesCuratedMusicLibrary(t *testing.T) {
	d := deps{
		media:    &fakeMedia{},
		composer: &fakeComposer{},
		store:    newFakeStore(),
	}
	gen := newGenerator(d)

	result, err := gen.GenerateLofi(context.Background(), models.ItemParams{Category: "เงียบสงบ"})
	require.NoError(t, err)

	req := d.composer.lastRequest(t)
	assert.Equal(t, models.KindAmbient, req.Kind)
	assert.Equal(t, 120, req.TargetDuration)
	assert.Nil(t, req.Voiceover)
	assert.Equal(t, "music_library", req.Music.Source)
	assert.Equal(t, models.VideoTypeLofi, d.media.videoType)
	assert.Nil(t, result.VoiceoverURL)
}

func TestGenerateWithoutObjectStoreKeepsLocalPath(t *testing.T) {
	d := deps{
		media:    &fakeMedia{},
		composer: &fakeComposer{},
	}
	gen := newGenerator(d)

	result, err := gen.GenerateLofi(context.Background(), models.ItemParams{Duration: 300})
	require.NoError(t, err)
	assert.NotEmpty(t, result.LocalPath)
	assert.Empty(t, result.VideoURL)
	assert.Equal(t, 300, d.composer.lastRequest(t).TargetDuration)
}

func TestThumbnailFailureDoesNotFailGeneration(t *testing.T) {
	d := deps{
		media:    &fakeMedia{},
		composer: &fakeComposer{thumbErr: errors.New("no keyframe")},
		store:    newFakeStore(),
	}
	gen := newGenerator(d)

	result, err := gen.GenerateLofi(context.Background(), models.ItemParams{})
	require.NoError(t, err)
	assert.Nil(t, result.ThumbnailURL)
	assert.NotEmpty(t, result.VideoURL)
}

func TestVideoUploadFailureFailsItem(t *testing.T) {
	records := &fakeRecords{}
	gen := New(nil, nil, &fakeMedia{}, services.NewLofiLibrary(), &fakeComposer{}, rejectingStore{}, records, zerolog.Nop())

	_, err := gen.GenerateLofi(context.Background(), models.ItemParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "video upload failed")
	assert.Contains(t, records.failure, "video upload failed")
}

type rejectingStore struct{}

func (rejectingStore) UploadFile(context.Context, string, string) error {
	return errors.New("storage unavailable")
}

func (rejectingStore) PublicURL(objectPath string) string { return objectPath }
