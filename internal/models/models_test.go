package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositionKindFor(t *testing.T) {
	assert.Equal(t, KindNarrated, CompositionKindFor(VideoTypeMotivation))
	assert.Equal(t, KindAmbient, CompositionKindFor(VideoTypeLofi))
}

func TestDurationBoundsAndDefaults(t *testing.T) {
	min, max := KindNarrated.DurationBounds()
	assert.Equal(t, 30, min)
	assert.Equal(t, 300, max)
	assert.Equal(t, 60, KindNarrated.DefaultDuration())

	min, max = KindAmbient.DurationBounds()
	assert.Equal(t, 60, min)
	assert.Equal(t, 600, max)
	assert.Equal(t, 120, KindAmbient.DefaultDuration())
}

func validRequest() CompositionRequest {
	return CompositionRequest{
		ID:             uuid.New(),
		Kind:           KindNarrated,
		TargetDuration: 60,
		Video:          MediaAsset{Kind: AssetVideo, URL: "https://cdn.example.com/clip.mp4"},
		Music:          MediaAsset{Kind: AssetMusic, URL: "https://cdn.example.com/track.mp3"},
	}
}

func TestCompositionRequestValidate(t *testing.T) {
	require.NoError(t, validRequest().Validate())

	t.Run("unknown kind", func(t *testing.T) {
		req := validRequest()
		req.Kind = "karaoke"
		assert.ErrorContains(t, req.Validate(), "unknown composition kind")
	})

	t.Run("duration out of bounds", func(t *testing.T) {
		req := validRequest()
		req.TargetDuration = 29
		assert.ErrorContains(t, req.Validate(), "outside [30, 300]s")

		req.TargetDuration = 301
		assert.Error(t, req.Validate())

		req.Kind = KindAmbient
		req.TargetDuration = 600
		assert.NoError(t, req.Validate())
		req.TargetDuration = 601
		assert.Error(t, req.Validate())
	})

	t.Run("missing assets", func(t *testing.T) {
		req := validRequest()
		req.Video = MediaAsset{}
		assert.ErrorContains(t, req.Validate(), "background video")

		req = validRequest()
		req.Music = MediaAsset{}
		assert.ErrorContains(t, req.Validate(), "background music")
	})
}

func TestMediaAssetLocationPrefersLocalPath(t *testing.T) {
	a := MediaAsset{URL: "https://cdn.example.com/clip.mp4"}
	assert.Equal(t, "https://cdn.example.com/clip.mp4", a.Location())

	a.LocalPath = "/tmp/clip.mp4"
	assert.Equal(t, "/tmp/clip.mp4", a.Location())
}

func TestJSONBRoundTrip(t *testing.T) {
	in := JSONB{"theme": "purpose", "duration": float64(60)}

	value, err := in.Value()
	require.NoError(t, err)

	var out JSONB
	require.NoError(t, out.Scan(value))
	assert.Equal(t, in, out)
}

func TestJSONBScanNil(t *testing.T) {
	out := JSONB{"stale": true}
	require.NoError(t, out.Scan(nil))
	assert.Nil(t, out)
}

func TestBatchJobCloneIsDeep(t *testing.T) {
	result := &ItemResult{ProjectID: uuid.New(), Duration: 60}
	job := &BatchJob{
		ID:     uuid.New(),
		Status: BatchStatusRunning,
		Items: []*BatchItem{
			{ID: uuid.New(), Status: ItemStatusCompleted, Result: result},
			{ID: uuid.New(), Status: ItemStatusPending},
		},
		Results:    []ItemResult{*result},
		TotalItems: 2,
	}

	cp := job.Clone()

	cp.Items[0].Status = ItemStatusFailed
	cp.Items[0].Result.Duration = 999
	cp.Results[0].Duration = 999
	cp.Status = BatchStatusCancelled

	assert.Equal(t, ItemStatusCompleted, job.Items[0].Status)
	assert.Equal(t, float64(60), job.Items[0].Result.Duration)
	assert.Equal(t, float64(60), job.Results[0].Duration)
	assert.Equal(t, BatchStatusRunning, job.Status)
}

func TestMaxPendingPriorityIgnoresProcessedItems(t *testing.T) {
	job := &BatchJob{
		Items: []*BatchItem{
			{Status: ItemStatusCompleted, Priority: 9},
			{Status: ItemStatusPending, Priority: 3},
			{Status: ItemStatusPending, Priority: 5},
			{Status: ItemStatusFailed, Priority: 8},
		},
	}
	assert.Equal(t, 5, job.MaxPendingPriority())

	empty := &BatchJob{}
	assert.Equal(t, 0, empty.MaxPendingPriority())
}
