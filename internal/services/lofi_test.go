package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanadol/reelforge/internal/models"
)

func TestLofiSearchTracksByCategory(t *testing.T) {
	lib := NewLofiLibrary()

	tracks := lib.SearchTracks([]string{"เงียบสงบ", "แจ๊สสมูท"})
	require.Len(t, tracks, 2)
	assert.Equal(t, "Peaceful Rain Study Session", tracks[0].Title)
	assert.Equal(t, "Coffee Shop Morning Jazz", tracks[1].Title)
	for _, track := range tracks {
		assert.Equal(t, models.AssetMusic, track.Kind)
		assert.Equal(t, "music_library", track.Source)
		assert.Equal(t, 0.85, track.Volume)
	}
}

func TestLofiSearchTracksNoMatch(t *testing.T) {
	lib := NewLofiLibrary()
	assert.Empty(t, lib.SearchTracks([]string{"ร็อค"}))
	assert.Empty(t, lib.SearchTracks(nil))
}

func TestLofiRandomTrack(t *testing.T) {
	lib := NewLofiLibrary()

	track := lib.RandomTrack("เปียโน")
	assert.Equal(t, "Midnight Piano Sessions", track.Title)

	// unmatched category still yields a track
	track = lib.RandomTrack("ไม่มีหมวดนี้")
	assert.NotEmpty(t, track.ID)
	assert.NotEmpty(t, track.URL)
}
