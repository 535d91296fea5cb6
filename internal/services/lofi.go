package services

import (
	"math/rand"
	"strings"

	"github.com/tanadol/reelforge/internal/models"
)

// ---------------------------------------------------------------------------
// Curated lofi music library. Unlike stock search results these tracks are
// hand-picked, so ambient videos always have a usable soundtrack even when
// the stock music API returns nothing.
// ---------------------------------------------------------------------------

type lofiTrack struct {
	ID          string
	Title       string
	Category    string
	URL         string
	Duration    float64
	ByteSize    int64
	Genre       string
	Mood        string
	Instruments []string
	BPM         int
}

var lofiTracks = []lofiTrack{
	{
		ID:          "lofi_001",
		Title:       "Peaceful Rain Study Session",
		Category:    "เงียบสงบ",
		URL:         "https://example.com/lofi/peaceful-rain.mp3",
		Duration:    180,
		ByteSize:    7200000,
		Genre:       "lofi-hip-hop",
		Mood:        "relaxing",
		Instruments: []string{"piano", "rain-sounds", "vinyl-crackle"},
		BPM:         70,
	},
	{
		ID:          "lofi_002",
		Title:       "Coffee Shop Morning Jazz",
		Category:    "แจ๊สสมูท",
		URL:         "https://example.com/lofi/coffee-jazz.mp3",
		Duration:    240,
		ByteSize:    9600000,
		Genre:       "jazz-lofi",
		Mood:        "cozy",
		Instruments: []string{"piano", "soft-drums", "double-bass", "ambient"},
		BPM:         75,
	},
	{
		ID:          "lofi_003",
		Title:       "Acoustic Dreams",
		Category:    "อะคูสติก",
		URL:         "https://example.com/lofi/acoustic-dreams.mp3",
		Duration:    200,
		ByteSize:    8000000,
		Genre:       "acoustic-lofi",
		Mood:        "dreamy",
		Instruments: []string{"acoustic-guitar", "strings", "soft-percussion"},
		BPM:         65,
	},
	{
		ID:          "lofi_004",
		Title:       "Midnight Piano Sessions",
		Category:    "เปียโน",
		URL:         "https://example.com/lofi/midnight-piano.mp3",
		Duration:    220,
		ByteSize:    8800000,
		Genre:       "piano-lofi",
		Mood:        "contemplative",
		Instruments: []string{"piano", "vinyl-noise", "subtle-strings"},
		BPM:         60,
	},
	{
		ID:          "lofi_005",
		Title:       "Garden Meditation",
		Category:    "กีต้าร์โปร่ง",
		URL:         "https://example.com/lofi/garden-meditation.mp3",
		Duration:    190,
		ByteSize:    7600000,
		Genre:       "guitar-lofi",
		Mood:        "peaceful",
		Instruments: []string{"nylon-guitar", "nature-sounds", "soft-pads"},
		BPM:         68,
	},
}

// LofiLibrary serves the curated track list.
type LofiLibrary struct{}

func NewLofiLibrary() *LofiLibrary {
	return &LofiLibrary{}
}

func (t lofiTrack) asset() models.MediaAsset {
	return models.MediaAsset{
		ID:       t.ID,
		Kind:     models.AssetMusic,
		Title:    t.Title,
		Source:   "music_library",
		URL:      t.URL,
		Duration: t.Duration,
		ByteSize: t.ByteSize,
		Category: t.Category,
		Tags:     append([]string{t.Genre, t.Mood}, t.Instruments...),
		Volume:   0.85,
	}
}

// SearchTracks returns tracks whose Thai category contains any of the given
// category strings.
func (l *LofiLibrary) SearchTracks(categories []string) []models.MediaAsset {
	var out []models.MediaAsset
	for _, t := range lofiTracks {
		for _, c := range categories {
			if c != "" && strings.Contains(t.Category, c) {
				out = append(out, t.asset())
				break
			}
		}
	}
	return out
}

// Categories returns the distinct track categories in library order.
func (l *LofiLibrary) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range lofiTracks {
		if !seen[t.Category] {
			seen[t.Category] = true
			out = append(out, t.Category)
		}
	}
	return out
}

// RandomTrack returns a random curated track, optionally constrained to a
// category. Never fails: an unmatched category falls back to the whole
// library.
func (l *LofiLibrary) RandomTrack(category string) models.MediaAsset {
	if category != "" {
		if matches := l.SearchTracks([]string{category}); len(matches) > 0 {
			return matches[rand.Intn(len(matches))]
		}
	}
	return lofiTracks[rand.Intn(len(lofiTracks))].asset()
}
