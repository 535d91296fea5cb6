package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tanadol/reelforge/internal/models"
)

// ---------------------------------------------------------------------------
// Pixabay stock media client for background footage and background music.
// ---------------------------------------------------------------------------

const pixabayBaseURL = "https://pixabay.com/api/"

// Search category pools per product type. Footage queries deliberately skew
// toward empty landscapes; the content filter below drops anything with
// people in it.
var (
	motivationVideoCategories = []string{"alone", "sea", "mountain", "forest", "nature", "landscape"}
	lofiVideoCategories       = []string{"interior", "cafe", "aesthetic", "cozy", "minimal", "modern"}
	musicCategories           = []string{"nature", "forest", "ocean", "peaceful", "meditation", "ambient", "relaxing", "calm", "instrumental"}
)

// Quality gates applied to every search result.
const (
	minVideoWidth    = 1920
	minVideoHeight   = 1080
	minVideoDuration = 20
	maxVideoDuration = 300
	minMusicDuration = 30
	maxMusicDuration = 300
)

var excludedVideoTags = []string{"people", "face", "person", "human", "crowd"}

var musicMoodKeywords = []string{"instrumental", "ambient", "peaceful", "nature", "calm", "meditation"}

type PixabayService struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func NewPixabayService(apiKey string, log zerolog.Logger) *PixabayService {
	return &PixabayService{
		apiKey:  apiKey,
		baseURL: pixabayBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// SearchMotivationVideos aggregates footage across the motivation category
// pool, deduplicated and quality-filtered. Per-category failures are logged
// and skipped; the search only fails when every category fails to produce
// anything.
func (s *PixabayService) SearchMotivationVideos(ctx context.Context) ([]models.MediaAsset, error) {
	return s.searchVideoPool(ctx, motivationVideoCategories, "nature")
}

// SearchLofiVideos aggregates aesthetic interior footage for lofi videos.
func (s *PixabayService) SearchLofiVideos(ctx context.Context) ([]models.MediaAsset, error) {
	return s.searchVideoPool(ctx, lofiVideoCategories, "places")
}

func (s *PixabayService) searchVideoPool(ctx context.Context, queries []string, apiCategory string) ([]models.MediaAsset, error) {
	var all []models.MediaAsset
	for _, q := range queries {
		videos, err := s.searchVideos(ctx, q, apiCategory)
		if err != nil {
			s.log.Warn().Err(err).Str("query", q).Msg("video search failed, skipping category")
			continue
		}
		all = append(all, videos...)
	}
	filtered := filterVideos(dedupe(all))
	if len(filtered) == 0 {
		return nil, fmt.Errorf("no usable videos found across categories %v", queries)
	}
	return filtered, nil
}

// SearchBackgroundMusic aggregates music across the mood category pool.
func (s *PixabayService) SearchBackgroundMusic(ctx context.Context) ([]models.MediaAsset, error) {
	var all []models.MediaAsset
	for _, q := range musicCategories {
		tracks, err := s.searchMusic(ctx, q)
		if err != nil {
			s.log.Warn().Err(err).Str("query", q).Msg("music search failed, skipping category")
			continue
		}
		all = append(all, tracks...)
	}
	filtered := filterMusic(dedupe(all))
	if len(filtered) == 0 {
		return nil, fmt.Errorf("no usable music found across categories %v", musicCategories)
	}
	return filtered, nil
}

// RandomVideo picks one video for the given product type. A non-empty
// category narrows the search to that single query.
func (s *PixabayService) RandomVideo(ctx context.Context, videoType models.VideoType, category string) (*models.MediaAsset, error) {
	var (
		videos []models.MediaAsset
		err    error
	)
	if category != "" {
		apiCategory := "nature"
		if videoType == models.VideoTypeLofi {
			apiCategory = "places"
		}
		videos, err = s.searchVideos(ctx, category, apiCategory)
		if err == nil {
			videos = filterVideos(dedupe(videos))
			if len(videos) == 0 {
				err = fmt.Errorf("no usable videos for category %q", category)
			}
		}
	} else if videoType == models.VideoTypeLofi {
		videos, err = s.SearchLofiVideos(ctx)
	} else {
		videos, err = s.SearchMotivationVideos(ctx)
	}
	if err != nil {
		return nil, err
	}
	pick := videos[rand.Intn(len(videos))]
	return &pick, nil
}

// RandomMusic picks one background music track.
func (s *PixabayService) RandomMusic(ctx context.Context) (*models.MediaAsset, error) {
	tracks, err := s.SearchBackgroundMusic(ctx)
	if err != nil {
		return nil, err
	}
	pick := tracks[rand.Intn(len(tracks))]
	return &pick, nil
}

type pixabayVideoHit struct {
	ID       int    `json:"id"`
	Tags     string `json:"tags"`
	Duration int    `json:"duration"`
	Videos   struct {
		Large struct {
			URL    string `json:"url"`
			Width  int    `json:"width"`
			Height int    `json:"height"`
			Size   int64  `json:"size"`
		} `json:"large"`
	} `json:"videos"`
}

type pixabayMusicHit struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Tags     string `json:"tags"`
	Artist   string `json:"artist"`
	URL      string `json:"url"`
	Duration int    `json:"duration"`
	Size     int64  `json:"size"`
}

func (s *PixabayService) searchVideos(ctx context.Context, query, apiCategory string) ([]models.MediaAsset, error) {
	params := url.Values{
		"key":          {s.apiKey},
		"video_type":   {"all"},
		"category":     {apiCategory},
		"min_width":    {strconv.Itoa(minVideoWidth)},
		"min_height":   {strconv.Itoa(minVideoHeight)},
		"min_duration": {strconv.Itoa(minVideoDuration)},
		"max_duration": {strconv.Itoa(maxVideoDuration)},
		"per_page":     {"20"},
		"safesearch":   {"true"},
		"q":            {query},
	}

	var body struct {
		Hits []pixabayVideoHit `json:"hits"`
	}
	if err := s.get(ctx, "videos/", params, &body); err != nil {
		return nil, err
	}

	assets := make([]models.MediaAsset, 0, len(body.Hits))
	for _, hit := range body.Hits {
		assets = append(assets, models.MediaAsset{
			ID:       strconv.Itoa(hit.ID),
			Kind:     models.AssetVideo,
			Source:   "pixabay",
			URL:      hit.Videos.Large.URL,
			Duration: float64(hit.Duration),
			Width:    hit.Videos.Large.Width,
			Height:   hit.Videos.Large.Height,
			ByteSize: hit.Videos.Large.Size,
			Category: query,
			Tags:     splitTags(hit.Tags),
		})
	}
	return assets, nil
}

func (s *PixabayService) searchMusic(ctx context.Context, query string) ([]models.MediaAsset, error) {
	params := url.Values{
		"key":          {s.apiKey},
		"audio_type":   {"music"},
		"category":     {"music"},
		"min_duration": {strconv.Itoa(minMusicDuration)},
		"max_duration": {strconv.Itoa(maxMusicDuration)},
		"per_page":     {"20"},
		"safesearch":   {"true"},
		"q":            {query},
	}

	var body struct {
		Hits []pixabayMusicHit `json:"hits"`
	}
	if err := s.get(ctx, "music/", params, &body); err != nil {
		return nil, err
	}

	assets := make([]models.MediaAsset, 0, len(body.Hits))
	for _, hit := range body.Hits {
		title := hit.Title
		if title == "" {
			title = hit.Tags
		}
		assets = append(assets, models.MediaAsset{
			ID:       strconv.Itoa(hit.ID),
			Kind:     models.AssetMusic,
			Title:    title,
			Source:   "pixabay",
			URL:      hit.URL,
			Duration: float64(hit.Duration),
			ByteSize: hit.Size,
			Category: query,
			Tags:     splitTags(hit.Tags),
			Volume:   0.20,
		})
	}
	return assets, nil
}

func (s *PixabayService) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("pixabay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pixabay returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode pixabay response: %w", err)
	}
	return nil
}

func dedupe(assets []models.MediaAsset) []models.MediaAsset {
	seen := make(map[string]bool, len(assets))
	out := assets[:0]
	for _, a := range assets {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		out = append(out, a)
	}
	return out
}

// filterVideos keeps full-HD clips of usable length with no people in them.
func filterVideos(assets []models.MediaAsset) []models.MediaAsset {
	var out []models.MediaAsset
	for _, a := range assets {
		if a.Width < minVideoWidth || a.Height < minVideoHeight {
			continue
		}
		if a.Duration < minVideoDuration || a.Duration > maxVideoDuration {
			continue
		}
		if hasAnyTag(a.Tags, excludedVideoTags) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// filterMusic keeps tracks of background-music length whose tags suggest a
// calm instrumental mood.
func filterMusic(assets []models.MediaAsset) []models.MediaAsset {
	var out []models.MediaAsset
	for _, a := range assets {
		if a.Duration < minMusicDuration || a.Duration > maxMusicDuration {
			continue
		}
		if !hasAnyTag(a.Tags, musicMoodKeywords) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func hasAnyTag(tags []string, keywords []string) bool {
	joined := strings.ToLower(strings.Join(tags, " "))
	for _, k := range keywords {
		if strings.Contains(joined, k) {
			return true
		}
	}
	return false
}

func splitTags(tags string) []string {
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
