package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Enums

// VideoType is the product-level kind of video a request produces.
type VideoType string

const (
	VideoTypeMotivation VideoType = "motivation" // narrated Stoic video
	VideoTypeLofi       VideoType = "lofi"       // ambient lofi video
)

// CompositionKind is the mix-level kind: does the composition carry narration
// over the music, or music alone. Motivation videos are narrated, lofi videos
// are ambient.
type CompositionKind string

const (
	KindNarrated CompositionKind = "narrated"
	KindAmbient  CompositionKind = "ambient"
)

// CompositionKindFor maps a product video type to its mix kind.
func CompositionKindFor(t VideoType) CompositionKind {
	if t == VideoTypeLofi {
		return KindAmbient
	}
	return KindNarrated
}

// DurationBounds returns the valid target duration range in seconds for
// a composition kind. Values outside the range are a caller validation
// error rejected before any work starts.
func (k CompositionKind) DurationBounds() (min, max int) {
	if k == KindAmbient {
		return 60, 600
	}
	return 30, 300
}

// DefaultDuration returns the default target duration in seconds.
func (k CompositionKind) DefaultDuration() int {
	if k == KindAmbient {
		return 120
	}
	return 60
}

type ProjectStatus string

const (
	ProjectStatusInitializing      ProjectStatus = "initializing"
	ProjectStatusGeneratingContent ProjectStatus = "generating_content"
	ProjectStatusAcquiringMedia    ProjectStatus = "acquiring_media"
	ProjectStatusProcessingAudio   ProjectStatus = "processing_audio"
	ProjectStatusComposingVideo    ProjectStatus = "composing_video"
	ProjectStatusUploading         ProjectStatus = "uploading"
	ProjectStatusCompleted         ProjectStatus = "completed"
	ProjectStatusFailed            ProjectStatus = "failed"
)

type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "pending"
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusFailed    BatchStatus = "failed"
	BatchStatusCancelled BatchStatus = "cancelled"
)

type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusRunning   ItemStatus = "running"
	ItemStatusCompleted ItemStatus = "completed"
	ItemStatusFailed    ItemStatus = "failed"
)

type AssetKind string

const (
	AssetVideo AssetKind = "video"
	AssetMusic AssetKind = "music"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Media assets

// MediaAsset is a resolved stock asset (background video or music track).
// Immutable once resolved; owned by the request that fetched it and
// discarded after composition.
type MediaAsset struct {
	ID        string    `json:"id"`
	Kind      AssetKind `json:"kind"`
	Title     string    `json:"title,omitempty"`
	Source    string    `json:"source"` // "pixabay", "music_library", ...
	URL       string    `json:"url"`
	LocalPath string    `json:"local_path,omitempty"`
	Duration  float64   `json:"duration"` // seconds
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	ByteSize  int64     `json:"byte_size"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags,omitempty"`
	Volume    float64   `json:"volume_level"` // target per-track level, 0.0–1.0
}

// Location returns the local path when the asset has been acquired,
// otherwise the remote URL.
func (a MediaAsset) Location() string {
	if a.LocalPath != "" {
		return a.LocalPath
	}
	return a.URL
}

// VoiceoverAsset is a synthesized narration track. Its absence on a
// narrated request is a valid first-class state: the mix degrades to a
// two-track ambient-style composition instead of failing.
type VoiceoverAsset struct {
	Script            string  `json:"script"`
	LocalPath         string  `json:"local_path"`
	EstimatedDuration float64 `json:"estimated_duration"` // seconds
	Metadata          JSONB   `json:"metadata,omitempty"`
}

// StoicContent is a generated narration package for a motivation video.
type StoicContent struct {
	Theme           string   `json:"theme"`
	Quote           string   `json:"quote"`
	Narrative       string   `json:"narrative"`
	VoiceoverScript string   `json:"voiceover_script"`
	Keywords        []string `json:"keywords"`
	EmotionalTone   string   `json:"emotional_tone"`
}

// CompositionRequest carries everything the composer needs to produce one
// finished video.
type CompositionRequest struct {
	ID             uuid.UUID       `json:"id"`
	Kind           CompositionKind `json:"kind"`
	TargetDuration int             `json:"target_duration"` // seconds
	Video          MediaAsset      `json:"video"`
	Music          MediaAsset      `json:"music"`
	Voiceover      *VoiceoverAsset `json:"voiceover,omitempty"`
}

// Validate checks contractual bounds before any work starts.
func (r CompositionRequest) Validate() error {
	switch r.Kind {
	case KindNarrated, KindAmbient:
	default:
		return fmt.Errorf("unknown composition kind %q", r.Kind)
	}
	min, max := r.Kind.DurationBounds()
	if r.TargetDuration < min || r.TargetDuration > max {
		return fmt.Errorf("target duration %ds outside [%d, %d]s for %s compositions",
			r.TargetDuration, min, max, r.Kind)
	}
	if r.Video.Location() == "" {
		return fmt.Errorf("background video asset is required")
	}
	if r.Music.Location() == "" {
		return fmt.Errorf("background music asset is required")
	}
	return nil
}

// ComposedVideo is the output of a successful composition. Produced exactly
// once per request; ownership transfers to the caller for persistence.
type ComposedVideo struct {
	ProjectID     uuid.UUID `json:"project_id"`
	Path          string    `json:"path"`
	ThumbnailPath string    `json:"thumbnail_path,omitempty"`
	Duration      float64   `json:"duration"` // probed, seconds
	Resolution    string    `json:"resolution"`
	ByteSize      int64     `json:"byte_size"`
	Format        string    `json:"format"`
}

// Batch scheduling

// ItemParams are the generation parameters embedded in one batch item.
type ItemParams struct {
	Theme        string `json:"theme,omitempty"`         // motivation
	Category     string `json:"category,omitempty"`      // lofi
	Duration     int    `json:"duration"`                // seconds; 0 = kind default
	CustomScript string `json:"custom_script,omitempty"` // motivation only
}

// ItemResult records where a finished item's artifacts ended up.
type ItemResult struct {
	ProjectID    uuid.UUID `json:"project_id"`
	VideoURL     string    `json:"video_url,omitempty"`
	VoiceoverURL *string   `json:"voiceover_url,omitempty"`
	ThumbnailURL *string   `json:"thumbnail_url,omitempty"`
	LocalPath    string    `json:"local_path,omitempty"` // set when no object store is configured
	Duration     float64   `json:"duration"`
	Resolution   string    `json:"resolution,omitempty"`
	ByteSize     int64     `json:"byte_size"`
}

// BatchItem is one composition request tracked as a unit of work inside a
// job. Mutated only by the worker processing its job, never shared.
type BatchItem struct {
	ID           uuid.UUID   `json:"id"`
	Type         VideoType   `json:"type"`
	Parameters   ItemParams  `json:"parameters"`
	Priority     int         `json:"priority"`
	Status       ItemStatus  `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	Result       *ItemResult `json:"result,omitempty"`
	ErrorMessage *string     `json:"error_message,omitempty"`
}

// BatchJob is a named collection of items processed sequentially by one
// worker. Read concurrently by status pollers; the scheduler hands out
// deep-copied snapshots so counters and state are never observed torn.
type BatchJob struct {
	ID             uuid.UUID    `json:"id"`
	Name           string       `json:"name"`
	Items          []*BatchItem `json:"items"`
	Status         BatchStatus  `json:"status"`
	Progress       int          `json:"progress"` // floor(100 * processed / total)
	TotalItems     int          `json:"total_items"`
	CompletedItems int          `json:"completed_items"`
	FailedItems    int          `json:"failed_items"`
	Results        []ItemResult `json:"results"`
	CreatedAt      time.Time    `json:"created_at"`
	StartedAt      *time.Time   `json:"started_at,omitempty"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
}

// Clone returns a deep copy safe to hand to a caller while workers keep
// mutating the original.
func (j *BatchJob) Clone() *BatchJob {
	cp := *j
	cp.Items = make([]*BatchItem, len(j.Items))
	for i, item := range j.Items {
		ic := *item
		if item.Result != nil {
			rc := *item.Result
			ic.Result = &rc
		}
		cp.Items[i] = &ic
	}
	cp.Results = append([]ItemResult(nil), j.Results...)
	return &cp
}

// MaxPendingPriority returns the job's scheduling priority: the max
// priority among its still-pending items.
func (j *BatchJob) MaxPendingPriority() int {
	max := 0
	for _, item := range j.Items {
		if item.Status == ItemStatusPending && item.Priority > max {
			max = item.Priority
		}
	}
	return max
}

// VideoProject is the record-store row for a single generated video.
type VideoProject struct {
	ID           uuid.UUID     `json:"id"`
	Type         VideoType     `json:"type"`
	Status       ProjectStatus `json:"status"`
	Progress     int           `json:"progress"`
	VideoURL     *string       `json:"video_url,omitempty"`
	VoiceoverURL *string       `json:"voiceover_url,omitempty"`
	ThumbnailURL *string       `json:"thumbnail_url,omitempty"`
	Duration     *float64      `json:"duration,omitempty"`
	Resolution   *string       `json:"resolution,omitempty"`
	ByteSize     *int64        `json:"byte_size,omitempty"`
	ErrorMessage *string       `json:"error_message,omitempty"`
	Metadata     JSONB         `json:"metadata,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
}

// API DTOs

// BatchItemSpec is one entry in a batch submission.
type BatchItemSpec struct {
	Type       VideoType  `json:"type"`
	Parameters ItemParams `json:"parameters"`
	Priority   int        `json:"priority,omitempty"`
}

type SubmitBatchRequest struct {
	Name  string          `json:"name,omitempty"`
	Items []BatchItemSpec `json:"items"`
}

type SubmitBatchResponse struct {
	BatchID    uuid.UUID   `json:"batch_id"`
	Name       string      `json:"name"`
	TotalItems int         `json:"total_items"`
	Status     BatchStatus `json:"status"`
}
