package mixer

import (
	"github.com/tanadol/reelforge/internal/models"
)

// ---------------------------------------------------------------------------
// Audio mix planner.
// Plan is a pure function: same inputs always produce the same MixPlan, no
// I/O. The plan is rendered to the engine's filter syntax only at invocation
// time (see filtergraph.go), so the leveling/duration policy is testable
// without ever running ffmpeg.
// ---------------------------------------------------------------------------

// Per-track volume policy. Music ducks hard under narration, comes back up
// when the narration is missing, and dominates on ambient mixes.
const (
	musicVolumeNarrated = 0.20 // narrated with voiceover
	musicVolumeFallback = 0.60 // narrated without voiceover (graceful degrade)
	musicVolumeAmbient  = 0.85

	voiceVolume       = 0.80
	voiceDelaySeconds = 3 // music establishes before the narration enters
)

// Frequency shaping per kind. Narrated mixes carve out room for the voice
// band; ambient mixes keep a wider, warmer spectrum.
const (
	narratedHighpassHz = 80
	narratedLowpassHz  = 12000
	ambientHighpassHz  = 60
	ambientLowpassHz   = 15000
)

// Canonical output resolution.
const (
	OutputWidth  = 1920
	OutputHeight = 1080
)

// Compand holds dynamic range compression parameters for the music bus,
// preventing clipping after the tracks are summed.
type Compand struct {
	AttackSeconds float64
	DecaySeconds  float64
	// Transfer is the level mapping in ffmpeg compand notation
	// ("in1/out1|in2/out2|...", dB).
	Transfer        string
	SoftKneeDB      float64
	GainDB          float64
	InitialVolumeDB float64
	DelaySeconds    float64
}

const compandTransfer = "-90/-60|-60/-40|-40/-30|-20/-20"

func compandFor(attack float64) Compand {
	return Compand{
		AttackSeconds:   attack,
		DecaySeconds:    1,
		Transfer:        compandTransfer,
		SoftKneeDB:      6,
		GainDB:          0,
		InitialVolumeDB: -90,
		DelaySeconds:    0.2,
	}
}

// MusicTrack is the background music leg of the plan: leveled, looped to
// exactly the target duration, compressed and band-limited.
type MusicTrack struct {
	Volume     float64
	HighpassHz int
	LowpassHz  int
	Compand    Compand
}

// VoiceTrack is the narration leg: leveled and delayed, never looped. It
// plays once at natural length. If delay + natural length exceeds the
// target duration the output is truncated at the target; the narration
// tail is cut, not extended.
type VoiceTrack struct {
	Volume       float64
	DelaySeconds int
}

// VideoTrack describes the visual leg: scale/crop to the canonical
// resolution, loop, trim to the exact duration, fades matching the audio
// bus. Grade applies the lofi color treatment.
type VideoTrack struct {
	Width          int
	Height         int
	FadeInSeconds  int
	FadeOutSeconds int
	Grade          bool
}

// OutputBus carries the mix-bus fades. The fade-out ends exactly at the
// target duration.
type OutputBus struct {
	FadeInSeconds     int
	FadeOutSeconds    int
	DropoutTransition int // amix dropout smoothing, narrated only
}

// Encode is the container encode profile. Ambient renders trade speed for
// quality (slower preset, lower CRF, higher audio bitrate) since they run
// without a narration deadline.
type Encode struct {
	CRF            int
	Preset         string
	AudioBitrate   string
	TimeoutSeconds int
}

// MixPlan is the deterministic filter plan for one composition.
type MixPlan struct {
	Kind           models.CompositionKind
	TargetDuration int // seconds
	Music          MusicTrack
	Voice          *VoiceTrack // nil = two-track mix
	Video          VideoTrack
	Output         OutputBus
	Encode         Encode
}

// Plan computes the mix plan for a composition. Inputs are assumed
// pre-validated against the kind's duration bounds; out-of-range values are
// a caller error, not a planner concern.
func Plan(kind models.CompositionKind, targetDuration int, hasVoiceover bool) MixPlan {
	if kind == models.KindAmbient {
		return MixPlan{
			Kind:           kind,
			TargetDuration: targetDuration,
			Music: MusicTrack{
				Volume:     musicVolumeAmbient,
				HighpassHz: ambientHighpassHz,
				LowpassHz:  ambientLowpassHz,
				Compand:    compandFor(0.1),
			},
			Video: VideoTrack{
				Width:          OutputWidth,
				Height:         OutputHeight,
				FadeInSeconds:  3,
				FadeOutSeconds: 4,
				Grade:          true,
			},
			Output: OutputBus{
				FadeInSeconds:  3,
				FadeOutSeconds: 5,
			},
			Encode: Encode{
				CRF:            20,
				Preset:         "slow",
				AudioBitrate:   "256k",
				TimeoutSeconds: 400,
			},
		}
	}

	plan := MixPlan{
		Kind:           kind,
		TargetDuration: targetDuration,
		Music: MusicTrack{
			Volume:     musicVolumeFallback,
			HighpassHz: narratedHighpassHz,
			LowpassHz:  narratedLowpassHz,
			Compand:    compandFor(0.2),
		},
		Video: VideoTrack{
			Width:          OutputWidth,
			Height:         OutputHeight,
			FadeInSeconds:  2,
			FadeOutSeconds: 3,
		},
		Output: OutputBus{
			FadeInSeconds:  2,
			FadeOutSeconds: 3,
		},
		Encode: Encode{
			CRF:            23,
			Preset:         "medium",
			AudioBitrate:   "192k",
			TimeoutSeconds: 300,
		},
	}

	if hasVoiceover {
		plan.Music.Volume = musicVolumeNarrated
		plan.Music.Compand = compandFor(0.3)
		plan.Voice = &VoiceTrack{
			Volume:       voiceVolume,
			DelaySeconds: voiceDelaySeconds,
		}
		plan.Output.DropoutTransition = 2
	}

	return plan
}

// VoiceoverTruncated reports whether a narration of the given natural
// length would run past the target duration and be cut at it. The duration
// contract is authoritative: narration length is never changed to fit.
func (p MixPlan) VoiceoverTruncated(voiceDuration float64) bool {
	if p.Voice == nil {
		return false
	}
	return float64(p.Voice.DelaySeconds)+voiceDuration > float64(p.TargetDuration)
}

// FadeOutStart returns the second at which the audio fade-out begins, so
// that it ends exactly at the target duration.
func (p MixPlan) FadeOutStart() int {
	return p.TargetDuration - p.Output.FadeOutSeconds
}
