package composer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog"
)

// RenderSpec is one fully resolved render invocation: local input paths, the
// rendered filter program, and the encode profile. Building it is the
// composer's job; the engine only executes it.
type RenderSpec struct {
	VideoPath    string
	MusicPath    string
	VoicePath    string // empty = two-input mix
	FilterGraph  string
	VideoOutPad  string
	AudioOutPad  string
	Duration     int
	CRF          int
	Preset       string
	AudioBitrate string
	OutputPath   string
}

// ProbeResult is the verified shape of a finished output file.
type ProbeResult struct {
	Duration float64
	ByteSize int64
	Width    int
	Height   int
	Format   string
}

// Engine abstracts the external render tool so the composer's control flow
// is testable without ffmpeg installed.
type Engine interface {
	Render(ctx context.Context, spec RenderSpec) error
	Probe(ctx context.Context, path string) (ProbeResult, error)
	Frame(ctx context.Context, videoPath, outputPath string, atSecond float64) error
}

// FFmpegEngine shells out to ffmpeg/ffprobe.
type FFmpegEngine struct {
	ffmpegPath  string
	ffprobePath string
	log         zerolog.Logger
}

func NewFFmpegEngine(ffmpegPath, ffprobePath string, log zerolog.Logger) *FFmpegEngine {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegEngine{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, log: log}
}

// Render executes a single-pass render. All filtering happens in one
// filter_complex program; there are no intermediate files.
func (e *FFmpegEngine) Render(ctx context.Context, spec RenderSpec) error {
	args := []string{"-y", "-i", spec.VideoPath, "-i", spec.MusicPath}
	if spec.VoicePath != "" {
		args = append(args, "-i", spec.VoicePath)
	}
	args = append(args,
		"-filter_complex", spec.FilterGraph,
		"-map", "["+spec.VideoOutPad+"]",
		"-map", "["+spec.AudioOutPad+"]",
		"-c:v", "libx264",
		"-crf", strconv.Itoa(spec.CRF),
		"-preset", spec.Preset,
		"-c:a", "aac",
		"-b:a", spec.AudioBitrate,
		"-ar", "44100",
		"-ac", "2",
		"-pix_fmt", "yuv420p",
		"-t", strconv.Itoa(spec.Duration),
		spec.OutputPath,
	)

	e.log.Debug().Str("output", spec.OutputPath).Int("duration", spec.Duration).Msg("starting render")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("render aborted: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, stderrTail(&stderr))
	}
	return nil
}

// Probe inspects a media file with ffprobe and returns its parsed shape.
func (e *FFmpegEngine) Probe(ctx context.Context, path string) (ProbeResult, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	out, err := exec.CommandContext(ctx, e.ffprobePath, args...).Output()
	if err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe failed: %w", err)
	}

	var report struct {
		Format struct {
			Duration   string `json:"duration"`
			Size       string `json:"size"`
			FormatName string `json:"format_name"`
		} `json:"format"`
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &report); err != nil {
		return ProbeResult{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	result := ProbeResult{Format: report.Format.FormatName}
	result.Duration, _ = strconv.ParseFloat(report.Format.Duration, 64)
	result.ByteSize, _ = strconv.ParseInt(report.Format.Size, 10, 64)
	for _, s := range report.Streams {
		if s.CodecType == "video" {
			result.Width = s.Width
			result.Height = s.Height
			break
		}
	}
	return result, nil
}

// Frame extracts a single frame as a JPEG, used for thumbnails.
func (e *FFmpegEngine) Frame(ctx context.Context, videoPath, outputPath string, atSecond float64) error {
	args := []string{
		"-y",
		"-ss", strconv.FormatFloat(atSecond, 'f', -1, 64),
		"-i", videoPath,
		"-vframes", "1",
		"-q:v", "2",
		outputPath,
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg frame extraction failed: %w: %s", err, stderrTail(&stderr))
	}
	return nil
}

// stderrTail keeps error messages readable: ffmpeg prints its banner and
// progress before the actual failure, which is always at the end.
func stderrTail(buf *bytes.Buffer) string {
	const max = 500
	s := buf.String()
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return s
}
