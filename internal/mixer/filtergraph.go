package mixer

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Typed filter graph. The composer never concatenates filter strings by
// hand: a plan is lowered to this structure and rendered once, at engine
// invocation time. Rendering is deterministic for a given plan.
// ---------------------------------------------------------------------------

// Arg is a single filter argument. An empty Key renders positionally.
type Arg struct {
	Key   string
	Value string
}

// Filter is one filter node with its arguments.
type Filter struct {
	Name string
	Args []Arg
}

func (f Filter) render(b *strings.Builder) {
	b.WriteString(f.Name)
	for i, a := range f.Args {
		if i == 0 {
			b.WriteByte('=')
		} else {
			b.WriteByte(':')
		}
		if a.Key != "" {
			b.WriteString(a.Key)
			b.WriteByte('=')
		}
		b.WriteString(a.Value)
	}
}

// Chain is a linear sequence of filters between labeled pads.
type Chain struct {
	Inputs  []string
	Filters []Filter
	Output  string
}

func (c Chain) render(b *strings.Builder) {
	for _, in := range c.Inputs {
		fmt.Fprintf(b, "[%s]", in)
	}
	for i, f := range c.Filters {
		if i > 0 {
			b.WriteByte(',')
		}
		f.render(b)
	}
	fmt.Fprintf(b, "[%s]", c.Output)
}

// Graph is a complete filter_complex program.
type Graph struct {
	Chains []Chain
}

// String renders the graph in ffmpeg filter_complex syntax.
func (g Graph) String() string {
	var b strings.Builder
	for i, c := range g.Chains {
		if i > 0 {
			b.WriteByte(';')
		}
		c.render(&b)
	}
	return b.String()
}

// Output pad labels the composer maps into the container.
const (
	VideoOut = "video_out"
	AudioOut = "audio_out"
)

// Input stream indices by convention: video first, music second, narration
// third when present.
const (
	videoInput = 0
	musicInput = 1
	voiceInput = 2
)

func pos(v string) Arg            { return Arg{Value: v} }
func kv(k, v string) Arg          { return Arg{Key: k, Value: v} }
func kvi(k string, v int) Arg     { return kv(k, fmt.Sprintf("%d", v)) }
func kvf(k string, v float64) Arg { return kv(k, trimFloat(v)) }

func trimFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}

func (c Compand) arg() string {
	return fmt.Sprintf("%s|%s:%s|%s:%s:%s:%s:%s:%s",
		trimFloat(c.AttackSeconds), trimFloat(c.AttackSeconds),
		trimFloat(c.DecaySeconds), trimFloat(c.DecaySeconds),
		c.Transfer,
		trimFloat(c.SoftKneeDB), trimFloat(c.GainDB),
		trimFloat(c.InitialVolumeDB), trimFloat(c.DelaySeconds))
}

// FilterGraph lowers the plan to a filter graph. The video chain order is
// fixed: scale and crop first, then loop, then reset timestamps and trim to
// the target duration. Looping before trimming means short clips repeat to
// fill the full duration instead of being cut at their natural end.
func (p MixPlan) FilterGraph() Graph {
	g := Graph{}
	g.Chains = append(g.Chains, p.videoChain())
	d := p.TargetDuration

	musicFilters := []Filter{
		{Name: "volume", Args: []Arg{pos(trimFloat(p.Music.Volume))}},
		{Name: "aloop", Args: []Arg{kv("loop", "-1"), kv("size", "2e+09")}},
		{Name: "atrim", Args: []Arg{kvi("duration", d)}},
	}

	busFilters := []Filter{
		{Name: "compand", Args: []Arg{pos(p.Music.Compand.arg())}},
		{Name: "highpass", Args: []Arg{kvi("f", p.Music.HighpassHz)}},
		{Name: "lowpass", Args: []Arg{kvi("f", p.Music.LowpassHz)}},
		{Name: "afade", Args: []Arg{kv("t", "in"), kvi("st", 0), kvi("d", p.Output.FadeInSeconds)}},
		{Name: "afade", Args: []Arg{kv("t", "out"), kvi("st", p.FadeOutStart()), kvi("d", p.Output.FadeOutSeconds)}},
	}

	if p.Voice == nil {
		g.Chains = append(g.Chains, Chain{
			Inputs:  []string{streamAudio(musicInput)},
			Filters: append(musicFilters, busFilters...),
			Output:  AudioOut,
		})
		return g
	}

	g.Chains = append(g.Chains,
		Chain{
			Inputs:  []string{streamAudio(musicInput)},
			Filters: musicFilters,
			Output:  "bgm",
		},
		Chain{
			Inputs: []string{streamAudio(voiceInput)},
			Filters: []Filter{
				{Name: "volume", Args: []Arg{pos(trimFloat(p.Voice.Volume))}},
				{Name: "adelay", Args: []Arg{pos(fmt.Sprintf("%ds", p.Voice.DelaySeconds)), kv("all", "1")}},
			},
			Output: "voice",
		},
		Chain{
			Inputs: []string{"bgm", "voice"},
			Filters: append([]Filter{
				{Name: "amix", Args: []Arg{
					kvi("inputs", 2),
					kv("duration", "longest"),
					kvi("dropout_transition", p.Output.DropoutTransition),
				}},
			}, busFilters...),
			Output: AudioOut,
		},
	)
	return g
}

func (p MixPlan) videoChain() Chain {
	d := p.TargetDuration
	filters := []Filter{
		{Name: "scale", Args: []Arg{
			pos(fmt.Sprintf("%d", p.Video.Width)),
			pos(fmt.Sprintf("%d", p.Video.Height)),
			kv("force_original_aspect_ratio", "increase"),
		}},
		{Name: "crop", Args: []Arg{
			pos(fmt.Sprintf("%d", p.Video.Width)),
			pos(fmt.Sprintf("%d", p.Video.Height)),
		}},
		{Name: "loop", Args: []Arg{kv("loop", "-1"), kv("size", "32767")}},
		{Name: "setpts", Args: []Arg{pos("PTS-STARTPTS")}},
		{Name: "trim", Args: []Arg{kvi("duration", d)}},
		{Name: "fade", Args: []Arg{kv("t", "in"), kvi("st", 0), kvi("d", p.Video.FadeInSeconds)}},
		{Name: "fade", Args: []Arg{kv("t", "out"), kvi("st", d - p.Video.FadeOutSeconds), kvi("d", p.Video.FadeOutSeconds)}},
	}
	if p.Video.Grade {
		filters = append(filters,
			Filter{Name: "eq", Args: []Arg{kvf("contrast", 1.1), kvf("brightness", 0.05), kvf("saturation", 0.9)}},
			Filter{Name: "unsharp", Args: []Arg{pos("5"), pos("5"), pos("0.3"), pos("3"), pos("3"), pos("0.1")}},
		)
	}
	return Chain{
		Inputs:  []string{streamVideo(videoInput)},
		Filters: filters,
		Output:  VideoOut,
	}
}

func streamVideo(i int) string { return fmt.Sprintf("%d:v", i) }
func streamAudio(i int) string { return fmt.Sprintf("%d:a", i) }
