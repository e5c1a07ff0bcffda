package ffmpeg

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZacxDev/shorts-splitter/internal/composer"
	"github.com/ZacxDev/shorts-splitter/internal/platform"
	"github.com/ZacxDev/shorts-splitter/pkg/types"
	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Artifact is a file produced by running one plan.
type Artifact struct {
	Kind      types.ArtifactKind
	PartIndex int
	Path      string
	Size      int64
}

// EngineError reports a failed plan execution.
type EngineError struct {
	Kind   types.ArtifactKind
	Target string
	Stderr string
	Err    error
}

func (e *EngineError) Error() string {
	msg := fmt.Sprintf("failed to render %s %s: %v", e.Kind, e.Target, e.Err)
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

func (e *EngineError) Unwrap() error { return e.Err }

// Cause lets errors.Cause reach the underlying failure.
func (e *EngineError) Cause() error { return e.Err }

// Engine executes composition plans with ffmpeg.
type Engine struct {
	proc     *Processor
	settings CodecSettings
	platform platform.Platform
}

// NewEngine creates an engine. plat may be nil, in which case the MP4
// defaults are used.
func NewEngine(proc *Processor, plat platform.Platform) *Engine {
	format := "mp4"
	if plat != nil {
		format = plat.GetOutputFormat()
	}
	return &Engine{
		proc:     proc,
		settings: GetCodecSettings(format),
		platform: plat,
	}
}

// Run renders plan to plan.Target.
func (e *Engine) Run(ctx context.Context, plan composer.CompositionPlan) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, &EngineError{Kind: plan.Kind, Target: plan.Target, Err: err}
	}

	hasAudio := false
	if plan.Audio != composer.StreamNone {
		metadata, err := e.proc.GetVideoMetadata(plan.Source)
		if err != nil {
			return nil, &EngineError{Kind: plan.Kind, Target: plan.Target, Err: err}
		}
		hasAudio = metadata.HasAudio
	}

	stream, err := e.Compile(plan, hasAudio)
	if err != nil {
		return nil, &EngineError{Kind: plan.Kind, Target: plan.Target, Err: err}
	}

	if dir := filepath.Dir(plan.Target); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &EngineError{Kind: plan.Kind, Target: plan.Target, Err: errors.WithStack(err)}
		}
	}

	if e.proc.verbose {
		log.Printf("Rendering %s part %d: %s\n", plan.Kind, plan.PartIndex, plan.Target)
	}

	stderr, err := e.proc.run(ctx, stream.GetArgs())
	if err != nil {
		return nil, &EngineError{Kind: plan.Kind, Target: plan.Target, Stderr: stderr, Err: err}
	}

	// Verify the output file exists and has non-zero size
	info, err := os.Stat(plan.Target)
	if err != nil {
		return nil, &EngineError{Kind: plan.Kind, Target: plan.Target, Err: errors.Wrap(err, "failed to verify output file")}
	}
	if info.Size() == 0 {
		return nil, &EngineError{Kind: plan.Kind, Target: plan.Target, Err: errors.New("output file is empty")}
	}

	return &Artifact{
		Kind:      plan.Kind,
		PartIndex: plan.PartIndex,
		Path:      plan.Target,
		Size:      info.Size(),
	}, nil
}

// Compile translates plan into an ffmpeg-go stream without running it.
// hasAudio says whether the source carries an audio track to copy.
func (e *Engine) Compile(plan composer.CompositionPlan, hasAudio bool) (*ffmpeg.Stream, error) {
	inputKwargs := ffmpeg.KwArgs{}
	if plan.SeekTimestamp != "" {
		inputKwargs["ss"] = plan.SeekTimestamp
	}
	input := ffmpeg.Input(plan.Source, inputKwargs)

	branches := map[composer.Branch]*ffmpeg.Stream{
		composer.BranchMain: input,
	}

	for i, op := range plan.Operations {
		// overlay joins background and foreground into op.Branch
		if op.Kind == composer.OpOverlay {
			bg, okBg := branches[composer.BranchBackground]
			fg, okFg := branches[composer.BranchForeground]
			if !okBg || !okFg {
				return nil, errors.Errorf("operation %d: overlay needs background and foreground branches", i)
			}
			delete(branches, composer.BranchBackground)
			delete(branches, composer.BranchForeground)
			branches[op.Branch] = e.proc.CreateOverlayFilter(bg, fg, op.X, op.Y)
			continue
		}

		cur, ok := branches[op.Branch]
		if !ok {
			return nil, errors.Errorf("operation %d (%s) reads branch %q which is not available", i, op.Kind, op.Branch)
		}

		switch op.Kind {
		case composer.OpSplit:
			split := cur.Split()
			delete(branches, op.Branch)
			branches[composer.BranchBackground] = split.Get("0")
			branches[composer.BranchForeground] = split.Get("1")

		case composer.OpScale:
			kwargs := ffmpeg.KwArgs{"w": op.Width}
			switch op.Scale {
			case composer.ScaleCover:
				kwargs["h"] = op.Height
				kwargs["force_original_aspect_ratio"] = "increase"
			case composer.ScaleFitWidth:
				kwargs["h"] = -2
			default:
				return nil, errors.Errorf("operation %d: unsupported scale mode %q", i, op.Scale)
			}
			branches[op.Branch] = cur.Filter("scale", ffmpeg.Args{}, kwargs)

		case composer.OpCrop:
			kwargs := ffmpeg.KwArgs{"w": op.Width, "h": op.Height}
			if op.X != "" {
				kwargs["x"] = op.X
			}
			if op.Y != "" {
				kwargs["y"] = op.Y
			}
			branches[op.Branch] = cur.Filter("crop", ffmpeg.Args{}, kwargs)

		case composer.OpBlur:
			if op.Radius == 0 {
				continue
			}
			branches[op.Branch] = cur.Filter("boxblur", ffmpeg.Args{}, ffmpeg.KwArgs{
				"luma_radius": op.Radius,
				"luma_power":  op.Power,
			})

		case composer.OpDrawText:
			// an empty text block draws nothing
			if op.Text == "" {
				continue
			}
			branches[op.Branch] = cur.Filter("drawtext", ffmpeg.Args{}, drawTextKwargs(op))

		default:
			return nil, errors.Errorf("operation %d: unsupported kind %q", i, op.Kind)
		}
	}

	video, ok := branches[composer.BranchMain]
	if !ok {
		return nil, errors.New("plan does not end on the main branch")
	}

	if plan.SingleFrame {
		return video.Output(plan.Target, ffmpeg.KwArgs{
			"frames:v": 1,
			"q:v":      2,
		}).OverWriteOutput(), nil
	}

	outputKwargs := e.videoKwargs(plan)
	streams := []*ffmpeg.Stream{video}
	if hasAudio {
		switch plan.Audio {
		case composer.StreamCopy:
			streams = append(streams, input.Audio())
			outputKwargs["c:a"] = "copy"
		case composer.StreamEncode:
			streams = append(streams, input.Audio())
			outputKwargs["c:a"] = e.audioCodec()
		}
	}

	return ffmpeg.Output(streams, plan.Target, outputKwargs).OverWriteOutput(), nil
}

func (e *Engine) videoKwargs(plan composer.CompositionPlan) ffmpeg.KwArgs {
	if plan.Video == composer.StreamCopy && len(plan.Operations) == 0 {
		return ffmpeg.KwArgs{"c:v": "copy"}
	}

	kwargs := ffmpeg.KwArgs{
		"c:v":     e.settings.VideoCodec,
		"threads": GetOptimalThreadCount(),
	}
	for k, v := range e.settings.EncoderPresets["balanced"] {
		kwargs[k] = v
	}

	if e.platform != nil {
		kwargs["c:v"] = e.platform.GetVideoCodec()
		if mbps := extractBitrateValue(e.platform.GetVideoBitrate()); mbps > 0 {
			kwargs["maxrate"] = fmt.Sprintf("%dM", mbps)
			kwargs["bufsize"] = fmt.Sprintf("%dM", 2*mbps)
		}
	}

	return kwargs
}

func (e *Engine) audioCodec() string {
	if e.platform != nil {
		return e.platform.GetAudioCodec()
	}
	return e.settings.AudioCodec
}

// escapeOption quotes a filter option value. ffmpeg-go only applies the
// graph level escaping, so the option level is done here.
func escapeOption(v string) string {
	var sb strings.Builder
	for _, r := range v {
		switch r {
		case '\\', '\'', ':', '=':
			sb.WriteRune('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func drawTextKwargs(op composer.Operation) ffmpeg.KwArgs {
	kwargs := ffmpeg.KwArgs{
		"text":      escapeOption(op.Text),
		"expansion": "none",
		"fontsize":  op.FontSize,
		"fontcolor": op.FontColor,
		"x":         op.X,
		"y":         op.Y,
	}
	if op.FontFile != "" {
		kwargs["fontfile"] = escapeOption(op.FontFile)
	}
	if op.BorderWidth > 0 {
		kwargs["borderw"] = op.BorderWidth
		kwargs["bordercolor"] = op.BorderColor
	}
	return kwargs
}
