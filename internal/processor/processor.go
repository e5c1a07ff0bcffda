// Package processor runs one shorts batch: fetch, trim, segment, plan and
// render.
package processor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ZacxDev/shorts-splitter/internal/composer"
	"github.com/ZacxDev/shorts-splitter/internal/config"
	"github.com/ZacxDev/shorts-splitter/internal/fetcher"
	"github.com/ZacxDev/shorts-splitter/internal/ffmpeg"
	"github.com/ZacxDev/shorts-splitter/internal/platform"
	"github.com/ZacxDev/shorts-splitter/pkg/types"
	"github.com/pkg/errors"
)

// MediaEngine renders a single composition plan.
type MediaEngine interface {
	Run(ctx context.Context, plan composer.CompositionPlan) (*ffmpeg.Artifact, error)
}

// Segmenter cuts the source video.
type Segmenter interface {
	Segment(ctx context.Context, input, outDir string, seconds int) ([]string, error)
	RemoveRanges(ctx context.Context, input, output string, cuts []types.TimeRange) error
}

// Prober reads stream metadata.
type Prober interface {
	GetVideoMetadata(path string) (*ffmpeg.VideoMetadata, error)
}

// Dependencies are the collaborators a Shorts run talks to. Nil fields are
// filled with the ffmpeg and yt-dlp backed implementations.
type Dependencies struct {
	Fetcher   fetcher.Fetcher
	Segmenter Segmenter
	Prober    Prober
	Engine    MediaEngine
	Confirmer Confirmer
}

// ErrAborted is returned when the user declines to continue.
var ErrAborted = errors.New("aborted by user")

// Shorts handles a single video to shorts run
type Shorts struct {
	opts     *config.RunOptions
	layout   config.Layout
	composer *composer.Composer
	platform platform.Platform
	deps     Dependencies
}

// NewShorts validates opts and wires the run.
func NewShorts(opts *config.RunOptions, layout config.Layout, deps Dependencies) (*Shorts, error) {
	if opts.URL == "" && opts.InputPath == "" {
		return nil, errors.New("either a video URL or an input path is required")
	}
	if opts.ClipDuration <= 0 {
		opts.ClipDuration = config.DefaultClipDuration
	}
	if opts.Jobs <= 0 {
		opts.Jobs = 1
	}
	if opts.WorkDir == "" {
		opts.WorkDir = config.DefaultWorkDir
	}
	if opts.ClipsDir == "" {
		opts.ClipsDir = config.DefaultClipsDir
	}
	if opts.ThumbnailsDir == "" {
		opts.ThumbnailsDir = config.DefaultThumbsDir
	}
	if err := layout.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}

	s := &Shorts{
		opts:     opts,
		layout:   layout,
		composer: composer.New(layout),
	}

	if opts.TargetPlatform != "" {
		plat, err := platform.Get(opts.TargetPlatform)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if err := platform.CheckClipDuration(plat, opts.ClipDuration); err != nil {
			return nil, err
		}
		if !platform.FitsCanvas(plat, layout.TargetResolution.Width, layout.TargetResolution.Height) {
			return nil, errors.Errorf("canvas %dx%d exceeds %s limits",
				layout.TargetResolution.Width, layout.TargetResolution.Height, plat.GetName())
		}
		s.platform = plat
	}

	if deps.Segmenter == nil || deps.Prober == nil || deps.Engine == nil {
		proc := ffmpeg.NewProcessor(opts.Verbose)
		if deps.Segmenter == nil {
			deps.Segmenter = proc
		}
		if deps.Prober == nil {
			deps.Prober = proc
		}
		if deps.Engine == nil {
			deps.Engine = ffmpeg.NewEngine(proc, s.platform)
		}
	}
	if deps.Fetcher == nil {
		if opts.InputPath != "" {
			deps.Fetcher = fetcher.Local{}
		} else {
			deps.Fetcher = fetcher.NewYtDlp(opts.Verbose)
		}
	}
	if deps.Confirmer == nil {
		if opts.AssumeYes {
			deps.Confirmer = AutoConfirmer{Answer: true}
		} else {
			deps.Confirmer = HuhConfirmer{}
		}
	}
	s.deps = deps

	return s, nil
}

// Helper functions
func parseSkipDuration(skip string) (float64, error) {
	if skip == "" {
		return 0, nil
	}

	duration, err := time.ParseDuration(skip)
	if err != nil {
		return 0, fmt.Errorf("invalid skip duration format: %v", err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("skip duration must not be negative: %s", skip)
	}

	return duration.Seconds(), nil
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9-_.]`)
	underscores = regexp.MustCompile(`_+`)
)

func sanitizeFilename(filename string) string {
	sanitized := filename

	// Remove the old extension if present
	sanitized = strings.TrimSuffix(sanitized, ".mp4")
	sanitized = strings.TrimSuffix(sanitized, ".webm")

	sanitized = unsafeChars.ReplaceAllString(sanitized, "_")
	sanitized = underscores.ReplaceAllString(sanitized, "_")
	sanitized = strings.Trim(sanitized, "_")

	if sanitized == "" {
		return "video"
	}
	return sanitized
}
