// Package shorts is the public entry point for turning one long video into
// captioned vertical clips and thumbnails.
package shorts

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ZacxDev/shorts-splitter/internal/composer"
	"github.com/ZacxDev/shorts-splitter/internal/config"
	"github.com/ZacxDev/shorts-splitter/internal/ffmpeg"
	"github.com/ZacxDev/shorts-splitter/internal/platform"
	"github.com/ZacxDev/shorts-splitter/internal/processor"
	"github.com/ZacxDev/shorts-splitter/internal/title"
	"github.com/ZacxDev/shorts-splitter/pkg/types"
	"github.com/pkg/errors"
)

// PlannedArtifact is a plan together with the ffmpeg arguments it compiles to.
type PlannedArtifact struct {
	Plan composer.CompositionPlan `yaml:"plan"`
	Args []string                 `yaml:"args"`
}

// MakeShorts fetches, splits and renders one video.
func MakeShorts(ctx context.Context, opts *config.RunOptions, layout config.Layout) (*processor.Report, error) {
	s, err := processor.NewShorts(opts, layout, processor.Dependencies{})
	if err != nil {
		return nil, err
	}
	return s.Process(ctx)
}

// PlanShorts builds the plans a run with clips segments would execute. No
// file is read or written.
func PlanShorts(opts *config.RunOptions, layout config.Layout, clips int) ([]PlannedArtifact, error) {
	if clips <= 0 {
		return nil, errors.Errorf("clip count must be positive, got %d", clips)
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	var plat platform.Platform
	if opts.TargetPlatform != "" {
		p, err := platform.Get(opts.TargetPlatform)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		plat = p
	}

	clipsDir, thumbsDir, workDir := opts.ClipsDir, opts.ThumbnailsDir, opts.WorkDir
	if clipsDir == "" {
		clipsDir = config.DefaultClipsDir
	}
	if thumbsDir == "" {
		thumbsDir = config.DefaultThumbsDir
	}
	if workDir == "" {
		workDir = config.DefaultWorkDir
	}

	segments := make([]string, clips)
	for i := range segments {
		segments[i] = filepath.Join(workDir, "segments", fmt.Sprintf(ffmpeg.SegmentPattern, i))
	}
	format := "mp4"
	if plat != nil {
		format = plat.GetOutputFormat()
	}
	contexts, frames := processor.ClipContexts(segments, clipsDir, thumbsDir, format)

	plans := composer.New(layout).BuildPlans(opts.Title, contexts, frames)
	engine := ffmpeg.NewEngine(ffmpeg.NewProcessor(opts.Verbose), plat)

	planned := make([]PlannedArtifact, 0, len(plans))
	for _, plan := range plans {
		stream, err := engine.Compile(plan, true)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compile %s part %d", plan.Kind, plan.PartIndex)
		}
		planned = append(planned, PlannedArtifact{Plan: plan, Args: stream.GetArgs()})
	}
	return planned, nil
}

// WrapTitle wraps raw the way layout wraps it for the named profile,
// "caption" (clips) or "thumbnail".
func WrapTitle(layout config.Layout, profile, raw string) (title.WrappedTitle, error) {
	var kind types.ArtifactKind
	switch profile {
	case title.CaptionProfile.Name:
		kind = types.ArtifactClip
	case title.ThumbnailProfile.Name:
		kind = types.ArtifactThumbnail
	default:
		return title.WrappedTitle{}, errors.Errorf("unknown title profile %q", profile)
	}
	return composer.New(layout).WrapTitle(kind, raw), nil
}

// GetSupportedPlatforms returns a list of supported platforms
func GetSupportedPlatforms() []string {
	return platform.GetSupportedPlatforms()
}
