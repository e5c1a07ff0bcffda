package processor

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZacxDev/shorts-splitter/internal/composer"
	"github.com/ZacxDev/shorts-splitter/internal/config"
	"github.com/ZacxDev/shorts-splitter/internal/ffmpeg"
	"github.com/ZacxDev/shorts-splitter/pkg/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Batch is a prepared run: the source has been fetched and segmented and
// every plan is built. Nothing has been rendered yet.
type Batch struct {
	RunID          string
	RunDir         string
	Source         string
	SubtitleTracks []string
	Segments       []string
	Plans          []composer.CompositionPlan
}

// ArtifactResult is the outcome of one plan.
type ArtifactResult struct {
	Kind      types.ArtifactKind
	PartIndex int
	Target    string
	Artifact  *ffmpeg.Artifact
	Err       error
}

func (r ArtifactResult) OK() bool {
	return r.Err == nil && r.Artifact != nil
}

// Report summarises a batch.
type Report struct {
	RunID      string
	Clips      []ArtifactResult
	Thumbnails []ArtifactResult
	Failed     int
}

// Process runs the whole batch and removes temporary files on success.
func (s *Shorts) Process(ctx context.Context) (*Report, error) {
	batch, err := s.Prepare(ctx)
	if err != nil {
		return nil, err
	}

	report, err := s.Execute(ctx, batch)
	if err != nil {
		log.Printf("[%s] keeping temporary files in %s\n", batch.RunID, batch.RunDir)
		return report, err
	}

	if err := s.Cleanup(batch); err != nil {
		return report, err
	}
	return report, nil
}

// Prepare fetches, trims and segments the source, then builds every plan.
func (s *Shorts) Prepare(ctx context.Context) (*Batch, error) {
	runID := uuid.NewString()
	locator := s.opts.URL
	base := "source"
	if s.opts.InputPath != "" {
		locator = s.opts.InputPath
		base = filepath.Base(s.opts.InputPath)
	}

	batch := &Batch{
		RunID:  runID,
		RunDir: filepath.Join(s.opts.WorkDir, fmt.Sprintf("%s_%s", sanitizeFilename(base), runID[:8])),
	}

	log.Printf("[%s] fetching %s\n", runID, locator)
	media, err := s.deps.Fetcher.Fetch(ctx, locator, sourcePath(s.opts.WorkDir, locator))
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch video")
	}

	if media.Advisory != "" {
		ok, err := s.deps.Confirmer.Confirm(fmt.Sprintf("The downloader reported:\n%s\nContinue with this video?", media.Advisory))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAborted
		}
	}

	metadata, err := s.deps.Prober.GetVideoMetadata(media.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to get video metadata: %v", err)
	}
	batch.SubtitleTracks = append(append([]string{}, media.SubtitleTracks...), metadata.SubtitleTracks...)
	if len(batch.SubtitleTracks) > 0 {
		log.Printf("[%s] subtitle tracks: %s\n", runID, strings.Join(batch.SubtitleTracks, ", "))
	}

	cuts, err := s.cuts(metadata.Duration)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(batch.RunDir, 0755); err != nil {
		return nil, errors.Wrap(err, "error creating run directory")
	}

	batch.Source = media.Path
	if len(cuts) > 0 {
		trimmed := filepath.Join(batch.RunDir, "trimmed.mp4")
		log.Printf("[%s] removing %d range(s)\n", runID, len(cuts))
		if err := s.deps.Segmenter.RemoveRanges(ctx, media.Path, trimmed, cuts); err != nil {
			return nil, errors.Wrap(err, "failed to remove ranges")
		}
		batch.Source = trimmed
	}

	segments, err := s.deps.Segmenter.Segment(ctx, batch.Source, filepath.Join(batch.RunDir, "segments"), s.opts.ClipDuration)
	if err != nil {
		return nil, errors.Wrap(err, "failed to split video")
	}
	batch.Segments = segments
	log.Printf("[%s] split into %d clip(s)\n", runID, len(segments))

	format := "mp4"
	if s.platform != nil {
		format = s.platform.GetOutputFormat()
	}
	clips, frames := ClipContexts(segments, s.opts.ClipsDir, s.opts.ThumbnailsDir, format)
	batch.Plans = s.composer.BuildPlans(s.opts.Title, clips, frames)

	return batch, nil
}

// ClipContexts pairs every segment with its clip and thumbnail targets.
// Clips get the extension of format, thumbnails are JPEG.
func ClipContexts(segments []string, clipsDir, thumbsDir, format string) (clips, frames []composer.ClipContext) {
	ext := ffmpeg.GetCodecSettings(format).FileExtension
	clips = make([]composer.ClipContext, len(segments))
	frames = make([]composer.ClipContext, len(segments))
	for i, segment := range segments {
		part := i + 1
		clips[i] = composer.ClipContext{
			PartIndex:  part,
			TotalClips: len(segments),
			Source:     segment,
			Target:     ffmpeg.EnsureExtension(filepath.Join(clipsDir, fmt.Sprintf("part_%d", part)), ext),
		}
		frames[i] = clips[i]
		frames[i].Target = ffmpeg.EnsureExtension(filepath.Join(thumbsDir, fmt.Sprintf("thumbnail_part_%d", part)), ".jpg")
	}
	return clips, frames
}

// sourcePath names the download after its locator, so a cached download is
// only reused for the same video.
func sourcePath(workDir, locator string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(locator)).String()[:8]
	return filepath.Join(workDir, fmt.Sprintf("%s_%s.mp4", config.SourceFilePrefix, id))
}

// cuts merges the skip prefix with the explicit cut ranges.
func (s *Shorts) cuts(duration float64) ([]types.TimeRange, error) {
	skipSeconds, err := parseSkipDuration(s.opts.Skip)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if skipSeconds >= duration {
		return nil, fmt.Errorf("skip duration exceeds video duration")
	}

	var cuts []types.TimeRange
	if skipSeconds > 0 {
		cuts = append(cuts, types.TimeRange{Start: 0, End: skipSeconds})
	}
	for _, c := range s.opts.Cuts {
		if c.Start < 0 || c.End <= c.Start {
			return nil, errors.Errorf("invalid cut range %s", c)
		}
		cuts = append(cuts, c)
	}

	if len(cuts) > 0 && len(ffmpeg.KeepRanges(cuts, duration)) == 0 {
		return nil, errors.New("cut ranges remove the whole video")
	}
	return cuts, nil
}

// Execute renders every plan in a pool of opts.Jobs workers. Without
// ContinueOnError the first failure cancels the plans that have not started.
func (s *Shorts) Execute(ctx context.Context, batch *Batch) (*Report, error) {
	results := make([]ArtifactResult, len(batch.Plans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Jobs)

	for i, plan := range batch.Plans {
		results[i] = ArtifactResult{Kind: plan.Kind, PartIndex: plan.PartIndex, Target: plan.Target}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}

			if s.opts.Verbose {
				log.Printf("[%s] rendering %s part %d\n", batch.RunID, plan.Kind, plan.PartIndex)
			}

			artifact, err := s.deps.Engine.Run(gctx, plan)
			if err != nil {
				results[i].Err = err
				log.Printf("[%s] %s part %d failed: %v\n", batch.RunID, plan.Kind, plan.PartIndex, err)
				if s.opts.ContinueOnError {
					return nil
				}
				return errors.Wrapf(err, "%s part %d", plan.Kind, plan.PartIndex)
			}
			results[i].Artifact = artifact
			return nil
		})
	}

	err := g.Wait()

	report := &Report{RunID: batch.RunID}
	for _, r := range results {
		if r.Err != nil {
			report.Failed++
		}
		if r.Kind == types.ArtifactThumbnail {
			report.Thumbnails = append(report.Thumbnails, r)
		} else {
			report.Clips = append(report.Clips, r)
		}
	}

	return report, err
}

// Cleanup removes the run directory unless KeepTemp is set or the user says no.
func (s *Shorts) Cleanup(batch *Batch) error {
	if s.opts.KeepTemp {
		return nil
	}

	ok, err := s.deps.Confirmer.Confirm(fmt.Sprintf("Remove temporary files in %s?", batch.RunDir))
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if err := os.RemoveAll(batch.RunDir); err != nil {
		return errors.Wrap(err, "failed to remove temporary files")
	}
	return nil
}
