package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/ZacxDev/shorts-splitter/pkg/types"
	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// SegmentPattern names the files written by Segment.
const SegmentPattern = "clip_%03d.mp4"

// Segment splits input into consecutive clips of about seconds each using
// stream copy. Cuts land on keyframes, so clip lengths vary slightly.
func (p *Processor) Segment(ctx context.Context, input, outDir string, seconds int) ([]string, error) {
	if seconds <= 0 {
		return nil, errors.Errorf("segment duration must be positive, got %d", seconds)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, errors.Wrap(err, "error creating segment directory")
	}

	args := ffmpeg.Input(input).
		Output(filepath.Join(outDir, SegmentPattern), ffmpeg.KwArgs{
			"c":                "copy",
			"map":              "0",
			"f":                "segment",
			"segment_time":     seconds,
			"reset_timestamps": 1,
		}).
		OverWriteOutput().
		GetArgs()

	if stderr, err := p.run(ctx, args); err != nil {
		return nil, errors.Wrapf(err, "failed to segment %s\n%s", input, stderr)
	}

	return ListSegments(outDir)
}

// ListSegments returns the segment files in outDir in playback order.
func ListSegments(outDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(outDir, "clip_*.mp4"))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(matches) == 0 {
		return nil, errors.Errorf("no segments found in %s", outDir)
	}
	sort.Strings(matches)
	return matches, nil
}

// RemoveRanges writes output with the cut ranges of input spliced out.
func (p *Processor) RemoveRanges(ctx context.Context, input, output string, cuts []types.TimeRange) error {
	metadata, err := p.GetVideoMetadata(input)
	if err != nil {
		return errors.Wrap(err, "failed to get video metadata")
	}

	kept := KeepRanges(cuts, metadata.Duration)
	if len(kept) == 0 {
		return errors.New("cuts remove the entire video")
	}

	in := ffmpeg.Input(input)
	var videoParts, audioParts []*ffmpeg.Stream
	for _, r := range kept {
		bounds := ffmpeg.KwArgs{"start": formatSeconds(r.Start), "end": formatSeconds(r.End)}
		videoParts = append(videoParts, in.Video().
			Filter("trim", ffmpeg.Args{}, bounds).
			Filter("setpts", ffmpeg.Args{"PTS-STARTPTS"}))
		if metadata.HasAudio {
			audioParts = append(audioParts, in.Audio().
				Filter("atrim", ffmpeg.Args{}, bounds).
				Filter("asetpts", ffmpeg.Args{"PTS-STARTPTS"}))
		}
	}

	streams := []*ffmpeg.Stream{p.CreateConcatFilter(videoParts, true)}
	if metadata.HasAudio {
		streams = append(streams, p.CreateConcatFilter(audioParts, false))
	}

	settings := GetCodecSettings("mp4")
	outputKwargs := ffmpeg.KwArgs{
		"c:v":     settings.VideoCodec,
		"c:a":     settings.AudioCodec,
		"threads": GetOptimalThreadCount(),
	}
	for k, v := range settings.EncoderPresets["fast"] {
		outputKwargs[k] = v
	}

	args := ffmpeg.Output(streams, output, outputKwargs).OverWriteOutput().GetArgs()
	if stderr, err := p.run(ctx, args); err != nil {
		return errors.Wrapf(err, "failed to remove ranges from %s\n%s", input, stderr)
	}

	return nil
}

// KeepRanges returns the complement of cuts within [0, duration]. Cuts may
// overlap or extend past either end.
func KeepRanges(cuts []types.TimeRange, duration float64) []types.TimeRange {
	sorted := make([]types.TimeRange, 0, len(cuts))
	for _, c := range cuts {
		if c.End <= c.Start {
			continue
		}
		sorted = append(sorted, c)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var kept []types.TimeRange
	cursor := 0.0
	for _, c := range sorted {
		if c.Start > cursor {
			end := c.Start
			if end > duration {
				end = duration
			}
			if end > cursor {
				kept = append(kept, types.TimeRange{Start: cursor, End: end})
			}
		}
		if c.End > cursor {
			cursor = c.End
		}
	}
	if cursor < duration {
		kept = append(kept, types.TimeRange{Start: cursor, End: duration})
	}
	return kept
}
