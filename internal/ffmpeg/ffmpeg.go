package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

type CodecSettings struct {
	VideoCodec     string
	AudioCodec     string
	FileExtension  string
	EncoderPresets map[string]ffmpeg.KwArgs
}

var codecPresets = map[string]CodecSettings{
	"mp4": {
		VideoCodec:    "libx264",
		AudioCodec:    "aac",
		FileExtension: ".mp4",
		EncoderPresets: map[string]ffmpeg.KwArgs{
			"balanced": {
				"preset":    "medium",
				"profile:v": "high",
				"movflags":  "+faststart",
				"pix_fmt":   "yuv420p",
			},
			"fast": {
				"preset":   "fast",
				"movflags": "+faststart",
				"pix_fmt":  "yuv420p",
			},
		},
	},
	"webm": {
		VideoCodec:    "libvpx-vp9",
		AudioCodec:    "libopus",
		FileExtension: ".webm",
		EncoderPresets: map[string]ffmpeg.KwArgs{
			"balanced": {
				"deadline": "good",
				"cpu-used": 2,
				"row-mt":   1,
				"pix_fmt":  "yuv420p",
			},
			"fast": {
				"deadline": "realtime",
				"cpu-used": 5,
				"row-mt":   1,
				"pix_fmt":  "yuv420p",
			},
		},
	},
}

func GetCodecSettings(outputFormat string) CodecSettings {
	if settings, ok := codecPresets[outputFormat]; ok {
		return settings
	}
	// Default to MP4, every short-video platform accepts it
	return codecPresets["mp4"]
}

// VideoMetadata contains metadata about a video file
type VideoMetadata struct {
	Duration       float64
	Width          int
	Height         int
	Codec          string
	HasAudio       bool
	SubtitleTracks []string
}

// Processor wraps FFmpeg functionality
type Processor struct {
	verbose    bool
	ffmpegPath string
}

// NewProcessor creates a new FFmpeg processor
func NewProcessor(verbose bool) *Processor {
	return &Processor{
		verbose:    verbose,
		ffmpegPath: "ffmpeg",
	}
}

// GetVideoMetadata retrieves metadata about a video file
func (p *Processor) GetVideoMetadata(inputPath string) (*VideoMetadata, error) {
	probe, err := ffmpeg.Probe(inputPath)
	if err != nil {
		return nil, errors.Wrapf(err, "error probing %s", inputPath)
	}

	metadata, err := parseProbe(probe)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading probe of %s", inputPath)
	}

	if p.verbose {
		log.Printf("Video metadata: Duration=%.2fs, Resolution=%dx%d, Codec=%s, Audio=%v\n",
			metadata.Duration, metadata.Width, metadata.Height, metadata.Codec, metadata.HasAudio)
	}

	return metadata, nil
}

type probeStream struct {
	CodecType  string            `json:"codec_type"`
	CodecName  string            `json:"codec_name"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Duration   string            `json:"duration"`
	NbFrames   string            `json:"nb_frames"`
	RFrameRate string            `json:"r_frame_rate"`
	Tags       map[string]string `json:"tags"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbe(probe string) (*VideoMetadata, error) {
	var data probeOutput
	if err := json.Unmarshal([]byte(probe), &data); err != nil {
		return nil, errors.WithStack(err)
	}

	if len(data.Streams) == 0 {
		return nil, errors.New("no streams found in video")
	}

	metadata := &VideoMetadata{}
	var videoStream *probeStream
	for i := range data.Streams {
		s := &data.Streams[i]
		switch s.CodecType {
		case "video":
			if videoStream == nil {
				videoStream = s
			}
		case "audio":
			metadata.HasAudio = true
		case "subtitle":
			track := s.Tags["language"]
			if track == "" {
				track = s.CodecName
			}
			metadata.SubtitleTracks = append(metadata.SubtitleTracks, track)
		}
	}

	if videoStream == nil {
		return nil, errors.New("no video stream found")
	}

	// First try video stream duration, then format duration
	duration := parseSeconds(videoStream.Duration)
	if duration == 0 {
		duration = parseSeconds(data.Format.Duration)
	}

	// If still no duration found, try calculating from frames and frame rate
	if duration == 0 {
		if frames, err := strconv.ParseFloat(videoStream.NbFrames, 64); err == nil {
			if frameRate := parseFrameRate(videoStream.RFrameRate); frameRate > 0 {
				duration = frames / frameRate
			}
		}
	}

	if duration == 0 {
		return nil, errors.New("could not determine video duration")
	}

	metadata.Duration = duration
	metadata.Width = videoStream.Width
	metadata.Height = videoStream.Height
	metadata.Codec = videoStream.CodecName

	return metadata, nil
}

func parseSeconds(s string) float64 {
	d, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return d
}

func parseFrameRate(rate string) float64 {
	nums := strings.Split(rate, "/")
	if len(nums) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(nums[0], 64)
	den, err2 := strconv.ParseFloat(nums[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

// run executes ffmpeg with args and returns the tail of its stderr.
func (p *Processor) run(ctx context.Context, args []string) (string, error) {
	if p.verbose {
		log.Printf("FFmpeg command: %s %s\n", p.ffmpegPath, strings.Join(args, " "))
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	if p.verbose {
		cmd.Stderr = io.MultiWriter(&stderr, os.Stderr)
	} else {
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	return tail(stderr.String(), 20), err
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func GetOptimalThreadCount() int {
	cpuCount := runtime.NumCPU()
	// Use 75% of available cores to prevent overload
	return int(math.Max(1, float64(cpuCount)*0.75))
}

func extractBitrateValue(bitrate string) int {
	// Remove the 'M' or 'k' suffix and convert to number
	value := strings.TrimRight(bitrate, "Mk")
	number, err := strconv.Atoi(value)
	if err != nil {
		return 2 // Default to 2M if parsing fails
	}

	if strings.HasSuffix(bitrate, "k") {
		return number / 1000
	}

	return number
}

// CreateConcatFilter joins same-type segments end to end. Pass video=true for
// video segments, false for audio.
func (p *Processor) CreateConcatFilter(inputs []*ffmpeg.Stream, video bool) *ffmpeg.Stream {
	v, a := 1, 0
	if !video {
		v, a = 0, 1
	}
	return ffmpeg.Filter(inputs, "concat", ffmpeg.Args{}, ffmpeg.KwArgs{
		"n": len(inputs),
		"v": v,
		"a": a,
	})
}

// CreateOverlayFilter creates a filter for overlaying one video on top of another
func (p *Processor) CreateOverlayFilter(main, overlay *ffmpeg.Stream, x, y string) *ffmpeg.Stream {
	return ffmpeg.Filter([]*ffmpeg.Stream{main, overlay}, "overlay", ffmpeg.Args{}, ffmpeg.KwArgs{
		"x": x,
		"y": y,
	})
}

// Helper function to ensure correct file extension
func EnsureExtension(filename, extension string) string {
	// Remove any existing media extension
	extensions := []string{".mp4", ".webm", ".mkv", ".avi", ".mov", ".jpg", ".png"}
	for _, ext := range extensions {
		filename = strings.TrimSuffix(filename, ext)
	}
	return filename + extension
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}
