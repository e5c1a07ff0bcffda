package types

import "fmt"

type ProcessingPlatform string

const (
	ProcessingPlatformTikTok        ProcessingPlatform = "tiktok"
	ProcessingPlatformInstagramReel ProcessingPlatform = "instagram-reel"
	ProcessingPlatformYouTubeShorts ProcessingPlatform = "youtube-shorts"
)

// ArtifactKind names the output produced by one composition plan.
type ArtifactKind string

const (
	ArtifactClip      ArtifactKind = "clip"
	ArtifactThumbnail ArtifactKind = "thumbnail"
)

// ForegroundMode selects how the sharp foreground layer of a clip is sized.
type ForegroundMode string

const (
	ForegroundFitWidth ForegroundMode = "fit-width"
	ForegroundSquare   ForegroundMode = "square"
)

// TimeRange is a span of source time in seconds.
type TimeRange struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

func (r TimeRange) Duration() float64 {
	return r.End - r.Start
}

func (r TimeRange) String() string {
	return fmt.Sprintf("%.3f-%.3f", r.Start, r.End)
}
