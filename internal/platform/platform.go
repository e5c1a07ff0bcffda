package platform

import (
	"github.com/ZacxDev/shorts-splitter/pkg/types"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Platform defines the interface for platform-specific clip output
type Platform interface {
	// GetName returns the platform name
	GetName() types.ProcessingPlatform

	// GetMaxDimensions returns the maximum allowed video dimensions
	GetMaxDimensions() (width, height int)

	// GetMaxDuration returns the maximum allowed clip duration in seconds
	GetMaxDuration() int

	// GetVideoCodec returns the preferred video codec
	GetVideoCodec() string

	// GetAudioCodec returns the preferred audio codec
	GetAudioCodec() string

	// GetVideoBitrate returns the recommended video bitrate
	GetVideoBitrate() string

	// GetOutputFormat returns the preferred container (e.g., "mp4")
	GetOutputFormat() string
}

var platforms = make(map[types.ProcessingPlatform]Platform)

// Register adds a platform to the registry
func Register(p Platform) {
	platforms[p.GetName()] = p
}

// Get returns a platform by name
func Get(name string) (Platform, error) {
	p, ok := platforms[types.ProcessingPlatform(name)]
	if !ok {
		return nil, errors.Errorf("unsupported platform: %s", name)
	}
	return p, nil
}

// GetSupportedPlatforms returns the registered platform names in sorted order
func GetSupportedPlatforms() []string {
	keys := maps.Keys(platforms)
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, string(k))
	}
	slices.Sort(names)
	return names
}

// CheckClipDuration reports an error when seconds exceeds what p accepts.
func CheckClipDuration(p Platform, seconds int) error {
	if p == nil {
		return nil
	}
	if seconds > p.GetMaxDuration() {
		return errors.Errorf("clip duration %ds exceeds %s maximum of %ds",
			seconds, p.GetName(), p.GetMaxDuration())
	}
	return nil
}

// FitsCanvas reports whether a width x height canvas is within p's limits.
func FitsCanvas(p Platform, width, height int) bool {
	if p == nil {
		return true
	}
	maxWidth, maxHeight := p.GetMaxDimensions()
	return width <= maxWidth && height <= maxHeight
}
