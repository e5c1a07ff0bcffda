package platform

import "github.com/ZacxDev/shorts-splitter/pkg/types"

// ShortForm is a vertical short-video target.
type ShortForm struct {
	Name         types.ProcessingPlatform
	MaxWidth     int
	MaxHeight    int
	MaxDuration  int // in seconds
	VideoCodec   string
	AudioCodec   string
	VideoBitrate string
}

func init() {
	Register(&ShortForm{
		Name:         types.ProcessingPlatformTikTok,
		MaxWidth:     1080,
		MaxHeight:    1920,
		MaxDuration:  180,
		VideoCodec:   "libx264", // H.264 for better compatibility
		AudioCodec:   "aac",
		VideoBitrate: "4M",
	})
	Register(&ShortForm{
		Name:         types.ProcessingPlatformInstagramReel,
		MaxWidth:     1080,
		MaxHeight:    1920,
		MaxDuration:  90,
		VideoCodec:   "libx264",
		AudioCodec:   "aac",
		VideoBitrate: "2M",
	})
	Register(&ShortForm{
		Name:         types.ProcessingPlatformYouTubeShorts,
		MaxWidth:     1080,
		MaxHeight:    1920,
		MaxDuration:  60,
		VideoCodec:   "libx264",
		AudioCodec:   "aac",
		VideoBitrate: "6M",
	})
}

func (p *ShortForm) GetName() types.ProcessingPlatform {
	return p.Name
}

func (p *ShortForm) GetMaxDimensions() (width, height int) {
	return p.MaxWidth, p.MaxHeight
}

func (p *ShortForm) GetMaxDuration() int {
	return p.MaxDuration
}

func (p *ShortForm) GetVideoCodec() string {
	return p.VideoCodec
}

func (p *ShortForm) GetAudioCodec() string {
	return p.AudioCodec
}

func (p *ShortForm) GetVideoBitrate() string {
	return p.VideoBitrate
}

func (p *ShortForm) GetOutputFormat() string {
	return "mp4"
}
