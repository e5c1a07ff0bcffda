package config

import (
	"os"
	"strconv"

	"github.com/ZacxDev/shorts-splitter/pkg/types"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// RunOptions defines options for one shorts run
type RunOptions struct {
	URL             string
	InputPath       string
	Title           string
	ClipDuration    int
	Skip            string
	Cuts            []types.TimeRange
	WorkDir         string
	ClipsDir        string
	ThumbnailsDir   string
	TargetPlatform  string
	LayoutPath      string
	Jobs            int
	ContinueOnError bool
	KeepTemp        bool
	AssumeYes       bool
	Verbose         bool
}

type Resolution struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Layout holds every constant that controls how clips and thumbnails look.
// It is built once per run and shared read-only by all plans.
type Layout struct {
	TargetResolution    Resolution           `yaml:"target_resolution"`
	ThumbnailResolution Resolution           `yaml:"thumbnail_resolution"`
	Foreground          types.ForegroundMode `yaml:"foreground"`
	SquareSize          int                  `yaml:"square_size"`

	FontFile    string `yaml:"font_file"`
	FontColor   string `yaml:"font_color"`
	BorderColor string `yaml:"border_color"`

	ClipTitleFontSize   int `yaml:"clip_title_font_size"`
	ClipPartFontSize    int `yaml:"clip_part_font_size"`
	ClipTitleBorder     int `yaml:"clip_title_border"`
	ClipPartBorder      int `yaml:"clip_part_border"`
	ClipTitleTop        int `yaml:"clip_title_top"`
	ClipPartBottom      int `yaml:"clip_part_bottom"`
	ClipTitleMaxLines   int `yaml:"clip_title_max_lines"`
	ClipTitleLineLength int `yaml:"clip_title_line_length"`

	ThumbTitleFontSize   int `yaml:"thumb_title_font_size"`
	ThumbPartFontSize    int `yaml:"thumb_part_font_size"`
	ThumbTitleBorder     int `yaml:"thumb_title_border"`
	ThumbPartBorder      int `yaml:"thumb_part_border"`
	ThumbTitleTop        int `yaml:"thumb_title_top"`
	ThumbPartBottom      int `yaml:"thumb_part_bottom"`
	ThumbTitleMaxLines   int `yaml:"thumb_title_max_lines"`
	ThumbTitleLineLength int `yaml:"thumb_title_line_length"`

	BlurRadius         int    `yaml:"blur_radius"`
	BlurPower          int    `yaml:"blur_power"`
	ThumbnailTimestamp string `yaml:"thumbnail_timestamp"`
}

const (
	// Portrait canvas for clips (9:16)
	CanvasWidth  = 1080
	CanvasHeight = 1920

	// Thumbnail crop (3:4 portrait)
	ThumbnailWidth  = 480
	ThumbnailHeight = 640

	DefaultFontFile     = "./MinecraftBold.otf"
	DefaultClipDuration = 60
	DefaultWorkDir      = "vids"
	DefaultClipsDir     = "vids/tiktok_clips"
	DefaultThumbsDir    = "vids/thumbnails"
	SourceFilePrefix    = "source_video"
)

// DefaultLayout returns the stock vertical layout.
func DefaultLayout() Layout {
	return Layout{
		TargetResolution:    Resolution{Width: CanvasWidth, Height: CanvasHeight},
		ThumbnailResolution: Resolution{Width: ThumbnailWidth, Height: ThumbnailHeight},
		Foreground:          types.ForegroundFitWidth,

		FontFile:    DefaultFontFile,
		FontColor:   "white",
		BorderColor: "black",

		ClipTitleFontSize:   56,
		ClipPartFontSize:    72,
		ClipTitleBorder:     2,
		ClipPartBorder:      3,
		ClipTitleTop:        500,
		ClipPartBottom:      400,
		ClipTitleMaxLines:   3,
		ClipTitleLineLength: 30,

		ThumbTitleFontSize:   40,
		ThumbPartFontSize:    80,
		ThumbTitleBorder:     1,
		ThumbPartBorder:      3,
		ThumbTitleTop:        20,
		ThumbPartBottom:      100,
		ThumbTitleMaxLines:   4,
		ThumbTitleLineLength: 15,

		BlurRadius:         20,
		BlurPower:          20,
		ThumbnailTimestamp: "00:00",
	}
}

// LoadLayout reads a YAML layout file on top of DefaultLayout. An empty path
// returns the defaults.
func LoadLayout(path string) (Layout, error) {
	layout := DefaultLayout()
	if path == "" {
		return layout, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, errors.Wrapf(err, "failed to read layout %s", path)
	}
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return Layout{}, errors.Wrapf(err, "failed to parse layout %s", path)
	}
	if err := layout.Validate(); err != nil {
		return Layout{}, errors.Wrapf(err, "invalid layout %s", path)
	}

	return layout, nil
}

// Validate checks the geometry. Text settings are allowed to be zero.
func (l Layout) Validate() error {
	if l.TargetResolution.Width <= 0 || l.TargetResolution.Height <= 0 {
		return errors.Errorf("target resolution must be positive, got %dx%d",
			l.TargetResolution.Width, l.TargetResolution.Height)
	}
	if l.ThumbnailResolution.Width <= 0 || l.ThumbnailResolution.Height <= 0 {
		return errors.Errorf("thumbnail resolution must be positive, got %dx%d",
			l.ThumbnailResolution.Width, l.ThumbnailResolution.Height)
	}
	switch l.Foreground {
	case types.ForegroundFitWidth, types.ForegroundSquare:
	default:
		return errors.Errorf("unsupported foreground mode: %s", l.Foreground)
	}
	if l.SquareSize < 0 || l.SquareSize > l.TargetResolution.Width {
		return errors.Errorf("square size %d does not fit canvas width %d", l.SquareSize, l.TargetResolution.Width)
	}
	if l.BlurRadius < 0 || l.BlurPower < 0 {
		return errors.New("blur radius and power must not be negative")
	}
	for name, size := range map[string]int{
		"clip_title_font_size":  l.ClipTitleFontSize,
		"clip_part_font_size":   l.ClipPartFontSize,
		"thumb_title_font_size": l.ThumbTitleFontSize,
		"thumb_part_font_size":  l.ThumbPartFontSize,
	} {
		if size <= 0 {
			return errors.Errorf("%s must be positive, got %d", name, size)
		}
	}
	return nil
}

// Environment keys read after .env files are loaded.
const (
	EnvFontFile = "SHORTS_FONT_FILE"
	EnvWorkDir  = "SHORTS_WORK_DIR"
	EnvJobs     = "SHORTS_JOBS"
	EnvPlatform = "SHORTS_PLATFORM"
)

// LoadEnv loads .env style files into the process environment. Missing files
// are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "failed to load %s", f)
		}
	}
	return nil
}

// ApplyEnv fills options from the environment where the matching flag was not
// set explicitly. changed reports whether a flag was given on the command line.
func ApplyEnv(opts *RunOptions, layout *Layout, changed func(flag string) bool) error {
	if v := os.Getenv(EnvWorkDir); v != "" && !changed("work-dir") {
		opts.WorkDir = v
	}
	if v := os.Getenv(EnvPlatform); v != "" && !changed("target-platform") {
		opts.TargetPlatform = v
	}
	if v := os.Getenv(EnvJobs); v != "" && !changed("jobs") {
		jobs, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvJobs)
		}
		opts.Jobs = jobs
	}
	if v := os.Getenv(EnvFontFile); v != "" && !changed("font") && layout != nil {
		layout.FontFile = v
	}
	return nil
}
