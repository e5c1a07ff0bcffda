package deps

import (
	"fmt"
	"os/exec"
)

const (
	FfmpegInstallURL = "https://ffmpeg.org/download.html"
	YtDlpInstallURL  = "https://github.com/yt-dlp/yt-dlp#installation"
)

// DependencyError contains information about a missing dependency
type DependencyError struct {
	Name       string
	InstallURL string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s not found. Install from: %s", e.Name, e.InstallURL)
}

var lookPath = exec.LookPath

func check(name, installURL string) error {
	if _, err := lookPath(name); err != nil {
		return &DependencyError{
			Name:       name,
			InstallURL: installURL,
		}
	}
	return nil
}

// CheckFfmpeg checks if ffmpeg is installed and available in PATH
func CheckFfmpeg() error {
	return check("ffmpeg", FfmpegInstallURL)
}

// CheckFfprobe checks for ffprobe, which ships with ffmpeg
func CheckFfprobe() error {
	return check("ffprobe", FfmpegInstallURL)
}

// CheckYtDlp checks if yt-dlp is installed and available in PATH
func CheckYtDlp() error {
	return check("yt-dlp", YtDlpInstallURL)
}

// CheckAll checks the tools a run needs. yt-dlp is only required when the
// video has to be downloaded.
func CheckAll(download bool) []error {
	var errs []error

	if err := CheckFfmpeg(); err != nil {
		errs = append(errs, err)
	}

	if err := CheckFfprobe(); err != nil {
		errs = append(errs, err)
	}

	if download {
		if err := CheckYtDlp(); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}
