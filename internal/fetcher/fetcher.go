// Package fetcher obtains the source video for a run.
package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Media is a source video on local disk.
type Media struct {
	Path           string
	SubtitleTracks []string
	// Advisory carries warnings the downloader printed. A non-empty advisory
	// asks for confirmation before the run continues.
	Advisory string
}

// Fetcher places the video named by locator at dest.
type Fetcher interface {
	Fetch(ctx context.Context, locator, dest string) (*Media, error)
}

// YtDlp downloads with the yt-dlp command line tool.
type YtDlp struct {
	Binary  string
	Verbose bool
}

// NewYtDlp creates a fetcher that runs yt-dlp from PATH.
func NewYtDlp(verbose bool) *YtDlp {
	return &YtDlp{Binary: "yt-dlp", Verbose: verbose}
}

// Fetch downloads locator to dest. An existing dest is reused as is.
func (y *YtDlp) Fetch(ctx context.Context, locator, dest string) (*Media, error) {
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		log.Printf("Video already downloaded: %s (%s)\n", dest, locator)
		return &Media{Path: dest}, nil
	}
	if locator == "" {
		return nil, errors.New("no video URL given")
	}

	if dir := filepath.Dir(dest); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "error creating download directory")
		}
	}

	args := downloadArgs(locator, dest)
	if y.Verbose {
		log.Printf("yt-dlp command: %s %s\n", y.Binary, strings.Join(args, " "))
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, y.Binary, args...)
	if y.Verbose {
		cmd.Stdout = os.Stdout
		cmd.Stderr = io.MultiWriter(&stderr, os.Stderr)
	} else {
		cmd.Stderr = &stderr
	}

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "failed to download %s\n%s", locator, strings.TrimSpace(stderr.String()))
	}

	if _, err := os.Stat(dest); err != nil {
		return nil, errors.Wrap(err, "download finished but the output file is missing")
	}

	return &Media{Path: dest, Advisory: advisory(stderr.Bytes())}, nil
}

func downloadArgs(locator, dest string) []string {
	return []string{
		"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]",
		"--merge-output-format", "mp4",
		"--write-subs",
		"--embed-subs",
		"--no-playlist",
		"-o", dest,
		locator,
	}
}

// advisory collects the WARNING lines yt-dlp printed.
func advisory(stderr []byte) string {
	var warnings []string
	scanner := bufio.NewScanner(bytes.NewReader(stderr))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "WARNING:") {
			warnings = append(warnings, strings.TrimSpace(strings.TrimPrefix(line, "WARNING:")))
		}
	}
	return strings.Join(warnings, "\n")
}

// Local uses a video that is already on disk. The locator is the path and
// dest is ignored.
type Local struct{}

func (Local) Fetch(_ context.Context, locator, _ string) (*Media, error) {
	info, err := os.Stat(locator)
	if err != nil {
		return nil, errors.Wrapf(err, "input video %s", locator)
	}
	if info.IsDir() {
		return nil, errors.Errorf("input video %s is a directory", locator)
	}
	return &Media{Path: locator}, nil
}
