package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Details is the content of a video details file: the source URL, the title
// and the clip duration in seconds, one per line.
type Details struct {
	URL          string
	Title        string
	ClipDuration int
}

// LoadDetailsFile reads a three line details file. Blank lines are skipped.
func LoadDetailsFile(path string) (*Details, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open details file %s", path)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read details file %s", path)
	}

	if len(lines) < 3 {
		return nil, errors.Errorf("%s must contain 3 lines: URL, title, and duration", path)
	}

	duration, err := strconv.Atoi(lines[2])
	if err != nil {
		return nil, errors.Wrapf(err, "invalid clip duration %q", lines[2])
	}
	if duration <= 0 {
		return nil, errors.Errorf("clip duration must be positive, got %d", duration)
	}

	return &Details{
		URL:          lines[0],
		Title:        lines[1],
		ClipDuration: duration,
	}, nil
}

// Apply copies the details into opts without overwriting values already set.
func (d *Details) Apply(opts *RunOptions) {
	if opts.URL == "" && opts.InputPath == "" {
		opts.URL = d.URL
	}
	if opts.Title == "" {
		opts.Title = d.Title
	}
	if opts.ClipDuration <= 0 {
		opts.ClipDuration = d.ClipDuration
	}
}
