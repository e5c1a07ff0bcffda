package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/ZacxDev/shorts-splitter/pkg/types"
	"github.com/pkg/errors"
)

// ParseTimeRange reads a "start-end" cut such as "90-125", "1:30-2:05" or
// "1m30s-2m5s".
func ParseTimeRange(s string) (types.TimeRange, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return types.TimeRange{}, errors.Errorf("invalid range %q, want start-end", s)
	}

	from, err := ParseTimestamp(start)
	if err != nil {
		return types.TimeRange{}, errors.Wrapf(err, "invalid range start in %q", s)
	}
	to, err := ParseTimestamp(end)
	if err != nil {
		return types.TimeRange{}, errors.Wrapf(err, "invalid range end in %q", s)
	}
	if to <= from {
		return types.TimeRange{}, errors.Errorf("range %q ends before it starts", s)
	}

	return types.TimeRange{Start: from, End: to}, nil
}

// ParseTimestamp accepts plain seconds, [hh:]mm:ss or a Go duration.
func ParseTimestamp(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty timestamp")
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) > 3 {
			return 0, errors.Errorf("invalid timestamp %q", s)
		}
		var total float64
		for _, p := range parts {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil || v < 0 {
				return 0, errors.Errorf("invalid timestamp %q", s)
			}
			total = total*60 + v
		}
		return total, nil
	}

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v < 0 {
			return 0, errors.Errorf("negative timestamp %q", s)
		}
		return v, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Errorf("invalid timestamp %q", s)
	}
	if d < 0 {
		return 0, errors.Errorf("negative timestamp %q", s)
	}
	return d.Seconds(), nil
}
