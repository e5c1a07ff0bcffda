// Package title lays out a raw title string into a bounded number of lines
// for burning into clips and thumbnails.
package title

import (
	"strings"
	"unicode/utf8"
)

// Profile is a named pair of wrap limits for one artifact type.
type Profile struct {
	Name          string
	MaxLines      int
	MaxLineLength int
}

var (
	// ThumbnailProfile packs short lines so the title stays readable on a small still.
	ThumbnailProfile = Profile{Name: "thumbnail", MaxLines: 4, MaxLineLength: 15}

	// CaptionProfile is used for the title burned into clip video.
	CaptionProfile = Profile{Name: "caption", MaxLines: 3, MaxLineLength: 30}
)

// Spec builds the TitleSpec for raw using the profile limits.
func (p Profile) Spec(raw string) TitleSpec {
	return TitleSpec{
		Title:         raw,
		MaxLines:      p.MaxLines,
		MaxLineLength: p.MaxLineLength,
	}
}

// TitleSpec is the input to Wrap.
type TitleSpec struct {
	Title         string
	MaxLines      int
	MaxLineLength int
}

// Wrap applies the limits in s.
func (s TitleSpec) Wrap() WrappedTitle {
	return Wrap(s.Title, s.MaxLines, s.MaxLineLength)
}

// WrappedTitle is the line layout produced by Wrap.
type WrappedTitle struct {
	Lines []string
}

// Text joins the lines into a single multi-line block.
func (w WrappedTitle) Text() string {
	return strings.Join(w.Lines, "\n")
}

// Empty reports whether there is nothing to draw.
func (w WrappedTitle) Empty() bool {
	return strings.TrimSpace(w.Text()) == ""
}

// Wrap greedily packs the words of title into lines of at most maxLineLength
// characters and keeps the first maxLines of them. Words are never split, so
// a single word longer than maxLineLength gets a line of its own. Limits below
// one are treated as one.
func Wrap(title string, maxLines, maxLineLength int) WrappedTitle {
	if maxLines < 1 {
		maxLines = 1
	}
	if maxLineLength < 1 {
		maxLineLength = 1
	}

	words := strings.Fields(title)
	lines := make([]string, 0, maxLines)

	var current []string
	// length of the current line counting one trailing space per word
	currentLen := 0

	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)
		if currentLen+wordLen+1 <= maxLineLength || len(current) == 0 {
			current = append(current, word)
			currentLen += wordLen + 1
			continue
		}
		lines = append(lines, strings.Join(current, " "))
		current = []string{word}
		currentLen = wordLen + 1
	}
	lines = append(lines, strings.Join(current, " "))

	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}

	return WrappedTitle{Lines: lines}
}
