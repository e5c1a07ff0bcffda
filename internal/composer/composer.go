// Package composer turns wrapped titles and clip positions into composition
// plans. It never touches the filesystem or runs ffmpeg.
package composer

import (
	"fmt"

	"github.com/ZacxDev/shorts-splitter/internal/config"
	"github.com/ZacxDev/shorts-splitter/internal/title"
	"github.com/ZacxDev/shorts-splitter/pkg/types"
)

// textStyle is the per-artifact slice of the layout.
type textStyle struct {
	wrap        title.Profile
	titleSize   int
	partSize    int
	titleBorder int
	partBorder  int
	titleTop    int
	partBottom  int
}

// Composer builds plans against a fixed layout.
type Composer struct {
	layout config.Layout
}

// New creates a composer for layout.
func New(layout config.Layout) *Composer {
	return &Composer{layout: layout}
}

func (c *Composer) style(kind types.ArtifactKind) textStyle {
	l := c.layout
	if kind == types.ArtifactThumbnail {
		return textStyle{
			wrap: title.Profile{
				Name:          title.ThumbnailProfile.Name,
				MaxLines:      l.ThumbTitleMaxLines,
				MaxLineLength: l.ThumbTitleLineLength,
			},
			titleSize:   l.ThumbTitleFontSize,
			partSize:    l.ThumbPartFontSize,
			titleBorder: l.ThumbTitleBorder,
			partBorder:  l.ThumbPartBorder,
			titleTop:    l.ThumbTitleTop,
			partBottom:  l.ThumbPartBottom,
		}
	}
	return textStyle{
		wrap: title.Profile{
			Name:          title.CaptionProfile.Name,
			MaxLines:      l.ClipTitleMaxLines,
			MaxLineLength: l.ClipTitleLineLength,
		},
		titleSize:   l.ClipTitleFontSize,
		partSize:    l.ClipPartFontSize,
		titleBorder: l.ClipTitleBorder,
		partBorder:  l.ClipPartBorder,
		titleTop:    l.ClipTitleTop,
		partBottom:  l.ClipPartBottom,
	}
}

// WrapTitle wraps raw with the profile used for kind.
func (c *Composer) WrapTitle(kind types.ArtifactKind, raw string) title.WrappedTitle {
	return c.style(kind).wrap.Spec(raw).Wrap()
}

// BuildClipPlan lays the clip over a blurred copy of itself on the portrait
// canvas and burns in the title. The part label is drawn only when the batch
// has more than one clip.
func (c *Composer) BuildClipPlan(clip ClipContext, wrapped title.WrappedTitle) CompositionPlan {
	l := c.layout
	style := c.style(types.ArtifactClip)
	w, h := l.TargetResolution.Width, l.TargetResolution.Height

	ops := []Operation{
		{Kind: OpSplit, Branch: BranchMain},
		{Kind: OpScale, Branch: BranchBackground, Scale: ScaleCover, Width: w, Height: h},
		{Kind: OpCrop, Branch: BranchBackground, Width: w, Height: h, X: "(in_w-out_w)/2", Y: "(in_h-out_h)/2"},
		{Kind: OpBlur, Branch: BranchBackground, Radius: l.BlurRadius, Power: l.BlurPower},
	}
	ops = append(ops, c.foreground()...)
	ops = append(ops,
		Operation{Kind: OpOverlay, Branch: BranchMain, X: "(W-w)/2", Y: "(H-h)/2"},
		c.titleOp(style, wrapped),
	)
	if clip.TotalClips > 1 {
		ops = append(ops, c.partOp(style, clip.PartIndex))
	}

	return CompositionPlan{
		Kind:       types.ArtifactClip,
		PartIndex:  clip.PartIndex,
		Source:     clip.Source,
		Target:     clip.Target,
		Width:      w,
		Height:     h,
		Operations: ops,
		Video:      StreamEncode,
		Audio:      StreamCopy,
	}
}

// BuildThumbnailPlan centre-crops one frame and always labels it with its
// part number, whatever the batch size.
func (c *Composer) BuildThumbnailPlan(frame ClipContext, wrapped title.WrappedTitle) CompositionPlan {
	l := c.layout
	style := c.style(types.ArtifactThumbnail)
	w, h := l.ThumbnailResolution.Width, l.ThumbnailResolution.Height

	ops := []Operation{
		{
			Kind:   OpCrop,
			Branch: BranchMain,
			Width:  w,
			Height: h,
			X:      fmt.Sprintf("(in_w-%d)/2", w),
			Y:      fmt.Sprintf("(in_h-%d)/2", h),
		},
		c.titleOp(style, wrapped),
		c.partOp(style, frame.PartIndex),
	}

	return CompositionPlan{
		Kind:          types.ArtifactThumbnail,
		PartIndex:     frame.PartIndex,
		Source:        frame.Source,
		Target:        frame.Target,
		SeekTimestamp: l.ThumbnailTimestamp,
		SingleFrame:   true,
		Width:         w,
		Height:        h,
		Operations:    ops,
		Video:         StreamEncode,
		Audio:         StreamNone,
	}
}

// BuildPlans wraps raw once per profile and returns every clip plan followed
// by every thumbnail plan.
func (c *Composer) BuildPlans(raw string, clips, thumbnails []ClipContext) []CompositionPlan {
	caption := c.WrapTitle(types.ArtifactClip, raw)
	thumb := c.WrapTitle(types.ArtifactThumbnail, raw)

	plans := make([]CompositionPlan, 0, len(clips)+len(thumbnails))
	for _, clip := range clips {
		plans = append(plans, c.BuildClipPlan(clip, caption))
	}
	for _, frame := range thumbnails {
		plans = append(plans, c.BuildThumbnailPlan(frame, thumb))
	}
	return plans
}

func (c *Composer) foreground() []Operation {
	l := c.layout
	w := l.TargetResolution.Width

	if l.Foreground == types.ForegroundSquare {
		size := l.SquareSize
		if size <= 0 {
			size = w
		}
		return []Operation{
			{Kind: OpScale, Branch: BranchForeground, Scale: ScaleCover, Width: size, Height: size},
			{Kind: OpCrop, Branch: BranchForeground, Width: size, Height: size, X: "(in_w-out_w)/2", Y: "(in_h-out_h)/2"},
		}
	}

	return []Operation{
		{Kind: OpScale, Branch: BranchForeground, Scale: ScaleFitWidth, Width: w},
	}
}

func (c *Composer) titleOp(style textStyle, wrapped title.WrappedTitle) Operation {
	text := ""
	if !wrapped.Empty() {
		text = wrapped.Text()
	}
	return Operation{
		Kind:        OpDrawText,
		Branch:      BranchMain,
		Role:        RoleTitle,
		Text:        text,
		FontFile:    c.layout.FontFile,
		FontSize:    style.titleSize,
		FontColor:   c.layout.FontColor,
		BorderColor: c.layout.BorderColor,
		BorderWidth: style.titleBorder,
		X:           "(w-text_w)/2",
		Y:           fmt.Sprintf("%d", style.titleTop),
	}
}

func (c *Composer) partOp(style textStyle, index int) Operation {
	return Operation{
		Kind:        OpDrawText,
		Branch:      BranchMain,
		Role:        RolePartLabel,
		Text:        fmt.Sprintf("Part %d", index),
		FontFile:    c.layout.FontFile,
		FontSize:    style.partSize,
		FontColor:   c.layout.FontColor,
		BorderColor: c.layout.BorderColor,
		BorderWidth: style.partBorder,
		X:           "(w-text_w)/2",
		Y:           fmt.Sprintf("h-%d", style.partBottom),
	}
}
