package composer

import "github.com/ZacxDev/shorts-splitter/pkg/types"

// ClipContext identifies one output artifact and where it sits in the batch.
type ClipContext struct {
	PartIndex  int
	TotalClips int
	Source     string
	Target     string
}

type OpKind string

const (
	OpSplit    OpKind = "split"
	OpScale    OpKind = "scale"
	OpCrop     OpKind = "crop"
	OpBlur     OpKind = "blur"
	OpOverlay  OpKind = "overlay"
	OpDrawText OpKind = "drawtext"
)

// Branch names a video stream inside a plan. Every plan starts on BranchMain;
// OpSplit forks it into background and foreground and OpOverlay joins them
// back into main.
type Branch string

const (
	BranchMain       Branch = "main"
	BranchBackground Branch = "background"
	BranchForeground Branch = "foreground"
)

type ScaleMode string

const (
	// ScaleCover keeps the aspect ratio and grows until both sides reach the target.
	ScaleCover ScaleMode = "cover"
	// ScaleFitWidth sets the width and derives an even height.
	ScaleFitWidth ScaleMode = "fit-width"
)

type TextRole string

const (
	RoleTitle     TextRole = "title"
	RolePartLabel TextRole = "part-label"
)

type StreamPolicy string

const (
	StreamCopy   StreamPolicy = "copy"
	StreamEncode StreamPolicy = "encode"
	StreamNone   StreamPolicy = "none"
)

// Operation is one visual step. Only the fields relevant to Kind are set.
// X and Y are ffmpeg expressions.
type Operation struct {
	Kind   OpKind    `yaml:"kind"`
	Branch Branch    `yaml:"branch"`
	Scale  ScaleMode `yaml:"scale,omitempty"`
	Width  int       `yaml:"width,omitempty"`
	Height int       `yaml:"height,omitempty"`
	X      string    `yaml:"x,omitempty"`
	Y      string    `yaml:"y,omitempty"`

	Radius int `yaml:"radius,omitempty"`
	Power  int `yaml:"power,omitempty"`

	Role        TextRole `yaml:"role,omitempty"`
	Text        string   `yaml:"text,omitempty"`
	FontFile    string   `yaml:"font_file,omitempty"`
	FontSize    int      `yaml:"font_size,omitempty"`
	FontColor   string   `yaml:"font_color,omitempty"`
	BorderColor string   `yaml:"border_color,omitempty"`
	BorderWidth int      `yaml:"border_width,omitempty"`
}

// CompositionPlan describes everything the media engine needs to render one
// artifact. It carries no references to other plans.
type CompositionPlan struct {
	Kind          types.ArtifactKind `yaml:"kind"`
	PartIndex     int                `yaml:"part_index"`
	Source        string             `yaml:"source"`
	Target        string             `yaml:"target"`
	SeekTimestamp string             `yaml:"seek_timestamp,omitempty"`
	SingleFrame   bool               `yaml:"single_frame,omitempty"`
	Width         int                `yaml:"width"`
	Height        int                `yaml:"height"`
	Operations    []Operation        `yaml:"operations"`
	Video         StreamPolicy       `yaml:"video"`
	Audio         StreamPolicy       `yaml:"audio"`
}

// TextOps returns the draw-text operations in order.
func (p CompositionPlan) TextOps() []Operation {
	var ops []Operation
	for _, op := range p.Operations {
		if op.Kind == OpDrawText {
			ops = append(ops, op)
		}
	}
	return ops
}

// PartLabel returns the "Part N" operation if the plan draws one.
func (p CompositionPlan) PartLabel() (Operation, bool) {
	for _, op := range p.TextOps() {
		if op.Role == RolePartLabel {
			return op, true
		}
	}
	return Operation{}, false
}
