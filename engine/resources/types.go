// Package resources defines the materialized resource shapes the loader
// commits to the cache, along with the parsers for companion data files
// (texture-atlas frame tables, bitmap-font descriptors, audio-sprite
// marker maps).
package resources

import (
	"image"

	"github.com/fzipp/bmfont"
)

// Frame is one named region of a packed texture.
type Frame struct {
	Name    string
	X       int
	Y       int
	Width   int
	Height  int
	Rotated bool
	Trimmed bool
	// Source dimensions before trimming, and the offset of the trimmed
	// rect inside the source rect.
	SourceWidth  int
	SourceHeight int
	OffsetX      int
	OffsetY      int
}

// Atlas is the combined result of a texture-atlas load: the decoded texture
// plus its parsed frame table. It is committed to the cache all-or-nothing.
type Atlas struct {
	Image  image.Image
	Frames []Frame

	index map[string]int
}

func NewAtlas(img image.Image, frames []Frame) *Atlas {
	a := &Atlas{
		Image:  img,
		Frames: frames,
		index:  make(map[string]int, len(frames)),
	}
	for i := range frames {
		a.index[frames[i].Name] = i
	}
	return a
}

// Frame looks up a frame by name.
func (a *Atlas) Frame(name string) (Frame, bool) {
	i, ok := a.index[name]
	if !ok {
		return Frame{}, false
	}
	return a.Frames[i], true
}

// SpriteSheet is a fixed-grid texture. Frame geometry is implicit in the
// grid parameters, so no companion file is needed.
type SpriteSheet struct {
	Image       image.Image
	FrameWidth  int
	FrameHeight int
	FrameMax    int
	Margin      int
	Spacing     int
}

// FrameCount returns the number of usable frames in the grid, honouring
// FrameMax when it is non-negative.
func (s *SpriteSheet) FrameCount() int {
	b := s.Image.Bounds()
	if s.FrameWidth <= 0 || s.FrameHeight <= 0 {
		return 0
	}
	cols := (b.Dx() - 2*s.Margin + s.Spacing) / (s.FrameWidth + s.Spacing)
	rows := (b.Dy() - 2*s.Margin + s.Spacing) / (s.FrameHeight + s.Spacing)
	n := cols * rows
	if n < 0 {
		n = 0
	}
	if s.FrameMax >= 0 && s.FrameMax < n {
		n = s.FrameMax
	}
	return n
}

// BitmapFont is the combined result of a bitmap-font load: the decoded glyph
// texture plus the parsed .fnt descriptor.
type BitmapFont struct {
	Image    image.Image
	Font     *bmfont.Descriptor
	XSpacing int
	YSpacing int
}

// AudioTrack is a plain audio payload. Decoding is the player's concern.
type AudioTrack struct {
	URL        string
	Data       []byte
	AutoDecode bool
}

// Marker is one named slice of an audio sprite, in seconds.
type Marker struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Loop  bool    `json:"loop"`
}

// AudioSprite is the combined result of an audio-sprite load: the audio
// payload plus its parsed marker map.
type AudioSprite struct {
	Track   AudioTrack
	Markers map[string]Marker
}
