package resources

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
)

// AtlasFormat selects the frame-table flavour of a texture atlas.
type AtlasFormat int

const (
	// TexturePacker "JSON (Array)" export.
	AtlasJSONArray AtlasFormat = iota
	// TexturePacker "JSON (Hash)" export.
	AtlasJSONHash
	// Starling/Sparrow XML export.
	AtlasXML
)

func (f AtlasFormat) String() string {
	switch f {
	case AtlasJSONArray:
		return "jsonArray"
	case AtlasJSONHash:
		return "jsonHash"
	case AtlasXML:
		return "xml"
	}
	return "unknown"
}

type jsonRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type jsonFrame struct {
	Filename         string   `json:"filename"`
	Frame            jsonRect `json:"frame"`
	Rotated          bool     `json:"rotated"`
	Trimmed          bool     `json:"trimmed"`
	SpriteSourceSize jsonRect `json:"spriteSourceSize"`
	SourceSize       jsonRect `json:"sourceSize"`
}

type xmlSubTexture struct {
	Name        string `xml:"name,attr"`
	X           int    `xml:"x,attr"`
	Y           int    `xml:"y,attr"`
	Width       int    `xml:"width,attr"`
	Height      int    `xml:"height,attr"`
	FrameX      int    `xml:"frameX,attr"`
	FrameY      int    `xml:"frameY,attr"`
	FrameWidth  int    `xml:"frameWidth,attr"`
	FrameHeight int    `xml:"frameHeight,attr"`
}

type xmlAtlas struct {
	XMLName     xml.Name        `xml:"TextureAtlas"`
	SubTextures []xmlSubTexture `xml:"SubTexture"`
}

// ParseFrames parses a frame table in the given format. Hash-format frame
// names come back sorted so results are deterministic.
func ParseFrames(data []byte, format AtlasFormat) ([]Frame, error) {
	switch format {
	case AtlasJSONArray:
		var doc struct {
			Frames []jsonFrame `json:"frames"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("atlas json array: %w", err)
		}
		frames := make([]Frame, 0, len(doc.Frames))
		for _, jf := range doc.Frames {
			frames = append(frames, jf.toFrame(jf.Filename))
		}
		return frames, nil

	case AtlasJSONHash:
		var doc struct {
			Frames map[string]jsonFrame `json:"frames"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("atlas json hash: %w", err)
		}
		names := make([]string, 0, len(doc.Frames))
		for name := range doc.Frames {
			names = append(names, name)
		}
		sort.Strings(names)
		frames := make([]Frame, 0, len(names))
		for _, name := range names {
			frames = append(frames, doc.Frames[name].toFrame(name))
		}
		return frames, nil

	case AtlasXML:
		var doc xmlAtlas
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("atlas xml: %w", err)
		}
		frames := make([]Frame, 0, len(doc.SubTextures))
		for _, st := range doc.SubTextures {
			f := Frame{
				Name:         st.Name,
				X:            st.X,
				Y:            st.Y,
				Width:        st.Width,
				Height:       st.Height,
				SourceWidth:  st.FrameWidth,
				SourceHeight: st.FrameHeight,
				OffsetX:      -st.FrameX,
				OffsetY:      -st.FrameY,
			}
			if f.SourceWidth == 0 {
				f.SourceWidth = f.Width
			}
			if f.SourceHeight == 0 {
				f.SourceHeight = f.Height
			}
			f.Trimmed = st.FrameX != 0 || st.FrameY != 0 ||
				f.SourceWidth != f.Width || f.SourceHeight != f.Height
			frames = append(frames, f)
		}
		return frames, nil
	}
	return nil, fmt.Errorf("atlas: unknown format %d", format)
}

func (jf jsonFrame) toFrame(name string) Frame {
	f := Frame{
		Name:         name,
		X:            jf.Frame.X,
		Y:            jf.Frame.Y,
		Width:        jf.Frame.W,
		Height:       jf.Frame.H,
		Rotated:      jf.Rotated,
		Trimmed:      jf.Trimmed,
		SourceWidth:  jf.SourceSize.W,
		SourceHeight: jf.SourceSize.H,
		OffsetX:      jf.SpriteSourceSize.X,
		OffsetY:      jf.SpriteSourceSize.Y,
	}
	if f.SourceWidth == 0 {
		f.SourceWidth = f.Width
	}
	if f.SourceHeight == 0 {
		f.SourceHeight = f.Height
	}
	return f
}
