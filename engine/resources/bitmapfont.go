package resources

import (
	"bytes"
	"fmt"

	"github.com/fzipp/bmfont"
)

// ParseBitmapFont parses an AngelCode .fnt descriptor (text format).
// The glyph texture travels separately; callers combine both into a
// BitmapFont value.
func ParseBitmapFont(data []byte) (*bmfont.Descriptor, error) {
	desc, err := bmfont.ReadDescriptor(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("bitmap font: %w", err)
	}
	if len(desc.Chars) == 0 {
		return nil, fmt.Errorf("bitmap font: descriptor has no characters")
	}
	return desc, nil
}
