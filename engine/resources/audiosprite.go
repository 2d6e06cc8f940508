package resources

import (
	"encoding/json"
	"fmt"
)

// ParseAudioSprite parses an audio-sprite marker file. The expected shape is
// the audiosprite tool's output:
//
//	{"spritemap": {"shot": {"start": 0, "end": 0.5, "loop": false}, ...}}
func ParseAudioSprite(data []byte) (map[string]Marker, error) {
	var doc struct {
		SpriteMap map[string]Marker `json:"spritemap"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("audio sprite: %w", err)
	}
	if len(doc.SpriteMap) == 0 {
		return nil, fmt.Errorf("audio sprite: missing or empty spritemap")
	}
	return doc.SpriteMap, nil
}
