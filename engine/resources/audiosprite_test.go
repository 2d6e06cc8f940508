package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAudioSprite(t *testing.T) {
	doc := `{"spritemap": {
		"shot": {"start": 0, "end": 0.5, "loop": false},
		"loop": {"start": 1, "end": 3.25, "loop": true}
	}}`
	markers, err := ParseAudioSprite([]byte(doc))
	require.NoError(t, err)
	require.Len(t, markers, 2)
	assert.Equal(t, Marker{Start: 1, End: 3.25, Loop: true}, markers["loop"])
}

func TestParseAudioSpriteRejectsEmptyMap(t *testing.T) {
	_, err := ParseAudioSprite([]byte(`{"spritemap": {}}`))
	assert.Error(t, err)
	_, err = ParseAudioSprite([]byte(`{}`))
	assert.Error(t, err)
}

func TestParseAudioSpriteRejectsBadJSON(t *testing.T) {
	_, err := ParseAudioSprite([]byte(`spritemap`))
	assert.Error(t, err)
}
