package loader

// Kind identifies an asset category. The set is closed: post-processing
// dispatches over it exhaustively, so adding a kind is a compile-time
// checked extension.
type Kind uint8

const (
	KindImage Kind = iota
	KindText
	KindJSON
	KindXML
	KindBinary
	KindScript
	KindShader
	KindAudio
	KindAudioSprite
	KindVideo
	KindSpriteSheet
	KindTextureAtlas
	KindBitmapFont
	KindTilemap
	KindPhysics
	KindPack
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindText:
		return "text"
	case KindJSON:
		return "json"
	case KindXML:
		return "xml"
	case KindBinary:
		return "binary"
	case KindScript:
		return "script"
	case KindShader:
		return "shader"
	case KindAudio:
		return "audio"
	case KindAudioSprite:
		return "audiosprite"
	case KindVideo:
		return "video"
	case KindSpriteSheet:
		return "spritesheet"
	case KindTextureAtlas:
		return "textureAtlas"
	case KindBitmapFont:
		return "bitmapFont"
	case KindTilemap:
		return "tilemap"
	case KindPhysics:
		return "physics"
	case KindPack:
		return "pack"
	}
	return "unknown"
}

// defaultExtension is appended to the key when a registration omits the URL.
func (k Kind) defaultExtension() string {
	switch k {
	case KindImage, KindSpriteSheet, KindTextureAtlas, KindBitmapFont:
		return ".png"
	case KindText:
		return ".txt"
	case KindJSON, KindTilemap, KindPhysics, KindPack:
		return ".json"
	case KindXML:
		return ".xml"
	case KindBinary:
		return ".bin"
	case KindScript:
		return ".js"
	case KindShader:
		return ".glsl"
	case KindAudio, KindAudioSprite:
		return ".mp3"
	case KindVideo:
		return ".mp4"
	}
	return ""
}

// kindFromName maps pack-manifest type tags back to kinds. The tags mirror
// the public registration surface.
func kindFromName(name string) (Kind, bool) {
	switch name {
	case "image":
		return KindImage, true
	case "text":
		return KindText, true
	case "json":
		return KindJSON, true
	case "xml":
		return KindXML, true
	case "binary":
		return KindBinary, true
	case "script":
		return KindScript, true
	case "shader":
		return KindShader, true
	case "audio":
		return KindAudio, true
	case "audiosprite", "audioSprite":
		return KindAudioSprite, true
	case "video":
		return KindVideo, true
	case "spritesheet", "spriteSheet":
		return KindSpriteSheet, true
	case "textureAtlas", "atlas", "atlasJSONArray", "atlasJSONHash", "atlasXML":
		return KindTextureAtlas, true
	case "bitmapFont":
		return KindBitmapFont, true
	case "tilemap":
		return KindTilemap, true
	case "physics":
		return KindPhysics, true
	case "pack":
		return KindPack, true
	}
	return 0, false
}
