package loader

import (
	"strings"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/resources"
)

// Image registers a single image. overwrite replaces a queued descriptor
// with the same (kind, key) in place; a started one is never mutated and the
// registration is appended instead.
func (l *Loader) Image(key, url string, overwrite bool) *Loader {
	l.register(&Descriptor{Kind: KindImage, Key: key, URL: url}, overwrite)
	return l
}

// Images bulk-registers images. urls may be nil or shorter than keys, in
// which case the missing URLs are synthesized from the keys.
func (l *Loader) Images(keys []string, urls []string) *Loader {
	for i, key := range keys {
		url := ""
		if i < len(urls) {
			url = urls[i]
		}
		l.register(&Descriptor{Kind: KindImage, Key: key, URL: url}, false)
	}
	return l
}

// Text registers a plain text asset.
func (l *Loader) Text(key, url string, overwrite bool) *Loader {
	l.register(&Descriptor{Kind: KindText, Key: key, URL: url}, overwrite)
	return l
}

// JSON registers a JSON document; the parsed value is cached.
func (l *Loader) JSON(key, url string, overwrite bool) *Loader {
	l.register(&Descriptor{Kind: KindJSON, Key: key, URL: url}, overwrite)
	return l
}

// XML registers an XML document; the raw bytes are cached after validation.
func (l *Loader) XML(key, url string, overwrite bool) *Loader {
	l.register(&Descriptor{Kind: KindXML, Key: key, URL: url}, overwrite)
	return l
}

// Binary registers an opaque blob. A non-nil callback may transform the
// payload before it is committed; returning nil keeps the payload as-is.
func (l *Loader) Binary(key, url string, callback func(key string, data []byte) []byte) *Loader {
	l.register(&Descriptor{
		Kind:    KindBinary,
		Key:     key,
		URL:     url,
		Options: Options{Callback: callback},
	}, false)
	return l
}

// Script registers a script asset; callback, if any, is invoked with the
// payload once it is committed.
func (l *Loader) Script(key, url string, callback func(key string, data []byte) []byte) *Loader {
	l.register(&Descriptor{
		Kind:    KindScript,
		Key:     key,
		URL:     url,
		Options: Options{Callback: callback},
	}, false)
	return l
}

// Shader registers a shader source file.
func (l *Loader) Shader(key, url string, overwrite bool) *Loader {
	l.register(&Descriptor{Kind: KindShader, Key: key, URL: url}, overwrite)
	return l
}

// SpriteSheet registers a fixed-grid sheet. frameMax < 0 means every frame
// in the grid.
func (l *Loader) SpriteSheet(key, url string, frameWidth, frameHeight, frameMax, margin, spacing int) *Loader {
	l.register(&Descriptor{
		Kind: KindSpriteSheet,
		Key:  key,
		URL:  url,
		Options: Options{
			FrameWidth:  frameWidth,
			FrameHeight: frameHeight,
			FrameMax:    frameMax,
			Margin:      margin,
			Spacing:     spacing,
		},
	}, false)
	return l
}

// Audio registers an audio asset. urls lists candidate encodings; the first
// one with a known-playable extension is fetched.
func (l *Loader) Audio(key string, urls []string, autoDecode bool) *Loader {
	l.register(&Descriptor{
		Kind:    KindAudio,
		Key:     key,
		URL:     pickAudioURL(urls),
		Options: Options{URLs: urls, AutoDecode: autoDecode},
	}, false)
	return l
}

// AudioSprite registers an audio file plus its marker map. Supplying
// jsonData inline skips the marker fetch.
func (l *Loader) AudioSprite(key string, urls []string, jsonURL string, jsonData []byte) *Loader {
	l.register(&Descriptor{
		Kind: KindAudioSprite,
		Key:  key,
		URL:  pickAudioURL(urls),
		Options: Options{
			URLs:     urls,
			JSONURL:  jsonURL,
			JSONData: jsonData,
		},
	}, false)
	return l
}

// Video registers a video asset.
func (l *Loader) Video(key string, urls []string, loadEvent string, asBlob bool) *Loader {
	url := ""
	if len(urls) > 0 {
		url = urls[0]
	}
	l.register(&Descriptor{
		Kind:    KindVideo,
		Key:     key,
		URL:     url,
		Options: Options{URLs: urls, LoadEvent: loadEvent, AsBlob: asBlob},
	}, false)
	return l
}

// Tilemap registers a tilemap. Inline data, when supplied, is committed on
// settlement without fetching.
func (l *Loader) Tilemap(key, url string, data []byte, format TilemapFormat) *Loader {
	l.register(&Descriptor{
		Kind:    KindTilemap,
		Key:     key,
		URL:     url,
		Options: Options{Data: data, TilemapFormat: format},
	}, false)
	return l
}

// Physics registers physics body data.
func (l *Loader) Physics(key, url string, data []byte, format PhysicsFormat) *Loader {
	l.register(&Descriptor{
		Kind:    KindPhysics,
		Key:     key,
		URL:     url,
		Options: Options{Data: data, PhysicsFormat: format},
	}, false)
	return l
}

// BitmapFont registers a glyph texture plus its .fnt descriptor. Supplying
// atlasData inline skips the descriptor fetch.
func (l *Loader) BitmapFont(key, textureURL, atlasURL string, atlasData []byte, xSpacing, ySpacing int) *Loader {
	if atlasURL == "" && len(atlasData) == 0 {
		atlasURL = key + ".fnt"
	}
	l.register(&Descriptor{
		Kind: KindBitmapFont,
		Key:  key,
		URL:  textureURL,
		Options: Options{
			AtlasURL:  atlasURL,
			AtlasData: atlasData,
			XSpacing:  xSpacing,
			YSpacing:  ySpacing,
		},
	}, false)
	return l
}

// Atlas registers a texture atlas in an explicit frame-table format.
func (l *Loader) Atlas(key, textureURL, atlasURL string, atlasData []byte, format resources.AtlasFormat) *Loader {
	if atlasURL == "" && len(atlasData) == 0 {
		if format == resources.AtlasXML {
			atlasURL = key + ".xml"
		} else {
			atlasURL = key + ".json"
		}
	}
	l.register(&Descriptor{
		Kind: KindTextureAtlas,
		Key:  key,
		URL:  textureURL,
		Options: Options{
			AtlasFormat: format,
			AtlasURL:    atlasURL,
			AtlasData:   atlasData,
		},
	}, false)
	return l
}

// AtlasJSONArray registers a TexturePacker "JSON (Array)" atlas.
func (l *Loader) AtlasJSONArray(key, textureURL, atlasURL string, atlasData []byte) *Loader {
	return l.Atlas(key, textureURL, atlasURL, atlasData, resources.AtlasJSONArray)
}

// AtlasJSONHash registers a TexturePacker "JSON (Hash)" atlas.
func (l *Loader) AtlasJSONHash(key, textureURL, atlasURL string, atlasData []byte) *Loader {
	return l.Atlas(key, textureURL, atlasURL, atlasData, resources.AtlasJSONHash)
}

// AtlasXML registers a Starling XML atlas.
func (l *Loader) AtlasXML(key, textureURL, atlasURL string, atlasData []byte) *Loader {
	return l.Atlas(key, textureURL, atlasURL, atlasData, resources.AtlasXML)
}

// Pack registers a manifest of further registrations. Packs are always sync
// points and jump the queue ahead of all not-yet-started ordinary work.
// Supplying data inline marks the pack resolved immediately; it is expanded
// on the next scheduler pass instead of being fetched.
func (l *Loader) Pack(key, url string, data []byte) *Loader {
	l.register(&Descriptor{
		Kind:    KindPack,
		Key:     key,
		URL:     url,
		Options: Options{Data: data},
	}, false)
	return l
}

var playableAudio = []string{".mp3", ".ogg", ".wav", ".m4a", ".webm", ".opus"}

// pickAudioURL returns the first candidate with a known-playable extension,
// falling back to the first candidate.
func pickAudioURL(urls []string) string {
	for _, u := range urls {
		for _, ext := range playableAudio {
			if strings.HasSuffix(u, ext) {
				return u
			}
		}
	}
	if len(urls) > 0 {
		return urls[0]
	}
	return ""
}

// register is the single entry point behind the public surface.
func (l *Loader) register(d *Descriptor, overwrite bool) {
	l.run(func() { l.addToQueueLocked(d, overwrite) })
}

// addToQueueLocked normalizes and enqueues one descriptor. It reports whether
// the registration replaced a queued entry instead of appending. Invalid
// registrations are logged and dropped, never fatal.
func (l *Loader) addToQueueLocked(d *Descriptor, overwrite bool) bool {
	if d.Key == "" {
		core.LogError("loader: %v: empty key for kind %s", ErrInvalidDescriptor, d.Kind)
		return false
	}
	if d.URL == "" && len(d.Options.Data) == 0 {
		d.URL = d.Key + d.Kind.defaultExtension()
	}
	if l.syncScope || d.Kind == KindPack {
		d.SyncPoint = true
	}

	if overwrite {
		if i := l.findUnstartedLocked(d.Kind, d.Key); i >= 0 {
			// Replace in place, position preserved; totals unchanged. The
			// replacement inherits the replaced entry's pack owner: any
			// barrier count owed for that slot stays owed exactly once.
			d.packOwner = l.queue[i].packOwner
			l.queue[i] = d
			l.wakeLocked()
			return true
		}
	}

	if d.Kind == KindPack {
		l.insertPackLocked(d)
		l.totalPacks++
		if len(d.Options.Data) > 0 {
			d.packPayload = d.Options.Data
			d.state = StateResolved
		}
	} else {
		l.queue = append(l.queue, d)
		if d.secondaryOf == nil {
			l.totalFiles++
		}
	}
	l.wakeLocked()
	return false
}

// wakeLocked reschedules after a registration while a run is in progress,
// so work added mid-run (pack children included) is picked up promptly.
func (l *Loader) wakeLocked() {
	if l.stage == StageRunning {
		l.tickLocked()
	}
}

func (l *Loader) findUnstartedLocked(kind Kind, key string) int {
	for i := l.head; i < len(l.queue); i++ {
		d := l.queue[i]
		if d.Kind == kind && d.Key == key && d.state == StateQueued && d.secondaryOf == nil {
			return i
		}
	}
	return -1
}

// insertPackLocked places a pack immediately before the first entry that is
// neither started nor itself a pack: as late as possible while still ahead
// of all ordinary work that has not begun.
func (l *Loader) insertPackLocked(p *Descriptor) {
	idx := len(l.queue)
	for i := l.head; i < len(l.queue); i++ {
		d := l.queue[i]
		if d.state == StateQueued && d.Kind != KindPack {
			idx = i
			break
		}
	}
	l.insertAtLocked(idx, p)
}

// insertSecondaryLocked places a companion fetch directly before its
// primary, which keeps it clear of any barrier the primary itself raises.
func (l *Loader) insertSecondaryLocked(sec *Descriptor) {
	idx := len(l.queue)
	for i := l.head; i < len(l.queue); i++ {
		if l.queue[i] == sec.secondaryOf {
			idx = i
			break
		}
	}
	l.insertAtLocked(idx, sec)
}

func (l *Loader) insertAtLocked(idx int, d *Descriptor) {
	l.queue = append(l.queue, nil)
	copy(l.queue[idx+1:], l.queue[idx:])
	l.queue[idx] = d
}
