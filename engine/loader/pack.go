package loader

import (
	"encoding/json"
	"fmt"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/resources"
)

// packEntry is one manifest line. The field names mirror the public
// registration surface so a manifest reads like a batch of calls.
type packEntry struct {
	Type      string `json:"type"`
	Key       string `json:"key"`
	URL       string `json:"url"`
	Overwrite bool   `json:"overwrite"`
	SyncPoint bool   `json:"syncPoint"`

	Data json.RawMessage `json:"data"`

	FrameWidth  int `json:"frameWidth"`
	FrameHeight int `json:"frameHeight"`
	FrameMax    int `json:"frameMax"`
	Margin      int `json:"margin"`
	Spacing     int `json:"spacing"`

	AtlasURL  string          `json:"atlasURL"`
	AtlasData json.RawMessage `json:"atlasData"`
	Format    string          `json:"format"`

	URLs       []string        `json:"urls"`
	AutoDecode bool            `json:"autoDecode"`
	JSONURL    string          `json:"jsonURL"`
	JSONData   json.RawMessage `json:"jsonData"`

	XSpacing int `json:"xSpacing"`
	YSpacing int `json:"ySpacing"`
}

// expandPackLocked registers the manifest section matching the pack's key.
// The pack counts as loaded the moment its children are queued; the barrier
// it raises is what defers everything registered after it.
func (l *Loader) expandPackLocked(p *Descriptor) {
	p.expanded = true
	payload := p.packPayload
	p.packPayload = nil

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(payload, &sections); err != nil {
		l.failLocked(p, fmt.Errorf("%w: pack manifest: %v", ErrParseFailure, err))
		return
	}

	section, ok := sections[p.Key]
	if !ok {
		// A manifest without the requested section is not an error; the
		// pack simply contributes nothing.
		core.LogWarn("loader: pack %q: manifest has no such section", p.Key)
		p.state = StateResolved
		l.childSettledLocked(p)
		return
	}

	var entries []packEntry
	if err := json.Unmarshal(section, &entries); err != nil {
		l.failLocked(p, fmt.Errorf("%w: pack section %q: %v", ErrParseFailure, p.Key, err))
		return
	}

	children := 0
	for i := range entries {
		if l.registerPackEntryLocked(p, &entries[i]) {
			children++
		}
	}
	if children > 0 {
		l.barriers[p] = children
	}
	core.LogDebug("loader: pack %q expanded into %d entries", p.Key, children)
	p.state = StateResolved
	l.childSettledLocked(p)
}

// registerPackEntryLocked queues one manifest entry as a child of p and
// reports whether anything was queued. Unknown types are skipped with a
// warning so one bad line does not poison the manifest.
func (l *Loader) registerPackEntryLocked(p *Descriptor, e *packEntry) bool {
	kind, ok := kindFromName(e.Type)
	if !ok {
		core.LogWarn("loader: pack %q: unknown entry type %q (key %q)", p.Key, e.Type, e.Key)
		return false
	}

	d := &Descriptor{
		Kind:      kind,
		Key:       e.Key,
		URL:       e.URL,
		SyncPoint: e.SyncPoint,
		packOwner: p,
	}
	switch kind {
	case KindSpriteSheet:
		d.Options.FrameWidth = e.FrameWidth
		d.Options.FrameHeight = e.FrameHeight
		d.Options.FrameMax = e.FrameMax
		if e.FrameMax == 0 {
			d.Options.FrameMax = -1
		}
		d.Options.Margin = e.Margin
		d.Options.Spacing = e.Spacing
	case KindTextureAtlas:
		d.Options.AtlasURL = e.AtlasURL
		d.Options.AtlasData = []byte(e.AtlasData)
		d.Options.AtlasFormat = atlasFormatFromName(e.Type, e.Format)
		if d.Options.AtlasURL == "" && len(d.Options.AtlasData) == 0 {
			if d.Options.AtlasFormat == resources.AtlasXML {
				d.Options.AtlasURL = e.Key + ".xml"
			} else {
				d.Options.AtlasURL = e.Key + ".json"
			}
		}
	case KindBitmapFont:
		d.Options.AtlasURL = e.AtlasURL
		d.Options.AtlasData = []byte(e.AtlasData)
		d.Options.XSpacing = e.XSpacing
		d.Options.YSpacing = e.YSpacing
		if d.Options.AtlasURL == "" && len(d.Options.AtlasData) == 0 {
			d.Options.AtlasURL = e.Key + ".fnt"
		}
	case KindAudio:
		if len(e.URLs) > 0 {
			d.URL = pickAudioURL(e.URLs)
		}
		d.Options.URLs = e.URLs
		d.Options.AutoDecode = e.AutoDecode
	case KindAudioSprite:
		if len(e.URLs) > 0 {
			d.URL = pickAudioURL(e.URLs)
		}
		d.Options.URLs = e.URLs
		d.Options.AutoDecode = e.AutoDecode
		d.Options.JSONURL = e.JSONURL
		d.Options.JSONData = []byte(e.JSONData)
	case KindVideo:
		if len(e.URLs) > 0 {
			d.URL = e.URLs[0]
		}
		d.Options.URLs = e.URLs
	case KindTilemap:
		d.Options.Data = []byte(e.Data)
		d.Options.TilemapFormat = tilemapFormatFromName(e.Format)
	case KindPhysics:
		d.Options.Data = []byte(e.Data)
		d.Options.PhysicsFormat = physicsFormatFromName(e.Format)
	case KindBinary, KindScript:
		// Callbacks cannot travel through a manifest.
	case KindPack:
		d.Options.Data = []byte(e.Data)
	default:
		if len(e.Data) > 0 {
			d.Options.Data = []byte(e.Data)
		}
	}

	// Count d against p's barrier only if it was queued as a fresh child of
	// p. A replacement inherits the replaced entry's owner along with the
	// barrier count already owed for that slot, so counting it again would
	// leave the barrier open forever.
	replaced := l.addToQueueLocked(d, e.Overwrite)
	return !replaced && d.packOwner == p && l.queueContainsLocked(d)
}

func (l *Loader) queueContainsLocked(d *Descriptor) bool {
	for i := l.head; i < len(l.queue); i++ {
		if l.queue[i] == d {
			return true
		}
	}
	return false
}

func atlasFormatFromName(typ, format string) resources.AtlasFormat {
	switch typ {
	case "atlasJSONArray":
		return resources.AtlasJSONArray
	case "atlasJSONHash":
		return resources.AtlasJSONHash
	case "atlasXML":
		return resources.AtlasXML
	}
	switch format {
	case "xml", "atlasXML", "TEXTURE_ATLAS_XML_STARLING":
		return resources.AtlasXML
	case "hash", "atlasJSONHash", "TEXTURE_ATLAS_JSON_HASH":
		return resources.AtlasJSONHash
	}
	return resources.AtlasJSONArray
}

func tilemapFormatFromName(format string) TilemapFormat {
	switch format {
	case "csv", "CSV":
		return TilemapCSV
	}
	return TilemapTiledJSON
}

func physicsFormatFromName(format string) PhysicsFormat {
	switch format {
	case "raw", "RAW":
		return PhysicsRaw
	}
	return PhysicsLimeCoronaJSON
}
