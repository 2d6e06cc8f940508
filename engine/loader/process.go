package loader

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"image"
	"io"
	"strings"

	// Image formats the pipeline can decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/resources"
	"github.com/spaghettifunk/ember/engine/transport"
)

// applySettlementLocked routes one transport result. Failures are terminal:
// the descriptor is marked failed and the run continues.
func (l *Loader) applySettlementLocked(d *Descriptor, res transport.Result) {
	if res.Err != nil {
		if d.secondaryOf != nil {
			d.state = StateFailed
			d.err = res.Err
			l.failLocked(d.secondaryOf, fmt.Errorf("%w: companion %s: %v", ErrTransportFailure, d.URL, res.Err))
			return
		}
		l.failLocked(d, fmt.Errorf("%w: %v", ErrTransportFailure, res.Err))
		return
	}

	if d.secondaryOf != nil {
		d.state = StateResolved
		l.combineLocked(d.secondaryOf, res.Data)
		return
	}

	switch d.Kind {
	case KindText:
		l.resolveLocked(d, string(res.Data))

	case KindShader:
		l.resolveLocked(d, string(res.Data))

	case KindJSON:
		var v interface{}
		if err := json.Unmarshal(res.Data, &v); err != nil {
			l.failLocked(d, fmt.Errorf("%w: %v", ErrParseFailure, err))
			return
		}
		l.resolveLocked(d, v)

	case KindXML:
		if err := validateXML(res.Data); err != nil {
			l.failLocked(d, fmt.Errorf("%w: %v", ErrParseFailure, err))
			return
		}
		l.resolveLocked(d, res.Data)

	case KindBinary:
		data := res.Data
		if d.Options.Callback != nil {
			if out := d.runCallback(data); out != nil {
				data = out
			}
		}
		l.resolveLocked(d, data)

	case KindScript:
		l.resolveLocked(d, res.Data)
		if d.Options.Callback != nil {
			d.runCallback(res.Data)
		}

	case KindAudio:
		l.resolveLocked(d, &resources.AudioTrack{
			URL:        d.URL,
			Data:       res.Data,
			AutoDecode: d.Options.AutoDecode,
		})

	case KindVideo:
		l.resolveLocked(d, res.Data)

	case KindImage:
		img, err := decodeImage(res.Data)
		if err != nil {
			l.failLocked(d, fmt.Errorf("%w: %v", ErrParseFailure, err))
			return
		}
		l.resolveLocked(d, img)

	case KindSpriteSheet:
		img, err := decodeImage(res.Data)
		if err != nil {
			l.failLocked(d, fmt.Errorf("%w: %v", ErrParseFailure, err))
			return
		}
		l.resolveLocked(d, &resources.SpriteSheet{
			Image:       img,
			FrameWidth:  d.Options.FrameWidth,
			FrameHeight: d.Options.FrameHeight,
			FrameMax:    d.Options.FrameMax,
			Margin:      d.Options.Margin,
			Spacing:     d.Options.Spacing,
		})

	case KindTilemap:
		l.commitTilemapLocked(d, res.Data)

	case KindPhysics:
		l.commitPhysicsLocked(d, res.Data)

	case KindTextureAtlas, KindBitmapFont:
		img, err := decodeImage(res.Data)
		if err != nil {
			l.failLocked(d, fmt.Errorf("%w: %v", ErrParseFailure, err))
			return
		}
		d.stagedImage = img
		l.primarySettledLocked(d)

	case KindAudioSprite:
		d.stagedAudio = res.Data
		l.primarySettledLocked(d)

	case KindPack:
		// Expansion happens when the pack reaches the processing head, so
		// children become visible to the same scan pass that passes it.
		d.packPayload = res.Data
		d.state = StateResolved
	}
}

// settleInlineLocked commits a descriptor whose payload was supplied at
// registration. It never enters flight.
func (l *Loader) settleInlineLocked(d *Descriptor) {
	switch d.Kind {
	case KindTilemap:
		l.commitTilemapLocked(d, d.Options.Data)
	case KindPhysics:
		l.commitPhysicsLocked(d, d.Options.Data)
	}
}

func (l *Loader) commitTilemapLocked(d *Descriptor, data []byte) {
	switch d.Options.TilemapFormat {
	case TilemapCSV:
		l.resolveLocked(d, string(data))
	case TilemapTiledJSON:
		var v map[string]interface{}
		if err := json.Unmarshal(data, &v); err != nil {
			l.failLocked(d, fmt.Errorf("%w: tilemap: %v", ErrParseFailure, err))
			return
		}
		l.resolveLocked(d, v)
	default:
		l.failLocked(d, fmt.Errorf("%w: tilemap: unknown format %d", ErrParseFailure, d.Options.TilemapFormat))
	}
}

func (l *Loader) commitPhysicsLocked(d *Descriptor, data []byte) {
	switch d.Options.PhysicsFormat {
	case PhysicsRaw:
		l.resolveLocked(d, data)
	case PhysicsLimeCoronaJSON:
		var v map[string]interface{}
		if err := json.Unmarshal(data, &v); err != nil {
			l.failLocked(d, fmt.Errorf("%w: physics: %v", ErrParseFailure, err))
			return
		}
		l.resolveLocked(d, v)
	default:
		l.failLocked(d, fmt.Errorf("%w: physics: unknown format %d", ErrParseFailure, d.Options.PhysicsFormat))
	}
}

// primarySettledLocked moves a two-stage descriptor into its second phase.
// The descriptor's state stays InFlight so the head cannot pass it, but it
// leaves the in-flight set: its transport operation is over and the slot
// belongs to the companion fetch now.
func (l *Loader) primarySettledLocked(d *Descriptor) {
	d.phase = phaseAwaitingSecondary
	delete(l.inflight, d)

	if data := d.inlineCompanion(); data != nil {
		l.combineLocked(d, data)
		return
	}

	sec := &Descriptor{
		Kind:        companionKind(d),
		Key:         d.Key,
		URL:         companionURL(d),
		secondaryOf: d,
		packOwner:   d.packOwner,
	}
	d.stagedSecond = sec
	l.insertSecondaryLocked(sec)
	core.LogDebug("loader: %s %q awaiting companion %s", d.Kind, d.Key, sec.URL)
}

// combineLocked parses the companion payload and commits the combined
// resource under the original key, all-or-nothing. Parse failures are
// attributed to the original descriptor.
func (l *Loader) combineLocked(d *Descriptor, data []byte) {
	defer func() {
		d.phase = phaseDone
		d.stagedImage = nil
		d.stagedAudio = nil
		d.stagedSecond = nil
	}()

	switch d.Kind {
	case KindTextureAtlas:
		frames, err := resources.ParseFrames(data, d.Options.AtlasFormat)
		if err != nil {
			l.failLocked(d, fmt.Errorf("%w: %v", ErrParseFailure, err))
			return
		}
		l.resolveLocked(d, resources.NewAtlas(d.stagedImage, frames))

	case KindBitmapFont:
		desc, err := resources.ParseBitmapFont(data)
		if err != nil {
			l.failLocked(d, fmt.Errorf("%w: %v", ErrParseFailure, err))
			return
		}
		l.resolveLocked(d, &resources.BitmapFont{
			Image:    d.stagedImage,
			Font:     desc,
			XSpacing: d.Options.XSpacing,
			YSpacing: d.Options.YSpacing,
		})

	case KindAudioSprite:
		markers, err := resources.ParseAudioSprite(data)
		if err != nil {
			l.failLocked(d, fmt.Errorf("%w: %v", ErrParseFailure, err))
			return
		}
		l.resolveLocked(d, &resources.AudioSprite{
			Track: resources.AudioTrack{
				URL:        d.URL,
				Data:       d.stagedAudio,
				AutoDecode: d.Options.AutoDecode,
			},
			Markers: markers,
		})
	}
}

func (l *Loader) resolveLocked(d *Descriptor, resource interface{}) {
	l.store.Put(d.Kind.String(), d.Key, resource)
	d.state = StateResolved
	l.childSettledLocked(d)
}

func (l *Loader) failLocked(d *Descriptor, err error) {
	d.err = err
	d.state = StateFailed
	core.LogWarn("loader: %s %q failed: %v", d.Kind, d.Key, err)
	l.childSettledLocked(d)
	if d.secondaryOf == nil {
		ev := ErrorEvent{Key: d.Key, Descriptor: d}
		l.pendingEvents = append(l.pendingEvents, func() { l.OnFileError.emit(ev) })
	}
}

// childSettledLocked closes out d's share of its pack's barrier the moment
// it reaches a terminal state. Companion fetches do not count: the original
// settles once for the pair.
func (l *Loader) childSettledLocked(d *Descriptor) {
	if d.packOwner != nil && d.secondaryOf == nil {
		l.closeBarrierChildLocked(d.packOwner)
	}
}

func (d *Descriptor) inlineCompanion() []byte {
	switch d.Kind {
	case KindTextureAtlas, KindBitmapFont:
		if len(d.Options.AtlasData) > 0 {
			return d.Options.AtlasData
		}
	case KindAudioSprite:
		if len(d.Options.JSONData) > 0 {
			return d.Options.JSONData
		}
	}
	return nil
}

func companionKind(d *Descriptor) Kind {
	switch d.Kind {
	case KindTextureAtlas:
		if d.Options.AtlasFormat == resources.AtlasXML {
			return KindXML
		}
		return KindJSON
	case KindBitmapFont:
		if strings.HasSuffix(d.Options.AtlasURL, ".xml") {
			return KindXML
		}
		return KindText
	case KindAudioSprite:
		return KindJSON
	}
	return KindText
}

func companionURL(d *Descriptor) string {
	switch d.Kind {
	case KindTextureAtlas, KindBitmapFont:
		return d.Options.AtlasURL
	case KindAudioSprite:
		if d.Options.JSONURL != "" {
			return d.Options.JSONURL
		}
		return d.Key + ".json"
	}
	return ""
}

// runCallback invokes a caller-supplied hook, recovering panics so a broken
// callback cannot abort the run.
func (d *Descriptor) runCallback(data []byte) (out []byte) {
	defer func() {
		if r := recover(); r != nil {
			core.LogError("loader: %s callback for %q panicked: %v", d.Kind, d.Key, r)
			out = nil
		}
	}()
	return d.Options.Callback(d.Key, data)
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func validateXML(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	seen := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if _, ok := tok.(xml.StartElement); ok {
			seen = true
		}
	}
	if !seen {
		return fmt.Errorf("xml document has no elements")
	}
	return nil
}
