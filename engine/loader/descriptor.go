package loader

import (
	"image"
	"time"

	"github.com/spaghettifunk/ember/engine/resources"
)

// State is a descriptor's lifecycle position. Transitions only ever move
// forward: Queued → InFlight → Resolved or Failed.
type State uint8

const (
	StateQueued State = iota
	StateInFlight
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateInFlight:
		return "inFlight"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// TilemapFormat selects how tilemap payloads are committed.
type TilemapFormat int

const (
	// Raw CSV stored verbatim as a string.
	TilemapCSV TilemapFormat = iota
	// Tiled JSON export, parsed before commit.
	TilemapTiledJSON
)

// PhysicsFormat selects how physics payloads are committed.
type PhysicsFormat int

const (
	// Parsed LIME/Corona JSON export.
	PhysicsLimeCoronaJSON PhysicsFormat = iota
	// Stored verbatim without parsing.
	PhysicsRaw
)

// twoStagePhase tracks the sub-state machine of two-stage kinds (texture
// atlas, bitmap font, audio sprite). To the scheduler the descriptor is
// simply InFlight throughout; the phase only routes settlements internally.
type twoStagePhase uint8

const (
	phaseNone twoStagePhase = iota
	phaseAwaitingPrimary
	phaseAwaitingSecondary
	phaseDone
)

// Options carries the kind-specific extras of a registration. Only the
// fields relevant to the descriptor's kind are consulted.
type Options struct {
	// SpriteSheet grid geometry. FrameMax < 0 means "all frames".
	FrameWidth  int
	FrameHeight int
	FrameMax    int
	Margin      int
	Spacing     int

	// Texture atlas.
	AtlasFormat resources.AtlasFormat
	AtlasURL    string
	AtlasData   []byte

	// Bitmap font.
	XSpacing int
	YSpacing int

	// Audio / audio sprite / video.
	URLs       []string
	AutoDecode bool
	JSONURL    string
	JSONData   []byte
	LoadEvent  string
	AsBlob     bool

	// Tilemap / physics.
	TilemapFormat TilemapFormat
	PhysicsFormat PhysicsFormat

	// Inline payload supplied at registration (tilemap, physics, pack).
	Data []byte

	// Binary/script hook, invoked with the fetched payload. For binary
	// assets a non-nil return value replaces the committed payload.
	Callback func(key string, data []byte) []byte
}

// Descriptor is the unit of work: one normalized asset request.
type Descriptor struct {
	Kind      Kind
	Key       string
	URL       string
	SyncPoint bool
	Options   Options

	state State
	err   error

	// secondaryOf marks this descriptor as the chained companion fetch of a
	// two-stage asset. Secondary descriptors are scheduler bookkeeping only:
	// they occupy flight capacity but stay out of counters and file events.
	secondaryOf *Descriptor

	// packOwner links a manifest-derived descriptor back to the pack that
	// expanded it, for barrier bookkeeping.
	packOwner *Descriptor

	// counted guards the one-shot settlement accounting.
	counted bool

	// Two-stage staging area on the original descriptor.
	phase        twoStagePhase
	stagedImage  image.Image
	stagedAudio  []byte
	stagedSecond *Descriptor

	// Pack payload staged between settlement and head-arrival expansion.
	packPayload []byte
	expanded    bool

	startedAt time.Time
}

// State reports the descriptor's current lifecycle state.
func (d *Descriptor) State() State { return d.state }

// Err reports why the descriptor failed, if it did.
func (d *Descriptor) Err() error { return d.err }

func (d *Descriptor) settled() bool {
	return d.state == StateResolved || d.state == StateFailed
}

// inlineOnly reports whether the registration supplied the full payload, so
// no fetch is needed at all. Two-stage kinds with inline companion data
// still fetch their primary and are not inline-only.
func (d *Descriptor) inlineOnly() bool {
	switch d.Kind {
	case KindTilemap, KindPhysics:
		return len(d.Options.Data) > 0
	}
	return false
}
