package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/ember/engine/resources"
)

func TestPackLoadsChildrenOfManyKinds(t *testing.T) {
	manifest := `{"level1":[
		{"type":"image","key":"bg","url":"bg.png"},
		{"type":"text","key":"intro","url":"intro.txt"},
		{"type":"json","key":"cfg","url":"cfg.json"},
		{"type":"spritesheet","key":"tiles","url":"tiles.png","frameWidth":16,"frameHeight":16},
		{"type":"audio","key":"theme","urls":["theme.xyz","theme.ogg"]},
		{"type":"tilemap","key":"map","data":{"width":8},"format":"json"}
	]}`

	a := newAutoAdapter(map[string]fakeResponse{
		"pack.json": {data: []byte(manifest)},
		"bg.png":    {data: pngBytes(t, 8, 8)},
		"intro.txt": {data: []byte("hello")},
		"cfg.json":  {data: []byte(`{"lives":3}`)},
		"tiles.png": {data: pngBytes(t, 32, 16)},
		"theme.ogg": {data: []byte("OggS")},
	})
	l, store := newTestLoader(a, 4)

	var packEvents []PackEvent
	l.OnPackComplete.Connect(func(ev PackEvent) { packEvents = append(packEvents, ev) })

	l.Pack("level1", "pack.json", nil)
	l.Start()

	require.Equal(t, StageFinished, l.Stage())
	require.Len(t, packEvents, 1)
	assert.True(t, packEvents[0].Success)
	assert.Equal(t, 1, packEvents[0].TotalPacks)
	assert.Equal(t, 6, l.TotalLoadedFiles())

	_, ok := store.Get("image", "bg")
	assert.True(t, ok)
	v, ok := store.Get("text", "intro")
	require.True(t, ok)
	assert.Equal(t, "hello", v.(string))
	_, ok = store.Get("json", "cfg")
	assert.True(t, ok)

	v, ok = store.Get("spritesheet", "tiles")
	require.True(t, ok)
	assert.Equal(t, 2, v.(*resources.SpriteSheet).FrameCount())

	v, ok = store.Get("audio", "theme")
	require.True(t, ok)
	assert.Equal(t, "theme.ogg", v.(*resources.AudioTrack).URL)

	v, ok = store.Get("tilemap", "map")
	require.True(t, ok)
	assert.Equal(t, float64(8), v.(map[string]interface{})["width"])
}

func TestPackMissingSectionContributesNothing(t *testing.T) {
	a := newAutoAdapter(map[string]fakeResponse{
		"pack.json": {data: []byte(`{"other":[]}`)},
	})
	l, _ := newTestLoader(a, 4)

	var packEvents []PackEvent
	l.OnPackComplete.Connect(func(ev PackEvent) { packEvents = append(packEvents, ev) })

	l.Pack("level1", "pack.json", nil)
	l.Start()

	assert.Equal(t, StageFinished, l.Stage())
	require.Len(t, packEvents, 1)
	assert.True(t, packEvents[0].Success)
	assert.Equal(t, 0, l.TotalLoadedFiles())
}

func TestPackInvalidManifestFails(t *testing.T) {
	a := newAutoAdapter(map[string]fakeResponse{
		"pack.json": {data: []byte(`{broken`)},
	})
	l, _ := newTestLoader(a, 4)

	var packEvents []PackEvent
	l.OnPackComplete.Connect(func(ev PackEvent) { packEvents = append(packEvents, ev) })
	var errs []string
	l.OnFileError.Connect(func(ev ErrorEvent) { errs = append(errs, ev.Key) })

	l.Pack("level1", "pack.json", nil)
	l.Start()

	assert.Equal(t, StageFinished, l.Stage())
	require.Len(t, packEvents, 1)
	assert.False(t, packEvents[0].Success)
	assert.Equal(t, []string{"level1"}, errs)
}

func TestPackUnknownEntryTypeIsSkipped(t *testing.T) {
	manifest := `{"level1":[
		{"type":"hologram","key":"x","url":"x.holo"},
		{"type":"text","key":"ok","url":"ok.txt"}
	]}`
	a := newAutoAdapter(map[string]fakeResponse{
		"pack.json": {data: []byte(manifest)},
		"ok.txt":    {data: []byte("fine")},
	})
	l, store := newTestLoader(a, 4)

	l.Pack("level1", "pack.json", nil)
	l.Start()

	assert.Equal(t, StageFinished, l.Stage())
	assert.Equal(t, 1, l.TotalLoadedFiles())
	_, ok := store.Get("text", "ok")
	assert.True(t, ok)
}

func TestPackInlineDataSkipsManifestFetch(t *testing.T) {
	manifest := []byte(`{"boot":[{"type":"text","key":"motd","url":"motd.txt"}]}`)
	a := newAutoAdapter(map[string]fakeResponse{
		"motd.txt": {data: []byte("welcome")},
	})
	l, store := newTestLoader(a, 4)

	l.Pack("boot", "", manifest)
	l.Start()

	assert.Equal(t, StageFinished, l.Stage())
	assert.Equal(t, []string{"motd.txt"}, a.fetchedURLs())
	v, ok := store.Get("text", "motd")
	require.True(t, ok)
	assert.Equal(t, "welcome", v.(string))
}

func TestPackOverwriteEntryCountsBarrierOnce(t *testing.T) {
	manifest := `{"level":[
		{"type":"text","key":"dup","url":"old.txt"},
		{"type":"text","key":"dup","url":"new.txt","overwrite":true}
	]}`
	a := newFakeAdapter()
	l, store := newTestLoader(a, 4)

	l.Pack("level", "level.json", nil)
	l.Text("after", "after.txt", false)
	l.Start()

	a.settleURL(t, "level.json", []byte(manifest), nil)

	// The overwrite replaced its sibling in place, so only the replacement
	// fetches; "after" is still behind the barrier.
	assert.Equal(t, []string{"level.json", "new.txt"}, a.fetchedURLs())

	// One settlement drains the barrier and releases "after".
	a.settleURL(t, "new.txt", []byte("fresh"), nil)
	assert.Contains(t, a.fetchedURLs(), "after.txt")

	a.settleURL(t, "after.txt", []byte("done"), nil)
	assert.Equal(t, StageFinished, l.Stage())
	assert.Equal(t, 2, l.TotalLoadedFiles())

	v, ok := store.Get("text", "dup")
	require.True(t, ok)
	assert.Equal(t, "fresh", v.(string))
}

func TestInlinePackChildrenLoadBeforeLaterFiles(t *testing.T) {
	manifest := []byte(`{"boot":[{"type":"text","key":"motd","url":"motd.txt"}]}`)
	a := newFakeAdapter()
	l, store := newTestLoader(a, 4)

	l.Pack("boot", "", manifest)
	l.Text("after", "after.txt", false)
	l.Start()

	// The inline pack expands at the head without fetching a manifest; its
	// child fetches while "after" waits behind the barrier.
	assert.Equal(t, []string{"motd.txt"}, a.fetchedURLs())

	a.settleURL(t, "motd.txt", []byte("welcome"), nil)
	assert.Contains(t, a.fetchedURLs(), "after.txt")

	a.settleURL(t, "after.txt", []byte("later"), nil)
	assert.Equal(t, StageFinished, l.Stage())

	v, ok := store.Get("text", "motd")
	require.True(t, ok)
	assert.Equal(t, "welcome", v.(string))
	_, ok = store.Get("text", "after")
	assert.True(t, ok)
}

func TestNestedPackExpands(t *testing.T) {
	outer := `{"outer":[
		{"type":"pack","key":"inner","data":{"inner":[{"type":"text","key":"deep","url":"deep.txt"}]}},
		{"type":"text","key":"shallow","url":"shallow.txt"}
	]}`
	a := newAutoAdapter(map[string]fakeResponse{
		"pack.json":   {data: []byte(outer)},
		"deep.txt":    {data: []byte("deep")},
		"shallow.txt": {data: []byte("shallow")},
	})
	l, store := newTestLoader(a, 4)

	var packEvents []PackEvent
	l.OnPackComplete.Connect(func(ev PackEvent) { packEvents = append(packEvents, ev) })

	l.Pack("outer", "pack.json", nil)
	l.Start()

	assert.Equal(t, StageFinished, l.Stage())
	assert.Len(t, packEvents, 2)
	for _, ev := range packEvents {
		assert.True(t, ev.Success)
		assert.Equal(t, 2, ev.TotalPacks)
	}
	_, ok := store.Get("text", "deep")
	assert.True(t, ok)
	_, ok = store.Get("text", "shallow")
	assert.True(t, ok)
}

func TestPackTwoStageChildLoads(t *testing.T) {
	manifest := `{"ui":[
		{"type":"atlas","key":"icons","url":"icons.png","atlasURL":"icons.json"}
	]}`
	atlasJSON := `{"frames":[{"filename":"play","frame":{"x":0,"y":0,"w":8,"h":8}}]}`
	a := newAutoAdapter(map[string]fakeResponse{
		"pack.json":  {data: []byte(manifest)},
		"icons.png":  {data: pngBytes(t, 8, 8)},
		"icons.json": {data: []byte(atlasJSON)},
	})
	l, store := newTestLoader(a, 2)

	l.Pack("ui", "pack.json", nil)
	l.Text("after", "after.txt", false)
	a.responses["after.txt"] = fakeResponse{data: []byte("later")}
	l.Start()

	assert.Equal(t, StageFinished, l.Stage())
	v, ok := store.Get("textureAtlas", "icons")
	require.True(t, ok)
	assert.Len(t, v.(*resources.Atlas).Frames, 1)
	_, ok = store.Get("text", "after")
	assert.True(t, ok)
}
