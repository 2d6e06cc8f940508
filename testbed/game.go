// Package testbed is a self-contained demo of the asset pipeline: it writes
// a small asset tree to a temp directory, then loads it through the engine
// and prints what arrived in the cache.
package testbed

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/loader"
	"github.com/spaghettifunk/ember/engine/resources"
)

type DemoGame struct {
	*engine.Game

	assetDir     string
	lastProgress int
}

func NewDemoGame() (*DemoGame, error) {
	dir, err := os.MkdirTemp("", "ember-demo-")
	if err != nil {
		return nil, err
	}
	if err := writeDemoAssets(dir); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	dg := &DemoGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				Name:     "Ember Demo",
				AssetDir: dir,
				LogLevel: "debug",
				Loader:   loader.DefaultConfig(),
			},
		},
		assetDir:     dir,
		lastProgress: -1,
	}

	dg.FnBoot = dg.Boot
	dg.FnUpdate = dg.Update
	dg.FnComplete = dg.Complete
	dg.FnShutdown = dg.Shutdown

	return dg, nil
}

func (g *DemoGame) Boot(l *loader.Loader) error {
	core.LogInfo("booting demo from %s", g.assetDir)

	l.Atlas("sprites", "sprites.png", "sprites.json", nil, resources.AtlasJSONArray)
	l.Text("readme", "readme.txt", false)
	l.JSON("settings", "settings.json", false)
	l.Tilemap("level", "level.json", nil, loader.TilemapTiledJSON)
	l.Pack("extras", "pack.json", nil)
	return nil
}

func (g *DemoGame) Update(progress int) error {
	if progress != g.lastProgress {
		g.lastProgress = progress
		core.LogInfo("loading... %d%%", progress)
	}
	return nil
}

func (g *DemoGame) Complete(ev loader.LoadEvent) error {
	core.LogInfo("demo load complete: %d/%d files, %d failed",
		ev.LoadedFiles, ev.TotalFiles, ev.FailedFiles)
	return nil
}

func (g *DemoGame) Shutdown() error {
	return os.RemoveAll(g.assetDir)
}

// writeDemoAssets lays out the asset tree the demo loads: an atlas texture
// plus frame table, a couple of plain files and a pack manifest with its
// own assets.
func writeDemoAssets(dir string) error {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 8), B: 128, A: 255})
		}
	}
	if err := writePNG(filepath.Join(dir, "sprites.png"), img); err != nil {
		return err
	}
	if err := writePNG(filepath.Join(dir, "logo.png"), img); err != nil {
		return err
	}

	files := map[string]string{
		"sprites.json": `{"frames":[
			{"filename":"flame","frame":{"x":0,"y":0,"w":32,"h":32},"rotated":false,"trimmed":false,
			 "spriteSourceSize":{"x":0,"y":0,"w":32,"h":32},"sourceSize":{"w":32,"h":32}},
			{"filename":"spark","frame":{"x":32,"y":0,"w":32,"h":32},"rotated":false,"trimmed":false,
			 "spriteSourceSize":{"x":0,"y":0,"w":32,"h":32},"sourceSize":{"w":32,"h":32}}
		]}`,
		"readme.txt":    "ember demo assets\n",
		"settings.json": `{"volume":0.8,"fullscreen":false}`,
		"level.json":    `{"width":4,"height":4,"layers":[{"name":"ground","data":[1,1,1,1,1,0,0,1,1,0,0,1,1,1,1,1]}]}`,
		"notes.txt":     "loaded through the pack manifest\n",
		"pack.json": `{"extras":[
			{"type":"image","key":"logo","url":"logo.png"},
			{"type":"text","key":"notes","url":"notes.txt"}
		]}`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
