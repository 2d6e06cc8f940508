// Package engine ties the asset pipeline together for an application: one
// cache, one transport adapter, one loader and an optional file watcher,
// driven through a boot/run/shutdown lifecycle.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/spaghettifunk/ember/engine/assets"
	"github.com/spaghettifunk/ember/engine/cache"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/loader"
	"github.com/spaghettifunk/ember/engine/transport"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool

	store       *cache.Cache
	loader      *loader.Loader
	fileAdapter *transport.FileAdapter
	watcher     *assets.Watcher
	clock       *core.Clock

	done chan loader.LoadEvent
	quit chan struct{}
}

func New(g *Game) (*Engine, error) {
	cfg := g.ApplicationConfig
	if cfg == nil {
		return nil, fmt.Errorf("engine: game has no application config")
	}
	core.SetLogLevel(cfg.LogLevel)

	store := cache.New()

	var (
		adapter transport.Adapter
		fa      *transport.FileAdapter
	)
	if strings.HasPrefix(cfg.BaseURL, "http://") || strings.HasPrefix(cfg.BaseURL, "https://") {
		adapter = transport.NewHTTPAdapter(cfg.BaseURL, cfg.Loader.FetchTimeout())
	} else {
		var err error
		fa, err = transport.NewFileAdapter(cfg.AssetDir, cfg.Loader.MaxParallel)
		if err != nil {
			core.LogError("%s", err)
			return nil, err
		}
		adapter = fa
	}

	var watcher *assets.Watcher
	if cfg.WatchAssets && fa != nil {
		var err error
		watcher, err = assets.NewWatcher(cfg.AssetDir, store)
		if err != nil {
			core.LogError("%s", err)
			return nil, err
		}
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		isRunning:    true,
		store:        store,
		loader:       loader.New(cfg.Loader, adapter, store),
		fileAdapter:  fa,
		watcher:      watcher,
		clock:        core.NewClock(),
		done:         make(chan loader.LoadEvent, 1),
		quit:         make(chan struct{}),
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageBooting

	if e.gameInstance.FnBoot != nil {
		if err := e.gameInstance.FnBoot(e.loader); err != nil {
			core.LogError("failed to boot the game: %s", err.Error())
			return err
		}
	}
	e.currentStage = EngineStageBootComplete

	e.currentStage = EngineStageInitializing
	e.loader.OnLoadComplete.Connect(func(ev loader.LoadEvent) {
		e.done <- ev
	})
	if e.watcher != nil {
		if err := e.watcher.Start(); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized

	core.LogInfo("%s initialized", e.gameInstance.ApplicationConfig.Name)
	return nil
}

// Run starts the load and pumps it until completion or shutdown.
func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.loader.Start()

	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	for e.isRunning {
		select {
		case <-ticker.C:
			e.loader.Update()
			if e.gameInstance.FnUpdate != nil {
				if err := e.gameInstance.FnUpdate(e.loader.Progress()); err != nil {
					e.Shutdown()
					return err
				}
			}

		case ev := <-e.done:
			e.clock.Stop()
			core.LogInfo("load finished in %s", e.clock.Elapsed())
			if e.gameInstance.FnComplete != nil {
				if err := e.gameInstance.FnComplete(ev); err != nil {
					e.Shutdown()
					return err
				}
			}
			return e.Shutdown()

		case <-e.quit:
			return e.Shutdown()
		}
	}
	return nil
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	if e.watcher != nil {
		e.watcher.Close()
	}
	if e.fileAdapter != nil {
		if err := e.fileAdapter.Close(); err != nil {
			core.LogError("%s", err)
		}
	}
	if e.gameInstance.FnShutdown != nil {
		return e.gameInstance.FnShutdown()
	}
	return nil
}

// Stop requests an orderly shutdown from another goroutine.
func (e *Engine) Stop() {
	select {
	case <-e.quit:
	default:
		close(e.quit)
	}
}

// Cache exposes the resource store for reads after the load completes.
func (e *Engine) Cache() *cache.Cache { return e.store }
