package engine

import (
	"github.com/spaghettifunk/ember/engine/loader"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnBoot            Boot
	FnUpdate          Update
	FnComplete        Complete
	FnShutdown        Shutdown
}

// Boot registers the game's assets on the loader.
type Boot func(l *loader.Loader) error

// Update is called once per pump tick while the load is running.
type Update func(progress int) error

// Complete is called once when the load finishes.
type Complete func(ev loader.LoadEvent) error

type Shutdown func() error
