package engine

import (
	"github.com/spaghettifunk/ember/engine/loader"
)

type ApplicationConfig struct {
	// The application name, used in logs.
	Name string
	// Directory assets are read from when BaseURL is empty.
	AssetDir string
	// HTTP base to fetch assets from instead of the local filesystem.
	BaseURL string
	// Evict cached assets whose files change on disk. Only meaningful with
	// a local AssetDir.
	WatchAssets bool
	LogLevel    string
	Loader      loader.Config
}
