// Package assets watches an asset directory and evicts cached resources
// whose backing files change on disk, so the next load re-fetches them.
package assets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/ember/engine/cache"
	"github.com/spaghettifunk/ember/engine/core"
)

// ErrWatcherClosed is returned by operations on a closed Watcher.
var ErrWatcherClosed = errors.New("assets: watcher already closed")

// Watcher invalidates cache entries when the files that produced them are
// written or removed. Keys are derived from the on-disk name, which matches
// registrations that relied on the default URL of key+extension; assets
// registered under unrelated keys are not tracked.
type Watcher struct {
	store *cache.Cache
	base  string

	mutex    sync.Mutex
	fsnotify *fsnotify.Watcher
	done     chan struct{}
	isClosed bool

	// OnInvalidate, when set, observes every eviction. Used by tests and
	// by callers that want to trigger a reload.
	OnInvalidate func(bucket, key string)
}

// NewWatcher creates a Watcher evicting from store. Call Start to begin
// watching.
func NewWatcher(base string, store *cache.Cache) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		store:    store,
		base:     base,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}, nil
}

// Start watches the base directory and all sub-directories.
func (w *Watcher) Start() error {
	w.mutex.Lock()
	if w.isClosed {
		w.mutex.Unlock()
		return ErrWatcherClosed
	}
	w.mutex.Unlock()

	if err := w.watchRecursive(w.base); err != nil {
		return err
	}
	go w.run()
	core.LogInfo("assets: watching %s", w.base)
	return nil
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.isClosed {
		return
	}
	w.isClosed = true
	close(w.done)
}

func (w *Watcher) run() {
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					w.watchRecursive(e.Name)
				}
				continue
			}
			if e.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.invalidate(e.Name)
			}
			if e.Op&fsnotify.Remove != 0 {
				// Might have been a directory; removal from the watch list
				// is harmless either way.
				w.fsnotify.Remove(e.Name)
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("assets: watch error: %v", err)

		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

func (w *Watcher) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return w.fsnotify.Add(walkPath)
		}
		return nil
	})
}

// invalidate evicts every cache entry the changed file could have produced.
// An image write evicts the image itself plus anything combined from it.
func (w *Watcher) invalidate(path string) {
	key := w.keyFor(path)
	if key == "" {
		return
	}
	for _, bucket := range bucketsForExt(filepath.Ext(path)) {
		if !w.store.Remove(bucket, key) {
			continue
		}
		core.LogDebug("assets: evicted %s %q after change to %s", bucket, key, path)
		if w.OnInvalidate != nil {
			w.OnInvalidate(bucket, key)
		}
	}
}

// keyFor turns an absolute path back into a registration key: the path
// relative to the base directory, extension stripped, slash-separated.
func (w *Watcher) keyFor(path string) string {
	rel, err := filepath.Rel(w.base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}

// bucketsForExt lists the cache buckets a file of the given extension can
// feed. Texture writes also evict combined resources built on them.
func bucketsForExt(ext string) []string {
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp":
		return []string{"image", "spritesheet", "textureAtlas", "bitmapFont"}
	case ".json":
		return []string{"json", "tilemap", "physics", "textureAtlas", "audiosprite"}
	case ".xml":
		return []string{"xml", "textureAtlas"}
	case ".fnt":
		return []string{"bitmapFont"}
	case ".txt":
		return []string{"text"}
	case ".csv":
		return []string{"tilemap"}
	case ".js":
		return []string{"script"}
	case ".glsl", ".vert", ".frag":
		return []string{"shader"}
	case ".bin":
		return []string{"binary"}
	case ".mp3", ".ogg", ".wav", ".m4a", ".opus":
		return []string{"audio", "audiosprite"}
	case ".mp4", ".webm":
		return []string{"video"}
	}
	return nil
}
