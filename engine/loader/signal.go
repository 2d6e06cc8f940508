package loader

import (
	"github.com/google/uuid"
	"github.com/spaghettifunk/ember/engine/core"
)

// Signal is an ordered observer list for one event. Handlers run
// synchronously in registration order; a panicking handler is recovered and
// logged so one broken listener cannot abort the run. Each Loader owns its
// own signals — there is no process-wide dispatcher.
type Signal[T any] struct {
	handlers []func(T)
}

// Connect appends a handler. The same function may be connected repeatedly
// and will then be invoked once per connection.
func (s *Signal[T]) Connect(handler func(T)) {
	s.handlers = append(s.handlers, handler)
}

func (s *Signal[T]) clear() {
	s.handlers = nil
}

func (s *Signal[T]) emit(event T) {
	for _, h := range s.handlers {
		invoke(h, event)
	}
}

func invoke[T any](h func(T), event T) {
	defer func() {
		if r := recover(); r != nil {
			core.LogError("loader: event handler panicked: %v", r)
		}
	}()
	h(event)
}

// LoadEvent accompanies the load-start and load-complete signals.
type LoadEvent struct {
	Session     uuid.UUID
	LoadedFiles int
	TotalFiles  int
	FailedFiles int
}

// FileEvent accompanies the per-file start and complete signals.
type FileEvent struct {
	Progress    int
	Key         string
	URL         string
	Success     bool
	LoadedFiles int
	TotalFiles  int
}

// PackEvent accompanies the per-pack complete signal.
type PackEvent struct {
	Key         string
	Success     bool
	LoadedPacks int
	TotalPacks  int
}

// ErrorEvent accompanies the file-error signal.
type ErrorEvent struct {
	Key        string
	Descriptor *Descriptor
}
