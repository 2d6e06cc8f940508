package transport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var ErrAdapterClosed = errors.New("file adapter is closed")

type fileTask struct {
	ctx    context.Context
	path   string
	settle SettleFunc
}

// FileAdapter serves fetches from a directory tree through a small worker
// pool, which keeps simultaneous disk reads bounded. URLs are interpreted as
// paths relative to the base directory and cannot escape it.
type FileAdapter struct {
	base  string
	tasks chan fileTask
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewFileAdapter starts numWorkers readers rooted at base.
func NewFileAdapter(base string, numWorkers int) (*FileAdapter, error) {
	if numWorkers <= 0 {
		return nil, fmt.Errorf("file adapter: need at least 1 worker, got %d", numWorkers)
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("file adapter: %w", err)
	}
	a := &FileAdapter{
		base:  abs,
		tasks: make(chan fileTask, numWorkers*2),
	}
	a.start(numWorkers)
	return a, nil
}

func (a *FileAdapter) start(numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			for t := range a.tasks {
				if err := t.ctx.Err(); err != nil {
					t.settle(Result{Err: err})
					continue
				}
				data, err := os.ReadFile(t.path)
				if err != nil {
					err = fmt.Errorf("read %s: %w", t.path, err)
				}
				t.settle(Result{Data: data, Err: err})
			}
		}()
	}
}

func (a *FileAdapter) Fetch(ctx context.Context, req Request, settle SettleFunc) {
	// Resolve under base; Clean on a rooted copy strips any "..".
	path := filepath.Join(a.base, filepath.Clean("/"+filepath.FromSlash(req.URL)))

	// Enqueue from a fresh goroutine so Fetch never blocks the caller, even
	// when every worker is busy and the task buffer is full.
	go a.submit(fileTask{ctx: ctx, path: path, settle: settle})
}

// submit enqueues under the mutex so Close cannot close the channel between
// the closed check and the send.
func (a *FileAdapter) submit(t fileTask) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		t.settle(Result{Err: ErrAdapterClosed})
		return
	}
	a.tasks <- t
}

// Close drains the pool. Outstanding fetches still settle; new ones fail with
// ErrAdapterClosed.
func (a *FileAdapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	close(a.tasks)
	a.wg.Wait()
	return nil
}
