package engine

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/ember/engine/loader"
)

// slowServer parks requests until the test ends, so a load never finishes on
// its own.
func slowServer(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	return srv
}

func TestRunShutsDownWhenUpdateFails(t *testing.T) {
	srv := slowServer(t)

	shutdowns := 0
	g := &Game{
		ApplicationConfig: &ApplicationConfig{
			Name:    "update-fail",
			BaseURL: srv.URL,
			Loader:  loader.DefaultConfig(),
		},
		FnBoot: func(l *loader.Loader) error {
			l.Text("a", "a.txt", false)
			return nil
		},
		FnUpdate:   func(int) error { return errors.New("update broke") },
		FnShutdown: func() error { shutdowns++; return nil },
	}

	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())

	err = e.Run()
	assert.Error(t, err)
	assert.Equal(t, 1, shutdowns)
}

func TestRunShutsDownWhenCompleteFails(t *testing.T) {
	g := &Game{
		ApplicationConfig: &ApplicationConfig{
			Name:     "complete-fail",
			AssetDir: t.TempDir(),
			Loader:   loader.DefaultConfig(),
		},
		FnComplete: func(loader.LoadEvent) error { return errors.New("complete broke") },
	}

	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())

	// Nothing registered, so the load finishes on the first pump.
	err = e.Run()
	assert.Error(t, err)
	assert.Equal(t, EngineStageShuttingDown, e.currentStage)
}

func TestStopShutsDownRun(t *testing.T) {
	srv := slowServer(t)

	shutdowns := 0
	g := &Game{
		ApplicationConfig: &ApplicationConfig{
			Name:    "stopped",
			BaseURL: srv.URL,
			Loader:  loader.DefaultConfig(),
		},
		FnBoot: func(l *loader.Loader) error {
			l.Text("a", "a.txt", false)
			return nil
		},
		FnShutdown: func() error { shutdowns++; return nil },
	}

	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())

	go func() {
		time.Sleep(50 * time.Millisecond)
		e.Stop()
	}()

	require.NoError(t, e.Run())
	assert.Equal(t, 1, shutdowns)
}

func TestNewRejectsUnusableAdapterConfig(t *testing.T) {
	g := &Game{
		ApplicationConfig: &ApplicationConfig{
			Name:     "bad-adapter",
			AssetDir: t.TempDir(),
			Loader:   loader.Config{MaxParallel: 0},
		},
	}

	_, err := New(g)
	assert.Error(t, err)
}

func TestNewRequiresApplicationConfig(t *testing.T) {
	_, err := New(&Game{})
	assert.Error(t, err)
}
