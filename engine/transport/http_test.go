package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fetchSync(t *testing.T, a Adapter, url string) Result {
	t.Helper()
	done := make(chan Result, 1)
	a.Fetch(context.Background(), Request{Key: "k", URL: url}, func(res Result) {
		done <- res
	})
	select {
	case res := <-done:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("fetch never settled")
		return Result{}
	}
}

func TestHTTPAdapterFetchesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/assets/hero.png", r.URL.Path)
		_, _ = w.Write([]byte("pixels"))
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, 0)
	res := fetchSync(t, a, "assets/hero.png")
	require.NoError(t, res.Err)
	assert.Equal(t, []byte("pixels"), res.Data)
}

func TestHTTPAdapterAbsoluteURLBypassesBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("direct"))
	}))
	defer srv.Close()

	a := NewHTTPAdapter("http://unused.invalid", 0)
	res := fetchSync(t, a, srv.URL+"/file.txt")
	require.NoError(t, res.Err)
	assert.Equal(t, []byte("direct"), res.Data)
}

func TestHTTPAdapterNonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, 0)
	res := fetchSync(t, a, "missing.txt")
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "404")
}

func TestHTTPAdapterTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, 50*time.Millisecond)
	res := fetchSync(t, a, "slow.bin")
	assert.Error(t, res.Err)
}

func TestHTTPAdapterHonoursContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	a := NewHTTPAdapter(srv.URL, 0)
	a.Fetch(ctx, Request{Key: "k", URL: "slow.bin"}, func(res Result) {
		done <- res
	})
	cancel()

	select {
	case res := <-done:
		assert.Error(t, res.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled fetch never settled")
	}
}
