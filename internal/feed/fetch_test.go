package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchOneReadsLocalPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"revision":"r1"}`), 0o600))

	f := NewFetcher(t.TempDir())
	res, err := f.FetchOne(context.Background(), Source{ID: "snapshot", URL: path})
	require.NoError(t, err)
	assert.Equal(t, `{"revision":"r1"}`, string(res.Body))
	assert.False(t, res.FromCache)

	_, err = f.FetchOne(context.Background(), Source{ID: "snapshot", URL: filepath.Join(dir, "missing.json")})
	assert.Error(t, err)
}

func TestFetchOneRejectsEmptyURL(t *testing.T) {
	f := NewFetcher(t.TempDir())
	_, err := f.FetchOne(context.Background(), Source{ID: "snapshot"})
	assert.Error(t, err)
}

func TestFetchOneUsesCacheOnNotModified(t *testing.T) {
	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("hello"))
	}))
	defer ts.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "ics", URL: ts.URL}

	first, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(first.Body))
	assert.False(t, first.FromCache)

	second, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(second.Body), "304 must serve the cached body")
	assert.True(t, second.FromCache)
	assert.Equal(t, int64(2), hits.Load())
}

func TestFetchOneServesStaleOnServerError(t *testing.T) {
	var fail atomic.Bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("last good"))
	}))
	defer ts.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "ics", URL: ts.URL}

	_, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)

	fail.Store(true)
	res, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err, "a failing origin must not break a warmed cache")
	assert.Equal(t, "last good", string(res.Body))
	assert.True(t, res.FromCache)
}

func TestFetchOneServesStaleOnNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("cached before outage"))
	}))

	f := NewFetcher(t.TempDir())
	src := Source{ID: "ics", URL: ts.URL}

	_, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)

	ts.Close()
	res, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "cached before outage", string(res.Body))
	assert.True(t, res.FromCache)
}

func TestFetchOneErrorsWithoutCacheOnFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer ts.Close()

	f := NewFetcher(t.TempDir())
	_, err := f.FetchOne(context.Background(), Source{ID: "ics", URL: ts.URL})
	assert.Error(t, err)
}
