package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "barsign/internal/log"
)

// Source is a single feed endpoint: the content snapshot or an ICS
// subscription. URL may also be a plain filesystem path for single-box
// installs; those are read directly and bypass the HTTP cache.
type Source struct {
	// ID is an internal identifier (e.g., config ICS ID).
	ID string
	// URL is the feed endpoint or local path.
	URL string
}

// FetchResult contains the outcome of fetching a single source.
type FetchResult struct {
	Source    Source
	Body      []byte // payload, either freshly fetched or from cache
	FromCache bool   // true if we reused cached body due to 304 or a network error
}

// cacheMeta holds the HTTP validators for a cached body.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// diskCache persists one URL's last good body plus its HTTP validators, so
// the board keeps showing the last known content when the back-office app
// is unreachable.
type diskCache struct {
	dir string
}

func (c diskCache) metaPath() string { return filepath.Join(c.dir, "meta.json") }
func (c diskCache) bodyPath() string { return filepath.Join(c.dir, "body.dat") }

// load returns whatever validators and body survive on disk; both are
// best-effort and may be zero.
func (c diskCache) load() (cacheMeta, []byte) {
	var meta cacheMeta
	if data, err := os.ReadFile(c.metaPath()); err == nil {
		if err := json.Unmarshal(data, &meta); err != nil {
			meta = cacheMeta{}
		}
	}
	body, err := os.ReadFile(c.bodyPath())
	if err != nil {
		body = nil
	}
	return meta, body
}

// store writes body first so meta never points at a missing body.
func (c diskCache) store(meta cacheMeta, body []byte) error {
	if err := os.WriteFile(c.bodyPath(), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.metaPath(), data, 0o600)
}

// Fetcher retrieves feed payloads. HTTP sources are fetched with
// conditional requests (ETag / Last-Modified) backed by a per-URL disk
// cache; filesystem sources are read directly.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a new Fetcher. cacheDir is the base directory for
// per-URL cache subdirectories, e.g. "/var/lib/barsign/feed-cache".
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		// Caller should set this explicitly; fall back to a relative dir so
		// development runs without root permissions.
		cacheDir = "./var/feed-cache"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cacheDir: cacheDir,
	}
}

// FetchAll fetches all given sources. Errors for individual sources are
// logged and collected; the result slice only holds sources that produced a
// body, from network, cache, or disk.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, []error) {
	results := make([]FetchResult, 0, len(sources))
	errs := make([]error, 0)

	for _, src := range sources {
		res, err := f.FetchOne(ctx, src)
		if err != nil {
			errs = append(errs, err)
			appLog.Error("feed fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		results = append(results, res)
	}

	return results, errs
}

// FetchOne fetches a single source. Non-HTTP URLs are treated as local
// filesystem paths.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("source URL is empty")
	}
	if !isHTTP(src.URL) {
		body, err := os.ReadFile(src.URL)
		if err != nil {
			return FetchResult{}, err
		}
		return FetchResult{Source: src, Body: body}, nil
	}
	return f.fetchHTTP(ctx, src)
}

func (f *Fetcher) fetchHTTP(ctx context.Context, src Source) (FetchResult, error) {
	cache, err := f.cacheFor(src.URL)
	if err != nil {
		return FetchResult{}, err
	}
	meta, cachedBody := cache.load()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Debug("feed fetch start", "id", src.ID, "url", redactURL(src.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		// Network error; if we have a cached body, fall back to it.
		if len(cachedBody) > 0 {
			appLog.Error("feed fetch network error, using cached body", err, "id", src.ID, "url", redactURL(src.URL))
			return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return FetchResult{}, readErr
		}

		newMeta := cacheMeta{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := cache.store(newMeta, body); err != nil {
			// Log but still return the freshly fetched body.
			appLog.Error("feed cache save failed", err, "id", src.ID, "url", redactURL(src.URL))
		}

		appLog.Info("feed fetch success", "id", src.ID, "url", redactURL(src.URL), "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			// 304 but no cached body: treat as error.
			return FetchResult{}, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Debug("feed fetch not modified; using cache", "id", src.ID, "url", redactURL(src.URL))
		return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil

	default:
		// Non-OK status: if we have cached data, fall back to it.
		if len(cachedBody) > 0 {
			appLog.Error("feed fetch non-OK, using cached body", errors.New(resp.Status), "id", src.ID, "url", redactURL(src.URL), "status", resp.StatusCode)
			return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, errors.New(resp.Status)
	}
}

// cacheFor returns the per-URL disk cache, creating its directory.
func (f *Fetcher) cacheFor(url string) (diskCache, error) {
	sum := sha256.Sum256([]byte(url))
	// First 16 hex chars of the URL hash name the directory.
	dir := filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return diskCache{}, err
	}
	return diskCache{dir: dir}, nil
}

func isHTTP(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// redactURL hides sensitive parts of a feed URL for logging purposes.
// Snapshot and ICS URLs commonly carry access tokens in the path or query.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	// Find scheme separator.
	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "feed://...(redacted)"
	}

	// Find next slash after host.
	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}

	return u[:j] + redactedSuffix
}
