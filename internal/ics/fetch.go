package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"sync"
	"syscall"
	"time"

	appLog "evcal/internal/log"
)

// FetchResult contains the outcome of fetching one ICS URL.
type FetchResult struct {
	URL       string
	Body      []byte // ICS payload (either freshly fetched or from cache)
	FromCache bool   // true if we reused the cached body
}

// cacheEntry holds HTTP cache metadata and the last body for one URL.
type cacheEntry struct {
	ETag         string
	LastModified string
	Body         []byte
	UpdatedAt    time.Time
}

// DefaultCacheEntries bounds the feed cache when no size is configured.
const DefaultCacheEntries = 64

// Fetcher downloads ICS feeds for import, honoring ETag / Last-Modified
// with an in-memory cache shared by all sessions.
type Fetcher struct {
	client       *http.Client
	maxBytes     int64
	allowPrivate bool
	cacheSize    int

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// FetchOption customizes a Fetcher.
type FetchOption func(*Fetcher)

// WithPrivateHosts lets the fetcher dial loopback, private and link-local
// addresses. Off by default.
func WithPrivateHosts(allow bool) FetchOption {
	return func(f *Fetcher) { f.allowPrivate = allow }
}

// WithCacheEntries caps how many feeds the cache keeps.
func WithCacheEntries(n int) FetchOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.cacheSize = n
		}
	}
}

// NewFetcher creates a Fetcher with the given request timeout and body cap.
func NewFetcher(timeout time.Duration, maxBytes int64, opts ...FetchOption) *Fetcher {
	f := &Fetcher{
		maxBytes:  maxBytes,
		cacheSize: DefaultCacheEntries,
		cache:     make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(f)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !f.allowPrivate {
		// The address is checked after DNS resolution, so a public name
		// pointing at an internal IP is refused as well.
		dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second, Control: refusePrivate}
		transport.DialContext = dialer.DialContext
		transport.Proxy = nil
	}
	f.client = &http.Client{Timeout: timeout, Transport: transport}
	return f
}

var (
	// ErrTooLarge is returned when a feed exceeds the configured size.
	ErrTooLarge = errors.New("ics: feed too large")
	// ErrUnsupportedURL rejects anything but absolute http(s) URLs.
	ErrUnsupportedURL = errors.New("ics: unsupported url")
	// ErrBlockedHost is returned when a feed resolves to a non-public address.
	ErrBlockedHost = errors.New("ics: host not allowed")
)

// cgnat is the shared address space of RFC 6598.
var cgnat = netip.MustParsePrefix("100.64.0.0/10")

func refusePrivate(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedHost, address)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedHost, host)
	}
	ip = ip.Unmap()
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() || cgnat.Contains(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedHost, ip)
	}
	return nil
}

// Fetch downloads rawURL. Only http and https are accepted. On a network
// error or non-OK status a previously cached body is returned instead.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (FetchResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return FetchResult{}, fmt.Errorf("%w %q", ErrUnsupportedURL, redactURL(rawURL))
	}

	f.mu.Lock()
	cached, haveCache := f.cache[rawURL]
	f.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	// Conditional headers from cache metadata.
	if cached.ETag != "" {
		req.Header.Set("If-None-Match", cached.ETag)
	}
	if cached.LastModified != "" {
		req.Header.Set("If-Modified-Since", cached.LastModified)
	}

	appLog.Info("ics fetch start", "url", redactURL(rawURL))

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrBlockedHost) {
			appLog.Warn("ics fetch refused", "url", redactURL(rawURL), "error", err.Error())
			return FetchResult{}, err
		}
		// Network error; if we have a cached body, fall back to it.
		if haveCache {
			appLog.Error("ics fetch network error, using cached body", err, "url", redactURL(rawURL))
			return FetchResult{URL: rawURL, Body: cached.Body, FromCache: true}, nil
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
		if readErr != nil {
			return FetchResult{}, readErr
		}
		if int64(len(body)) > f.maxBytes {
			return FetchResult{}, ErrTooLarge
		}

		f.store(rawURL, cacheEntry{
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			Body:         body,
			UpdatedAt:    time.Now().UTC(),
		})

		appLog.Info("ics fetch success", "url", redactURL(rawURL), "status", resp.StatusCode, "bytes", len(body))
		return FetchResult{URL: rawURL, Body: body}, nil

	case http.StatusNotModified:
		if !haveCache {
			return FetchResult{}, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Info("ics fetch not modified; using cache", "url", redactURL(rawURL))
		return FetchResult{URL: rawURL, Body: cached.Body, FromCache: true}, nil

	default:
		if haveCache {
			appLog.Error("ics fetch non-OK, using cached body", errors.New(resp.Status), "url", redactURL(rawURL), "status", resp.StatusCode)
			return FetchResult{URL: rawURL, Body: cached.Body, FromCache: true}, nil
		}
		return FetchResult{}, fmt.Errorf("ics: fetch: %s", resp.Status)
	}
}

// store caches e under rawURL, evicting the least recently updated feed
// once the cache is full.
func (f *Fetcher) store(rawURL string, e cacheEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.cache[rawURL]; !ok && len(f.cache) >= f.cacheSize {
		var oldest string
		var oldestAt time.Time
		for k, v := range f.cache {
			if oldest == "" || v.UpdatedAt.Before(oldestAt) {
				oldest, oldestAt = k, v.UpdatedAt
			}
		}
		delete(f.cache, oldest)
	}
	f.cache[rawURL] = e
}

// redactURL keeps only scheme and host so private feed tokens stay out of
// logs, e.g. https://example.com/...(redacted).
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
