package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

const fetchUserAgent = "hackhero/1.0"

// Non-text/* MIME types accepted for URL ingestion.
var allowedAppMimes = map[string]bool{
	"application/xhtml+xml": true,
	"application/json":      true,
	"application/xml":       true,
}

// Fetcher retrieves text content from http/https URLs under hard safety
// limits: bounded redirects re-checked per hop, a HEAD preflight against a
// MIME allowlist, a streaming byte cap, and a per-phase timeout.
type Fetcher struct {
	maxBytes     int64
	timeout      time.Duration
	maxRedirects int
	transport    http.RoundTripper
}

func NewFetcher(maxBytes int64, timeout time.Duration, maxRedirects int) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRedirects < 0 {
		maxRedirects = 0
	}
	return &Fetcher{
		maxBytes:     maxBytes,
		timeout:      timeout,
		maxRedirects: maxRedirects,
		transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// Fetch returns the UTF-8 body of rawURL, or a typed error. The HEAD
// preflight rejects disallowed MIME types and oversized bodies before any
// content is read; the GET re-checks both since servers may answer HEAD
// and GET differently.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", store.Validationf("parse url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", store.Validationf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", store.Validationf("missing host in url")
	}

	if err := f.preflight(ctx, rawURL); err != nil {
		return "", err
	}
	return f.get(ctx, rawURL)
}

// client builds a per-request client so the redirect budget starts at zero
// for the preflight and again for the body fetch. Every hop is re-checked
// for scheme before it is followed.
func (f *Fetcher) client() *http.Client {
	redirects := 0
	return &http.Client{
		Timeout:   f.timeout,
		Transport: f.transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			redirects++
			if redirects > f.maxRedirects {
				return fmt.Errorf("stopped after %d redirects: %w", f.maxRedirects, ErrTooManyRedirects)
			}
			if s := req.URL.Scheme; s != "http" && s != "https" {
				return Networkf("redirect to %s url", s)
			}
			return nil
		},
	}
}

func (f *Fetcher) preflight(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return store.Validationf("build request: %v", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := f.client().Do(req)
	if err != nil {
		return wrapFetchErr("head", err)
	}
	defer resp.Body.Close()

	// Servers without HEAD support are tolerated; the GET is checked anyway.
	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		return nil
	}
	if resp.StatusCode >= 400 {
		return Networkf("head status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !allowedMime(ct) {
		return UnsupportedMimef("content type %q", ct)
	}
	if resp.ContentLength > f.maxBytes {
		return Oversizef("content length %d exceeds %d byte cap", resp.ContentLength, f.maxBytes)
	}
	return nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", store.Validationf("build request: %v", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8,*/*;q=0.5")

	resp, err := f.client().Do(req)
	if err != nil {
		return "", wrapFetchErr("get", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", Networkf("get status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !allowedMime(ct) {
		return "", UnsupportedMimef("content type %q", ct)
	}
	if resp.ContentLength > f.maxBytes {
		return "", Oversizef("content length %d exceeds %d byte cap", resp.ContentLength, f.maxBytes)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", wrapFetchErr("read body", err)
	}
	if int64(len(body)) > f.maxBytes {
		return "", Oversizef("body exceeds %d byte cap", f.maxBytes)
	}
	if !utf8.Valid(body) {
		return "", Decodef("body of %s is not valid utf-8", rawURL)
	}
	return string(body), nil
}

// allowedMime reports whether a Content-Type header value is text/* or one
// of the accepted application types. Parameters such as charset are ignored.
func allowedMime(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "text/") || allowedAppMimes[mt]
}

// wrapFetchErr classifies a transport error into the typed ingest failures.
// Errors raised by CheckRedirect arrive wrapped in *url.Error and keep
// their sentinel through errors.Is.
func wrapFetchErr(phase string, err error) error {
	switch {
	case errors.Is(err, ErrTooManyRedirects), errors.Is(err, ErrNetwork):
		return err
	case isTimeout(err):
		return Timeoutf("%s timed out", phase)
	default:
		return Networkf("%s: %v", phase, err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
