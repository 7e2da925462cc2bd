package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// fetchTestServer serves the fetch scenarios. Paths:
//
//	/ok            plain text body
//	/r/{n}         n chained redirects ending at /r/0
//	/ftp           redirect to an ftp:// url
//	/nohead        405 on HEAD, text on GET
//	/broken        500 on everything
//	/big           200-byte text body with explicit Content-Length
//	/stream        200-byte text body, chunked (no length up front)
//	/octet         octet-stream on every method
//	/flip          text/plain on HEAD, octet-stream on GET
//	/bin           text/plain header over invalid utf-8 bytes
//	/slow          sleeps before answering
func fetchTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("hackathon rules body"))
	})
	mux.HandleFunc("/r/", func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/r/"))
		if err != nil {
			http.Error(w, "bad hop", http.StatusBadRequest)
			return
		}
		if n > 0 {
			http.Redirect(w, r, "/r/"+strconv.Itoa(n-1), http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("landed"))
	})
	mux.HandleFunc("/ftp", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "ftp://mirror.invalid/rules.txt")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/nohead", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("head-free zone"))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Length", "200")
		if r.Method == http.MethodGet {
			w.Write([]byte(strings.Repeat("a", 200)))
		}
	})
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if r.Method != http.MethodGet {
			return
		}
		w.Write([]byte(strings.Repeat("b", 100)))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		w.Write([]byte(strings.Repeat("b", 100)))
	})
	mux.HandleFunc("/octet", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		if r.Method == http.MethodGet {
			w.Write([]byte{0x00, 0x01, 0x02})
		}
	})
	mux.HandleFunc("/flip", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "text/plain")
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte{0x00, 0x01, 0x02})
	})
	mux.HandleFunc("/bin", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if r.Method == http.MethodGet {
			w.Write([]byte{0xff, 0xfe, 0x61})
		}
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(400 * time.Millisecond)
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("finally"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// TestFetchOK verifies the happy path through preflight and body read.
func TestFetchOK(t *testing.T) {
	srv := fetchTestServer(t)
	f := NewFetcher(1<<20, 5*time.Second, 3)

	body, err := f.Fetch(context.Background(), srv.URL+"/ok")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if body != "hackathon rules body" {
		t.Errorf("body = %q", body)
	}
}

// TestFetchRejectsBadURLs verifies scheme and host validation before any
// network traffic.
func TestFetchRejectsBadURLs(t *testing.T) {
	f := NewFetcher(1<<20, time.Second, 3)
	tests := []struct {
		name string
		url  string
	}{
		{"ftp scheme", "ftp://mirror.invalid/rules.txt"},
		{"file scheme", "file:///etc/passwd"},
		{"no scheme", "just some words"},
		{"no host", "http://"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), tt.url)
			if !errors.Is(err, store.ErrValidation) {
				t.Errorf("Fetch(%q) = %v, want validation error", tt.url, err)
			}
		})
	}
}

// TestFetchRedirects verifies the redirect budget applies per request and
// that every hop's scheme is re-checked.
func TestFetchRedirects(t *testing.T) {
	srv := fetchTestServer(t)
	f := NewFetcher(1<<20, 5*time.Second, 3)
	ctx := context.Background()

	body, err := f.Fetch(ctx, srv.URL+"/r/3")
	if err != nil {
		t.Fatalf("3 redirects should pass: %v", err)
	}
	if body != "landed" {
		t.Errorf("body = %q", body)
	}

	_, err = f.Fetch(ctx, srv.URL+"/r/4")
	if !errors.Is(err, ErrTooManyRedirects) {
		t.Errorf("4 redirects: got %v, want ErrTooManyRedirects", err)
	}

	_, err = f.Fetch(ctx, srv.URL+"/ftp")
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("redirect to ftp: got %v, want ErrNetwork", err)
	}
}

// TestFetchMimeChecks verifies the preflight allowlist and that the GET
// response is re-checked even when the HEAD passed.
func TestFetchMimeChecks(t *testing.T) {
	srv := fetchTestServer(t)
	f := NewFetcher(1<<20, 5*time.Second, 3)
	ctx := context.Background()

	_, err := f.Fetch(ctx, srv.URL+"/octet")
	if !errors.Is(err, ErrUnsupportedMime) {
		t.Errorf("octet-stream: got %v, want ErrUnsupportedMime", err)
	}

	_, err = f.Fetch(ctx, srv.URL+"/flip")
	if !errors.Is(err, ErrUnsupportedMime) {
		t.Errorf("flipped content type: got %v, want ErrUnsupportedMime", err)
	}
}

// TestFetchHeadFallbacks verifies that servers without HEAD support still
// work while hard HEAD failures are surfaced.
func TestFetchHeadFallbacks(t *testing.T) {
	srv := fetchTestServer(t)
	f := NewFetcher(1<<20, 5*time.Second, 3)
	ctx := context.Background()

	body, err := f.Fetch(ctx, srv.URL+"/nohead")
	if err != nil {
		t.Fatalf("405 on HEAD should be tolerated: %v", err)
	}
	if body != "head-free zone" {
		t.Errorf("body = %q", body)
	}

	_, err = f.Fetch(ctx, srv.URL+"/broken")
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("500 on HEAD: got %v, want ErrNetwork", err)
	}
}

// TestFetchOversize verifies both cap enforcement paths: a declared
// Content-Length over the limit and a chunked body that only reveals its
// size while streaming.
func TestFetchOversize(t *testing.T) {
	srv := fetchTestServer(t)
	f := NewFetcher(64, 5*time.Second, 3)
	ctx := context.Background()

	_, err := f.Fetch(ctx, srv.URL+"/big")
	if !errors.Is(err, ErrOversize) {
		t.Errorf("declared length: got %v, want ErrOversize", err)
	}

	_, err = f.Fetch(ctx, srv.URL+"/stream")
	if !errors.Is(err, ErrOversize) {
		t.Errorf("chunked body: got %v, want ErrOversize", err)
	}
}

// TestFetchInvalidUTF8 verifies that a text-labelled body with broken
// encoding reports a decode failure, not a success with garbage.
func TestFetchInvalidUTF8(t *testing.T) {
	srv := fetchTestServer(t)
	f := NewFetcher(1<<20, 5*time.Second, 3)

	_, err := f.Fetch(context.Background(), srv.URL+"/bin")
	if !errors.Is(err, ErrDecode) {
		t.Errorf("got %v, want ErrDecode", err)
	}
}

// TestFetchTimeout verifies that a stalled server maps to the timeout
// failure class.
func TestFetchTimeout(t *testing.T) {
	srv := fetchTestServer(t)
	f := NewFetcher(1<<20, 60*time.Millisecond, 3)

	_, err := f.Fetch(context.Background(), srv.URL+"/slow")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("got %v, want ErrTimeout", err)
	}
}

// TestAllowedMime pins the MIME allowlist including parameter and case
// handling.
func TestAllowedMime(t *testing.T) {
	tests := []struct {
		ct   string
		want bool
	}{
		{"text/plain", true},
		{"text/html; charset=utf-8", true},
		{"TEXT/MARKDOWN", true},
		{"application/json", true},
		{"application/xml", true},
		{"application/xhtml+xml", true},
		{"application/octet-stream", false},
		{"application/pdf", false},
		{"image/png", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := allowedMime(tt.ct); got != tt.want {
			t.Errorf("allowedMime(%q) = %v, want %v", tt.ct, got, tt.want)
		}
	}
}
