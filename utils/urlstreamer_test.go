package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Minimal ISO BMFF header with an "isom" major brand.
var mp4Header = []byte{
	0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
	'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00,
	'i', 's', 'o', 'm', 'i', 's', 'o', '2',
}

func TestProbeContentTypeHeaderType(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Range") != "bytes=0-260" {
			t.Errorf("Range = %q, want bytes=0-260", r.Header.Get("Range"))
		}
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("stream-body"))
	}))
	defer s.Close()

	mediaType, err := ProbeContentType(context.Background(), s.URL)
	if err != nil {
		t.Fatalf("ProbeContentType failed: %v", err)
	}

	if mediaType != "video/mp4" {
		t.Fatalf("got mediaType %q, want %q", mediaType, "video/mp4")
	}
}

func TestProbeContentTypeHeaderWithParams(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl; charset=utf-8")
		_, _ = w.Write([]byte("#EXTM3U\n#EXT-X-VERSION:3\n"))
	}))
	defer s.Close()

	mediaType, err := ProbeContentType(context.Background(), s.URL)
	if err != nil {
		t.Fatalf("ProbeContentType failed: %v", err)
	}

	if mediaType != "application/vnd.apple.mpegurl" {
		t.Fatalf("got mediaType %q, want %q", mediaType, "application/vnd.apple.mpegurl")
	}
}

func TestProbeContentTypeSniffFallback(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(mp4Header)
	}))
	defer s.Close()

	mediaType, err := ProbeContentType(context.Background(), s.URL)
	if err != nil {
		t.Fatalf("ProbeContentType failed: %v", err)
	}

	if mediaType != "video/mp4" {
		t.Fatalf("got mediaType %q, want %q", mediaType, "video/mp4")
	}
}

func TestProbeContentTypeUnknownGenericKeepsHeader(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("just text"))
	}))
	defer s.Close()

	mediaType, err := ProbeContentType(context.Background(), s.URL)
	if err != nil {
		t.Fatalf("ProbeContentType failed: %v", err)
	}

	if mediaType != "text/plain" {
		t.Fatalf("got mediaType %q, want %q", mediaType, "text/plain")
	}
}

func TestProbeContentTypeBadStatus(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer s.Close()

	_, err := ProbeContentType(context.Background(), s.URL)
	if !errors.Is(err, ErrBadStatus) {
		t.Fatalf("ProbeContentType err = %v, want %v", err, ErrBadStatus)
	}
}

func TestProbeContentTypeInvalidURL(t *testing.T) {
	if _, err := ProbeContentType(context.Background(), "not a url"); err == nil {
		t.Fatalf("ProbeContentType err = nil, want error")
	}
}
