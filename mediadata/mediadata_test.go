package mediadata

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestNewBuilderSourceURLRoundTrip(t *testing.T) {
	tt := []string{
		"http://example.com/v.mp4",
		"https://cdn.example.org:8443/live/stream.m3u8?token=abc",
		"http://192.168.1.20:3500/media/file%20name.mkv",
	}

	for _, u := range tt {
		b, err := NewBuilder(u)
		if err != nil {
			t.Fatalf("NewBuilder(%q) err = %v, want nil", u, err)
		}

		md, err := b.Build()
		if err != nil {
			t.Fatalf("Build() err = %v, want nil", err)
		}

		if md.SourceURL() != u {
			t.Fatalf("SourceURL() = %q, want %q", md.SourceURL(), u)
		}
	}
}

func TestNewBuilderRejectsBadURLs(t *testing.T) {
	tt := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"no scheme", "example.com/v.mp4"},
		{"relative path", "/media/v.mp4"},
		{"scheme only", "http://"},
		{"garbage", "::not a url::"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			b, err := NewBuilder(tc.input)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("NewBuilder(%q) err = %v, want %v", tc.input, err, ErrInvalidArgument)
			}
			if b != nil {
				t.Fatalf("NewBuilder(%q) returned a builder on error", tc.input)
			}
		})
	}
}

func TestBuildWithoutSourceURL(t *testing.T) {
	var b Builder
	if _, err := b.Build(); !errors.Is(err, ErrMissingField) {
		t.Fatalf("Build() err = %v, want %v", err, ErrMissingField)
	}

	var nilBuilder *Builder
	if _, err := nilBuilder.Build(); !errors.Is(err, ErrMissingField) {
		t.Fatalf("nil Build() err = %v, want %v", err, ErrMissingField)
	}

	// Setters on a zero builder must not make it buildable.
	if _, err := b.SetTitle("x").AddImageURL("a").Build(); !errors.Is(err, ErrMissingField) {
		t.Fatalf("Build() err = %v, want %v", err, ErrMissingField)
	}
}

func TestImageOrderPreserved(t *testing.T) {
	b, err := NewBuilder("http://example.com/v.mp4")
	if err != nil {
		t.Fatalf("NewBuilder() err = %v", err)
	}

	md, err := b.AddImageURL("a").AddImageURL("b").AddImageURL("c").Build()
	if err != nil {
		t.Fatalf("Build() err = %v", err)
	}

	want := []string{"a", "b", "c"}
	if got := md.Images(); !slices.Equal(got, want) {
		t.Fatalf("Images() = %v, want %v", got, want)
	}
}

func TestDefaults(t *testing.T) {
	b, err := NewBuilder("http://example.com/v.mp4")
	if err != nil {
		t.Fatalf("NewBuilder() err = %v", err)
	}

	md, err := b.Build()
	if err != nil {
		t.Fatalf("Build() err = %v", err)
	}

	if md.Title() != "" || md.Subtitle() != "" || md.ContentType() != "" {
		t.Fatalf("optional fields not empty: %q %q %q", md.Title(), md.Subtitle(), md.ContentType())
	}
	if len(md.Images()) != 0 {
		t.Fatalf("Images() = %v, want empty", md.Images())
	}
	if md.StreamType() != StreamTypeNone {
		t.Fatalf("StreamType() = %v, want %v", md.StreamType(), StreamTypeNone)
	}
	if md.MediaType() != MediaTypeGeneric {
		t.Fatalf("MediaType() = %v, want %v", md.MediaType(), MediaTypeGeneric)
	}
	if md.StreamDuration() != UnknownDuration {
		t.Fatalf("StreamDuration() = %v, want %v", md.StreamDuration(), UnknownDuration)
	}
	if !md.AutoPlay() {
		t.Fatalf("AutoPlay() = false, want true")
	}
	if md.Position() != 0 {
		t.Fatalf("Position() = %v, want 0", md.Position())
	}
}

func TestLastWriteWins(t *testing.T) {
	b, err := NewBuilder("http://example.com/v.mp4")
	if err != nil {
		t.Fatalf("NewBuilder() err = %v", err)
	}

	md, err := b.
		SetTitle("x").SetTitle("y").
		SetStreamType(StreamTypeLive).SetStreamType(StreamTypeBuffered).
		SetPosition(time.Second).SetPosition(2 * time.Second).
		Build()
	if err != nil {
		t.Fatalf("Build() err = %v", err)
	}

	if md.Title() != "y" {
		t.Fatalf("Title() = %q, want %q", md.Title(), "y")
	}
	if md.StreamType() != StreamTypeBuffered {
		t.Fatalf("StreamType() = %v, want %v", md.StreamType(), StreamTypeBuffered)
	}
	if md.Position() != 2*time.Second {
		t.Fatalf("Position() = %v, want %v", md.Position(), 2*time.Second)
	}
}

func TestEndToEndSample(t *testing.T) {
	b, err := NewBuilder("http://example.com/v.mp4")
	if err != nil {
		t.Fatalf("NewBuilder() err = %v", err)
	}

	md, err := b.
		SetStreamType(StreamTypeBuffered).
		SetContentType("video/mp4").
		SetMediaType(MediaTypeMovie).
		SetTitle("T").
		Build()
	if err != nil {
		t.Fatalf("Build() err = %v", err)
	}

	if md.SourceURL() != "http://example.com/v.mp4" ||
		md.StreamType() != StreamTypeBuffered ||
		md.ContentType() != "video/mp4" ||
		md.MediaType() != MediaTypeMovie ||
		md.Title() != "T" {
		t.Fatalf("unexpected media data: %+v", md)
	}
	if md.Subtitle() != "" {
		t.Fatalf("Subtitle() = %q, want empty", md.Subtitle())
	}
	if len(md.Images()) != 0 {
		t.Fatalf("Images() = %v, want empty", md.Images())
	}
}

func TestBuiltValueIsIsolated(t *testing.T) {
	b, err := NewBuilder("http://example.com/v.mp4")
	if err != nil {
		t.Fatalf("NewBuilder() err = %v", err)
	}

	first, err := b.AddImageURL("a").Build()
	if err != nil {
		t.Fatalf("Build() err = %v", err)
	}

	b.AddImageURL("b").SetTitle("later")

	if got := first.Images(); !slices.Equal(got, []string{"a"}) {
		t.Fatalf("Images() = %v, want [a]", got)
	}
	if first.Title() != "" {
		t.Fatalf("Title() = %q, want empty", first.Title())
	}

	imgs := first.Images()
	imgs[0] = "mutated"
	if first.Images()[0] != "a" {
		t.Fatalf("Images() exposes internal slice")
	}
}

func TestEnumWireNames(t *testing.T) {
	if StreamTypeBuffered.String() != "BUFFERED" || StreamTypeLive.String() != "LIVE" || StreamTypeNone.String() != "NONE" {
		t.Fatalf("unexpected stream type names")
	}
	if MediaTypeTVShow.String() != "TV_SHOW" || int(MediaTypeUser) != 100 {
		t.Fatalf("unexpected media type mapping")
	}
}
