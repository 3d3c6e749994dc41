// Package mediadata describes a playable media item and its display
// metadata before it is handed to a Cast receiver.
package mediadata

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument is returned for a malformed source URL.
	ErrInvalidArgument = errors.New("mediadata: invalid argument")
	// ErrMissingField is returned by Build when no source URL was set.
	ErrMissingField = errors.New("mediadata: missing required field")
)

// UnknownDuration marks a stream whose length is not known in advance.
const UnknownDuration time.Duration = -1

// StreamType is the playback delivery mode of the media.
type StreamType int

const (
	StreamTypeNone StreamType = iota
	StreamTypeBuffered
	StreamTypeLive
)

// String returns the Cast wire name of the stream type.
func (s StreamType) String() string {
	switch s {
	case StreamTypeBuffered:
		return "BUFFERED"
	case StreamTypeLive:
		return "LIVE"
	default:
		return "NONE"
	}
}

// MediaType is the semantic category receivers use to lay out metadata.
// The values are the Cast metadataType numbers.
type MediaType int

const (
	MediaTypeGeneric    MediaType = 0
	MediaTypeMovie      MediaType = 1
	MediaTypeTVShow     MediaType = 2
	MediaTypeMusicTrack MediaType = 3
	MediaTypePhoto      MediaType = 4
	MediaTypeUser       MediaType = 100
)

// String returns the name of the media category.
func (m MediaType) String() string {
	switch m {
	case MediaTypeMovie:
		return "MOVIE"
	case MediaTypeTVShow:
		return "TV_SHOW"
	case MediaTypeMusicTrack:
		return "MUSIC_TRACK"
	case MediaTypePhoto:
		return "PHOTO"
	case MediaTypeUser:
		return "USER"
	default:
		return "GENERIC"
	}
}

// MediaData is an immutable description of a media item. Use Builder to
// create one.
type MediaData struct {
	sourceURL      string
	streamType     StreamType
	contentType    string
	streamDuration time.Duration
	mediaType      MediaType
	title          string
	subtitle       string
	images         []string
	autoPlay       bool
	position       time.Duration
}

// SourceURL returns the URL the receiver fetches the media from.
func (m MediaData) SourceURL() string { return m.sourceURL }

// StreamType returns the delivery mode, StreamTypeNone when unset.
func (m MediaData) StreamType() StreamType { return m.streamType }

// ContentType returns the MIME type of the media.
func (m MediaData) ContentType() string { return m.contentType }

// StreamDuration returns the media length or UnknownDuration.
func (m MediaData) StreamDuration() time.Duration { return m.streamDuration }

// MediaType returns the metadata category.
func (m MediaData) MediaType() MediaType { return m.mediaType }

// Title returns the display title.
func (m MediaData) Title() string { return m.title }

// Subtitle returns the display subtitle.
func (m MediaData) Subtitle() string { return m.subtitle }

// AutoPlay reports whether playback starts right after loading.
func (m MediaData) AutoPlay() bool { return m.autoPlay }

// Position returns the playback start offset.
func (m MediaData) Position() time.Duration { return m.position }

// Images returns the artwork URLs in insertion order. The returned slice
// is a copy.
func (m MediaData) Images() []string {
	return slices.Clone(m.images)
}

// Builder accumulates MediaData fields. The zero value has no source URL
// and fails to build.
type Builder struct {
	data MediaData
}

// NewBuilder starts a MediaData for the given source URL. The URL must be
// absolute, with a scheme and a host.
func NewBuilder(sourceURL string) (*Builder, error) {
	if err := validateURL(sourceURL); err != nil {
		return nil, err
	}

	return &Builder{
		data: MediaData{
			sourceURL:      sourceURL,
			streamType:     StreamTypeNone,
			streamDuration: UnknownDuration,
			mediaType:      MediaTypeGeneric,
			autoPlay:       true,
		},
	}, nil
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("source url is empty: %w", ErrInvalidArgument)
	}

	u, err := url.ParseRequestURI(s)
	if err != nil {
		return fmt.Errorf("source url %q: %v: %w", s, err, ErrInvalidArgument)
	}

	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("source url %q is not absolute: %w", s, ErrInvalidArgument)
	}

	return nil
}

// SetStreamType sets the delivery mode.
func (b *Builder) SetStreamType(t StreamType) *Builder {
	b.data.streamType = t
	return b
}

// SetContentType sets the MIME type, e.g. "video/mp4".
func (b *Builder) SetContentType(contentType string) *Builder {
	b.data.contentType = contentType
	return b
}

// SetStreamDuration sets the media length. UnknownDuration lets the
// receiver detect it.
func (b *Builder) SetStreamDuration(d time.Duration) *Builder {
	b.data.streamDuration = d
	return b
}

// SetMediaType sets the metadata category.
func (b *Builder) SetMediaType(t MediaType) *Builder {
	b.data.mediaType = t
	return b
}

// SetTitle sets the display title.
func (b *Builder) SetTitle(title string) *Builder {
	b.data.title = title
	return b
}

// SetSubtitle sets the display subtitle.
func (b *Builder) SetSubtitle(subtitle string) *Builder {
	b.data.subtitle = subtitle
	return b
}

// AddImageURL appends an artwork URL. Earlier images take display
// priority.
func (b *Builder) AddImageURL(imageURL string) *Builder {
	b.data.images = append(b.data.images, imageURL)
	return b
}

// SetAutoPlay controls whether the receiver starts playback right after
// loading.
func (b *Builder) SetAutoPlay(autoPlay bool) *Builder {
	b.data.autoPlay = autoPlay
	return b
}

// SetPosition sets the playback start offset.
func (b *Builder) SetPosition(position time.Duration) *Builder {
	b.data.position = position
	return b
}

// Build returns the finished MediaData. Later changes to the builder do
// not affect values already built.
func (b *Builder) Build() (MediaData, error) {
	if b == nil || b.data.sourceURL == "" {
		return MediaData{}, fmt.Errorf("build: source url: %w", ErrMissingField)
	}

	out := b.data
	out.images = slices.Clone(b.data.images)
	return out, nil
}
