package castprotocol

import (
	"casty.app/casty/mediadata"
)

// MediaImage is a single artwork reference in the media metadata.
type MediaImage struct {
	URL string `json:"url"`
}

// MediaMeta contains metadata about the media. MetadataType selects the
// receiver layout (0 generic, 1 movie, 2 tv show, 3 music track, 4 photo).
type MediaMeta struct {
	MetadataType int          `json:"metadataType"`
	Title        string       `json:"title,omitempty"`
	Subtitle     string       `json:"subtitle,omitempty"`
	Images       []MediaImage `json:"images,omitempty"`
}

// MediaInfo is the "media" object of a LOAD request.
type MediaInfo struct {
	ContentId   string     `json:"contentId"`
	ContentType string     `json:"contentType"`
	StreamType  string     `json:"streamType"`
	Duration    float64    `json:"duration,omitempty"`
	Metadata    *MediaMeta `json:"metadata,omitempty"`
}

// MediaInfoFromData converts a MediaData into the LOAD wire form.
// An unknown stream duration is left out so the receiver detects it.
func MediaInfoFromData(md mediadata.MediaData) MediaInfo {
	meta := &MediaMeta{
		MetadataType: int(md.MediaType()),
		Title:        md.Title(),
		Subtitle:     md.Subtitle(),
	}
	for _, img := range md.Images() {
		meta.Images = append(meta.Images, MediaImage{URL: img})
	}

	info := MediaInfo{
		ContentId:   md.SourceURL(),
		ContentType: md.ContentType(),
		StreamType:  md.StreamType().String(),
		Metadata:    meta,
	}

	if d := md.StreamDuration(); d > 0 {
		info.Duration = d.Seconds()
	}

	return info
}

// IsLive reports whether the media is a live stream.
func (m MediaInfo) IsLive() bool {
	return m.StreamType == mediadata.StreamTypeLive.String()
}
