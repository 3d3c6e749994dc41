package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/h2non/filetype"
)

var (
	// ErrBadStatus is returned when the media server answers 4xx or 5xx.
	ErrBadStatus = errors.New("probeURL bad status code")
	// ErrUnknownType is returned when no header nor sniffed type is usable.
	ErrUnknownType = errors.New("probeURL could not detect media type")
)

// sniffLen is the header size filetype needs to match every known kind.
const sniffLen = 261

var probeClient = newRetryableHTTPClient(3)

func normalizeContentType(v string) string {
	if v == "" {
		return ""
	}

	mt, _, err := mime.ParseMediaType(v)
	if err == nil {
		return strings.ToLower(strings.TrimSpace(mt))
	}

	parts := strings.Split(v, ";")
	return strings.ToLower(strings.TrimSpace(parts[0]))
}

func shouldSniffContentType(mediaType string) bool {
	switch mediaType {
	case "", "/", "application/octet-stream", "binary/octet-stream", "text/plain":
		return true
	default:
		return false
	}
}

// GetMimeDetailsFromBytes returns the MIME type matched from a file
// header.
func GetMimeDetailsFromBytes(head []byte) (string, error) {
	kind, err := filetype.Match(head)
	if err != nil {
		return "", fmt.Errorf("getMimeDetailsFromBytes match: %w", err)
	}

	if kind == filetype.Unknown {
		return "", ErrUnknownType
	}

	return kind.MIME.Value, nil
}

// ProbeContentType returns the MIME type of the media behind s. The
// response Content-Type is trusted unless it is missing or generic, then
// the first bytes of the body are sniffed.
func ProbeContentType(ctx context.Context, s string) (string, error) {
	if _, err := url.ParseRequestURI(s); err != nil {
		return "", fmt.Errorf("probeURL failed to parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s, nil)
	if err != nil {
		return "", fmt.Errorf("probeURL failed to call NewRequest: %w", err)
	}
	// Servers that honour ranges send only the header bytes.
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", sniffLen-1))

	resp, err := probeClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("probeURL failed to client.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", ErrBadStatus
	}

	mediaType := normalizeContentType(resp.Header.Get("Content-Type"))
	if !shouldSniffContentType(mediaType) {
		return mediaType, nil
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("probeURL failed to read body for mime detection: %w", err)
	}

	sniffed, err := GetMimeDetailsFromBytes(head[:n])
	if err != nil {
		if mediaType != "" && mediaType != "/" {
			return mediaType, nil
		}
		return "", err
	}

	return sniffed, nil
}
