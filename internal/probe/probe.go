// Package probe inspects image file headers before they enter the index.
package probe

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/starford/quikpix/internal/apperr"
)

// Supported MIME types. Anything else is rejected at index time.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
)

// DefaultMIMETypes is the media index filter applied by default.
var DefaultMIMETypes = []string{MIMEJPEG, MIMEPNG}

const sniffLen = 512

// exifScanLen bounds how much of a JPEG is buffered to find its APP1 segment.
// EXIF blocks are capped at 64 KiB by the JPEG segment length.
const exifScanLen = 128 << 10

// Result is what Inspect learns from a file header.
type Result struct {
	MIME   string
	Width  int
	Height int
	// TakenAt is the EXIF capture time of a JPEG; zero when absent.
	TakenAt time.Time
}

// Inspect sniffs the content type of r from its magic bytes and decodes the
// image dimensions. Only JPEG and PNG pass; other content yields
// apperr.ErrMalformedRecord.
func Inspect(r io.Reader) (*Result, error) {
	br := bufio.NewReaderSize(r, exifScanLen)
	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("probe: read header: %w", err)
	}
	if len(head) == 0 {
		return nil, fmt.Errorf("probe: empty file: %w", apperr.ErrMalformedRecord)
	}

	mime := http.DetectContentType(head)
	if !Supported(mime) {
		return nil, fmt.Errorf("probe: unsupported content type %q: %w", mime, apperr.ErrMalformedRecord)
	}

	var taken time.Time
	if mime == MIMEJPEG {
		// Peek does not consume, so DecodeConfig still starts at byte 0.
		buf, _ := br.Peek(exifScanLen)
		taken = takenAt(buf)
	}

	cfg, _, err := image.DecodeConfig(br)
	if err != nil {
		return nil, fmt.Errorf("probe: decode %s header: %v: %w", mime, err, apperr.ErrMalformedRecord)
	}
	return &Result{MIME: mime, Width: cfg.Width, Height: cfg.Height, TakenAt: taken}, nil
}

// takenAt returns DateTimeOriginal (or DateTime) from the EXIF block in head.
// Missing or unreadable EXIF yields the zero time.
func takenAt(head []byte) time.Time {
	x, err := exif.Decode(bytes.NewReader(head))
	if err != nil {
		return time.Time{}
	}
	t, err := x.DateTime()
	if err != nil {
		return time.Time{}
	}
	return t
}

// Supported reports whether mime is one of the indexed image types.
func Supported(mime string) bool {
	return mime == MIMEJPEG || mime == MIMEPNG
}
