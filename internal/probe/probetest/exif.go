// Package probetest builds encoded images with EXIF metadata for tests.
package probetest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"time"
)

// exifLayout is a little-endian TIFF block: IFD0 holding only the Exif
// sub-IFD pointer, and the Exif IFD holding only DateTimeOriginal.
const (
	ifd0Offset    = 8
	exifIFDOffset = ifd0Offset + 2 + 12 + 4
	dateOffset    = exifIFDOffset + 2 + 12 + 4
	dateLen       = 20 // "YYYY:MM:DD HH:MM:SS\x00"

	tagExifIFD          = 0x8769
	tagDateTimeOriginal = 0x9003
	typeASCII           = 2
	typeLong            = 4
)

// JPEGWithTaken encodes a w x h JPEG whose EXIF DateTimeOriginal is taken,
// formatted in taken's location.
func JPEGWithTaken(w, h int, taken time.Time) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	var enc bytes.Buffer
	if err := jpeg.Encode(&enc, img, nil); err != nil {
		return nil, err
	}

	tiff := tiffBlock(taken)
	payload := append([]byte("Exif\x00\x00"), tiff...)

	var out bytes.Buffer
	out.Write(enc.Bytes()[:2]) // SOI
	out.Write([]byte{0xFF, 0xE1})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(enc.Bytes()[2:])
	return out.Bytes(), nil
}

func tiffBlock(taken time.Time) []byte {
	le := binary.LittleEndian
	var b bytes.Buffer
	b.WriteString("II")
	_ = binary.Write(&b, le, uint16(42))
	_ = binary.Write(&b, le, uint32(ifd0Offset))

	writeIFD(&b, tagExifIFD, typeLong, 1, exifIFDOffset)
	writeIFD(&b, tagDateTimeOriginal, typeASCII, dateLen, dateOffset)

	b.WriteString(taken.Format("2006:01:02 15:04:05"))
	b.WriteByte(0)
	return b.Bytes()
}

// writeIFD writes a one-entry IFD with no successor.
func writeIFD(b *bytes.Buffer, tag, typ uint16, count, value uint32) {
	le := binary.LittleEndian
	_ = binary.Write(b, le, uint16(1))
	_ = binary.Write(b, le, tag)
	_ = binary.Write(b, le, typ)
	_ = binary.Write(b, le, count)
	_ = binary.Write(b, le, value)
	_ = binary.Write(b, le, uint32(0))
}
