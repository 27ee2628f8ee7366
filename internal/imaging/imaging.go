// Package imaging prepares uploaded documents for storage. Photos are
// shrunk and re-encoded; other accepted formats pass through untouched.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"path"
	"strings"

	"golang.org/x/image/draw"
)

// MaxDimension bounds the width and height of stored photos.
const MaxDimension = 1024

// JPEGQuality is used when re-encoding photos.
const JPEGQuality = 85

// ErrUnsupported is returned for content types that cannot be attached.
var ErrUnsupported = errors.New("unsupported document type")

// Accepted content types, sniffed from the bytes rather than trusted from
// the client.
var (
	photoMIME = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
	}
	passthroughMIME = map[string]bool{
		"application/pdf":           true,
		"text/plain; charset=utf-8": true,
	}
)

// Document is an upload ready to be written to the attachment store.
type Document struct {
	Filename string
	MIME     string
	Data     []byte
}

// Prepare validates an upload by content and normalises photos. Photos
// larger than MaxDimension are downscaled, and all photos are stored as JPEG
// with the filename extension adjusted to match.
func Prepare(filename string, data []byte) (*Document, error) {
	detected := http.DetectContentType(data)

	switch {
	case photoMIME[detected]:
		out, err := reencode(data)
		if err != nil {
			return nil, err
		}
		return &Document{Filename: withExt(filename, ".jpg"), MIME: "image/jpeg", Data: out}, nil
	case passthroughMIME[detected]:
		return &Document{Filename: filename, MIME: strings.SplitN(detected, ";", 2)[0], Data: data}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, detected)
	}
}

func reencode(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, downscale(img, MaxDimension), &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

func withExt(filename, ext string) string {
	base := strings.TrimSuffix(filename, path.Ext(filename))
	if base == "" {
		base = "photo"
	}
	return base + ext
}

// downscale fits img within maxDim x maxDim, keeping the aspect ratio.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(1, h*maxDim/w)
	} else {
		newW = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
