package storage

import (
	"encoding/base64"
	"errors"
	"strings"
)

// MaxImageSize is the largest decoded image accepted for upload (10MB).
const MaxImageSize = 10 * 1024 * 1024

// AllowedImageTypes maps accepted image MIME types to object key extensions.
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var (
	ErrNotDataURL       = errors.New("not a data URL")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image too large")
	ErrMalformedImage   = errors.New("malformed image data")
)

// IsDataURL reports whether s is an inline data URL.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// ParseDataURL decodes a base64 image data URL such as
// "data:image/png;base64,iVBOR...".
func ParseDataURL(s string) (contentType string, data []byte, err error) {
	if !IsDataURL(s) {
		return "", nil, ErrNotDataURL
	}
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return "", nil, ErrMalformedImage
	}
	params := strings.Split(meta, ";")
	contentType = strings.ToLower(strings.TrimSpace(params[0]))
	if _, ok := AllowedImageTypes[contentType]; !ok {
		return "", nil, ErrUnsupportedImage
	}
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}
	if !isBase64 {
		return "", nil, ErrMalformedImage
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > MaxImageSize+3 {
		return "", nil, ErrImageTooLarge
	}
	data, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, ErrMalformedImage
	}
	if len(data) > MaxImageSize {
		return "", nil, ErrImageTooLarge
	}
	return contentType, data, nil
}
