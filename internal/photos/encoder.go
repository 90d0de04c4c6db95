// Package photos turns uploaded image files into embeddable base64 data
// URLs. Encoding is single-item-at-a-time and checks the request context
// between items, so a client that abandons the submission form stops the
// work instead of producing a stale result.
package photos

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sudhaar/complaint-server/internal/apperror"
)

// MaxPhotoBytes caps a single photo upload (5 MiB).
const MaxPhotoBytes = 5 << 20

// allowedTypes are the image content types accepted for complaint photos.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Encode reads each file fully and returns a data URL per file, in input
// order. It stops early with ctx.Err() when the context is cancelled,
// and rejects oversized or non-image content with a validation error.
func Encode(ctx context.Context, files []io.Reader) ([]string, error) {
	out := make([]string, 0, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := io.ReadAll(io.LimitReader(f, MaxPhotoBytes+1))
		if err != nil {
			return nil, fmt.Errorf("photos: reading photo %d: %w", i+1, err)
		}
		if len(data) > MaxPhotoBytes {
			return nil, apperror.ValidationFailed("photos",
				fmt.Sprintf("photo %d exceeds the %d MB limit", i+1, MaxPhotoBytes>>20))
		}
		if len(data) == 0 {
			return nil, apperror.ValidationFailed("photos", fmt.Sprintf("photo %d is empty", i+1))
		}

		contentType := http.DetectContentType(data)
		if !allowedTypes[contentType] {
			return nil, apperror.ValidationFailed("photos",
				fmt.Sprintf("photo %d has unsupported type %s", i+1, contentType))
		}

		var b strings.Builder
		b.WriteString("data:")
		b.WriteString(contentType)
		b.WriteString(";base64,")
		b.WriteString(base64.StdEncoding.EncodeToString(data))
		out = append(out, b.String())
	}
	return out, nil
}
