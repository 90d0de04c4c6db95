package photos

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudhaar/complaint-server/internal/apperror"
)

// pngBytes is a minimal payload carrying the PNG magic header, enough
// for content-type sniffing.
func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
}

func TestEncodeProducesDataURLs(t *testing.T) {
	got, err := Encode(context.Background(), []io.Reader{
		bytes.NewReader(pngBytes()),
		bytes.NewReader(pngBytes()),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, url := range got {
		assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"), url)
	}
}

func TestEncodeRejectsNonImage(t *testing.T) {
	_, err := Encode(context.Background(), []io.Reader{
		strings.NewReader("definitely not an image payload, just text"),
	})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestEncodeRejectsEmptyFile(t *testing.T) {
	_, err := Encode(context.Background(), []io.Reader{bytes.NewReader(nil)})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestEncodeRejectsOversizedFile(t *testing.T) {
	huge := io.MultiReader(
		bytes.NewReader(pngBytes()),
		bytes.NewReader(bytes.Repeat([]byte{1}, MaxPhotoBytes)),
	)
	_, err := Encode(context.Background(), []io.Reader{huge})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestEncodeStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Encode(ctx, []io.Reader{bytes.NewReader(pngBytes())})
	assert.ErrorIs(t, err, context.Canceled)
}
