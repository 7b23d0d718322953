package imgutil

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectHeader(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{G: 0xff, A: 0xff})

	var pngBuf, jpegBuf, gifBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))
	require.NoError(t, jpeg.Encode(&jpegBuf, img, nil))
	require.NoError(t, gif.Encode(&gifBuf, img, nil))

	tests := []struct {
		name string
		data []byte
		want Kind
	}{
		{"png", pngBuf.Bytes(), KindPNG},
		{"jpeg", jpegBuf.Bytes(), KindJPEG},
		{"gif", gifBuf.Bytes(), KindGIF},
		{"tiff little endian", append([]byte{0x49, 0x49, 0x2a, 0x00}, make([]byte, 16)...), KindTIFF},
		{"text", []byte("just some notes\n"), KindUnknown},
		{"empty", nil, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectHeader(tt.data))
		})
	}
}

func TestSniffFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.dat")

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	kind, err := SniffFile(path)
	require.NoError(t, err)
	assert.Equal(t, KindPNG, kind)

	_, err = SniffFile(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestKindPolicy(t *testing.T) {
	assert.True(t, KindGIF.Animated())
	assert.False(t, KindPNG.Animated())
	assert.True(t, KindJPEG.Lossy())
	assert.False(t, KindWebP.Encodable())
	assert.False(t, KindUnknown.Encodable())
	assert.True(t, KindBMP.Encodable())
	assert.Equal(t, "tiff", KindTIFF.String())
}

func TestSniffReaderShortInput(t *testing.T) {
	kind, err := SniffReader(bytes.NewReader([]byte{0xff, 0xd8, 0x00}))
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, kind)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	kind, err = SniffReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, KindPNG, kind)
}
