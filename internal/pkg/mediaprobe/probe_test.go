package mediaprobe

import (
	"bytes"
	"context"
	"image"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	err := imaging.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), imaging.PNG)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestInspectImage(t *testing.T) {
	p := NewProbe("")

	meta, err := p.InspectImage(pngBytes(t, 640, 480))
	require.NoError(t, err)
	assert.Equal(t, 640, meta.Width)
	assert.Equal(t, 480, meta.Height)
}

func TestInspectImageCorrupt(t *testing.T) {
	p := NewProbe("")

	_, err := p.InspectImage([]byte("definitely not an image"))
	assert.Error(t, err)
}

func TestInspectVideoHeaderOnly(t *testing.T) {
	p := NewProbe("")

	mp4 := append([]byte{0x00, 0x00, 0x00, 0x20}, []byte("ftypisom")...)
	mp4 = append(mp4, make([]byte, 64)...)
	_, err := p.InspectVideo(context.Background(), mp4, "")
	assert.NoError(t, err)

	_, err = p.InspectVideo(context.Background(), []byte("plain text content here"), "")
	assert.Error(t, err)
}

func TestMakeThumbnail(t *testing.T) {
	out, err := MakeThumbnail(pngBytes(t, 1600, 900))
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.LessOrEqual(t, img.Bounds().Dx(), thumbnailEdge)
	assert.LessOrEqual(t, img.Bounds().Dy(), thumbnailEdge)
}
