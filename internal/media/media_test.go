package media

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackgroundIsDecodablePNG(t *testing.T) {
	r := NewRenderer("")
	img, err := r.Background("Docker Fundamentals", "Lesson 1: Containers")
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(img))
	require.NoError(t, err)
	assert.Equal(t, BackgroundWidth, decoded.Bounds().Dx())
	assert.Equal(t, BackgroundHeight, decoded.Bounds().Dy())
}

func TestThumbnailSize(t *testing.T) {
	r := NewRenderer("")
	img, err := r.Thumbnail("Docker Fundamentals", 10)
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(img))
	require.NoError(t, err)
	assert.Equal(t, ThumbnailWidth, decoded.Bounds().Dx())
	assert.Equal(t, ThumbnailHeight, decoded.Bounds().Dy())
}

func TestPaletteIsStablePerTopic(t *testing.T) {
	r := NewRenderer("")
	a, err := r.Background("Kubernetes", "Lesson 1")
	require.NoError(t, err)
	b, err := r.Background("Kubernetes", "Lesson 1")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSynthesizeToneHeader(t *testing.T) {
	wav := SynthesizeTone(2, 440)

	require.Greater(t, len(wav), 44)
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))

	dataLen := binary.LittleEndian.Uint32(wav[40:44])
	assert.Equal(t, uint32(2*sampleRate*2), dataLen)
	assert.Len(t, wav, 44+int(dataLen))
}

func TestSynthesizeToneClampsBadInputs(t *testing.T) {
	wav := SynthesizeTone(-1, 0)
	assert.Greater(t, len(wav), 44)
}

func TestComposeFinalWithAndWithoutBackground(t *testing.T) {
	dir := t.TempDir()
	presenter := filepath.Join(dir, "presenter.mp4")
	require.NoError(t, os.WriteFile(presenter, []byte("clip"), 0o644))

	// Without background: passthrough still succeeds.
	out := filepath.Join(dir, "final", "lesson_01.mp4")
	require.NoError(t, ComposeFinal(presenter, "", out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "clip", string(data))

	manifest, err := os.ReadFile(out + ".json")
	require.NoError(t, err)
	assert.NotContains(t, string(manifest), "background")

	// With background: manifest references it.
	bg := filepath.Join(dir, "bg.png")
	require.NoError(t, os.WriteFile(bg, []byte("png"), 0o644))
	out2 := filepath.Join(dir, "final", "lesson_02.mp4")
	require.NoError(t, ComposeFinal(presenter, bg, out2))
	manifest2, err := os.ReadFile(out2 + ".json")
	require.NoError(t, err)
	assert.Contains(t, string(manifest2), "bg.png")
}

func TestPlaceholderVideoWritesStubAndSidecar(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "videos", "lesson_03.mp4")
	require.NoError(t, PlaceholderVideo(dest, "Lesson 3: Volumes"))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "ftyp", string(data[4:8]))

	sidecar, err := os.ReadFile(dest + ".json")
	require.NoError(t, err)
	assert.Contains(t, string(sidecar), "Lesson 3: Volumes")
}
