package imageproc_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagekit/tourimport/pkg/tourimport"
	"github.com/voyagekit/tourimport/pkg/tourimport/imageproc"
)

// encodeTestJPEG renders a flat-color image of the given size.
func encodeTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func TestOptimizeDownscalesToPresetBounds(t *testing.T) {
	raw := encodeTestJPEG(t, 4000, 3000)

	out, err := imageproc.New().Optimize(raw, "card")
	require.NoError(t, err)

	assert.LessOrEqual(t, out.Width, 800)
	assert.LessOrEqual(t, out.Height, 600)
	assert.Equal(t, "image/jpeg", out.MimeType)
	assert.Equal(t, "jpg", out.Ext)
	assert.Less(t, len(out.Bytes), len(raw))

	// Aspect ratio preserved: 4:3 input stays 4:3.
	assert.Equal(t, out.Width*3, out.Height*4)
}

func TestOptimizeNeverUpscales(t *testing.T) {
	raw := encodeTestJPEG(t, 320, 240)

	out, err := imageproc.New().Optimize(raw, "hero")
	require.NoError(t, err)
	assert.Equal(t, 320, out.Width)
	assert.Equal(t, 240, out.Height)
}

func TestOptimizePNGInputStillEncodesJPEGPreset(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	out, err := imageproc.New().Optimize(buf.Bytes(), "thumbnail")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", out.MimeType)
}

func TestOptimizeCorruptInput(t *testing.T) {
	_, err := imageproc.New().Optimize([]byte("definitely not an image"), "hero")
	assert.ErrorIs(t, err, tourimport.ErrUnsupportedImage)
}

func TestOptimizeUnknownPreset(t *testing.T) {
	raw := encodeTestJPEG(t, 10, 10)
	_, err := imageproc.New().Optimize(raw, "billboard")
	assert.Error(t, err)
}

func TestCustomPNGPreset(t *testing.T) {
	presets := map[string]imageproc.Preset{
		"icon": {Name: "icon", MaxWidth: 64, MaxHeight: 64, Format: "png"},
	}
	raw := encodeTestJPEG(t, 128, 128)

	out, err := imageproc.NewWithPresets(presets).Optimize(raw, "icon")
	require.NoError(t, err)
	assert.Equal(t, "image/png", out.MimeType)
	assert.Equal(t, "png", out.Ext)
	assert.Equal(t, 64, out.Width)
}

func TestDefaultPresetNamesMatchRoles(t *testing.T) {
	presets := imageproc.DefaultPresets()
	for _, role := range []string{"hero", "gallery", "card", "thumbnail"} {
		_, ok := presets[role]
		assert.True(t, ok, "missing preset %q", role)
	}
}
