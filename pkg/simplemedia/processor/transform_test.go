package processor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-media/pkg/simplemedia"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestTransformScreenshot(t *testing.T) {
	src := pngBytes(t, 1000, 1000)

	result, err := Transform(src, screenshotPolicy)
	require.NoError(t, err)

	// Fit into 1200x800 without upscaling: a square 1000px source becomes
	// 800x800.
	assert.Equal(t, 800, result.Width)
	assert.Equal(t, 800, result.Height)
	assert.NotEmpty(t, result.Primary)

	require.Len(t, result.Variants, 3)
	for _, spec := range screenshotPolicy.Variants {
		data, ok := result.Variants[spec.Name]
		require.True(t, ok, "missing variant %s", spec.Name)

		w, h := decodeDims(t, data)
		assert.LessOrEqual(t, w, spec.Width, "variant %s width", spec.Name)
		assert.LessOrEqual(t, h, spec.Height, "variant %s height", spec.Name)
		assert.Greater(t, w, 0)
		assert.Greater(t, h, 0)
	}
}

func TestTransformLogo(t *testing.T) {
	src := pngBytes(t, 300, 200)

	result, err := Transform(src, logoPolicy)
	require.NoError(t, err)

	// Smaller than the fit box, so no resize of the primary.
	assert.Equal(t, 300, result.Width)
	assert.Equal(t, 200, result.Height)

	small, ok := result.Variants[simplemedia.VariantSmall]
	require.True(t, ok)
	w, h := decodeDims(t, small)
	assert.LessOrEqual(t, w, 128)
	assert.LessOrEqual(t, h, 128)
}

func TestTransformDoesNotUpscale(t *testing.T) {
	src := pngBytes(t, 64, 64)

	result, err := Transform(src, logoPolicy)
	require.NoError(t, err)

	assert.Equal(t, 64, result.Width)
	assert.Equal(t, 64, result.Height)

	// Variants are capped at source size too.
	large := result.Variants[simplemedia.VariantLarge]
	w, h := decodeDims(t, large)
	assert.LessOrEqual(t, w, 64)
	assert.LessOrEqual(t, h, 64)
}

func TestTransformCorruptDataIsPermanent(t *testing.T) {
	_, err := Transform([]byte("not an image"), screenshotPolicy)
	require.Error(t, err)
	assert.True(t, simplemedia.IsPermanent(err))
}

func TestTransformVariantsAreJPEG(t *testing.T) {
	src := pngBytes(t, 400, 400)

	result, err := Transform(src, logoPolicy)
	require.NoError(t, err)

	for name, data := range result.Variants {
		_, format, err := image.Decode(bytes.NewReader(data))
		require.NoError(t, err, "variant %s", name)
		assert.Equal(t, "jpeg", format)
	}
}

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, &logoPolicy, policyFor(simplemedia.CategoryLogo))
	assert.Equal(t, &screenshotPolicy, policyFor(simplemedia.CategoryScreenshot))
	assert.Equal(t, &screenshotPolicy, policyFor(simplemedia.CategoryCover))
	assert.Equal(t, &screenshotPolicy, policyFor(simplemedia.CategoryIcon))
	assert.Nil(t, policyFor(simplemedia.CategoryVideo))
	assert.Nil(t, policyFor(simplemedia.CategoryDocument))
}

func TestCropToBoxAspectRatio(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1000, 500))

	out := cropToBox(img, 300, 200)
	bounds := out.Bounds()
	assert.LessOrEqual(t, bounds.Dx(), 300)
	assert.LessOrEqual(t, bounds.Dy(), 200)

	// Aspect ratio matches the target box.
	ratio := float64(bounds.Dx()) / float64(bounds.Dy())
	assert.InDelta(t, 1.5, ratio, 0.05)
}
