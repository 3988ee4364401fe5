package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/nfnt/resize"
	"github.com/tendant/simple-media/pkg/simplemedia"
)

const jpegQuality = 85

// VariantSpec names one derived rendition and its target box.
type VariantSpec struct {
	Name   string
	Width  int
	Height int
}

// TransformPolicy is the per-category pixel pipeline: the fit box for the
// primary re-encode and the variant set derived from it.
type TransformPolicy struct {
	FitWidth  int
	FitHeight int
	Variants  []VariantSpec
}

var logoPolicy = TransformPolicy{
	FitWidth:  512,
	FitHeight: 512,
	Variants: []VariantSpec{
		{Name: simplemedia.VariantSmall, Width: 128, Height: 128},
		{Name: simplemedia.VariantMedium, Width: 256, Height: 256},
		{Name: simplemedia.VariantLarge, Width: 512, Height: 512},
	},
}

var screenshotPolicy = TransformPolicy{
	FitWidth:  1200,
	FitHeight: 800,
	Variants: []VariantSpec{
		{Name: simplemedia.VariantSmall, Width: 300, Height: 200},
		{Name: simplemedia.VariantMedium, Width: 600, Height: 400},
		{Name: simplemedia.VariantLarge, Width: 1200, Height: 800},
	},
}

// policyFor returns the transform policy for a category, or nil for
// categories without pixel variants (video, document).
func policyFor(category simplemedia.MediaCategory) *TransformPolicy {
	switch category {
	case simplemedia.CategoryVideo, simplemedia.CategoryDocument:
		return nil
	case simplemedia.CategoryLogo:
		return &logoPolicy
	default:
		// Screenshot policy doubles as the default for cover, icon and any
		// unclassified image category.
		return &screenshotPolicy
	}
}

// TransformResult carries the re-encoded primary image and its variants.
type TransformResult struct {
	Primary  []byte
	Width    int
	Height   int
	Variants map[string][]byte
}

// Transform decodes src and applies the policy: fit-resize the primary without
// upscaling, then derive each center-cropped variant. Decoding and re-encoding
// drops EXIF and all other embedded metadata before any variant is produced.
//
// A decode failure is permanent: corrupt or unsupported data will not become
// readable on retry.
func Transform(src []byte, policy TransformPolicy) (*TransformResult, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, &simplemedia.PermanentError{Err: fmt.Errorf("decode image: %w", err)}
	}

	primary := resize.Thumbnail(uint(policy.FitWidth), uint(policy.FitHeight), img, resize.Lanczos3)
	primaryData, err := encodeJPEG(primary)
	if err != nil {
		return nil, fmt.Errorf("encode primary: %w", err)
	}

	bounds := primary.Bounds()
	result := &TransformResult{
		Primary:  primaryData,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Variants: make(map[string][]byte, len(policy.Variants)),
	}

	for _, spec := range policy.Variants {
		data, err := encodeJPEG(cropToBox(img, spec.Width, spec.Height))
		if err != nil {
			return nil, fmt.Errorf("encode variant %s: %w", spec.Name, err)
		}
		result.Variants[spec.Name] = data
	}

	return result, nil
}

// cropToBox center-crops img to the target aspect ratio, then resizes into the
// target box without upscaling.
func cropToBox(img image.Image, targetW, targetH int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	targetRatio := float64(targetW) / float64(targetH)
	srcRatio := float64(w) / float64(h)

	cropW, cropH := w, h
	if srcRatio > targetRatio {
		cropW = int(float64(h) * targetRatio)
	} else if srcRatio < targetRatio {
		cropH = int(float64(w) / targetRatio)
	}

	x0 := bounds.Min.X + (w-cropW)/2
	y0 := bounds.Min.Y + (h-cropH)/2
	cropped := cropImage(img, image.Rect(x0, y0, x0+cropW, y0+cropH))

	return resize.Thumbnail(uint(targetW), uint(targetH), cropped, resize.Lanczos3)
}

// subImager is satisfied by every decoded stdlib image type.
type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func cropImage(img image.Image, r image.Rectangle) image.Image {
	if si, ok := img.(subImager); ok {
		return si.SubImage(r)
	}

	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			out.Set(x, y, img.At(r.Min.X+x, r.Min.Y+y))
		}
	}
	return out
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
