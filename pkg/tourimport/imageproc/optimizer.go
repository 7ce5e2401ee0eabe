// Package imageproc resizes and recompresses raw images into named
// presets (hero, gallery, card, thumbnail). Resizing preserves aspect
// ratio and never upscales.
package imageproc

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/voyagekit/tourimport/pkg/tourimport"
)

// Preset is a named optimization configuration.
type Preset struct {
	Name      string
	MaxWidth  int
	MaxHeight int
	// Quality is the JPEG quality, 1-100.
	Quality int
	// Format is "jpeg" or "png"; empty means jpeg.
	Format string
}

// DefaultPresets returns the pipeline's built-in presets keyed by name.
// Names match the image roles used for destination paths.
func DefaultPresets() map[string]Preset {
	return map[string]Preset{
		"hero":      {Name: "hero", MaxWidth: 1920, MaxHeight: 1080, Quality: 85},
		"gallery":   {Name: "gallery", MaxWidth: 1200, MaxHeight: 900, Quality: 80},
		"card":      {Name: "card", MaxWidth: 800, MaxHeight: 600, Quality: 78},
		"thumbnail": {Name: "thumbnail", MaxWidth: 400, MaxHeight: 300, Quality: 75},
	}
}

// Optimizer implements tourimport.Optimizer over a preset registry.
type Optimizer struct {
	presets map[string]Preset
}

// New creates an optimizer with the default presets.
func New() *Optimizer {
	return &Optimizer{presets: DefaultPresets()}
}

// NewWithPresets creates an optimizer with a custom preset registry.
func NewWithPresets(presets map[string]Preset) *Optimizer {
	return &Optimizer{presets: presets}
}

// Optimize decodes raw bytes, fits them inside the preset's bounds
// (downscale only) and re-encodes. Corrupt or unsupported input yields
// tourimport.ErrUnsupportedImage.
func (o *Optimizer) Optimize(raw []byte, preset string) (*tourimport.OptimizedImage, error) {
	p, ok := o.presets[preset]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q", preset)
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tourimport.ErrUnsupportedImage, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > p.MaxWidth || bounds.Dy() > p.MaxHeight {
		img = imaging.Fit(img, p.MaxWidth, p.MaxHeight, imaging.Lanczos)
	}

	var (
		buf  bytes.Buffer
		mime string
		ext  string
	)
	switch p.Format {
	case "", "jpeg", "jpg":
		quality := p.Quality
		if quality <= 0 || quality > 100 {
			quality = 80
		}
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, fmt.Errorf("encoding jpeg: %w", err)
		}
		mime, ext = "image/jpeg", "jpg"
	case "png":
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, fmt.Errorf("encoding png: %w", err)
		}
		mime, ext = "image/png", "png"
	default:
		return nil, fmt.Errorf("unsupported output format %q for preset %q", p.Format, p.Name)
	}

	final := img.Bounds()
	return &tourimport.OptimizedImage{
		Bytes:    buf.Bytes(),
		Width:    final.Dx(),
		Height:   final.Dy(),
		MimeType: mime,
		Ext:      ext,
	}, nil
}
