package imageprocessor

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	// register the WebP decoder with image.Decode
	_ "golang.org/x/image/webp"
)

// Generator does the pixel work: decode, resize and encode.
// Every call returns a new image or buffer and never mutates its input.
type Generator struct {
	webpQuality int
}

// NewGenerator creates a generator whose EncodeWebP uses webpQuality
func NewGenerator(webpQuality int) *Generator {
	return &Generator{webpQuality: clampQuality(webpQuality)}
}

// Decode decodes JPEG, PNG, GIF, WebP, BMP or TIFF bytes and applies the EXIF orientation.
// The returned format is the file extension for the detected codec.
func (g *Generator) Decode(data []byte) (image.Image, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, "", fmt.Errorf("%w: empty image", ErrDecode)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, extOfFormat(format), nil
}

// Resize fits img into size according to aspect.
func (g *Generator) Resize(img image.Image, size Size, aspect Aspect) *image.NRGBA {
	if aspect == AspectFixed {
		return imaging.Fill(img, size.Width, size.Height, imaging.Center, imaging.Lanczos)
	}
	// Fit returns a copy when img already fits
	return imaging.Fit(img, size.Width, size.Height, imaging.Lanczos)
}

// Encode encodes img for the target extension.
// png and gif are lossless and ignore quality, webp uses the global WebP quality,
// everything else is JPEG at quality.
func (g *Generator) Encode(img image.Image, ext string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch ext {
	case "png":
		err = imaging.Encode(&buf, img, imaging.PNG)
	case "gif":
		err = imaging.Encode(&buf, img, imaging.GIF)
	case "webp":
		// webp targets always use the global WebP quality
		return g.EncodeWebP(img)
	default:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(clampQuality(quality)))
	}
	if err != nil {
		return nil, fmt.Errorf("error encoding %s image: %w", ext, err)
	}
	return buf.Bytes(), nil
}

// EncodeWebP encodes img as lossy WebP at the global WebP quality
func (g *Generator) EncodeWebP(img image.Image) ([]byte, error) {
	return encodeWebP(img, g.webpQuality)
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(clampQuality(quality)))
	if err != nil {
		return nil, fmt.Errorf("error creating encoder options: %w", err)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, options); err != nil {
		return nil, fmt.Errorf("error encoding WebP image: %w", err)
	}
	return buf.Bytes(), nil
}

func extOfFormat(format string) string {
	switch format {
	case "jpeg", "":
		return "jpg"
	default:
		return format
	}
}
