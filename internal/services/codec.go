package services

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels caps decoded image area to keep a single upload from
// exhausting memory (roughly 400 MiB of RGBA).
const DefaultMaxPixels = 100_000_000

const fallbackBaseName = "image"

type encodeFunc func(w io.Writer, img image.Image) error

// ImageCodec decodes any registered source format and encodes to one target format
type ImageCodec struct {
	format    string
	extension string
	encode    encodeFunc
	maxPixels int
}

// NewImageCodec returns a codec for the target format ("webp", "png" or "jpeg").
// quality only applies to jpeg.
func NewImageCodec(format string, quality int) (*ImageCodec, error) {
	c := &ImageCodec{format: strings.ToLower(format), maxPixels: DefaultMaxPixels}

	switch c.format {
	case "webp":
		c.extension = ".webp"
		c.encode = func(w io.Writer, img image.Image) error {
			return nativewebp.Encode(w, img, nil)
		}
	case "png":
		c.extension = ".png"
		c.encode = png.Encode
	case "jpeg", "jpg":
		c.format = "jpeg"
		c.extension = ".jpg"
		c.encode = func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
		}
	default:
		return nil, fmt.Errorf("unsupported target format %q", format)
	}

	return c, nil
}

// WithMaxPixels overrides the decoded area limit. n <= 0 removes the limit.
func (c *ImageCodec) WithMaxPixels(n int) *ImageCodec {
	c.maxPixels = n
	return c
}

// Format returns the target format name
func (c *ImageCodec) Format() string { return c.format }

// Extension returns the target file extension including the dot
func (c *ImageCodec) Extension() string { return c.extension }

// Convert decodes content and re-encodes it to the target format
func (c *ImageCodec) Convert(content []byte, filename string) (ConversionResult, error) {
	if c.maxPixels > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
		if err != nil {
			return ConversionResult{}, fmt.Errorf("%w: %s: %v", ErrDecode, filename, err)
		}
		if cfg.Width*cfg.Height > c.maxPixels {
			return ConversionResult{}, fmt.Errorf("%w: %s: %dx%d exceeds %d pixels",
				ErrDecode, filename, cfg.Width, cfg.Height, c.maxPixels)
		}
	}

	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return ConversionResult{}, fmt.Errorf("%w: %s: %v", ErrDecode, filename, err)
	}

	var buf bytes.Buffer
	if err := c.encode(&buf, img); err != nil {
		return ConversionResult{}, fmt.Errorf("%w: %s: %v", ErrEncode, filename, err)
	}

	return ConversionResult{
		OutputName: OutputName(filename, c.extension),
		Data:       buf.Bytes(),
	}, nil
}

// OutputName strips directory components and the final extension from filename
// and appends ext. A leading dot does not start an extension, so ".hidden"
// becomes ".hidden.webp".
func OutputName(filename, ext string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" || base == ".." {
		return fallbackBaseName + ext
	}

	stem := base
	trimmed := strings.TrimLeft(base, ".")
	lead := len(base) - len(trimmed)
	if i := strings.LastIndex(trimmed, "."); i > 0 {
		stem = base[:lead+i]
	}
	return stem + ext
}
