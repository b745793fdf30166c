package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"

	"github.com/gemcove/catalog-intake/pkg/logger"
)

// ErrDecode marks input bytes that could not be parsed as an image.
var ErrDecode = errors.New("image decode failed")

// EncodedImage 自描述的编码图像
type EncodedImage struct {
	MimeType string
	Data     []byte
	Width    int
	Height   int
}

// Processor 将原始图像压缩为适合传输与存储的有界表示
type Processor struct {
	logger   logger.Logger
	maxWidth int
	quality  int
}

func NewProcessor(log logger.Logger, maxWidth, quality int) *Processor {
	if maxWidth <= 0 {
		maxWidth = 1600
	}
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &Processor{
		logger:   log,
		maxWidth: maxWidth,
		quality:  quality,
	}
}

// Prepare decodes raw bytes, scales the image down to the configured maximum
// width when needed and re-encodes it as JPEG. Images already within the cap
// and already JPEG-encoded are passed through unchanged. Images are never
// upscaled.
func (p *Processor) Prepare(data []byte) (*EncodedImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= p.maxWidth && format == "jpeg" {
		return &EncodedImage{
			MimeType: "image/jpeg",
			Data:     data,
			Width:    width,
			Height:   height,
		}, nil
	}

	if width > p.maxWidth {
		img = imaging.Resize(img, p.maxWidth, 0, imaging.Lanczos)
		bounds = img.Bounds()
		width = bounds.Dx()
		height = bounds.Dy()
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	p.logger.Debug("Prepared working image",
		logger.String("sourceFormat", format),
		logger.Int("width", width),
		logger.Int("height", height),
		logger.Int("bytes", buf.Len()),
	)

	return &EncodedImage{
		MimeType: "image/jpeg",
		Data:     buf.Bytes(),
		Width:    width,
		Height:   height,
	}, nil
}
