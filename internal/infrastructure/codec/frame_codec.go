package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"safedrive/internal/core/domain"
	"safedrive/pkg/optimize"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const jpegDataURLPrefix = "data:image/jpeg;base64,"

// Default pixel limits for inbound frames.
const (
	DefaultMaxWidth  = 1920
	DefaultMaxHeight = 1080
)

// encodeBuffers holds JPEG scratch space; a 640x480 frame at quality 85 is
// typically well under 128KB.
var encodeBuffers = optimize.NewBufferPool(128*1024, 4<<20)

// FrameCodec decodes base64 image payloads, with or without a data URL
// prefix, and encodes processed frames as JPEG data URLs.
type FrameCodec struct {
	quality   int
	maxBytes  int
	maxWidth  int
	maxHeight int
	now       func() time.Time
}

// NewFrameCodec returns a codec that encodes at the given JPEG quality.
// maxBytes bounds the decoded payload size; zero disables the check. Frames
// larger than DefaultMaxWidth x DefaultMaxHeight are rejected unless
// WithMaxDimensions says otherwise.
func NewFrameCodec(quality, maxBytes int) *FrameCodec {
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	return &FrameCodec{
		quality:   quality,
		maxBytes:  maxBytes,
		maxWidth:  DefaultMaxWidth,
		maxHeight: DefaultMaxHeight,
		now:       time.Now,
	}
}

// WithMaxDimensions sets the largest accepted frame size in pixels. Values
// <= 0 keep the current limit.
func (c *FrameCodec) WithMaxDimensions(width, height int) *FrameCodec {
	if width > 0 {
		c.maxWidth = width
	}
	if height > 0 {
		c.maxHeight = height
	}
	return c
}

// StripDataURL removes a "data:<mime>;base64," prefix if present.
func StripDataURL(payload string) string {
	if i := strings.IndexByte(payload, ','); i >= 0 {
		return payload[i+1:]
	}
	return payload
}

func (c *FrameCodec) Decode(payload string) (*domain.Frame, error) {
	encoded := strings.TrimSpace(StripDataURL(payload))
	if encoded == "" {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrDecodeFailure)
	}
	if c.maxBytes > 0 && base64.StdEncoding.DecodedLen(len(encoded)) > c.maxBytes {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", domain.ErrDecodeFailure, c.maxBytes)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// Some clients drop the padding.
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: base64: %v", domain.ErrDecodeFailure, err)
		}
	}

	// The header is checked first: image.Decode allocates the full raster it
	// declares, whatever the payload size.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: image header: %v", domain.ErrDecodeFailure, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > c.maxWidth || cfg.Height > c.maxHeight {
		return nil, fmt.Errorf("%w: frame is %dx%d, limit %dx%d",
			domain.ErrDecodeFailure, cfg.Width, cfg.Height, c.maxWidth, c.maxHeight)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: image: %v", domain.ErrDecodeFailure, err)
	}

	return &domain.Frame{
		Data:       raw,
		Format:     format,
		Image:      img,
		ReceivedAt: c.now(),
	}, nil
}

func (c *FrameCodec) EncodeDataURL(img image.Image) (string, error) {
	buf := encodeBuffers.Get()
	defer encodeBuffers.Put(buf)

	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: c.quality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return jpegDataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
