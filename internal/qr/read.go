package qr

import (
	"errors"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNoCode is returned when an image holds no decodable QR symbol.
var ErrNoCode = errors.New("no QR code found in image")

// Reader decodes QR symbols from images.
type Reader struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// NewReader returns a Reader that interprets byte-mode payloads as UTF-8.
func NewReader() *Reader {
	return &Reader{
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_CHARACTER_SET: "UTF-8",
			gozxing.DecodeHintType_TRY_HARDER:    true,
		},
	}
}

// Decode returns the text of the QR symbol in img.
func (r *Reader) Decode(img image.Image) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", ErrNoCode
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCode, err)
	}
	res, err := zxingqr.NewQRCodeReader().Decode(bmp, r.hints)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCode, err)
	}
	return res.GetText(), nil
}
