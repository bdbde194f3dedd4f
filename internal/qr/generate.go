// Package qr renders payloads as QR code images and reads them back.
package qr

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"

	goqrcode "github.com/skip2/go-qrcode"

	"github.com/Tobless-scripts/Snap-Card/internal/apperrors"
)

// Level is the error-correction level of the symbol. The zero value is
// LevelMedium.
type Level int

const (
	LevelMedium Level = iota
	LevelLow
	LevelHigh
	LevelHighest
)

const (
	DefaultSize   = 256
	DefaultMargin = 4
)

// Options control the rendered image. Size is the edge length in pixels and
// Margin the quiet zone in modules.
type Options struct {
	Size   int
	Margin int
	Level  Level
}

// DefaultOptions matches what the card page displays.
func DefaultOptions() Options {
	return Options{Size: DefaultSize, Margin: DefaultMargin, Level: LevelMedium}
}

// Image is a rendered QR code.
type Image struct {
	PNG     []byte
	Bitmap  image.Image
	Modules int
}

// DataURI returns the PNG as a data: URI suitable for an <img> src.
func (i *Image) DataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(i.PNG)
}

// Generate encodes payload verbatim into a QR image.
func Generate(payload string, opts Options) (*Image, error) {
	if payload == "" {
		return nil, apperrors.ErrEmptyPayload
	}
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Margin < 0 {
		opts.Margin = 0
	}

	code, err := goqrcode.New(payload, recoveryLevel(opts.Level))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPayloadTooLarge, err)
	}
	code.DisableBorder = true

	modules := code.Bitmap()
	img := render(modules, opts.Size, opts.Margin)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return &Image{PNG: buf.Bytes(), Bitmap: img, Modules: len(modules)}, nil
}

// render scales the module grid to fit size pixels, surrounded by margin
// light modules. The grid is never scaled below one pixel per module, so a
// size smaller than the symbol yields a larger image.
func render(modules [][]bool, size, margin int) *image.Gray {
	total := len(modules) + 2*margin
	scale := size / total
	if scale < 1 {
		scale = 1
	}
	dim := total * scale
	if size > dim {
		dim = size
	}
	offset := (dim-total*scale)/2 + margin*scale

	img := image.NewGray(image.Rect(0, 0, dim, dim))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	for y, row := range modules {
		for x, dark := range row {
			if !dark {
				continue
			}
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					img.SetGray(offset+x*scale+dx, offset+y*scale+dy, color.Gray{Y: 0})
				}
			}
		}
	}
	return img
}

func recoveryLevel(l Level) goqrcode.RecoveryLevel {
	switch l {
	case LevelLow:
		return goqrcode.Low
	case LevelHigh:
		return goqrcode.High
	case LevelHighest:
		return goqrcode.Highest
	default:
		return goqrcode.Medium
	}
}
