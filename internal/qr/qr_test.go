package qr_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tobless-scripts/Snap-Card/internal/apperrors"
	"github.com/Tobless-scripts/Snap-Card/internal/models"
	"github.com/Tobless-scripts/Snap-Card/internal/qr"
	"github.com/Tobless-scripts/Snap-Card/internal/vcard"
)

func janePayload() string {
	return vcard.Encode(&models.Profile{
		DisplayName: "Jane Doe",
		Email:       "jane@co.com",
		Phone:       "+1-555-0100",
		Links:       map[string]string{models.PlatformLinkedIn: "linkedin.com/in/jane"},
	}, time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC))
}

func TestGenerate_RoundTripsPayload(t *testing.T) {
	payload := janePayload()

	img, err := qr.Generate(payload, qr.DefaultOptions())
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(img.PNG))
	require.NoError(t, err)
	assert.Equal(t, qr.DefaultSize, decoded.Bounds().Dx())

	text, err := qr.NewReader().Decode(decoded)
	require.NoError(t, err)
	assert.Equal(t, payload, text)

	f, err := vcard.Decode(text)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", f.DisplayName)
	assert.Equal(t, "jane@co.com", f.Email)
	assert.Equal(t, "+1-555-0100", f.Phone)
	assert.Equal(t, "https://linkedin.com/in/jane", f.Links[models.PlatformLinkedIn])
}

func TestGenerate_PlainText(t *testing.T) {
	img, err := qr.Generate("hello", qr.DefaultOptions())
	require.NoError(t, err)

	text, err := qr.NewReader().Decode(img.Bitmap)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestGenerate_DataURI(t *testing.T) {
	img, err := qr.Generate("hello", qr.Options{Size: 120, Margin: 1})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(img.DataURI(), "data:image/png;base64,"))
}

func TestGenerate_EmptyPayload(t *testing.T) {
	_, err := qr.Generate("", qr.DefaultOptions())
	assert.ErrorIs(t, err, apperrors.ErrEmptyPayload)
}

func TestGenerate_Capacity(t *testing.T) {
	// 2331 bytes is the byte-mode capacity of a version 40 symbol at medium
	// error correction.
	img, err := qr.Generate(strings.Repeat("a", 2331), qr.Options{Size: 1})
	require.NoError(t, err)
	assert.Equal(t, 177, img.Modules)

	_, err = qr.Generate(strings.Repeat("a", 2332), qr.Options{Size: 1})
	assert.ErrorIs(t, err, apperrors.ErrPayloadTooLarge)
}

func TestGenerate_ZeroLevelIsMedium(t *testing.T) {
	_, err := qr.Generate(strings.Repeat("a", 2331), qr.Options{Size: 1, Level: qr.LevelHigh})
	assert.ErrorIs(t, err, apperrors.ErrPayloadTooLarge)

	var opts qr.Options
	assert.Equal(t, qr.LevelMedium, opts.Level)
	assert.Equal(t, qr.LevelMedium, qr.DefaultOptions().Level)
}

func TestGenerate_Margin(t *testing.T) {
	bare, err := qr.Generate("hello", qr.Options{Size: 1, Margin: 0})
	require.NoError(t, err)
	assert.Equal(t, bare.Modules, bare.Bitmap.Bounds().Dx())
	assert.Equal(t, color.Gray{Y: 0}, grayAt(bare.Bitmap, 0, 0), "finder pattern touches the edge")

	padded, err := qr.Generate("hello", qr.Options{Size: 1, Margin: 2})
	require.NoError(t, err)
	assert.Equal(t, padded.Modules+4, padded.Bitmap.Bounds().Dx())
	assert.Equal(t, color.Gray{Y: 0xff}, grayAt(padded.Bitmap, 0, 0))
	assert.Equal(t, color.Gray{Y: 0xff}, grayAt(padded.Bitmap, 1, 1))
	assert.Equal(t, color.Gray{Y: 0}, grayAt(padded.Bitmap, 2, 2))
}

func TestReader_NoCode(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 200, 200))
	for i := range blank.Pix {
		blank.Pix[i] = 0xff
	}
	_, err := qr.NewReader().Decode(blank)
	assert.ErrorIs(t, err, qr.ErrNoCode)

	_, err = qr.NewReader().Decode(nil)
	assert.ErrorIs(t, err, qr.ErrNoCode)
}

func grayAt(img image.Image, x, y int) color.Gray {
	return color.GrayModel.Convert(img.At(x, y)).(color.Gray)
}
