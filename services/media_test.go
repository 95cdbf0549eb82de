package services

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"testing"

	"lookstudioapi/models"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestImage(t *testing.T, format imaging.Format, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, format))
	return buf.Bytes()
}

func TestNormalizeEncodingPassesAcceptedTypes(t *testing.T) {
	data := encodeTestImage(t, imaging.JPEG, 4, 4)
	for _, mimeType := range []string{"image/png", "image/jpeg", "image/webp", "image/heic", "image/heif"} {
		file := models.ImageFile{Name: "photo.bin", MIMEType: mimeType, Data: data}
		out, err := NormalizeEncoding(file)
		require.NoError(t, err)
		assert.Equal(t, mimeType, out.MIMEType)
		assert.Equal(t, "photo.bin", out.Name)
		assert.Equal(t, data, out.Data)
	}
}

func TestNormalizeEncodingConvertsBMPToPNG(t *testing.T) {
	file := models.ImageFile{Name: "scan.bmp", MIMEType: "image/bmp", Data: encodeTestImage(t, imaging.BMP, 3, 2)}

	out, err := NormalizeEncoding(file)
	require.NoError(t, err)
	assert.Equal(t, "image/png", out.MIMEType)
	assert.Equal(t, "scan.png", out.Name)

	decoded, format, err := image.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 3, decoded.Bounds().Dx())
	assert.Equal(t, 2, decoded.Bounds().Dy())
}

func TestNormalizeEncodingConvertsGIFWithoutDeclaredType(t *testing.T) {
	file := models.ImageFile{Name: "anim", Data: encodeTestImage(t, imaging.GIF, 2, 2)}

	out, err := NormalizeEncoding(file)
	require.NoError(t, err)
	assert.Equal(t, "image/png", out.MIMEType)
	assert.Equal(t, "anim.png", out.Name)
}

func TestNormalizeEncodingUndecodable(t *testing.T) {
	file := models.ImageFile{Name: "broken.bmp", MIMEType: "image/bmp", Data: []byte("not an image")}

	_, err := NormalizeEncoding(file)
	var conversionErr *ConversionError
	require.True(t, errors.As(err, &conversionErr))
	assert.Equal(t, "image/bmp", conversionErr.MIMEType)
}

func TestDetectMediaType(t *testing.T) {
	assert.Equal(t, "image/png", DetectMediaType(encodeTestImage(t, imaging.PNG, 1, 1)))
	assert.Equal(t, "image/jpeg", DetectMediaType(encodeTestImage(t, imaging.JPEG, 1, 1)))

	heic := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
	assert.Equal(t, "image/heic", DetectMediaType(heic))
	heif := append([]byte{0, 0, 0, 24}, []byte("ftypmif10000")...)
	assert.Equal(t, "image/heif", DetectMediaType(heif))
}

func TestCanonicalMIME(t *testing.T) {
	assert.Equal(t, "image/jpeg", canonicalMIME("image/jpg"))
	assert.Equal(t, "image/png", canonicalMIME(" IMAGE/PNG; charset=binary"))
}

func TestToTransportPartRoundTrip(t *testing.T) {
	data := encodeTestImage(t, imaging.PNG, 2, 2)
	part, err := ToTransportPart(models.ImageFile{Name: "a.png", MIMEType: "image/png", Data: data})
	require.NoError(t, err)
	assert.Equal(t, "image/png", part.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(data), part.Base64Data)

	decoded, err := part.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestToTransportPartEmptyImage(t *testing.T) {
	_, err := ToTransportPart(models.ImageFile{Name: "empty.png", MIMEType: "image/png"})
	var encodingErr *EncodingError
	assert.True(t, errors.As(err, &encodingErr))
}

func TestParseDataURI(t *testing.T) {
	part, err := ParseDataURI("data:image/webp;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "image/webp", part.MIMEType)
	assert.Equal(t, "AAAA", part.Base64Data)

	for _, bad := range []string{"image/png;base64,AAAA", "data:image/png;base64", "data:image/png,AAAA", "data:;base64,AAAA"} {
		_, err := ParseDataURI(bad)
		assert.Error(t, err, bad)
	}
}

func TestDecodeDataURI(t *testing.T) {
	data := encodeTestImage(t, imaging.PNG, 1, 1)
	file, err := DecodeDataURI("ref.png", EncodeDataURI("image/png", data))
	require.NoError(t, err)
	assert.Equal(t, "ref.png", file.Name)
	assert.Equal(t, "image/png", file.MIMEType)
	assert.Equal(t, data, file.Data)

	_, err = DecodeDataURI("ref.png", "data:image/png;base64,!!!")
	assert.Error(t, err)
}

func TestImageDimensions(t *testing.T) {
	size, err := ImageDimensions(models.ImageFile{Name: "a.png", Data: encodeTestImage(t, imaging.PNG, 1200, 1600)})
	require.NoError(t, err)
	assert.Equal(t, models.Size{Width: 1200, Height: 1600}, size)

	_, err = ImageDimensions(models.ImageFile{Name: "b", Data: []byte("nope")})
	assert.Error(t, err)
}
