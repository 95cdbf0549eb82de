package services

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"lookstudioapi/models"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Types the generation endpoint accepts as-is. Everything else is re-encoded as PNG.
var transportMIMETypes = []string{"image/png", "image/jpeg", "image/webp", "image/heic", "image/heif"}

var mimeAliases = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
	"image/x-png": "image/png",
	"image/x-bmp": "image/bmp",
}

var heifBrands = map[string]string{
	"heic": "image/heic",
	"heix": "image/heic",
	"hevc": "image/heic",
	"heim": "image/heic",
	"heis": "image/heic",
	"mif1": "image/heif",
	"msf1": "image/heif",
}

// TransportPart is the inline form an image takes inside a generation request.
type TransportPart struct {
	MIMEType   string
	Base64Data string
}

func (p TransportPart) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(p.Base64Data)
}

func canonicalMIME(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if alias, ok := mimeAliases[mimeType]; ok {
		return alias
	}
	return mimeType
}

// DetectMediaType sniffs the image type from its header bytes.
func DetectMediaType(data []byte) string {
	if len(data) >= 12 && string(data[4:8]) == "ftyp" {
		if mimeType, ok := heifBrands[string(data[8:12])]; ok {
			return mimeType
		}
	}
	return canonicalMIME(http.DetectContentType(data))
}

// NormalizeEncoding passes accepted types through unchanged and re-encodes
// anything else as PNG, renaming the file extension to .png.
func NormalizeEncoding(file models.ImageFile) (models.ImageFile, error) {
	mimeType := canonicalMIME(file.MIMEType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = DetectMediaType(file.Data)
	}
	if slices.Contains(transportMIMETypes, mimeType) {
		file.MIMEType = mimeType
		return file, nil
	}

	img, err := imaging.Decode(bytes.NewReader(file.Data))
	if err != nil {
		return models.ImageFile{}, &ConversionError{MIMEType: mimeType, Err: err}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return models.ImageFile{}, &ConversionError{MIMEType: mimeType, Err: err}
	}
	return models.ImageFile{
		Name:     pngFileName(file.Name),
		MIMEType: "image/png",
		Data:     buf.Bytes(),
	}, nil
}

func pngFileName(name string) string {
	if name == "" {
		return "image.png"
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".png"
}

func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI splits a base64 data URI into its media type and payload.
func ParseDataURI(uri string) (TransportPart, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return TransportPart{}, errors.New("not a data uri")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return TransportPart{}, errors.New("data uri has no payload separator")
	}
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return TransportPart{}, errors.New("data uri is not base64 encoded")
	}
	if mimeType == "" || payload == "" {
		return TransportPart{}, errors.New("data uri is missing media type or payload")
	}
	return TransportPart{MIMEType: mimeType, Base64Data: payload}, nil
}

// DecodeDataURI turns an uploaded data URI back into an image file.
func DecodeDataURI(name, uri string) (models.ImageFile, error) {
	part, err := ParseDataURI(uri)
	if err != nil {
		return models.ImageFile{}, err
	}
	data, err := part.Bytes()
	if err != nil {
		return models.ImageFile{}, fmt.Errorf("invalid base64 payload: %w", err)
	}
	if len(data) == 0 {
		return models.ImageFile{}, errors.New("image is empty")
	}
	return models.ImageFile{Name: name, MIMEType: canonicalMIME(part.MIMEType), Data: data}, nil
}

// ToTransportPart normalizes the image and renders it as an inline part.
func ToTransportPart(file models.ImageFile) (TransportPart, error) {
	if file.Empty() {
		return TransportPart{}, &EncodingError{Err: fmt.Errorf("image %q has no data", file.Name)}
	}
	normalized, err := NormalizeEncoding(file)
	if err != nil {
		return TransportPart{}, err
	}
	part, err := ParseDataURI(EncodeDataURI(normalized.MIMEType, normalized.Data))
	if err != nil {
		return TransportPart{}, &EncodingError{Err: err}
	}
	return part, nil
}

// ImageDimensions reads the natural size from the image header.
func ImageDimensions(file models.ImageFile) (models.Size, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(file.Data))
	if err != nil {
		return models.Size{}, fmt.Errorf("cannot read dimensions of %s: %w", file.Name, err)
	}
	return models.Size{Width: float64(cfg.Width), Height: float64(cfg.Height)}, nil
}
