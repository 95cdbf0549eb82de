package models

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator"
)

type ClothingCategory string

const (
	CategoryTop       ClothingCategory = "top"
	CategoryBottom    ClothingCategory = "bottom"
	CategoryDress     ClothingCategory = "dress"
	CategoryOuterwear ClothingCategory = "outerwear"
	CategoryShoes     ClothingCategory = "shoes"
	CategoryAccessory ClothingCategory = "accessory"
	CategoryHeadwear  ClothingCategory = "headwear"
)

var ClothingCategories = []ClothingCategory{
	CategoryTop,
	CategoryBottom,
	CategoryDress,
	CategoryOuterwear,
	CategoryShoes,
	CategoryAccessory,
	CategoryHeadwear,
}

var categoryPattern = regexp.MustCompile("^(top|bottom|dress|outerwear|shoes|accessory|headwear)$")

func (l *ClothingCategory) Scan(value interface{}) error {
	*l = ClothingCategory(value.(string))
	return nil
}

func (l ClothingCategory) Value() (string, error) {
	return string(l), nil
}

func ValidateCategory(fl validator.FieldLevel) bool {
	return categoryPattern.MatchString(fl.Field().String())
}

func ValidateCategoryRaw(value string) bool {
	return categoryPattern.MatchString(value)
}

// SourceMode tells whether an item's value is a reference image or a text description.
type SourceMode string

const (
	SourceImage SourceMode = "image"
	SourceText  SourceMode = "text"
)

func ValidateSourceMode(fl validator.FieldLevel) bool {
	return ValidateSourceModeRaw(fl.Field().String())
}

func ValidateSourceModeRaw(value string) bool {
	return value == string(SourceImage) || value == string(SourceText)
}

// Point is a pixel coordinate in the natural resolution of an image.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ClothingItem is one pending outfit entry. Value is either Image or Text
// depending on SourceMode; an item without a value or placement does not
// take part in composition.
type ClothingItem struct {
	ID         string           `json:"id"`
	Category   ClothingCategory `json:"category"`
	SourceMode SourceMode       `json:"source_mode"`
	Text       *string          `json:"text,omitempty"`
	Image      *ImageFile       `json:"-"`
	Placement  *Point           `json:"placement,omitempty"`
}

func (item ClothingItem) HasValue() bool {
	switch item.SourceMode {
	case SourceImage:
		return item.Image != nil && len(item.Image.Data) > 0
	case SourceText:
		return item.Text != nil && strings.TrimSpace(*item.Text) != ""
	}
	return false
}

// Qualifies reports whether the item has both a value and a placement.
func (item ClothingItem) Qualifies() bool {
	return item.HasValue() && item.Placement != nil
}
