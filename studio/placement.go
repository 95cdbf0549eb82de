package studio

import (
	"errors"
	"math"

	"lookstudioapi/models"
)

var ErrInvalidRenderedSize = errors.New("rendered and natural image sizes must be positive")

// ScaleToNatural converts a click offset on the displayed image into pixel
// coordinates of the image at its natural resolution.
func ScaleToNatural(clickX, clickY float64, rendered, natural models.Size) (models.Point, error) {
	if rendered.Width <= 0 || rendered.Height <= 0 || natural.Width <= 0 || natural.Height <= 0 {
		return models.Point{}, ErrInvalidRenderedSize
	}
	x := clickX * natural.Width / rendered.Width
	y := clickY * natural.Height / rendered.Height
	return models.Point{
		X: int(math.Round(clamp(x, 0, natural.Width-1))),
		Y: int(math.Round(clamp(y, 0, natural.Height-1))),
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
