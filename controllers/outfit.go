package controllers

import (
	"net/http"

	"lookstudioapi/languageutil"
	"lookstudioapi/models"
	"lookstudioapi/studio"

	"github.com/labstack/echo/v4"
)

type AddItemIn struct {
	Category string `json:"category" validate:"required,category"`
}

type UpdateItemIn struct {
	SourceMode *string `json:"source_mode" validate:"omitempty,source_mode"`
	Text       *string `json:"text" validate:"omitempty,max=500"`
}

// PlaceItemIn is a click on the image as displayed. The natural size is only
// needed for images whose header the server cannot read.
type PlaceItemIn struct {
	ClickX         float64 `json:"click_x" validate:"gte=0"`
	ClickY         float64 `json:"click_y" validate:"gte=0"`
	RenderedWidth  float64 `json:"rendered_width" validate:"gt=0"`
	RenderedHeight float64 `json:"rendered_height" validate:"gt=0"`
	NaturalWidth   float64 `json:"natural_width" validate:"gte=0"`
	NaturalHeight  float64 `json:"natural_height" validate:"gte=0"`
}

type OutfitController struct{}

func (controller *OutfitController) OutfitRoutes(g *echo.Group) {
	g.POST("/items", controller.AddItem)
	g.PATCH("/items/:id", controller.UpdateItem)
	g.PUT("/items/:id/image", controller.UploadItemImage)
	g.DELETE("/items/:id", controller.RemoveItem)
	g.POST("/items/:id/placement", controller.BeginPlacement)
	g.POST("/placement", controller.PlaceItem)
	g.DELETE("/placement", controller.CancelPlacement)
	g.POST("/apply", controller.ApplyOutfit)
	g.POST("/confirm", controller.ConfirmOutfit)
	g.POST("/discard", controller.DiscardOutfit)
}

func (controller *OutfitController) AddItem(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	var req AddItemIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	req.Category = languageutil.NormalizeKey(req.Category)
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	_, err := workflow.AddItem(models.ClothingCategory(req.Category))
	return respondState(c, workflow, err)
}

func (controller *OutfitController) UpdateItem(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	var req UpdateItemIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if req.SourceMode != nil {
		normalized := languageutil.NormalizeKey(*req.SourceMode)
		req.SourceMode = &normalized
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	patch := studio.ItemPatch{Text: req.Text}
	if req.SourceMode != nil {
		mode := models.SourceMode(*req.SourceMode)
		patch.SourceMode = &mode
	}
	_, err := workflow.UpdateItem(c.Param("id"), patch)
	return respondState(c, workflow, err)
}

// UploadItemImage sets the reference image of an item from a multipart "image" field.
func (controller *OutfitController) UploadItemImage(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	image, err := readImageForm(c, "image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	_, err = workflow.UpdateItem(c.Param("id"), studio.ItemPatch{Image: &image})
	return respondState(c, workflow, err)
}

func (controller *OutfitController) RemoveItem(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	return respondState(c, workflow, workflow.RemoveItem(c.Param("id")))
}

func (controller *OutfitController) BeginPlacement(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	return respondState(c, workflow, workflow.BeginPlacement(c.Param("id")))
}

func (controller *OutfitController) PlaceItem(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	var req PlaceItemIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	_, err := workflow.PlaceActiveItem(
		req.ClickX, req.ClickY,
		models.Size{Width: req.RenderedWidth, Height: req.RenderedHeight},
		models.Size{Width: req.NaturalWidth, Height: req.NaturalHeight},
	)
	return respondState(c, workflow, err)
}

func (controller *OutfitController) CancelPlacement(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	return respondState(c, workflow, workflow.CancelPlacement())
}

func (controller *OutfitController) ApplyOutfit(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	return respondState(c, workflow, workflow.ApplyOutfit(c.Request().Context()))
}

func (controller *OutfitController) ConfirmOutfit(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	return respondState(c, workflow, workflow.ConfirmOutfit())
}

func (controller *OutfitController) DiscardOutfit(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	return respondState(c, workflow, workflow.DiscardOutfit())
}
