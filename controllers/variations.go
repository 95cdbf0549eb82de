package controllers

import (
	"net/http"
	"strconv"

	"lookstudioapi/studio"

	"github.com/labstack/echo/v4"
)

type ContextVariationsIn struct {
	Contexts []string `json:"contexts" validate:"required,min=1,max=8,dive,max=300"`
	Clothing string   `json:"clothing" validate:"omitempty,max=300"`
}

type OpenRefinementIn struct {
	Index *int `json:"index" validate:"required,gte=0"`
}

type RefineIn struct {
	Instruction string `json:"instruction" validate:"required,max=1000"`
}

type VariationsController struct{}

func (controller *VariationsController) VariationRoutes(g *echo.Group) {
	g.POST("/variations/contexts", controller.GenerateContextVariations)
	g.POST("/variations/background", controller.CompositeBackground)
	g.POST("/variations/anime", controller.StyleTransfer)
	g.POST("/variations/angles", controller.GenerateAngles)
	g.GET("/variations/:index", controller.VariationImage)
	g.POST("/variations/:index/select", controller.SelectVariation)
	g.DELETE("/variations", controller.DiscardVariations)

	g.POST("/refinement/open", controller.OpenRefinement)
	g.DELETE("/refinement", controller.CloseRefinement)
	g.POST("/refinement", controller.SubmitRefinement)
	g.POST("/refine", controller.RefineCurrent)
}

func indexParam(c echo.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	return index, err == nil
}

func (controller *VariationsController) GenerateContextVariations(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	var req ContextVariationsIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return respondState(c, workflow, workflow.GenerateVariations(c.Request().Context(), req.Contexts, req.Clothing))
}

// CompositeBackground places the person into the multipart "background" image.
func (controller *VariationsController) CompositeBackground(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	background, err := readImageForm(c, "background")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return respondState(c, workflow, workflow.CompositeBackground(c.Request().Context(), background))
}

// StyleTransfer takes the multipart "style" reference and an optional "pose" field.
func (controller *VariationsController) StyleTransfer(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	style, err := readImageForm(c, "style")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	pose := c.FormValue("pose")
	if len(pose) > 300 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "pose description is too long"})
	}
	return respondState(c, workflow, workflow.StyleTransfer(c.Request().Context(), style, pose))
}

func (controller *VariationsController) GenerateAngles(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	return respondState(c, workflow, workflow.GenerateAngles(c.Request().Context()))
}

func (controller *VariationsController) VariationImage(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	index, ok := indexParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "index must be a number"})
	}
	image, err := workflow.Variation(index)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": studio.UserMessage(err)})
	}
	return sendImage(c, image.File(""))
}

func (controller *VariationsController) SelectVariation(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	index, ok := indexParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "index must be a number"})
	}
	return respondState(c, workflow, workflow.SelectVariation(index))
}

func (controller *VariationsController) DiscardVariations(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	return respondState(c, workflow, workflow.DiscardVariations())
}

func (controller *VariationsController) OpenRefinement(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	var req OpenRefinementIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return respondState(c, workflow, workflow.OpenRefinement(*req.Index))
}

func (controller *VariationsController) CloseRefinement(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	return respondState(c, workflow, workflow.CloseRefinement())
}

func (controller *VariationsController) SubmitRefinement(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	var req RefineIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return respondState(c, workflow, workflow.SubmitRefinement(c.Request().Context(), req.Instruction))
}

func (controller *VariationsController) RefineCurrent(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	var req RefineIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return respondState(c, workflow, workflow.RefineCurrent(c.Request().Context(), req.Instruction))
}
