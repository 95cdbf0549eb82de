package controllers

import (
	"fmt"
	"net/http"
	"time"

	"lookstudioapi/models"
	"lookstudioapi/studio"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
)

type SessionController struct {
	JWTSecret string
	TokenTTL  time.Duration
}

func (controller *SessionController) SessionRoutes(g *echo.Group) {
	g.GET("/state", controller.GetState)
	g.DELETE("/session", controller.EndSession)
	g.POST("/restart", controller.StartOver)
	g.POST("/undo", controller.Undo)
	g.POST("/redo", controller.Redo)
	g.GET("/images/current", controller.CurrentImage)
	g.GET("/images/original", controller.OriginalImage)
}

// CreateSession starts a studio session from a multipart "image" upload.
func (controller *SessionController) CreateSession(c echo.Context) error {
	registry, ok := c.Get("__registry").(*studio.Registry)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Studio is not available"})
	}
	upload, err := readImageForm(c, "image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	workflow, err := registry.Create(upload)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": studio.UserMessage(err)})
	}
	token, err := GenerateSessionToken(workflow.ID(), controller.JWTSecret, controller.TokenTTL)
	if err != nil {
		registry.Delete(workflow.ID())
		sentry.CaptureException(fmt.Errorf("[Session: %s] Error when signing session token: %w", workflow.ID(), err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Could not start a session, please try again"})
	}
	fmt.Printf("[Session: %s] Started with %s (%s, %d bytes)\n", workflow.ID(), upload.Name, upload.MIMEType, len(upload.Data))

	return c.JSON(http.StatusCreated, models.SessionCreatedOut{
		SessionID: workflow.ID(),
		Token:     token,
		State:     workflow.Snapshot(),
	})
}

func (controller *SessionController) GetState(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	return c.JSON(http.StatusOK, workflow.Snapshot())
}

func (controller *SessionController) EndSession(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	registry := c.Get("__registry").(*studio.Registry)
	registry.Delete(workflow.ID())
	fmt.Printf("[Session: %s] Ended\n", workflow.ID())
	return c.NoContent(http.StatusNoContent)
}

func (controller *SessionController) StartOver(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	upload, err := readImageForm(c, "image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return respondState(c, workflow, workflow.StartOver(upload))
}

func (controller *SessionController) Undo(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	return respondState(c, workflow, workflow.Undo())
}

func (controller *SessionController) Redo(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	return respondState(c, workflow, workflow.Redo())
}

func (controller *SessionController) CurrentImage(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	file, err := workflow.CurrentImage()
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": studio.UserMessage(err)})
	}
	return sendImage(c, file)
}

func (controller *SessionController) OriginalImage(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	file, err := workflow.OriginalImage()
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": studio.UserMessage(err)})
	}
	return sendImage(c, file)
}
