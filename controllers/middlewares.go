package controllers

import (
	"log"
	"net/http"

	"lookstudioapi/studio"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

// SessionMiddleware resolves the studio session named by the token subject.
func SessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		registry, ok := c.Get("__registry").(*studio.Registry)
		if !ok {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Studio is not available"})
		}
		tokenRaw := c.Get("user")
		if tokenRaw == nil {
			return echo.ErrUnauthorized
		}
		token := tokenRaw.(*jwt.Token)
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return echo.ErrUnauthorized
		}
		sessionID, _ := claims["sub"].(string)
		if sessionID == "" {
			log.Println("Error while getting the token information!")
			return echo.ErrUnauthorized
		}

		workflow, err := registry.Get(sessionID)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Your studio session has expired, please upload the photo again"})
		}
		c.Set("currentSession", workflow)
		return next(c)
	}
}

func currentSession(c echo.Context) (*studio.Workflow, bool) {
	workflow, ok := c.Get("currentSession").(*studio.Workflow)
	return workflow, ok
}
