package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"lookstudioapi/models"
	"lookstudioapi/services"
	"lookstudioapi/studio"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const maxUploadBytes = 20 << 20

// GenerateSessionToken signs a token whose subject is the session id.
func GenerateSessionToken(sessionID string, secret string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sessionID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	return token.SignedString([]byte(secret))
}

// readImageForm reads a multipart image field and sniffs its media type.
func readImageForm(c echo.Context, field string) (models.ImageFile, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return models.ImageFile{}, fmt.Errorf("%s file is required", field)
	}
	if header.Size > maxUploadBytes {
		return models.ImageFile{}, fmt.Errorf("%s is larger than %d MB", field, maxUploadBytes>>20)
	}
	file, err := header.Open()
	if err != nil {
		return models.ImageFile{}, err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return models.ImageFile{}, err
	}
	if len(data) == 0 {
		return models.ImageFile{}, fmt.Errorf("%s file is empty", field)
	}
	mimeType := services.DetectMediaType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return models.ImageFile{}, fmt.Errorf("%s must be an image, got %s", field, mimeType)
	}
	return models.ImageFile{Name: filepath.Base(header.Filename), MIMEType: mimeType, Data: data}, nil
}

// statusFor maps a workflow failure to an HTTP status.
func statusFor(err error) int {
	var (
		blocked *services.BlockedError
		stopped *services.GenerationStoppedError
		noImage *services.NoImageReturnedError
	)
	switch {
	case errors.Is(err, studio.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, studio.ErrItemNotFound):
		return http.StatusNotFound
	case errors.As(err, &blocked), errors.As(err, &stopped), errors.As(err, &noImage):
		return http.StatusUnprocessableEntity
	case studio.IsPrecondition(err):
		return http.StatusBadRequest
	}
	var conversion *services.ConversionError
	var encoding *services.EncodingError
	if errors.As(err, &conversion) || errors.As(err, &encoding) {
		return http.StatusUnsupportedMediaType
	}
	return http.StatusBadGateway
}

// respondState answers with the session snapshot, or with the error and the
// snapshot when the action failed.
func respondState(c echo.Context, workflow *studio.Workflow, err error) error {
	state := workflow.Snapshot()
	if err != nil {
		return c.JSON(statusFor(err), echo.Map{"error": studio.UserMessage(err), "state": state})
	}
	return c.JSON(http.StatusOK, state)
}

func sendImage(c echo.Context, file models.ImageFile) error {
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, file.MIMEType, file.Data)
}
