package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"lookstudioapi/models"
	"lookstudioapi/services"
	"lookstudioapi/studio"
	"lookstudioapi/tasks"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type ExportController struct {
	AWSService      services.AWSServiceProvider
	URLCache        services.URLCacheServiceProvider
	BucketName      string
	DownloadPrefix  string
	ExportRetention time.Duration
}

func (controller *ExportController) ExportRoutes(g *echo.Group) {
	g.GET("/download", controller.Download)
	g.POST("/export", controller.Export)
	g.GET("/exports/:id", controller.GetExport)
}

// Download streams the current version as an attachment.
func (controller *ExportController) Download(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	file, err := workflow.Download(controller.DownloadPrefix)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": studio.UserMessage(err)})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.Name))
	return c.Blob(http.StatusOK, file.MIMEType, file.Data)
}

// Export uploads the current version to the bucket and returns a temporary
// read link. The object is removed by a delayed task after the retention.
func (controller *ExportController) Export(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	store, ok := c.Get("__store").(services.StudioStore)
	if !ok || store == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Export is not available right now"})
	}
	asynqClient, ok := c.Get("__asynqclient").(TaskEnqueuer)
	if !ok || asynqClient == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Service is not available, please try again a bit later"})
	}

	file, err := workflow.Download(controller.DownloadPrefix)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": studio.UserMessage(err)})
	}
	file, err = services.NormalizeEncoding(file)
	if err != nil {
		return c.JSON(http.StatusUnsupportedMediaType, map[string]string{"error": studio.UserMessage(err)})
	}

	ctx := c.Request().Context()
	objectKey := fmt.Sprintf("exports/%s/%s/%s", workflow.ID(), uuid.NewString(), file.Name)
	uploadURL, err := controller.AWSService.PresignLink(ctx, controller.BucketName, objectKey)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Session: %s] Unable to presign export upload: %w", workflow.ID(), err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error while exporting the image"})
	}
	if _, err := controller.AWSService.UploadToPresignedURL(ctx, uploadURL, file.Data); err != nil {
		sentry.CaptureException(fmt.Errorf("[Session: %s] Export upload failed: %w", workflow.ID(), err))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Error while exporting the image"})
	}

	export := models.ExportRecord{
		SessionID: workflow.ID(),
		ObjectKey: objectKey,
		FileName:  file.Name,
		MIMEType:  file.MIMEType,
		ExpiresAt: time.Now().Add(controller.ExportRetention),
	}
	if err := store.CreateExport(ctx, &export); err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error while exporting the image"})
	}

	task, err := tasks.NewExpireExportTask(export.ID)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error while exporting the image"})
	}
	info, err := asynqClient.EnqueueContext(ctx, task, asynq.ProcessIn(controller.ExportRetention), asynq.MaxRetry(5), asynq.Queue("maintenance"))
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Export: %v] Could not schedule expiry: %w", export.ID, err))
	} else {
		fmt.Println("[Queue] Export expiry task submitted, Export ID: ", export.ID, " Task ID: ", info.ID)
	}

	url, err := controller.URLCache.GetReadURL(ctx, objectKey)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Image was exported but the link could not be created"})
	}
	return c.JSON(http.StatusCreated, models.ExportOut{
		ID:        export.ID,
		FileName:  export.FileName,
		URL:       url,
		ExpiresAt: export.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (controller *ExportController) GetExport(c echo.Context) error {
	workflow, ok := currentSession(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	store, ok := c.Get("__store").(services.StudioStore)
	if !ok || store == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Export is not available right now"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "id must be a number"})
	}

	ctx := c.Request().Context()
	export, err := store.GetExport(ctx, uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && export.SessionID != workflow.ID()) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Export not found"})
	}
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get export"})
	}
	if export.RemovedAt != nil || time.Now().After(export.ExpiresAt) {
		return c.JSON(http.StatusGone, map[string]string{"error": "This export has expired"})
	}

	url, err := controller.URLCache.GetReadURL(ctx, export.ObjectKey)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create export link"})
	}
	return c.JSON(http.StatusOK, models.ExportOut{
		ID:        export.ID,
		FileName:  export.FileName,
		URL:       url,
		ExpiresAt: export.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
