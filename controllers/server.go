package controllers

import (
	"context"
	"net/http"

	"lookstudioapi/config"
	"lookstudioapi/models"
	"lookstudioapi/services"
	"lookstudioapi/studio"

	"github.com/go-playground/validator"
	"github.com/hibiken/asynq"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// TaskEnqueuer is the part of *asynq.Client the API uses.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func SetupServer(
	cfg *config.Config,
	registry *studio.Registry,
	store services.StudioStore,
	awsService services.AWSServiceProvider,
	urlCache services.URLCacheServiceProvider,
	asynqClient TaskEnqueuer,
) *echo.Echo {
	e := echo.New()
	v := validator.New()
	v.RegisterValidation("category", models.ValidateCategory)
	v.RegisterValidation("source_mode", models.ValidateSourceMode)
	e.Validator = &CustomValidator{validator: v}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__registry", registry)
			c.Set("__store", store)
			c.Set("__asynqclient", asynqClient)
			return next(c)
		}
	})

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.BodyLimit("25M"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "sessions": registry.Count()})
	})

	sessionController := SessionController{JWTSecret: cfg.JWTSecret, TokenTTL: cfg.SessionTTL}
	e.POST("/studio/sessions", sessionController.CreateSession)

	studioGroup := e.Group("/studio", echojwt.JWT([]byte(cfg.JWTSecret)), SessionMiddleware)
	sessionController.SessionRoutes(studioGroup)

	outfitController := OutfitController{}
	outfitController.OutfitRoutes(studioGroup.Group("/outfit"))

	variationsController := VariationsController{}
	variationsController.VariationRoutes(studioGroup)

	exportController := ExportController{
		AWSService:      awsService,
		URLCache:        urlCache,
		BucketName:      cfg.R2BucketName,
		DownloadPrefix:  cfg.DownloadPrefix,
		ExportRetention: cfg.ExportRetention,
	}
	exportController.ExportRoutes(studioGroup)

	return e
}
