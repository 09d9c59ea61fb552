package api

import (
	"github.com/datallboy/gofetch/internal/api/controllers"
	"github.com/datallboy/gofetch/internal/app"
	"github.com/datallboy/gofetch/internal/engine"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
)

func RegisterRoutes(e *echo.Echo, app *app.Context, mgr *engine.JobManager) {

	// Middleware: Request Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			app.Logger.Info("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	jobsCtrl := &controllers.JobsController{App: app, Manager: mgr}

	// Fetch job submission and status
	e.POST("/api/jobs", jobsCtrl.Submit)
	e.GET("/api/jobs", jobsCtrl.List)
	e.GET("/api/jobs/:id", jobsCtrl.Get)

	// Pool state and transfer audit trail
	e.GET("/api/status", jobsCtrl.Status)
	e.GET("/api/history", jobsCtrl.History)
}
