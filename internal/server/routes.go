package server

import (
	"github.com/labstack/echo/v4"

	"github.com/nextier/graph-etl/internal/server/middleware"
	"github.com/nextier/graph-etl/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// ETL job routes
	apiRoutes.POST("/etl/jobs", routes.CreateETLJobHandler, middleware.RequireRole("admin"))
	apiRoutes.GET("/etl/jobs", routes.GetETLJobsHandler)
	apiRoutes.GET("/etl/jobs/:id", routes.GetETLJobHandler)

	// Graph routes
	apiRoutes.GET("/graph/stats", routes.GetGraphStatsHandler)
	apiRoutes.GET("/graph/nodes/:type", routes.GetNodeByKeyHandler)
	apiRoutes.GET("/graph/nodes/:type/:id", routes.GetNodeHandler)
	apiRoutes.GET("/graph/nodes/:type/:id/neighbors", routes.GetNodeNeighborsHandler)
}
