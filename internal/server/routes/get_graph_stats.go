package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nextier/graph-etl/internal/server/middleware"
)

func GetGraphStatsHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	stats, err := app.Graph.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, stats)
}
