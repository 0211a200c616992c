package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nextier/graph-etl/internal/db"
	"github.com/nextier/graph-etl/internal/server/middleware"
)

func GetETLJobHandler(c echo.Context) error {
	jobID := c.Param("id")
	app := c.(*middleware.AppContext).App

	job, err := app.ETL.GetETLStatus(c.Request().Context(), jobID)
	if errors.Is(err, db.ErrJobNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Job not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, job)
}

func GetETLJobsHandler(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid limit"})
		}
		limit = parsed
	}

	app := c.(*middleware.AppContext).App
	jobs, err := app.Jobs.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{"jobs": jobs})
}
