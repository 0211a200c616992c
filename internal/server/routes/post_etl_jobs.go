package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nextier/graph-etl/internal/server/middleware"
	"github.com/nextier/graph-etl/pkg/etl"
)

func CreateETLJobHandler(c echo.Context) error {
	type request struct {
		BucketID string `json:"bucket_id" validate:"required"`
		Mode     string `json:"mode" validate:"omitempty,oneof=full incremental"`
	}

	req := new(request)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if req.Mode == "" {
		req.Mode = etl.ModeFull
	}

	app := c.(*middleware.AppContext).App
	jobID, err := app.ETL.QueueBucketForETL(c.Request().Context(), req.BucketID, req.Mode)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"job_id":    jobID,
		"bucket_id": req.BucketID,
		"mode":      req.Mode,
	})
}
