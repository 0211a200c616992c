package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/labstack/echo/v4"

	"github.com/nextier/graph-etl/internal/db"
	"github.com/nextier/graph-etl/pkg/etl"
	"github.com/nextier/graph-etl/pkg/graph"
)

type AppUser struct {
	UserID string
	Role   string
}

type App struct {
	Key          *keyfunc.Keyfunc
	Graph        *graph.GraphClient
	ETL          *etl.Client
	Jobs         *db.JobStore
	MasterAPIKey string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
