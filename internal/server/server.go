package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/nextier/graph-etl/internal/db"
	"github.com/nextier/graph-etl/internal/queue"
	mid "github.com/nextier/graph-etl/internal/server/middleware"
	"github.com/nextier/graph-etl/internal/storage"
	"github.com/nextier/graph-etl/internal/util"
	"github.com/nextier/graph-etl/pkg/etl"
	"github.com/nextier/graph-etl/pkg/graph"
	"github.com/nextier/graph-etl/pkg/logger"
	s3store "github.com/nextier/graph-etl/pkg/store/s3"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	jwksUrl := util.GetEnv("AUTH_URL") + "/jwks"
	k, err := keyfunc.NewDefault([]string{jwksUrl})
	if err != nil {
		logger.Fatal("Failed to load jwks keys", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	databaseURL := util.GetEnv("DATABASE_URL")
	if err := db.RunMigrations(util.GetEnvString("MIGRATIONS_PATH", "internal/db/migrations"), databaseURL); err != nil {
		logger.Fatal("Failed to run migrations", "err", err)
	}

	conn, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	if err := queue.SetupQueues(ch, []string{queue.ETLQueue}); err != nil {
		logger.Fatal("Failed to setup queues", "err", err)
	}

	s3Client := storage.NewS3Client(ctx)
	objectStore := s3store.NewS3Store(s3Client, storage.Bucket())

	graphClient, err := graph.NewGraphClient(graph.NewGraphClientParams{Store: objectStore})
	if err != nil {
		logger.Fatal("Failed to create graph client", "err", err)
	}

	jobStore := db.NewJobStore(conn)
	etlClient, err := etl.NewClient(etl.NewClientParams{
		Graph:       graphClient,
		Source:      etl.NewStoreBucketSource(objectStore),
		Store:       objectStore,
		Jobs:        jobStore,
		Queue:       queue.NewETLPublisher(ch),
		Parallelism: int(util.GetEnvNumeric("ETL_PARALLELISM", 8)),
	})
	if err != nil {
		logger.Fatal("Failed to create etl client", "err", err)
	}

	app := &mid.App{
		Key:          &k,
		Graph:        graphClient,
		ETL:          etlClient,
		Jobs:         jobStore,
		MasterAPIKey: util.GetEnv("MASTER_API_KEY"),
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("Request",
				"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("32M"))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
