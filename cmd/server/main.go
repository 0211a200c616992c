package main

import (
	"github.com/nextier/graph-etl/internal/server"
	"github.com/nextier/graph-etl/internal/util"
	"github.com/nextier/graph-etl/pkg/logger"
	"github.com/nextier/graph-etl/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
