package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux

	dig_container "github.com/trezcool/cblms/apps/api/di/dig"
	echoapi "github.com/trezcool/cblms/apps/api/echo"
	"github.com/trezcool/cblms/core"
	logsvc "github.com/trezcool/cblms/services/logger"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		logger *logsvc.RollbarLogger,
		dbLoggerParam dig_container.DBLoggerParam,
		dbParam dig_container.DBParam,
		server *echoapi.Server,
	) {
		logger.Info(fmt.Sprintf("CBLMS %q starting", conf.Build),
			map[string]interface{}{"env": conf.Env, "database": conf.Database.Engine})
		defer logger.Sync()

		core.ParseEmailTemplates(logger)

		if db := dbParam.DB; db != nil {
			defer func() {
				if err := db.Close(); err != nil {
					dbLoggerParam.Logger.Error("failed to close database", err)
				}
			}()
		}
		defer logger.Info("CBLMS stopped")

		startDebugServer(conf, logger)

		go server.Start()
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address()))

		waitForShutdown(conf, logger, server)
	}))
}

// startDebugServer serves /debug/pprof and /debug/vars on DebugHost, away from the public API.
func startDebugServer(conf *core.Config, logger core.Logger) {
	rateLimitStore := "memory"
	switch {
	case conf.RateLimit.Disabled:
		rateLimitStore = "disabled"
	case conf.Redis.Addr != "":
		rateLimitStore = "redis"
	}
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("database").Set(conf.Database.Engine)
	expvar.NewString("rateLimitStore").Set(rateLimitStore)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()
}

// waitForShutdown blocks until the server fails or a stop signal arrives,
// then lets in-flight requests finish within ShutdownTimeout.
func waitForShutdown(conf *core.Config, logger core.Logger, server *echoapi.Server) {
	select {
	case err := <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: shutting down", sig))

		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("graceful shutdown failed: %v", err), err)
			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("forced close failed: %v", err), err)
			}
		}
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
