package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	echoapi "github.com/trezcool/campus/apps/api/echo"
	"github.com/trezcool/campus/apps/stack"
	"github.com/trezcool/campus/core"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	deps, err := stack.New(context.Background(), conf, std)
	if err != nil {
		std.Fatalf("setting up dependencies: %v", err)
	}
	logger := deps.Logger
	defer func() {
		if err = deps.Close(); err != nil {
			logger.Error("closing dependencies", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	apiDeps := &echoapi.Deps{
		Conf:      conf,
		Logger:    logger,
		Chatbot:   deps.Chatbot,
		Notifier:  deps.Notifier,
		Directory: deps.Directory,
		Limiter:   deps.Limiter,
	}
	if deps.DB != nil {
		apiDeps.Ping = deps.DB.PingContext
	}
	server := echoapi.NewServer(conf.Server.Address, shutdown, apiDeps)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		if err != nil {
			logger.Error(fmt.Sprintf("server error: %v", err), err)
		}

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}
