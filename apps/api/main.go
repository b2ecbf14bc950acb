package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"
	"os/signal"
	"syscall"

	echoapi "github.com/genzugar/backend/apps/api/echo"
	"github.com/genzugar/backend/apps/shared"
	"github.com/genzugar/backend/core"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	logger, err := shared.NewLogger(conf)
	if err != nil {
		return err
	}
	defer logger.Sync()

	repos, closeDB, err := shared.OpenRepositories(conf, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDB(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svcs, closeSvcs, err := shared.NewServices(ctx, conf, logger, repos)
	if err != nil {
		return err
	}
	defer closeSvcs()

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build), map[string]interface{}{"env": conf.Env})
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error("debug server closed", err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Address: conf.Server.Address,
		Logger:  logger,
		SignalShutdown: func() {
			select {
			case shutdown <- syscall.SIGTERM:
			default: // already shutting down
			}
		},
		UserSvc:     svcs.User,
		BMISvc:      svcs.BMI,
		EbookSvc:    svcs.Ebook,
		VideoSvc:    svcs.Video,
		GlossarySvc: svcs.Glossary,
		ModuleSvc:   svcs.Module,
		ProgressSvc: svcs.Progress,
		Catalog:     svcs.Catalog,
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API listening on " + conf.Server.Address)
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		sctx, scancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer scancel()

		// stop the catalog forwarder
		cancel()
		if err := server.Stop(sctx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}
	return nil
}
