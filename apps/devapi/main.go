// Command devapi serves a seeded, in-memory copy of the school REST API for local development.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	echodev "github.com/trezcool/masomo-admin/apps/devapi/echo"
	"github.com/trezcool/masomo-admin/core"
	logsvc "github.com/trezcool/masomo-admin/services/logger"
	inmemdb "github.com/trezcool/masomo-admin/storage/inmem"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DEVAPI : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(false)

	db := inmemdb.Open()
	if err := inmemdb.Seed(db, conf.DevAPI.AdminPassword); err != nil {
		logger.Fatal(fmt.Sprintf("seeding database: %v", err), err)
	}

	server := echodev.NewServer(db, echodev.Options{Token: conf.API.Token})

	errs := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("serving the school API on %s", conf.DevAPI.Addr))
		if err := server.Start(conf.DevAPI.Addr); err != nil && errors.Cause(err) != http.ErrServerClosed {
			errs <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errs:
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}
