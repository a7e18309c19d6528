// Command admin browses the dashboard screens from a terminal.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/masomo-admin/apps/shared"
	"github.com/trezcool/masomo-admin/core"
	logsvc "github.com/trezcool/masomo-admin/services/logger"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// no mailer: the CLI only lists and deletes
	svcs, err := shared.NewServices(conf, nil, nil, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up services: %v", err), err)
	}

	cli := newCommandLine(svcs, logger)
	if err := cli.root().Execute(); err != nil {
		os.Exit(1)
	}
}
