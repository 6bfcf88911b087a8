package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/kampus/apps/shared"
	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/services/email"
	"github.com/trezcool/kampus/services/logger"
)

func main() {
	conf := core.NewConfig()
	ctx := context.Background()

	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug)

	// set up DB
	storage, err := shared.OpenStorage(ctx, conf, false)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}

	validate, translator := shared.NewValidator()
	if err = core.ParseEmailTemplates(logger); err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(std, conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger, conf)
	}
	svcs := shared.NewServices(storage, mailSvc, nil, logger, validate, conf)

	// start CLI
	cli := commandLine{
		storage:    storage,
		svcs:       svcs,
		translator: translator,
		in:         os.Stdin,
		out:        os.Stdout,
	}
	err = cli.run(os.Args)
	svcs.Dating.Close()
	if cerr := storage.Close(); cerr != nil {
		logger.Error("closing database", cerr)
	}
	if err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", cli.describeError(err))
		}
		os.Exit(1)
	}
}
