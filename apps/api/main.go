package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	echoapi "github.com/trezcool/kampus/apps/api/echo"
	"github.com/trezcool/kampus/apps/shared"
	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/prefs"
	"github.com/trezcool/kampus/services/email"
	"github.com/trezcool/kampus/services/jobs"
	"github.com/trezcool/kampus/services/logger"
	"github.com/trezcool/kampus/services/realtime"
	"github.com/trezcool/kampus/storage/cache"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	ctx := context.Background()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	storage, err := shared.OpenStorage(ctx, conf, true)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = storage.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	prefsStore, closePrefs := cache.NewPrefsStore(ctx, conf, dbLogger)
	defer func() {
		if err = closePrefs(); err != nil {
			dbLogger.Error("Failed to close preferences store", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := shared.NewValidator()

	if err = core.ParseEmailTemplates(logger); err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(log.New(os.Stdout, "MAIL : ", log.LstdFlags), conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger, conf)
	}

	hub := realtime.NewHub(logger)
	go hub.Run()
	defer hub.Close()

	svcs := shared.NewServices(storage, mailSvc, hub, logger, validate, conf)
	defer svcs.Dating.Close()

	scheduler, err := jobs.NewScheduler(conf, logger, svcs.Attendance)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up jobs: %v", err), err)
	}
	scheduler.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		if err = scheduler.Stop(stopCtx); err != nil {
			logger.Error(fmt.Sprintf("could not stop jobs: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("database").Set(conf.Database.Engine)
	expvar.Publish("ws_connections", expvar.Func(func() interface{} { return hub.Connections() }))
	expvar.Publish("pending_replies", expvar.Func(func() interface{} { return svcs.Dating.PendingReplies() }))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			Validate:      validate,
			Translator:    translator,
			Mailer:        mailSvc,
			UserSvc:       svcs.Users,
			CourseSvc:     svcs.Courses,
			GradeSvc:      svcs.Grades,
			AttendanceSvc: svcs.Attendance,
			DatingSvc:     svcs.Dating,
			ExpenseSvc:    svcs.Expenses,
			PrefsSvc:      prefs.NewService(prefsStore, logger, validate),
			Hub:           hub,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
