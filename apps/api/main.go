package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/database"
)

func main() {
	conf, err := core.NewConfig()
	errAndDie(err)

	// set up logging
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lshortfile)
	var logger core.Logger
	if conf.Debug || conf.RollbarToken == "" {
		logger = logsvc.NewStdLogger(stdLogger)
	} else {
		logger = logsvc.NewRollbarLogger(stdLogger, conf)
	}

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrRepo := database.NewUserRepository(db)
	crsRepo := database.NewCourseRepository(db)
	enrRepo := database.NewEnrollmentRepository(db)
	subRepo := database.NewSubmissionRepository(db)

	usrSvc := user.NewService(usrRepo, mailSvc)
	crsSvc := course.NewService(crsRepo, usrSvc, enrRepo)
	enrSvc := enrollment.NewService(enrRepo, crsRepo, usrSvc)
	subSvc := submission.NewService(subRepo, crsRepo, enrRepo, usrSvc, mailSvc)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Address:       conf.Server.Address(),
			Logger:        logger,
			UserSvc:       usrSvc,
			CourseSvc:     crsSvc,
			EnrollmentSvc: enrSvc,
			SubmissionSvc: subSvc,
		},
	)
	go app.Start()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		logger.Error("shutting down", err)
	}
}

func errAndDie(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
