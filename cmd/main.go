package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/MENO-App/BE-MENO/config"
	"github.com/MENO-App/BE-MENO/routes"
	"github.com/MENO-App/BE-MENO/services"
	"github.com/MENO-App/BE-MENO/utils"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("loading configuration")
	}
	log := cfg.NewLogger()
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.OpenDB(cfg)
	if err != nil {
		log.WithError(err).Fatal("opening database")
	}

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)
	opts := routes.Options{
		Tokens:          tokens,
		Log:             log,
		DefaultSchoolID: cfg.DefaultSchoolID,
		AuthRateLimit:   cfg.AuthRateLimit,
		AuthRateBurst:   cfg.AuthRateBurst,
	}
	if cfg.AWSEnabled() {
		if err := wireAWS(ctx, cfg, log, &opts); err != nil {
			log.WithError(err).Fatal("configuring AWS clients")
		}
	}

	boot := services.Bootstrap{
		DB:              db,
		Log:             log,
		Auth:            services.NewAuthService(db, log, tokens, opts.Mailer),
		DefaultSchoolID: cfg.DefaultSchoolID,
		AdminEmail:      cfg.AdminEmail,
		AdminPassword:   cfg.AdminPassword,
	}
	if err := boot.Run(ctx); err != nil {
		log.WithError(err).Fatal("seeding database")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.SetupRouter(db, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("addr", srv.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("serving http")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// wireAWS builds the SNS, S3 and SES sinks that are configured.
func wireAWS(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, opts *routes.Options) error {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return err
	}
	if cfg.MenuTopicARN != "" {
		opts.Topic = services.NewSNSPublisher(sns.NewFromConfig(awsCfg), cfg.MenuTopicARN)
		log.WithField("topic", cfg.MenuTopicARN).Info("menu publications go to SNS")
	}
	if cfg.MenuArchiveBucket != "" {
		opts.Snapshots = utils.NewS3SnapshotStore(s3.NewFromConfig(awsCfg), cfg.MenuArchiveBucket)
		log.WithField("bucket", cfg.MenuArchiveBucket).Info("published menus archived to S3")
	}
	if cfg.SESEmail != "" {
		opts.Mailer = utils.NewSESMailer(ses.NewFromConfig(awsCfg), cfg.SESEmail)
		log.WithField("source", cfg.SESEmail).Info("welcome mail via SES")
	}
	log.WithField("region", awsCfg.Region).Debug("aws configured")
	return nil
}
