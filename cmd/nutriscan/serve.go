package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nutriscan/nutriscan-be/app"
	"github.com/nutriscan/nutriscan-be/config"
	"github.com/nutriscan/nutriscan-be/controllers"
	"github.com/nutriscan/nutriscan-be/db/sqldb"
	"github.com/nutriscan/nutriscan-be/middleware"
	"github.com/nutriscan/nutriscan-be/realtime"
	"github.com/nutriscan/nutriscan-be/routes"
	"github.com/nutriscan/nutriscan-be/scheduler"
	"github.com/nutriscan/nutriscan-be/services"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.GinMode)

	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.Migrate(logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var firebaseApp *firebase.App
	if cfg.AuthProvider == config.AuthProviderFirebase || cfg.BlobProvider == config.BlobProviderGCS {
		if firebaseApp, err = newFirebaseApp(ctx, logger); err != nil {
			return err
		}
	}
	var awsCfg aws.Config
	if cfg.BlobProvider == config.BlobProviderS3 || cfg.PushEnabled {
		if awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion)); err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
	}

	identity, err := buildIdentity(ctx, firebaseApp, database)
	if err != nil {
		return err
	}
	blobs, err := buildBlobStore(ctx, firebaseApp, awsCfg)
	if err != nil {
		return err
	}

	// both stay nil interfaces when push is off
	var pusher app.Pusher
	var devices routes.DeviceRegistrar
	if cfg.PushEnabled {
		push := services.NewPushService(database, awsCfg, cfg.SNSFCMArn, cfg.SNSAPNSArn, logger)
		pusher = push
		devices = push
	}

	var lookup app.Lookup
	if cfg.ProductLookupURL != "" {
		lookup = services.NewProductLookup(cfg.ProductLookupURL, cfg.ProductLookupTimeout)
	}

	hub := realtime.NewHub(logger)
	defer hub.Close()

	catalog, err := controllers.NewProductCatalog(ctx, database, logger)
	if err != nil {
		return fmt.Errorf("an error occurred while initializing the product catalog: %w", err)
	}
	notifier := app.NewNotifier(database, hub, pusher, logger)

	jobs := scheduler.New(ctx, scheduler.Config{
		CatalogRefreshSpec:    cfg.CatalogRefreshSpec,
		NotificationPurgeSpec: cfg.NotificationPurgeSpec,
		NotificationRetention: cfg.NotificationRetention,
	}, catalog, notifier, logger)
	if err := jobs.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer jobs.Stop()

	r := gin.New()
	r.Use(middleware.Logger(logger))
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.FEOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	routes.Register(&r.RouterGroup, &routes.Deps{
		DB:        database,
		Identity:  identity,
		Profiles:  app.NewProfiles(database, identity, blobs, hub, logger),
		Community: app.NewCommunity(database, blobs, hub, notifier, cfg.FeedPageSize, logger),
		Products:  app.NewProducts(database, catalog, lookup, blobs, notifier, logger),
		Notifier:  notifier,
		Devices:   devices,
		Hub:       hub,
		Origins:   cfg.FEOrigins,
		Log:       logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// websockets are hijacked, Shutdown does not wait for them
		hub.Close()
		return server.Shutdown(shutdownCtx)
	})
	serveErr := g.Wait()
	// pushes started by the last requests
	notifier.Wait()
	return serveErr
}

func buildIdentity(ctx context.Context, firebaseApp *firebase.App, database *sqldb.SQLDB) (services.Identity, error) {
	switch cfg.AuthProvider {
	case config.AuthProviderFirebase:
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("error initializing auth client: %w", err)
		}
		return services.NewFirebaseIdentity(authClient), nil
	case config.AuthProviderLocal:
		return services.NewLocalIdentity(database, cfg.JWTSecret, cfg.JWTTTL), nil
	}
	return nil, fmt.Errorf("unknown auth provider %q", cfg.AuthProvider)
}

// buildBlobStore returns a nil BlobStore when uploads are disabled.
func buildBlobStore(ctx context.Context, firebaseApp *firebase.App, awsCfg aws.Config) (services.BlobStore, error) {
	switch cfg.BlobProvider {
	case config.BlobProviderGCS:
		bucket, err := services.NewStorageBucket(ctx, firebaseApp, cfg.BlobBucket, cfg.BlobPublicURL)
		if err != nil {
			return nil, fmt.Errorf("an error occurred while connecting to the uploads bucket: %w", err)
		}
		return bucket, nil
	case config.BlobProviderS3:
		return services.NewS3Bucket(awsCfg, cfg.BlobBucket, cfg.BlobPublicURL), nil
	}
	return nil, nil
}
