package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Skotchmaster/storefront/internal/analytics"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/media"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/paystack"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/config"
	pkgdb "github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/middleware/auth"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg config.Config) error {
	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := pkgdb.Open(openCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer pkgdb.Close(db)

	if err := repo.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	r := repo.NewGormRepo(db)

	dispatcher := notify.NewDispatcher(cfg.Notify.Workers, cfg.Notify.Buffer, cfg.Notify.Timeout, logger)
	dispatcher.Start()

	publisher := events.New(cfg.KafkaBrokers, logger)
	defer publisher.Close()

	var index search.Index
	if cfg.ES.URL != "" {
		client, err := search.NewClient(ctx, cfg.ES)
		if err != nil {
			logger.Warn("search_disabled", "reason", "elasticsearch unreachable", "error", err)
		} else {
			index = search.NewES(client, cfg.ES.Index)
		}
	}

	var storage media.Storage
	if cfg.Minio.Endpoint != "" {
		s, err := media.NewMinioStorage(ctx, cfg.Minio)
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
		storage = s
	}
	images, err := media.NewImgproxy(cfg.ImgproxyURL, cfg.ImgproxyKey, cfg.ImgproxySalt)
	if err != nil {
		return err
	}

	var tracker notify.PurchaseTracker
	if ga4 := analytics.NewGA4(cfg.GA4MeasurementID, cfg.GA4APISecret); ga4.Enabled() {
		tracker = ga4
	}

	notifier := &notify.OrderNotifier{
		Dispatcher: dispatcher,
		Mailer:     notify.NewMailer(cfg.SMTP, logger),
		Events:     publisher,
		Analytics:  tracker,
		StoreName:  cfg.Store.Name,
	}

	numbers, err := service.NewOrderNumbers(cfg.NodeID)
	if err != nil {
		return fmt.Errorf("order numbers: %w", err)
	}
	payments := paystack.NewClient(cfg.Paystack)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Secure())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())
	e.Use(echomw.BodyLimit("12M"))

	httpserver.Register(e, &httpserver.Deps{
		Auth: &httpserver.AuthHTTP{Svc: &service.AuthService{
			Repo:          r,
			AccessSecret:  cfg.JWTAccessSecret,
			RefreshSecret: cfg.JWTRefreshSecret,
		}},
		Catalog: &httpserver.CatalogHTTP{Svc: &service.CatalogService{
			Repo:       r,
			Index:      index,
			Events:     publisher,
			Dispatcher: dispatcher,
			Storage:    storage,
			Images:     images,
		}},
		Checkout: &httpserver.CheckoutHTTP{Svc: &service.CheckoutService{
			Repo:        r,
			Payments:    payments,
			CallbackURL: cfg.Paystack.CallbackURL,
			Currency:    cfg.Store.Currency,
		}},
		Payment: &httpserver.PaymentHTTP{
			Svc: &service.IngestService{
				Repo:     r,
				Verifier: payments,
				Notifier: notifier,
				Numbers:  numbers,
				Currency: cfg.Store.Currency,
			},
			Store:         cfg.Store,
			WebhookSecret: cfg.Paystack.SecretKey,
		},
		Orders:          &httpserver.OrderHTTP{Svc: &service.OrderService{Repo: r, Notifier: notifier}},
		Authorizer:      auth.NewAuthorizer(cfg.JWTAccessSecret),
		Ready:           func(ctx context.Context) error { return pkgdb.Ping(ctx, db) },
		RateLimitRPS:    cfg.RateLimitRPS,
		InsecureCookies: !cfg.CookieSecure,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if derr := dispatcher.Shutdown(shutdownCtx); derr != nil {
			logger.Warn("dispatcher_drain_incomplete", "error", derr)
		}
		return err
	})

	err = g.Wait()
	logger.Info("stopped")
	return err
}
