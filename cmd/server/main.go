package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/chopchop_pos/internal/config"
	"github.com/Skotchmaster/chopchop_pos/internal/db"
	"github.com/Skotchmaster/chopchop_pos/internal/httpserver"
	"github.com/Skotchmaster/chopchop_pos/internal/logging"
	"github.com/Skotchmaster/chopchop_pos/internal/middleware/auth"
	"github.com/Skotchmaster/chopchop_pos/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/chopchop_pos/internal/middleware/logging"
	"github.com/Skotchmaster/chopchop_pos/internal/middleware/ratelimit"
	"github.com/Skotchmaster/chopchop_pos/internal/mykafka"
	"github.com/Skotchmaster/chopchop_pos/internal/qrpay"
	"github.com/Skotchmaster/chopchop_pos/internal/realtime"
	"github.com/Skotchmaster/chopchop_pos/internal/repo"
	"github.com/Skotchmaster/chopchop_pos/internal/search"
	"github.com/Skotchmaster/chopchop_pos/internal/service"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.QRSigningSecret, "QR_SIGNING_SECRET")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db_open_error", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gdb); err != nil {
		logger.Error("db_migrate_error", "error", err)
		os.Exit(1)
	}

	r := &repo.GormRepo{DB: gdb}
	orders := &service.OrderService{Repo: r}
	catalog := &service.CatalogService{Repo: r}
	cashiers := &service.CashierService{Repo: r}
	authSvc := &service.AuthService{Repo: r, SessionTTL: cfg.SessionTTL}
	invoices := &service.InvoiceService{Repo: r}
	reports := &service.ReportService{Repo: r, Orders: orders}
	payments := &service.PaymentService{Orders: orders, QR: qrpay.NewSigner(qrpay.Config{
		Secret:   cfg.QRSigningSecret,
		Merchant: cfg.QRMerchantName,
		Currency: cfg.QRCurrency,
		TTL:      cfg.QRTTL,
	})}

	if cfg.BootstrapAdminUsername != "" && cfg.BootstrapAdminPassword != "" {
		created, err := cashiers.EnsureAdmin(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword)
		if err != nil {
			logger.Error("bootstrap_admin_error", "error", err)
			os.Exit(1)
		}
		if created {
			logger.Info("bootstrap_admin_created", "username", cfg.BootstrapAdminUsername)
		}
	}

	if cfg.ESURL != "" {
		if err := wireSearch(ctx, cfg, r, catalog); err != nil {
			logger.Warn("search_disabled", "error", err)
		}
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis_unavailable", "addr", cfg.RedisAddr, "error", err)
		}
		cancel()
	}
	hub := realtime.NewHub(rdb)
	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("realtime_hub_error", "error", err)
		}
	}()

	prod := mykafka.NewProducer(cfg.KafkaBrokers)
	if !prod.Enabled() {
		logger.Info("kafka_disabled")
	}

	go authSvc.RunSessionCleanup(ctx, cfg.SessionCleanupInterval)

	notify := &httpserver.Notifier{Events: prod, Hub: hub, Reports: reports}
	session := auth.NewSessionAuth(authSvc, cfg.SessionCookieSecure)

	deps := httpserver.Deps{
		DB:       gdb,
		Auth:     &httpserver.AuthHTTP{Svc: authSvc, SecureCookie: cfg.SessionCookieSecure},
		Catalog:  &httpserver.CatalogHTTP{Svc: catalog, Notify: notify},
		Orders:   &httpserver.OrderHTTP{Svc: orders, Payments: payments, Notify: notify},
		Payments: &httpserver.PaymentHTTP{Svc: payments, Invoices: invoices, Notify: notify},
		Invoices: &httpserver.InvoiceHTTP{Svc: invoices},
		Reports:  &httpserver.ReportHTTP{Svc: reports},
		Admin:    &httpserver.AdminHTTP{Cashiers: cashiers, Catalog: catalog},
		Hub:      hub,
		Session:  session,
	}
	if deps.LoginLimiter, err = ratelimit.New(cfg.LoginRateLimit); err != nil {
		logger.Error("rate_limit_config_error", "key", "LOGIN_RATE_LIMIT", "error", err)
		os.Exit(1)
	}
	if deps.PublicLimiter, err = ratelimit.New(cfg.PublicRateLimit); err != nil {
		logger.Error("rate_limit_config_error", "key", "PUBLIC_RATE_LIMIT", "error", err)
		os.Exit(1)
	}
	if cfg.CSRFEnabled {
		deps.CSRF = csrf.Middleware(csrf.Config{
			Secure:  cfg.SessionCookieSecure,
			Skipper: auth.HeaderAuthenticated,
		})
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpserver.ErrorHandler
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.Secure(), loggingmw.RequestLogger(logger))
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowCredentials: true,
			AllowHeaders: []string{
				echo.HeaderContentType, echo.HeaderAuthorization,
				auth.SessionHeader, "X-CSRF-Token",
			},
		}))
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("http_server_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	if err := prod.Close(); err != nil {
		logger.Error("kafka_close_error", "error", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis_close_error", "error", err)
		}
	}
	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db_close_error", "error", err)
		}
	}

	logger.Info("shutdown_complete")
}

// wireSearch attaches the Elasticsearch menu index and rebuilds it from the
// database. On failure the catalog keeps using database search.
func wireSearch(ctx context.Context, cfg config.Config, r *repo.GormRepo, catalog *service.CatalogService) error {
	es, err := search.NewClient(ctx, search.ClientConfig{
		URL:      cfg.ESURL,
		Username: cfg.ESUser,
		Password: cfg.ESPassword,
	})
	if err != nil {
		return err
	}

	idx := &search.MenuIndex{ES: es, Index: cfg.ESMenuIndex}
	if err := idx.EnsureIndex(ctx); err != nil {
		return err
	}
	menus, err := r.ListMenus(ctx, repo.MenuFilter{})
	if err != nil {
		return fmt.Errorf("load menus: %w", err)
	}
	if err := idx.Reindex(ctx, menus); err != nil {
		return err
	}

	catalog.Search = idx
	slog.Info("menu_index_ready", "index", cfg.ESMenuIndex, "menus", len(menus))
	return nil
}
