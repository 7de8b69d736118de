package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcart "github.com/freshmart/orderflow/internal/application/cart"
	appcoupon "github.com/freshmart/orderflow/internal/application/coupon"
	appinventory "github.com/freshmart/orderflow/internal/application/inventory"
	apporder "github.com/freshmart/orderflow/internal/application/order"
	apppayment "github.com/freshmart/orderflow/internal/application/payment"
	appuser "github.com/freshmart/orderflow/internal/application/user"
	"github.com/freshmart/orderflow/internal/config"
	domcart "github.com/freshmart/orderflow/internal/domain/cart"
	domcoupon "github.com/freshmart/orderflow/internal/domain/coupon"
	dominv "github.com/freshmart/orderflow/internal/domain/inventory"
	domorder "github.com/freshmart/orderflow/internal/domain/order"
	"github.com/freshmart/orderflow/internal/domain/sequence"
	domuser "github.com/freshmart/orderflow/internal/domain/user"
	"github.com/freshmart/orderflow/internal/infrastructure/gateway"
	"github.com/freshmart/orderflow/internal/infrastructure/httpapi"
	"github.com/freshmart/orderflow/internal/infrastructure/memory"
	"github.com/freshmart/orderflow/internal/infrastructure/notify"
	"github.com/freshmart/orderflow/internal/infrastructure/observability/oteltrace"
	"github.com/freshmart/orderflow/internal/infrastructure/observability/prometrics"
	"github.com/freshmart/orderflow/internal/infrastructure/observability/telemetry"
	"github.com/freshmart/orderflow/internal/infrastructure/observability/zaplogger"
	"github.com/freshmart/orderflow/internal/infrastructure/outbox"
	"github.com/freshmart/orderflow/internal/infrastructure/postgres"
	"github.com/freshmart/orderflow/internal/infrastructure/servicearea"
	"github.com/freshmart/orderflow/internal/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type repositories struct {
	orders  domorder.Repository
	coupons domcoupon.Repository
	stock   dominv.Repository
	carts   domcart.Repository
	users   domuser.Repository
	seq     sequence.Generator
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := zaplogger.New(
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)
	if s, ok := logger.(interface{ Sync() error }); ok {
		defer func() { _ = s.Sync() }()
	}

	registry := prometrics.New(cfg.ServiceName, "")
	tel := telemetry.New(
		oteltrace.New(cfg.ServiceName),
		logger,
		map[string]observability.Counter{
			observability.MetricUsecaseRequests: registry.Counter(
				observability.MetricUsecaseRequests,
				"Total number of use case invocations.",
				"use_case", "outcome",
			),
			observability.MetricHTTPRequests: registry.Counter(
				observability.MetricHTTPRequests,
				"Total number of HTTP requests.",
				"method", "route", "status",
			),
			observability.MetricEventsDispatched: registry.Counter(
				observability.MetricEventsDispatched,
				"Domain events handed to subscribers.",
				"event", "outcome",
			),
			observability.MetricNotificationsDispatched: registry.Counter(
				observability.MetricNotificationsDispatched,
				"Notifications pushed through the dispatch port.",
				"kind", "outcome",
			),
		},
		map[string]observability.Histogram{
			observability.MetricUsecaseDuration: registry.Histogram(
				observability.MetricUsecaseDuration,
				"Duration of use case execution in seconds.",
				prometheus.DefBuckets,
				"use_case",
			),
			observability.MetricHTTPRequestDuration: registry.Histogram(
				observability.MetricHTTPRequestDuration,
				"Duration of HTTP requests in seconds.",
				prometheus.DefBuckets,
				"method", "route", "status",
			),
		},
	)

	repos, err := buildRepositories(cfg)
	if err != nil {
		logger.Error("storage_init_failed", observability.F("error", err.Error()))
		os.Exit(1)
	}

	bus := outbox.NewBus(tel)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	notifyWorker := notify.NewWorker(bus, notify.NewLogDispatcher(logger), tel)
	notifyWorker.Start()

	couponService := appcoupon.NewService(repos.coupons, repos.seq, tel)
	catalogService := appinventory.NewService(repos.stock, repos.seq, tel)
	cartService := appcart.NewService(repos.carts, repos.stock, tel)
	userService := appuser.NewService(repos.users, repos.seq, tel)

	assembler := apporder.NewAssembler(repos.stock, repos.seq, couponService, apporder.AssemblerConfig{
		ShippingFlatFee:       cfg.ShippingFlatFee,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		DeliverySLA:           cfg.DeliverySLA,
	})
	orderService := apporder.NewService(
		repos.orders, repos.coupons, repos.stock, repos.carts, repos.users,
		assembler,
		servicearea.NewStatic(cfg.ServiceablePrefixes),
		bus, tel,
	)
	paymentService := apppayment.NewService(
		repos.orders,
		gateway.NewSandbox(logger),
		bus, cfg.PaymentSecret, cfg.Currency, tel,
	)

	handler := httpapi.NewHandler(
		orderService, paymentService, couponService,
		catalogService, cartService, userService, tel,
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http_server_start", observability.F("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", observability.F("error", err.Error()))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", observability.F("error", err.Error()))
	} else {
		logger.Info("http_server_stopped")
	}
}

func buildRepositories(cfg *config.Config) (repositories, error) {
	if cfg.StoreBackend == "postgres" {
		db, err := postgres.Open(cfg.Database.URL, postgres.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return repositories{}, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return repositories{}, err
		}
		return repositories{
			orders:  postgres.NewOrderRepository(db),
			coupons: postgres.NewCouponRepository(db),
			stock:   postgres.NewInventoryRepository(db),
			carts:   postgres.NewCartRepository(db),
			users:   postgres.NewUserRepository(db),
			seq:     postgres.NewSequenceGenerator(db),
		}, nil
	}

	return repositories{
		orders:  memory.NewOrderRepository(),
		coupons: memory.NewCouponRepository(),
		stock:   memory.NewInventoryRepository(),
		carts:   memory.NewCartRepository(),
		users:   memory.NewUserRepository(),
		seq:     memory.NewSequenceGenerator(),
	}, nil
}
