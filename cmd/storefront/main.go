package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/umistore/storefront/internal/auth"
	"github.com/umistore/storefront/internal/cart"
	"github.com/umistore/storefront/internal/catalog"
	"github.com/umistore/storefront/internal/checkout"
	"github.com/umistore/storefront/internal/config"
	"github.com/umistore/storefront/internal/fulfillment"
	"github.com/umistore/storefront/internal/messaging"
	"github.com/umistore/storefront/internal/orders"
	"github.com/umistore/storefront/internal/telemetry"
)

const (
	serviceName    = "storefront"
	serviceVersion = "0.1.0"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
	}

	db, err := telemetry.OpenDB("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var eventProducer, notifyProducer *messaging.Producer
	if len(cfg.KafkaBrokers) > 0 {
		eventProducer = messaging.NewProducer(cfg.KafkaBrokers, messaging.TopicOrderCreated)
		defer func() { _ = eventProducer.Close() }()
		notifyProducer = messaging.NewProducer(cfg.KafkaBrokers, messaging.TopicNotifications)
		defer func() { _ = notifyProducer.Close() }()
	}
	notifier := messaging.NewNotifier(notifyProducer, logger)

	gate := auth.ContextGate{}
	carts := cart.NewStore()
	catalogRepo := catalog.NewRepository(db)
	orderRepo := orders.NewOrderRepository(db)

	cartHandler := cart.NewHandler(carts, catalogRepo, logger)
	catalogHandler := catalog.NewHandler(catalogRepo, gate, logger)
	orderHandler := orders.NewHandler(orderRepo, gate, logger)

	var publisher checkout.EventPublisher
	if eventProducer != nil {
		publisher = eventProducer
	}
	checkoutService := checkout.NewService(catalogRepo, orderRepo, carts, gate, publisher, notifier, logger)
	checkoutHandler := checkout.NewHandler(checkoutService, logger)

	workflow := fulfillment.NewWorkflow(orderRepo, gate, notifier, logger)
	fulfillmentHandler := fulfillment.NewHandler(workflow, orderRepo, gate, logger)

	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(h))
	}

	route("GET /products", catalogHandler.HandleListProducts)
	route("GET /products/{id}", catalogHandler.HandleGetProduct)
	route("GET /categories", catalogHandler.HandleListCategories)

	route("GET /cart", cartHandler.HandleView)
	route("POST /cart/items", cartHandler.HandleAddItem)
	route("PATCH /cart/items/{productId}", cartHandler.HandleUpdateQuantity)
	route("DELETE /cart/items/{productId}", cartHandler.HandleRemoveItem)

	route("POST /checkout", checkoutHandler.HandleSubmit)
	route("GET /orders", orderHandler.HandleList)
	route("GET /orders/{id}", orderHandler.HandleGet)

	route("GET /admin/orders", fulfillmentHandler.HandleListOrders)
	route("GET /admin/orders/stats", fulfillmentHandler.HandleStats)
	route("PATCH /admin/orders/{id}/status", fulfillmentHandler.HandleTransition)
	route("PUT /admin/orders/{id}/status", fulfillmentHandler.HandleOverride)

	route("POST /admin/products", catalogHandler.HandleCreateProduct)
	route("PUT /admin/products/{id}", catalogHandler.HandleUpdateProduct)
	route("DELETE /admin/products/{id}", catalogHandler.HandleDeleteProduct)
	route("POST /admin/categories", catalogHandler.HandleCreateCategory)
	route("DELETE /admin/categories/{slug}", catalogHandler.HandleDeleteCategory)

	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(auth.Middleware(mux), serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting storefront service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
