// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"pixelverk/internal/cart"
	"pixelverk/internal/config"
	"pixelverk/internal/email"
	"pixelverk/internal/logger"
	"pixelverk/internal/middleware"
	"pixelverk/internal/server"
	"pixelverk/internal/storage"
	"pixelverk/internal/tracing"
)

type App struct {
	addr          string
	serviceName   string
	mux           *http.ServeMux
	connections   sync.WaitGroup
	totalRequests int64
}

func main() {
	// Step 1: Setup configuration first
	config.LoadEnv()

	// Step 2: Setup logging
	if err := logger.SetupLogger(config.LoggerConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()
	config.LogCurrentEnvironment()

	// Step 3: Tracing
	tracingConfig := config.TracingConfig()
	shutdownTracing, err := tracing.Setup(tracingConfig)
	if err != nil {
		logger.LogFatal("Failed to set up tracing: %v", err)
	}

	// Step 4: Open stores
	ctx := context.Background()
	products, err := storage.New(ctx, config.StorageConfig())
	if err != nil {
		logger.LogFatal("Failed to open product storage: %v", err)
	}
	defer products.Close()

	carts, err := cart.NewStore(ctx, config.CartConfig())
	if err != nil {
		logger.LogFatal("Failed to open cart store: %v", err)
	}
	defer carts.Close()

	notifier, err := email.NewNotifier(config.EmailConfig(), nil)
	if err != nil {
		logger.LogFatal("Failed to set up order emails: %v", err)
	}

	// Step 5: Setup app
	app := &App{
		addr:        config.ServerAddress(),
		serviceName: tracingConfig.ServiceName,
		mux: server.Routes(server.Dependencies{
			Products:      products,
			Carts:         carts,
			AdminPassword: config.AdminPassword(),
			Notifier:      notifier,
		}),
	}

	// Step 6: Run server
	app.Run()

	if err := shutdownTracing(context.Background()); err != nil {
		logger.LogError("Tracing shutdown error: %v", err)
	}
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM
func (a *App) Run() {
	srv := &http.Server{
		Addr:         a.addr,
		Handler:      a.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.LogInfo("Starting server on %s", a.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogFatal("Server failed: %v", err)
		}
	}()

	<-stop
	logger.LogInfo("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.LogError("Server shutdown error: %v", err)
	}

	logger.LogInfo("Waiting for active connections to finish...")
	a.connections.Wait()
	logger.LogInfo("All connections closed. Total requests handled: %d", atomic.LoadInt64(&a.totalRequests))
	logger.LogInfo("Server shut down gracefully")
}

// Handler assembles all middleware around the main mux
func (a *App) Handler() http.Handler {
	var handler http.Handler = a.mux

	handler = middleware.Chain(handler)
	handler = a.trackConnections(handler)
	handler = tracing.Middleware(handler, a.serviceName)
	handler = withTimeout(handler, 25*time.Second)

	return handler
}

// Middleware: timeout handler
func withTimeout(h http.Handler, timeout time.Duration) http.Handler {
	return http.TimeoutHandler(h, timeout, "Request timed out")
}

// Middleware: track active connections and total requests
func (a *App) trackConnections(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.connections.Add(1)
		atomic.AddInt64(&a.totalRequests, 1)
		defer a.connections.Done()

		h.ServeHTTP(w, r)
	})
}
