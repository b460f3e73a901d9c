package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/golang/glog"

	httpapi "github.com/i474232898/sunshine-wear/internal/api/http"
	"github.com/i474232898/sunshine-wear/internal/companion"
	"github.com/i474232898/sunshine-wear/internal/config"
	"github.com/i474232898/sunshine-wear/internal/scheduler"
	"github.com/i474232898/sunshine-wear/internal/store"
	"github.com/i474232898/sunshine-wear/internal/transport"
	"github.com/i474232898/sunshine-wear/internal/transport/wsnet"
	"github.com/i474232898/sunshine-wear/internal/weather"
	"github.com/i474232898/sunshine-wear/internal/weather/providers"
)

const CompanionVersion = "0.1.0"

const usage = `Sunshine companion: keeps today's weather and serves it to the paired watch.

Configuration is read from the environment and an optional .env file.

Usage:
    companion [--port=<port>] [--wear_addr=<addr>] [--v=<level>] [--logtostderr]
    companion -h | --help
    companion --version

Options:
    -h --help            Show this screen.
    --version            Show version.
    --port=<port>        HTTP API port, overrides PORT.
    --wear_addr=<addr>   Listen address for the watch link, overrides WEAR_LISTEN_ADDR.
    --v=<level>          glog verbosity [default: 0].
    --logtostderr        Log to stderr instead of files.`

// connectionLog reports the companion transport's connection state.
type connectionLog struct{}

func (connectionLog) OnConnected() {
	glog.Infof("companion: accepting wearables")
}

func (connectionLog) OnConnectionSuspended(cause transport.SuspendCause) {
	glog.Warningf("companion: transport suspended: %s", cause)
}

func (connectionLog) OnConnectionFailed(err error) {
	glog.Errorf("companion: transport failed: %v", err)
}

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], CompanionVersion)
	if err != nil {
		panic(err)
	}
	setupLogging(opts)
	defer glog.Flush()

	cfg, err := config.LoadCompanion()
	if err != nil {
		glog.Exitf("failed to load config: %v", err)
	}
	if port, _ := opts.String("--port"); port != "" {
		cfg.Port = port
	}
	if addr, _ := opts.String("--wear_addr"); addr != "" {
		cfg.WearListenAddr = addr
	}

	st, closeStore, err := openStore(cfg)
	if err != nil {
		glog.Exitf("failed to open store: %v", err)
	}
	defer closeStore()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Providers with resilience (backoff + circuit breaker).
	var provs []weather.Provider
	if cfg.OpenWeatherAPIKey != "" {
		provs = append(provs, providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey))
	}
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey))
	}
	// Open-Meteo needs no key, but coordinates come from the Google geocoder.
	if cfg.GeocoderAPIKey != "" {
		provs = append(provs, providers.NewOpenMeteoProvider(httpClient, providers.NewGoogleGeocoder(cfg.GeocoderAPIKey)))
	}
	if len(provs) == 0 {
		glog.Warningf("companion: no weather providers configured; only stored data will be served")
	}

	service := weather.NewService(st, provs)

	// Link to the watch.
	self := transport.Node{ID: transport.NodeID(cfg.NodeID), DisplayName: cfg.NodeName, Nearby: true}
	wear := wsnet.NewServer(self, []byte(cfg.PairingSecret), nil)
	defer wear.Close()
	wear.SetConnectionCallbacks(connectionLog{})

	handler := companion.NewHandler(wear, st, weather.Formatter{}, companion.Preferences{
		Location: cfg.Location,
		Units:    cfg.Units,
	})
	wear.AddMessageListener(handler)
	wear.Connect()

	mux := http.NewServeMux()
	mux.Handle("/wear", wear)
	wearServer := &http.Server{
		Addr:              cfg.WearListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := wearServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			glog.Errorf("wear listener stopped: %v", err)
		}
	}()

	// Scheduler that periodically fetches, stores and pushes.
	sched := scheduler.New(cfg.Location, cfg.FetchInterval, service, handler)
	if err := sched.Start(); err != nil {
		glog.Exitf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "sunshine-companion",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "sunshine-companion",
			"connected": wear.IsConnected(),
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Forecasts: service,
		Pusher:    handler,
		Nodes:     wear,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			glog.Errorf("fiber server stopped: %v", err)
		}
	}()
	glog.Infof("companion: api on :%s, wear link on %s", cfg.Port, cfg.WearListenAddr)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		glog.Errorf("error during shutdown: %v", err)
	}
	if err := wearServer.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("error during wear listener shutdown: %v", err)
	}
}

func openStore(cfg *config.CompanionConfig) (weather.Store, func(), error) {
	switch cfg.StoreDriver {
	case "sqlite":
		s, err := store.NewSQLite(cfg.StorePath, cfg.StoreMaxDays)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				glog.Warningf("store: close: %v", err)
			}
		}, nil
	default:
		return store.NewMemoryStore(cfg.StoreMaxDays), func() {}, nil
	}
}

// setupLogging hands the docopt logging options to glog.
func setupLogging(opts docopt.Opts) {
	flag.CommandLine.Parse(nil)
	if v, _ := opts.String("--v"); v != "" {
		flag.Set("v", v)
	}
	if toStderr, _ := opts.Bool("--logtostderr"); toStderr {
		flag.Set("logtostderr", "true")
	}
}
