package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/cdpforge/cdpd/internal/cdp"
	"github.com/cdpforge/cdpd/internal/config"
	"github.com/cdpforge/cdpd/internal/events"
	"github.com/cdpforge/cdpd/internal/injector"
	"github.com/cdpforge/cdpd/internal/rpcserver"
	"github.com/cdpforge/cdpd/internal/session"
	"github.com/cdpforge/cdpd/internal/stealth"
	"github.com/cdpforge/cdpd/pkg/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the cdpd gRPC daemon",
	RunE:  runServe,
}

const shutdownTimeout = 15 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	setupLogging(cfg.LogLevel, cfg.LogFormat)
	cfg.Validate()
	printBanner()

	factory := func(opts session.BrowserOptions) (*cdp.Browser, error) {
		endpoint := opts.CdpEndpoint
		if endpoint == "" {
			endpoint = cfg.CdpEndpoint
		}
		return cdp.NewBrowser(endpoint), nil
	}
	sessions := session.NewManager(factory, cfg.MaxBrowsers)
	dispatcher := events.NewDispatcher(0)

	var stealthEngine *stealth.Engine
	if cfg.StealthEnabled {
		presets, err := stealth.LoadPresetStore(cfg.StealthPresetFile)
		if err != nil {
			return fmt.Errorf("cdpd: load stealth preset file %s: %w", cfg.StealthPresetFile, err)
		}
		defer presets.Close()
		stealth.UsePresets(presets)
		stealthEngine = stealth.NewEngine(injector.New())
	}

	stopHealthCheck := sessions.StartHealthCheck(context.Background(), cfg.HealthCheckInterval, cfg.HealthCheckMaxAge)
	defer stopHealthCheck()

	svc := rpcserver.NewService(sessions, dispatcher, stealthEngine)

	rateLimitRPS := 0
	if cfg.RateLimitEnabled {
		rateLimitRPS = cfg.RateLimitRPS
	}
	server := grpc.NewServer(grpc.UnaryInterceptor(rpcserver.Chain(rateLimitRPS)))
	rpcserver.Register(server, svc)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("cdpd: listen on %s: %w", addr, err)
	}

	go func() {
		log.Info().
			Str("address", addr).
			Int("max_browsers", cfg.MaxBrowsers).
			Bool("stealth_enabled", cfg.StealthEnabled).
			Bool("rate_limit_enabled", cfg.RateLimitEnabled).
			Msg("cdpd is ready to accept requests")
		if err := server.Serve(listener); err != nil {
			log.Error().Err(err).Msg("grpc server stopped serving")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	signal.Stop(quit)

	log.Info().Msg("shutting down...")

	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		log.Warn().Msg("graceful stop timed out, forcing shutdown")
		server.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	sessions.Close(shutdownCtx)

	log.Info().Msg("shutdown complete")
	return nil
}

func setupLogging(level, format string) {
	if format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	switch level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func printBanner() {
	banner := `
  ____    ____    ____         _
 / ___|  |  _ \  |  _ \     __| |
| |      | | | | | |_) |   / _' |
| |___   | |_| | |  __/   | (_| |
 \____|  |____/  |_|       \__,_|
                                  daemon
`
	fmt.Println(banner)
	log.Info().
		Str("version", version.Full()).
		Str("go_version", version.GoVersion()).
		Msg("starting cdpd")
}
