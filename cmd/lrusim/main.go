package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"lrusim/internal/config"
	"lrusim/internal/logger"
	"lrusim/internal/server"
	"lrusim/internal/session"
)

const usage = `usage: lrusim <command> [flags]

commands:
  serve   run the HTTP/WebSocket simulator
  demo    replay the capacity-2 eviction walkthrough and exit
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return errors.New("missing command")
	}

	switch args[0] {
	case "serve":
		return serve(args[1:])
	case "demo":
		return demo(args[1:], stdout)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "path to YAML config (defaults when empty)")
		addr       = fs.String("addr", "", "listen address, overrides server.addr")
		logLevel   = fs.String("log-level", "", "debug, info, warn or error; overrides log.level")
		logFormat  = fs.String("log-format", "", "text or json; overrides log.format")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	slog.SetDefault(log)

	// Signal-aware context is the root of ownership for long-lived work.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := session.NewManager(session.Options{
		MaxSessions:  cfg.Session.MaxSessions,
		IdleTimeout:  cfg.Session.IdleTimeout,
		ReapInterval: cfg.Session.ReapInterval,
	}, log)
	defer func() {
		if err := manager.Close(); err != nil {
			log.Error("session manager close", "error", err)
		}
	}()

	hub := server.NewHub(manager, log)
	handler := server.NewHandler(manager, hub, cfg.Cache.DefaultCapacity, log)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("starting server",
			"addr", cfg.Server.Addr,
			"default_capacity", cfg.Cache.DefaultCapacity)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("force close failed", "error", closeErr)
			}
		}
		// Hijacked WebSocket connections are not tracked by Shutdown.
		hub.Close()
	}

	log.Info("server stopped")
	return nil
}
