// Package main provides the entry point for the gemchat proxy server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gemchat/gemchat/internal/config"
	"github.com/gemchat/gemchat/internal/gemini"
	"github.com/gemchat/gemchat/internal/logging"
	"github.com/gemchat/gemchat/internal/server"
)

var (
	port       = flag.Int("port", 0, "Server port (overrides config)")
	configPath = flag.String("config", "", "Path to server config file")
	version    = flag.Bool("version", false, "Print version and exit")
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("gemchat-server %s (%s)\n", Version, BuildTime)
		os.Exit(0)
	}

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Port = *port
	}

	logging.Init(logging.Config{Level: logging.ParseLevel(cfg.LogLevel)})
	logging.Info().Str("version", Version).Msg("starting gemchat server")

	client := gemini.NewClient(cfg.APIKey, cfg.UpstreamURL, cfg.ImageModel)

	serverConfig := server.DefaultConfig()
	serverConfig.Port = cfg.Port
	serverConfig.EnableCORS = cfg.EnableCORS

	srv := server.New(serverConfig, server.NewGeminiUpstream(client))

	go func() {
		logging.Info().Int("port", cfg.Port).Msg("server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
	}

	logging.Info().Msg("server stopped")
}
