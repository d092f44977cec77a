package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/toolrouter/internal/httpapi"
	"github.com/fentz26/toolrouter/internal/logging"
)

var listenAddr string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the router as a long-lived HTTP service",
	Long:  `Loads the catalog and configuration, preloads the highest-ranked servers, then serves turns over HTTP until interrupted.`,
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:7788", "listen address for the HTTP API")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logging.SetDebug(cfg.Debug)

	rtr, err := buildRouter(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := rtr.Initialize(ctx); err != nil {
		cancel()
		return err
	}
	cancel()

	server := httpapi.NewServer(rtr, listenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	logging.Infof("toolrouter listening on %s", listenAddr)

	select {
	case sig := <-sigCh:
		logging.Infof("received signal %v, shutting down", sig)
	case err := <-serverErr:
		if err != nil {
			logging.Errorf("server error: %v", err)
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Warnf("http shutdown: %v", err)
	}
	if err := rtr.Shutdown(shutdownCtx); err != nil {
		logging.Warnf("router shutdown: %v", err)
	}
	return nil
}
