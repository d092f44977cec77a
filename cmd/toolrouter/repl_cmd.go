package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fentz26/toolrouter/internal/logging"
	"github.com/fentz26/toolrouter/internal/replui"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive chat REPL against the router",
	Long:  `Loads the catalog and configuration and drops into a terminal chat session, running each line as a turn in a single session.`,
	RunE:  runRepl,
}

func runRepl(cmd *cobra.Command, args []string) error {
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
	err = rtr.Initialize(ctx)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = rtr.Shutdown(shutdownCtx)
	}()

	sessionID := "repl-" + uuid.NewString()
	return replui.New(rtr, sessionID).Run()
}
