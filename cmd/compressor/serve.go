package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitrise-io/go-compressor/devserver"
	"github.com/bitrise-io/go-utils/v2/log"
)

// ServeCmd ...
type ServeCmd struct {
	Addr    string `help:"Address to listen on" default:":5000"`
	Storage string `help:"Directory for uploaded and compressed files; a temp dir when empty" type:"path"`
	Debug   bool   `help:"Enable debug logging"`
}

// Run ...
func (cmd *ServeCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.NewLogger()
	logger.EnableDebugLog(cmd.Debug)

	server, err := devserver.New(cmd.Storage, logger)
	if err != nil {
		return err
	}

	if err := server.ListenAndServe(ctx, cmd.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
