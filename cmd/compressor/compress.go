package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bitrise-io/go-compressor/config"
	"github.com/bitrise-io/go-compressor/internal/stepconf"
	"github.com/bitrise-io/go-compressor/network"
	"github.com/bitrise-io/go-compressor/view"
	"github.com/bitrise-io/go-compressor/workflow"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
)

// CompressCmd ...
type CompressCmd struct {
	File    string `arg:"" name:"file" help:"File to compress (jpg, jpeg, png, pdf, docx)" type:"existingfile"`
	Quality *int   `help:"Compression quality (1-100); defaults to COMPRESSOR_QUALITY or 50"`
	APIURL  string `name:"api-url" help:"Base URL of the compression API; defaults to COMPRESSOR_API_URL"`
	Output  string `short:"o" help:"Download the compressed file to this path" type:"path"`
	Debug   bool   `help:"Enable debug logging"`
}

// Run ...
func (cmd *CompressCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cmd.run(ctx, env.NewRepository(), os.Stdout)
}

func (cmd *CompressCmd) run(ctx context.Context, envRepo env.Repository, out io.Writer) error {
	cfg, err := cmd.resolveConfig(envRepo)
	if err != nil {
		return err
	}

	logger := log.NewLogger()
	logger.EnableDebugLog(cfg.Debug)
	if cfg.Debug {
		stepconf.Print(cfg, logger)
	}

	client, err := network.NewClient(network.ClientParams{
		APIBaseURL: cfg.APIBaseURL,
		HTTPClient: network.NewHTTPClient(logger),
	}, logger)
	if err != nil {
		return err
	}

	terminal := view.NewTerminal(out)
	controller := workflow.NewController(client, terminal, logger, workflow.DefaultProgressConfig())

	file, err := workflow.LocalFile(cmd.File)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", cmd.File, err)
	}

	// An interrupt resets the workflow before it cancels the in-flight request.
	requestCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			controller.Reset()
			cancelRequests()
		case <-done:
		}
	}()

	if err := controller.SelectFile(requestCtx, file); err != nil {
		return interrupted(ctx, err)
	}

	result, err := controller.RequestCompression(requestCtx, cfg.Quality)
	if err != nil {
		return interrupted(ctx, err)
	}

	if cmd.Output == "" {
		return nil
	}

	if err := network.Download(requestCtx, network.DownloadParams{
		APIBaseURL:   cfg.APIBaseURL,
		Reference:    result.DownloadURL,
		DownloadPath: cmd.Output,
	}, logger); err != nil {
		return interrupted(ctx, err)
	}
	logger.Donef("Saved %s to %s", result.FileName, filepath.Clean(cmd.Output))

	return nil
}

// resolveConfig layers the command line flags over the environment configuration.
func (cmd *CompressCmd) resolveConfig(envRepo env.Repository) (config.Config, error) {
	cfg, err := config.Load(envRepo)
	if err != nil {
		return config.Config{}, err
	}

	if cmd.APIURL != "" {
		cfg.APIBaseURL = cmd.APIURL
	}
	if cmd.Quality != nil {
		if err := config.ValidateQuality(*cmd.Quality); err != nil {
			return config.Config{}, err
		}
		cfg.Quality = *cmd.Quality
	}
	if cmd.Debug {
		cfg.Debug = true
	}

	return cfg, nil
}

var errInterrupted = errors.New("interrupted")

func interrupted(ctx context.Context, err error) error {
	if ctx.Err() != nil && (errors.Is(err, workflow.ErrStaleResponse) || errors.Is(err, context.Canceled)) {
		return errInterrupted
	}
	return err
}
