package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/ccheshirecat/safepaw/internal/multipass"
	"github.com/ccheshirecat/safepaw/internal/server/config"
	"github.com/ccheshirecat/safepaw/internal/server/eventbus/memory"
	"github.com/ccheshirecat/safepaw/internal/server/httpapi"
	"github.com/ccheshirecat/safepaw/internal/server/ui"
	"github.com/ccheshirecat/safepaw/internal/vm"
)

// Serve wires the multipass-backed API and the embedded UI into an App and
// runs it until ctx is cancelled.
func Serve(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	tool := multipass.New(cfg.MultipassBinary, multipass.ExecExecutor{}, logger.With("component", "multipass"))
	tool.CommandTimeout = cfg.CommandTimeout
	api := vm.NewLocalAPI(tool, logger.With("component", "vm"))

	bus := memory.New(logger.With("component", "eventbus"))

	uiHandler := ui.New(logger.With("component", "ui"), ui.Assets(), cfg.APIPort)
	apiHandler := httpapi.New(logger.With("component", "httpapi"), api, bus, httpapi.Options{
		APIKey:     cfg.APIKey,
		AllowCIDRs: cfg.AllowCIDRs,
	})

	daemon, err := New(Params{
		Logger:          logger,
		UIAddr:          cfg.UIAddr(),
		APIAddr:         cfg.APIAddr(),
		UIHandler:       uiHandler,
		APIHandler:      apiHandler,
		ShutdownTimeout: cfg.ShutdownTimeout,
		OnShutdown:      bus.Close,
	})
	if err != nil {
		return err
	}

	logStartup(logger, cfg)
	return daemon.Run(ctx)
}

func logStartup(logger *slog.Logger, cfg config.ServerConfig) {
	host := cfg.Host
	uiURL := "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.UIPort))
	apiURL := "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.APIPort))
	logger.Info("starting safepaw ui", "url", uiURL)
	logger.Info("starting rest api", "url", apiURL)
	logger.Info("api health check", "url", apiURL+"/health")
}
