package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/desertthunder/audx/internal/server"
	"github.com/desertthunder/audx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Sandbox serves an in-memory store with the default catalog until interrupted.
func (r *Runner) Sandbox(ctx context.Context, cmd *cli.Command) error {
	host := r.config.Sandbox.Host
	if cmd.IsSet("host") {
		host = cmd.String("host")
	}
	port := r.config.Sandbox.Port
	if cmd.IsSet("port") {
		port = cmd.Int("port")
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", shared.ErrInvalidArgument, port)
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	logger := shared.WithLogger(r.logger, "component", "sandbox")
	sb := server.NewSandbox(server.DefaultCatalog(), server.SandboxOptions{
		BaseURL:            "http://" + addr,
		LegacyLibraryShape: cmd.Bool("legacy-library"),
		Logger:             logger,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.writePlain("Sandbox store at http://%s\n", addr)
	r.writePlain("Point the client at it with %s=http://%s\n\n", shared.EnvAPIURL, addr)
	return server.ListenAndServe(ctx, addr, server.NewHandler(sb, logger), logger)
}
