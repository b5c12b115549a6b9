package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/audx/internal/shared"
	"github.com/desertthunder/audx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for browsing, buying and listening.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	player := r.transport()
	defer player.Unbind()

	model := ui.NewModel(ctx, ui.Deps{
		Catalog:   r.catalog,
		Session:   r.session,
		Cart:      r.cart,
		Library:   r.library,
		Transport: player,
		Logger:    shared.WithLogger(fileLogger, "component", "ui"),
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
