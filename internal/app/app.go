// Package app contains the top-level orchestration for the monitor backends.
package app

import (
	"context"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"

	"github.com/1ureka/bzmon/internal/config"
	"github.com/1ureka/bzmon/internal/lobby"
	"github.com/1ureka/bzmon/internal/util"
)

// renderInterval is how often the lobby table is re-drawn.
const renderInterval = 10 * time.Second

// retryDelay is the pause before re-dialing a backend after its connection
// drops.
const retryDelay = 5 * time.Second

// Run starts the configured backends and the table renderer, and blocks
// until ctx is cancelled or a backend fails unrecoverably.
func Run(ctx context.Context, cfg *config.Config) error {
	reg := lobby.NewRegistry()

	// The group context only fans cancellation out to the backends. Clean
	// shutdown is judged against the parent: a backend failure cancels gctx
	// too, and must still surface as an error.
	g, gctx := errgroup.WithContext(ctx)

	if cfg.WantBZ98() {
		g.Go(func() error { return runBZ98(gctx, cfg, reg) })
	}
	if cfg.WantBZCC() {
		g.Go(func() error { return runBZCC(gctx, cfg, reg) })
	}
	g.Go(func() error {
		renderLoop(gctx, reg)
		return nil
	})

	util.StartStatsReporter(gctx)

	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// renderLoop re-draws the lobby table on a fixed cadence. An empty registry
// renders nothing; the table reappears as soon as entries come back.
func renderLoop(ctx context.Context, reg *lobby.Registry) {
	ticker := time.NewTicker(renderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			renderTable(reg.Snapshot())
		case <-ctx.Done():
			return
		}
	}
}

func renderTable(entries []lobby.Entry) {
	if len(entries) == 0 {
		util.LogDebug("no live lobbies")
		return
	}

	data := pterm.TableData{{"Game", "Lobby", "Map", "Owner", "Players", "Status"}}
	for _, e := range entries {
		data = append(data, []string{
			e.Source, e.Name, e.Map, e.Owner, e.Players, e.Status,
		})
	}

	pterm.Println()
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		util.LogWarning("table render failed: %v", err)
	}
	pterm.Println()
}
