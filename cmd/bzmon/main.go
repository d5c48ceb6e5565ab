// Bzmon — CLI entry point.
//
// This tool watches the Battlezone multiplayer backends and prints the live
// lobby list: the BZ98 Redux lounge over WebSocket, the BZCC matchmaking
// server over RakNet-flavored UDP, or both at once.
//
// It can be launched interactively (no flags) or non-interactively via CLI
// flags (-game, -bz98Host, -bzccHost, -name, -key).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"

	"github.com/1ureka/bzmon/internal/app"
	"github.com/1ureka/bzmon/internal/config"
	"github.com/1ureka/bzmon/internal/util"
)

var version = "dev"

func main() {
	// Root context — cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// CLI flags.
	game := flag.String("game", "", "Backend to monitor: bz98r, bzcc or both")
	bz98Host := flag.String("bz98Host", config.DefaultBZ98Host, "BZ98R lounge server (host:port)")
	bzccHost := flag.String("bzccHost", config.DefaultBZCCHost, "BZCC matchmaking server (host:port)")
	name := flag.String("name", "bzmon", "Player name announced to the lounge")
	key := flag.String("key", "", "Lounge authorization key (optional)")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("Bzmon — v%s", version))
	pterm.Println()

	cfg := &config.Config{
		BZ98Host:   *bz98Host,
		BZCCHost:   *bzccHost,
		PlayerName: strings.TrimSpace(*name),
		Key:        *key,
		Debug:      *debugMode,
	}

	switch config.Game(*game) {
	case "":
		// No -game flag → interactive mode.
		cfg.Game = askGame()
	case config.GameBZ98R, config.GameBZCC, config.GameBoth:
		cfg.Game = config.Game(*game)
	default:
		util.LogError("invalid -game: must be 'bz98r', 'bzcc' or 'both'")
		os.Exit(1)
	}

	if cfg.PlayerName == "" {
		util.LogError("player name must not be empty")
		os.Exit(1)
	}

	if err := app.Run(ctx, cfg); err != nil {
		util.LogError("monitor failed: %v", err)
		os.Exit(1)
	}

	util.LogInfo("monitor stopped")
}

// askGame prompts for the backend selection when no -game flag is provided.
func askGame() config.Game {
	choice, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{
			"BZ98R — Battlezone 98 Redux lounge",
			"BZCC  — Battlezone Combat Commander",
			"Both",
		}).
		WithDefaultText("Select the backend to monitor").
		Show()

	pterm.Println()

	switch {
	case strings.HasPrefix(choice, "BZ98R"):
		return config.GameBZ98R
	case strings.HasPrefix(choice, "BZCC"):
		return config.GameBZCC
	default:
		return config.GameBoth
	}
}
