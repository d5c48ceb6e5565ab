package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide traffic counter across all sessions and the
// lounge connection.
var Stats = &stats{}

type stats struct {
	PongsRecv atomic.Int64 // cumulative pong records decoded since process start
	LobbySeen atomic.Int64 // cumulative lobby updates applied since process start
	BytesSent atomic.Int64 // cumulative bytes written to the wire
	BytesRecv atomic.Int64 // cumulative bytes read from the wire
}

func (s *stats) AddPong()      { s.PongsRecv.Add(1) }
func (s *stats) AddLobby()     { s.LobbySeen.Add(1) }
func (s *stats) AddSent(n int) { s.BytesSent.Add(int64(n)) }
func (s *stats) AddRecv(n int) { s.BytesRecv.Add(int64(n)) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs monitor statistics
// every 10 seconds. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevSent, prevRecv, prevPongs, prevLobbies int64
		for {
			select {
			case <-ticker.C:
				pongs := Stats.PongsRecv.Load()
				lobbies := Stats.LobbySeen.Load()
				sent := Stats.BytesSent.Load()
				recv := Stats.BytesRecv.Load()

				outS := float64(sent-prevSent) / 10.0
				inS := float64(recv-prevRecv) / 10.0
				dPongs := pongs - prevPongs
				dLobbies := lobbies - prevLobbies

				if dPongs > 0 || dLobbies > 0 || inS > 10 || outS > 10 {
					pterm.DefaultLogger.Info(formatStats(inS, outS, dPongs, dLobbies))
				}

				prevSent = sent
				prevRecv = recv
				prevPongs = pongs
				prevLobbies = lobbies

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats returns a formatted string of the current stats for display in the logger.
func formatStats(inS, outS float64, pongs, lobbies int64) string {
	return fmt.Sprintf("In: %s/s | Out: %s/s | Pongs: %2d | Lobby updates: %2d",
		formatBytes(inS),
		formatBytes(outS),
		pongs,
		lobbies,
	)
}
