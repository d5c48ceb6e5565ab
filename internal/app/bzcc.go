package app

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/1ureka/bzmon/internal/config"
	"github.com/1ureka/bzmon/internal/lobby"
	"github.com/1ureka/bzmon/internal/raknet"
	"github.com/1ureka/bzmon/internal/session"
	"github.com/1ureka/bzmon/internal/util"
)

const sourceBZCC = "bzcc"

// runBZCC keeps one RakNet session alive against the BZCC server, re-dialing
// after failures, and mirrors pong statuses and query responses into the
// registry.
func runBZCC(ctx context.Context, cfg *config.Config, reg *lobby.Registry) error {
	addr, err := net.ResolveUDPAddr("udp", cfg.BZCCHost)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", cfg.BZCCHost, err)
	}

	hooks := session.Hooks{
		OnPong: func(from *net.UDPAddr, status string) {
			if status == "" {
				return
			}
			reg.RegisterPong(sourceBZCC, from.String(), status)
		},
		OnFrameMessage: func(id byte, payload []byte) {
			if id != raknet.IDLobbyQueryResponse {
				util.LogDebug("bzcc: connected message 0x%02X (%d bytes)", id, len(payload))
				return
			}
			if count, ok := raknet.DecodeLobbyCount(payload); ok {
				util.LogInfo("bzcc: server reports %d lobbies", count)
			}
		},
		OnStateChange: func(old, new session.State) {
			util.LogDebug("bzcc: %s -> %s", old, new)
			if new == session.StateSteadyState {
				util.LogSuccess("bzcc: logged in to %s", cfg.BZCCHost)
			}
		},
	}

	for {
		sess := session.New(addr, hooks)
		err := sess.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		util.LogWarning("bzcc: session ended: %v (retrying in %s)", err, retryDelay)

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil
		}
	}
}
