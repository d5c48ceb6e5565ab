package app

import (
	"context"
	"fmt"
	"time"

	"github.com/1ureka/bzmon/internal/config"
	"github.com/1ureka/bzmon/internal/lobby"
	"github.com/1ureka/bzmon/internal/lounge"
	"github.com/1ureka/bzmon/internal/util"
)

const sourceBZ98 = "bz98r"

// runBZ98 keeps one lounge connection alive, re-dialing after drops, and
// mirrors the lobby feed into the registry.
func runBZ98(ctx context.Context, cfg *config.Config, reg *lobby.Registry) error {
	wsURL := fmt.Sprintf("ws://%s", cfg.BZ98Host)

	hooks := lounge.Hooks{
		OnAuthorized: func(id string) {
			util.LogSuccess("bz98r: connected to lounge as id %s", id)
		},
		OnLobbyList: func(lobbies map[string]*lounge.Lobby) {
			for id, l := range lobbies {
				reg.Upsert(bz98Entry(id, l))
			}
		},
		OnLobbyChanged: func(id string, l *lounge.Lobby) {
			reg.Upsert(bz98Entry(id, l))
		},
		OnLobbyRemoved: func(id string) {
			reg.Remove(sourceBZ98, id)
		},
		OnChat: func(author, text string) {
			util.LogInfo("bz98r chat <%s> %s", author, text)
		},
		OnLog: func(text string) {
			util.LogDebug("bz98r: %s", text)
		},
	}

	for {
		client, err := lounge.Dial(ctx, wsURL, cfg.PlayerName, cfg.Key, hooks)
		if err == nil {
			err = client.Run(ctx)
		}
		if ctx.Err() != nil {
			return nil
		}
		util.LogWarning("bz98r: lounge connection lost: %v (retrying in %s)", err, retryDelay)

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

func bz98Entry(id string, l *lounge.Lobby) lobby.Entry {
	status := "open"
	switch {
	case l.IsLocked:
		status = "locked"
	case l.IsPrivate:
		status = "private"
	}
	return lobby.Entry{
		Source:  sourceBZ98,
		Key:     id,
		Name:    l.DisplayName(),
		Map:     l.MapName(),
		Owner:   l.OwnerName(),
		Players: l.PlayerCount(),
		Status:  status,
	}
}
