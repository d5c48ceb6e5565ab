package lounge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/1ureka/bzmon/internal/util"
)

// clientVersion is what the official client reports; the server rejects
// authorizations from versions it does not know.
const clientVersion = "2.2.301"

// Hooks are the client's outward-facing callbacks, consumed by the registry
// and UI layers. Nil hooks are skipped. All hooks fire from the client's
// read-loop goroutine.
type Hooks struct {
	OnAuthorized   func(id string)
	OnLobbyList    func(lobbies map[string]*Lobby)
	OnLobbyChanged func(id string, lobby *Lobby)
	OnLobbyRemoved func(id string)
	OnChat         func(author, text string)
	OnLog          func(text string)
}

// Client is one WebSocket session with a lounge server. Writes go through a
// mutex-guarded sender; reads happen on the single Run loop.
type Client struct {
	playerName string
	key        string
	hooks      Hooks

	conn *websocket.Conn
	mu   sync.Mutex // guards writes

	myID string
}

// Dial connects to the lounge server at wsURL (e.g. "ws://host:1337") and
// returns a client ready to Run.
func Dial(ctx context.Context, wsURL, playerName, key string, hooks Hooks) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to lounge server: %w", err)
	}
	return &Client{
		playerName: playerName,
		key:        key,
		hooks:      hooks,
		conn:       conn,
	}, nil
}

// Run sends the authorization and then consumes inbound messages until the
// connection drops or ctx is cancelled. Unknown message types are logged at
// debug level and skipped.
func (c *Client) Run(ctx context.Context) error {
	defer c.conn.Close()

	// Cooperative cancellation: closing the socket unblocks ReadJSON. The
	// watcher must not outlive Run — clients are re-dialed on every retry
	// under one long-lived context.
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	if err := c.authorize(); err != nil {
		return err
	}

	for {
		var msg envelope
		if err := c.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("lounge read failed: %w", err)
		}
		util.Stats.AddRecv(len(msg.Data))
		if err := c.dispatch(msg); err != nil {
			if msg.Type == typeOnAuthorization {
				return err
			}
			c.log("dropping %s: %v", msg.Type, err)
		}
	}
}

func (c *Client) dispatch(msg envelope) error {
	switch msg.Type {
	case typeOnAuthorization:
		return c.handleAuthorization(msg.Data)

	case typeOnLobbyList, typeOnGetLobbyList, typeOnLobbyListChanged:
		lobbies, err := decodeLobbyList(msg.Data)
		if err != nil {
			return err
		}
		c.log("received lobby list: %d lobbies", len(lobbies))
		util.Stats.AddLobby()
		if c.hooks.OnLobbyList != nil {
			c.hooks.OnLobbyList(lobbies)
		}

	case typeOnLobbyChanged, typeOnLobbyUpdate:
		changed, err := decodeLobbyChange(msg.Data)
		if err != nil {
			return err
		}
		util.Stats.AddLobby()
		for id, lobby := range changed {
			if c.hooks.OnLobbyChanged != nil {
				c.hooks.OnLobbyChanged(id, lobby)
			}
		}

	case typeOnLobbyRemoved:
		var body removedLobby
		if err := json.Unmarshal(msg.Data, &body); err != nil {
			return err
		}
		if c.hooks.OnLobbyRemoved != nil {
			c.hooks.OnLobbyRemoved(rawString(body.ID))
		}

	case typeOnChatMessage:
		var chat chatMessage
		if err := json.Unmarshal(msg.Data, &chat); err != nil {
			return err
		}
		author := chat.Author
		if author == "" {
			author = chat.SpeakerID
		}
		if c.hooks.OnChat != nil {
			c.hooks.OnChat(author, chat.Text)
		}

	case typeOnMemberListChange:
		var change memberChange
		if err := json.Unmarshal(msg.Data, &change); err != nil {
			return err
		}
		action := "joined"
		if change.Removed {
			action = "left"
		}
		c.log("user %s %s lobby %s", rawString(change.Member), action, rawString(change.LobbyID))

	default:
		util.LogDebug("lounge: unhandled message type %q", msg.Type)
	}
	return nil
}

// authorize identifies this client. On success the server assigns an id and
// the client enters the lounge and requests the lobby list.
func (c *Client) authorize() error {
	auth := authorization{
		AuthType:      "web",
		Key:           c.key,
		ID:            "0",
		APIVer:        "0.0",
		ClientVersion: clientVersion,
		Name:          c.playerName,
		PlayerName:    c.playerName,
	}
	return c.send(typeAuthorization, auth)
}

func (c *Client) handleAuthorization(data json.RawMessage) error {
	var result authResult
	if err := json.Unmarshal(data, &result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("lounge authorization rejected")
	}
	c.myID = rawString(result.ID)
	c.log("authorized as id %s", c.myID)
	if c.hooks.OnAuthorized != nil {
		c.hooks.OnAuthorized(c.myID)
	}

	// Enter the lounge to subscribe to updates, publish our player data,
	// then explicitly request the current list.
	if err := c.send(typeDoEnterLounge, true); err != nil {
		return err
	}
	for _, kv := range []keyValue{
		{Key: "name", Value: c.playerName},
		{Key: "playerName", Value: c.playerName},
		{Key: "clientVersion", Value: clientVersion},
		{Key: "authType", Value: "web"},
	} {
		if err := c.send(typeSetPlayerData, kv); err != nil {
			return err
		}
	}
	return c.send(typeGetLobbyList, true)
}

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// RefreshLounge re-enters the lounge and re-requests the lobby list.
func (c *Client) RefreshLounge() error {
	if err := c.send(typeDoEnterLounge, true); err != nil {
		return err
	}
	return c.send(typeGetLobbyList, true)
}

// JoinLobby asks the server to seat us in the given lobby.
func (c *Client) JoinLobby(id, password string) error {
	return c.send(typeDoJoinLobby, joinRequest{ID: id, Password: password})
}

// LeaveLobby exits the given lobby.
func (c *Client) LeaveLobby(id string) error {
	return c.send(typeDoExitLobby, id)
}

// SendChat sends a lounge chat line.
func (c *Client) SendChat(text string) error {
	return c.send(typeDoSendChat, text)
}

// Ping pokes the server.
func (c *Client) Ping() error {
	return c.send(typePing, true)
}

// send marshals one envelope onto the socket, guarded by the write mutex.
func (c *Client) send(msgType string, content any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(envelope{Type: msgType, Content: content}); err != nil {
		return fmt.Errorf("lounge send %s: %w", msgType, err)
	}
	return nil
}

func (c *Client) log(format string, args ...any) {
	if c.hooks.OnLog != nil {
		c.hooks.OnLog(fmt.Sprintf(format, args...))
		return
	}
	util.LogInfo("lounge: "+format, args...)
}
