package lounge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Lobby mirrors the server's lobby JSON object. Owner and metadata values
// arrive with inconsistent types across server versions, so the flexible
// fields stay as raw JSON and are normalized through accessors.
type Lobby struct {
	ID            json.RawMessage   `json:"id"`
	Owner         json.RawMessage   `json:"owner"`
	CreatedTime   json.RawMessage   `json:"createdTime"`
	ClientVersion string            `json:"clientVersion"`
	MemberLimit   int               `json:"memberLimit"`
	IsLocked      bool              `json:"isLocked"`
	IsPrivate     bool              `json:"isPrivate"`
	Users         map[string]User   `json:"users"`
	Metadata      map[string]string `json:"metadata"`
}

// User is one lobby member.
type User struct {
	Name       string            `json:"name"`
	IPAddress  string            `json:"ipAddress"`
	AuthType   string            `json:"authType"`
	WANAddress string            `json:"wanAddress"`
	Metadata   map[string]string `json:"metadata"`
}

// DisplayName strips the chat-lobby prefix ("~chat~pub~~Name" -> "Name").
func (l *Lobby) DisplayName() string {
	name := l.Metadata["name"]
	if name == "" {
		return "Unknown"
	}
	if i := strings.LastIndex(name, "~~"); i >= 0 {
		return name[i+2:]
	}
	return name
}

// MapName extracts the map from the '*'-separated "ready" or "gameSettings"
// metadata (the map sits in the second field). Unknown maps render as "?".
func (l *Lobby) MapName() string {
	for _, key := range []string{"ready", "gameSettings"} {
		parts := strings.Split(l.Metadata[key], "*")
		if len(parts) >= 2 && parts[1] != "" && parts[1] != "unknown" {
			return parts[1]
		}
	}
	return "?"
}

// OwnerName renders the owner field; -1 means no owner.
func (l *Lobby) OwnerName() string {
	owner := rawString(l.Owner)
	if owner == "" || owner == "-1" {
		return "none"
	}
	return owner
}

// PlayerCount renders "current/limit".
func (l *Lobby) PlayerCount() string {
	limit := "?"
	if l.MemberLimit > 0 {
		limit = fmt.Sprintf("%d", l.MemberLimit)
	}
	return fmt.Sprintf("%d/%s", len(l.Users), limit)
}

// GameType returns the gameType metadata, "?" when absent.
func (l *Lobby) GameType() string {
	if t := l.Metadata["gameType"]; t != "" {
		return t
	}
	return "?"
}

// rawString renders a raw JSON scalar (string or number) as plain text.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(string(raw), `"`)
}

// lobbyList is the body shape of the full-list messages. Servers either
// nest the map under "lobbies" or send it directly as the body.
func decodeLobbyList(data json.RawMessage) (map[string]*Lobby, error) {
	var nested struct {
		Lobbies map[string]*Lobby `json:"lobbies"`
	}
	if err := json.Unmarshal(data, &nested); err == nil && nested.Lobbies != nil {
		return nested.Lobbies, nil
	}

	direct := make(map[string]*Lobby)
	if err := json.Unmarshal(data, &direct); err != nil {
		return nil, fmt.Errorf("failed to decode lobby list: %w", err)
	}
	return direct, nil
}

// decodeLobbyChange handles the single-lobby update shapes: a "lobbies" map,
// or one lobby under "lobby".
func decodeLobbyChange(data json.RawMessage) (map[string]*Lobby, error) {
	var nested struct {
		Lobbies map[string]*Lobby `json:"lobbies"`
		Lobby   *Lobby            `json:"lobby"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, fmt.Errorf("failed to decode lobby change: %w", err)
	}
	if nested.Lobbies != nil {
		return nested.Lobbies, nil
	}
	if nested.Lobby != nil {
		return map[string]*Lobby{rawString(nested.Lobby.ID): nested.Lobby}, nil
	}
	return map[string]*Lobby{}, nil
}
