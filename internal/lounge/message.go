// Package lounge maintains the WebSocket session with a Battlezone 98 Redux
// lounge server: authorization, the lobby-list feed, chat, and the small
// request vocabulary the official client uses.
package lounge

import "encoding/json"

// Outbound message types.
const (
	typeAuthorization = "Authorization"
	typeDoEnterLounge = "DoEnterLounge"
	typeGetLobbyList  = "GetLobbyList"
	typeSetPlayerData = "SetPlayerData"
	typeDoJoinLobby   = "DoJoinLobby"
	typeDoExitLobby   = "DoExitLobby"
	typeDoSendChat    = "DoSendChat"
	typePing          = "Ping"
)

// Inbound message types.
const (
	typeOnAuthorization    = "OnAuthorization"
	typeOnLobbyList        = "OnLobbyList"
	typeOnGetLobbyList     = "OnGetLobbyList"
	typeOnLobbyListChanged = "OnLobbyListChanged"
	typeOnLobbyChanged     = "OnLobbyChanged"
	typeOnLobbyUpdate      = "OnLobbyUpdate"
	typeOnLobbyRemoved     = "OnLobbyRemoved"
	typeOnChatMessage      = "OnChatMessage"
	typeOnMemberListChange = "OnLobbyMemberListChanged"
)

// envelope is the JSON frame exchanged with the lounge server. Outbound
// messages carry their body under "content"; inbound ones under "data".
type envelope struct {
	Type    string          `json:"type"`
	Content any             `json:"content,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// authorization is the first message after the socket opens. The client
// version string matters: servers reject unknown versions.
type authorization struct {
	AuthType      string `json:"authtype"`
	Key           string `json:"key"`
	ID            string `json:"id"`
	APIVer        string `json:"apiVer"`
	ClientVersion string `json:"clientVersion"`
	Name          string `json:"name,omitempty"`
	PlayerName    string `json:"playerName,omitempty"`
}

// joinRequest is the body of DoJoinLobby. The password field is always
// present, empty for open lobbies.
type joinRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

// keyValue is the body of SetPlayerData updates.
type keyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// authResult is the body of OnAuthorization.
type authResult struct {
	Success bool            `json:"success"`
	ID      json.RawMessage `json:"id"`
}

// chatMessage is the body of OnChatMessage. Older servers use "author",
// newer ones "speakerId".
type chatMessage struct {
	Author    string `json:"author"`
	SpeakerID string `json:"speakerId"`
	Text      string `json:"text"`
}

// memberChange is the body of OnLobbyMemberListChanged.
type memberChange struct {
	Member  json.RawMessage `json:"member"`
	LobbyID json.RawMessage `json:"lobbyId"`
	Removed bool            `json:"removed"`
}

// removedLobby is the body of OnLobbyRemoved.
type removedLobby struct {
	ID json.RawMessage `json:"id"`
}
