// internal/lobby/types.go
package lobby

import "github.com/HikaruHotta/password-service/internal/apperr"

// Status is the lobby lifecycle phase. Transitions are monotonic:
// LOBBY -> SUBMISSION -> COMPLETE.
type Status string

const (
	StatusLobby      Status = "LOBBY"
	StatusSubmission Status = "SUBMISSION"
	StatusComplete   Status = "COMPLETE"
)

// Player is a participant's public profile within a lobby.
type Player struct {
	DisplayName string `json:"displayName"`
	ColorNumber int    `json:"colorNumber"`
	EmojiNumber int    `json:"emojiNumber"`
	Score       int    `json:"score"`
}

// Validate checks the fields a client must supply when creating or joining.
func (p Player) Validate() error {
	if p.DisplayName == "" {
		return apperr.E(apperr.KindInvalidArgument, "player displayName is required")
	}
	if p.ColorNumber < 0 {
		return apperr.E(apperr.KindInvalidArgument, "player colorNumber must be non-negative")
	}
	if p.EmojiNumber < 0 {
		return apperr.E(apperr.KindInvalidArgument, "player emojiNumber must be non-negative")
	}
	return nil
}

// Turn is one player's move record within the submission phase. A turn stub
// has an empty SubmittedWord until its owner submits.
type Turn struct {
	Player        string `json:"player"`
	SubmittedWord string `json:"submittedWord"`
}

// Internal is the authoritative control region of a lobby document. It is
// never exposed unfiltered to clients.
type Internal struct {
	Status  Status `json:"status"`
	Created int64  `json:"created"`
	HostID  string `json:"hostId"`
}

// Public is the game state every lobby member may see.
type Public struct {
	Players     map[string]Player `json:"players"`
	PlayerOrder []string          `json:"playerOrder,omitempty"`
	StartWord   string            `json:"startWord,omitempty"`
	Turns       []Turn            `json:"turns,omitempty"`
}

// PrivateState is one player's secret data, created at game start.
type PrivateState struct {
	TargetWords []string `json:"targetWords"`
}

// Lobby is the full per-lobby document. Region structure mirrors the stored
// JSON; decoding happens at the transaction boundary so every mutation works
// on typed state.
type Lobby struct {
	Internal Internal                `json:"internal"`
	Public   Public                  `json:"public"`
	Private  map[string]PrivateState `json:"private,omitempty"`
}

// currentTurn returns the open turn stub, or nil before the game starts.
func (l *Lobby) currentTurn() *Turn {
	if len(l.Public.Turns) == 0 {
		return nil
	}
	return &l.Public.Turns[len(l.Public.Turns)-1]
}

// playerIndex is an entry in the player-lobby index: the authoritative
// record of which lobby an identity currently belongs to.
type playerIndex struct {
	LobbyID string `json:"lobbyId"`
}

func lobbyKey(lobbyID string) string {
	return "lobbies/" + lobbyID
}

func playerIndexKey(identity string) string {
	return "players/" + identity
}
