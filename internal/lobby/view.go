// internal/lobby/view.go
package lobby

import (
	"context"

	"github.com/HikaruHotta/password-service/internal/apperr"
)

// View is the caller-facing projection of a lobby document: the public
// region, the caller's own secret words, and just enough control state
// (status, host flag) to drive a client. The internal region is never
// exposed unfiltered.
type View struct {
	LobbyID     string   `json:"lobbyId"`
	Status      Status   `json:"status"`
	IsHost      bool     `json:"isHost"`
	Public      Public   `json:"public"`
	TargetWords []string `json:"targetWords,omitempty"`
}

// NewView projects a lobby document for one identity.
func NewView(lobbyID, identity string, l *Lobby) View {
	v := View{
		LobbyID: lobbyID,
		Status:  l.Internal.Status,
		IsHost:  l.Internal.HostID == identity,
		Public:  l.Public,
	}
	if priv, ok := l.Private[identity]; ok {
		v.TargetWords = priv.TargetWords
	}
	return v
}

// CurrentLobby returns the caller's view of the lobby they are in. Clients
// poll this in place of push updates.
func (s *Service) CurrentLobby(ctx context.Context, identity string) (View, error) {
	var idx playerIndex
	found, err := s.store.Get(ctx, playerIndexKey(identity), &idx)
	if err != nil {
		return View{}, err
	}
	if !found || idx.LobbyID == "" {
		return View{}, apperr.E(apperr.KindNotFound, "caller is not in a lobby")
	}

	var l Lobby
	found, err = s.store.Get(ctx, lobbyKey(idx.LobbyID), &l)
	if err != nil {
		return View{}, err
	}
	if !found {
		return View{}, apperr.E(apperr.KindNotFound, "lobby %s not found", idx.LobbyID)
	}
	return NewView(idx.LobbyID, identity, &l), nil
}
