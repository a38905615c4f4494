// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/HikaruHotta/password-service/internal/apperr"
	"github.com/HikaruHotta/password-service/internal/lobby"
)

type createLobbyRequest struct {
	Player lobby.Player `json:"player"`
}

// CreateLobbyHandler creates a lobby hosted by the caller and returns its id
// and join code.
func CreateLobbyHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.requireIdentity(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		var req createLobbyRequest
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		res, err := s.Lobbies.Create(r.Context(), identity, req.Player)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, res)
	}
}

type joinLobbyRequest struct {
	Player    lobby.Player `json:"player"`
	LobbyCode string       `json:"lobbyCode"`
}

// JoinLobbyHandler resolves a lobby code and adds the caller as a player.
func JoinLobbyHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.requireIdentity(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		var req joinLobbyRequest
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		res, err := s.Lobbies.Join(r.Context(), identity, req.Player, req.LobbyCode)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, res)
	}
}

// StartGameHandler starts the game in the caller's current lobby (host only).
func StartGameHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.requireIdentity(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		lobbyID, l, err := s.Lobbies.Start(r.Context(), identity)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, lobby.NewView(lobbyID, identity, l))
	}
}

type submitWordRequest struct {
	Word string `json:"word"`
}

// SubmitWordHandler records the caller's word for the current turn.
func SubmitWordHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.requireIdentity(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		var req submitWordRequest
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		lobbyID, l, err := s.Lobbies.SubmitWord(r.Context(), identity, req.Word)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, lobby.NewView(lobbyID, identity, l))
	}
}

// LobbyStateHandler returns the caller's filtered view of their current
// lobby. Clients poll this endpoint for updates.
func LobbyStateHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.requireIdentity(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		view, err := s.Lobbies.CurrentLobby(r.Context(), identity)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, view)
	}
}

// decodeBody parses a JSON request body. An empty body decodes to the zero
// request so field validation reports the missing pieces.
func decodeBody(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil && err != io.EOF {
		return apperr.E(apperr.KindInvalidArgument, "malformed request body")
	}
	return nil
}
