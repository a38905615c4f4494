// internal/handlers/lobby_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HikaruHotta/password-service/internal/auth"
	"github.com/HikaruHotta/password-service/internal/lobby"
	"github.com/HikaruHotta/password-service/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	auth.Init() // ephemeral keys, no external deps needed
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewServer(lobby.NewService(store.NewMemoryStore()), logger)
}

func authedRequest(t *testing.T, method, path, body, identity string) *http.Request {
	t.Helper()
	token, err := auth.CreateJWT(identity)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Cookie", auth.CookieName+"="+token)
	return req
}

func TestCreateLobbyHandler(t *testing.T) {
	s := newTestServer(t)

	req := authedRequest(t, "POST", "/lobby/create",
		`{"player":{"displayName":"Ada","colorNumber":1,"emojiNumber":2}}`, "p1")
	w := httptest.NewRecorder()
	CreateLobbyHandler(s).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res lobby.CreateResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.NotEmpty(t, res.LobbyID)
	assert.Regexp(t, `^[A-Z]{4}$`, res.Code)
}

func TestCreateLobbyRequiresAuth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("POST", "/lobby/create", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	CreateLobbyHandler(s).ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "unauthenticated")
}

func TestCreateLobbyRejectsInvalidPlayer(t *testing.T) {
	s := newTestServer(t)

	req := authedRequest(t, "POST", "/lobby/create", `{"player":{}}`, "p1")
	w := httptest.NewRecorder()
	CreateLobbyHandler(s).ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_argument")
}

func TestJoinStartSubmitFlow(t *testing.T) {
	s := newTestServer(t)

	// p1 creates.
	w := httptest.NewRecorder()
	CreateLobbyHandler(s).ServeHTTP(w, authedRequest(t, "POST", "/lobby/create",
		`{"player":{"displayName":"Ada","colorNumber":1,"emojiNumber":2}}`, "p1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created lobby.CreateResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// p2 joins by code.
	w = httptest.NewRecorder()
	JoinLobbyHandler(s).ServeHTTP(w, authedRequest(t, "POST", "/lobby/join",
		`{"player":{"displayName":"Grace","colorNumber":3,"emojiNumber":4},"lobbyCode":"`+created.Code+`"}`, "p2"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var joined lobby.JoinResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &joined))
	assert.Equal(t, created.LobbyID, joined.LobbyID)

	// p2 cannot start.
	w = httptest.NewRecorder()
	StartGameHandler(s).ServeHTTP(w, authedRequest(t, "POST", "/lobby/start", `{}`, "p2"))
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "permission_denied")

	// p1 starts.
	w = httptest.NewRecorder()
	StartGameHandler(s).ServeHTTP(w, authedRequest(t, "POST", "/lobby/start", `{}`, "p1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view lobby.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, lobby.StatusSubmission, view.Status)
	assert.Len(t, view.Public.PlayerOrder, 2)

	// Submitting digits is rejected.
	current := view.Public.Turns[0].Player
	w = httptest.NewRecorder()
	SubmitWordHandler(s).ServeHTTP(w, authedRequest(t, "POST", "/lobby/submit",
		`{"word":"abc123"}`, current))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_argument")

	// A clean word from the current player lands.
	w = httptest.NewRecorder()
	SubmitWordHandler(s).ServeHTTP(w, authedRequest(t, "POST", "/lobby/submit",
		`{"word":"hello"}`, current))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// State endpoint reflects the submission for the other player.
	w = httptest.NewRecorder()
	LobbyStateHandler(s).ServeHTTP(w, authedRequest(t, "GET", "/lobby/state", "", "p2"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "hello", view.Public.Turns[0].SubmittedWord)
	assert.Len(t, view.Public.Turns, 2)
}

func TestJoinUnknownCodeMapsToNotFound(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	JoinLobbyHandler(s).ServeHTTP(w, authedRequest(t, "POST", "/lobby/join",
		`{"player":{"displayName":"Ada","colorNumber":1,"emojiNumber":2},"lobbyCode":"ZZZZ"}`, "p1"))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}
