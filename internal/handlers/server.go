// internal/handlers/server.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/HikaruHotta/password-service/internal/apperr"
	"github.com/HikaruHotta/password-service/internal/auth"
	"github.com/HikaruHotta/password-service/internal/lobby"
)

// Server bundles the lobby service with the logger for the HTTP handlers.
type Server struct {
	Lobbies *lobby.Service
	Logger  *logrus.Logger
}

func NewServer(lobbies *lobby.Service, logger *logrus.Logger) *Server {
	return &Server{Lobbies: lobbies, Logger: logger}
}

// requireIdentity extracts and verifies the caller identity from the auth
// cookie.
func (s *Server) requireIdentity(r *http.Request) (string, error) {
	cookie := r.Header.Get("Cookie")
	if !strings.Contains(cookie, auth.CookieName+"=") {
		return "", apperr.E(apperr.KindUnauthenticated, "missing %s cookie", auth.CookieName)
	}
	identity, err := auth.AuthenticateJWT(extractCookieToken(cookie, auth.CookieName))
	if err != nil {
		return "", apperr.E(apperr.KindUnauthenticated, "invalid token")
	}
	return identity, nil
}

// extractCookieToken extracts a named cookie value from the "Cookie" header,
// or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

func (s *Server) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeError maps the error's kind to an HTTP status and emits the kind +
// message body. Untyped errors surface as internal and are logged with
// their cause, which is never leaked to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	msg := err.Error()
	if kind == apperr.KindInternal {
		s.Logger.WithFields(logrus.Fields{
			"path":  r.URL.Path,
			"error": err,
		}).Error("request failed")
		var e *apperr.Error
		if errors.As(err, &e) {
			msg = e.Message
		} else {
			// Infrastructure failure; the cause stays in the log.
			msg = "internal error"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(kind))
	json.NewEncoder(w).Encode(errorBody{Error: errorDetail{
		Kind:    kind.String(),
		Message: msg,
	}})
}
