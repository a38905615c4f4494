// internal/handlers/identity.go
package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/HikaruHotta/password-service/internal/apperr"
	"github.com/HikaruHotta/password-service/internal/auth"
)

// GuestIdentityHandler mints an ephemeral caller identity and sets its token
// cookie. Every client calls this once before any lobby operation; there is
// no account system behind it.
func GuestIdentityHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := uuid.NewString()
		token, err := auth.CreateJWT(identity)
		if err != nil {
			s.writeError(w, r, apperr.E(apperr.KindInternal, "failed to issue identity token"))
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    token,
			HttpOnly: true,
			Path:     "/",
		})
		s.writeJSON(w, map[string]string{"id": identity})
	}
}
