// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/HikaruHotta/password-service/internal/archive"
	"github.com/HikaruHotta/password-service/internal/auth"
	"github.com/HikaruHotta/password-service/internal/handlers"
	"github.com/HikaruHotta/password-service/internal/lobby"
	"github.com/HikaruHotta/password-service/internal/middleware"
	"github.com/HikaruHotta/password-service/internal/store"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	st, err := store.ConnectRedis()
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	lobbies := lobby.NewService(st)

	publisher := archive.NewPublisher(st.Client(), os.Getenv("RESULTS_QUEUE_NAME"))
	lobbies.OnComplete = func(lobbyID string, final *lobby.Lobby) {
		rec := archive.NewLobbyResultRecord(lobbyID, final, time.Now())
		if err := publisher.Publish(context.Background(), rec); err != nil {
			logger.WithField("lobby", lobbyID).Warnf("failed to enqueue result: %v", err)
		}
	}

	srv := handlers.NewServer(lobbies, logger)
	logged := middleware.LogMiddleware(logger)

	mux := http.NewServeMux()
	mux.Handle("/auth/guest", logged(http.HandlerFunc(handlers.GuestIdentityHandler(srv))))
	mux.Handle("/lobby/create", logged(http.HandlerFunc(handlers.CreateLobbyHandler(srv))))
	mux.Handle("/lobby/join", logged(http.HandlerFunc(handlers.JoinLobbyHandler(srv))))
	mux.Handle("/lobby/start", logged(http.HandlerFunc(handlers.StartGameHandler(srv))))
	mux.Handle("/lobby/submit", logged(http.HandlerFunc(handlers.SubmitWordHandler(srv))))
	mux.Handle("/lobby/state", logged(http.HandlerFunc(handlers.LobbyStateHandler(srv))))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
