// internal/archive/archive.go
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HikaruHotta/password-service/internal/lobby"
)

// DefaultQueueName is the Redis list holding completed-lobby records until
// the archiver drains them into Postgres.
const DefaultQueueName = "password_results"

// LobbyResultRecord is the flattened summary persisted when a lobby's
// submission phase completes.
type LobbyResultRecord struct {
	LobbyID     string         `json:"lobby_id"`
	HostID      string         `json:"host_id"`
	PlayerCount int            `json:"player_count"`
	TurnCount   int            `json:"turn_count"`
	Scores      map[string]int `json:"scores"`
	CompletedAt int64          `json:"completed_at"`
}

// NewLobbyResultRecord summarizes a completed lobby document.
func NewLobbyResultRecord(lobbyID string, l *lobby.Lobby, completedAt time.Time) LobbyResultRecord {
	scores := make(map[string]int, len(l.Public.Players))
	for id, p := range l.Public.Players {
		scores[id] = p.Score
	}
	return LobbyResultRecord{
		LobbyID:     lobbyID,
		HostID:      l.Internal.HostID,
		PlayerCount: len(l.Public.Players),
		TurnCount:   len(l.Public.Turns),
		Scores:      scores,
		CompletedAt: completedAt.UnixMilli(),
	}
}

// Publisher pushes result records onto the archive queue. Publishing is
// fire-and-forget from the request path's perspective; losing a record only
// loses history, never lobby state.
type Publisher struct {
	client *redis.Client
	queue  string
}

func NewPublisher(client *redis.Client, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{client: client, queue: queue}
}

// Publish serializes the record to JSON and pushes it onto the queue.
func (p *Publisher) Publish(ctx context.Context, record LobbyResultRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal LobbyResultRecord: %w", err)
	}
	if err := p.client.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}
