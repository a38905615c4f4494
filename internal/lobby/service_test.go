// internal/lobby/service_test.go
package lobby

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HikaruHotta/password-service/internal/apperr"
	"github.com/HikaruHotta/password-service/internal/store"
)

func testPlayer(name string) Player {
	return Player{DisplayName: name, ColorNumber: 1, EmojiNumber: 2}
}

func TestCreateValidatesPlayer(t *testing.T) {
	svc := NewService(store.NewMemoryStore())

	_, err := svc.Create(context.Background(), "p1", Player{ColorNumber: 1, EmojiNumber: 1})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
}

func TestCreateJoinStartSubmitScenario(t *testing.T) {
	svc := NewService(store.NewMemoryStore())
	ctx := context.Background()

	created, err := svc.Create(ctx, "p1", testPlayer("Ada"))
	require.NoError(t, err)
	require.NotEmpty(t, created.LobbyID)
	require.Len(t, created.Code, 4)
	assert.Equal(t, strings.ToUpper(created.Code), created.Code)

	joined, err := svc.Join(ctx, "p2", testPlayer("Grace"), created.Code)
	require.NoError(t, err)
	assert.Equal(t, created.LobbyID, joined.LobbyID)

	view, err := svc.CurrentLobby(ctx, "p2")
	require.NoError(t, err)
	require.Len(t, view.Public.Players, 2)
	assert.Contains(t, view.Public.Players, "p1")
	assert.Contains(t, view.Public.Players, "p2")
	assert.Equal(t, StatusLobby, view.Status)
	assert.False(t, view.IsHost)

	// Non-host cannot start, even before any started-state check.
	_, _, err = svc.Start(ctx, "p2")
	require.Error(t, err)
	assert.Equal(t, apperr.KindPermissionDenied, apperr.KindOf(err))

	lobbyID, l, err := svc.Start(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, created.LobbyID, lobbyID)
	require.Equal(t, StatusSubmission, l.Internal.Status)
	require.Len(t, l.Public.PlayerOrder, 2)
	require.Len(t, l.Public.Turns, 1)
	assert.Equal(t, l.Public.PlayerOrder[0], l.Public.Turns[0].Player)
	assert.Equal(t, defaultStartWord, l.Public.StartWord)
	require.Len(t, l.Private, 2)
	for _, id := range l.Public.PlayerOrder {
		assert.NotEmpty(t, l.Private[id].TargetWords)
	}

	// Starting again fails on state, still PermissionDenied for non-host.
	_, _, err = svc.Start(ctx, "p1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindFailedPrecondition, apperr.KindOf(err))
	_, _, err = svc.Start(ctx, "p2")
	require.Error(t, err)
	assert.Equal(t, apperr.KindPermissionDenied, apperr.KindOf(err))
}

func TestJoinUnknownCode(t *testing.T) {
	svc := NewService(store.NewMemoryStore())

	_, err := svc.Join(context.Background(), "p1", testPlayer("Ada"), "ZZZZ")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestJoinBadCodeShape(t *testing.T) {
	svc := NewService(store.NewMemoryStore())

	for _, code := range []string{"", "AB", "AB12", "TOOLONG"} {
		_, err := svc.Join(context.Background(), "p1", testPlayer("Ada"), code)
		require.Error(t, err, "code %q", code)
		assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err), "code %q", code)
	}
}

func TestJoinAfterStartFails(t *testing.T) {
	svc := NewService(store.NewMemoryStore())
	ctx := context.Background()

	created, err := svc.Create(ctx, "p1", testPlayer("Ada"))
	require.NoError(t, err)
	_, err = svc.Join(ctx, "p2", testPlayer("Grace"), created.Code)
	require.NoError(t, err)
	_, _, err = svc.Start(ctx, "p1")
	require.NoError(t, err)

	_, err = svc.Join(ctx, "p3", testPlayer("Edsger"), created.Code)
	require.Error(t, err)
	assert.Equal(t, apperr.KindFailedPrecondition, apperr.KindOf(err))

	view, err := svc.CurrentLobby(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, view.Public.Players, 2, "failed join must not change the player set")
}

func TestSubmitWordValidation(t *testing.T) {
	svc := NewService(store.NewMemoryStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, "p1", testPlayer("Ada"))
	require.NoError(t, err)

	for _, word := range []string{"", "abc1", "hi there", "héllo", "word!"} {
		_, _, err := svc.SubmitWord(ctx, "p1", word)
		require.Error(t, err, "word %q", word)
		assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err), "word %q", word)
	}

	// Valid word, but the lobby has not started.
	_, _, err = svc.SubmitWord(ctx, "p1", "hello")
	require.Error(t, err)
	assert.Equal(t, apperr.KindFailedPrecondition, apperr.KindOf(err))
}

func TestSubmitWordRequiresMembership(t *testing.T) {
	svc := NewService(store.NewMemoryStore())

	_, _, err := svc.SubmitWord(context.Background(), "nobody", "hello")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestSubmitWordRotationToCompletion(t *testing.T) {
	svc := NewService(store.NewMemoryStore())
	ctx := context.Background()

	var completed []string
	svc.OnComplete = func(lobbyID string, final *Lobby) {
		completed = append(completed, lobbyID)
		assert.Equal(t, StatusComplete, final.Internal.Status)
	}

	created, err := svc.Create(ctx, "p1", testPlayer("Ada"))
	require.NoError(t, err)
	_, err = svc.Join(ctx, "p2", testPlayer("Grace"), created.Code)
	require.NoError(t, err)
	_, _, l, order := startAndOrder(t, svc, ctx)

	// Out-of-turn submission is rejected.
	other := order[1]
	_, _, err = svc.SubmitWord(ctx, other, "early")
	require.Error(t, err)
	assert.Equal(t, apperr.KindFailedPrecondition, apperr.KindOf(err))

	totalTurns := len(order) * len(defaultTargetWords)
	for i := 0; i < totalTurns; i++ {
		current := l.Public.Turns[len(l.Public.Turns)-1].Player
		_, l, err = svc.SubmitWord(ctx, current, "word")
		require.NoError(t, err)
	}

	assert.Equal(t, StatusComplete, l.Internal.Status)
	assert.Len(t, l.Public.Turns, totalTurns)
	require.Equal(t, []string{created.LobbyID}, completed)

	for _, id := range order {
		assert.Equal(t, len(defaultTargetWords), l.Public.Players[id].Score)
	}

	// The game is over; nothing more may be submitted.
	_, _, err = svc.SubmitWord(ctx, order[0], "extra")
	require.Error(t, err)
	assert.Equal(t, apperr.KindFailedPrecondition, apperr.KindOf(err))
}

func TestViewHidesOtherPlayersSecrets(t *testing.T) {
	svc := NewService(store.NewMemoryStore())
	ctx := context.Background()

	created, err := svc.Create(ctx, "p1", testPlayer("Ada"))
	require.NoError(t, err)
	_, err = svc.Join(ctx, "p2", testPlayer("Grace"), created.Code)
	require.NoError(t, err)
	_, _, err = svc.Start(ctx, "p1")
	require.NoError(t, err)

	view, err := svc.CurrentLobby(ctx, "p2")
	require.NoError(t, err)
	assert.NotEmpty(t, view.TargetWords, "caller sees their own target words")
	assert.True(t, view.Status == StatusSubmission)
}

// startAndOrder starts the game as p1 and returns the ids, committed doc,
// and player order.
func startAndOrder(t *testing.T, svc *Service, ctx context.Context) (string, string, *Lobby, []string) {
	t.Helper()
	lobbyID, l, err := svc.Start(ctx, "p1")
	require.NoError(t, err)
	return lobbyID, l.Public.StartWord, l, l.Public.PlayerOrder
}
