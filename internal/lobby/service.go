// internal/lobby/service.go
package lobby

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HikaruHotta/password-service/internal/apperr"
	"github.com/HikaruHotta/password-service/internal/store"
)

var wordPattern = regexp.MustCompile(`^[a-zA-Z]+$`)

// defaultStartWord seeds the word chain when the host starts the game.
const defaultStartWord = "start"

// defaultTargetWords is the per-player secret list handed out at game start.
// One submission round is played per target word.
var defaultTargetWords = []string{"apple", "banana", "cherry"}

// Service implements the lobby operations. It holds no per-lobby state:
// every operation re-reads fresh documents from the store, and all
// cross-request coordination happens through store transactions.
type Service struct {
	store store.Store
	codes *CodeRegistry

	// OnComplete, if set, runs after a submission moves a lobby to
	// COMPLETE. The server wires this to the result archive queue.
	OnComplete func(lobbyID string, final *Lobby)

	now func() time.Time
}

func NewService(st store.Store) *Service {
	return &Service{
		store: st,
		codes: NewCodeRegistry(st),
		now:   time.Now,
	}
}

// CreateResult is returned by Create.
type CreateResult struct {
	LobbyID string `json:"lobbyId"`
	Code    string `json:"lobbyCode"`
}

// Create builds a new lobby hosted by identity, allocates its code, and adds
// the host as the first player. The three writes are separate (lobby doc,
// code map, player add + index); a crash in between leaves a lobby without a
// code or an un-added host, which is the accepted best-effort window.
func (s *Service) Create(ctx context.Context, identity string, p Player) (CreateResult, error) {
	if err := p.Validate(); err != nil {
		return CreateResult{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return CreateResult{}, apperr.E(apperr.KindInternal, "generate lobby id: %v", err)
	}
	lobbyID := id.String()

	doc := Lobby{
		Internal: Internal{
			Status:  StatusLobby,
			Created: s.now().UnixMilli(),
			HostID:  identity,
		},
		Public: Public{Players: make(map[string]Player)},
	}
	if err := s.store.Set(ctx, lobbyKey(lobbyID), &doc); err != nil {
		return CreateResult{}, err
	}

	code, err := s.codes.Allocate(ctx, lobbyID, s.now())
	if err != nil {
		return CreateResult{}, err
	}

	if _, err := s.addPlayer(ctx, lobbyID, identity, p); err != nil {
		return CreateResult{}, err
	}

	return CreateResult{LobbyID: lobbyID, Code: code}, nil
}

// JoinResult is returned by Join.
type JoinResult struct {
	LobbyID string `json:"lobbyId"`
}

// Join resolves a lobby code and adds identity to that lobby.
func (s *Service) Join(ctx context.Context, identity string, p Player, code string) (JoinResult, error) {
	if err := p.Validate(); err != nil {
		return JoinResult{}, err
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != codeLength || !wordPattern.MatchString(code) {
		return JoinResult{}, apperr.E(apperr.KindInvalidArgument,
			"lobby code must be %d letters", codeLength)
	}

	lobbyID, err := s.codes.Resolve(ctx, code)
	if err != nil {
		return JoinResult{}, err
	}
	if _, err := s.addPlayer(ctx, lobbyID, identity, p); err != nil {
		return JoinResult{}, err
	}
	return JoinResult{LobbyID: lobbyID}, nil
}

// addPlayer inserts identity into the lobby's player map, then records the
// identity -> lobby index entry. The index write is not transactionally
// joined with the lobby update; a crash between the two leaves an
// inconsistency window (known limitation).
func (s *Service) addPlayer(ctx context.Context, lobbyID, identity string, p Player) (*Lobby, error) {
	l, err := Update(ctx, s.store, lobbyID,
		func(l *Lobby) error {
			if l.Internal.Status != StatusLobby {
				return apperr.E(apperr.KindFailedPrecondition, "lobby has already started")
			}
			return nil
		},
		func(l *Lobby) {
			p.Score = 0
			if l.Public.Players == nil {
				l.Public.Players = make(map[string]Player)
			}
			l.Public.Players[identity] = p
		})
	if err != nil {
		return nil, err
	}

	if err := s.store.Set(ctx, playerIndexKey(identity), playerIndex{LobbyID: lobbyID}); err != nil {
		return nil, err
	}
	return l, nil
}

// Start begins the game in the caller's current lobby, returning the lobby
// id and the committed document. Host-only; the host check runs before the
// status check so a non-host on a started lobby still sees PermissionDenied.
func (s *Service) Start(ctx context.Context, identity string) (string, *Lobby, error) {
	lobbyID, err := s.lookupLobbyID(ctx, identity)
	if err != nil {
		return "", nil, err
	}

	l, err := Update(ctx, s.store, lobbyID,
		func(l *Lobby) error {
			if l.Internal.HostID != identity {
				return apperr.E(apperr.KindPermissionDenied, "only the host may start the game")
			}
			if l.Internal.Status != StatusLobby {
				return apperr.E(apperr.KindFailedPrecondition, "lobby has already started")
			}
			if len(l.Public.Players) == 0 {
				return apperr.E(apperr.KindFailedPrecondition, "lobby has no players")
			}
			return nil
		},
		func(l *Lobby) {
			ids := make([]string, 0, len(l.Public.Players))
			for id := range l.Public.Players {
				ids = append(ids, id)
			}
			sort.Strings(ids) // map order is not a random source

			l.Public.PlayerOrder = Shuffle(ids)
			l.Public.StartWord = defaultStartWord
			l.Public.Turns = []Turn{{Player: l.Public.PlayerOrder[0]}}

			l.Private = make(map[string]PrivateState, len(ids))
			for _, id := range ids {
				words := make([]string, len(defaultTargetWords))
				copy(words, defaultTargetWords)
				l.Private[id] = PrivateState{TargetWords: words}
			}

			l.Internal.Status = StatusSubmission
		})
	return lobbyID, l, err
}

// SubmitWord records the caller's word for the current turn, advances the
// rotation, and moves the lobby to COMPLETE once every player has submitted
// one word per target word. Returns the lobby id and committed document.
func (s *Service) SubmitWord(ctx context.Context, identity, word string) (string, *Lobby, error) {
	if word == "" || !wordPattern.MatchString(word) {
		return "", nil, apperr.E(apperr.KindInvalidArgument, "word must contain only letters")
	}

	lobbyID, err := s.lookupLobbyID(ctx, identity)
	if err != nil {
		return "", nil, err
	}

	l, err := Update(ctx, s.store, lobbyID,
		func(l *Lobby) error {
			if l.Internal.Status != StatusSubmission {
				return apperr.E(apperr.KindFailedPrecondition, "lobby is not accepting submissions")
			}
			if turn := l.currentTurn(); turn == nil || turn.Player != identity {
				return apperr.E(apperr.KindFailedPrecondition, "it is not your turn")
			}
			return nil
		},
		func(l *Lobby) {
			turn := l.currentTurn()
			turn.SubmittedWord = word

			player := l.Public.Players[identity]
			player.Score++
			l.Public.Players[identity] = player

			totalTurns := len(l.Public.PlayerOrder) * len(defaultTargetWords)
			if len(l.Public.Turns) >= totalTurns {
				l.Internal.Status = StatusComplete
				return
			}
			l.Public.Turns = append(l.Public.Turns, Turn{Player: s.nextPlayer(l, identity)})
		})
	if err != nil {
		return "", nil, err
	}

	if l.Internal.Status == StatusComplete && s.OnComplete != nil {
		s.OnComplete(lobbyID, l)
	}
	return lobbyID, l, nil
}

// nextPlayer returns the identity after current in the player order,
// wrapping at the end.
func (s *Service) nextPlayer(l *Lobby, current string) string {
	order := l.Public.PlayerOrder
	for i, id := range order {
		if id == current {
			return order[(i+1)%len(order)]
		}
	}
	// The current turn always belongs to an ordered player once the game
	// has started; reaching here means the document is corrupt.
	return order[0]
}

// lookupLobbyID resolves the caller's current lobby from the player index.
// A missing entry here is a server-side consistency failure, not user error.
func (s *Service) lookupLobbyID(ctx context.Context, identity string) (string, error) {
	var idx playerIndex
	found, err := s.store.Get(ctx, playerIndexKey(identity), &idx)
	if err != nil {
		return "", err
	}
	if !found || idx.LobbyID == "" {
		return "", apperr.E(apperr.KindInternal, "no lobby membership recorded for caller")
	}
	return idx.LobbyID, nil
}
