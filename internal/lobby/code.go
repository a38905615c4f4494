// internal/lobby/code.go
package lobby

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"time"

	"github.com/HikaruHotta/password-service/internal/apperr"
	"github.com/HikaruHotta/password-service/internal/store"
)

const (
	codeLength = 4
	codeChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// codeExpiry is how old a code mapping must be before the code may be
	// handed to a new lobby. Entries are never deleted, only overwritten.
	codeExpiry = time.Hour

	// allocateAttempts bounds candidate generation inside one transaction
	// body. It does not bound store-level transaction retries.
	allocateAttempts = 1000

	codeMapKey = "lobbyCodes"
)

// GenerateCode produces a random 4-letter lobby code. Collisions are
// expected; the registry resolves them.
func GenerateCode() string {
	var b [codeLength]byte
	for i := range b {
		b[i] = codeChars[rand.Intn(len(codeChars))]
	}
	return string(b[:])
}

type codeEntry struct {
	LobbyID string `json:"lobbyId"`
	Created int64  `json:"created"`
}

// codeMap is the single shared code-allocation document.
type codeMap struct {
	Codes      map[string]codeEntry `json:"codes"`
	MostRecent string               `json:"mostRecent,omitempty"`
}

// CodeRegistry maps short human-readable codes to lobby ids through one
// shared store document.
type CodeRegistry struct {
	store store.Store

	// generate is swappable so tests can force collisions.
	generate func() string
}

func NewCodeRegistry(st store.Store) *CodeRegistry {
	return &CodeRegistry{store: st, generate: GenerateCode}
}

// Allocate reserves a fresh code for lobbyID. A candidate is accepted when it
// is absent from the map or its existing mapping is older than codeExpiry.
// After allocateAttempts colliding candidates the transaction aborts and the
// map is left unchanged.
func (r *CodeRegistry) Allocate(ctx context.Context, lobbyID string, now time.Time) (string, error) {
	nowMillis := now.UnixMilli()

	res, err := r.store.Transaction(ctx, codeMapKey, func(current json.RawMessage) (json.RawMessage, error) {
		m := codeMap{Codes: make(map[string]codeEntry)}
		if current != nil {
			if err := json.Unmarshal(current, &m); err != nil {
				return nil, err
			}
			if m.Codes == nil {
				m.Codes = make(map[string]codeEntry)
			}
		}

		for i := 0; i < allocateAttempts; i++ {
			code := r.generate()
			if entry, taken := m.Codes[code]; taken && nowMillis-entry.Created < codeExpiry.Milliseconds() {
				continue
			}
			m.Codes[code] = codeEntry{LobbyID: lobbyID, Created: nowMillis}
			m.MostRecent = code
			return json.Marshal(m)
		}
		return nil, apperr.E(apperr.KindResourceExhausted,
			"no free lobby code after %d attempts", allocateAttempts)
	})
	if err != nil {
		return "", err
	}
	if !res.Committed || res.Value == nil {
		return "", apperr.E(apperr.KindInternal, "code allocation did not commit")
	}

	var committed codeMap
	if err := json.Unmarshal(res.Value, &committed); err != nil {
		return "", err
	}
	return committed.MostRecent, nil
}

// Resolve looks up the lobby id behind a code. Lookup is case-insensitive;
// codes are stored uppercase.
func (r *CodeRegistry) Resolve(ctx context.Context, code string) (string, error) {
	code = strings.ToUpper(code)

	var m codeMap
	found, err := r.store.Get(ctx, codeMapKey, &m)
	if err != nil {
		return "", err
	}
	if found {
		if entry, ok := m.Codes[code]; ok {
			return entry.LobbyID, nil
		}
	}
	return "", apperr.E(apperr.KindNotFound, "unknown lobby code %q", code)
}
