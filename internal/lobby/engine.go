// internal/lobby/engine.go
package lobby

import (
	"context"
	"encoding/json"

	"github.com/HikaruHotta/password-service/internal/apperr"
	"github.com/HikaruHotta/password-service/internal/store"
)

// Update is the shared validate-then-mutate wrapper every lobby state
// transition goes through. The store re-runs the body against the latest
// document whenever a concurrent writer commits first, so validation and
// mutation are atomic with respect to each other: no read-modify-write race
// can slip a mutation past a stale precondition check.
//
// Semantics:
//   - absent document: the body commits the unchanged null value and Update
//     fails with NotFound;
//   - validate error: the body aborts (non-commit) and that error is the
//     final failure;
//   - otherwise mutate edits the decoded snapshot and the result is
//     committed and returned.
func Update(ctx context.Context, st store.Store, lobbyID string, validate func(*Lobby) error, mutate func(*Lobby)) (*Lobby, error) {
	var validationErr error

	res, err := st.Transaction(ctx, lobbyKey(lobbyID), func(current json.RawMessage) (json.RawMessage, error) {
		validationErr = nil
		if current == nil {
			return nil, nil
		}

		var l Lobby
		if err := json.Unmarshal(current, &l); err != nil {
			return nil, err
		}
		if err := validate(&l); err != nil {
			validationErr = err
			return nil, store.ErrAbort
		}
		mutate(&l)
		return json.Marshal(&l)
	})
	if err != nil {
		return nil, err
	}

	if !res.Committed || res.Value == nil {
		if validationErr != nil {
			return nil, validationErr
		}
		// The lobby vanished mid-transaction.
		return nil, apperr.E(apperr.KindNotFound, "lobby %s not found", lobbyID)
	}

	var committed Lobby
	if err := json.Unmarshal(res.Value, &committed); err != nil {
		return nil, err
	}
	return &committed, nil
}
