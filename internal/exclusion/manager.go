package exclusion

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/recipelens/backend/internal/types"
)

// Manager runs Session operations against stored sessions. Toggle, Apply
// and RemoveExclusion hold the store lock for the session, so a second
// writer gets ErrBusy. Reset and Close never wait: an update still in flight
// is discarded when it tries to save.
type Manager struct {
	store  Store
	api    Recalculator
	logger *zap.Logger
}

// NewManager creates a Manager.
func NewManager(store Store, api Recalculator, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, api: api, logger: logger}
}

// Open starts a new session for recipe and returns its id.
func (m *Manager) Open(ctx context.Context, recipe *types.Recipe) (string, *State, error) {
	if recipe == nil {
		return "", nil, ErrNotOpen
	}
	id := uuid.NewString()
	state := NewSession(m.api, recipe).Snapshot()
	if err := m.store.Save(ctx, id, state); err != nil {
		return "", nil, err
	}
	m.logger.Debug("opened exclusion session", zap.String("session_id", id), zap.Int64("recipe_id", recipe.ID))
	return id, state, nil
}

// Get returns the stored state of a session.
func (m *Manager) Get(ctx context.Context, id string) (*State, error) {
	return m.store.Load(ctx, id)
}

// Toggle flips ingredientID in the pending set.
func (m *Manager) Toggle(ctx context.Context, id string, ingredientID int64) (*State, error) {
	return m.mutate(ctx, id, func(s *Session) error {
		return s.Toggle(ingredientID)
	})
}

// Apply applies the pending selection.
func (m *Manager) Apply(ctx context.Context, id string) (*State, error) {
	return m.mutate(ctx, id, func(s *Session) error {
		return s.Apply(ctx)
	})
}

// RemoveExclusion drops one applied exclusion.
func (m *Manager) RemoveExclusion(ctx context.Context, id string, ingredientID int64) (*State, error) {
	return m.mutate(ctx, id, func(s *Session) error {
		return s.RemoveExclusion(ctx, ingredientID)
	})
}

// resetAttempts bounds how often Reset reloads after a concurrent write.
const resetAttempts = 3

// Reset restores the original recipe and advances the generation, which
// supersedes any recalculation in flight.
func (m *Manager) Reset(ctx context.Context, id string) (*State, error) {
	for attempt := 0; attempt < resetAttempts; attempt++ {
		stored, err := m.store.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		session := Restore(m.api, stored)
		session.Reset()
		state := session.Snapshot()

		err = m.store.CompareAndSave(ctx, id, state, stored.Generation)
		if errors.Is(err, ErrSuperseded) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return state, nil
	}
	return nil, ErrSuperseded
}

// Close deletes a session. An update in flight fails with
// ErrSessionNotFound instead of bringing it back.
func (m *Manager) Close(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// mutate loads the session, runs fn and saves the result. While fn waits
// for a recalculation the stored state shows it as updating. The state is
// saved even when fn fails so the user-facing error message persists.
func (m *Manager) mutate(ctx context.Context, id string, fn func(*Session) error) (*State, error) {
	unlock, err := m.store.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	stored, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	saveCtx := context.WithoutCancel(ctx)
	generation := stored.Generation
	session := Restore(m.api, stored)
	session.OnUpdate(func(busy *State) {
		if err := m.store.CompareAndSave(saveCtx, id, busy, generation); err != nil {
			m.logger.Debug("could not mark session as updating", zap.String("session_id", id), zap.Error(err))
		}
	})
	opErr := fn(session)
	state := session.Snapshot()

	if errors.Is(opErr, ErrUnknownIngredient) || errors.Is(opErr, ErrNotOpen) {
		return state, opErr
	}
	if err := m.store.CompareAndSave(saveCtx, id, state, generation); err != nil {
		if errors.Is(err, ErrSuperseded) || errors.Is(err, ErrSessionNotFound) {
			m.logger.Debug("discarding exclusion update", zap.String("session_id", id), zap.Error(err))
			return nil, err
		}
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	if opErr != nil {
		m.logger.Debug("exclusion update failed", zap.String("session_id", id), zap.Error(opErr))
	}
	return state, opErr
}
