// Package detail loads a single recipe. A newer load cancels the one in
// flight, so a slow response for an old id can never replace newer state.
package detail

import (
	"context"
	"sync"

	"github.com/pageza/recipelens/backend/internal/httpclient"
	"github.com/pageza/recipelens/backend/internal/types"
)

// Fetcher retrieves a recipe by id.
type Fetcher interface {
	GetRecipe(ctx context.Context, id int64) (*types.Recipe, error)
}

// State is a snapshot of the loader.
type State struct {
	ID      int64
	Loading bool
	Err     string
	Recipe  *types.Recipe
}

// Loader is safe for concurrent use.
type Loader struct {
	fetcher  Fetcher
	onChange func(State)

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
}

// NewLoader creates a Loader. onChange, when non-nil, is called after every
// committed state change.
func NewLoader(fetcher Fetcher, onChange func(State)) *Loader {
	return &Loader{fetcher: fetcher, onChange: onChange}
}

// State returns the current snapshot.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Load fetches id, cancelling any fetch still in flight. It returns the
// committed state, or the context error if this load was superseded or its
// context was cancelled.
func (l *Loader) Load(ctx context.Context, id int64) (State, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	l.cancel = cancel
	l.state = State{ID: id, Loading: true}
	loading := l.state
	l.mu.Unlock()
	l.notify(loading)

	recipe, err := l.fetcher.GetRecipe(ctx, id)

	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return State{}, context.Canceled
	}
	l.cancel = nil
	if err != nil && httpclient.IsCanceled(err) {
		// Cancellation is not an error.
		l.state = State{ID: id}
		committed := l.state
		l.mu.Unlock()
		l.notify(committed)
		return committed, err
	}
	if err != nil {
		l.state = State{ID: id, Err: httpclient.UserMessage(err)}
	} else {
		l.state = State{ID: id, Recipe: recipe}
	}
	committed := l.state
	l.mu.Unlock()

	l.notify(committed)
	return committed, err
}

// Retry reloads the last requested id.
func (l *Loader) Retry(ctx context.Context) (State, error) {
	l.mu.Lock()
	id := l.state.ID
	l.mu.Unlock()
	return l.Load(ctx, id)
}

// Cancel aborts any fetch in flight.
func (l *Loader) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
		l.gen++
		l.state.Loading = false
	}
}

func (l *Loader) notify(s State) {
	if l.onChange != nil {
		l.onChange(s)
	}
}
