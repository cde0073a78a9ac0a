// Package exclusion tracks which ingredients a user has excluded from a
// recipe and keeps the displayed recipe in step with the catalog's
// recalculated nutrition.
//
// A Session holds two sets. The pending set is what the user has selected
// but not yet applied. The cumulative set is everything applied so far across
// rounds. Applying merges pending into cumulative and clears pending.
package exclusion

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/pageza/recipelens/backend/internal/httpclient"
	"github.com/pageza/recipelens/backend/internal/types"
)

// NoSelectionMessage is shown when Apply is called with nothing selected.
const NoSelectionMessage = "Please select at least one ingredient to exclude."

var (
	// ErrNoSelection is returned by Apply when the pending set is empty.
	ErrNoSelection = errors.New("no ingredients selected for exclusion")
	// ErrBusy is returned when a recalculation is already in flight.
	ErrBusy = errors.New("an exclusion update is already in progress")
	// ErrSuperseded is returned when Reset or Open ran while a recalculation
	// was in flight; its result is discarded.
	ErrSuperseded = errors.New("exclusion state changed during the update")
	// ErrNotOpen is returned when no recipe has been opened.
	ErrNotOpen = errors.New("no recipe is open")
	// ErrUnknownIngredient is returned when toggling an id the recipe lacks.
	ErrUnknownIngredient = errors.New("ingredient is not part of this recipe")
)

// Recalculator recomputes a recipe without the given ingredients.
type Recalculator interface {
	ExcludeIngredients(ctx context.Context, recipeID int64, ingredientIDs []int64) (*types.Recipe, error)
}

// State is a serialisable snapshot of a Session.
type State struct {
	Original      *types.Recipe      `json:"original"`
	Recipe        *types.Recipe      `json:"recipe"`
	Pending       []int64            `json:"pending"`
	Cumulative    []int64            `json:"cumulative"`
	Excluded      []types.Ingredient `json:"excluded"`
	NewlyExcluded []int64            `json:"newlyExcluded"`
	IsUpdating    bool               `json:"isUpdating"`
	Error         string             `json:"error,omitempty"`
	// Generation advances on every Open and Reset.
	Generation    uint64             `json:"generation"`
}

// Session is safe for concurrent use. Overlapping Apply and RemoveExclusion
// calls are rejected with ErrBusy rather than queued.
type Session struct {
	api Recalculator

	mu         sync.Mutex
	original   *types.Recipe
	recipe     *types.Recipe
	pending    map[int64]struct{}
	cumulative map[int64]struct{}
	excluded   []types.Ingredient
	newly      []int64
	updating   bool
	errMsg     string
	gen        uint64
	onUpdate   func(*State)
}

// NewSession creates a Session for recipe. recipe may be nil and opened
// later.
func NewSession(api Recalculator, recipe *types.Recipe) *Session {
	s := &Session{api: api}
	s.Open(recipe)
	return s
}

// Restore rebuilds a Session from a snapshot. The busy flag is not restored.
func Restore(api Recalculator, state *State) *Session {
	s := &Session{
		api:        api,
		original:   state.Original,
		recipe:     state.Recipe,
		pending:    toSet(state.Pending),
		cumulative: toSet(state.Cumulative),
		excluded:   slices.Clone(state.Excluded),
		newly:      slices.Clone(state.NewlyExcluded),
		errMsg:     state.Error,
		gen:        state.Generation,
	}
	if s.recipe == nil {
		s.recipe = s.original
	}
	return s
}

// Open switches the session to recipe and resets all exclusion state. Any
// recalculation still in flight is discarded.
func (s *Session) Open(recipe *types.Recipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.original = recipe
	s.resetLocked()
}

// Toggle flips id in the pending set.
func (s *Session) Toggle(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.original == nil {
		return ErrNotOpen
	}
	if _, ok := s.original.Ingredient(id); !ok {
		return ErrUnknownIngredient
	}
	if _, ok := s.pending[id]; ok {
		delete(s.pending, id)
	} else {
		s.pending[id] = struct{}{}
	}
	s.errMsg = ""
	return nil
}

// Apply merges pending into cumulative and asks the catalog to recalculate
// with the full cumulative list. Nothing is applied when the call fails.
func (s *Session) Apply(ctx context.Context) error {
	s.mu.Lock()
	if s.original == nil {
		s.mu.Unlock()
		return ErrNotOpen
	}
	if s.updating {
		s.mu.Unlock()
		return ErrBusy
	}
	if len(s.pending) == 0 {
		s.errMsg = NoSelectionMessage
		s.mu.Unlock()
		return ErrNoSelection
	}

	union := make(map[int64]struct{}, len(s.cumulative)+len(s.pending))
	var newly []int64
	for id := range s.cumulative {
		union[id] = struct{}{}
	}
	for id := range s.pending {
		if _, ok := s.cumulative[id]; !ok {
			newly = append(newly, id)
		}
		union[id] = struct{}{}
	}
	slices.Sort(newly)

	gen, recipeID := s.beginLocked()
	busy, notify := s.snapshotLocked(), s.onUpdate
	s.mu.Unlock()
	if notify != nil {
		notify(busy)
	}

	recipe, err := s.api.ExcludeIngredients(ctx, recipeID, sortedIDs(union))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.finishLocked(gen, err); err != nil {
		return err
	}
	s.cumulative = union
	s.pending = make(map[int64]struct{})
	s.recipe = recipe
	s.newly = newly
	s.excluded = s.excludedLocked()
	return nil
}

// RemoveExclusion drops id from the cumulative set. Removing the last one
// restores the original recipe without a network call.
func (s *Session) RemoveExclusion(ctx context.Context, id int64) error {
	s.mu.Lock()
	if s.original == nil {
		s.mu.Unlock()
		return ErrNotOpen
	}
	if s.updating {
		s.mu.Unlock()
		return ErrBusy
	}
	if _, ok := s.cumulative[id]; !ok {
		s.mu.Unlock()
		return nil
	}

	reduced := make(map[int64]struct{}, len(s.cumulative))
	for other := range s.cumulative {
		if other != id {
			reduced[other] = struct{}{}
		}
	}
	if len(reduced) == 0 {
		s.resetLocked()
		s.mu.Unlock()
		return nil
	}

	gen, recipeID := s.beginLocked()
	busy, notify := s.snapshotLocked(), s.onUpdate
	s.mu.Unlock()
	if notify != nil {
		notify(busy)
	}

	recipe, err := s.api.ExcludeIngredients(ctx, recipeID, sortedIDs(reduced))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.finishLocked(gen, err); err != nil {
		return err
	}
	s.cumulative = reduced
	s.recipe = recipe
	s.newly = nil
	s.excluded = s.excludedLocked()
	return nil
}

// Reset clears every set and restores the original recipe.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Recipe returns the displayed recipe. It is the original recipe itself
// while nothing is excluded. Callers must not modify it.
func (s *Session) Recipe() *types.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recipe
}

// Original returns the unmodified recipe.
func (s *Session) Original() *types.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.original
}

// IsUpdating reports whether a recalculation is in flight.
func (s *Session) IsUpdating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updating
}

// OnUpdate registers fn to receive the busy state each time a
// recalculation starts.
func (s *Session) OnUpdate(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = fn
}

// Snapshot returns the current state.
func (s *Session) Snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() *State {
	return &State{
		Original:      s.original,
		Recipe:        s.recipe,
		Pending:       sortedIDs(s.pending),
		Cumulative:    sortedIDs(s.cumulative),
		Excluded:      slices.Clone(s.excluded),
		NewlyExcluded: slices.Clone(s.newly),
		IsUpdating:    s.updating,
		Error:         s.errMsg,
		Generation:    s.gen,
	}
}

func (s *Session) beginLocked() (uint64, int64) {
	s.updating = true
	s.errMsg = ""
	return s.gen, s.original.ID
}

// finishLocked clears the busy flag and records a failure. It returns
// non-nil when the caller must not commit the result.
func (s *Session) finishLocked(gen uint64, err error) error {
	if gen != s.gen {
		return ErrSuperseded
	}
	s.updating = false
	if err != nil {
		s.errMsg = httpclient.UserMessage(err)
		return err
	}
	return nil
}

func (s *Session) resetLocked() {
	s.gen++
	s.recipe = s.original
	s.pending = make(map[int64]struct{})
	s.cumulative = make(map[int64]struct{})
	s.excluded = nil
	s.newly = nil
	s.updating = false
	s.errMsg = ""
}

// excludedLocked lists the excluded ingredients in recipe order.
func (s *Session) excludedLocked() []types.Ingredient {
	var out []types.Ingredient
	for _, ing := range s.original.Ingredients {
		if _, ok := s.cumulative[ing.ID]; ok {
			out = append(out, ing)
		}
	}
	return out
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortedIDs(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
