package detail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pageza/recipelens/backend/internal/httpclient"
	"github.com/pageza/recipelens/backend/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeFetcher blocks each id until released and honours cancellation.
type fakeFetcher struct {
	mu       sync.Mutex
	release  map[int64]chan struct{}
	errs     map[int64]error
	started  chan int64
	canceled chan int64
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		release:  make(map[int64]chan struct{}),
		errs:     make(map[int64]error),
		started:  make(chan int64, 10),
		canceled: make(chan int64, 10),
	}
}

func (f *fakeFetcher) gate(id int64) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.release[id]
	if !ok {
		ch = make(chan struct{})
		f.release[id] = ch
	}
	return ch
}

func (f *fakeFetcher) GetRecipe(ctx context.Context, id int64) (*types.Recipe, error) {
	f.started <- id
	select {
	case <-f.gate(id):
	case <-ctx.Done():
		f.canceled <- id
		return nil, ctx.Err()
	}
	f.mu.Lock()
	err := f.errs[id]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &types.Recipe{ID: id, Title: "recipe"}, nil
}

func TestLoadCommitsRecipe(t *testing.T) {
	f := newFakeFetcher()
	close(f.gate(1))

	var changes []State
	l := NewLoader(f, func(s State) { changes = append(changes, s) })

	state, err := l.Load(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, state.Loading)
	assert.Equal(t, int64(1), state.Recipe.ID)
	assert.Equal(t, state, l.State())

	require.Len(t, changes, 2)
	assert.True(t, changes[0].Loading)
	assert.False(t, changes[1].Loading)
}

func TestNewerLoadCancelsOlder(t *testing.T) {
	f := newFakeFetcher()
	l := NewLoader(f, nil)

	firstDone := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), 1)
		firstDone <- err
	}()
	assert.Equal(t, int64(1), <-f.started)

	close(f.gate(2))
	state, err := l.Load(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), state.Recipe.ID)

	assert.Equal(t, int64(1), <-f.canceled)
	assert.ErrorIs(t, <-firstDone, context.Canceled)

	// The stale load must not have overwritten the newer result.
	assert.Equal(t, int64(2), l.State().Recipe.ID)
	assert.Empty(t, l.State().Err)
}

func TestLoadErrorClearsRecipe(t *testing.T) {
	f := newFakeFetcher()
	close(f.gate(1))
	close(f.gate(2))
	f.errs[2] = &httpclient.NetworkError{Err: errors.New("connection refused")}
	l := NewLoader(f, nil)

	_, err := l.Load(context.Background(), 1)
	require.NoError(t, err)

	state, err := l.Load(context.Background(), 2)
	require.Error(t, err)
	assert.Nil(t, state.Recipe)
	assert.Equal(t, httpclient.ConnectionMessage, state.Err)
}

func TestCallerCancellationSurfacesNoError(t *testing.T) {
	f := newFakeFetcher()
	l := NewLoader(f, nil)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		<-f.started
		cancel()
	}()
	state, err := l.Load(ctx, 3)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, state.Err)
	assert.False(t, state.Loading)
	assert.Nil(t, state.Recipe)
}

func TestRetryReloadsLastID(t *testing.T) {
	f := newFakeFetcher()
	close(f.gate(4))
	f.errs[4] = errors.New("temporary")
	l := NewLoader(f, nil)

	state, _ := l.Load(context.Background(), 4)
	assert.Equal(t, "temporary", state.Err)

	f.mu.Lock()
	delete(f.errs, 4)
	f.mu.Unlock()

	state, err := l.Retry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), state.Recipe.ID)
}

func TestCancelAbortsInFlight(t *testing.T) {
	f := newFakeFetcher()
	l := NewLoader(f, nil)

	done := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), 5)
		done <- err
	}()
	<-f.started
	l.Cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("load was not cancelled")
	}
	assert.False(t, l.State().Loading)
}
