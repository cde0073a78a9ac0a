package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTriggerFiresOnlyLastCall(t *testing.T) {
	d := New(20 * time.Millisecond)
	var fired atomic.Int32
	got := make(chan string, 3)

	for _, q := range []string{"t", "to", "tom"} {
		q := q
		d.Trigger(func() {
			fired.Add(1)
			got <- q
		})
	}

	select {
	case q := <-got:
		assert.Equal(t, "tom", q)
	case <-time.After(time.Second):
		t.Fatal("debounced call never fired")
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.False(t, d.Pending())
}

func TestCancelDropsScheduledCall(t *testing.T) {
	d := New(10 * time.Millisecond)
	var fired atomic.Bool

	d.Trigger(func() { fired.Store(true) })
	assert.True(t, d.Pending())
	d.Cancel()
	assert.False(t, d.Pending())

	time.Sleep(40 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestStopMakesTriggerNoop(t *testing.T) {
	d := New(5 * time.Millisecond)
	var fired atomic.Bool

	d.Stop()
	d.Trigger(func() { fired.Store(true) })
	assert.False(t, d.Pending())

	time.Sleep(30 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestTriggerAfterFire(t *testing.T) {
	d := New(5 * time.Millisecond)
	done := make(chan struct{}, 2)

	d.Trigger(func() { done <- struct{}{} })
	<-done
	d.Trigger(func() { done <- struct{}{} })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second trigger never fired")
	}
}
