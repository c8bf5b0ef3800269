package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_FanOut(t *testing.T) {
	b := New[int](4)
	defer b.Close()

	ctx := context.Background()
	a := b.Subscribe(ctx)
	c := b.Subscribe(ctx)
	require.Equal(t, 2, b.Subscribers())

	b.Publish(7)

	assert.Equal(t, 7, <-a)
	assert.Equal(t, 7, <-c)
}

func TestBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := New[int](1)
	defer b.Close()

	ch := b.Subscribe(context.Background())
	b.Publish(1)
	b.Publish(2)

	assert.Equal(t, 1, <-ch)
	assert.EqualValues(t, 1, b.Dropped())
}

func TestBroker_UnsubscribeOnCancel(t *testing.T) {
	b := New[string](0)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	assert.Eventually(t, func() bool { return b.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestBroker_Close(t *testing.T) {
	b := New[int](0)
	ch := b.Subscribe(context.Background())

	b.Close()
	b.Close()

	_, ok := <-ch
	assert.False(t, ok)

	late := b.Subscribe(context.Background())
	_, ok = <-late
	assert.False(t, ok)

	b.Publish(1)
}
