package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_FanOutInSubscriptionOrder(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe(FavoritesChange, func(p any) { got = append(got, "first") })
	bus.Subscribe(FavoritesChange, func(p any) { got = append(got, "second") })
	bus.Subscribe(RecipeOpenRequest, func(p any) { got = append(got, "other") })

	bus.Publish(FavoritesChange, FavoritesChanged{Count: 1})

	assert.Equal(t, []string{"first", "second"}, got)
}

func TestBus_PayloadDelivered(t *testing.T) {
	bus := NewBus()

	var got RecipeOpen
	bus.Subscribe(RecipeOpenRequest, func(p any) {
		ev, ok := p.(RecipeOpen)
		require.True(t, ok)
		got = ev
	})

	want := RecipeOpen{Key: "flan", Title: "Flan", Image: "flan.jpg"}
	bus.Publish(RecipeOpenRequest, want)

	assert.Equal(t, want, got)
}

func TestBus_NoSubscribersIsDropped(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() { bus.Publish(FavoritesChange, FavoritesChanged{Count: 3}) })
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	unsub := bus.Subscribe(FavoritesChange, func(any) { calls++ })
	keep := bus.Subscribe(FavoritesChange, func(any) { calls += 10 })
	defer keep()

	bus.Publish(FavoritesChange, nil)
	unsub()
	unsub() // second call is a no-op
	bus.Publish(FavoritesChange, nil)

	assert.Equal(t, 21, calls)
	assert.Equal(t, 1, bus.Subscribers(FavoritesChange))
}

func TestBus_SubscribeDuringPublish(t *testing.T) {
	bus := NewBus()

	late := 0
	bus.Subscribe(FavoritesChange, func(any) {
		bus.Subscribe(FavoritesChange, func(any) { late++ })
	})

	bus.Publish(FavoritesChange, nil)
	assert.Equal(t, 0, late, "handlers added mid-publish only see later events")

	bus.Publish(FavoritesChange, nil)
	assert.Equal(t, 1, late)
}
