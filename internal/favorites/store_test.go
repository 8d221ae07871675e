package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recetas/internal/events"
	"recetas/internal/storage"
	"recetas/pkg/models"
)

const scope = "0b8f5a0e-7f4e-4d8a-9c1d-5b7a2f3e9c10"

func newStore(t *testing.T) (*Store, storage.Store, *events.Bus) {
	t.Helper()
	kv := storage.NewMemStore()
	bus := events.NewBus()
	return New(kv, scope, bus), kv, bus
}

func TestToggle_Scenario(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t)

	on, err := s.Toggle(ctx, "pollo-al-limon", models.FavoriteMeta{Title: "Pollo al Limón", Image: "p.jpg"})
	require.NoError(t, err)
	assert.True(t, on)

	want := []models.FavoriteEntry{{Key: "pollo-al-limon", Title: "Pollo al Limón", Image: "p.jpg"}}
	if diff := cmp.Diff(want, s.List(ctx)); diff != "" {
		t.Fatalf("List mismatch (-want +got):\n%s", diff)
	}
}

func TestToggle_Parity(t *testing.T) {
	ctx := context.Background()

	for n := 1; n <= 6; n++ {
		t.Run(fmt.Sprintf("%d toggles", n), func(t *testing.T) {
			s, _, _ := newStore(t)
			var last bool
			for i := 0; i < n; i++ {
				var err error
				last, err = s.Toggle(ctx, "flan", models.FavoriteMeta{Title: "Flan"})
				require.NoError(t, err)
			}

			odd := n%2 == 1
			assert.Equal(t, odd, last)
			assert.Equal(t, odd, s.IsFavorite(ctx, "flan"))

			_, listed := s.Get(ctx, "flan")
			assert.Equal(t, odd, listed)
			assert.Equal(t, map[bool]int{true: 1, false: 0}[odd], len(s.List(ctx)))
		})
	}
}

func TestToggle_FallbackMeta(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t)

	_, err := s.Toggle(ctx, "budin", models.FavoriteMeta{})
	require.NoError(t, err)

	got, ok := s.Get(ctx, "budin")
	require.True(t, ok)
	assert.Equal(t, models.FavoriteEntry{Key: "budin", Title: "budin", Image: ""}, got)
}

func TestToggle_WritesBothKeysBeforeNotifying(t *testing.T) {
	ctx := context.Background()
	s, kv, bus := newStore(t)

	type seen struct {
		count int
		keys  []string
		meta  map[string]models.FavoriteMeta
	}
	var got []seen
	bus.Subscribe(events.FavoritesChange, func(payload any) {
		ev := payload.(events.FavoritesChanged)
		assert.Equal(t, scope, ev.Scope)

		rawKeys, _, _ := kv.Get(ctx, scope, KeysKey)
		rawMeta, _, _ := kv.Get(ctx, scope, MetaKey)

		var sn seen
		sn.count = ev.Count
		require.NoError(t, json.Unmarshal([]byte(rawKeys), &sn.keys))
		require.NoError(t, json.Unmarshal([]byte(rawMeta), &sn.meta))
		got = append(got, sn)
	})

	_, err := s.Toggle(ctx, "flan", models.FavoriteMeta{Title: "Flan", Image: "f.jpg"})
	require.NoError(t, err)
	_, err = s.Toggle(ctx, "budin", models.FavoriteMeta{Title: "Budín"})
	require.NoError(t, err)
	_, err = s.Toggle(ctx, "flan", models.FavoriteMeta{})
	require.NoError(t, err)

	want := []seen{
		{count: 1, keys: []string{"flan"}, meta: map[string]models.FavoriteMeta{"flan": {Title: "Flan", Image: "f.jpg"}}},
		{count: 2, keys: []string{"flan", "budin"}, meta: map[string]models.FavoriteMeta{
			"flan":  {Title: "Flan", Image: "f.jpg"},
			"budin": {Title: "Budín"},
		}},
		{count: 1, keys: []string{"budin"}, meta: map[string]models.FavoriteMeta{"budin": {Title: "Budín"}}},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(seen{})); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestMalformedDataIsEmpty(t *testing.T) {
	ctx := context.Background()

	tests := map[string]map[string]string{
		"keys not json":   {KeysKey: "{not json", MetaKey: `{}`},
		"keys not array":  {KeysKey: `{"flan": true}`},
		"meta not object": {KeysKey: `["flan"]`, MetaKey: `[1,2]`},
		"mixed array":     {KeysKey: `["flan", 3]`},
		"null":            {KeysKey: `null`, MetaKey: `null`},
	}

	for name, values := range tests {
		t.Run(name, func(t *testing.T) {
			s, kv, _ := newStore(t)
			require.NoError(t, kv.SetMany(ctx, scope, values))

			list := s.List(ctx)
			if name == "meta not object" {
				// keys survive, display data falls back to the key
				assert.Equal(t, []models.FavoriteEntry{{Key: "flan", Title: "flan"}}, list)
				return
			}
			assert.Empty(t, list)
			assert.False(t, s.IsFavorite(ctx, "flan"))
			assert.Equal(t, 0, s.Count(ctx))
		})
	}
}

func TestMalformedDataRecoversOnToggle(t *testing.T) {
	ctx := context.Background()
	s, kv, _ := newStore(t)
	require.NoError(t, kv.SetMany(ctx, scope, map[string]string{KeysKey: "??", MetaKey: "??"}))

	on, err := s.Toggle(ctx, "flan", models.FavoriteMeta{Title: "Flan"})
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, []models.FavoriteEntry{{Key: "flan", Title: "Flan"}}, s.List(ctx))
}

func TestOrphanedMetadataIsDropped(t *testing.T) {
	ctx := context.Background()
	s, kv, _ := newStore(t)
	require.NoError(t, kv.SetMany(ctx, scope, map[string]string{
		KeysKey: `["flan", "flan"]`,
		MetaKey: `{"flan": {"title": "Flan"}, "viejo": {"title": "Viejo"}}`,
	}))
	assert.Equal(t, 1, s.Count(ctx), "duplicates collapse")

	_, err := s.Toggle(ctx, "budin", models.FavoriteMeta{Title: "Budín"})
	require.NoError(t, err)

	raw, _, err := kv.Get(ctx, scope, MetaKey)
	require.NoError(t, err)
	var meta map[string]models.FavoriteMeta
	require.NoError(t, json.Unmarshal([]byte(raw), &meta))
	assert.Len(t, meta, 2)
	assert.NotContains(t, meta, "viejo")
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	s, _, bus := newStore(t)

	var counts []int
	bus.Subscribe(events.FavoritesChange, func(payload any) {
		counts = append(counts, payload.(events.FavoritesChanged).Count)
	})

	for _, k := range []string{"flan", "budin", "alfajores"} {
		_, err := s.Toggle(ctx, k, models.FavoriteMeta{})
		require.NoError(t, err)
	}

	removed, err := s.Remove(ctx, "budin")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Remove(ctx, "budin")
	require.NoError(t, err)
	assert.False(t, removed, "second remove is a no-op")

	require.NoError(t, s.Clear(ctx))
	assert.Empty(t, s.List(ctx))
	assert.Equal(t, []int{1, 2, 3, 2, 0}, counts)
}

func TestScopesAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemStore(), events.NewBus())

	a, b := svc.Scope("a"), svc.Scope("b")
	_, err := a.Toggle(ctx, "flan", models.FavoriteMeta{})
	require.NoError(t, err)

	assert.True(t, a.IsFavorite(ctx, "flan"))
	assert.False(t, b.IsFavorite(ctx, "flan"))
}

func TestConcurrentTogglesDoNotLoseWrites(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemStore(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.Scope(scope).Toggle(ctx, fmt.Sprintf("receta-%02d", i), models.FavoriteMeta{})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, svc.Scope(scope).Count(ctx))
}

func TestSubscriberMayUseStoreFromHandler(t *testing.T) {
	ctx := context.Background()
	s, _, bus := newStore(t)

	var counts []int
	bus.Subscribe(events.FavoritesChange, func(payload any) {
		counts = append(counts, s.Count(ctx))
		if payload.(events.FavoritesChanged).Count == 1 {
			_, err := s.Toggle(ctx, "budin", models.FavoriteMeta{})
			assert.NoError(t, err)
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := s.Toggle(ctx, "flan", models.FavoriteMeta{})
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Toggle blocked while a subscriber used the store")
	}
	assert.Equal(t, []int{1, 2}, counts)
	assert.Equal(t, 2, s.Count(ctx))
}

func TestTogglesSurviveWatchedFileStore(t *testing.T) {
	kv, err := storage.OpenFile(filepath.Join(t.TempDir(), "favoritos.json"))
	require.NoError(t, err)
	svc := NewService(kv, events.NewBus())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- kv.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	const n = 300
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			on, err := svc.Scope(scope).Toggle(ctx, fmt.Sprintf("receta-%03d", i), models.FavoriteMeta{})
			assert.NoError(t, err)
			assert.True(t, on)
		}()
	}
	wg.Wait()

	time.Sleep(300 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Len(t, svc.Scope(scope).List(context.Background()), n)
}
