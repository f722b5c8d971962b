package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/flipcards/internal/game"
)

func sampleState() game.State {
	s := game.New(game.Deck{{Color: "rgb(1, 2, 3)"}, {Color: "rgb(1, 2, 3)"}})
	s, _ = game.Flip(s, 0)
	s.Score = -5
	s.Round = 2
	s.Epoch = 7
	return s
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sq,
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			want := sampleState()
			require.NoError(t, st.Save(ctx, "s1", want))

			got, err := st.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			first := sampleState()
			require.NoError(t, st.Save(ctx, "s1", first))

			second := first
			second.Score = 99
			require.NoError(t, st.Save(ctx, "s1", second))

			got, err := st.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, 99, got.Score)
		})
	}
}

func TestStore_NotFoundAndDelete(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := st.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, st.Save(ctx, "s1", sampleState()))
			require.NoError(t, st.Delete(ctx, "s1"))
			_, err = st.Get(ctx, "s1")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.NoError(t, st.Delete(ctx, "s1"))
		})
	}
}

func TestMemory_SaveCopiesCards(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	s := sampleState()
	require.NoError(t, st.Save(ctx, "s1", s))

	s.Cards[0].Color = "changed"
	got, err := st.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "rgb(1, 2, 3)", got.Cards[0].Color)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "again.db")
	first, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(context.Background(), "s1", sampleState()))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(path)
	require.NoError(t, err)
	defer second.Close()
	_, err = second.Get(context.Background(), "s1")
	assert.NoError(t, err)
}
