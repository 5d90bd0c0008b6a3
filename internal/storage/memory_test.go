package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/pokeflow/pkg/errors"
	"github.com/JamesPrial/pokeflow/pkg/pokemon"
)

func pikachu() pokemon.Detail {
	return pokemon.Detail{
		Name:     "pikachu",
		Height:   4,
		Weight:   60,
		Types:    []string{"electric"},
		ImageURL: "https://img.test/25.png",
	}
}

func bulbasaur() pokemon.Detail {
	return pokemon.Detail{
		Name:   "bulbasaur",
		Height: 7,
		Weight: 69,
		Types:  []string{"grass", "poison"},
	}
}

// runBackendContract exercises behavior every Backend must share
func runBackendContract(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Run("put and get", func(t *testing.T) {
		backend := newBackend(t)
		ctx := context.Background()

		require.NoError(t, backend.PutDetails(ctx, []pokemon.Detail{pikachu()}))

		got, err := backend.GetDetail(ctx, "pikachu")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, pikachu(), *got)
	})

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		backend := newBackend(t)
		ctx := context.Background()

		require.NoError(t, backend.PutDetails(ctx, []pokemon.Detail{pikachu()}))

		got, err := backend.GetDetail(ctx, "Pikachu")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "pikachu", got.Name)
	})

	t.Run("miss returns nil without error", func(t *testing.T) {
		backend := newBackend(t)

		got, err := backend.GetDetail(context.Background(), "missingno")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("put replaces existing entry", func(t *testing.T) {
		backend := newBackend(t)
		ctx := context.Background()

		require.NoError(t, backend.PutDetails(ctx, []pokemon.Detail{pikachu()}))
		updated := pikachu()
		updated.Weight = 61
		require.NoError(t, backend.PutDetails(ctx, []pokemon.Detail{updated}))

		got, err := backend.GetDetail(ctx, "pikachu")
		require.NoError(t, err)
		assert.Equal(t, 61, got.Weight)

		stats, err := backend.GetStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats["details"])
	})

	t.Run("explicit key keeps detail name", func(t *testing.T) {
		backend := newBackend(t)
		ctx := context.Background()

		deoxys := pokemon.Detail{Name: "deoxys-normal", Height: 17, Weight: 608, Types: []string{"psychic"}}
		require.NoError(t, backend.PutDetail(ctx, "Deoxys", deoxys))

		got, err := backend.GetDetail(ctx, "deoxys")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, deoxys, *got)

		miss, err := backend.GetDetail(ctx, "deoxys-normal")
		require.NoError(t, err)
		assert.Nil(t, miss)

		err = backend.PutDetail(ctx, " ", deoxys)
		assert.True(t, errors.Is(err, errors.ErrCodeValidationRequired))
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		backend := newBackend(t)

		err := backend.PutDetails(context.Background(), []pokemon.Detail{pikachu(), {Name: "  "}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeValidationRequired))

		got, err := backend.GetDetail(context.Background(), "pikachu")
		require.NoError(t, err)
		assert.Nil(t, got, "a rejected batch stores nothing")
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		backend := newBackend(t)
		assert.NoError(t, backend.PutDetails(context.Background(), nil))
	})

	t.Run("statistics count types", func(t *testing.T) {
		backend := newBackend(t)
		ctx := context.Background()

		require.NoError(t, backend.PutDetails(ctx, []pokemon.Detail{pikachu(), bulbasaur()}))

		stats, err := backend.GetStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{
			"details":       2,
			"type_electric": 1,
			"type_grass":    1,
			"type_poison":   1,
		}, stats)
	})

	t.Run("empty types survive a round trip", func(t *testing.T) {
		backend := newBackend(t)
		ctx := context.Background()

		require.NoError(t, backend.PutDetails(ctx, []pokemon.Detail{{Name: "ditto", Height: 3, Weight: 40}}))

		got, err := backend.GetDetail(ctx, "ditto")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Empty(t, got.Types)
	})
}

func TestMemoryBackend_Contract(t *testing.T) {
	runBackendContract(t, func(t *testing.T) Backend {
		return NewMemoryBackend()
	})
}

func TestMemoryBackend_ReturnsCopies(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()

	d := bulbasaur()
	require.NoError(t, backend.PutDetails(ctx, []pokemon.Detail{d}))
	d.Types[0] = "fire"

	got, err := backend.GetDetail(ctx, "bulbasaur")
	require.NoError(t, err)
	assert.Equal(t, "grass", got.Types[0])

	got.Types[1] = "water"
	again, err := backend.GetDetail(ctx, "bulbasaur")
	require.NoError(t, err)
	assert.Equal(t, "poison", again.Types[1])
}

func TestMemoryBackend_CanceledContext(t *testing.T) {
	backend := NewMemoryBackend()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, backend.PutDetails(ctx, []pokemon.Detail{pikachu()}), context.Canceled)

	_, err := backend.GetDetail(ctx, "pikachu")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = backend.GetStatistics(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryBackend_ConcurrentAccess(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, backend.PutDetails(ctx, []pokemon.Detail{pikachu()}))
		}()
		go func() {
			defer wg.Done()
			_, err := backend.GetDetail(ctx, "pikachu")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats, err := backend.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats["details"])
}
