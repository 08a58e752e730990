package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-agrisense/infrastructure/store/storetest"
	"github.com/ahrav/go-agrisense/internal/ports"
)

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Store { return New() })
}

func TestStore_CanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.RunInTransaction(ctx, func(ports.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStore_ConcurrentTransactionsSerialize(t *testing.T) {
	s := New()
	const workers = 32

	var wg sync.WaitGroup
	ids := make(chan uint64, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RunInTransaction(context.Background(), func(tx ports.Tx) error {
				id, err := tx.NextRecommendationID()
				if err != nil {
					return err
				}
				ids <- id
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool, workers)
	for id := range ids {
		require.False(t, seen[id], "id %d allocated twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers)
	for id := uint64(1); id <= workers; id++ {
		assert.True(t, seen[id], "id %d missing", id)
	}
}
