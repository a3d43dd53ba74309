package database

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"hotelbooking/internal/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ten callers race check-then-insert for the same room and dates inside
// separate transactions; exactly one may win.
func TestConcurrentBooking(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db)
	ctx := context.Background()
	dr := dateRange(t, 10, 13)

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			results <- func() error {
				tx, err := db.BeginTx(ctx)
				if err != nil {
					return err
				}
				defer tx.Rollback()

				busy, err := tx.HasOverlappingBooking(ctx, "r-101", dr, "")
				if err != nil {
					return err
				}
				if busy {
					return apperrors.Conflict("room taken")
				}
				if err := tx.AddBooking(ctx, newBooking(fmt.Sprintf("b-%d", id), "g-1", "r-101", dr)); err != nil {
					return err
				}
				return tx.Commit()
			}()
		}(i)
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
			continue
		}
		assert.True(t, apperrors.IsConflict(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, successCount)

	overlap, err := db.HasOverlappingBooking(ctx, "r-101", dr, "")
	require.NoError(t, err)
	assert.True(t, overlap)
}
