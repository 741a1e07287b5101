package payments

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFields(intentID string, amount int64) RecordFields {
	return RecordFields{
		PaymentIntentID: intentID,
		Amount:          amount,
		Currency:        "eur",
		Status:          StatusPending,
		PaidBy:          "buyer-1",
		PaidTo:          "producer-1",
		PaymentDate:     time.Now(),
	}
}

func TestUpsertCreatesThenOverwrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.UpsertByOrderID(ctx, "O1", testFields("pi_1", 1000))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), first.Amount)

	second, err := store.UpsertByOrderID(ctx, "O1", testFields("pi_1", 2500))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(2500), second.Amount)
	assert.Equal(t, 1, store.Len())
}

func TestUpsertUniquenessUnderConcurrentWriters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := store.UpsertByOrderID(ctx, "O1", testFields("pi_1", int64(100+n)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.Len())

	rec, err := store.FindByOrderID(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, "pi_1", rec.PaymentIntentID)
}

func TestUpsertKeepsOrdersIndependent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		orderID := fmt.Sprintf("O%d", i)
		_, err := store.UpsertByOrderID(ctx, orderID, testFields(fmt.Sprintf("pi_%d", i), 1000))
		require.NoError(t, err)
	}

	assert.Equal(t, 5, store.Len())
}

func TestApplySignalMissingRecord(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.ApplySignal(context.Background(), "pi_unknown", SignalSucceeded, "")
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestApplySignalConvergesRegardlessOfOrder(t *testing.T) {
	ctx := context.Background()

	for name, sigs := range map[string][]Signal{
		"processing then succeeded": {SignalProcessing, SignalSucceeded},
		"succeeded then processing": {SignalSucceeded, SignalProcessing},
	} {
		store := NewMemoryStore()
		_, err := store.UpsertByOrderID(ctx, "O1", testFields("pi_1", 1000))
		require.NoError(t, err)

		for _, sig := range sigs {
			_, err := store.ApplySignal(ctx, "pi_1", sig, "")
			require.NoError(t, err, name)
		}

		rec, err := store.FindByPaymentIntentID(ctx, "pi_1")
		require.NoError(t, err)
		assert.Equal(t, string(StatusSucceeded), rec.Status, name)
		assert.Empty(t, rec.ErrorMessage, name)
	}
}

func TestApplySignalRefundAfterSuccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.UpsertByOrderID(ctx, "O1", testFields("pi_1", 1000))
	require.NoError(t, err)

	_, err = store.ApplySignal(ctx, "pi_1", SignalSucceeded, "")
	require.NoError(t, err)

	rec, err := store.ApplySignal(ctx, "pi_1", SignalRefunded, "")
	require.NoError(t, err)
	assert.Equal(t, string(StatusFailed), rec.Status)
	assert.Equal(t, RefundedMessage, rec.ErrorMessage)
}
