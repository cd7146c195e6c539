package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/cookie-tracker/internal/core/domain"
)

func newTestRedisAdapter(t *testing.T) (*RedisAdapter, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisAdapter(client, "test"), client
}

var fireAt = time.Date(2026, time.October, 20, 14, 0, 0, 0, time.UTC)

func TestSchedule_ThenDue(t *testing.T) {
	adapter, _ := newTestRedisAdapter(t)
	ctx := context.Background()

	reminder := domain.Reminder{ID: "order-1", FireAt: fireAt, Title: "Cookie order due soon", Body: "Jane Doe: 12 cookies"}
	require.NoError(t, adapter.Schedule(ctx, reminder))

	// Not due yet
	due, err := adapter.Due(ctx, fireAt.Add(-time.Second))
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = adapter.Due(ctx, fireAt)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, reminder.ID, due[0].ID)
	assert.True(t, reminder.FireAt.Equal(due[0].FireAt))
	assert.Equal(t, reminder.Title, due[0].Title)
	assert.Equal(t, reminder.Body, due[0].Body)

	// Claimed reminders are gone
	due, err = adapter.Due(ctx, fireAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)

	pending, err := adapter.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestSchedule_ReplacesSameID(t *testing.T) {
	adapter, _ := newTestRedisAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Schedule(ctx, domain.Reminder{ID: "order-1", FireAt: fireAt, Body: "old"}))
	require.NoError(t, adapter.Schedule(ctx, domain.Reminder{ID: "order-1", FireAt: fireAt.Add(time.Hour), Body: "new"}))

	pending, err := adapter.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	due, err := adapter.Due(ctx, fireAt)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = adapter.Due(ctx, fireAt.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "new", due[0].Body)
}

func TestCancel(t *testing.T) {
	adapter, client := newTestRedisAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Schedule(ctx, domain.Reminder{ID: "order-1", FireAt: fireAt}))
	require.NoError(t, adapter.Schedule(ctx, domain.Reminder{ID: "order-2", FireAt: fireAt}))

	require.NoError(t, adapter.Cancel(ctx, "order-1"))
	require.NoError(t, adapter.Cancel(ctx, "never-scheduled"))

	exists, err := client.HExists(ctx, "test:reminders:payload", "order-1").Result()
	require.NoError(t, err)
	assert.False(t, exists)

	due, err := adapter.Due(ctx, fireAt)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "order-2", due[0].ID)
}

func TestDue_CorruptPayloadDoesNotDropOthers(t *testing.T) {
	adapter, client := newTestRedisAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Schedule(ctx, domain.Reminder{ID: "good", FireAt: fireAt}))
	require.NoError(t, client.HSet(ctx, "test:reminders:payload", "bad", "{not json").Err())
	require.NoError(t, client.ZAdd(ctx, "test:reminders:schedule", redis.Z{Score: score(fireAt), Member: "bad"}).Err())

	due, err := adapter.Due(ctx, fireAt)
	assert.Error(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "good", due[0].ID)
}

func TestDue_ConcurrentClaimsDeliverOnce(t *testing.T) {
	adapter, _ := newTestRedisAdapter(t)
	ctx := context.Background()

	total := 20
	for i := 0; i < total; i++ {
		r := domain.Reminder{ID: string(rune('a' + i)), FireAt: fireAt}
		require.NoError(t, adapter.Schedule(ctx, r))
	}

	var claimed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			due, err := adapter.Due(ctx, fireAt)
			if err == nil {
				claimed.Add(int32(len(due)))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(total), claimed.Load())
}
