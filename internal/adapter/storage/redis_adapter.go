package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/cookie-tracker/internal/core/domain"
)

const (
	defaultKeyPrefix = "cookie-tracker"
	dueBatchSize     = 100
)

// claimDueScript pops due reminder IDs from the schedule and their payloads
// from the hash in one step so two workers never deliver the same reminder.
var claimDueScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', '0', ARGV[2])
local out = {}
for _, id in ipairs(ids) do
	local payload = redis.call('HGET', KEYS[2], id)
	redis.call('ZREM', KEYS[1], id)
	redis.call('HDEL', KEYS[2], id)
	if payload then
		table.insert(out, payload)
	end
end
return out
`)

type reminderPayload struct {
	ID     string    `json:"id"`
	FireAt time.Time `json:"fire_at"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
}

// RedisAdapter keeps pending reminders in a sorted set scored by fire time,
// with payloads in a hash keyed by reminder ID.
type RedisAdapter struct {
	client   *redis.Client
	schedule string
	payloads string
}

func NewRedisAdapter(client *redis.Client, prefix string) *RedisAdapter {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisAdapter{
		client:   client,
		schedule: prefix + ":reminders:schedule",
		payloads: prefix + ":reminders:payload",
	}
}

func (r *RedisAdapter) Schedule(ctx context.Context, reminder domain.Reminder) error {
	raw, err := json.Marshal(reminderPayload{
		ID:     reminder.ID,
		FireAt: reminder.FireAt,
		Title:  reminder.Title,
		Body:   reminder.Body,
	})
	if err != nil {
		return fmt.Errorf("encode reminder: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.payloads, reminder.ID, raw)
		pipe.ZAdd(ctx, r.schedule, redis.Z{Score: score(reminder.FireAt), Member: reminder.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("schedule reminder: %w", err)
	}
	return nil
}

func (r *RedisAdapter) Cancel(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, r.schedule, id)
		pipe.HDel(ctx, r.payloads, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cancel reminder: %w", err)
	}
	return nil
}

func (r *RedisAdapter) Due(ctx context.Context, now time.Time) ([]domain.Reminder, error) {
	raws, err := claimDueScript.Run(ctx, r.client,
		[]string{r.schedule, r.payloads},
		strconv.FormatInt(now.UnixMilli(), 10), dueBatchSize,
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("claim reminders: %w", err)
	}

	reminders := make([]domain.Reminder, 0, len(raws))
	var decodeErr error
	for _, raw := range raws {
		var p reminderPayload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			decodeErr = fmt.Errorf("decode reminder: %w", err)
			continue
		}
		reminders = append(reminders, domain.Reminder{
			ID:     p.ID,
			FireAt: p.FireAt,
			Title:  p.Title,
			Body:   p.Body,
		})
	}
	return reminders, decodeErr
}

// Pending reports how many reminders are waiting to fire.
func (r *RedisAdapter) Pending(ctx context.Context) (int64, error) {
	return r.client.ZCard(ctx, r.schedule).Result()
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}
