package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"modaccess/internal/usecase"
)

type redisSequencer struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// The key embeds the calendar day, so INCR both allocates the next sequence
// and resets at midnight: the first call of a new day simply creates a fresh
// key. Expiry keeps yesterday's keys from accumulating.
var redisNextScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

const redisKeyTTL = 48 * time.Hour

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	Now      func() time.Time
}

func NewRedis(cfg RedisConfig) (usecase.Sequencer, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "SOL"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &redisSequencer{client: client, prefix: cfg.Prefix, now: cfg.Now}, nil
}

func (r *redisSequencer) Next(ctx context.Context) (string, error) {
	day := r.now().Format("20060102")
	key := fmt.Sprintf("seq:%s:%s", r.prefix, day)
	result, err := redisNextScript.Run(ctx, r.client, []string{key}, redisKeyTTL.Milliseconds()).Result()
	if err != nil {
		return "", fmt.Errorf("next sequence: %w", err)
	}
	current, ok := result.(int64)
	if !ok {
		return "", errors.New("unexpected redis sequence response")
	}
	if current > maxDailySequence {
		return "", fmt.Errorf("day %s: %w", day, ErrExhausted)
	}
	return fmt.Sprintf("%s-%s-%04d", r.prefix, day, current), nil
}
