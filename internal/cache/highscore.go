package cache

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/PoluyanbIch/GoQuiz/internal/service"
)

// submitScript raises KEYS[1] to ARGV[1] if it is higher and returns
// {best, updated}. Running as a script makes the compare and set atomic.
var submitScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local score = tonumber(ARGV[1])
if score > current then
	redis.call("SET", KEYS[1], score)
	return {score, 1}
end
return {current, 0}
`)

type Highscore struct {
	client *redis.Client
	key    string
}

func (c *RedisClient) Highscore(prefix string) *Highscore {
	return &Highscore{client: c.client, key: prefix + service.HighscoreKey}
}

func (h *Highscore) Highscore(ctx context.Context) (int, error) {
	v, err := h.client.Get(ctx, h.key).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "read highscore")
	}
	return v, nil
}

func (h *Highscore) Submit(ctx context.Context, score int) (int, bool, error) {
	res, err := submitScript.Run(ctx, h.client, []string{h.key}, score).Int64Slice()
	if err != nil {
		return 0, false, errors.Wrap(err, "submit highscore")
	}
	if len(res) != 2 {
		return 0, false, errors.Errorf("submit highscore: unexpected reply %v", res)
	}
	return int(res[0]), res[1] == 1, nil
}
