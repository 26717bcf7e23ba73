package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	queueKey    = "pair_queue"
	inFlightKey = "pair_inflight"
	progressKey = "pair_progress"
)

// Client wraps the Redis structures that drive the history sync:
// a sorted set of pending pairs, a hash of pairs being synced and a hash
// of the newest interval already stored per pair.
type Client struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewClient creates a new Redis queue client
func NewClient(redisURL string, logger zerolog.Logger) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info().Str("redis_addr", opt.Addr).Int("redis_db", opt.DB).Msg("Connected to Redis successfully")

	return &Client{
		client: client,
		logger: logger.With().Str("component", "queue").Logger(),
	}, nil
}

// PopPair removes and returns the pair with the lowest score, or "" when the queue is empty
func (c *Client) PopPair(ctx context.Context) (string, error) {
	result, err := c.client.ZPopMin(ctx, queueKey, 1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to pop pair from queue: %w", err)
	}

	if len(result) == 0 {
		return "", nil
	}

	pair, ok := result[0].Member.(string)
	if !ok {
		return "", fmt.Errorf("unexpected queue member %v", result[0].Member)
	}
	c.logger.Debug().Str("pair", pair).Msg("Popped pair from queue")
	return pair, nil
}

// PushPair adds a pair to the queue; lower priority values are synced first
func (c *Client) PushPair(ctx context.Context, pair string, priority float64) error {
	err := c.client.ZAdd(ctx, queueKey, redis.Z{
		Score:  priority,
		Member: pair,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to push pair to queue: %w", err)
	}

	c.logger.Debug().
		Str("pair", pair).
		Float64("priority", priority).
		Msg("Pushed pair to queue")

	return nil
}

// SetInFlight marks a pair as being synced by a worker
func (c *Client) SetInFlight(ctx context.Context, pair, worker string) error {
	value := formatInFlight(worker, time.Now())
	if err := c.client.HSet(ctx, inFlightKey, pair, value).Err(); err != nil {
		return fmt.Errorf("failed to set pair in-flight: %w", err)
	}

	c.logger.Debug().
		Str("pair", pair).
		Str("worker", worker).
		Msg("Marked pair as in-flight")

	return nil
}

// RemoveInFlight removes a pair from the in-flight tracking
func (c *Client) RemoveInFlight(ctx context.Context, pair string) error {
	if err := c.client.HDel(ctx, inFlightKey, pair).Err(); err != nil {
		return fmt.Errorf("failed to remove pair from in-flight: %w", err)
	}

	c.logger.Debug().Str("pair", pair).Msg("Removed pair from in-flight")
	return nil
}

// GetProgress returns the start of the newest interval stored for a pair
func (c *Client) GetProgress(ctx context.Context, pair string) (time.Time, bool, error) {
	result, err := c.client.HGet(ctx, progressKey, pair).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to get pair progress: %w", err)
	}

	t, err := time.Parse(time.RFC3339, result)
	if err != nil {
		c.logger.Warn().Str("pair", pair).Str("value", result).Msg("Ignoring unreadable pair progress")
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// SetProgress records the start of the newest interval stored for a pair
func (c *Client) SetProgress(ctx context.Context, pair string, last time.Time) error {
	value := last.UTC().Format(time.RFC3339)
	if err := c.client.HSet(ctx, progressKey, pair, value).Err(); err != nil {
		return fmt.Errorf("failed to set pair progress: %w", err)
	}

	c.logger.Debug().
		Str("pair", pair).
		Str("last_interval", value).
		Msg("Updated pair progress")

	return nil
}

// GetQueueLength returns the number of pairs in the queue
func (c *Client) GetQueueLength(ctx context.Context) (int64, error) {
	length, err := c.client.ZCard(ctx, queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return length, nil
}

// GetInFlightPairs returns all pairs currently being synced, keyed by pair
func (c *Client) GetInFlightPairs(ctx context.Context) (map[string]string, error) {
	result, err := c.client.HGetAll(ctx, inFlightKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get in-flight pairs: %w", err)
	}
	return result, nil
}

// RequeueStuckPairs moves pairs that have been in-flight longer than timeout back to the queue
func (c *Client) RequeueStuckPairs(ctx context.Context, timeout time.Duration) (int, error) {
	inFlight, err := c.GetInFlightPairs(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-timeout)
	requeued := 0

	for pair, value := range inFlight {
		worker, started, err := parseInFlight(value)
		if err != nil {
			c.logger.Warn().Err(err).Str("pair", pair).Str("value", value).Msg("Invalid in-flight value")
			continue
		}

		if !started.Before(cutoff) {
			continue
		}

		if err := c.PushPair(ctx, pair, 0); err != nil {
			c.logger.Error().Err(err).Str("pair", pair).Msg("Failed to requeue stuck pair")
			continue
		}

		if err := c.RemoveInFlight(ctx, pair); err != nil {
			c.logger.Error().Err(err).Str("pair", pair).Msg("Failed to remove requeued pair from in-flight")
		}

		requeued++
		c.logger.Info().
			Str("pair", pair).
			Str("worker", worker).
			Dur("stuck_for", time.Since(started)).
			Msg("Requeued stuck pair")
	}

	if requeued > 0 {
		c.logger.Info().Int("count", requeued).Msg("Requeued stuck pairs")
	}

	return requeued, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// formatInFlight encodes the in-flight value as "worker,unix"
func formatInFlight(worker string, at time.Time) string {
	return fmt.Sprintf("%s,%d", worker, at.Unix())
}

func parseInFlight(value string) (string, time.Time, error) {
	worker, ts, found := strings.Cut(value, ",")
	if !found {
		return "", time.Time{}, fmt.Errorf("missing timestamp")
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	return worker, time.Unix(unix, 0), nil
}
