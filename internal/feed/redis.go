package feed

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nhle/milkfeed/internal/model"
)

// RedisSource receives notifications published on a Redis channel.
type RedisSource struct {
	addr    string
	channel string
}

// NewRedisSource creates a pub/sub source for channel on the server at addr.
func NewRedisSource(addr, channel string) *RedisSource {
	return &RedisSource{addr: addr, channel: channel}
}

// Name returns the transport name.
func (s *RedisSource) Name() string { return model.TransportRedis }

// Connect subscribes to the channel and waits for the confirmation.
func (s *RedisSource) Connect(ctx context.Context) (Conn, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       s.addr,
		MaxRetries: -1,
	})

	ps := client.Subscribe(ctx, s.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		_ = client.Close()
		return nil, fmt.Errorf("subscribing to %s on %s: %w", s.channel, s.addr, err)
	}

	return &redisConn{client: client, ps: ps}, nil
}

type redisConn struct {
	client *redis.Client
	ps     *redis.PubSub
}

// Read returns the payload of the next published message.
func (c *redisConn) Read(ctx context.Context) ([]byte, error) {
	msg, err := c.ps.ReceiveMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("receiving redis message: %w", err)
	}
	return []byte(msg.Payload), nil
}

// Close unsubscribes and closes the client.
func (c *redisConn) Close() error {
	psErr := c.ps.Close()
	if err := c.client.Close(); err != nil && err != redis.ErrClosed {
		return err
	}
	if psErr != nil && psErr != redis.ErrClosed {
		return psErr
	}
	return nil
}
