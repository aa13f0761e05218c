// Package redis implements core.MemoryStore on Redis lists: one list per
// conversation, one JSON encoded turn per element.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hupe1980/agentmux/core"
)

// Store keeps conversations in Redis.
type Store struct {
	client   redis.Cmdable
	prefix   string
	ttl      time.Duration
	maxTurns int
}

// Options configures a Store.
type Options struct {
	// KeyPrefix namespaces conversation keys; defaults to "agentmux:conversation:".
	KeyPrefix string
	// TTL expires idle conversations; 0 keeps them forever.
	TTL time.Duration
	// MaxTurns trims each list to its most recent entries; 0 keeps all.
	MaxTurns int
}

// NewClient builds a client and verifies the connection with PING.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	return rdb, nil
}

// New creates a store on top of client.
func New(client redis.Cmdable, optFns ...func(o *Options)) *Store {
	opts := Options{KeyPrefix: "agentmux:conversation:"}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Store{
		client:   client,
		prefix:   opts.KeyPrefix,
		ttl:      opts.TTL,
		maxTurns: opts.MaxTurns,
	}
}

// Key returns the list key of a conversation.
func (s *Store) Key(conversationID string) string { return s.prefix + conversationID }

// Load returns the conversation's turns in append order.
func (s *Store) Load(ctx context.Context, conversationID string) ([]core.Turn, error) {
	raw, err := s.client.LRange(ctx, s.Key(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load conversation %q: %w", conversationID, err)
	}

	return decodeTurns(raw)
}

// Append pushes turns in one pipeline, then trims and refreshes the TTL.
func (s *Store) Append(ctx context.Context, conversationID string, turns ...core.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	values, err := encodeTurns(turns)
	if err != nil {
		return err
	}

	key := s.Key(conversationID)

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, values...)

		if s.maxTurns > 0 {
			p.LTrim(ctx, key, int64(-s.maxTurns), -1)
		}

		if s.ttl > 0 {
			p.Expire(ctx, key, s.ttl)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("append conversation %q: %w", conversationID, err)
	}

	return nil
}

// Clear deletes the conversation.
func (s *Store) Clear(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, s.Key(conversationID)).Err(); err != nil {
		return fmt.Errorf("clear conversation %q: %w", conversationID, err)
	}

	return nil
}

func encodeTurns(turns []core.Turn) ([]any, error) {
	values := make([]any, 0, len(turns))

	for _, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("encode turn: %w", err)
		}

		values = append(values, string(b))
	}

	return values, nil
}

func decodeTurns(raw []string) ([]core.Turn, error) {
	turns := make([]core.Turn, 0, len(raw))

	for _, r := range raw {
		var t core.Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}

		turns = append(turns, t)
	}

	return turns, nil
}
