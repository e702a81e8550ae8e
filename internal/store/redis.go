package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key the RedisStore touches.
const DefaultRedisPrefix = "certledger:"

// RedisOptions configures OpenRedis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to record keys; defaults to DefaultRedisPrefix.
	Prefix string
}

// RedisStore keeps records as Redis strings and events in a Redis stream.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStore(client, opts.Prefix), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) recordKey(key string) string { return r.prefix + "record:" + key }
func (r *RedisStore) streamKey() string           { return r.prefix + "events" }

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.recordKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return data, true, nil
}

func (r *RedisStore) Has(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.recordKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("has %s: %w", key, err)
	}
	return n > 0, nil
}

// Commit WATCHes every read key, re-checks it, then applies writes in one
// MULTI/EXEC block. EXEC aborts if a watched key changed after the check.
func (r *RedisStore) Commit(ctx context.Context, txID string, reads []Read, writes []Write) error {
	watched := make([]string, len(reads))
	for i, rd := range reads {
		watched[i] = r.recordKey(rd.Key)
	}

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		for _, rd := range reads {
			value, err := tx.Get(ctx, r.recordKey(rd.Key)).Bytes()
			found := true
			if errors.Is(err, redis.Nil) {
				found, err = false, nil
			}
			if err != nil {
				return fmt.Errorf("check %s: %w", rd.Key, err)
			}
			if !rd.matches(value, found) {
				return fmt.Errorf("%s changed: %w", rd.Key, ErrConflict)
			}
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, w := range writes {
				pipe.Set(ctx, r.recordKey(w.Key), w.Value, 0)
			}
			return nil
		})
		return err
	}, watched...)
	if errors.Is(err, redis.TxFailedErr) {
		err = fmt.Errorf("watched key changed: %w", ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("commit %s: %w", txID, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// AppendEvent adds the event to the stream with XADD.
func (r *RedisStore) AppendEvent(ctx context.Context, ev EventRecord) error {
	err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.streamKey(),
		Values: map[string]any{
			"seq":     ev.Seq,
			"id":      ev.ID,
			"tx_id":   ev.TxID,
			"kind":    ev.Kind,
			"payload": string(ev.Payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("append event %d: %w", ev.Seq, err)
	}
	return nil
}

// LastEventSeq reads the seq of the newest stream entry.
func (r *RedisStore) LastEventSeq(ctx context.Context) (int64, error) {
	msgs, err := r.client.XRevRangeN(ctx, r.streamKey(), "+", "-", 1).Result()
	if err != nil {
		return 0, fmt.Errorf("last event seq: %w", err)
	}
	if len(msgs) == 0 {
		return 0, nil
	}
	ev, err := eventFromMessage(msgs[0])
	if err != nil {
		return 0, err
	}
	return ev.Seq, nil
}

// ReadEvents returns stream events with seq > afterSeq in stream order.
func (r *RedisStore) ReadEvents(ctx context.Context, afterSeq int64, limit int) ([]EventRecord, error) {
	msgs, err := r.client.XRange(ctx, r.streamKey(), "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	events := []EventRecord{}
	for _, msg := range msgs {
		ev, err := eventFromMessage(msg)
		if err != nil {
			return nil, err
		}
		if ev.Seq <= afterSeq {
			continue
		}
		events = append(events, ev)
		if limit > 0 && len(events) == limit {
			break
		}
	}
	return events, nil
}

func eventFromMessage(msg redis.XMessage) (EventRecord, error) {
	field := func(name string) string {
		s, _ := msg.Values[name].(string)
		return s
	}
	seq, err := strconv.ParseInt(field("seq"), 10, 64)
	if err != nil {
		return EventRecord{}, fmt.Errorf("stream entry %s: bad seq: %w", msg.ID, err)
	}
	return EventRecord{
		ID:      field("id"),
		Seq:     seq,
		TxID:    field("tx_id"),
		Kind:    field("kind"),
		Payload: json.RawMessage(field("payload")),
	}, nil
}
