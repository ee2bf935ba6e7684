package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps any transport failure talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrRecordNotFound is returned when no live record exists for the requested ID.
var ErrRecordNotFound = errors.New("session record not found")

// ErrRecordExpired is returned by Save/Touch when the record's expiry is already past.
var ErrRecordExpired = errors.New("session record expired")

const deleteRecordScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
end
return existed
`

var deleteRecordLua = redis.NewScript(deleteRecordScript)

// Store persists session records in Redis. Record keys expire together with the token they
// describe; the per-user index is pruned lazily by [Store.ListForUser].
//
//	Keys: <prefix>:<id> (record blob), <prefix>u:<userID> (set of record IDs)
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewStore creates a record [Store] backed by the given Redis client.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "sg"
	}
	return &Store{
		redis:  redis,
		prefix: prefix,
		now:    time.Now,
	}
}

// WithClock returns a copy of the store that uses now as its clock.
func (s *Store) WithClock(now func() time.Time) *Store {
	clone := *s
	clone.now = now
	return &clone
}

func (s *Store) key(id string) string {
	return s.prefix + ":" + id
}

func (s *Store) userKey(userID string) string {
	return s.prefix + "u:" + userID
}

func (s *Store) ttlUntil(expiresAt int64) time.Duration {
	return time.Unix(expiresAt, 0).Sub(s.now())
}

// Save writes rec and adds it to its user's index.
//
//	Performance: 1 MULTI/EXEC (SET + SADD).
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.ID == "" || rec.UserID == "" {
		return errors.New("session record requires id and user id")
	}
	ttl := s.ttlUntil(rec.ExpiresAt)
	if ttl <= 0 {
		return ErrRecordExpired
	}

	data, err := Encode(rec)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(rec.ID), data, ttl)
		pipe.SAdd(ctx, s.userKey(rec.UserID), rec.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get returns the live record for id.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return Decode(data)
}

// Touch records a renewal: the token hash, expiry and update time are replaced and the key
// TTL is extended to the new expiry. Touching a missing record returns ErrRecordNotFound and
// never resurrects it.
func (s *Store) Touch(ctx context.Context, id string, tokenHash [32]byte, expiresAt int64) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	ttl := s.ttlUntil(expiresAt)
	if ttl <= 0 {
		return ErrRecordExpired
	}

	rec.TokenHash = tokenHash
	rec.ExpiresAt = expiresAt
	rec.UpdatedAt = s.now().Unix()

	data, err := Encode(rec)
	if err != nil {
		return err
	}

	ok, err := s.redis.SetXX(ctx, s.key(id), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return ErrRecordNotFound
	}

	return nil
}

// Delete removes the record and its index entry. Deleting a missing record is not an error.
//
//	Performance: 1 GET + 1 EVALSHA.
func (s *Store) Delete(ctx context.Context, id string) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if _, err := deleteRecordLua.Run(ctx, s.redis, []string{s.key(id), s.userKey(rec.UserID)}, id).Result(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// ListForUser returns the user's live records and drops index entries whose record key has
// already expired.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]*Record, error) {
	userKey := s.userKey(userID)

	ids, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.StringCmd, len(ids))
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.Get(ctx, s.key(id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	out := make([]*Record, 0, len(ids))
	stale := make([]interface{}, 0)
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				stale = append(stale, ids[i])
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		rec, err := Decode(data)
		if err != nil {
			stale = append(stale, ids[i])
			continue
		}
		out = append(out, rec)
	}

	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, userKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return out, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
