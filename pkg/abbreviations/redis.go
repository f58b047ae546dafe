package abbreviations

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
	"github.com/otherjamesbrown/penf-tracelink/pkg/similarity"
)

// DefaultRedisKey is the hash holding the shared dictionary.
const DefaultRedisKey = "tlr:abbreviations"

// RedisStore keeps an abbreviation dictionary in a Redis hash, one field per
// abbreviation.
type RedisStore struct {
	client redis.Cmdable
	key    string
	logger logging.Logger
}

// NewRedisStore returns a store for the hash at key. An empty key selects
// DefaultRedisKey.
func NewRedisStore(client redis.Cmdable, key string, logger logging.Logger) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RedisStore{
		client: client,
		key:    key,
		logger: logger.With(logging.F("component", "abbreviation_store")),
	}
}

// Key returns the hash key.
func (s *RedisStore) Key() string {
	return s.key
}

// Load reads the dictionary. A missing hash yields an empty dictionary.
func (s *RedisStore) Load(ctx context.Context) (*similarity.Abbreviations, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("loading abbreviations from %s: %w", s.key, err)
	}

	abbr := similarity.NewAbbreviations()
	for field, value := range fields {
		abbr.Add(field, decodeMeanings(value)...)
	}
	s.logger.Debug("abbreviations loaded",
		logging.F("key", s.key),
		logging.F("count", abbr.Len()),
	)
	return abbr, nil
}

// Save replaces the hash with abbr in one transaction.
func (s *RedisStore) Save(ctx context.Context, abbr *similarity.Abbreviations) error {
	values := make([]interface{}, 0, 2*abbr.Len())
	if abbr.Len() > 0 {
		for _, k := range abbr.Keys() {
			values = append(values, k, encodeMeanings(abbr.Meanings(k)))
		}
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key)
	if len(values) > 0 {
		pipe.HSet(ctx, s.key, values...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving abbreviations to %s: %w", s.key, err)
	}

	s.logger.Info("abbreviations saved",
		logging.F("key", s.key),
		logging.F("count", abbr.Len()),
	)
	return nil
}

// Connect opens a client for addr and checks it with PING.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("testing connection: %w", err)
	}

	return client, nil
}
