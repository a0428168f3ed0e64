package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ChizhovVadim/FractalAnalyzer/internal/domain"
)

type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type RedisStore struct {
	client *redis.Client
	cfg    RedisConfig
	logger *zap.SugaredLogger
}

func NewRedisStore(cfg RedisConfig, logger *zap.SugaredLogger) *RedisStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "fractal:result:"
	}
	return &RedisStore{
		cfg:    cfg,
		logger: logger,
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, cfg RedisConfig, logger *zap.SugaredLogger) *RedisStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "fractal:result:"
	}
	return &RedisStore{client: client, cfg: cfg, logger: logger}
}

func (s *RedisStore) Init(ctx context.Context) error {
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.client.Ping(ctxPing).Err(); err != nil {
		return fmt.Errorf("connect to redis %v: %w", s.cfg.Addr, err)
	}
	s.logger.Infow("connected to redis", "addr", s.cfg.Addr)
	return nil
}

func (s *RedisStore) key(fen string) string {
	return s.cfg.KeyPrefix + fen
}

func (s *RedisStore) Save(ctx context.Context, result domain.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(result.FEN), data, s.cfg.TTL).Err()
}

func (s *RedisStore) Get(ctx context.Context, fen string) (domain.Result, error) {
	data, err := s.client.Get(ctx, s.key(fen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Result{}, ErrNotFound
	}
	if err != nil {
		return domain.Result{}, err
	}
	var result domain.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.Result{}, fmt.Errorf("decode result: %w", err)
	}
	return result, nil
}

func (s *RedisStore) Close(ctx context.Context) error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
