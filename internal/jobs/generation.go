// Package jobs содержит фоновые задачи ядра записи.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Leganyst/clinic-scheduling/internal/service"
)

const generationLockKey = "clinic:jobs:slot-generation"

// Locker не даёт двум инстансам генерировать слоты одновременно.
type Locker interface {
	// TryLock возвращает функцию освобождения, если блокировка взята.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}

type Generator interface {
	Generate(ctx context.Context, horizonDays int) (service.GenerateResult, error)
}

type GenerationJob struct {
	gen      Generator
	locker   Locker
	interval time.Duration
	horizon  int
	log      zerolog.Logger
}

func NewGenerationJob(gen Generator, locker Locker, interval time.Duration, horizonDays int, log zerolog.Logger) *GenerationJob {
	return &GenerationJob{
		gen:      gen,
		locker:   locker,
		interval: interval,
		horizon:  horizonDays,
		log:      log.With().Str("component", "slot_generation_job").Logger(),
	}
}

// RunOnce выполняет один прогон. ran=false значит, что блокировку держит кто-то другой.
func (j *GenerationJob) RunOnce(ctx context.Context) (res service.GenerateResult, ran bool, err error) {
	if j.locker != nil {
		ttl := j.interval
		if ttl <= 0 {
			ttl = 10 * time.Minute
		}
		unlock, ok, err := j.locker.TryLock(ctx, generationLockKey, ttl)
		if err != nil {
			return res, false, err
		}
		if !ok {
			return res, false, nil
		}
		defer func() {
			if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
				j.log.Warn().Err(uerr).Msg("release generation lock")
			}
		}()
	}

	res, err = j.gen.Generate(ctx, j.horizon)
	return res, true, err
}

// Run повторяет генерацию каждые interval до отмены ctx. Первый прогон сразу.
func (j *GenerationJob) Run(ctx context.Context) {
	if j.interval <= 0 {
		return
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		res, ran, err := j.RunOnce(ctx)
		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			j.log.Error().Err(err).Msg("slot generation failed")
		case !ran:
			j.log.Debug().Msg("slot generation skipped, lock held elsewhere")
		default:
			j.log.Info().
				Int("schedules", res.Schedules).
				Int("created", res.Created).
				Int("duplicates", res.Duplicates).
				Int("skipped", res.Skipped).
				Msg("slot generation finished")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RedisLocker держит блокировку через SET NX PX с токеном владельца.
type RedisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	unlock := func(ctx context.Context) error {
		return unlockScript.Run(ctx, l.rdb, []string{key}, token).Err()
	}
	return unlock, true, nil
}
