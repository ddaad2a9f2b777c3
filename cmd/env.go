package main

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bizlens/internal/config"
	"github.com/sells-group/bizlens/internal/dashboard"
	"github.com/sells-group/bizlens/internal/fallback"
	"github.com/sells-group/bizlens/internal/metrics"
	"github.com/sells-group/bizlens/internal/notify"
	"github.com/sells-group/bizlens/internal/resilience"
	"github.com/sells-group/bizlens/internal/source"
)

// appEnv holds the service and the resources shared by the commands.
type appEnv struct {
	Service  *dashboard.Service
	Feed     *notify.Feed
	Breakers *resilience.Breakers

	redis *redis.Client
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
}

// initService wires sources, fallback data, notifications and the
// dashboard service. Callers should defer env.Close().
func initService(ctx context.Context, c *config.Config) (*appEnv, error) {
	bc := source.BreakerConfigFrom(c.Resilience)
	bc.OnChange = metrics.ObserveBreaker
	breakers := resilience.NewBreakers(bc)

	gen, err := fallback.New()
	if err != nil {
		return nil, eris.Wrap(err, "init fallback")
	}

	env := &appEnv{
		Feed:     notify.NewFeed(c.Notify.FeedSize),
		Breakers: breakers,
	}

	throttle := notify.New(initRecorder(ctx, c.Redis, env),
		notify.MultiSink{notify.LogSink{}, env.Feed},
		notify.WithCooldown(c.Notify.Cooldown()),
		notify.WithObserver(metrics.ObserveNotification),
	)

	env.Service = dashboard.New(source.FromConfig(c, breakers), gen,
		dashboard.WithNotifier(throttle),
		dashboard.WithBreakers(breakers),
	)
	return env, nil
}

// initRecorder returns the Redis recorder when configured and reachable,
// else the in-memory one.
func initRecorder(ctx context.Context, rc config.RedisConfig, env *appEnv) notify.Recorder {
	if rc.Addr == "" {
		return notify.NewMemoryRecorder()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		zap.L().Warn("redis unreachable, throttling notifications in memory",
			zap.String("addr", rc.Addr),
			zap.Error(err),
		)
		_ = client.Close()
		return notify.NewMemoryRecorder()
	}

	env.redis = client
	return notify.NewRedisRecorder(client, rc.Prefix)
}
