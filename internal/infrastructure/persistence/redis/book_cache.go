package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/pkg/circuitbreaker"
	"github.com/xiebiao/library/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	cacheBook  = "book"
	cacheStats = "statistics"

	statsKey = "library:stats"

	// versionTTL 版本号存活时间,远大于详情缓存TTL
	versionTTL = 24 * time.Hour
)

// errStaleVersion 回填时版本号已变化(期间发生了写操作)
var errStaleVersion = errors.New("cache version changed")

// BookCache Redis图书缓存
//
// 缓存策略：Cache-Aside（旁路缓存）
//   - 读：先查缓存，未命中再查存储并回填
//   - 写：更新存储后删除缓存并递增版本号
//   - 回填：WATCH版本号，版本变化说明读存储期间有写操作，放弃回填
//
// 缓存内容：
//   - 图书详情 library:book:{id}，版本号 library:book:{id}:version
//   - 统计概览 library:stats（任何写操作都会使其失效）
//
// 所有Redis调用都经过熔断器：Redis故障时快速失败，由调用方回源存储。
type BookCache struct {
	client   *redis.Client
	breaker  *circuitbreaker.CircuitBreaker
	bookTTL  time.Duration
	statsTTL time.Duration
}

// BookCacheOptions 缓存参数
type BookCacheOptions struct {
	BookTTL         time.Duration
	StatsTTL        time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// NewBookCache 创建图书缓存
func NewBookCache(client *redis.Client, opts BookCacheOptions) *BookCache {
	metrics.InitMetrics()

	cfg := circuitbreaker.DefaultConfig()
	if opts.BreakerFailures > 0 {
		cfg.ReadyToTrip = circuitbreaker.ConsecutiveFailures(opts.BreakerFailures)
	}
	if opts.BreakerTimeout > 0 {
		cfg.Timeout = opts.BreakerTimeout
	}
	cfg.IsSuccessful = breakerSuccess
	cfg.OnStateChange = func(name string, from, to circuitbreaker.State) {
		zap.L().Warn("缓存熔断器状态变化",
			zap.String("name", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		metrics.SetGaugeVec(metrics.CircuitBreakerState, map[string]string{"name": name}, float64(to))
	}

	return &BookCache{
		client:   client,
		breaker:  circuitbreaker.New("redis-cache", cfg),
		bookTTL:  opts.BookTTL,
		statsTTL: opts.StatsTTL,
	}
}

// GetBook 获取图书详情缓存
// 未命中返回(nil, nil)
func (c *BookCache) GetBook(ctx context.Context, id string) (*book.Book, error) {
	var b book.Book
	hit, err := c.get(ctx, cacheBook, bookKey(id), &b)
	if err != nil || !hit {
		return nil, err
	}
	return &b, nil
}

// BookVersion 图书详情缓存版本号，不存在时为0
func (c *BookCache) BookVersion(ctx context.Context, id string) (int64, error) {
	var version int64
	err := c.execute(func() error {
		v, err := c.client.Get(ctx, versionKey(id)).Int64()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		version = v
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("获取缓存版本失败: %w", err)
	}
	return version, nil
}

// SetBook 回填图书详情缓存
// 版本号与读存储前取到的version不一致时放弃写入
func (c *BookCache) SetBook(ctx context.Context, b *book.Book, version int64) error {
	val, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("序列化失败: %w", err)
	}

	vkey := versionKey(b.ID)
	err = c.execute(func() error {
		return c.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, vkey).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if current != version {
				return errStaleVersion
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, bookKey(b.ID), val, c.bookTTL)
				return nil
			})
			return err
		}, vkey)
	})

	switch {
	case errors.Is(err, errStaleVersion), errors.Is(err, redis.TxFailedErr):
		metrics.RecordCache(cacheBook, "stale")
		return nil
	case err != nil:
		return fmt.Errorf("设置缓存失败: %w", err)
	}
	return nil
}

// DeleteBook 删除图书详情缓存并递增版本号
func (c *BookCache) DeleteBook(ctx context.Context, id string) error {
	vkey := versionKey(id)
	err := c.execute(func() error {
		_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Incr(ctx, vkey)
			pipe.Expire(ctx, vkey, versionTTL)
			pipe.Del(ctx, bookKey(id))
			return nil
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("删除缓存失败: %w", err)
	}
	return nil
}

// GetStatistics 获取统计概览缓存
func (c *BookCache) GetStatistics(ctx context.Context) (*book.Statistics, error) {
	var stats book.Statistics
	hit, err := c.get(ctx, cacheStats, statsKey, &stats)
	if err != nil || !hit {
		return nil, err
	}
	return &stats, nil
}

// SetStatistics 设置统计概览缓存
func (c *BookCache) SetStatistics(ctx context.Context, stats *book.Statistics) error {
	return c.set(ctx, statsKey, stats, c.statsTTL)
}

// DeleteStatistics 删除统计概览缓存
func (c *BookCache) DeleteStatistics(ctx context.Context) error {
	return c.del(ctx, statsKey)
}

// Ping 健康检查
func (c *BookCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *BookCache) get(ctx context.Context, cache, key string, dst any) (bool, error) {
	var val []byte
	err := c.execute(func() error {
		var err error
		val, err = c.client.Get(ctx, key).Bytes()
		return err
	})

	switch {
	case errors.Is(err, redis.Nil):
		metrics.RecordCache(cache, "miss")
		return false, nil
	case err != nil:
		metrics.RecordCache(cache, "error")
		return false, fmt.Errorf("获取缓存失败: %w", err)
	}

	if err := json.Unmarshal(val, dst); err != nil {
		// 格式不兼容的旧数据按未命中处理
		metrics.RecordCache(cache, "miss")
		_ = c.del(ctx, key)
		return false, nil
	}

	metrics.RecordCache(cache, "hit")
	return true, nil
}

func (c *BookCache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	val, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化失败: %w", err)
	}

	err = c.execute(func() error {
		return c.client.Set(ctx, key, val, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("设置缓存失败: %w", err)
	}
	return nil
}

func (c *BookCache) del(ctx context.Context, key string) error {
	err := c.execute(func() error {
		return c.client.Del(ctx, key).Err()
	})
	if err != nil {
		return fmt.Errorf("删除缓存失败: %w", err)
	}
	return nil
}

// execute 经熔断器执行Redis调用，按结果计数
func (c *BookCache) execute(req func() error) error {
	err := c.breaker.Execute(req)

	result := "success"
	switch {
	case errors.Is(err, circuitbreaker.ErrOpenState):
		result = "rejected"
	case !breakerSuccess(err):
		result = "failure"
	}
	metrics.IncCounterVec(metrics.CircuitBreakerRequests, map[string]string{
		"name":   c.breaker.Name(),
		"result": result,
	})
	return err
}

// breakerSuccess 未命中和版本冲突是正常结果，不计入失败
func breakerSuccess(err error) bool {
	return err == nil ||
		errors.Is(err, redis.Nil) ||
		errors.Is(err, errStaleVersion) ||
		errors.Is(err, redis.TxFailedErr)
}

// bookKey 图书详情缓存key
// 格式：library:book:{id}
func bookKey(id string) string {
	return "library:book:" + id
}

func versionKey(id string) string {
	return bookKey(id) + ":version"
}
