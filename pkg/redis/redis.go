package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ramaamensys/zeno-time-flow-sub001/config"
)

// Client Redis 客户端封装
// 当前用于行变更通知（Pub/Sub）与接口限流；两者都不是正确性边界，
// Redis 不可用时调用方一律降级运行。
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 变更通知（Pub/Sub）──
// UI 观察者订阅后无需轮询即可感知行变更；该通道对正确性不是必需的。

const eventChannelPrefix = "zeno:events:"

// Event 行变更事件载荷
type Event struct {
	Entity string `json:"entity"` // shift | time_entry | replacement_request
	ID     string `json:"id"`
	Action string `json:"action"` // created | updated | missed | approved | ...
}

// PublishEvent 向公司维度的频道发布行变更事件
func (c *Client) PublishEvent(ctx context.Context, companyID string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	return c.rdb.Publish(ctx, eventChannelPrefix+companyID, payload).Err()
}

// ── 接口限流 ──

// CheckRateLimit 固定窗口限流：窗口内第 limit+1 次请求返回 false
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return n <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
