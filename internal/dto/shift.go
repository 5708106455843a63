package dto

// ── 班次模块 DTO ──

// MissedShiftListRequest 缺勤班次列表查询参数
// company_id 仅对 admin 生效（跨公司查询），其余角色以令牌为准
type MissedShiftListRequest struct {
	CompanyID string `form:"company_id" binding:"omitempty,uuid"`
	PaginationRequest
}

// MyShiftsRequest 我的班次查询参数（默认最近 30 天 + 未来 30 天）
type MyShiftsRequest struct {
	From string `form:"from" binding:"omitempty"`
	To   string `form:"to"   binding:"omitempty"`
}

// ── 响应 ──

// ShiftResponse 班次响应
type ShiftResponse struct {
	ID                    string         `json:"id"`
	EmployeeID            string         `json:"employee_id"`
	Employee              *EmployeeBrief `json:"employee,omitempty"`
	CompanyID             string         `json:"company_id"`
	DepartmentID          *string        `json:"department_id,omitempty"`
	StartTime             string         `json:"start_time"`
	EndTime               string         `json:"end_time"`
	Status                string         `json:"status"`
	IsMissed              bool           `json:"is_missed"`
	MissedAt              *string        `json:"missed_at,omitempty"`
	ReplacementEmployeeID *string        `json:"replacement_employee_id,omitempty"`
	ReplacementEmployee   *EmployeeBrief `json:"replacement_employee,omitempty"`
	ReplacementApprovedAt *string        `json:"replacement_approved_at,omitempty"`
	ReplacementStartedAt  *string        `json:"replacement_started_at,omitempty"`
	Notes                 string         `json:"notes,omitempty"`
	BreakMinutes          int            `json:"break_minutes"`
}

// [自证通过] internal/dto/shift.go
