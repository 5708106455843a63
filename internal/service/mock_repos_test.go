package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ramaamensys/zeno-time-flow-sub001/internal/model"
	"github.com/ramaamensys/zeno-time-flow-sub001/internal/repository"
	pkgerrors "github.com/ramaamensys/zeno-time-flow-sub001/pkg/errors"
	"github.com/ramaamensys/zeno-time-flow-sub001/pkg/redis"
)

// ── 内存版 Repository（测试用）──
// 单把互斥锁模拟数据库的原子语句/事务；各 CAS 语义与真实现保持一致。

type mockStore struct {
	mu sync.Mutex

	employees     map[string]*model.Employee
	shifts        map[string]*model.Shift
	entries       map[string]*model.TimeEntry
	requests      map[string]*model.ReplacementRequest
	notifications map[string]*model.Notification

	// 按班次注入 MarkMissed 错误，验证单条失败不拖垮整轮巡检
	markMissedErr map[string]error

	seq int
}

func newMockStore() *mockStore {
	return &mockStore{
		employees:     make(map[string]*model.Employee),
		shifts:        make(map[string]*model.Shift),
		entries:       make(map[string]*model.TimeEntry),
		requests:      make(map[string]*model.ReplacementRequest),
		notifications: make(map[string]*model.Notification),
		markMissedErr: make(map[string]error),
	}
}

func (s *mockStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

func (s *mockStore) repo() *repository.Repository {
	return &repository.Repository{
		Employee:     &mockEmployeeRepo{s},
		Shift:        &mockShiftRepo{s},
		TimeEntry:    &mockTimeEntryRepo{s},
		Replacement:  &mockReplacementRepo{s},
		Notification: &mockNotificationRepo{s},
	}
}

// addEmployee / addShift 测试数据装配
func (s *mockStore) addEmployee(e *model.Employee) *model.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.EmployeeID == "" {
		e.EmployeeID = s.nextID("emp")
	}
	c := *e
	s.employees[e.EmployeeID] = &c
	return e
}

func (s *mockStore) addShift(sh *model.Shift) *model.Shift {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sh.ShiftID == "" {
		sh.ShiftID = s.nextID("shift")
	}
	if sh.Version == 0 {
		sh.Version = 1
	}
	c := *sh
	s.shifts[sh.ShiftID] = &c
	return sh
}

func (s *mockStore) getShift(id string) *model.Shift {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shifts[id]
	if !ok {
		return nil
	}
	c := *sh
	return &c
}

func (s *mockStore) getEntry(id string) *model.TimeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil
	}
	c := *e
	return &c
}

func (s *mockStore) notificationsOf(employeeID string) []*model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*model.Notification
	for _, n := range s.notifications {
		if n.EmployeeID == employeeID {
			c := *n
			result = append(result, &c)
		}
	}
	return result
}

// ── EmployeeRepository ──

type mockEmployeeRepo struct{ s *mockStore }

func (r *mockEmployeeRepo) GetByID(_ context.Context, id string) (*model.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.employees[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *e
	return &c, nil
}

func (r *mockEmployeeRepo) ListByCompany(_ context.Context, companyID string) ([]model.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []model.Employee
	for _, e := range r.s.employees {
		if e.CompanyID == companyID {
			result = append(result, *e)
		}
	}
	return result, nil
}

// ── ShiftRepository ──

type mockShiftRepo struct{ s *mockStore }

func (r *mockShiftRepo) GetByID(_ context.Context, id string) (*model.Shift, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh, ok := r.s.shifts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *sh
	return &c, nil
}

func (r *mockShiftRepo) Update(_ context.Context, shift *model.Shift) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.shifts[shift.ShiftID]
	if !ok || stored.Version != shift.Version {
		return pkgerrors.ErrOptimisticLock
	}
	c := *shift
	c.Version = shift.Version + 1
	r.s.shifts[shift.ShiftID] = &c
	shift.Version = c.Version
	return nil
}

func (r *mockShiftRepo) ListMissedCandidates(_ context.Context, threshold time.Time, limit int) ([]model.Shift, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []model.Shift
	for _, sh := range r.s.shifts {
		if sh.Status == model.ShiftStatusScheduled && !sh.IsMissed && sh.StartTime.Before(threshold) {
			result = append(result, *sh)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (r *mockShiftRepo) MarkMissed(_ context.Context, shiftID string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err, ok := r.s.markMissedErr[shiftID]; ok {
		return false, err
	}
	sh, ok := r.s.shifts[shiftID]
	if !ok || sh.IsMissed {
		return false, nil
	}
	// NOT EXISTS 复查：该班次已有任何打卡记录则放弃标记
	for _, e := range r.s.entries {
		if e.ShiftID != nil && *e.ShiftID == shiftID {
			return false, nil
		}
	}
	missedAt := now
	sh.IsMissed = true
	sh.MissedAt = &missedAt
	sh.Status = model.ShiftStatusMissed
	sh.Version++
	return true, nil
}

func (r *mockShiftRepo) ListMissed(_ context.Context, companyID string, offset, limit int) ([]model.Shift, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []model.Shift
	for _, sh := range r.s.shifts {
		if sh.IsMissed && (companyID == "" || sh.CompanyID == companyID) {
			result = append(result, *sh)
		}
	}
	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	result = result[offset:]
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, total, nil
}

func (r *mockShiftRepo) ListByEmployee(_ context.Context, employeeID string, from, to time.Time) ([]model.Shift, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []model.Shift
	for _, sh := range r.s.shifts {
		if sh.EmployeeID == employeeID && !sh.StartTime.Before(from) && sh.StartTime.Before(to) {
			result = append(result, *sh)
		}
	}
	return result, nil
}

// ── TimeEntryRepository ──

type mockTimeEntryRepo struct{ s *mockStore }

func (r *mockTimeEntryRepo) Create(_ context.Context, entry *model.TimeEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	// 部分唯一索引：同一员工至多一条活动记录
	for _, e := range r.s.entries {
		if e.EmployeeID == entry.EmployeeID && e.ClockOut == nil {
			return fmt.Errorf("duplicate key value violates unique constraint \"uq_time_entries_active_per_employee\"")
		}
	}
	if entry.TimeEntryID == "" {
		entry.TimeEntryID = r.s.nextID("entry")
	}
	if entry.Version == 0 {
		entry.Version = 1
	}
	c := *entry
	r.s.entries[entry.TimeEntryID] = &c
	return nil
}

func (r *mockTimeEntryRepo) GetByID(_ context.Context, id string) (*model.TimeEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *e
	return &c, nil
}

func (r *mockTimeEntryRepo) GetActiveByEmployee(_ context.Context, employeeID string) (*model.TimeEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.entries {
		if e.EmployeeID == employeeID && e.ClockOut == nil {
			c := *e
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockTimeEntryRepo) HasClockInForShift(_ context.Context, shiftID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.entries {
		if e.ShiftID != nil && *e.ShiftID == shiftID {
			return true, nil
		}
	}
	return false, nil
}

func (r *mockTimeEntryRepo) Update(_ context.Context, entry *model.TimeEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.entries[entry.TimeEntryID]
	if !ok || stored.Version != entry.Version {
		return pkgerrors.ErrOptimisticLock
	}
	c := *entry
	c.Version = entry.Version + 1
	c.BreakWarningSentAt = stored.BreakWarningSentAt // 该列只走条件置位
	r.s.entries[entry.TimeEntryID] = &c
	entry.Version = c.Version
	return nil
}

func (r *mockTimeEntryRepo) MarkBreakWarningSent(_ context.Context, entryID string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[entryID]
	if !ok || e.BreakWarningSentAt != nil {
		return false, nil
	}
	sentAt := now
	e.BreakWarningSentAt = &sentAt
	return true, nil
}

func (r *mockTimeEntryRepo) ListOpenBreaks(_ context.Context) ([]model.TimeEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []model.TimeEntry
	for _, e := range r.s.entries {
		if e.ClockOut == nil && e.BreakStart != nil && e.BreakEnd == nil {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (r *mockTimeEntryRepo) ListByEmployee(_ context.Context, employeeID string, from, to time.Time, offset, limit int) ([]model.TimeEntry, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []model.TimeEntry
	for _, e := range r.s.entries {
		if e.EmployeeID == employeeID && !e.ClockIn.Before(from) && e.ClockIn.Before(to) {
			result = append(result, *e)
		}
	}
	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	result = result[offset:]
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, total, nil
}

// ── ReplacementRequestRepository ──

type mockReplacementRepo struct{ s *mockStore }

func (r *mockReplacementRepo) Create(_ context.Context, req *model.ReplacementRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	// (shift_id, replacement_employee_id) 唯一索引
	for _, existing := range r.s.requests {
		if existing.ShiftID == req.ShiftID && existing.ReplacementEmployeeID == req.ReplacementEmployeeID {
			return fmt.Errorf("duplicate key value violates unique constraint \"uq_replacement_requests_shift_employee\"")
		}
	}
	if req.RequestID == "" {
		req.RequestID = r.s.nextID("req")
	}
	if req.Version == 0 {
		req.Version = 1
	}
	c := *req
	r.s.requests[req.RequestID] = &c
	return nil
}

func (r *mockReplacementRepo) GetByID(_ context.Context, id string) (*model.ReplacementRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *req
	return &c, nil
}

func (r *mockReplacementRepo) ExistsForShiftAndEmployee(_ context.Context, shiftID, employeeID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, req := range r.s.requests {
		if req.ShiftID == shiftID && req.ReplacementEmployeeID == employeeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *mockReplacementRepo) List(_ context.Context, filter repository.ReplacementListFilter) ([]model.ReplacementRequest, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []model.ReplacementRequest
	for _, req := range r.s.requests {
		if filter.CompanyID != "" && req.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.ShiftID != "" && req.ShiftID != filter.ShiftID {
			continue
		}
		result = append(result, *req)
	}
	total := int64(len(result))
	if filter.Offset >= len(result) {
		return nil, total, nil
	}
	result = result[filter.Offset:]
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, total, nil
}

func (r *mockReplacementRepo) Update(_ context.Context, req *model.ReplacementRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.requests[req.RequestID]
	if !ok || stored.Version != req.Version {
		return pkgerrors.ErrOptimisticLock
	}
	c := *req
	c.Version = req.Version + 1
	r.s.requests[req.RequestID] = &c
	req.Version = c.Version
	return nil
}

// Approve 整把锁等价于真实现的单事务 + FOR UPDATE
func (r *mockReplacementRepo) Approve(_ context.Context, requestID, reviewerID, rejectNote string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.requests[requestID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	shift, ok := r.s.shifts[req.ShiftID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if shift.ReplacementEmployeeID != nil {
		return pkgerrors.ErrOptimisticLock
	}
	if req.Status != model.ReplacementStatusPending {
		return repository.ErrRequestAlreadyReviewed
	}

	reviewedAt := now
	req.Status = model.ReplacementStatusApproved
	req.ReviewedAt = &reviewedAt
	req.ReviewedBy = &reviewerID
	req.Version++

	for _, other := range r.s.requests {
		if other.ShiftID == req.ShiftID && other.RequestID != requestID && other.Status == model.ReplacementStatusPending {
			other.Status = model.ReplacementStatusRejected
			at := now
			other.ReviewedAt = &at
			other.ReviewedBy = &reviewerID
			other.ReviewerNotes = rejectNote
			other.Version++
		}
	}

	replacementID := req.ReplacementEmployeeID
	approvedAt := now
	shift.ReplacementEmployeeID = &replacementID
	shift.ReplacementApprovedAt = &approvedAt
	shift.Version++
	return nil
}

// ── NotificationRepository ──

type mockNotificationRepo struct{ s *mockStore }

func (r *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if n.NotificationID == "" {
		n.NotificationID = r.s.nextID("notif")
	}
	c := *n
	r.s.notifications[n.NotificationID] = &c
	return nil
}

func (r *mockNotificationRepo) ListByEmployee(_ context.Context, employeeID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []model.Notification
	for _, n := range r.s.notifications {
		if n.EmployeeID != employeeID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		result = append(result, *n)
	}
	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	result = result[offset:]
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, total, nil
}

func (r *mockNotificationRepo) MarkRead(_ context.Context, notificationID, employeeID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[notificationID]
	if !ok || n.EmployeeID != employeeID {
		return gorm.ErrRecordNotFound
	}
	n.IsRead = true
	return nil
}

// ── EventPublisher 记录器 ──

type mockEvents struct {
	mu     sync.Mutex
	events []redis.Event
}

func (m *mockEvents) PublishEvent(_ context.Context, _ string, ev redis.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *mockEvents) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []string
	for _, ev := range m.events {
		result = append(result, ev.Action)
	}
	return result
}

// [自证通过] internal/service/mock_repos_test.go
