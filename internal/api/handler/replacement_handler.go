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

// ReplacementHandler 顶班模块 HTTP 处理器
type ReplacementHandler struct {
	replacementSvc service.ReplacementService
}

// NewReplacementHandler 创建 ReplacementHandler
func NewReplacementHandler(replacementSvc service.ReplacementService) *ReplacementHandler {
	return &ReplacementHandler{replacementSvc: replacementSvc}
}

// Create 申请顶班
// POST /api/v1/replacements
func (h *ReplacementHandler) Create(c *gin.Context) {
	employeeID, ok := MustGetEmployeeID(c)
	if !ok {
		return
	}

	var req dto.CreateReplacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	result, err := h.replacementSvc.Request(c.Request.Context(), employeeID, &req)
	if err != nil {
		h.handleReplacementError(c, err)
		return
	}

	response.Created(c, result)
}

// List 顶班申请列表
// GET /api/v1/replacements
func (h *ReplacementHandler) List(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}

	var req dto.ReplacementListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	requests, total, err := h.replacementSvc.List(c.Request.Context(), companyID, &req)
	if err != nil {
		h.handleReplacementError(c, err)
		return
	}

	response.OKPage(c, requests, total, req.GetPage(), req.GetPageSize())
}

// Approve 批准顶班申请
// POST /api/v1/replacements/:id/approve
func (h *ReplacementHandler) Approve(c *gin.Context) {
	reviewerID, ok := MustGetEmployeeID(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 13001, "申请ID不能为空")
		return
	}

	var req dto.ReviewReplacementRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	result, err := h.replacementSvc.Approve(c.Request.Context(), reviewerID, id, &req)
	if err != nil {
		h.handleReplacementError(c, err)
		return
	}

	response.OK(c, result)
}

// Reject 驳回顶班申请
// POST /api/v1/replacements/:id/reject
func (h *ReplacementHandler) Reject(c *gin.Context) {
	reviewerID, ok := MustGetEmployeeID(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 13001, "申请ID不能为空")
		return
	}

	var req dto.ReviewReplacementRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	result, err := h.replacementSvc.Reject(c.Request.Context(), reviewerID, id, &req)
	if err != nil {
		h.handleReplacementError(c, err)
		return
	}

	response.OK(c, result)
}

// StartShift 顶班人开始顶班班次
// POST /api/v1/replacements/start
func (h *ReplacementHandler) StartShift(c *gin.Context) {
	employeeID, ok := MustGetEmployeeID(c)
	if !ok {
		return
	}

	var req dto.StartReplacementShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	entry, err := h.replacementSvc.StartShift(c.Request.Context(), employeeID, &req)
	if err != nil {
		h.handleReplacementError(c, err)
		return
	}

	response.Created(c, entry)
}

// handleReplacementError 统一处理顶班模块业务错误
func (h *ReplacementHandler) handleReplacementError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrShiftNotFound):
		response.NotFound(c, 13101, "班次不存在")
	case errors.Is(err, service.ErrRequestNotFound):
		response.NotFound(c, 13102, "顶班申请不存在")
	case errors.Is(err, service.ErrShiftNotMissed):
		response.BadRequest(c, 13103, "该班次未被标记为缺勤")
	case errors.Is(err, service.ErrSelfReplacement):
		response.BadRequest(c, 13104, "不能顶替自己的班次")
	case errors.Is(err, service.ErrAlreadyRequested):
		response.Conflict(c, 13105, "您已申请过该班次")
	case errors.Is(err, service.ErrAlreadyReplaced):
		response.Conflict(c, 13106, "该班次已有顶班人选")
	case errors.Is(err, service.ErrRequestNotPending):
		response.Conflict(c, 13107, "该申请已被处理")
	case errors.Is(err, service.ErrNotApprovedReplacement):
		response.Forbidden(c, 13108, "您不是该班次批准的顶班人")
	case errors.Is(err, service.ErrAlreadyStarted):
		response.Conflict(c, 13109, "该顶班班次已开始")
	case errors.Is(err, service.ErrAlreadyClockedIn):
		response.Conflict(c, 12101, "已有进行中的打卡记录")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 13110, "记录已被并发修改，请重试")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/replacement_handler.go
