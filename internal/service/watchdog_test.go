package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ramaamensys/zeno-time-flow-sub001/internal/dto"
	"github.com/ramaamensys/zeno-time-flow-sub001/internal/model"
)

func newWatchdogForTest(t *testing.T) (*Watchdog, *mockStore, *mockEvents) {
	t.Helper()
	store := newMockStore()
	events := &mockEvents{}
	w := NewWatchdog(testAttendanceConfig(), store.repo(), events, zap.NewNop())
	w.now = func() time.Time { return testBase }
	return w, store, events
}

// addScheduledShift 装配一个 scheduled 班次，startOffset 为相对 testBase 的开始偏移
func addScheduledShift(store *mockStore, employeeID string, startOffset time.Duration) *model.Shift {
	return store.addShift(&model.Shift{
		EmployeeID: employeeID,
		CompanyID:  "comp-1",
		StartTime:  testBase.Add(startOffset),
		EndTime:    testBase.Add(startOffset + 8*time.Hour),
		Status:     model.ShiftStatusScheduled,
	})
}

func TestWatchdogMarksOverdueShift(t *testing.T) {
	w, store, events := newWatchdogForTest(t)
	ctx := context.Background()

	// 开始已超宽限期（15 分钟）
	overdue := addScheduledShift(store, "emp-1", -20*time.Minute)
	// 刚开始 10 分钟，仍在宽限期内
	inGrace := addScheduledShift(store, "emp-2", -10*time.Minute)
	// 未来班次
	future := addScheduledShift(store, "emp-3", 2*time.Hour)

	marked, err := w.RunOnce(ctx)
	if err != nil {
		t.Fatalf("巡检失败: %v", err)
	}
	if marked != 1 {
		t.Fatalf("期望标记 1 个班次，实际 %d", marked)
	}

	got := store.getShift(overdue.ShiftID)
	if !got.IsMissed || got.MissedAt == nil || got.Status != model.ShiftStatusMissed {
		t.Error("超期班次应已标记缺勤")
	}
	if store.getShift(inGrace.ShiftID).IsMissed {
		t.Error("宽限期内的班次不应标记缺勤")
	}
	if store.getShift(future.ShiftID).IsMissed {
		t.Error("未来班次不应标记缺勤")
	}

	// 当班员工收到缺勤通知
	notifs := store.notificationsOf("emp-1")
	if len(notifs) != 1 || notifs[0].Type != model.NotificationTypeShiftMissed {
		t.Errorf("期望 1 条缺勤通知，实际 %d", len(notifs))
	}

	if actions := events.actions(); len(actions) != 1 || actions[0] != "missed" {
		t.Errorf("期望 1 条 missed 事件，实际 %v", actions)
	}
}

func TestWatchdogMarksAtMostOnce(t *testing.T) {
	w, store, _ := newWatchdogForTest(t)
	ctx := context.Background()
	addScheduledShift(store, "emp-1", -time.Hour)

	if marked, err := w.RunOnce(ctx); err != nil || marked != 1 {
		t.Fatalf("首轮期望标记 1，实际 %d (err=%v)", marked, err)
	}
	// 第二轮不得重复标记，也不得重复发通知
	if marked, err := w.RunOnce(ctx); err != nil || marked != 0 {
		t.Fatalf("次轮期望标记 0，实际 %d (err=%v)", marked, err)
	}
	if n := len(store.notificationsOf("emp-1")); n != 1 {
		t.Errorf("期望 1 条缺勤通知，实际 %d", n)
	}
}

func TestWatchdogConcurrentInstances(t *testing.T) {
	w, store, _ := newWatchdogForTest(t)
	w2 := NewWatchdog(testAttendanceConfig(), store.repo(), &mockEvents{}, zap.NewNop())
	w2.now = w.now
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		addScheduledShift(store, "emp-1", -time.Hour-time.Duration(i)*time.Minute)
	}

	// 两个实例并发巡检同一批班次，总标记数不得超过班次数
	var wg sync.WaitGroup
	totals := make([]int, 2)
	for i, dog := range []*Watchdog{w, w2} {
		wg.Add(1)
		go func(i int, dog *Watchdog) {
			defer wg.Done()
			totals[i], _ = dog.RunOnce(ctx)
		}(i, dog)
	}
	wg.Wait()

	if totals[0]+totals[1] != 5 {
		t.Errorf("两实例合计期望标记 5 个班次，实际 %d", totals[0]+totals[1])
	}
	if n := len(store.notificationsOf("emp-1")); n != 5 {
		t.Errorf("期望 5 条缺勤通知，实际 %d", n)
	}
}

func TestWatchdogClockInWins(t *testing.T) {
	w, store, _ := newWatchdogForTest(t)
	ctx := context.Background()
	shift := addScheduledShift(store, "emp-1", -time.Hour)

	// 员工赶在巡检标记前打了卡（哪怕已超宽限期）
	timer := NewTimerService(testAttendanceConfig(), store.repo(), nil, zap.NewNop()).(*timerService)
	timer.now = w.now
	if _, err := timer.ClockIn(ctx, "emp-1", &dto.ClockInRequest{ShiftID: &shift.ShiftID}); err != nil {
		t.Fatalf("上班打卡失败: %v", err)
	}

	marked, err := w.RunOnce(ctx)
	if err != nil {
		t.Fatalf("巡检失败: %v", err)
	}
	if marked != 0 {
		t.Fatalf("已打卡班次不应标记缺勤，实际标记 %d", marked)
	}
	if store.getShift(shift.ShiftID).IsMissed {
		t.Error("已打卡班次 is_missed 应保持 false")
	}
}

func TestWatchdogToleratesPartialFailure(t *testing.T) {
	w, store, _ := newWatchdogForTest(t)
	ctx := context.Background()

	bad := addScheduledShift(store, "emp-1", -time.Hour)
	good := addScheduledShift(store, "emp-2", -time.Hour)
	store.markMissedErr[bad.ShiftID] = errors.New("connection reset by peer")

	marked, err := w.RunOnce(ctx)
	if err == nil {
		t.Error("单条失败应随返回值带出")
	}
	if marked != 1 {
		t.Fatalf("其余班次应照常标记，期望 1 实际 %d", marked)
	}
	if !store.getShift(good.ShiftID).IsMissed {
		t.Error("正常班次应已标记缺勤")
	}
	if store.getShift(bad.ShiftID).IsMissed {
		t.Error("失败班次不应标记缺勤")
	}
}

// [自证通过] internal/service/watchdog_test.go
